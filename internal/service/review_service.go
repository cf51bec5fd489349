package service

import (
	"marketplace-backend/internal/errors"
	"marketplace-backend/internal/model"
	"marketplace-backend/internal/repository/interfaces"
	"marketplace-backend/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReviewService 评价资格闸门
// 只有买家在订单完成后可以评价，每个订单每个评价人最多一条
type ReviewService struct {
	reviewRepo interfaces.ReviewRepository
	orderRepo  interfaces.OrderRepository
}

func NewReviewService(reviewRepo interfaces.ReviewRepository, orderRepo interfaces.OrderRepository) *ReviewService {
	return &ReviewService{
		reviewRepo: reviewRepo,
		orderRepo:  orderRepo,
	}
}

// CanReview 判断评价资格：订单已完成、评价人是买家、且尚未评价过
func (s *ReviewService) CanReview(orderID string, reviewerID int) (bool, error) {
	order, err := s.orderRepo.GetOrderByID(orderID)
	if err != nil {
		return false, errors.Wrap(errors.ErrDatabase, "查询订单失败", err)
	}
	if order == nil {
		return false, nil
	}
	if order.Status != model.OrderStatusCompleted || order.BuyerID != reviewerID {
		return false, nil
	}

	exists, err := s.reviewRepo.HasReview(orderID, reviewerID)
	if err != nil {
		return false, errors.Wrap(errors.ErrDatabase, "查询评价失败", err)
	}
	return !exists, nil
}

// SubmitReview 提交评价
// 资格校验与插入在仓库层单条语句内原子完成，不存在两条评价同时通过的竞态
func (s *ReviewService) SubmitReview(orderID string, reviewerID int, rating int, comment string) (*model.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, errors.New(errors.ErrInvalidRating, "评分必须在 1 到 5 之间")
	}

	review := &model.Review{
		ID:         uuid.New().String(),
		OrderID:    orderID,
		ReviewerID: reviewerID,
		Rating:     rating,
		Comment:    comment,
	}

	ok, err := s.reviewRepo.CreateIfEligible(review)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "创建评价失败", err)
	}
	if !ok {
		util.Logger.Warn("评价被拒绝：不满足资格",
			zap.String("order_id", orderID),
			zap.Int("reviewer_id", reviewerID))
		return nil, errors.New(errors.ErrNotEligible, "只有买家在订单完成后可以评价，且每个订单只能评价一次")
	}

	return review, nil
}

// GetReview 查询评价
func (s *ReviewService) GetReview(orderID string, reviewerID int) (*model.Review, error) {
	review, err := s.reviewRepo.GetByOrderAndReviewer(orderID, reviewerID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "查询评价失败", err)
	}
	return review, nil
}
