package interfaces

import "marketplace-backend/internal/model"

type ReviewRepository interface {
	// CreateIfEligible 原子地校验资格并插入评价：
	// 订单存在、状态为 completed、评价人为买家、且尚无该买家的评价
	// 返回 false 表示不满足资格，未产生任何写入
	CreateIfEligible(review *model.Review) (bool, error)
	GetByOrderAndReviewer(orderID string, reviewerID int) (*model.Review, error)
	HasReview(orderID string, reviewerID int) (bool, error)
}
