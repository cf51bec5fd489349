package mysql

import (
	"database/sql"
	"time"

	"marketplace-backend/internal/model"
	"marketplace-backend/internal/util"

	"go.uber.org/zap"
)

type ReviewRepository struct {
	db *sql.DB
}

func NewReviewRepository(db *sql.DB) *ReviewRepository {
	return &ReviewRepository{db}
}

// CreateIfEligible 单条语句原子地校验资格并插入评价
// INSERT...SELECT 在订单行上校验：状态为 completed 且评价人是买家；
// (order_id, reviewer_id) 的唯一键配合 INSERT IGNORE 挡掉重复评价。
// 未插入任何行即为不满足资格。
func (r *ReviewRepository) CreateIfEligible(review *model.Review) (bool, error) {
	review.CreatedAt = time.Now()

	query := `INSERT IGNORE INTO reviews (id, order_id, reviewer_id, rating, comment, created_at)
			  SELECT ?, o.id, ?, ?, ?, ?
			  FROM orders o
			  WHERE o.id = ? AND o.status = 'completed' AND o.buyer_id = ?`

	result, err := r.db.Exec(query,
		review.ID, review.ReviewerID, review.Rating, review.Comment, review.CreatedAt,
		review.OrderID, review.ReviewerID)
	if err != nil {
		util.Logger.Error("插入评价失败",
			zap.Error(err),
			zap.String("order_id", review.OrderID),
			zap.Int("reviewer_id", review.ReviewerID))
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		util.Logger.Warn("评价资格校验未通过",
			zap.String("order_id", review.OrderID),
			zap.Int("reviewer_id", review.ReviewerID))
		return false, nil
	}

	util.Logger.Info("评价创建成功",
		zap.String("review_id", review.ID),
		zap.String("order_id", review.OrderID),
		zap.Int("rating", review.Rating))
	return true, nil
}

func (r *ReviewRepository) GetByOrderAndReviewer(orderID string, reviewerID int) (*model.Review, error) {
	query := `SELECT id, order_id, reviewer_id, rating, comment, created_at
			  FROM reviews WHERE order_id = ? AND reviewer_id = ?`

	review := &model.Review{}
	err := r.db.QueryRow(query, orderID, reviewerID).Scan(
		&review.ID, &review.OrderID, &review.ReviewerID,
		&review.Rating, &review.Comment, &review.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return review, nil
}

func (r *ReviewRepository) HasReview(orderID string, reviewerID int) (bool, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM reviews WHERE order_id = ? AND reviewer_id = ?`,
		orderID, reviewerID).Scan(&count)
	return count > 0, err
}
