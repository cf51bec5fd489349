package model

import "time"

// Review 评价模型
// 每个 (order_id, reviewer_id) 最多一条评价，只有买家在订单完成后可以评价
type Review struct {
	ID         string    `json:"id"`
	OrderID    string    `json:"order_id"`
	ReviewerID int       `json:"reviewer_id"`
	Rating     int       `json:"rating"` // 1-5
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
