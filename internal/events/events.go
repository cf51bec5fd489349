package events

import "time"

// OrderStatusChangedEvent 订单状态变更事件
// 由订单状态机在转换提交后发出，供通知等下游消费，不参与事务路径
type OrderStatusChangedEvent struct {
	EventID     string    `json:"event_id"`
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	BuyerID     int       `json:"buyer_id"`
	SellerID    int       `json:"seller_id"`
	FromStatus  string    `json:"from_status"`
	ToStatus    string    `json:"to_status"`
	TotalAmount int64     `json:"total_amount"`
	Currency    string    `json:"currency"`
	Timestamp   time.Time `json:"timestamp"`
}
