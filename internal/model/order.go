package model

import "time"

// OrderStatus 订单状态类型
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusDisputed  OrderStatus = "disputed"
)

// orderTransitions 订单状态机转换表
// 不在表中的转换一律拒绝，订单状态只能向前推进
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:      {OrderStatusShipped, OrderStatusDisputed},
	OrderStatusShipped:   {OrderStatusDelivered, OrderStatusDisputed},
	OrderStatusDelivered: {OrderStatusCompleted},
	OrderStatusDisputed:  {OrderStatusCompleted, OrderStatusCancelled},
}

// CanTransitionTo 判断状态转换是否合法
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, t := range orderTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal 判断是否为终态
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// Order 订单模型
// ItemIDs 保存订单包含的商品（单品订单只有一项，捆绑订单按顺序保存）
// PaymentIntentID 只在结账创建支付意向时设置一次，之后不可变
type Order struct {
	ID              string      `json:"id"`
	OrderNumber     string      `json:"order_number"`
	BuyerID         int         `json:"buyer_id"`
	SellerID        int         `json:"seller_id"`
	ItemIDs         []string    `json:"item_ids"`
	Status          OrderStatus `json:"status"`
	TotalAmount     int64       `json:"total_amount"` // 最小货币单位（分）
	Currency        string      `json:"currency"`
	PaymentIntentID string      `json:"payment_intent_id,omitempty"`
	TrackingNumber  string      `json:"tracking_number,omitempty"`
	ShippingAddress string      `json:"shipping_address,omitempty"`
	ShippedAt       *time.Time  `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time  `json:"delivered_at,omitempty"`
	CompletedAt     *time.Time  `json:"completed_at,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}
