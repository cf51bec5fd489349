package model

import "time"

// PaymentIntentStatus 支付意向状态
type PaymentIntentStatus string

const (
	IntentStatusRequiresAction PaymentIntentStatus = "requires_action"
	IntentStatusSucceeded      PaymentIntentStatus = "succeeded"
	IntentStatusFailed         PaymentIntentStatus = "failed"
)

// PaymentIntent 支付意向，由支付网关创建
// 一个支付意向最多对应一个订单
type PaymentIntent struct {
	ID             string              `json:"id"`
	Amount         int64               `json:"amount"` // 最小货币单位（分）
	Currency       string              `json:"currency"`
	Status         PaymentIntentStatus `json:"status"`
	IdempotencyKey string              `json:"idempotency_key"`
	ClientSecret   string              `json:"-"` // 客户端密钥不落库、不入日志
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// 支付网关的事件类型
const (
	EventTypePaymentSucceeded = "payment_intent.succeeded"
	EventTypePaymentFailed    = "payment_intent.payment_failed"
	EventTypePaymentCanceled  = "payment_intent.canceled"
)

// WebhookEvent 支付网关回调事件
// EventID 由网关全局唯一分配，作为去重账本的主键
type WebhookEvent struct {
	EventID    string    `json:"event_id"`
	Type       string    `json:"type"`
	IntentID   string    `json:"intent_id"`
	OrderID    string    `json:"order_id,omitempty"`
	Payload    []byte    `json:"-"`
	ReceivedAt time.Time `json:"received_at"`
}
