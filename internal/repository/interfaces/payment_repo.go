package interfaces

import "marketplace-backend/internal/model"

type PaymentRepository interface {
	CreateIntentRecord(intent *model.PaymentIntent) error
	GetIntentByID(id string) (*model.PaymentIntent, error)
	GetIntentByIdempotencyKey(key string) (*model.PaymentIntent, error)
	UpdateIntentStatus(id string, status model.PaymentIntentStatus) error
	// IsEventProcessed 去重账本预检，重复投递的事件返回 true
	IsEventProcessed(eventID string) (bool, error)
	// MarkEventProcessed 向去重账本写入事件，event_id 唯一
	// 在事件应用成功后调用；返回 false 表示并发投递已先入账
	MarkEventProcessed(event *model.WebhookEvent) (bool, error)
}
