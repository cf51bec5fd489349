package interfaces

import (
	"time"

	"marketplace-backend/internal/model"
)

type OrderRepository interface {
	CreateOrder(order *model.Order) error
	GetOrderByID(id string) (*model.Order, error)
	GetOrderByPaymentIntentID(intentID string) (*model.Order, error)
	GetOrdersByUser(userID int) ([]*model.Order, error)
	// TransitionStatus 以 (order_id, expected_status) 为键的原子状态转换
	// 只有当前状态等于 from 时才更新为 to，返回是否命中
	// 时间戳字段随目标状态一并设置，每个字段只会被设置一次
	TransitionStatus(orderID string, from, to model.OrderStatus, trackingNumber *string) (bool, error)
	// 超时扫描查询
	ListPendingCreatedBefore(cutoff time.Time) ([]*model.Order, error)
	ListShippedBefore(cutoff time.Time) ([]*model.Order, error)
	ListDeliveredBefore(cutoff time.Time) ([]*model.Order, error)
	ListByStatus(status model.OrderStatus) ([]*model.Order, error)
	CountByStatus(status model.OrderStatus) (int, error)
	SumPaidAmount() (int64, error)
	Count() (int, error)
}
