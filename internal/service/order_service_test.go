package service

import (
	"testing"

	"marketplace-backend/internal/errors"
	"marketplace-backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newOrderService(orderRepo *MockOrderRepository, productRepo *MockProductRepository, userRepo *MockUserRepository) *OrderService {
	return NewOrderService(orderRepo, productRepo, userRepo, nil)
}

func paidOrder() *model.Order {
	return &model.Order{
		ID:       "order-1",
		BuyerID:  1,
		SellerID: 2,
		ItemIDs:  []string{"item-1"},
		Status:   model.OrderStatusPaid,
	}
}

// TestMarkShipped 测试卖家发货
func TestMarkShipped(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	productRepo := new(MockProductRepository)
	userRepo := new(MockUserRepository)
	service := newOrderService(orderRepo, productRepo, userRepo)

	orderRepo.On("GetOrderByID", "order-1").Return(paidOrder(), nil)
	orderRepo.On("TransitionStatus", "order-1", model.OrderStatusPaid, model.OrderStatusShipped, mock.AnythingOfType("*string")).Return(true, nil)

	order, err := service.MarkShipped("order-1", 2, "TRACK123")
	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusShipped, order.Status)
	assert.Equal(t, "TRACK123", order.TrackingNumber)
	orderRepo.AssertExpectations(t)
}

// TestMarkShippedNotSeller 测试非卖家发货被拒绝
func TestMarkShippedNotSeller(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	service := newOrderService(orderRepo, new(MockProductRepository), new(MockUserRepository))

	orderRepo.On("GetOrderByID", "order-1").Return(paidOrder(), nil)

	_, err := service.MarkShipped("order-1", 1, "TRACK123")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrForbidden))
	orderRepo.AssertNotCalled(t, "TransitionStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// TestMarkShippedMissingTracking 测试无运单号发货被拒绝
func TestMarkShippedMissingTracking(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	service := newOrderService(orderRepo, new(MockProductRepository), new(MockUserRepository))

	orderRepo.On("GetOrderByID", "order-1").Return(paidOrder(), nil)

	_, err := service.MarkShipped("order-1", 2, "")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMissingTrackingNumber))
}

// TestMarkShippedFromPending 测试未支付订单不能发货
func TestMarkShippedFromPending(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	service := newOrderService(orderRepo, new(MockProductRepository), new(MockUserRepository))

	order := paidOrder()
	order.Status = model.OrderStatusPending
	orderRepo.On("GetOrderByID", "order-1").Return(order, nil)

	_, err := service.MarkShipped("order-1", 2, "TRACK123")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidTransition))
	orderRepo.AssertNotCalled(t, "TransitionStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// TestDoubleMarkShipped 测试并发重复发货：条件更新未命中返回 StaleOrderState
func TestDoubleMarkShipped(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	service := newOrderService(orderRepo, new(MockProductRepository), new(MockUserRepository))

	orderRepo.On("GetOrderByID", "order-1").Return(paidOrder(), nil)
	orderRepo.On("TransitionStatus", "order-1", model.OrderStatusPaid, model.OrderStatusShipped, mock.AnythingOfType("*string")).Return(false, nil)

	_, err := service.MarkShipped("order-1", 2, "TRACK123")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStaleOrderState))
}

// TestMarkReceived 测试买家确认收货
func TestMarkReceived(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	service := newOrderService(orderRepo, new(MockProductRepository), new(MockUserRepository))

	order := paidOrder()
	order.Status = model.OrderStatusShipped
	orderRepo.On("GetOrderByID", "order-1").Return(order, nil)
	orderRepo.On("TransitionStatus", "order-1", model.OrderStatusShipped, model.OrderStatusDelivered, (*string)(nil)).Return(true, nil)

	got, err := service.MarkReceived("order-1", 1)
	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusDelivered, got.Status)
}

// TestMarkReceivedAfterDispute 测试争议中的订单不能确认收货
func TestMarkReceivedAfterDispute(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	service := newOrderService(orderRepo, new(MockProductRepository), new(MockUserRepository))

	order := paidOrder()
	order.Status = model.OrderStatusDisputed
	orderRepo.On("GetOrderByID", "order-1").Return(order, nil)

	_, err := service.MarkReceived("order-1", 1)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidTransition))
}

// TestCancelByBuyerPending 测试买家在支付前取消并释放预留
func TestCancelByBuyerPending(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	productRepo := new(MockProductRepository)
	service := newOrderService(orderRepo, productRepo, new(MockUserRepository))

	order := paidOrder()
	order.Status = model.OrderStatusPending
	orderRepo.On("GetOrderByID", "order-1").Return(order, nil)
	orderRepo.On("TransitionStatus", "order-1", model.OrderStatusPending, model.OrderStatusCancelled, (*string)(nil)).Return(true, nil)
	productRepo.On("Release", "item-1").Return(nil)

	got, err := service.CancelByBuyer("order-1", 1)
	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, got.Status)
	productRepo.AssertExpectations(t)
}

// TestCancelByBuyerAfterPaid 测试支付后买家取消被拒绝，必须走争议流程
func TestCancelByBuyerAfterPaid(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	service := newOrderService(orderRepo, new(MockProductRepository), new(MockUserRepository))

	orderRepo.On("GetOrderByID", "order-1").Return(paidOrder(), nil)

	_, err := service.CancelByBuyer("order-1", 1)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrAlreadyPaid))
	orderRepo.AssertNotCalled(t, "TransitionStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// TestRaiseDisputeByStranger 测试无关用户不能发起争议
func TestRaiseDisputeByStranger(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	userRepo := new(MockUserRepository)
	service := newOrderService(orderRepo, new(MockProductRepository), userRepo)

	orderRepo.On("GetOrderByID", "order-1").Return(paidOrder(), nil)
	userRepo.On("FindByID", 99).Return(&model.User{ID: 99, Role: "user"}, nil)

	_, err := service.RaiseDispute("order-1", 99)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrForbidden))
}

// TestResolveDispute 测试管理员裁决争议
func TestResolveDispute(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	userRepo := new(MockUserRepository)
	service := newOrderService(orderRepo, new(MockProductRepository), userRepo)

	order := paidOrder()
	order.Status = model.OrderStatusDisputed
	userRepo.On("FindByID", 10).Return(&model.User{ID: 10, Role: "admin"}, nil)
	orderRepo.On("GetOrderByID", "order-1").Return(order, nil)
	orderRepo.On("TransitionStatus", "order-1", model.OrderStatusDisputed, model.OrderStatusCompleted, (*string)(nil)).Return(true, nil)

	got, err := service.ResolveDispute("order-1", 10, model.OrderStatusCompleted)
	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusCompleted, got.Status)
}

// TestResolveDisputeNotAdmin 测试非管理员不能裁决争议
func TestResolveDisputeNotAdmin(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	userRepo := new(MockUserRepository)
	service := newOrderService(orderRepo, new(MockProductRepository), userRepo)

	userRepo.On("FindByID", 1).Return(&model.User{ID: 1, Role: "user"}, nil)

	_, err := service.ResolveDispute("order-1", 1, model.OrderStatusCancelled)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrForbidden))
}

// TestResolveDisputeInvalidOutcome 测试裁决结果只能是 completed 或 cancelled
func TestResolveDisputeInvalidOutcome(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	userRepo := new(MockUserRepository)
	service := newOrderService(orderRepo, new(MockProductRepository), userRepo)

	userRepo.On("FindByID", 10).Return(&model.User{ID: 10, Role: "admin"}, nil)

	_, err := service.ResolveDispute("order-1", 10, model.OrderStatusShipped)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

// TestGetOrderAccess 测试订单只对买家、卖家和管理员可见
func TestGetOrderAccess(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	userRepo := new(MockUserRepository)
	service := newOrderService(orderRepo, new(MockProductRepository), userRepo)

	orderRepo.On("GetOrderByID", "order-1").Return(paidOrder(), nil)

	// 买家可见
	order, err := service.GetOrder("order-1", 1)
	assert.NoError(t, err)
	assert.Equal(t, "order-1", order.ID)

	// 无关用户不可见
	userRepo.On("FindByID", 99).Return(&model.User{ID: 99, Role: "user"}, nil)
	_, err = service.GetOrder("order-1", 99)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrForbidden))

	// 管理员可见
	userRepo.On("FindByID", 10).Return(&model.User{ID: 10, Role: "admin"}, nil)
	order, err = service.GetOrder("order-1", 10)
	assert.NoError(t, err)
	assert.Equal(t, "order-1", order.ID)
}

// TestMarkPaid 测试支付成功转换并标记商品售出
func TestMarkPaid(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	productRepo := new(MockProductRepository)
	service := newOrderService(orderRepo, productRepo, new(MockUserRepository))

	order := paidOrder()
	order.Status = model.OrderStatusPending
	orderRepo.On("TransitionStatus", "order-1", model.OrderStatusPending, model.OrderStatusPaid, (*string)(nil)).Return(true, nil)
	productRepo.On("MarkSold", "item-1").Return(nil)

	err := service.MarkPaid(order)
	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, order.Status)
	productRepo.AssertExpectations(t)
}

// TestTerminalStateRejectsTransitions 测试终态订单拒绝一切转换
func TestTerminalStateRejectsTransitions(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	service := newOrderService(orderRepo, new(MockProductRepository), new(MockUserRepository))

	order := paidOrder()
	order.Status = model.OrderStatusCompleted
	orderRepo.On("GetOrderByID", "order-1").Return(order, nil)

	_, err := service.RaiseDispute("order-1", 1)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidTransition))
}
