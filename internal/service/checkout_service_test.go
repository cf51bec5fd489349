package service

import (
	"context"
	"testing"
	"time"

	"marketplace-backend/internal/errors"
	"marketplace-backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// retryableError 模拟网关 5xx 类错误
type retryableError struct{}

func (e *retryableError) Error() string   { return "gateway unavailable" }
func (e *retryableError) Retryable() bool { return true }

func availableProduct(id string, sellerID int, price int64) *model.Product {
	return &model.Product{
		ID:       id,
		SellerID: sellerID,
		Price:    price,
		Currency: "USD",
		Status:   model.ProductStatusAvailable,
	}
}

func newCheckoutService(orderRepo *MockOrderRepository, productRepo *MockProductRepository, paymentRepo *MockPaymentRepository, gateway *MockIntentCreator) *CheckoutService {
	return NewCheckoutService(orderRepo, productRepo, paymentRepo, gateway, 1, 30*time.Minute, 500)
}

// TestStartCheckout 测试正常结账流程
func TestStartCheckout(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	productRepo := new(MockProductRepository)
	paymentRepo := new(MockPaymentRepository)
	gateway := new(MockIntentCreator)
	service := newCheckoutService(orderRepo, productRepo, paymentRepo, gateway)

	productRepo.On("GetProductByID", "item-1").Return(availableProduct("item-1", 2, 2499), nil)
	productRepo.On("Reserve", "item-1", mock.AnythingOfType("time.Time")).Return(true, nil)

	intent := &model.PaymentIntent{
		ID:           "pi_123",
		Amount:       2999,
		Currency:     "USD",
		Status:       model.IntentStatusRequiresAction,
		ClientSecret: "pi_123_secret",
	}
	gateway.On("CreateIntent", mock.Anything, int64(2999), "USD", mock.AnythingOfType("string"), mock.Anything).Return(intent, nil)
	orderRepo.On("GetOrderByPaymentIntentID", "pi_123").Return(nil, nil)
	paymentRepo.On("CreateIntentRecord", intent).Return(nil)
	orderRepo.On("CreateOrder", mock.AnythingOfType("*model.Order")).Return(nil)

	order, clientSecret, err := service.StartCheckout(context.Background(), 1, CheckoutRequest{
		ItemIDs:         []string{"item-1"},
		ShippingAddress: "123 Main St",
		AttemptNonce:    "nonce-1",
	})
	assert.NoError(t, err)
	assert.Equal(t, "pi_123_secret", clientSecret)
	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Equal(t, int64(2999), order.TotalAmount) // 2499 + 500 运费
	assert.Equal(t, "pi_123", order.PaymentIntentID)
	orderRepo.AssertExpectations(t)
	gateway.AssertExpectations(t)
}

// TestStartCheckoutSoldItem 测试已售商品不能结账
func TestStartCheckoutSoldItem(t *testing.T) {
	productRepo := new(MockProductRepository)
	service := newCheckoutService(new(MockOrderRepository), productRepo, new(MockPaymentRepository), new(MockIntentCreator))

	sold := availableProduct("item-1", 2, 2499)
	sold.Status = model.ProductStatusSold
	productRepo.On("GetProductByID", "item-1").Return(sold, nil)

	_, _, err := service.StartCheckout(context.Background(), 1, CheckoutRequest{
		ItemIDs:         []string{"item-1"},
		ShippingAddress: "123 Main St",
		AttemptNonce:    "nonce-1",
	})
	assert.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrItemNoLongerAvailable))
}

// TestStartCheckoutCurrencyMismatch 测试声明的币种与商品币种不一致时拒绝结账
func TestStartCheckoutCurrencyMismatch(t *testing.T) {
	productRepo := new(MockProductRepository)
	service := newCheckoutService(new(MockOrderRepository), productRepo, new(MockPaymentRepository), new(MockIntentCreator))

	productRepo.On("GetProductByID", "item-1").Return(availableProduct("item-1", 2, 2499), nil)

	_, _, err := service.StartCheckout(context.Background(), 1, CheckoutRequest{
		ItemIDs:         []string{"item-1"},
		ShippingAddress: "123 Main St",
		Currency:        "EUR",
		AttemptNonce:    "nonce-1",
	})
	assert.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
	productRepo.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything)
}

// TestStartCheckoutOwnProduct 测试不能购买自己的商品
func TestStartCheckoutOwnProduct(t *testing.T) {
	productRepo := new(MockProductRepository)
	service := newCheckoutService(new(MockOrderRepository), productRepo, new(MockPaymentRepository), new(MockIntentCreator))

	productRepo.On("GetProductByID", "item-1").Return(availableProduct("item-1", 1, 2499), nil)

	_, _, err := service.StartCheckout(context.Background(), 1, CheckoutRequest{
		ItemIDs:         []string{"item-1"},
		ShippingAddress: "123 Main St",
		AttemptNonce:    "nonce-1",
	})
	assert.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

// TestStartCheckoutMixedSellers 测试捆绑订单必须来自同一卖家
func TestStartCheckoutMixedSellers(t *testing.T) {
	productRepo := new(MockProductRepository)
	service := newCheckoutService(new(MockOrderRepository), productRepo, new(MockPaymentRepository), new(MockIntentCreator))

	productRepo.On("GetProductByID", "item-1").Return(availableProduct("item-1", 2, 1000), nil)
	productRepo.On("GetProductByID", "item-2").Return(availableProduct("item-2", 3, 1000), nil)

	_, _, err := service.StartCheckout(context.Background(), 1, CheckoutRequest{
		ItemIDs:         []string{"item-1", "item-2"},
		ShippingAddress: "123 Main St",
		AttemptNonce:    "nonce-1",
	})
	assert.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

// TestStartCheckoutInvalidDiscount 测试折扣把总价压到最小扣款金额以下时拒绝
func TestStartCheckoutInvalidDiscount(t *testing.T) {
	productRepo := new(MockProductRepository)
	service := newCheckoutService(new(MockOrderRepository), productRepo, new(MockPaymentRepository), new(MockIntentCreator))

	productRepo.On("GetProductByID", "item-1").Return(availableProduct("item-1", 2, 100), nil)
	productRepo.On("GetDiscountByCode", "BIGOFF").Return(&model.Discount{
		Code:      "BIGOFF",
		AmountOff: 580, // 100 + 500 - 580 = 20 < 最小扣款金额
		Active:    true,
	}, nil)

	_, _, err := service.StartCheckout(context.Background(), 1, CheckoutRequest{
		ItemIDs:         []string{"item-1"},
		ShippingAddress: "123 Main St",
		DiscountCode:    "BIGOFF",
		AttemptNonce:    "nonce-1",
	})
	assert.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidDiscount))
}

// TestStartCheckoutExpiredDiscount 测试过期折扣码被拒绝
func TestStartCheckoutExpiredDiscount(t *testing.T) {
	productRepo := new(MockProductRepository)
	service := newCheckoutService(new(MockOrderRepository), productRepo, new(MockPaymentRepository), new(MockIntentCreator))

	expired := time.Now().Add(-time.Hour)
	productRepo.On("GetProductByID", "item-1").Return(availableProduct("item-1", 2, 2499), nil)
	productRepo.On("GetDiscountByCode", "OLD").Return(&model.Discount{
		Code:      "OLD",
		AmountOff: 100,
		Active:    true,
		ExpiresAt: &expired,
	}, nil)

	_, _, err := service.StartCheckout(context.Background(), 1, CheckoutRequest{
		ItemIDs:         []string{"item-1"},
		ShippingAddress: "123 Main St",
		DiscountCode:    "OLD",
		AttemptNonce:    "nonce-1",
	})
	assert.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidDiscount))
}

// TestStartCheckoutReserveConflict 测试商品被并发预留时回滚已预留商品
func TestStartCheckoutReserveConflict(t *testing.T) {
	productRepo := new(MockProductRepository)
	service := newCheckoutService(new(MockOrderRepository), productRepo, new(MockPaymentRepository), new(MockIntentCreator))

	productRepo.On("GetProductByID", "item-1").Return(availableProduct("item-1", 2, 1000), nil)
	productRepo.On("GetProductByID", "item-2").Return(availableProduct("item-2", 2, 1000), nil)
	productRepo.On("Reserve", "item-1", mock.AnythingOfType("time.Time")).Return(true, nil)
	productRepo.On("Reserve", "item-2", mock.AnythingOfType("time.Time")).Return(false, nil)
	productRepo.On("Release", "item-1").Return(nil)

	_, _, err := service.StartCheckout(context.Background(), 1, CheckoutRequest{
		ItemIDs:         []string{"item-1", "item-2"},
		ShippingAddress: "123 Main St",
		AttemptNonce:    "nonce-1",
	})
	assert.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrItemNoLongerAvailable))
	productRepo.AssertExpectations(t)
}

// TestStartCheckoutGatewayUnavailable 测试网关持续不可用：释放预留且不留下任何订单
func TestStartCheckoutGatewayUnavailable(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	productRepo := new(MockProductRepository)
	gateway := new(MockIntentCreator)
	service := newCheckoutService(orderRepo, productRepo, new(MockPaymentRepository), gateway)

	productRepo.On("GetProductByID", "item-1").Return(availableProduct("item-1", 2, 2499), nil)
	productRepo.On("Reserve", "item-1", mock.AnythingOfType("time.Time")).Return(true, nil)
	productRepo.On("Release", "item-1").Return(nil)
	gateway.On("CreateIntent", mock.Anything, int64(2999), "USD", mock.AnythingOfType("string"), mock.Anything).Return(nil, &retryableError{})

	_, _, err := service.StartCheckout(context.Background(), 1, CheckoutRequest{
		ItemIDs:         []string{"item-1"},
		ShippingAddress: "123 Main St",
		AttemptNonce:    "nonce-1",
	})
	assert.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrPaymentGatewayUnavailable))
	productRepo.AssertExpectations(t)
	orderRepo.AssertNotCalled(t, "CreateOrder", mock.Anything)
}

// TestStartCheckoutIdempotentRetry 测试重试命中同一支付意向时返回已有订单，不重复建单
func TestStartCheckoutIdempotentRetry(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	productRepo := new(MockProductRepository)
	paymentRepo := new(MockPaymentRepository)
	gateway := new(MockIntentCreator)
	service := newCheckoutService(orderRepo, productRepo, paymentRepo, gateway)

	productRepo.On("GetProductByID", "item-1").Return(availableProduct("item-1", 2, 2499), nil)
	productRepo.On("Reserve", "item-1", mock.AnythingOfType("time.Time")).Return(true, nil)

	intent := &model.PaymentIntent{ID: "pi_123", ClientSecret: "pi_123_secret"}
	existing := &model.Order{ID: "order-1", PaymentIntentID: "pi_123", Status: model.OrderStatusPending}
	gateway.On("CreateIntent", mock.Anything, int64(2999), "USD", mock.AnythingOfType("string"), mock.Anything).Return(intent, nil)
	orderRepo.On("GetOrderByPaymentIntentID", "pi_123").Return(existing, nil)

	order, clientSecret, err := service.StartCheckout(context.Background(), 1, CheckoutRequest{
		ItemIDs:         []string{"item-1"},
		ShippingAddress: "123 Main St",
		AttemptNonce:    "nonce-1",
	})
	assert.NoError(t, err)
	assert.Equal(t, "order-1", order.ID)
	assert.Equal(t, "pi_123_secret", clientSecret)
	orderRepo.AssertNotCalled(t, "CreateOrder", mock.Anything)
	// 预留继续为原订单保管商品，不在重试路径上释放
	productRepo.AssertNotCalled(t, "Release", mock.Anything)
}

// TestBuildIdempotencyKey 测试幂等键对商品顺序不敏感、对尝试序号敏感
func TestBuildIdempotencyKey(t *testing.T) {
	key1 := buildIdempotencyKey(1, []string{"item-b", "item-a"}, "nonce-1")
	key2 := buildIdempotencyKey(1, []string{"item-a", "item-b"}, "nonce-1")
	assert.Equal(t, key1, key2)

	key3 := buildIdempotencyKey(1, []string{"item-a", "item-b"}, "nonce-2")
	assert.NotEqual(t, key1, key3)

	key4 := buildIdempotencyKey(2, []string{"item-a", "item-b"}, "nonce-1")
	assert.NotEqual(t, key1, key4)
}
