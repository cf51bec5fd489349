package service

import (
	"context"
	"time"

	"marketplace-backend/internal/model"
	"marketplace-backend/internal/util"

	"github.com/stretchr/testify/mock"
)

func init() {
	util.InitLogger("error")
}

// MockOrderRepository 是 OrderRepository 接口的模拟实现
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) CreateOrder(order *model.Order) error {
	args := m.Called(order)
	return args.Error(0)
}

func (m *MockOrderRepository) GetOrderByID(id string) (*model.Order, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) GetOrderByPaymentIntentID(intentID string) (*model.Order, error) {
	args := m.Called(intentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) GetOrdersByUser(userID int) ([]*model.Order, error) {
	args := m.Called(userID)
	return args.Get(0).([]*model.Order), args.Error(1)
}

func (m *MockOrderRepository) TransitionStatus(orderID string, from, to model.OrderStatus, trackingNumber *string) (bool, error) {
	args := m.Called(orderID, from, to, trackingNumber)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) ListPendingCreatedBefore(cutoff time.Time) ([]*model.Order, error) {
	args := m.Called(cutoff)
	return args.Get(0).([]*model.Order), args.Error(1)
}

func (m *MockOrderRepository) ListShippedBefore(cutoff time.Time) ([]*model.Order, error) {
	args := m.Called(cutoff)
	return args.Get(0).([]*model.Order), args.Error(1)
}

func (m *MockOrderRepository) ListDeliveredBefore(cutoff time.Time) ([]*model.Order, error) {
	args := m.Called(cutoff)
	return args.Get(0).([]*model.Order), args.Error(1)
}

func (m *MockOrderRepository) ListByStatus(status model.OrderStatus) ([]*model.Order, error) {
	args := m.Called(status)
	return args.Get(0).([]*model.Order), args.Error(1)
}

func (m *MockOrderRepository) CountByStatus(status model.OrderStatus) (int, error) {
	args := m.Called(status)
	return args.Int(0), args.Error(1)
}

func (m *MockOrderRepository) SumPaidAmount() (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOrderRepository) Count() (int, error) {
	args := m.Called()
	return args.Int(0), args.Error(1)
}

// MockProductRepository 是 ProductRepository 接口的模拟实现
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) CreateProduct(product *model.Product) error {
	args := m.Called(product)
	return args.Error(0)
}

func (m *MockProductRepository) GetProductByID(id string) (*model.Product, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductRepository) Reserve(productID string, until time.Time) (bool, error) {
	args := m.Called(productID, until)
	return args.Bool(0), args.Error(1)
}

func (m *MockProductRepository) Release(productID string) error {
	args := m.Called(productID)
	return args.Error(0)
}

func (m *MockProductRepository) MarkSold(productID string) error {
	args := m.Called(productID)
	return args.Error(0)
}

func (m *MockProductRepository) Count() (int, error) {
	args := m.Called()
	return args.Int(0), args.Error(1)
}

func (m *MockProductRepository) GetDiscountByCode(code string) (*model.Discount, error) {
	args := m.Called(code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Discount), args.Error(1)
}

// MockUserRepository 是 UserRepository 接口的模拟实现
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(user *model.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(id int) (*model.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(email string) (*model.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsername(username string) (*model.User, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) Update(user *model.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) Count() (int, error) {
	args := m.Called()
	return args.Int(0), args.Error(1)
}

// MockPaymentRepository 是 PaymentRepository 接口的模拟实现
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) CreateIntentRecord(intent *model.PaymentIntent) error {
	args := m.Called(intent)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetIntentByID(id string) (*model.PaymentIntent, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaymentIntent), args.Error(1)
}

func (m *MockPaymentRepository) GetIntentByIdempotencyKey(key string) (*model.PaymentIntent, error) {
	args := m.Called(key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaymentIntent), args.Error(1)
}

func (m *MockPaymentRepository) UpdateIntentStatus(id string, status model.PaymentIntentStatus) error {
	args := m.Called(id, status)
	return args.Error(0)
}

func (m *MockPaymentRepository) IsEventProcessed(eventID string) (bool, error) {
	args := m.Called(eventID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentRepository) MarkEventProcessed(event *model.WebhookEvent) (bool, error) {
	args := m.Called(event)
	return args.Bool(0), args.Error(1)
}

// MockReviewRepository 是 ReviewRepository 接口的模拟实现
type MockReviewRepository struct {
	mock.Mock
}

func (m *MockReviewRepository) CreateIfEligible(review *model.Review) (bool, error) {
	args := m.Called(review)
	return args.Bool(0), args.Error(1)
}

func (m *MockReviewRepository) GetByOrderAndReviewer(orderID string, reviewerID int) (*model.Review, error) {
	args := m.Called(orderID, reviewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Review), args.Error(1)
}

func (m *MockReviewRepository) HasReview(orderID string, reviewerID int) (bool, error) {
	args := m.Called(orderID, reviewerID)
	return args.Bool(0), args.Error(1)
}

// MockIntentCreator 是支付网关 IntentCreator 接口的模拟实现
type MockIntentCreator struct {
	mock.Mock
}

func (m *MockIntentCreator) CreateIntent(ctx context.Context, amount int64, currency, idempotencyKey string, metadata map[string]string) (*model.PaymentIntent, error) {
	args := m.Called(ctx, amount, currency, idempotencyKey, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaymentIntent), args.Error(1)
}

// MockWebhookVerifier 是回调验签接口的模拟实现
type MockWebhookVerifier struct {
	mock.Mock
}

func (m *MockWebhookVerifier) VerifyWebhookSignature(payload []byte, sigHeader string) error {
	args := m.Called(payload, sigHeader)
	return args.Error(0)
}

func (m *MockWebhookVerifier) ParseEvent(payload []byte) (*model.WebhookEvent, error) {
	args := m.Called(payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WebhookEvent), args.Error(1)
}
