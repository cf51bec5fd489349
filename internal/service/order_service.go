package service

import (
	"marketplace-backend/internal/errors"
	"marketplace-backend/internal/model"
	"marketplace-backend/internal/repository/interfaces"
	"marketplace-backend/internal/util"

	"go.uber.org/zap"
)

// Notifier 订单状态变更的出站通知接口
// 通知失败不影响状态转换本身，不参与事务路径
type Notifier interface {
	NotifyStatusChange(order *model.Order, from, to model.OrderStatus)
}

// OrderService 订单状态机
// 所有状态转换都以 (order_id, expected_status) 做原子条件更新：
// 转换表之外的转换返回 InvalidTransition，条件更新未命中返回 StaleOrderState，
// 调用方需要重读订单后再决定是否重试
type OrderService struct {
	orderRepo   interfaces.OrderRepository
	productRepo interfaces.ProductRepository
	userRepo    interfaces.UserRepository
	notifier    Notifier
}

func NewOrderService(
	orderRepo interfaces.OrderRepository,
	productRepo interfaces.ProductRepository,
	userRepo interfaces.UserRepository,
	notifier Notifier,
) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		notifier:    notifier,
	}
}

// applyTransition 状态机核心：校验转换表后做条件更新
func (s *OrderService) applyTransition(order *model.Order, to model.OrderStatus, trackingNumber *string) error {
	from := order.Status
	if !from.CanTransitionTo(to) {
		util.Logger.Warn("非法状态转换被拒绝",
			zap.String("order_id", order.ID),
			zap.String("from", string(from)),
			zap.String("to", string(to)))
		return errors.NewInvalidTransition(string(from), string(to))
	}

	ok, err := s.orderRepo.TransitionStatus(order.ID, from, to, trackingNumber)
	if err != nil {
		return errors.Wrap(errors.ErrDatabase, "状态转换执行失败", err)
	}
	if !ok {
		// 并发参与者已抢先修改状态，调用方需重读后重试
		return errors.New(errors.ErrStaleOrderState, "订单状态已变化，请重新读取后重试")
	}

	order.Status = to
	if trackingNumber != nil {
		order.TrackingNumber = *trackingNumber
	}
	s.notify(order, from, to)
	return nil
}

func (s *OrderService) notify(order *model.Order, from, to model.OrderStatus) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyStatusChange(order, from, to)
}

func (s *OrderService) getOrder(orderID string) (*model.Order, error) {
	order, err := s.orderRepo.GetOrderByID(orderID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "查询订单失败", err)
	}
	if order == nil {
		return nil, errors.New(errors.ErrOrderNotFound, "订单不存在")
	}
	return order, nil
}

// GetOrder 查询订单，仅买家、卖家和管理员可见
func (s *OrderService) GetOrder(orderID string, userID int) (*model.Order, error) {
	order, err := s.getOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != userID && order.SellerID != userID {
		admin, err := s.isAdmin(userID)
		if err != nil {
			return nil, err
		}
		if !admin {
			return nil, errors.New(errors.ErrForbidden, "无权查看该订单")
		}
	}
	return order, nil
}

func (s *OrderService) GetOrdersByUser(userID int) ([]*model.Order, error) {
	orders, err := s.orderRepo.GetOrdersByUser(userID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "查询订单列表失败", err)
	}
	return orders, nil
}

func (s *OrderService) isAdmin(userID int) (bool, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return false, errors.Wrap(errors.ErrDatabase, "查询用户失败", err)
	}
	return user != nil && user.Role == "admin", nil
}

// MarkShipped 卖家发货，必须提供运单号
func (s *OrderService) MarkShipped(orderID string, sellerID int, trackingNumber string) (*model.Order, error) {
	order, err := s.getOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order.SellerID != sellerID {
		util.Logger.Warn("非卖家尝试发货",
			zap.String("order_id", orderID),
			zap.Int("actor_id", sellerID),
			zap.Int("seller_id", order.SellerID))
		return nil, errors.New(errors.ErrForbidden, "只有卖家可以标记发货")
	}
	if trackingNumber == "" {
		return nil, errors.New(errors.ErrMissingTrackingNumber, "发货必须提供运单号")
	}

	if err := s.applyTransition(order, model.OrderStatusShipped, &trackingNumber); err != nil {
		return nil, err
	}
	return order, nil
}

// MarkReceived 买家确认收货
func (s *OrderService) MarkReceived(orderID string, buyerID int) (*model.Order, error) {
	order, err := s.getOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != buyerID {
		util.Logger.Warn("非买家尝试确认收货",
			zap.String("order_id", orderID),
			zap.Int("actor_id", buyerID))
		return nil, errors.New(errors.ErrForbidden, "只有买家可以确认收货")
	}

	if err := s.applyTransition(order, model.OrderStatusDelivered, nil); err != nil {
		return nil, err
	}
	return order, nil
}

// ConfirmCompletion 买家主动确认交易完成
func (s *OrderService) ConfirmCompletion(orderID string, buyerID int) (*model.Order, error) {
	order, err := s.getOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != buyerID {
		return nil, errors.New(errors.ErrForbidden, "只有买家可以确认完成")
	}

	if err := s.applyTransition(order, model.OrderStatusCompleted, nil); err != nil {
		return nil, err
	}
	return order, nil
}

// CancelByBuyer 买家取消结账，仅限支付捕获前
// 支付成功后的取消必须走争议/退款路径
func (s *OrderService) CancelByBuyer(orderID string, buyerID int) (*model.Order, error) {
	order, err := s.getOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != buyerID {
		return nil, errors.New(errors.ErrForbidden, "只有买家可以取消订单")
	}

	if order.Status != model.OrderStatusPending {
		if order.Status == model.OrderStatusCancelled {
			return nil, errors.NewInvalidTransition(string(order.Status), string(model.OrderStatusCancelled))
		}
		return nil, errors.New(errors.ErrAlreadyPaid, "订单已支付，请走争议或退款流程")
	}

	if err := s.applyTransition(order, model.OrderStatusCancelled, nil); err != nil {
		return nil, err
	}
	s.releaseItems(order)
	return order, nil
}

// RaiseDispute 发起争议，买家、卖家或管理员均可
func (s *OrderService) RaiseDispute(orderID string, actorID int) (*model.Order, error) {
	order, err := s.getOrder(orderID)
	if err != nil {
		return nil, err
	}

	if order.BuyerID != actorID && order.SellerID != actorID {
		admin, err := s.isAdmin(actorID)
		if err != nil {
			return nil, err
		}
		if !admin {
			return nil, errors.New(errors.ErrForbidden, "只有交易双方或管理员可以发起争议")
		}
	}

	if err := s.applyTransition(order, model.OrderStatusDisputed, nil); err != nil {
		return nil, err
	}
	return order, nil
}

// ResolveDispute 管理员裁决争议，结果只能是 completed 或 cancelled
func (s *OrderService) ResolveDispute(orderID string, adminID int, outcome model.OrderStatus) (*model.Order, error) {
	admin, err := s.isAdmin(adminID)
	if err != nil {
		return nil, err
	}
	if !admin {
		return nil, errors.New(errors.ErrForbidden, "只有管理员可以裁决争议")
	}
	if outcome != model.OrderStatusCompleted && outcome != model.OrderStatusCancelled {
		return nil, errors.New(errors.ErrValidation, "裁决结果只能是 completed 或 cancelled")
	}

	order, err := s.getOrder(orderID)
	if err != nil {
		return nil, err
	}

	if err := s.applyTransition(order, outcome, nil); err != nil {
		return nil, err
	}

	util.Logger.Info("争议裁决完成",
		zap.String("order_id", orderID),
		zap.Int("admin_id", adminID),
		zap.String("outcome", string(outcome)))
	return order, nil
}

// MarkPaid 对账器专用：支付成功事件驱动 pending -> paid
func (s *OrderService) MarkPaid(order *model.Order) error {
	if err := s.applyTransition(order, model.OrderStatusPaid, nil); err != nil {
		return err
	}
	// 支付成功后商品正式售出
	for _, productID := range order.ItemIDs {
		if err := s.productRepo.MarkSold(productID); err != nil {
			util.Logger.Error("标记商品售出失败",
				zap.Error(err),
				zap.String("order_id", order.ID),
				zap.String("product_id", productID))
		}
	}
	return nil
}

// SystemCancel 系统取消（支付失败事件或预留窗口过期），释放商品预留
func (s *OrderService) SystemCancel(order *model.Order) error {
	if err := s.applyTransition(order, model.OrderStatusCancelled, nil); err != nil {
		return err
	}
	s.releaseItems(order)
	return nil
}

// AutoDeliver 发货后超过确认窗口无买家动作，自动转为已送达
func (s *OrderService) AutoDeliver(order *model.Order) error {
	return s.applyTransition(order, model.OrderStatusDelivered, nil)
}

// AutoComplete 送达后评价窗口结束且无争议，自动完成
func (s *OrderService) AutoComplete(order *model.Order) error {
	return s.applyTransition(order, model.OrderStatusCompleted, nil)
}

func (s *OrderService) releaseItems(order *model.Order) {
	for _, productID := range order.ItemIDs {
		if err := s.productRepo.Release(productID); err != nil {
			util.Logger.Error("释放商品预留失败",
				zap.Error(err),
				zap.String("order_id", order.ID),
				zap.String("product_id", productID))
		}
	}
}
