package service

import (
	"fmt"

	"marketplace-backend/internal/errors"
	"marketplace-backend/internal/model"
	"marketplace-backend/internal/repository/interfaces"
	"marketplace-backend/internal/storage"
	"marketplace-backend/internal/util"

	"go.uber.org/zap"
)

// WebhookVerifier 回调验签与解析接口，便于测试替换网关客户端
type WebhookVerifier interface {
	VerifyWebhookSignature(payload []byte, sigHeader string) error
	ParseEvent(payload []byte) (*model.WebhookEvent, error)
}

// WebhookService 回调对账器
// 消费支付网关的异步事件：验签、按 event_id 去重、驱动订单状态机。
// 网关可能重复投递、乱序投递，这里保证重复事件无副作用、
// 过期事件不会让订单状态回退
type WebhookService struct {
	gateway      WebhookVerifier
	paymentRepo  interfaces.PaymentRepository
	orderRepo    interfaces.OrderRepository
	orderService *OrderService
	archive      storage.Archive
}

func NewWebhookService(
	gateway WebhookVerifier,
	paymentRepo interfaces.PaymentRepository,
	orderRepo interfaces.OrderRepository,
	orderService *OrderService,
	archive storage.Archive,
) *WebhookService {
	return &WebhookService{
		gateway:      gateway,
		paymentRepo:  paymentRepo,
		orderRepo:    orderRepo,
		orderService: orderService,
		archive:      archive,
	}
}

// Handle 处理一次回调投递
// 只有签名失败返回错误（对应 4xx，网关按约定不再重投）；
// 其余情况一律确认接收：格式错误的报文记录后丢弃，
// 重复事件是无副作用的成功，找不到订单的事件记录后丢弃
func (s *WebhookService) Handle(payload []byte, sigHeader string) error {
	if err := s.gateway.VerifyWebhookSignature(payload, sigHeader); err != nil {
		util.Logger.Warn("回调验签失败，事件被丢弃", zap.Error(err))
		return err
	}

	event, err := s.gateway.ParseEvent(payload)
	if err != nil {
		// 已验签但格式错误：记录后确认接收，避免网关无限重投
		util.Logger.Error("回调报文格式错误，已记录并丢弃", zap.Error(err))
		return nil
	}

	// 已验签的原始报文异步归档，供对账审计
	if s.archive != nil {
		go func(eventID string, raw []byte) {
			if _, err := s.archive.Save(fmt.Sprintf("webhooks/%s.json", eventID), raw); err != nil {
				util.Logger.Error("回调报文归档失败", zap.Error(err), zap.String("event_id", eventID))
			}
		}(event.EventID, payload)
	}

	// 去重账本预检：重复投递直接确认，无任何副作用
	processed, err := s.paymentRepo.IsEventProcessed(event.EventID)
	if err != nil {
		return errors.Wrap(errors.ErrDatabase, "查询去重账本失败", err)
	}
	if processed {
		util.Logger.Info("事件已处理过，跳过",
			zap.String("event_id", event.EventID),
			zap.String("event_type", event.Type))
		return nil
	}

	util.Logger.Info("开始处理回调事件",
		zap.String("event_id", event.EventID),
		zap.String("event_type", event.Type),
		zap.String("intent_id", event.IntentID))

	switch event.Type {
	case model.EventTypePaymentSucceeded:
		err = s.handlePaymentSucceeded(event)
	case model.EventTypePaymentFailed, model.EventTypePaymentCanceled:
		err = s.handlePaymentFailed(event)
	default:
		util.Logger.Info("未识别的事件类型，已确认接收", zap.String("event_type", event.Type))
	}
	if err != nil {
		// 事件尚未入账，网关重投会重新应用；
		// 状态转换是条件更新，已生效的部分重放时自然落空
		return err
	}

	// 应用成功后才写入去重账本，中途失败的投递不占用 event_id
	if _, err := s.paymentRepo.MarkEventProcessed(event); err != nil {
		return errors.Wrap(errors.ErrDatabase, "写入去重账本失败", err)
	}
	return nil
}

func (s *WebhookService) findOrder(event *model.WebhookEvent) (*model.Order, error) {
	if event.OrderID != "" {
		order, err := s.orderRepo.GetOrderByID(event.OrderID)
		if err != nil || order != nil {
			return order, err
		}
	}
	return s.orderRepo.GetOrderByPaymentIntentID(event.IntentID)
}

func (s *WebhookService) handlePaymentSucceeded(event *model.WebhookEvent) error {
	order, err := s.findOrder(event)
	if err != nil {
		return errors.Wrap(errors.ErrDatabase, "查询订单失败", err)
	}
	if order == nil {
		// 已取消或过期的结账也可能收到支付事件，丢弃即可，
		// 返回错误只会让网关无休止地重投
		util.Logger.Warn("支付成功事件找不到对应订单，已丢弃",
			zap.String("event_id", event.EventID),
			zap.String("intent_id", event.IntentID))
		return nil
	}

	if err := s.paymentRepo.UpdateIntentStatus(event.IntentID, model.IntentStatusSucceeded); err != nil {
		return errors.Wrap(errors.ErrDatabase, "更新支付意向状态失败", err)
	}

	if order.Status != model.OrderStatusPending {
		// 订单已前进到后续状态，说明事件重复或乱序，不回退
		util.Logger.Info("订单已越过 pending，忽略支付成功事件",
			zap.String("order_id", order.ID),
			zap.String("status", string(order.Status)))
		return nil
	}

	if err := s.orderService.MarkPaid(order); err != nil {
		if errors.Is(err, errors.ErrStaleOrderState) {
			// 并发参与者抢先转换了状态，事件效果已达成或已无意义
			util.Logger.Warn("支付成功事件应用时状态已变化，跳过",
				zap.String("order_id", order.ID))
			return nil
		}
		return err
	}

	util.Logger.Info("订单支付完成",
		zap.String("order_id", order.ID),
		zap.String("intent_id", event.IntentID),
		zap.Int64("total_amount", order.TotalAmount))
	return nil
}

func (s *WebhookService) handlePaymentFailed(event *model.WebhookEvent) error {
	order, err := s.findOrder(event)
	if err != nil {
		return errors.Wrap(errors.ErrDatabase, "查询订单失败", err)
	}
	if order == nil {
		util.Logger.Warn("支付失败事件找不到对应订单，已丢弃",
			zap.String("event_id", event.EventID),
			zap.String("intent_id", event.IntentID))
		return nil
	}

	if err := s.paymentRepo.UpdateIntentStatus(event.IntentID, model.IntentStatusFailed); err != nil {
		return errors.Wrap(errors.ErrDatabase, "更新支付意向状态失败", err)
	}

	if order.Status != model.OrderStatusPending {
		// 支付失败事件晚于支付成功事件到达：订单只向前走，拒绝过期转换
		util.Logger.Warn("支付失败事件乱序到达，订单状态不回退",
			zap.String("order_id", order.ID),
			zap.String("status", string(order.Status)),
			zap.String("event_id", event.EventID))
		return nil
	}

	if err := s.orderService.SystemCancel(order); err != nil {
		if errors.Is(err, errors.ErrStaleOrderState) {
			util.Logger.Warn("支付失败事件应用时状态已变化，跳过",
				zap.String("order_id", order.ID))
			return nil
		}
		return err
	}

	util.Logger.Info("订单因支付失败被取消",
		zap.String("order_id", order.ID),
		zap.String("intent_id", event.IntentID))
	return nil
}
