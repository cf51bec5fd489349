package service

import (
	"context"
	"time"

	"marketplace-backend/internal/errors"
	"marketplace-backend/internal/model"
	"marketplace-backend/internal/repository/interfaces"
	"marketplace-backend/internal/util"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SweepService 超时扫描
// 预留窗口过期、发货确认超时、评价窗口结束三类超时都由周期扫描驱动。
// 扫描只是又一个普通的转换请求方，同样走状态机的条件更新，
// 和并发用户动作竞争时输掉就跳过，绝不绕过状态机
type SweepService struct {
	orderRepo         interfaces.OrderRepository
	orderService      *OrderService
	holdWindow        time.Duration
	autoDeliverAfter  time.Duration
	autoCompleteAfter time.Duration
}

func NewSweepService(
	orderRepo interfaces.OrderRepository,
	orderService *OrderService,
	holdWindow, autoDeliverAfter, autoCompleteAfter time.Duration,
) *SweepService {
	return &SweepService{
		orderRepo:         orderRepo,
		orderService:      orderService,
		holdWindow:        holdWindow,
		autoDeliverAfter:  autoDeliverAfter,
		autoCompleteAfter: autoCompleteAfter,
	}
}

// RunOnce 执行一轮扫描，三类超时并发处理
func (s *SweepService) RunOnce(ctx context.Context) error {
	g, _ := errgroup.WithContext(ctx)
	g.Go(s.expireHolds)
	g.Go(s.autoDeliver)
	g.Go(s.autoComplete)
	return g.Wait()
}

// expireHolds 取消超过预留窗口仍未支付的订单并释放商品
func (s *SweepService) expireHolds() error {
	cutoff := time.Now().Add(-s.holdWindow)
	orders, err := s.orderRepo.ListPendingCreatedBefore(cutoff)
	if err != nil {
		util.Logger.Error("查询过期待支付订单失败", zap.Error(err))
		return err
	}

	for _, order := range orders {
		if err := s.orderService.SystemCancel(order); err != nil {
			s.logSkip("预留过期取消", order, err)
			continue
		}
		util.Logger.Info("预留窗口过期，订单已取消",
			zap.String("order_id", order.ID))
	}
	return nil
}

// autoDeliver 发货后超过确认窗口无买家动作，自动转为已送达
func (s *SweepService) autoDeliver() error {
	cutoff := time.Now().Add(-s.autoDeliverAfter)
	orders, err := s.orderRepo.ListShippedBefore(cutoff)
	if err != nil {
		util.Logger.Error("查询超时未确认收货订单失败", zap.Error(err))
		return err
	}

	for _, order := range orders {
		if err := s.orderService.AutoDeliver(order); err != nil {
			s.logSkip("自动确认收货", order, err)
			continue
		}
		util.Logger.Info("确认窗口结束，订单自动转为已送达",
			zap.String("order_id", order.ID))
	}
	return nil
}

// autoComplete 送达后评价窗口结束且无争议，自动完成
func (s *SweepService) autoComplete() error {
	cutoff := time.Now().Add(-s.autoCompleteAfter)
	orders, err := s.orderRepo.ListDeliveredBefore(cutoff)
	if err != nil {
		util.Logger.Error("查询超时未完成订单失败", zap.Error(err))
		return err
	}

	for _, order := range orders {
		if err := s.orderService.AutoComplete(order); err != nil {
			s.logSkip("自动完成", order, err)
			continue
		}
		util.Logger.Info("评价窗口结束，订单自动完成",
			zap.String("order_id", order.ID))
	}
	return nil
}

func (s *SweepService) logSkip(action string, order *model.Order, err error) {
	// 与并发动作竞争输掉（状态已变化）是正常情况，降级为 debug
	if errors.Is(err, errors.ErrStaleOrderState) || errors.Is(err, errors.ErrInvalidTransition) {
		util.Logger.Debug("扫描转换未命中，跳过",
			zap.String("action", action),
			zap.String("order_id", order.ID))
		return
	}
	util.Logger.Error("扫描转换失败",
		zap.String("action", action),
		zap.String("order_id", order.ID),
		zap.Error(err))
}
