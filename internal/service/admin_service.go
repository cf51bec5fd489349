package service

import (
	"marketplace-backend/internal/errors"
	"marketplace-backend/internal/model"
	"marketplace-backend/internal/repository/interfaces"
	"marketplace-backend/internal/util"

	"go.uber.org/zap"
)

// AdminService 管理员视图：系统统计与争议列表
type AdminService struct {
	userRepo    interfaces.UserRepository
	productRepo interfaces.ProductRepository
	orderRepo   interfaces.OrderRepository
}

func NewAdminService(
	userRepo interfaces.UserRepository,
	productRepo interfaces.ProductRepository,
	orderRepo interfaces.OrderRepository,
) *AdminService {
	return &AdminService{
		userRepo:    userRepo,
		productRepo: productRepo,
		orderRepo:   orderRepo,
	}
}

// GetSystemStats 获取系统统计数据
func (s *AdminService) GetSystemStats() (*model.SystemStats, error) {
	stats := &model.SystemStats{}
	var err error

	if stats.TotalUsers, err = s.userRepo.Count(); err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "统计用户数失败", err)
	}
	if stats.TotalProducts, err = s.productRepo.Count(); err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "统计商品数失败", err)
	}
	if stats.TotalOrders, err = s.orderRepo.Count(); err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "统计订单数失败", err)
	}
	if stats.TotalAmount, err = s.orderRepo.SumPaidAmount(); err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "统计交易金额失败", err)
	}
	if stats.PendingOrders, err = s.orderRepo.CountByStatus(model.OrderStatusPending); err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "统计待支付订单失败", err)
	}
	if stats.DisputedOrders, err = s.orderRepo.CountByStatus(model.OrderStatusDisputed); err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "统计争议订单失败", err)
	}
	if stats.CompletedOrders, err = s.orderRepo.CountByStatus(model.OrderStatusCompleted); err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "统计完成订单失败", err)
	}

	util.Logger.Info("系统统计查询完成",
		zap.Int("total_orders", stats.TotalOrders),
		zap.Int("disputed_orders", stats.DisputedOrders))
	return stats, nil
}

// GetDisputedOrders 获取待裁决的争议订单列表
func (s *AdminService) GetDisputedOrders() ([]*model.Order, error) {
	orders, err := s.orderRepo.ListByStatus(model.OrderStatusDisputed)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "查询争议订单失败", err)
	}
	return orders, nil
}
