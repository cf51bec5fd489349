package order

import (
	"net/http"

	"marketplace-backend/internal/errors"
	"marketplace-backend/internal/model"
	"marketplace-backend/internal/service"
	"marketplace-backend/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OrderHandler 处理订单动作相关的请求
// 所有动作都带明确的操作者身份，由状态机做角色校验
type OrderHandler struct {
	orderService *service.OrderService
}

func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService}
}

// GetOrder 查询订单详情
func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID := c.Param("id")
	userID, _ := c.Get("user_id")

	order, err := h.orderService.GetOrder(orderID, userID.(int))
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": order,
	})
}

// ListOrders 查询当前用户的订单（买入和卖出）
func (h *OrderHandler) ListOrders(c *gin.Context) {
	userID, _ := c.Get("user_id")

	orders, err := h.orderService.GetOrdersByUser(userID.(int))
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": orders,
	})
}

// MarkShipped 卖家标记发货
func (h *OrderHandler) MarkShipped(c *gin.Context) {
	orderID := c.Param("id")

	var input struct {
		TrackingNumber string `json:"tracking_number" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		errors.HandleError(c, errors.New(errors.ErrMissingTrackingNumber, "发货必须提供运单号"))
		return
	}

	userID, _ := c.Get("user_id")
	order, err := h.orderService.MarkShipped(orderID, userID.(int), input.TrackingNumber)
	if err != nil {
		util.Logger.Warn("标记发货失败",
			zap.Error(err),
			zap.String("order_id", orderID),
			zap.Int("user_id", userID.(int)))
		errors.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "Order marked as shipped",
		"data":    order,
	})
}

// MarkReceived 买家确认收货
func (h *OrderHandler) MarkReceived(c *gin.Context) {
	orderID := c.Param("id")
	userID, _ := c.Get("user_id")

	order, err := h.orderService.MarkReceived(orderID, userID.(int))
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "Order marked as received",
		"data":    order,
	})
}

// ConfirmCompletion 买家确认完成
func (h *OrderHandler) ConfirmCompletion(c *gin.Context) {
	orderID := c.Param("id")
	userID, _ := c.Get("user_id")

	order, err := h.orderService.ConfirmCompletion(orderID, userID.(int))
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "Order completed",
		"data":    order,
	})
}

// Cancel 买家取消订单（仅限支付前）
func (h *OrderHandler) Cancel(c *gin.Context) {
	orderID := c.Param("id")
	userID, _ := c.Get("user_id")

	order, err := h.orderService.CancelByBuyer(orderID, userID.(int))
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "Order cancelled",
		"data":    order,
	})
}

// RaiseDispute 发起争议
func (h *OrderHandler) RaiseDispute(c *gin.Context) {
	orderID := c.Param("id")

	var input struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "Invalid input", err))
		return
	}

	userID, _ := c.Get("user_id")
	order, err := h.orderService.RaiseDispute(orderID, userID.(int))
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	util.Logger.Info("争议已发起",
		zap.String("order_id", orderID),
		zap.Int("actor_id", userID.(int)),
		zap.String("reason", input.Reason))

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "Dispute raised",
		"data":    order,
	})
}

// ResolveDispute 管理员裁决争议
func (h *OrderHandler) ResolveDispute(c *gin.Context) {
	orderID := c.Param("id")

	var input struct {
		Outcome string `json:"outcome" binding:"required,oneof=completed cancelled"`
		Comment string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "Invalid input", err))
		return
	}

	userID, _ := c.Get("user_id")
	order, err := h.orderService.ResolveDispute(orderID, userID.(int), model.OrderStatus(input.Outcome))
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "Dispute resolved",
		"data":    order,
	})
}
