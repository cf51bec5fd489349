package checkout

import (
	"net/http"

	"marketplace-backend/internal/errors"
	"marketplace-backend/internal/service"
	"marketplace-backend/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CheckoutHandler 处理结账相关的请求
type CheckoutHandler struct {
	checkoutService *service.CheckoutService
}

func NewCheckoutHandler(checkoutService *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkoutService}
}

// StartCheckout 创建结账会话
// 返回 pending 订单和客户端密钥，浏览器用密钥直接向支付网关完成支付验证
func (h *CheckoutHandler) StartCheckout(c *gin.Context) {
	var req service.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Logger.Error("无效的结账请求", zap.Error(err))
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "Invalid input", err))
		return
	}

	buyerID, _ := c.Get("user_id")
	order, clientSecret, err := h.checkoutService.StartCheckout(c.Request.Context(), buyerID.(int), req)
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": gin.H{
			"order":         order,
			"client_secret": clientSecret,
		},
	})
}
