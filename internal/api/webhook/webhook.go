package webhook

import (
	"io"
	"net/http"

	"marketplace-backend/internal/errors"
	"marketplace-backend/internal/service"
	"marketplace-backend/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WebhookHandler 支付网关回调入口
type WebhookHandler struct {
	webhookService *service.WebhookService
}

func NewWebhookHandler(webhookService *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookService}
}

// HandlePaymentWebhook POST /webhooks/payment
// 只有签名失败返回 4xx（网关按约定不重投 4xx）；
// 其余情况包括重复投递一律返回 200 确认接收
func (h *WebhookHandler) HandlePaymentWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		util.Logger.Error("读取回调报文失败", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read body"})
		return
	}

	sigHeader := c.GetHeader("Gateway-Signature")
	if sigHeader == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing signature"})
		return
	}

	if err := h.webhookService.Handle(payload, sigHeader); err != nil {
		if errors.Is(err, errors.ErrSignature) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
			return
		}
		// 内部错误返回 5xx，网关会按自己的策略重投，去重账本保证重投安全
		util.Logger.Error("回调处理失败", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
