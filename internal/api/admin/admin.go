package admin

import (
	"net/http"

	"marketplace-backend/internal/errors"
	"marketplace-backend/internal/middleware"
	"marketplace-backend/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminHandler 管理后台接口
type AdminHandler struct {
	adminService *service.AdminService
	errorMonitor *middleware.ErrorMonitor
}

func NewAdminHandler(adminService *service.AdminService, errorMonitor *middleware.ErrorMonitor) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		errorMonitor: errorMonitor,
	}
}

// GetSystemStats 系统统计
func (h *AdminHandler) GetSystemStats(c *gin.Context) {
	stats, err := h.adminService.GetSystemStats()
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": stats,
	})
}

// GetDisputedOrders 待裁决的争议订单列表
func (h *AdminHandler) GetDisputedOrders(c *gin.Context) {
	orders, err := h.adminService.GetDisputedOrders()
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": orders,
	})
}

// GetErrorStats 错误统计：各错误码次数与按路径汇总
func (h *AdminHandler) GetErrorStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": gin.H{
			"counts":    h.errorMonitor.GetErrorCounts(),
			"analytics": h.errorMonitor.GetStats(),
		},
	})
}
