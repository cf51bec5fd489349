package review

import (
	"net/http"

	"marketplace-backend/internal/errors"
	"marketplace-backend/internal/service"

	"github.com/gin-gonic/gin"
)

// ReviewHandler 处理交易评价相关的请求
type ReviewHandler struct {
	reviewService *service.ReviewService
}

func NewReviewHandler(reviewService *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService}
}

// SubmitReview 提交订单评价
func (h *ReviewHandler) SubmitReview(c *gin.Context) {
	orderID := c.Param("id")

	var input struct {
		Rating  int    `json:"rating" binding:"required,min=1,max=5"`
		Comment string `json:"comment" binding:"max=1000"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		errors.HandleError(c, errors.New(errors.ErrInvalidRating, "评分必须在 1 到 5 之间"))
		return
	}

	userID, _ := c.Get("user_id")
	review, err := h.reviewService.SubmitReview(orderID, userID.(int), input.Rating, input.Comment)
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "Review submitted",
		"data":    review,
	})
}

// GetEligibility 查询当前用户对订单的评价资格
func (h *ReviewHandler) GetEligibility(c *gin.Context) {
	orderID := c.Param("id")
	userID, _ := c.Get("user_id")

	eligible, err := h.reviewService.CanReview(orderID, userID.(int))
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": gin.H{"eligible": eligible},
	})
}

// GetReview 查询当前用户对订单的评价
func (h *ReviewHandler) GetReview(c *gin.Context) {
	orderID := c.Param("id")
	userID, _ := c.Get("user_id")

	review, err := h.reviewService.GetReview(orderID, userID.(int))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	if review == nil {
		errors.HandleError(c, errors.New(errors.ErrResourceNotFound, "评价不存在"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": review,
	})
}
