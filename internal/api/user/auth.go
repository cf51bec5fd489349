package user

import (
	"net/http"
	"strings"

	"marketplace-backend/internal/errors"
	"marketplace-backend/internal/model"
	"marketplace-backend/internal/service"
	"marketplace-backend/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthHandler 处理注册登录相关的请求
type AuthHandler struct {
	userService *service.UserService
}

func NewAuthHandler(userService *service.UserService) *AuthHandler {
	return &AuthHandler{userService}
}

// Register 用户注册
func (h *AuthHandler) Register(c *gin.Context) {
	var input struct {
		Username string `json:"username" binding:"required,min=3,max=32"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		util.Logger.Error("无效的注册数据", zap.Error(err))
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "Invalid input", err))
		return
	}

	user := &model.User{
		Username: input.Username,
		Email:    input.Email,
	}

	if err := h.userService.Register(user, input.Password); err != nil {
		errors.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "Registration successful",
		"data":    gin.H{"user_id": user.ID},
	})
}

// Login 用户登录
func (h *AuthHandler) Login(c *gin.Context) {
	var input struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "Invalid input", err))
		return
	}

	token, user, err := h.userService.Login(input.Username, input.Password)
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": gin.H{
			"token": token,
			"user":  user,
		},
	})
}

// Logout 登出，令牌加入黑名单
func (h *AuthHandler) Logout(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		h.userService.BlacklistToken(parts[1])
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "Logged out",
	})
}

// RefreshToken 刷新令牌
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		errors.HandleError(c, errors.New(errors.ErrUnauthorized, "无效的认证格式"))
		return
	}

	newToken, err := util.RefreshToken(parts[1])
	if err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrInvalidToken, "刷新令牌失败", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": gin.H{"token": newToken},
	})
}
