package checkout

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"marketplace-backend/internal/service"
	"marketplace-backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func init() {
	util.InitLogger("error")
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("currency_code", util.ValidateCurrencyCode)
	}
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewCheckoutHandler(service.NewCheckoutService(nil, nil, nil, nil, 0, 0, 0))

	router := gin.New()
	router.POST("/checkout", func(c *gin.Context) {
		c.Set("user_id", 1)
		handler.StartCheckout(c)
	})
	return router
}

func postCheckout(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("POST", "/checkout", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestStartCheckoutUnknownCurrency 测试不支持的币种代码在绑定层被拒绝
func TestStartCheckoutUnknownCurrency(t *testing.T) {
	router := newTestRouter()

	w := postCheckout(router, `{"item_ids":["item-1"],"shipping_address":"123 Main St","attempt_nonce":"n-1","currency":"ZZZ"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestStartCheckoutMissingNonce 测试缺少重试序号的请求被拒绝
func TestStartCheckoutMissingNonce(t *testing.T) {
	router := newTestRouter()

	w := postCheckout(router, `{"item_ids":["item-1"],"shipping_address":"123 Main St"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
