package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"marketplace-backend/internal/errors"
	"marketplace-backend/internal/model"
	"marketplace-backend/internal/util"

	"go.uber.org/zap"
)

// Client 支付网关协议适配器
// 只做两件事：按幂等键创建支付意向、验证回调签名，网关内部实现不做任何假设
type Client struct {
	apiBase       string
	secretKey     string
	webhookSecret string
	tolerance     time.Duration
	httpClient    *http.Client
}

func NewClient(apiBase, secretKey, webhookSecret string, tolerance time.Duration) *Client {
	return &Client{
		apiBase:       strings.TrimRight(apiBase, "/"),
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
		tolerance:     tolerance,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
	}
}

// GatewayError 网关请求错误，5xx 和网络错误可重试
type GatewayError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway error: %v", e.Err)
	}
	return fmt.Sprintf("gateway error: status %d: %s", e.StatusCode, e.Message)
}

func (e *GatewayError) Retryable() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500
}

type intentResponse struct {
	ID           string `json:"id"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
	ClientSecret string `json:"client_secret"`
}

// CreateIntent 按幂等键创建支付意向
// 同一幂等键的重复请求由网关保证返回同一意向，不会二次扣款
func (c *Client) CreateIntent(ctx context.Context, amount int64, currency, idempotencyKey string, metadata map[string]string) (*model.PaymentIntent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amount, 10))
	form.Set("currency", strings.ToLower(currency))
	for k, v := range metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBase+"/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Idempotency-Key", idempotencyKey)

	util.Logger.Info("请求创建支付意向",
		zap.Int64("amount", amount),
		zap.String("currency", currency),
		zap.String("idempotency_key", idempotencyKey))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		util.Logger.Error("支付网关请求失败", zap.Error(err))
		return nil, &GatewayError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &GatewayError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		util.Logger.Error("支付网关返回错误",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)))
		return nil, &GatewayError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	var ir intentResponse
	if err := json.Unmarshal(body, &ir); err != nil {
		return nil, &GatewayError{StatusCode: resp.StatusCode, Message: "malformed response", Err: err}
	}

	util.Logger.Info("支付意向创建成功",
		zap.String("intent_id", ir.ID),
		zap.String("status", ir.Status))

	return &model.PaymentIntent{
		ID:             ir.ID,
		Amount:         ir.Amount,
		Currency:       strings.ToUpper(ir.Currency),
		Status:         model.PaymentIntentStatus(ir.Status),
		IdempotencyKey: idempotencyKey,
		ClientSecret:   ir.ClientSecret,
	}, nil
}

// VerifyWebhookSignature 验证回调签名
// 签名头格式: t=<unix时间戳>,v1=<hmac-sha256十六进制>
// 签名内容为 "<时间戳>.<原始报文>"，超出容忍窗口的时间戳一律拒绝
func (c *Client) VerifyWebhookSignature(payload []byte, sigHeader string) error {
	var timestamp int64
	var signatures []string

	for _, part := range strings.Split(sigHeader, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return errors.New(errors.ErrSignature, "签名时间戳格式错误")
			}
			timestamp = ts
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}

	if timestamp == 0 || len(signatures) == 0 {
		return errors.New(errors.ErrSignature, "签名头不完整")
	}

	age := time.Since(time.Unix(timestamp, 0))
	if age > c.tolerance || age < -c.tolerance {
		util.Logger.Warn("回调时间戳超出容忍窗口",
			zap.Int64("timestamp", timestamp),
			zap.Duration("age", age))
		return errors.New(errors.ErrSignature, "签名时间戳过期")
	}

	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}

	util.Logger.Warn("回调签名验证失败")
	return errors.New(errors.ErrSignature, "签名验证失败")
}

type eventPayload struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID       string            `json:"id"`
			Status   string            `json:"status"`
			Metadata map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// ParseEvent 解析已通过签名验证的回调报文
// 报文格式错误返回普通 error，由调用方记录日志后确认接收（避免网关无限重投）
func (c *Client) ParseEvent(payload []byte) (*model.WebhookEvent, error) {
	var ep eventPayload
	if err := json.Unmarshal(payload, &ep); err != nil {
		return nil, fmt.Errorf("malformed event payload: %w", err)
	}
	if ep.ID == "" || ep.Type == "" {
		return nil, fmt.Errorf("event missing id or type")
	}

	return &model.WebhookEvent{
		EventID:    ep.ID,
		Type:       ep.Type,
		IntentID:   ep.Data.Object.ID,
		OrderID:    ep.Data.Object.Metadata["order_id"],
		Payload:    payload,
		ReceivedAt: time.Now(),
	}, nil
}
