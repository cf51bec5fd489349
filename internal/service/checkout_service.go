package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"marketplace-backend/internal/common"
	"marketplace-backend/internal/errors"
	"marketplace-backend/internal/model"
	"marketplace-backend/internal/repository/interfaces"
	"marketplace-backend/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// minChargeAmount 网关允许的最小扣款金额（分）
const minChargeAmount = 50

// IntentCreator 支付意向创建接口，便于测试替换网关客户端
type IntentCreator interface {
	CreateIntent(ctx context.Context, amount int64, currency, idempotencyKey string, metadata map[string]string) (*model.PaymentIntent, error)
}

// CheckoutService 结账会话管理
// 负责从商品选择构建待支付订单：校验可售性、计算总价、
// 预留商品、按幂等键向网关申请支付意向
type CheckoutService struct {
	orderRepo   interfaces.OrderRepository
	productRepo interfaces.ProductRepository
	paymentRepo interfaces.PaymentRepository
	gateway     IntentCreator
	maxRetries  int
	holdWindow  time.Duration
	shippingFee int64
}

func NewCheckoutService(
	orderRepo interfaces.OrderRepository,
	productRepo interfaces.ProductRepository,
	paymentRepo interfaces.PaymentRepository,
	gateway IntentCreator,
	maxRetries int,
	holdWindow time.Duration,
	shippingFee int64,
) *CheckoutService {
	return &CheckoutService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		paymentRepo: paymentRepo,
		gateway:     gateway,
		maxRetries:  maxRetries,
		holdWindow:  holdWindow,
		shippingFee: shippingFee,
	}
}

// CheckoutRequest 结账请求
// Currency 是客户端展示价格时使用的币种，填了就必须和商品币种一致
type CheckoutRequest struct {
	ItemIDs         []string `json:"item_ids" binding:"required,min=1"`
	ShippingAddress string   `json:"shipping_address" binding:"required"`
	DiscountCode    string   `json:"discount_code"`
	Currency        string   `json:"currency" binding:"omitempty,currency_code"`
	AttemptNonce    string   `json:"attempt_nonce" binding:"required"`
}

// StartCheckout 开始结账会话
// 成功返回 pending 订单和客户端密钥（浏览器用它直接向网关完成支付验证）；
// 任何一步失败都不留下订单记录，已预留的商品全部回滚
func (s *CheckoutService) StartCheckout(ctx context.Context, buyerID int, req CheckoutRequest) (*model.Order, string, error) {
	util.Logger.Info("开始结账会话",
		zap.Int("buyer_id", buyerID),
		zap.Strings("item_ids", req.ItemIDs))

	// 加载并校验商品
	products := make([]*model.Product, 0, len(req.ItemIDs))
	for _, itemID := range req.ItemIDs {
		product, err := s.productRepo.GetProductByID(itemID)
		if err != nil {
			return nil, "", errors.Wrap(errors.ErrDatabase, "查询商品失败", err)
		}
		if product == nil {
			return nil, "", errors.New(errors.ErrResourceNotFound, "商品不存在")
		}
		if product.Status == model.ProductStatusSold {
			return nil, "", errors.New(errors.ErrItemNoLongerAvailable, "商品已售出")
		}
		products = append(products, product)
	}

	sellerID := products[0].SellerID
	currency := products[0].Currency
	var itemTotal int64
	for _, p := range products {
		if p.SellerID != sellerID {
			return nil, "", errors.New(errors.ErrValidation, "捆绑订单的商品必须来自同一卖家")
		}
		if p.Currency != currency {
			return nil, "", errors.New(errors.ErrValidation, "捆绑订单的商品币种不一致")
		}
		itemTotal += p.Price
	}

	if buyerID == sellerID {
		return nil, "", errors.New(errors.ErrValidation, "不能购买自己的商品")
	}

	if req.Currency != "" && req.Currency != currency {
		return nil, "", errors.New(errors.ErrValidation, "声明的币种与商品币种不一致")
	}

	// 计算总价：商品 + 运费 - 折扣
	total := itemTotal + s.shippingFee
	if req.DiscountCode != "" {
		discount, err := s.productRepo.GetDiscountByCode(req.DiscountCode)
		if err != nil {
			return nil, "", errors.Wrap(errors.ErrDatabase, "查询折扣码失败", err)
		}
		if discount == nil || !discount.Active ||
			(discount.ExpiresAt != nil && discount.ExpiresAt.Before(time.Now())) {
			return nil, "", errors.New(errors.ErrInvalidDiscount, "折扣码无效或已过期")
		}
		// 折扣把总价压到最小扣款金额以下时拒绝，绝不产生零元或负数扣款
		if total-discount.AmountOff < minChargeAmount {
			return nil, "", errors.New(errors.ErrInvalidDiscount, "折扣码不适用于该订单金额")
		}
		total -= discount.AmountOff
	}

	if total <= 0 {
		return nil, "", errors.New(errors.ErrValidation, "订单金额必须大于零")
	}

	// 预留商品，防止单件商品被并发下单；任何一件失败则全部回滚
	reservedUntil := time.Now().Add(s.holdWindow)
	reserved := make([]string, 0, len(products))
	for _, p := range products {
		ok, err := s.productRepo.Reserve(p.ID, reservedUntil)
		if err != nil || !ok {
			s.releaseReserved(reserved)
			if err != nil {
				return nil, "", errors.Wrap(errors.ErrDatabase, "预留商品失败", err)
			}
			return nil, "", errors.New(errors.ErrItemNoLongerAvailable, "商品已被其他买家预留")
		}
		reserved = append(reserved, p.ID)
	}

	orderID := uuid.New().String()
	idempotencyKey := buildIdempotencyKey(buyerID, req.ItemIDs, req.AttemptNonce)

	// 按幂等键创建支付意向，网关不可用时指数退避重试
	var intent *model.PaymentIntent
	err := common.WithRetry(ctx, func() error {
		var gerr error
		intent, gerr = s.gateway.CreateIntent(ctx, total, currency, idempotencyKey, map[string]string{
			"order_id": orderID,
			"buyer_id": fmt.Sprintf("%d", buyerID),
		})
		return gerr
	}, s.maxRetries)
	if err != nil {
		util.Logger.Error("支付网关不可用，结账中止",
			zap.Error(err),
			zap.Int("buyer_id", buyerID))
		s.releaseReserved(reserved)
		return nil, "", errors.Wrap(errors.ErrPaymentGatewayUnavailable, "支付服务暂时不可用，请稍后重试", err)
	}

	// 同一幂等键的重试请求会拿到同一个支付意向：
	// 如果该意向已经绑定过订单，直接返回已有订单，绝不重复建单
	existing, err := s.orderRepo.GetOrderByPaymentIntentID(intent.ID)
	if err != nil {
		s.releaseReserved(reserved)
		return nil, "", errors.Wrap(errors.ErrDatabase, "查询订单失败", err)
	}
	if existing != nil {
		// 幂等键相同意味着商品集合相同，新取得的预留继续为原订单保管商品；
		// 支付成功会标记售出，支付失败或超时扫描会释放
		util.Logger.Info("结账重试命中已有订单",
			zap.String("order_id", existing.ID),
			zap.String("intent_id", intent.ID))
		return existing, intent.ClientSecret, nil
	}

	if err := s.paymentRepo.CreateIntentRecord(intent); err != nil {
		s.releaseReserved(reserved)
		return nil, "", errors.Wrap(errors.ErrDatabase, "保存支付意向失败", err)
	}

	order := &model.Order{
		ID:              orderID,
		BuyerID:         buyerID,
		SellerID:        sellerID,
		ItemIDs:         req.ItemIDs,
		Status:          model.OrderStatusPending,
		TotalAmount:     total,
		Currency:        currency,
		PaymentIntentID: intent.ID,
		ShippingAddress: req.ShippingAddress,
	}

	if err := s.orderRepo.CreateOrder(order); err != nil {
		s.releaseReserved(reserved)
		return nil, "", errors.Wrap(errors.ErrDatabase, "创建订单失败", err)
	}

	util.Logger.Info("结账会话创建成功",
		zap.String("order_id", order.ID),
		zap.String("intent_id", intent.ID),
		zap.Int64("total_amount", total),
		zap.String("currency", currency))

	return order, intent.ClientSecret, nil
}

func (s *CheckoutService) releaseReserved(productIDs []string) {
	for _, id := range productIDs {
		if err := s.productRepo.Release(id); err != nil {
			util.Logger.Error("回滚商品预留失败", zap.Error(err), zap.String("product_id", id))
		}
	}
}

// buildIdempotencyKey 由 (买家, 商品集合, 尝试序号) 确定性地派生幂等键
// 同一组参数的重试请求落到同一个键上，不会造成重复扣款
func buildIdempotencyKey(buyerID int, itemIDs []string, nonce string) string {
	sorted := make([]string, len(itemIDs))
	copy(sorted, itemIDs)
	sort.Strings(sorted)
	h := sha256.Sum256([]byte(fmt.Sprintf("%d|%s|%s", buyerID, strings.Join(sorted, ","), nonce)))
	return hex.EncodeToString(h[:])
}
