package model

import "time"

// ProductStatus 商品状态
type ProductStatus string

const (
	ProductStatusAvailable ProductStatus = "available"
	ProductStatusReserved  ProductStatus = "reserved"
	ProductStatusSold      ProductStatus = "sold"
)

// Product 商品模型（单件商品，售出即下架）
// ReservedUntil 为结账预留窗口的到期时间，防止同一件商品被并发购买
type Product struct {
	ID            string        `json:"id"`
	SellerID      int           `json:"seller_id"`
	Title         string        `json:"title"`
	Price         int64         `json:"price"` // 最小货币单位（分）
	Currency      string        `json:"currency"`
	Status        ProductStatus `json:"status"`
	ReservedUntil *time.Time    `json:"reserved_until,omitempty"`
	SoldAt        *time.Time    `json:"sold_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Discount 折扣码模型
type Discount struct {
	Code      string     `json:"code"`
	AmountOff int64      `json:"amount_off"` // 最小货币单位（分）
	Active    bool       `json:"active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}
