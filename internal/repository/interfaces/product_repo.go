package interfaces

import (
	"time"

	"marketplace-backend/internal/model"
)

type ProductRepository interface {
	CreateProduct(product *model.Product) error
	GetProductByID(id string) (*model.Product, error)
	// Reserve 条件更新：仅当商品状态为 available 时预留，返回是否成功
	Reserve(productID string, until time.Time) (bool, error)
	// Release 释放预留，仅当商品状态为 reserved 时生效
	Release(productID string) error
	// MarkSold 标记商品售出
	MarkSold(productID string) error
	Count() (int, error)
	GetDiscountByCode(code string) (*model.Discount, error)
}
