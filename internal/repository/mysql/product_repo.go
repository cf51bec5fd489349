package mysql

import (
	"database/sql"
	"time"

	"marketplace-backend/internal/model"
	"marketplace-backend/internal/util"

	"go.uber.org/zap"
)

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db}
}

func (r *ProductRepository) CreateProduct(product *model.Product) error {
	product.CreatedAt = time.Now()
	product.UpdatedAt = product.CreatedAt
	if product.Status == "" {
		product.Status = model.ProductStatusAvailable
	}

	query := `INSERT INTO products (id, seller_id, title, price, currency, status, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.Exec(query,
		product.ID, product.SellerID, product.Title, product.Price,
		product.Currency, product.Status, product.CreatedAt, product.UpdatedAt)
	if err != nil {
		util.Logger.Error("创建商品失败", zap.Error(err), zap.String("product_id", product.ID))
		return err
	}

	util.Logger.Info("商品创建成功",
		zap.String("product_id", product.ID),
		zap.Int("seller_id", product.SellerID),
		zap.Int64("price", product.Price))
	return nil
}

func (r *ProductRepository) GetProductByID(id string) (*model.Product, error) {
	query := `SELECT id, seller_id, title, price, currency, status, reserved_until, sold_at, created_at, updated_at
			  FROM products WHERE id = ?`

	product := &model.Product{}
	err := r.db.QueryRow(query, id).Scan(
		&product.ID, &product.SellerID, &product.Title, &product.Price,
		&product.Currency, &product.Status, &product.ReservedUntil,
		&product.SoldAt, &product.CreatedAt, &product.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		util.Logger.Error("查询商品失败", zap.Error(err), zap.String("product_id", id))
		return nil, err
	}
	return product, nil
}

// Reserve 结账预留：仅当商品可售时转为 reserved，防止同一件商品被并发下单
func (r *ProductRepository) Reserve(productID string, until time.Time) (bool, error) {
	query := `UPDATE products SET status = 'reserved', reserved_until = ?, updated_at = NOW()
			  WHERE id = ? AND status = 'available'`

	result, err := r.db.Exec(query, until, productID)
	if err != nil {
		util.Logger.Error("预留商品失败", zap.Error(err), zap.String("product_id", productID))
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		util.Logger.Warn("商品预留未命中，商品不可售或已被预留",
			zap.String("product_id", productID))
		return false, nil
	}

	util.Logger.Info("商品预留成功",
		zap.String("product_id", productID),
		zap.Time("reserved_until", until))
	return true, nil
}

func (r *ProductRepository) Release(productID string) error {
	query := `UPDATE products SET status = 'available', reserved_until = NULL, updated_at = NOW()
			  WHERE id = ? AND status = 'reserved'`
	_, err := r.db.Exec(query, productID)
	if err != nil {
		util.Logger.Error("释放商品预留失败", zap.Error(err), zap.String("product_id", productID))
		return err
	}
	util.Logger.Info("商品预留已释放", zap.String("product_id", productID))
	return nil
}

func (r *ProductRepository) MarkSold(productID string) error {
	query := `UPDATE products SET status = 'sold', sold_at = NOW(), reserved_until = NULL, updated_at = NOW()
			  WHERE id = ? AND status != 'sold'`
	_, err := r.db.Exec(query, productID)
	if err != nil {
		util.Logger.Error("标记商品售出失败", zap.Error(err), zap.String("product_id", productID))
		return err
	}
	util.Logger.Info("商品已标记为售出", zap.String("product_id", productID))
	return nil
}

func (r *ProductRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM products`).Scan(&count)
	return count, err
}

func (r *ProductRepository) GetDiscountByCode(code string) (*model.Discount, error) {
	query := `SELECT code, amount_off, active, expires_at FROM discount_codes WHERE code = ?`

	discount := &model.Discount{}
	err := r.db.QueryRow(query, code).Scan(
		&discount.Code, &discount.AmountOff, &discount.Active, &discount.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return discount, nil
}
