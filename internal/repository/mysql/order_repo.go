package mysql

import (
	"database/sql"
	"fmt"
	"time"

	"marketplace-backend/internal/model"
	"marketplace-backend/internal/util"

	"go.uber.org/zap"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db}
}

func (r *OrderRepository) CreateOrder(order *model.Order) error {
	util.Logger.Info("开始创建订单",
		zap.String("order_id", order.ID),
		zap.Int("buyer_id", order.BuyerID),
		zap.Int("seller_id", order.SellerID),
		zap.Int64("total_amount", order.TotalAmount),
		zap.String("currency", order.Currency))

	// 验证必要字段
	if order.BuyerID == 0 || order.SellerID == 0 || order.TotalAmount <= 0 || len(order.ItemIDs) == 0 {
		util.Logger.Error("订单参数验证失败",
			zap.Int("buyer_id", order.BuyerID),
			zap.Int("seller_id", order.SellerID),
			zap.Int64("total_amount", order.TotalAmount))
		return fmt.Errorf("invalid order parameters")
	}

	tx, err := r.db.Begin()
	if err != nil {
		util.Logger.Error("开始事务失败", zap.Error(err))
		return err
	}
	defer tx.Rollback()

	if order.Status == "" {
		order.Status = model.OrderStatusPending
	}
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	order.OrderNumber = generateOrderNumber(order.CreatedAt)

	query := `INSERT INTO orders (id, order_number, buyer_id, seller_id, status, total_amount, currency,
				payment_intent_id, shipping_address, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = tx.Exec(query,
		order.ID, order.OrderNumber, order.BuyerID, order.SellerID,
		order.Status, order.TotalAmount, order.Currency,
		order.PaymentIntentID, order.ShippingAddress,
		order.CreatedAt, order.UpdatedAt)
	if err != nil {
		util.Logger.Error("插入订单记录失败", zap.Error(err))
		return fmt.Errorf("failed to insert order: %w", err)
	}

	// 插入订单条目，保留顺序
	itemQuery := `INSERT INTO order_items (order_id, product_id, position) VALUES (?, ?, ?)`
	for i, productID := range order.ItemIDs {
		if _, err = tx.Exec(itemQuery, order.ID, productID, i); err != nil {
			util.Logger.Error("插入订单条目失败",
				zap.Error(err),
				zap.String("product_id", productID))
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		util.Logger.Error("提交事务失败", zap.Error(err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	util.Logger.Info("订单创建成功",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("status", string(order.Status)))
	return nil
}

// generateOrderNumber 生成订单编号
// 格式: ORD-年份-纳秒时间戳后8位，例如: ORD-2025-38274651
func generateOrderNumber(t time.Time) string {
	return fmt.Sprintf("ORD-%d-%08d", t.Year(), t.UnixNano()%100000000)
}

// TransitionStatus 以 (order_id, expected_status) 为键做原子的状态转换
// 未命中（当前状态已变化）返回 false，由调用方决定重读或拒绝
func (r *OrderRepository) TransitionStatus(orderID string, from, to model.OrderStatus, trackingNumber *string) (bool, error) {
	set := "status = ?, updated_at = NOW()"
	args := []interface{}{to}

	// 时间戳字段随目标状态设置；状态只向前推进，因此每个字段只会被写一次
	switch to {
	case model.OrderStatusShipped:
		set += ", shipped_at = NOW(), tracking_number = ?"
		args = append(args, trackingNumber)
	case model.OrderStatusDelivered:
		set += ", delivered_at = NOW()"
	case model.OrderStatusCompleted:
		set += ", completed_at = NOW()"
	}

	query := fmt.Sprintf("UPDATE orders SET %s WHERE id = ? AND status = ?", set)
	args = append(args, orderID, from)

	result, err := r.db.Exec(query, args...)
	if err != nil {
		util.Logger.Error("执行状态转换失败",
			zap.Error(err),
			zap.String("order_id", orderID),
			zap.String("from", string(from)),
			zap.String("to", string(to)))
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		util.Logger.Warn("状态转换未命中，订单状态已被并发修改",
			zap.String("order_id", orderID),
			zap.String("expected", string(from)),
			zap.String("target", string(to)))
		return false, nil
	}

	util.Logger.Info("订单状态转换成功",
		zap.String("order_id", orderID),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return true, nil
}

const orderColumns = `o.id, o.order_number, o.buyer_id, o.seller_id, o.status, o.total_amount, o.currency,
		COALESCE(o.payment_intent_id, ''), COALESCE(o.tracking_number, ''), COALESCE(o.shipping_address, ''),
		o.shipped_at, o.delivered_at, o.completed_at, o.created_at, o.updated_at`

func (r *OrderRepository) scanOrder(row *sql.Row) (*model.Order, error) {
	order := &model.Order{}
	err := row.Scan(
		&order.ID, &order.OrderNumber, &order.BuyerID, &order.SellerID,
		&order.Status, &order.TotalAmount, &order.Currency,
		&order.PaymentIntentID, &order.TrackingNumber, &order.ShippingAddress,
		&order.ShippedAt, &order.DeliveredAt, &order.CompletedAt,
		&order.CreatedAt, &order.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *OrderRepository) loadItems(order *model.Order) error {
	rows, err := r.db.Query(
		`SELECT product_id FROM order_items WHERE order_id = ? ORDER BY position`, order.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var productID string
		if err := rows.Scan(&productID); err != nil {
			return err
		}
		order.ItemIDs = append(order.ItemIDs, productID)
	}
	return rows.Err()
}

func (r *OrderRepository) GetOrderByID(id string) (*model.Order, error) {
	query := fmt.Sprintf("SELECT %s FROM orders o WHERE o.id = ?", orderColumns)
	order, err := r.scanOrder(r.db.QueryRow(query, id))
	if err != nil || order == nil {
		return order, err
	}
	if err := r.loadItems(order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *OrderRepository) GetOrderByPaymentIntentID(intentID string) (*model.Order, error) {
	query := fmt.Sprintf("SELECT %s FROM orders o WHERE o.payment_intent_id = ?", orderColumns)
	order, err := r.scanOrder(r.db.QueryRow(query, intentID))
	if err != nil || order == nil {
		return order, err
	}
	if err := r.loadItems(order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *OrderRepository) queryOrders(query string, args ...interface{}) ([]*model.Order, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		util.Logger.Error("查询订单列表失败", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var orders []*model.Order
	for rows.Next() {
		order := &model.Order{}
		err := rows.Scan(
			&order.ID, &order.OrderNumber, &order.BuyerID, &order.SellerID,
			&order.Status, &order.TotalAmount, &order.Currency,
			&order.PaymentIntentID, &order.TrackingNumber, &order.ShippingAddress,
			&order.ShippedAt, &order.DeliveredAt, &order.CompletedAt,
			&order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// 列表查询同样带出订单条目，取消/释放路径依赖 ItemIDs
	for _, order := range orders {
		if err := r.loadItems(order); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *OrderRepository) GetOrdersByUser(userID int) ([]*model.Order, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM orders o WHERE o.buyer_id = ? OR o.seller_id = ? ORDER BY o.created_at DESC", orderColumns)
	return r.queryOrders(query, userID, userID)
}

func (r *OrderRepository) ListPendingCreatedBefore(cutoff time.Time) ([]*model.Order, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM orders o WHERE o.status = 'pending' AND o.created_at < ?", orderColumns)
	return r.queryOrders(query, cutoff)
}

func (r *OrderRepository) ListShippedBefore(cutoff time.Time) ([]*model.Order, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM orders o WHERE o.status = 'shipped' AND o.shipped_at < ?", orderColumns)
	return r.queryOrders(query, cutoff)
}

func (r *OrderRepository) ListDeliveredBefore(cutoff time.Time) ([]*model.Order, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM orders o WHERE o.status = 'delivered' AND o.delivered_at < ?", orderColumns)
	return r.queryOrders(query, cutoff)
}

func (r *OrderRepository) ListByStatus(status model.OrderStatus) ([]*model.Order, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM orders o WHERE o.status = ? ORDER BY o.created_at DESC", orderColumns)
	return r.queryOrders(query, status)
}

func (r *OrderRepository) CountByStatus(status model.OrderStatus) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM orders WHERE status = ?`, status).Scan(&count)
	return count, err
}

func (r *OrderRepository) SumPaidAmount() (int64, error) {
	var total sql.NullInt64
	err := r.db.QueryRow(
		`SELECT SUM(total_amount) FROM orders WHERE status NOT IN ('pending', 'cancelled')`).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Int64, nil
}

func (r *OrderRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM orders`).Scan(&count)
	return count, err
}
