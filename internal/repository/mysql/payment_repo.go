package mysql

import (
	"database/sql"
	"time"

	"marketplace-backend/internal/model"
	"marketplace-backend/internal/util"

	"go.uber.org/zap"
)

type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db}
}

func (r *PaymentRepository) CreateIntentRecord(intent *model.PaymentIntent) error {
	intent.CreatedAt = time.Now()
	intent.UpdatedAt = intent.CreatedAt

	// 网关按幂等键保证同键请求返回同一意向，重复落库直接忽略
	query := `INSERT IGNORE INTO payment_intents (id, amount, currency, status, idempotency_key, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.Exec(query,
		intent.ID, intent.Amount, intent.Currency, intent.Status,
		intent.IdempotencyKey, intent.CreatedAt, intent.UpdatedAt)
	if err != nil {
		util.Logger.Error("保存支付意向失败", zap.Error(err), zap.String("intent_id", intent.ID))
		return err
	}

	util.Logger.Info("支付意向已保存",
		zap.String("intent_id", intent.ID),
		zap.Int64("amount", intent.Amount),
		zap.String("currency", intent.Currency))
	return nil
}

func (r *PaymentRepository) GetIntentByID(id string) (*model.PaymentIntent, error) {
	query := `SELECT id, amount, currency, status, idempotency_key, created_at, updated_at
			  FROM payment_intents WHERE id = ?`

	intent := &model.PaymentIntent{}
	err := r.db.QueryRow(query, id).Scan(
		&intent.ID, &intent.Amount, &intent.Currency, &intent.Status,
		&intent.IdempotencyKey, &intent.CreatedAt, &intent.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return intent, nil
}

func (r *PaymentRepository) GetIntentByIdempotencyKey(key string) (*model.PaymentIntent, error) {
	query := `SELECT id, amount, currency, status, idempotency_key, created_at, updated_at
			  FROM payment_intents WHERE idempotency_key = ?`

	intent := &model.PaymentIntent{}
	err := r.db.QueryRow(query, key).Scan(
		&intent.ID, &intent.Amount, &intent.Currency, &intent.Status,
		&intent.IdempotencyKey, &intent.CreatedAt, &intent.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return intent, nil
}

func (r *PaymentRepository) UpdateIntentStatus(id string, status model.PaymentIntentStatus) error {
	query := `UPDATE payment_intents SET status = ?, updated_at = NOW() WHERE id = ?`
	_, err := r.db.Exec(query, status, id)
	if err != nil {
		util.Logger.Error("更新支付意向状态失败",
			zap.Error(err),
			zap.String("intent_id", id),
			zap.String("status", string(status)))
	}
	return err
}

// IsEventProcessed 去重账本预检
func (r *PaymentRepository) IsEventProcessed(eventID string) (bool, error) {
	var exists int
	err := r.db.QueryRow(`SELECT 1 FROM webhook_events WHERE event_id = ?`, eventID).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		util.Logger.Error("查询去重账本失败", zap.Error(err), zap.String("event_id", eventID))
		return false, err
	}
	return true, nil
}

// MarkEventProcessed 去重账本写入，在事件应用成功后调用
// event_id 为唯一键，INSERT IGNORE 未插入行说明事件已处理过
func (r *PaymentRepository) MarkEventProcessed(event *model.WebhookEvent) (bool, error) {
	query := `INSERT IGNORE INTO webhook_events (event_id, event_type, intent_id, payload, received_at)
			  VALUES (?, ?, ?, ?, ?)`

	result, err := r.db.Exec(query,
		event.EventID, event.Type, event.IntentID, event.Payload, event.ReceivedAt)
	if err != nil {
		util.Logger.Error("写入去重账本失败", zap.Error(err), zap.String("event_id", event.EventID))
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		util.Logger.Info("事件已处理过，跳过",
			zap.String("event_id", event.EventID),
			zap.String("event_type", event.Type))
		return false, nil
	}
	return true, nil
}
