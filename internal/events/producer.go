package events

import (
	"context"
	"encoding/json"
	"time"

	"marketplace-backend/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type KafkaProducer struct {
	writer *kafka.Writer
}

func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	return &KafkaProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// PublishOrderStatusChanged 发布订单状态变更事件
// 以订单ID为分区键，保证同一订单的事件有序
func (p *KafkaProducer) PublishOrderStatusChanged(event OrderStatusChangedEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.OrderID),
		Value: value,
	})
	if err != nil {
		util.Logger.Error("发布订单事件失败",
			zap.Error(err),
			zap.String("order_id", event.OrderID),
			zap.String("to_status", event.ToStatus))
		return err
	}

	util.Logger.Info("订单事件已发布",
		zap.String("event_id", event.EventID),
		zap.String("order_id", event.OrderID),
		zap.String("from_status", event.FromStatus),
		zap.String("to_status", event.ToStatus))
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
