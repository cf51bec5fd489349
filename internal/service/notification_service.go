package service

import (
	"crypto/tls"
	"fmt"
	"time"

	"marketplace-backend/config"
	"marketplace-backend/internal/events"
	"marketplace-backend/internal/model"
	"marketplace-backend/internal/repository/interfaces"
	"marketplace-backend/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/mail.v2"
)

// EventPublisher 订单事件发布接口
type EventPublisher interface {
	PublishOrderStatusChanged(event events.OrderStatusChangedEvent) error
}

// NotificationService 通知分发器
// 消费订单状态变更：向事件总线发布事件、给买卖双方发邮件。
// 全部异步执行，失败只记日志，绝不阻塞或回滚状态转换
type NotificationService struct {
	publisher EventPublisher
	userRepo  interfaces.UserRepository
	smtpHost  string
	smtpPort  int
	username  string
	password  string
}

func NewNotificationService(publisher EventPublisher, userRepo interfaces.UserRepository) *NotificationService {
	return &NotificationService{
		publisher: publisher,
		userRepo:  userRepo,
		smtpHost:  config.AppConfig.SMTPHost,
		smtpPort:  config.AppConfig.SMTPPort,
		username:  config.AppConfig.SMTPUsername,
		password:  config.AppConfig.SMTPPassword,
	}
}

// NotifyStatusChange 分发一次状态变更通知
func (s *NotificationService) NotifyStatusChange(order *model.Order, from, to model.OrderStatus) {
	event := events.OrderStatusChangedEvent{
		EventID:     uuid.New().String(),
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		BuyerID:     order.BuyerID,
		SellerID:    order.SellerID,
		FromStatus:  string(from),
		ToStatus:    string(to),
		TotalAmount: order.TotalAmount,
		Currency:    order.Currency,
		Timestamp:   time.Now(),
	}

	if s.publisher != nil {
		go func() {
			if err := s.publisher.PublishOrderStatusChanged(event); err != nil {
				util.Logger.Error("发布订单状态事件失败",
					zap.Error(err),
					zap.String("order_id", order.ID))
			}
		}()
	}

	s.sendStatusEmails(order, to)
}

func (s *NotificationService) sendStatusEmails(order *model.Order, to model.OrderStatus) {
	switch to {
	case model.OrderStatusPaid:
		s.emailUser(order.SellerID, "买家已付款",
			fmt.Sprintf("订单 %s 已完成支付，请尽快发货。", order.OrderNumber))
		s.emailUser(order.BuyerID, "支付成功",
			fmt.Sprintf("您的订单 %s 已支付成功，等待卖家发货。", order.OrderNumber))
	case model.OrderStatusShipped:
		s.emailUser(order.BuyerID, "订单已发货",
			fmt.Sprintf("订单 %s 已发货，运单号：%s。", order.OrderNumber, order.TrackingNumber))
	case model.OrderStatusDelivered:
		s.emailUser(order.SellerID, "买家已确认收货",
			fmt.Sprintf("订单 %s 买家已确认收货。", order.OrderNumber))
	case model.OrderStatusDisputed:
		body := fmt.Sprintf("订单 %s 产生争议，请等待管理员处理。", order.OrderNumber)
		s.emailUser(order.BuyerID, "订单争议", body)
		s.emailUser(order.SellerID, "订单争议", body)
	case model.OrderStatusCompleted:
		s.emailUser(order.SellerID, "交易完成",
			fmt.Sprintf("订单 %s 已完成。", order.OrderNumber))
	case model.OrderStatusCancelled:
		s.emailUser(order.BuyerID, "订单已取消",
			fmt.Sprintf("订单 %s 已取消。", order.OrderNumber))
	}
}

func (s *NotificationService) emailUser(userID int, subject, body string) {
	go func() {
		user, err := s.userRepo.FindByID(userID)
		if err != nil || user == nil {
			util.Logger.Error("查询通知收件人失败",
				zap.Error(err),
				zap.Int("user_id", userID))
			return
		}
		if err := s.sendEmail(user.Email, subject, body); err != nil {
			util.Logger.Error("异步发送邮件失败",
				zap.Error(err),
				zap.String("to", user.Email))
		}
	}()
}

func (s *NotificationService) sendEmail(to, subject, body string) error {
	if s.username == "" {
		util.Logger.Debug("SMTP 未配置，跳过邮件通知", zap.String("to", to))
		return nil
	}

	m := mail.NewMessage()
	m.SetHeader("From", s.username)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := mail.NewDialer(s.smtpHost, s.smtpPort, s.username, s.password)
	d.Timeout = 20 * time.Second
	d.SSL = true
	d.TLSConfig = &tls.Config{ServerName: s.smtpHost}

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("发送邮件失败: %w", err)
	}

	util.Logger.Info("通知邮件已发送",
		zap.String("to", to),
		zap.String("subject", subject))
	return nil
}
