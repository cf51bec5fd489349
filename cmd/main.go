package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace-backend/config"
	"marketplace-backend/internal/api/admin"
	"marketplace-backend/internal/api/checkout"
	"marketplace-backend/internal/api/order"
	"marketplace-backend/internal/api/review"
	"marketplace-backend/internal/api/user"
	"marketplace-backend/internal/api/webhook"
	"marketplace-backend/internal/events"
	"marketplace-backend/internal/gateway"
	"marketplace-backend/internal/middleware"
	"marketplace-backend/internal/repository/mysql"
	"marketplace-backend/internal/service"
	"marketplace-backend/internal/storage"
	"marketplace-backend/internal/util"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

func main() {
	// 初始化配置
	config.Init()

	// 初始化日志
	util.InitLogger(config.AppConfig.LogLevel)
	defer util.Logger.Sync()

	util.Logger.Info("应用程序启动")

	// 设置数据库连接字符串
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		config.AppConfig.DBUser,
		config.AppConfig.DBPassword,
		config.AppConfig.DBHost,
		config.AppConfig.DBPort,
		config.AppConfig.DBName)

	// 连接数据库
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		util.Logger.Fatal("连接数据库失败", zap.Error(err))
	}
	defer db.Close()

	// 测试数据库连接
	if err = db.Ping(); err != nil {
		util.Logger.Fatal("数据库连接测试失败", zap.Error(err))
	}
	util.Logger.Info("数据库连接成功")

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	util.Logger.Info("数据库连接池配置完成")

	// 注册自定义验证器
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("currency_code", util.ValidateCurrencyCode)
	}

	// 初始化回调报文归档存储
	archive := initArchive()

	// 初始化支付网关客户端
	gatewayClient := gateway.NewClient(
		config.AppConfig.GatewayAPIBase,
		config.AppConfig.GatewaySecretKey,
		config.AppConfig.GatewayWebhookSecret,
		config.AppConfig.WebhookTolerance,
	)

	// 初始化事件总线生产者
	producer := events.NewKafkaProducer(config.AppConfig.KafkaBrokers, config.AppConfig.KafkaTopic)
	defer producer.Close()

	// 初始化存储库、服务和处理器
	userRepo := mysql.NewUserRepository(db)
	productRepo := mysql.NewProductRepository(db)
	orderRepo := mysql.NewOrderRepository(db)
	paymentRepo := mysql.NewPaymentRepository(db)
	reviewRepo := mysql.NewReviewRepository(db)

	userService := service.NewUserService(userRepo)
	authHandler := user.NewAuthHandler(userService)

	notificationService := service.NewNotificationService(producer, userRepo)
	orderService := service.NewOrderService(orderRepo, productRepo, userRepo, notificationService)
	orderHandler := order.NewOrderHandler(orderService)

	checkoutService := service.NewCheckoutService(
		orderRepo,
		productRepo,
		paymentRepo,
		gatewayClient,
		config.AppConfig.GatewayMaxRetries,
		config.AppConfig.HoldWindow,
		config.AppConfig.ShippingFee,
	)
	checkoutHandler := checkout.NewCheckoutHandler(checkoutService)

	webhookService := service.NewWebhookService(gatewayClient, paymentRepo, orderRepo, orderService, archive)
	webhookHandler := webhook.NewWebhookHandler(webhookService)

	reviewService := service.NewReviewService(reviewRepo, orderRepo)
	reviewHandler := review.NewReviewHandler(reviewService)

	adminService := service.NewAdminService(userRepo, productRepo, orderRepo)

	// 初始化错误监控
	errorMonitor := middleware.NewErrorMonitor()
	adminHandler := admin.NewAdminHandler(adminService, errorMonitor)

	// 启动超时扫描：预留过期、发货确认超时、评价窗口结束
	sweepService := service.NewSweepService(
		orderRepo,
		orderService,
		config.AppConfig.HoldWindow,
		config.AppConfig.AutoDeliverAfter,
		config.AppConfig.AutoCompleteAfter,
	)
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go func() {
		ticker := time.NewTicker(config.AppConfig.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				if err := sweepService.RunOnce(sweepCtx); err != nil {
					util.Logger.Error("超时扫描执行失败", zap.Error(err))
				}
			}
		}
	}()

	// 设置 Gin 路由
	r := gin.Default()

	// 添加中间件
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.ErrorMonitorMiddleware(errorMonitor))

	// 配置 CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{config.AppConfig.FrontendURL}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Length",
		"Content-Type",
		"Authorization",
		"Idempotency-Key",
	}
	r.Use(cors.New(corsConfig))

	// 支付网关回调挂在根路径（网关验签，不走用户认证）
	r.POST("/webhooks/payment", webhookHandler.HandlePaymentWebhook)

	// 定义 API 路由
	api := r.Group("/api")
	{
		// 用户相关路由
		api.POST("/register", authHandler.Register)
		api.POST("/login", authHandler.Login)

		// 需要认证的路由
		authorized := api.Group("/")
		authorized.Use(middleware.AuthMiddleware(userService))
		{
			authorized.POST("/logout", authHandler.Logout)
			authorized.POST("/refresh-token", authHandler.RefreshToken)

			// 结账
			authorized.POST("/checkout", checkoutHandler.StartCheckout)

			// 订单生命周期
			authorized.GET("/orders", orderHandler.ListOrders)
			authorized.GET("/orders/:id", orderHandler.GetOrder)
			authorized.POST("/orders/:id/ship", orderHandler.MarkShipped)
			authorized.POST("/orders/:id/receive", orderHandler.MarkReceived)
			authorized.POST("/orders/:id/complete", orderHandler.ConfirmCompletion)
			authorized.POST("/orders/:id/cancel", orderHandler.Cancel)
			authorized.POST("/orders/:id/dispute", orderHandler.RaiseDispute)

			// 评价
			authorized.POST("/orders/:id/review", reviewHandler.SubmitReview)
			authorized.GET("/orders/:id/review", reviewHandler.GetReview)
			authorized.GET("/orders/:id/review/eligible", reviewHandler.GetEligibility)
		}

		// 管理员路由组
		adminRoutes := api.Group("/admin")
		adminRoutes.Use(middleware.AuthMiddleware(userService), middleware.AdminMiddleware(userService))
		{
			adminRoutes.GET("/stats", adminHandler.GetSystemStats)
			adminRoutes.GET("/errors", adminHandler.GetErrorStats)
			adminRoutes.GET("/orders/disputed", adminHandler.GetDisputedOrders)
			adminRoutes.POST("/orders/:id/resolve", orderHandler.ResolveDispute)
		}
	}

	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	// 在一个新的 goroutine 中启动服务器
	go func() {
		util.Logger.Info("服务器正在启动，监听端口 :8080")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			util.Logger.Fatal("启动服务器失败", zap.Error(err))
		}
	}()

	// 等待中断信号以优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	util.Logger.Info("正在关闭服务器...")
	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		util.Logger.Fatal("服务器强制关闭", zap.Error(err))
	}

	util.Logger.Info("服务器已优雅关闭")
}

// initArchive 根据配置选择回调报文归档后端
func initArchive() storage.Archive {
	switch config.AppConfig.ArchiveBackend {
	case "s3":
		archive, err := storage.NewS3Archive(config.AppConfig.S3Region, config.AppConfig.S3Bucket)
		if err != nil {
			util.Logger.Fatal("初始化 S3 归档失败", zap.Error(err))
		}
		return archive
	case "gcs":
		archive, err := storage.NewGCSArchive(config.AppConfig.GCSBucketName, config.AppConfig.GCSCredentials)
		if err != nil {
			util.Logger.Fatal("初始化 GCS 归档失败", zap.Error(err))
		}
		return archive
	default:
		archive, err := storage.NewLocalArchive(config.AppConfig.LocalStoragePath)
		if err != nil {
			util.Logger.Fatal("初始化本地归档失败", zap.Error(err))
		}
		return archive
	}
}
