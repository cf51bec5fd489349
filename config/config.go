package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

// Config 结构体用于存储应用程序的配置信息
type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	JWTSecret string
	LogLevel  string

	// 支付网关配置
	GatewayAPIBase       string
	GatewaySecretKey     string
	GatewayWebhookSecret string
	GatewayMaxRetries    int
	WebhookTolerance     time.Duration

	// 订单策略参数（均为可配置项，不写死在代码里）
	HoldWindow        time.Duration // 结账商品预留窗口
	AutoDeliverAfter  time.Duration // 发货后无买家确认，自动转为已送达
	AutoCompleteAfter time.Duration // 送达后评价窗口结束，自动完成
	SweepInterval     time.Duration // 超时扫描周期
	ShippingFee       int64         // 固定运费（分）

	// 通知配置
	KafkaBrokers []string
	KafkaTopic   string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string

	// 回调报文归档配置
	ArchiveBackend   string // local | s3 | gcs
	LocalStoragePath string
	S3Region         string
	S3Bucket         string
	GCSProjectID     string
	GCSBucketName    string
	GCSCredentials   string

	FrontendURL string
	Debug       bool // 是否开启调试模式
}

// AppConfig 是全局配置变量
var AppConfig Config

// Init 函数用于初始化配置
func Init() {
	// 加载 .env 文件
	err := godotenv.Load()
	if err != nil {
		log.Printf("警告：无法加载 .env 文件: %v", err)
	}

	// 从环境变量中读取配置
	AppConfig = Config{
		DBHost:     getEnv("DB_HOST", ""),
		DBPort:     getEnv("DB_PORT", ""),
		DBUser:     getEnv("DB_USER", ""),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),
		LogLevel:  getEnv("LOG_LEVEL", "info"),

		GatewayAPIBase:       getEnv("GATEWAY_API_BASE", "https://api.stripe.com"),
		GatewaySecretKey:     getEnv("GATEWAY_SECRET_KEY", ""),
		GatewayWebhookSecret: getEnv("GATEWAY_WEBHOOK_SECRET", ""),
		GatewayMaxRetries:    getEnvAsInt("GATEWAY_MAX_RETRIES", 3),
		WebhookTolerance:     getEnvAsDuration("WEBHOOK_TOLERANCE", 5*time.Minute),

		HoldWindow:        getEnvAsDuration("HOLD_WINDOW", 30*time.Minute),
		AutoDeliverAfter:  getEnvAsDuration("AUTO_DELIVER_AFTER", 14*24*time.Hour),
		AutoCompleteAfter: getEnvAsDuration("AUTO_COMPLETE_AFTER", 7*24*time.Hour),
		SweepInterval:     getEnvAsDuration("SWEEP_INTERVAL", 1*time.Minute),
		ShippingFee:       getEnvAsInt64("SHIPPING_FEE", 500),

		KafkaBrokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "order-events"),
		SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 465),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		ArchiveBackend:   getEnv("ARCHIVE_BACKEND", "local"),
		LocalStoragePath: getEnv("LOCAL_STORAGE_PATH", "./archive"),
		S3Region:         getEnv("S3_REGION", "us-west-2"),
		S3Bucket:         getEnv("S3_BUCKET", ""),
		GCSProjectID:     getEnv("GCS_PROJECT_ID", ""),
		GCSBucketName:    getEnv("GCS_BUCKET_NAME", ""),
		GCSCredentials:   getEnv("GCS_CREDENTIALS_FILE", ""),

		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		Debug:       getEnvAsBool("DEBUG", true),
	}

	validateConfig()

	if AppConfig.Debug {
		gin.SetMode(gin.DebugMode)
		log.Println("应用程序运行在调试模式")
	} else {
		gin.SetMode(gin.ReleaseMode)
		log.Println("应用程序运行在生产模式")
	}

	log.Printf("配置加载完成。数据库：%s:%s", AppConfig.DBHost, AppConfig.DBPort)
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultVal int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	valStr := getEnv(key, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	valStr := getEnv(key, "")
	if val, err := time.ParseDuration(valStr); err == nil {
		return val
	}
	return defaultVal
}

func validateConfig() {
	if AppConfig.DBHost == "" || AppConfig.DBPort == "" || AppConfig.DBUser == "" || AppConfig.DBPassword == "" || AppConfig.DBName == "" {
		log.Fatal("错误：数据库配置不完整")
	}
	if AppConfig.JWTSecret == "" {
		log.Fatal("错误：JWT密钥未设置")
	}
	if AppConfig.GatewaySecretKey == "" || AppConfig.GatewayWebhookSecret == "" {
		log.Fatal("错误：支付网关配置不完整")
	}
}
