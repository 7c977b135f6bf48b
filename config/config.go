package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	API       APIConfig
	Cart      CartConfig
	Session   SessionConfig
	Storage   StorageConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	CORS      CORSConfig
	Payment   PaymentConfig
	Kafka     KafkaConfig
	S3        S3Config
	Scheduler SchedulerConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
	LogFormat   string
}

// APIConfig points at the remote storefront API that owns products,
// orders, auth and payment intents.
type APIConfig struct {
	BaseURL    string
	ServiceKey string
	Timeout    time.Duration
}

type CartConfig struct {
	SnapshotTTL         time.Duration
	StockCheckTimeout   time.Duration
	RefreshConcurrency  int
	RefreshBeforeSubmit bool
	IdleEviction        time.Duration
}

type SessionConfig struct {
	Secret       string
	CookieName   string
	CookieDomain string
	Secure       bool
}

type StorageConfig struct {
	Driver string // memory, redis, postgres
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type PaymentConfig struct {
	KakaoPay KakaoPayConfig
	Card     CardConfig
	// Storefront pages the shopper lands on after a provider return.
	SuccessPageURL string
	CartPageURL    string
}

type KakaoPayConfig struct {
	Enabled     bool
	AdminKey    string
	CID         string
	BaseURL     string
	ApprovalURL string
	FailURL     string
	CancelURL   string
}

type CardConfig struct {
	Enabled    bool
	SuccessURL string
	FailURL    string
}

type KafkaConfig struct {
	Brokers         []string
	PaymentTopic    string
	ConsumerGroupID string
	ConsumerEnabled bool
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	BaseURL         string // CloudFront or S3 direct URL
}

type SchedulerConfig struct {
	CleanupSpec string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8081"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogFormat:   getEnv("LOG_FORMAT", "console"),
		},
		API: APIConfig{
			BaseURL:    getEnv("STOREFRONT_API_URL", "http://localhost:8080/api/v1"),
			ServiceKey: getEnv("STOREFRONT_API_KEY", ""),
			Timeout:    parseDuration(getEnv("STOREFRONT_API_TIMEOUT", "10s"), 10*time.Second),
		},
		Cart: CartConfig{
			SnapshotTTL:         parseDuration(getEnv("CART_SNAPSHOT_TTL", "720h"), 30*24*time.Hour),
			StockCheckTimeout:   parseDuration(getEnv("CART_STOCK_CHECK_TIMEOUT", "5s"), 5*time.Second),
			RefreshConcurrency:  parseInt(getEnv("CART_REFRESH_CONCURRENCY", "4"), 4),
			RefreshBeforeSubmit: parseBool(getEnv("CART_REFRESH_BEFORE_SUBMIT", "true"), true),
			IdleEviction:        parseDuration(getEnv("CART_IDLE_EVICTION", "30m"), 30*time.Minute),
		},
		Session: SessionConfig{
			Secret:       getEnv("SESSION_SECRET", "change-me-session-secret"),
			CookieName:   getEnv("SESSION_COOKIE_NAME", "cart_session"),
			CookieDomain: getEnv("SESSION_COOKIE_DOMAIN", ""),
			Secure:       parseBool(getEnv("SESSION_COOKIE_SECURE", "false"), false),
		},
		Storage: StorageConfig{
			Driver: getEnv("CART_STORAGE_DRIVER", "redis"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "1234"),
			DBName:   getEnv("DB_NAME", "storefront"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0"), 0),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		Payment: PaymentConfig{
			KakaoPay: KakaoPayConfig{
				Enabled:     parseBool(getEnv("KAKAOPAY_ENABLED", "true"), true),
				AdminKey:    getEnv("KAKAOPAY_ADMIN_KEY", ""),
				CID:         getEnv("KAKAOPAY_CID", "TC0ONETIME"),
				BaseURL:     getEnv("KAKAOPAY_BASE_URL", "https://open-api.kakaopay.com/online/v1/payment"),
				ApprovalURL: getEnv("KAKAOPAY_APPROVAL_URL", "http://localhost:8081/api/v1/payments/kakaopay/success"),
				FailURL:     getEnv("KAKAOPAY_FAIL_URL", "http://localhost:8081/api/v1/payments/kakaopay/fail"),
				CancelURL:   getEnv("KAKAOPAY_CANCEL_URL", "http://localhost:8081/api/v1/payments/kakaopay/cancel"),
			},
			Card: CardConfig{
				Enabled:    parseBool(getEnv("CARD_PAYMENT_ENABLED", "true"), true),
				SuccessURL: getEnv("CARD_SUCCESS_URL", "http://localhost:8081/api/v1/payments/card/success"),
				FailURL:    getEnv("CARD_FAIL_URL", "http://localhost:8081/api/v1/payments/card/fail"),
			},
			SuccessPageURL: getEnv("CHECKOUT_SUCCESS_PAGE", "http://localhost:3000/checkout/success"),
			CartPageURL:    getEnv("CHECKOUT_CART_PAGE", "http://localhost:3000/cart"),
		},
		Kafka: KafkaConfig{
			Brokers:         parseSlice(getEnv("KAFKA_BROKERS", "localhost:9092")),
			PaymentTopic:    getEnv("KAFKA_PAYMENT_TOPIC", "payment-confirmed"),
			ConsumerGroupID: getEnv("KAFKA_CONSUMER_GROUP", "storefront-cart"),
			ConsumerEnabled: parseBool(getEnv("KAFKA_CONSUMER_ENABLED", "false"), false),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "ap-northeast-2"),
			Bucket:          getEnv("AWS_S3_BUCKET", "udonggeum-product-images"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			BaseURL:         getEnv("AWS_S3_BASE_URL", ""),
		},
		Scheduler: SchedulerConfig{
			CleanupSpec: getEnv("CART_CLEANUP_SPEC", "*/10 * * * *"),
		},
	}

	return config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, fallback)
		return fallback
	}
	return duration
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("Invalid integer %s, using default %d", s, fallback)
		return fallback
	}
	return n
}

func parseBool(s string, fallback bool) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return fallback
	}
	return b
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
