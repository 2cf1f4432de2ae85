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
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	RateLimit    RateLimitConfig
	Delivery     DeliveryConfig
	Notification NotificationConfig
	Outbox       OutboxConfig
	S3           S3Config
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
	LogLevel    string
	LogFormat   string
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
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret             string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	ClientTTL         time.Duration
}

// DeliveryConfig holds the store's delivery fee settings
type DeliveryConfig struct {
	BaseFee               string // decimal string, e.g. "100"
	BaseDistanceKm        float64
	PerKmFee              string
	FreeDeliveryThreshold string
	MaxDistanceKm         float64
	StoreLatitude         float64
	StoreLongitude        float64
}

// NotificationConfig configures the outbound email relay
type NotificationConfig struct {
	RelayURL   string // empty disables email, websocket push still runs
	APIKey     string
	FromEmail  string
	AdminEmail string
	Timeout    time.Duration
}

// OutboxConfig controls follow-up dispatch after a committed order change
type OutboxConfig struct {
	DispatchTimeout time.Duration
	RetrySchedule   string // cron expression
	MaxAttempts     int
	BatchSize       int
	DedupTTL        time.Duration
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	BaseURL         string // CloudFront or S3 direct URL
	ReportPrefix    string
	ReportSchedule  string // cron expression, empty disables archiving
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", ""),
			LogFormat:   getEnv("LOG_FORMAT", "console"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "1234"),
			DBName:   getEnv("DB_NAME", "bazaar"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  parseBool(getEnv("REDIS_ENABLED", "false")),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0"), 0),
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", "your-secret-key"),
			AccessTokenExpiry:  parseDuration(getEnv("JWT_ACCESS_TOKEN_EXPIRY", "15m")),
			RefreshTokenExpiry: parseDuration(getEnv("JWT_REFRESH_TOKEN_EXPIRY", "168h")),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: parseFloat(getEnv("RATE_LIMIT_RPS", "10"), 10),
			Burst:             parseInt(getEnv("RATE_LIMIT_BURST", "20"), 20),
			ClientTTL:         parseDuration(getEnv("RATE_LIMIT_CLIENT_TTL", "10m")),
		},
		Delivery: DeliveryConfig{
			BaseFee:               getEnv("DELIVERY_BASE_FEE", "100"),
			BaseDistanceKm:        parseFloat(getEnv("DELIVERY_BASE_DISTANCE_KM", "3"), 3),
			PerKmFee:              getEnv("DELIVERY_PER_KM_FEE", "20"),
			FreeDeliveryThreshold: getEnv("DELIVERY_FREE_THRESHOLD", "0"),
			MaxDistanceKm:         parseFloat(getEnv("DELIVERY_MAX_DISTANCE_KM", "25"), 25),
			StoreLatitude:         parseFloat(getEnv("STORE_LATITUDE", "27.7172"), 27.7172),
			StoreLongitude:        parseFloat(getEnv("STORE_LONGITUDE", "85.3240"), 85.3240),
		},
		Notification: NotificationConfig{
			RelayURL:   getEnv("EMAIL_RELAY_URL", ""),
			APIKey:     getEnv("EMAIL_RELAY_API_KEY", ""),
			FromEmail:  getEnv("EMAIL_FROM", "orders@bazaar.local"),
			AdminEmail: getEnv("EMAIL_ADMIN", ""),
			Timeout:    parseDuration(getEnv("EMAIL_RELAY_TIMEOUT", "5s")),
		},
		Outbox: OutboxConfig{
			DispatchTimeout: parseDuration(getEnv("OUTBOX_DISPATCH_TIMEOUT", "3s")),
			RetrySchedule:   getEnv("OUTBOX_RETRY_SCHEDULE", "@every 1m"),
			MaxAttempts:     parseInt(getEnv("OUTBOX_MAX_ATTEMPTS", "8"), 8),
			BatchSize:       parseInt(getEnv("OUTBOX_BATCH_SIZE", "50"), 50),
			DedupTTL:        parseDuration(getEnv("OUTBOX_DEDUP_TTL", "24h")),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "ap-south-1"),
			Bucket:          getEnv("AWS_S3_BUCKET", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			BaseURL:         getEnv("AWS_S3_BASE_URL", ""),
			ReportPrefix:    getEnv("AWS_S3_REPORT_PREFIX", "reports/refunds"),
			ReportSchedule:  getEnv("REFUND_REPORT_SCHEDULE", "0 2 * * *"),
		},
	}

	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
		if config.Server.Environment == "development" {
			config.Server.LogLevel = "debug"
		}
	}

	return config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default 15m", s)
		return 15 * time.Minute
	}
	return duration
}

func parseInt(s string, fallback int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("Invalid integer %s, using default %d", s, fallback)
		return fallback
	}
	return v
}

func parseFloat(s string, fallback float64) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		log.Printf("Invalid number %s, using default %v", s, fallback)
		return fallback
	}
	return v
}

func parseBool(s string) bool {
	v, err := strconv.ParseBool(s)
	return err == nil && v
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
