package config

import (
	"os"
	"strconv"
	"time"
)

type BillingServiceConfig struct {
	Port        string
	PostgresCfg PostgresConfig
	RabbitMQCfg RabbitMQConfig
	RedisCfg    RedisConfig
	MinioCfg    MinioConfig
	BillingCfg  BillingConfig
}

type PostgresConfig struct {
	DBname   string
	Username string
	Password string
	Host     string
	Port     string
}

type RabbitMQConfig struct {
	Username string
	Password string
	Host     string
	Port     string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type MinioConfig struct {
	MinioURL         string
	MinioAccessKey   string
	MinioSecretKey   string
	MinioLocation    string
	MinioSecure      string
	MinioResourceURL string
}

// BillingConfig groups everything the billing pipeline itself needs: queue
// names, the monthly schedule, redelivery policy and document storage.
type BillingConfig struct {
	BillingRequestQueue string
	NotificationQueue   string
	MaxDeliveryAttempts int
	RetryBackoff        time.Duration
	PrefetchCount       int
	ScheduleDayOfMonth  int
	ScheduleHourUTC     int
	ScheduleMinuteUTC   int
	BatchLockTTL        time.Duration
	WorkerCount         int
	JobQueueSize        int
	InvoiceDueDays      int
	InvoiceBucket       string
	CompanyName         string
}

func New() *BillingServiceConfig {
	return &BillingServiceConfig{
		Port: getEnvOrDefault("PORT", "8089"),
		PostgresCfg: PostgresConfig{
			DBname:   getEnvOrDefault("POSTGRES_DB", "billing_service"),
			Username: getEnvOrDefault("POSTGRES_USER", "postgres"),
			Password: getEnvOrDefault("POSTGRES_PASSWORD", "postgres"),
			Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
			Port:     getEnvOrDefault("POSTGRES_PORT", "5432"),
		},
		RabbitMQCfg: RabbitMQConfig{
			Username: getEnvOrDefault("RABBITMQ_USER", "admin"),
			Password: getEnvOrDefault("RABBITMQ_PWD", "admin"),
			Host:     getEnvOrDefault("RABBITMQ_HOST", "localhost"),
			Port:     getEnvOrDefault("RABBITMQ_PORT", "5672"),
		},
		RedisCfg: RedisConfig{
			Host:     getEnvOrDefault("REDIS_HOST", "localhost"),
			Port:     getEnvOrDefault("REDIS_PORT", "6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getEnvIntOrDefault("REDIS_DB", 0),
		},
		MinioCfg: MinioConfig{
			MinioURL:         getEnvOrDefault("MINIO_ENDPOINT", "localhost:9000"),
			MinioAccessKey:   getEnvOrDefault("MINIO_ACCESS_KEY", "minio"),
			MinioSecretKey:   getEnvOrDefault("MINIO_SECRET_KEY", "minio123"),
			MinioLocation:    getEnvOrDefault("MINIO_LOCATION", "us-east-1"),
			MinioSecure:      getEnvOrDefault("MINIO_SECURE", "false"),
			MinioResourceURL: getEnvOrDefault("MINIO_RESOURCE_URL", "http://localhost:9000"),
		},
		BillingCfg: BillingConfig{
			BillingRequestQueue: getEnvOrDefault("BILLING_REQUEST_QUEUE", "billing_requests"),
			NotificationQueue:   getEnvOrDefault("INVOICE_NOTIFICATION_QUEUE", "invoice_notifications"),
			MaxDeliveryAttempts: getEnvIntOrDefault("BILLING_MAX_DELIVERY_ATTEMPTS", 3),
			RetryBackoff:        getEnvDurationOrDefault("BILLING_RETRY_BACKOFF", 30*time.Second),
			PrefetchCount:       getEnvIntOrDefault("BILLING_PREFETCH_COUNT", 10),
			ScheduleDayOfMonth:  getEnvIntOrDefault("BILLING_SCHEDULE_DAY", 1),
			ScheduleHourUTC:     getEnvIntOrDefault("BILLING_SCHEDULE_HOUR_UTC", 2),
			ScheduleMinuteUTC:   getEnvIntOrDefault("BILLING_SCHEDULE_MINUTE_UTC", 0),
			BatchLockTTL:        getEnvDurationOrDefault("BILLING_BATCH_LOCK_TTL", 6*time.Hour),
			WorkerCount:         getEnvIntOrDefault("BILLING_WORKER_COUNT", 4),
			JobQueueSize:        getEnvIntOrDefault("BILLING_JOB_QUEUE_SIZE", 16),
			InvoiceDueDays:      getEnvIntOrDefault("BILLING_INVOICE_DUE_DAYS", 30),
			InvoiceBucket:       getEnvOrDefault("BILLING_INVOICE_BUCKET", "invoices"),
			CompanyName:         getEnvOrDefault("BILLING_COMPANY_NAME", "Atlas Vehicle Insurance"),
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
