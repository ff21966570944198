package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NewRelic NewRelicConfig
	Payment  PaymentConfig
	MTN      MTNConfig
	Airtel   AirtelConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// PaymentConfig holds the payment pipeline knobs.
type PaymentConfig struct {
	// MaxSingleAmount is the per-payment ceiling in minor currency units (RWF).
	MaxSingleAmount int64

	// RateLimit is the number of submissions a payer may make per window.
	RateLimit       int
	RateLimitWindow time.Duration

	// MaxRetries bounds network-error retries per transaction.
	MaxRetries     int
	RetryBaseDelay time.Duration

	// DowntimeRetryDelay is the single delayed retry after provider downtime.
	DowntimeRetryDelay time.Duration

	// StatusCheckDelay is how long after dispatch the provider is polled;
	// MaxStatusChecks caps re-polls while the provider reports PENDING.
	StatusCheckDelay time.Duration
	MaxStatusChecks  int

	// PaymentTimeout drives the estimated completion returned at submission.
	PaymentTimeout time.Duration

	// WebhookSecret is the shared secret provider callbacks are signed with.
	WebhookSecret string

	// Worker pool settings for the async processor.
	WorkerCount  int
	PollInterval time.Duration
}

// MTNConfig holds MTN Mobile Money API configuration.
type MTNConfig struct {
	BaseURL           string
	APIKey            string
	SubscriptionKey   string
	TargetEnvironment string
	RequestTimeout    time.Duration
}

// AirtelConfig holds Airtel Money API configuration.
type AirtelConfig struct {
	BaseURL        string
	ClientID       string
	ClientSecret   string
	RequestTimeout time.Duration
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "safeboda_payments"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "safeboda-payment-service"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Payment: PaymentConfig{
			MaxSingleAmount:    getInt64Env("PAYMENT_MAX_SINGLE_AMOUNT", 100000),
			RateLimit:          getIntEnv("PAYMENT_RATE_LIMIT", 10),
			RateLimitWindow:    getDurationEnv("PAYMENT_RATE_LIMIT_WINDOW", time.Hour),
			MaxRetries:         getIntEnv("PAYMENT_MAX_RETRIES", 3),
			RetryBaseDelay:     getDurationEnv("PAYMENT_RETRY_BASE_DELAY", 30*time.Second),
			DowntimeRetryDelay: getDurationEnv("PAYMENT_DOWNTIME_RETRY_DELAY", 300*time.Second),
			StatusCheckDelay:   getDurationEnv("PAYMENT_STATUS_CHECK_DELAY", 30*time.Second),
			MaxStatusChecks:    getIntEnv("PAYMENT_MAX_STATUS_CHECKS", 10),
			PaymentTimeout:     getDurationEnv("PAYMENT_TIMEOUT", 300*time.Second),
			WebhookSecret:      getEnv("PAYMENT_WEBHOOK_SECRET", ""),
			WorkerCount:        getIntEnv("PAYMENT_WORKER_COUNT", 8),
			PollInterval:       getDurationEnv("PAYMENT_POLL_INTERVAL", time.Second),
		},
		MTN: MTNConfig{
			BaseURL:           getEnv("MTN_MOMO_API_URL", "https://sandbox.momodeveloper.mtn.com"),
			APIKey:            getEnv("MTN_MOMO_API_KEY", ""),
			SubscriptionKey:   getEnv("MTN_MOMO_SUBSCRIPTION_KEY", ""),
			TargetEnvironment: getEnv("MTN_MOMO_TARGET_ENVIRONMENT", "sandbox"),
			RequestTimeout:    getDurationEnv("MTN_MOMO_REQUEST_TIMEOUT", 10*time.Second),
		},
		Airtel: AirtelConfig{
			BaseURL:        getEnv("AIRTEL_MONEY_API_URL", "https://openapiuat.airtel.africa"),
			ClientID:       getEnv("AIRTEL_MONEY_CLIENT_ID", ""),
			ClientSecret:   getEnv("AIRTEL_MONEY_CLIENT_SECRET", ""),
			RequestTimeout: getDurationEnv("AIRTEL_MONEY_REQUEST_TIMEOUT", 10*time.Second),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
