package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application.
type AppConfig struct {
	DatabaseURL string

	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// PublicHost is the externally reachable base URL embedded in
	// completion and snooze links, e.g. https://trackmed.example.com.
	PublicHost string
	HTTPPort   string

	SMTPHost      string
	SMTPPort      string
	EmailAddress  string
	EmailPassword string
	WhapiToken    string
	TelegramToken string

	// ReminderTimezone is the caregiver's local zone; storage and
	// scheduling are canonical UTC.
	ReminderTimezone *time.Location

	SnoozeGrace      time.Duration
	QueueMaxAttempts int
	QueueRetryDelay  time.Duration
	QueueWorkers     int
	DeliveryTimeout  time.Duration

	LogLevel    string
	Environment string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	var err error
	cfg.DBMaxOpenConns, err = intEnv("DB_MAX_OPEN_CONNS", 25)
	if err != nil {
		return nil, err
	}
	cfg.DBMaxIdleConns, err = intEnv("DB_MAX_IDLE_CONNS", 25)
	if err != nil {
		return nil, err
	}
	lifetimeMinutes, err := intEnv("DB_CONN_MAX_LIFETIME_MINUTES", 5)
	if err != nil {
		return nil, err
	}
	cfg.DBConnMaxLifetime = time.Duration(lifetimeMinutes) * time.Minute

	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("REDIS_ADDR is not set")
	}
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		db, err := strconv.Atoi(dbStr)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
		}
		cfg.RedisDB = db
	}

	cfg.PublicHost = strings.TrimRight(os.Getenv("PUBLIC_HOST"), "/")
	if cfg.PublicHost == "" {
		return nil, fmt.Errorf("PUBLIC_HOST is not set")
	}
	cfg.HTTPPort = os.Getenv("HTTP_PORT")
	if cfg.HTTPPort == "" {
		cfg.HTTPPort = "8080"
	}

	cfg.SMTPHost = os.Getenv("SMTP_HOST")
	cfg.SMTPPort = os.Getenv("SMTP_PORT")
	if cfg.SMTPPort == "" {
		cfg.SMTPPort = "587"
	}
	cfg.EmailAddress = os.Getenv("EMAIL_ADDRESS")
	cfg.EmailPassword = os.Getenv("EMAIL_PASSWORD")
	cfg.WhapiToken = os.Getenv("WHAPI_TOKEN")
	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")

	tzName := os.Getenv("REMINDER_TIMEZONE")
	if tzName == "" {
		tzName = "UTC"
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid REMINDER_TIMEZONE %q: %w", tzName, err)
	}
	cfg.ReminderTimezone = loc

	graceMinutes, err := intEnv("SNOOZE_GRACE_MINUTES", 10)
	if err != nil {
		return nil, err
	}
	cfg.SnoozeGrace = time.Duration(graceMinutes) * time.Minute

	cfg.QueueMaxAttempts, err = intEnv("QUEUE_MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}
	retrySeconds, err := intEnv("QUEUE_RETRY_DELAY_SECONDS", 5)
	if err != nil {
		return nil, err
	}
	cfg.QueueRetryDelay = time.Duration(retrySeconds) * time.Second
	cfg.QueueWorkers, err = intEnv("QUEUE_WORKERS", 4)
	if err != nil {
		return nil, err
	}
	timeoutSeconds, err := intEnv("DELIVERY_TIMEOUT_SECONDS", 15)
	if err != nil {
		return nil, err
	}
	cfg.DeliveryTimeout = time.Duration(timeoutSeconds) * time.Second

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	return cfg, nil
}

func intEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
