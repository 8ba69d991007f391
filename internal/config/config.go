package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Env               string
	HTTPAddr          string
	DatabaseURL       string
	RedisURL          string
	BaseURL           string
	ActionTokenSecret string
	CronSecret        string
	Qliro             QliroConfig
	Sweeper           SweeperConfig
	Logging           LoggingConfig
}

// QliroConfig is the single gateway environment for this process. Sandbox
// versus production is decided by what these point at, never at runtime.
type QliroConfig struct {
	BaseURL       string
	APIKey        string
	APISecret     string
	WebhookSecret string
}

func (q QliroConfig) Enabled() bool {
	return q.BaseURL != "" && q.APIKey != "" && q.APISecret != ""
}

type SweeperConfig struct {
	BookingCutoff time.Duration
	PackageCutoff time.Duration
	TeoriCutoff   time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
	File   string
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:               getenv("APP_ENV", "dev"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		BaseURL:           getenv("BASE_URL", ""),
		ActionTokenSecret: os.Getenv("PAYMENT_ACTION_SECRET"),
		CronSecret:        os.Getenv("CRON_SECRET"),
		Qliro: QliroConfig{
			BaseURL:       os.Getenv("QLIRO_API_URL"),
			APIKey:        os.Getenv("QLIRO_API_KEY"),
			APISecret:     os.Getenv("QLIRO_API_SECRET"),
			WebhookSecret: getenv("QLIRO_WEBHOOK_SECRET", os.Getenv("QLIRO_API_SECRET")),
		},
		Sweeper: SweeperConfig{
			BookingCutoff: getenvMinutes("SWEEP_BOOKING_CUTOFF_MIN", 120),
			PackageCutoff: getenvMinutes("SWEEP_PACKAGE_CUTOFF_MIN", 120),
			TeoriCutoff:   getenvMinutes("SWEEP_TEORI_CUTOFF_MIN", 120),
		},
		Logging: LoggingConfig{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", "text"),
			File:   os.Getenv("LOG_FILE"),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.ActionTokenSecret == "" {
		return nil, fmt.Errorf("PAYMENT_ACTION_SECRET is required")
	}

	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvMinutes(key string, def int) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return time.Duration(def) * time.Minute
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return time.Duration(def) * time.Minute
	}
	return time.Duration(parsed) * time.Minute
}
