package config

import (
	"os"
	"time"

	commoncfg "atelier-commission/pkg/config"
)

// Config atelier-commission service configuration, loaded from environment
// variables with local-dev defaults.
type Config struct {
	HTTP struct {
		Addr string
	}
	DBEnabled bool
	Database  commoncfg.DatabaseConfig
	Redis     commoncfg.RedisConfig
	Log       struct {
		Level  string
		Format string
	}
	Cache struct {
		TTL time.Duration
	}
	Billing   BillingConfig
	Messaging MessagingConfig
	Notify    NotifyConfig
	Decision  DecisionConfig
}

// BillingConfig billing provider client settings.
type BillingConfig struct {
	BaseURL string
	APIKey  string
}

// MessagingConfig chat provider client settings.
type MessagingConfig struct {
	BaseURL  string
	APIToken string
}

// NotifyConfig notification stream settings.
type NotifyConfig struct {
	Stream  string
	Timeout time.Duration
}

// DecisionConfig decision saga policy.
type DecisionConfig struct {
	PromoteOnReject bool
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	// Default to true for local dev: if DB is unavailable, the service falls
	// back to in-memory stores.
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database = commoncfg.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "atelier",
		SSLMode:  "disable",
	}
	cfg.Database.LoadFromEnv("DB")

	cfg.Redis = commoncfg.RedisConfig{Addr: "localhost:6379"}
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Cache.TTL = parseDuration(getEnv("CACHE_TTL", "1h"), time.Hour)

	cfg.Billing.BaseURL = getEnv("BILLING_BASE_URL", "https://api.billing.example.com")
	cfg.Billing.APIKey = getEnv("BILLING_API_KEY", "")

	cfg.Messaging.BaseURL = getEnv("MESSAGING_BASE_URL", "https://api.messaging.example.com")
	cfg.Messaging.APIToken = getEnv("MESSAGING_API_TOKEN", "")

	cfg.Notify.Stream = getEnv("NOTIFY_STREAM", "notifications:events")
	cfg.Notify.Timeout = parseDuration(getEnv("NOTIFY_TIMEOUT", "5s"), 5*time.Second)

	cfg.Decision.PromoteOnReject = getEnv("PROMOTE_ON_REJECT", "false") == "true"

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
