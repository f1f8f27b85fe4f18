package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	DBConn   string
	LogLevel string

	// EventSecret signs approval event tokens (HS256), shared with the
	// trigger source.
	EventSecret string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string

	GeminiAPIKey string
	GeminiModel  string

	// SettleRatePerMinute caps accepted settlement events per user.
	SettleRatePerMinute int

	JobMaxAttempts    int
	JobRetryBaseDelay time.Duration
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		DBConn:       getEnv("DB_CONN", "host=localhost port=5432 user=test password=test dbname=finance sslmode=disable"),
		LogLevel:     getEnv("LOG_LEVEL", "INFO"),
		EventSecret:  getEnv("EVENT_SECRET", "secret"),
		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SenderEmail:  getEnv("SENDER_EMAIL", "Chingu Finance <noreply@chingu.finance>"),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
	}

	var err error
	cfg.SettleRatePerMinute, err = getEnvInt("SETTLE_RATE_PER_MINUTE", 10)
	if err != nil {
		return nil, err
	}
	cfg.JobMaxAttempts, err = getEnvInt("JOB_MAX_ATTEMPTS", 5)
	if err != nil {
		return nil, err
	}
	cfg.JobRetryBaseDelay, err = getEnvDuration("JOB_RETRY_BASE_DELAY", time.Second)
	if err != nil {
		return nil, err
	}

	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.EventSecret == "" {
		return nil, fmt.Errorf("EVENT_SECRET is required")
	}
	if cfg.SettleRatePerMinute <= 0 {
		return nil, fmt.Errorf("SETTLE_RATE_PER_MINUTE must be positive")
	}
	if cfg.JobMaxAttempts <= 0 {
		return nil, fmt.Errorf("JOB_MAX_ATTEMPTS must be positive")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}
