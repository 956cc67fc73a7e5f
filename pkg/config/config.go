package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application. Environment variables
// are read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Engine
	Engine EngineConfig

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External collaborators
	Scorer     ScorerConfig
	MarketData MarketDataConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// EngineConfig holds the signal lifecycle engine parameters.
type EngineConfig struct {
	// CalendarPath points at the YAML holiday table. The table carries the
	// exchange timezone; every date comparison in the core uses it.
	CalendarPath string

	// Threshold is the minimum model probability for a candidate to become a
	// signal.
	Threshold float64

	// MaxRetryAge is how long past its trade date a signal may stay PENDING
	// before it is force-failed.
	MaxRetryAge time.Duration

	// WindowDays is the rolling statistics window in calendar days.
	WindowDays int

	// Schedule is the cron expression (with seconds) for the daily cycle.
	Schedule string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	URL string

	// Connection pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// ScorerConfig holds the model scorer endpoint configuration.
type ScorerConfig struct {
	BaseURL string
	Timeout time.Duration
}

// MarketDataConfig holds the market data endpoint configuration.
type MarketDataConfig struct {
	BaseURL      string
	Timeout      time.Duration
	RatePerSec   float64 // local token-bucket limit; 0 disables
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		Engine: EngineConfig{
			CalendarPath: getEnv("CALENDAR_PATH", "config/calendar.yaml"),
			Threshold:    getEnvAsFloat("SIGNAL_THRESHOLD", 0.95),
			MaxRetryAge:  getEnvAsDuration("TRACKER_MAX_RETRY_AGE", "120h"),
			WindowDays:   getEnvAsInt("STATS_WINDOW_DAYS", 30),
			Schedule:     getEnv("CYCLE_SCHEDULE", "0 30 16 * * *"),
		},

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},

		Scorer: ScorerConfig{
			BaseURL: getEnv("SCORER_BASE_URL", "http://localhost:9100"),
			Timeout: getEnvAsDuration("SCORER_TIMEOUT", "30s"),
		},

		MarketData: MarketDataConfig{
			BaseURL:    getEnv("MARKET_DATA_BASE_URL", "https://fchart.stock.naver.com"),
			Timeout:    getEnvAsDuration("MARKET_DATA_TIMEOUT", "10s"),
			RatePerSec: getEnvAsFloat("MARKET_DATA_RATE_PER_SEC", 5),
		},

		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks required configuration values.
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}
	if c.Engine.Threshold <= 0 || c.Engine.Threshold > 1 {
		return fmt.Errorf("SIGNAL_THRESHOLD must be in (0, 1]")
	}
	if c.Engine.WindowDays <= 0 {
		return fmt.Errorf("STATS_WINDOW_DAYS must be positive")
	}
	if c.Engine.CalendarPath == "" {
		return fmt.Errorf("CALENDAR_PATH is required")
	}
	return nil
}

// loadEnvFile tries to load .env from multiple locations.
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}
