package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration. Every field has a default;
// the engine runs with no external configuration at all.
type Config struct {
	Server   ServerConfig   `json:"server"`
	Redis    RedisConfig    `json:"redis"`
	Database DatabaseConfig `json:"database"`
	Scan     ScanConfig     `json:"scan"`
	Cache    CacheConfig    `json:"cache"`
	Breaker  BreakerConfig  `json:"breaker"`
	Retry    RetryConfig    `json:"retry"`
	Metrics  MetricsConfig  `json:"metrics"`
	Logging  LoggingConfig  `json:"logging"`
	Tracing  TracingConfig  `json:"tracing"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// RedisConfig contains the optional Redis cache backend configuration.
// An empty Addr keeps the engine on the in-memory cache.
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

// DatabaseConfig contains the optional Postgres scan archive
// configuration. An empty URL disables archiving.
type DatabaseConfig struct {
	URL             string        `json:"url"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
}

// ScanConfig contains scan pipeline configuration.
type ScanConfig struct {
	Timeout         time.Duration `json:"timeout"`
	Retention       time.Duration `json:"retention"`
	FailedRetention time.Duration `json:"failed_retention"`
	CleanupInterval time.Duration `json:"cleanup_interval"`
	LookbackDays    int           `json:"lookback_days"`
	TopPostsLimit   int           `json:"top_posts_limit"`
}

// CacheConfig contains eviction cache configuration.
type CacheConfig struct {
	PostsCapacity   int           `json:"posts_capacity"`
	PostsTTL        time.Duration `json:"posts_ttl"`
	ResultsCapacity int           `json:"results_capacity"`
	ResultsTTL      time.Duration `json:"results_ttl"`
}

// BreakerConfig contains circuit breaker defaults.
type BreakerConfig struct {
	FailureThreshold int           `json:"failure_threshold"`
	SuccessThreshold int           `json:"success_threshold"`
	ResetTimeout     time.Duration `json:"reset_timeout"`
}

// RetryConfig contains retry executor defaults.
type RetryConfig struct {
	MaxRetries int           `json:"max_retries"`
	BaseDelay  time.Duration `json:"base_delay"`
	MaxDelay   time.Duration `json:"max_delay"`
}

// MetricsConfig contains metrics recorder/reporter configuration.
type MetricsConfig struct {
	BufferSize     int           `json:"buffer_size"`
	ReportInterval time.Duration `json:"report_interval"`
	ReportWindow   time.Duration `json:"report_window"`
	Enabled        bool          `json:"enabled"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	Output string `json:"output"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	Enabled        bool    `json:"enabled"`
	JaegerEndpoint string  `json:"jaeger_endpoint"`
	SamplingRate   float64 `json:"sampling_rate"`
	Environment    string  `json:"environment"`
}

// Load loads configuration from environment variables with defaults.
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Host:         getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		Redis: RedisConfig{
			Addr:     getEnvString("REDIS_ADDR", ""),
			Password: getEnvString("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			PoolSize: getEnvInt("REDIS_POOL_SIZE", 10),
		},
		Database: DatabaseConfig{
			URL:             getEnvString("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Scan: ScanConfig{
			Timeout:         getEnvDuration("SCAN_TIMEOUT", 5*time.Minute),
			Retention:       getEnvDuration("SCAN_RETENTION", 24*time.Hour),
			FailedRetention: getEnvDuration("SCAN_FAILED_RETENTION", 5*time.Minute),
			CleanupInterval: getEnvDuration("SCAN_CLEANUP_INTERVAL", 1*time.Hour),
			LookbackDays:    getEnvInt("SCAN_LOOKBACK_DAYS", 30),
			TopPostsLimit:   getEnvInt("SCAN_TOP_POSTS_LIMIT", 10),
		},
		Cache: CacheConfig{
			PostsCapacity:   getEnvInt("CACHE_POSTS_CAPACITY", 1000),
			PostsTTL:        getEnvDuration("CACHE_POSTS_TTL", 30*time.Minute),
			ResultsCapacity: getEnvInt("CACHE_RESULTS_CAPACITY", 500),
			ResultsTTL:      getEnvDuration("CACHE_RESULTS_TTL", 24*time.Hour),
		},
		Breaker: BreakerConfig{
			FailureThreshold: getEnvInt("BREAKER_FAILURE_THRESHOLD", 5),
			SuccessThreshold: getEnvInt("BREAKER_SUCCESS_THRESHOLD", 2),
			ResetTimeout:     getEnvDuration("BREAKER_RESET_TIMEOUT", 60*time.Second),
		},
		Retry: RetryConfig{
			MaxRetries: getEnvInt("RETRY_MAX_RETRIES", 3),
			BaseDelay:  getEnvDuration("RETRY_BASE_DELAY", 1*time.Second),
			MaxDelay:   getEnvDuration("RETRY_MAX_DELAY", 10*time.Second),
		},
		Metrics: MetricsConfig{
			BufferSize:     getEnvInt("METRICS_BUFFER_SIZE", 1000),
			ReportInterval: getEnvDuration("METRICS_REPORT_INTERVAL", 5*time.Minute),
			ReportWindow:   getEnvDuration("METRICS_REPORT_WINDOW", 1*time.Hour),
			Enabled:        getEnvBool("METRICS_ENABLED", true),
		},
		Logging: LoggingConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
			Output: getEnvString("LOG_OUTPUT", "stdout"),
		},
		Tracing: TracingConfig{
			Enabled:        getEnvBool("TRACING_ENABLED", false),
			JaegerEndpoint: getEnvString("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
			SamplingRate:   getEnvFloat("TRACING_SAMPLING_RATE", 1.0),
			Environment:    getEnvString("ENVIRONMENT", "development"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Scan.Timeout <= 0 {
		return fmt.Errorf("scan timeout must be positive")
	}
	if c.Cache.PostsCapacity <= 0 || c.Cache.ResultsCapacity <= 0 {
		return fmt.Errorf("cache capacities must be positive")
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry max retries must not be negative")
	}
	return nil
}

// Helper functions for environment variable parsing.

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
