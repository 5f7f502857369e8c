package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	S3       S3Config
	Remote   RemoteConfig
	Checkout CheckoutConfig
	Session  SessionConfig
	Redis    RedisConfig
	OrderLog OrderLogConfig
	Archive  ArchiveConfig
	Admin    AdminConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// AuthConfig holds the admin API key.
type AuthConfig struct {
	APIKey string
}

// S3Config holds AWS S3 configuration for order archives.
type S3Config struct {
	Enabled bool
	Bucket  string
	Region  string
	Prefix  string // Key prefix within the bucket (e.g., "archives/")
}

// RemoteConfig points at the mock REST API that owns products, orders and users.
type RemoteConfig struct {
	BaseURL         string
	Timeout         time.Duration
	BreakerFailures int
	BreakerCooldown time.Duration
}

// CheckoutConfig holds pricing and inventory settings.
type CheckoutConfig struct {
	TaxRate           decimal.Decimal
	ShippingFee       decimal.Decimal
	LowStockThreshold int
}

// SessionConfig selects where cart snapshots are kept.
type SessionConfig struct {
	Driver string // "memory" or "redis"
	TTL    time.Duration
}

// RedisConfig holds the connection settings for the redis session driver.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// OrderLogConfig selects the order log implementation.
type OrderLogConfig struct {
	Driver string // "postgres" or "memory"
}

// ArchiveConfig holds the local directory for order archives.
type ArchiveConfig struct {
	Dir string
}

// AdminConfig holds admin behaviour switches.
type AdminConfig struct {
	StrictTransitions bool
}

var defaults = map[string]any{
	"SERVER_HOST":              "0.0.0.0",
	"SERVER_PORT":              8080,
	"DB_HOST":                  "localhost",
	"DB_PORT":                  5432,
	"DB_USER":                  "postgres",
	"DB_PASSWORD":              "",
	"DB_NAME":                  "storefront",
	"DB_MAX_CONNECTIONS":       25,
	"DB_MIN_CONNECTIONS":       5,
	"DB_MAX_CONN_LIFETIME":     300,
	"LOG_LEVEL":                "info",
	"LOG_FORMAT":               "json",
	"API_KEY":                  "",
	"S3_ENABLED":               false,
	"S3_BUCKET":                "",
	"S3_REGION":                "us-east-1",
	"S3_PREFIX":                "archives/",
	"REMOTE_BASE_URL":          "",
	"REMOTE_TIMEOUT":           "5s",
	"REMOTE_BREAKER_FAILURES":  5,
	"REMOTE_BREAKER_COOLDOWN":  "30s",
	"TAX_RATE":                 "0.1",
	"SHIPPING_FEE":             "0",
	"LOW_STOCK_THRESHOLD":      5,
	"SESSION_DRIVER":           "memory",
	"SESSION_TTL":              "24h",
	"REDIS_ADDR":               "localhost:6379",
	"REDIS_PASSWORD":           "",
	"REDIS_DB":                 0,
	"ORDER_LOG_DRIVER":         "postgres",
	"ARCHIVE_DIR":              "./archives",
	"ADMIN_STRICT_TRANSITIONS": false,
}

// Load loads configuration from environment variables. When CONFIG_FILE is
// set, values from that file are read first and the environment overrides
// them.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	taxRate, err := decimal.NewFromString(v.GetString("TAX_RATE"))
	if err != nil {
		return nil, fmt.Errorf("invalid tax rate: %w", err)
	}
	shippingFee, err := decimal.NewFromString(v.GetString("SHIPPING_FEE"))
	if err != nil {
		return nil, fmt.Errorf("invalid shipping fee: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Database:        v.GetString("DB_NAME"),
			MaxConnections:  v.GetInt("DB_MAX_CONNECTIONS"),
			MinConnections:  v.GetInt("DB_MIN_CONNECTIONS"),
			MaxConnLifetime: v.GetInt("DB_MAX_CONN_LIFETIME"),
		},
		Logger: LoggerConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Auth: AuthConfig{
			APIKey: v.GetString("API_KEY"),
		},
		S3: S3Config{
			Enabled: v.GetBool("S3_ENABLED"),
			Bucket:  v.GetString("S3_BUCKET"),
			Region:  v.GetString("S3_REGION"),
			Prefix:  v.GetString("S3_PREFIX"),
		},
		Remote: RemoteConfig{
			BaseURL:         strings.TrimRight(v.GetString("REMOTE_BASE_URL"), "/") + "/",
			Timeout:         v.GetDuration("REMOTE_TIMEOUT"),
			BreakerFailures: v.GetInt("REMOTE_BREAKER_FAILURES"),
			BreakerCooldown: v.GetDuration("REMOTE_BREAKER_COOLDOWN"),
		},
		Checkout: CheckoutConfig{
			TaxRate:           taxRate,
			ShippingFee:       shippingFee,
			LowStockThreshold: v.GetInt("LOW_STOCK_THRESHOLD"),
		},
		Session: SessionConfig{
			Driver: strings.ToLower(v.GetString("SESSION_DRIVER")),
			TTL:    v.GetDuration("SESSION_TTL"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		OrderLog: OrderLogConfig{
			Driver: strings.ToLower(v.GetString("ORDER_LOG_DRIVER")),
		},
		Archive: ArchiveConfig{
			Dir: v.GetString("ARCHIVE_DIR"),
		},
		Admin: AdminConfig{
			StrictTransitions: v.GetBool("ADMIN_STRICT_TRANSITIONS"),
		},
	}
	if cfg.Remote.BaseURL == "/" {
		cfg.Remote.BaseURL = ""
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.OrderLog.Driver {
	case "postgres":
		if err := c.Database.validate(); err != nil {
			return err
		}
	case "memory":
	default:
		return fmt.Errorf("invalid order log driver: %s (must be postgres or memory)", c.OrderLog.Driver)
	}

	if c.Auth.APIKey == "" {
		return errors.New("API key is required")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.Remote.BaseURL == "" {
		return errors.New("remote API base URL is required")
	}

	if c.Remote.Timeout <= 0 {
		return fmt.Errorf("remote timeout must be positive, got %s", c.Remote.Timeout)
	}

	if c.Remote.BreakerFailures < 1 {
		return errors.New("remote breaker failures must be at least 1")
	}

	if c.Checkout.TaxRate.IsNegative() {
		return fmt.Errorf("tax rate cannot be negative: %s", c.Checkout.TaxRate)
	}

	if c.Checkout.ShippingFee.IsNegative() {
		return fmt.Errorf("shipping fee cannot be negative: %s", c.Checkout.ShippingFee)
	}

	switch c.Session.Driver {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return errors.New("redis address is required when the session driver is redis")
		}
		if c.Session.TTL <= 0 {
			return errors.New("session TTL must be positive when the session driver is redis")
		}
	default:
		return fmt.Errorf("invalid session driver: %s (must be memory or redis)", c.Session.Driver)
	}

	if c.Archive.Dir == "" {
		return errors.New("archive directory is required")
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return errors.New("S3 bucket is required when S3 is enabled")
		}
		if c.S3.Region == "" {
			return errors.New("S3 region is required when S3 is enabled")
		}
	}

	return nil
}

func (c *DatabaseConfig) validate() error {
	if c.Host == "" {
		return errors.New("database host is required")
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Port)
	}

	if c.User == "" {
		return errors.New("database user is required")
	}

	if c.Database == "" {
		return errors.New("database name is required")
	}

	if c.MaxConnections < 1 {
		return errors.New("database max connections must be at least 1")
	}

	if c.MinConnections < 1 {
		return errors.New("database min connections must be at least 1")
	}

	if c.MinConnections > c.MaxConnections {
		return errors.New("database min connections cannot exceed max connections")
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
