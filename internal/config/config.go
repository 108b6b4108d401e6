package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logger   LoggerConfig
	Ledger   LedgerConfig
	TaxRates TaxRatesConfig
	S3       S3Config
	Redis    RedisConfig
	Kafka    KafkaConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host            string        `env:"SERVER_HOST" env-default:"0.0.0.0"`
	Port            int           `env:"SERVER_PORT" env-default:"8080"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" env-default:"15s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"30s"`
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string `env:"DB_HOST" env-default:"localhost"`
	Port            int    `env:"DB_PORT" env-default:"5432"`
	User            string `env:"DB_USER" env-default:"postgres"`
	Password        string `env:"DB_PASSWORD"`
	Database        string `env:"DB_NAME" env-default:"storefront"`
	MaxConnections  int    `env:"DB_MAX_CONNECTIONS" env-default:"25"`
	MinConnections  int    `env:"DB_MIN_CONNECTIONS" env-default:"5"`
	MaxConnLifetime int    `env:"DB_MAX_CONN_LIFETIME" env-default:"300"` // seconds
	AutoMigrate     bool   `env:"DB_AUTO_MIGRATE" env-default:"true"`
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string `env:"LOG_LEVEL" env-default:"info"`
	Format string `env:"LOG_FORMAT" env-default:"json"` // "json" or "console"
}

// LedgerConfig holds the order and return calculation settings.
type LedgerConfig struct {
	TaxRate                  string `env:"TAX_RATE" env-default:"0.21"`
	Currency                 string `env:"CURRENCY" env-default:"EUR"`
	IdentifierMaxAttempts    int    `env:"IDENTIFIER_MAX_ATTEMPTS" env-default:"5"`
	EnforceReturnTransitions bool   `env:"ENFORCE_RETURN_TRANSITIONS" env-default:"true"`
}

// DefaultTaxRate parses TaxRate. Validate guarantees it is well formed.
func (c LedgerConfig) DefaultTaxRate() decimal.Decimal {
	rate, err := decimal.NewFromString(c.TaxRate)
	if err != nil {
		return decimal.Zero
	}
	return rate
}

// TaxRatesConfig lists the jurisdiction tables loaded at startup.
type TaxRatesConfig struct {
	Files []string `env:"TAX_RATE_FILES" env-separator:","`
}

// S3Config holds AWS S3 configuration for tax rate tables.
type S3Config struct {
	Enabled bool   `env:"S3_ENABLED" env-default:"false"`
	Bucket  string `env:"S3_BUCKET"`
	Region  string `env:"S3_REGION" env-default:"us-east-1"`
	Prefix  string `env:"S3_PREFIX" env-default:"tax-rates/"` // Path prefix within bucket
}

// RedisConfig holds the read cache configuration.
type RedisConfig struct {
	Enabled  bool          `env:"REDIS_ENABLED" env-default:"false"`
	Addr     string        `env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" env-default:"0"`
	TTL      time.Duration `env:"REDIS_TTL" env-default:"5m"`
}

// KafkaConfig holds the lifecycle event publishing configuration.
type KafkaConfig struct {
	Enabled         bool          `env:"KAFKA_ENABLED" env-default:"false"`
	Brokers         []string      `env:"KAFKA_BROKERS" env-separator:","`
	TopicPrefix     string        `env:"KAFKA_TOPIC_PREFIX" env-default:"storefront"`
	OutboxInterval  time.Duration `env:"OUTBOX_INTERVAL" env-default:"500ms"`
	OutboxBatchSize int           `env:"OUTBOX_BATCH_SIZE" env-default:"50"`
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
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

	rate, err := decimal.NewFromString(c.Ledger.TaxRate)
	if err != nil {
		return fmt.Errorf("invalid tax rate: %q", c.Ledger.TaxRate)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("tax rate must be in [0,1), got %s", rate)
	}

	if len(c.Ledger.Currency) != 3 {
		return fmt.Errorf("currency must be a 3-letter ISO code, got %q", c.Ledger.Currency)
	}

	if c.Ledger.IdentifierMaxAttempts < 1 {
		return fmt.Errorf("identifier max attempts must be at least 1")
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when S3 is enabled")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required when S3 is enabled")
		}
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required when redis is enabled")
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka brokers are required when kafka is enabled")
		}
		if c.Kafka.OutboxBatchSize < 1 {
			return fmt.Errorf("outbox batch size must be at least 1")
		}
		if c.Kafka.OutboxInterval <= 0 {
			return fmt.Errorf("outbox interval must be positive")
		}
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
