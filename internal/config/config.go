package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	JWT         JWTConfig         `yaml:"jwt"`
	Log         LogConfig         `yaml:"log"`
	Payment     PaymentConfig     `yaml:"payment"`
	SendGrid    SendGridConfig    `yaml:"sendgrid"`
	Pricing     PricingConfig     `yaml:"pricing"`
	Shipping    ShippingConfig    `yaml:"shipping"`
	EarlyReturn EarlyReturnConfig `yaml:"early_return"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig contains PostgreSQL connection settings.
// Type "memory" runs against the in-process store (local development only).
type DatabaseConfig struct {
	Type        string `yaml:"type"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	Database    string `yaml:"database"`
	SSLMode     string `yaml:"ssl_mode"`
	AutoMigrate bool   `yaml:"auto_migrate"`
	SeedFile    string `yaml:"seed_file"` // memory store only
}

// RedisConfig enables the distributed sub-order lock. Empty Addr means the
// in-process lock is used, which is only safe with a single server replica.
type RedisConfig struct {
	Addr          string `yaml:"addr"`
	Password      string `yaml:"password"`
	DB            int    `yaml:"db"`
	LockTTLMillis int    `yaml:"lock_ttl_ms"`
	LockWaitMs    int    `yaml:"lock_wait_ms"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// PaymentConfig holds gateway credentials and the per-method capture policy
// applied when an extension is approved.
type PaymentConfig struct {
	RazorpayKey      string          `yaml:"razorpay_key"`
	RazorpaySecret   string          `yaml:"razorpay_secret"`
	Currency         string          `yaml:"currency"`
	CaptureOnApprove map[string]bool `yaml:"capture_on_approve"`
}

type SendGridConfig struct {
	APIKey    string `yaml:"api_key"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
}

// PricingConfig holds the conservative daily rate quoted when a sub-order has
// no pricing snapshot yet. Quotes built from it are estimates and never charged.
type PricingConfig struct {
	FallbackDailyRate int64 `yaml:"fallback_daily_rate"`
}

// ShippingConfig is the flat-rate return shipping quote used when a renter
// overrides the return address.
type ShippingConfig struct {
	ReturnAddressChangeFee int64 `yaml:"return_address_change_fee"`
	CrossRegionSurcharge   int64 `yaml:"cross_region_surcharge"`
}

// EarlyReturnConfig is the auto-complete policy owned by the scheduling caller.
type EarlyReturnConfig struct {
	AutoCompleteAfterHours int `yaml:"auto_complete_after_hours"`
	SweepBatchSize         int `yaml:"sweep_batch_size"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	AutoCompleteEarlyReturns string `yaml:"auto_complete_early_returns"`
	SyncShipmentSignals      string `yaml:"sync_shipment_signals"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse builds a validated Config from YAML bytes plus environment overrides.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// Redis
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		c.Redis.Addr = val
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		c.Redis.Password = val
	}

	// Secrets
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}
	if val := os.Getenv("RAZORPAY_KEY"); val != "" {
		c.Payment.RazorpayKey = val
	}
	if val := os.Getenv("RAZORPAY_SECRET"); val != "" {
		c.Payment.RazorpaySecret = val
	}
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.SendGrid.APIKey = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid and fills defaults
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Type == "" {
		c.Database.Type = "postgres"
	}
	switch c.Database.Type {
	case "memory":
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}

	// Redis lock defaults
	if c.Redis.LockTTLMillis == 0 {
		c.Redis.LockTTLMillis = 15000
	}
	if c.Redis.LockWaitMs == 0 {
		c.Redis.LockWaitMs = 5000
	}

	// Payment defaults
	if c.Payment.Currency == "" {
		c.Payment.Currency = "INR"
	}
	for method := range c.Payment.CaptureOnApprove {
		switch strings.ToUpper(method) {
		case "WALLET", "GATEWAY", "CASH_ON_DELIVERY":
		default:
			return fmt.Errorf("unknown payment method in capture_on_approve: %s", method)
		}
	}

	if c.Pricing.FallbackDailyRate < 0 {
		return fmt.Errorf("fallback daily rate cannot be negative")
	}
	if c.Shipping.ReturnAddressChangeFee < 0 || c.Shipping.CrossRegionSurcharge < 0 {
		return fmt.Errorf("shipping fees cannot be negative")
	}

	// Early return defaults
	if c.EarlyReturn.AutoCompleteAfterHours == 0 {
		c.EarlyReturn.AutoCompleteAfterHours = 72
	}
	if c.EarlyReturn.SweepBatchSize == 0 {
		c.EarlyReturn.SweepBatchSize = 100
	}

	// Scheduler defaults
	if c.Scheduler.AutoCompleteEarlyReturns == "" {
		c.Scheduler.AutoCompleteEarlyReturns = "0 0 * * * *" // hourly
	}
	if c.Scheduler.SyncShipmentSignals == "" {
		c.Scheduler.SyncShipmentSignals = "0 */5 * * * *" // every 5 minutes
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// CapturePolicy returns the capture-on-approve flag per payment method, with
// cash on delivery deferred to physical collection unless configured otherwise.
func (c *Config) CapturePolicy() map[string]bool {
	policy := map[string]bool{
		"WALLET":           true,
		"GATEWAY":          true,
		"CASH_ON_DELIVERY": false,
	}
	for method, capture := range c.Payment.CaptureOnApprove {
		policy[strings.ToUpper(method)] = capture
	}
	return policy
}
