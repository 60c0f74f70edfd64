package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	Email     EmailConfig     `yaml:"email"`
	JWT       JWTConfig       `yaml:"jwt"`
	Log       LogConfig       `yaml:"log"`
	Payments  PaymentsConfig  `yaml:"payments"`
	Pricing   PricingConfig   `yaml:"pricing"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ServerConfig contains HTTP and gRPC listener settings
type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	GRPCPort int    `yaml:"grpc_port"`
	BaseURL  string `yaml:"base_url"` // public site, used for gateway return URLs
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// SMTPConfig contains email service settings
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// EmailConfig selects the mail transport.
type EmailConfig struct {
	Provider       string `yaml:"provider"` // "sendgrid", "smtp" or "noop"
	SendGridAPIKey string `yaml:"sendgrid_api_key"`
	FromName       string `yaml:"from_name"`
	FromAddress    string `yaml:"from_address"`
	AdminAddress   string `yaml:"admin_address"`
}

// JWTConfig contains the admin token settings
type JWTConfig struct {
	Secret            string `yaml:"secret"`
	AccessTokenExpiry int    `yaml:"access_token_expiry_minutes"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level      string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format     string `yaml:"format"` // "json" or "text"
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// PaymentsConfig contains gateway credentials and reconciliation knobs.
type PaymentsConfig struct {
	Redsys            RedsysConfig `yaml:"redsys"`
	Stripe            StripeConfig `yaml:"stripe"`
	PendingTTLMinutes int          `yaml:"pending_ttl_minutes"`
}

type RedsysConfig struct {
	Enabled        bool   `yaml:"enabled"`
	MerchantCode   string `yaml:"merchant_code"`
	Terminal       string `yaml:"terminal"`
	SecretKey      string `yaml:"secret_key"`
	Environment    string `yaml:"environment"` // "test" or "production"
	MerchantName   string `yaml:"merchant_name"`
	FeeBasisPoints int64  `yaml:"fee_basis_points"`
}

type StripeConfig struct {
	Enabled        bool   `yaml:"enabled"`
	SecretKey      string `yaml:"secret_key"`
	WebhookSecret  string `yaml:"webhook_secret"`
	FeeBasisPoints int64  `yaml:"fee_basis_points"`
}

// PricingConfig carries the defaults used when no season covers a day.
type PricingConfig struct {
	LowSeasonName       string  `yaml:"low_season_name"`
	LowSeasonTiersCents []int64 `yaml:"low_season_tiers_cents"` // <7, >=7, >=14, >=21 days
	DefaultDepositCents int64   `yaml:"default_deposit_cents"`
	BillTwoDaysAsThree  *bool   `yaml:"bill_two_days_as_three"`
	DefaultPickupTime   string  `yaml:"default_pickup_time"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// Keys older than this are forgotten by the webhook dedup store.
	IdempotencyTTLHours int `yaml:"idempotency_ttl_hours"`
}

type RateLimitConfig struct {
	Rate string `yaml:"rate"` // ulule formatted, e.g. "30-M"
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

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

	// SMTP
	if val := os.Getenv("SMTP_HOST"); val != "" {
		c.SMTP.Host = val
	}
	if val := os.Getenv("SMTP_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.SMTP.Port)
	}
	if val := os.Getenv("SMTP_USER"); val != "" {
		c.SMTP.User = val
	}
	if val := os.Getenv("SMTP_PASSWORD"); val != "" {
		c.SMTP.Password = val
	}
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.Email.SendGridAPIKey = val
	}

	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}
	if val := os.Getenv("PUBLIC_BASE_URL"); val != "" {
		c.Server.BaseURL = val
	}

	// Gateways
	if val := os.Getenv("REDSYS_MERCHANT_CODE"); val != "" {
		c.Payments.Redsys.MerchantCode = val
	}
	if val := os.Getenv("REDSYS_TERMINAL"); val != "" {
		c.Payments.Redsys.Terminal = val
	}
	if val := os.Getenv("REDSYS_SECRET_KEY"); val != "" {
		c.Payments.Redsys.SecretKey = val
	}
	if val := os.Getenv("REDSYS_ENVIRONMENT"); val != "" {
		c.Payments.Redsys.Environment = val
	}
	if val := os.Getenv("STRIPE_SECRET_KEY"); val != "" {
		c.Payments.Stripe.SecretKey = val
	}
	if val := os.Getenv("STRIPE_WEBHOOK_SECRET"); val != "" {
		c.Payments.Stripe.WebhookSecret = val
	}

	if val := os.Getenv("REDIS_ADDR"); val != "" {
		c.Redis.Addr = val
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		c.Redis.Password = val
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}
	if val := os.Getenv("LOG_FILE"); val != "" {
		c.Log.File = val
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid and fills defaults.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("invalid grpc port: %d", c.Server.GRPCPort)
	}

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

	switch strings.ToLower(c.Email.Provider) {
	case "", "noop":
		c.Email.Provider = "noop"
	case "smtp":
		if c.SMTP.Host == "" {
			return fmt.Errorf("SMTP host is required")
		}
		if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
			return fmt.Errorf("invalid SMTP port: %d", c.SMTP.Port)
		}
	case "sendgrid":
		if c.Email.SendGridAPIKey == "" {
			return fmt.Errorf("sendgrid api key is required")
		}
	default:
		return fmt.Errorf("unknown email provider: %s", c.Email.Provider)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.AccessTokenExpiry == 0 {
		c.JWT.AccessTokenExpiry = 60
	}

	if c.Payments.Redsys.Enabled {
		if c.Payments.Redsys.MerchantCode == "" || c.Payments.Redsys.SecretKey == "" {
			return fmt.Errorf("redsys merchant code and secret key are required")
		}
		if c.Payments.Redsys.Terminal == "" {
			c.Payments.Redsys.Terminal = "001"
		}
		if c.Payments.Redsys.Environment == "" {
			c.Payments.Redsys.Environment = "test"
		}
	}
	if c.Payments.Stripe.Enabled {
		if c.Payments.Stripe.SecretKey == "" || c.Payments.Stripe.WebhookSecret == "" {
			return fmt.Errorf("stripe secret key and webhook secret are required")
		}
		if c.Payments.Stripe.FeeBasisPoints == 0 {
			c.Payments.Stripe.FeeBasisPoints = 200 // 2% card surcharge
		}
	}
	if c.Payments.Stripe.FeeBasisPoints < 0 || c.Payments.Redsys.FeeBasisPoints < 0 {
		return fmt.Errorf("gateway fee cannot be negative")
	}
	if c.Payments.PendingTTLMinutes == 0 {
		c.Payments.PendingTTLMinutes = 60
	}

	if c.Pricing.LowSeasonName == "" {
		c.Pricing.LowSeasonName = "Temporada Baja"
	}
	if len(c.Pricing.LowSeasonTiersCents) == 0 {
		c.Pricing.LowSeasonTiersCents = []int64{9500, 8500, 7500, 6500}
	}
	if len(c.Pricing.LowSeasonTiersCents) != 4 {
		return fmt.Errorf("pricing.low_season_tiers_cents needs exactly 4 values")
	}
	if c.Pricing.DefaultDepositCents == 0 {
		c.Pricing.DefaultDepositCents = 50000
	}
	if c.Pricing.BillTwoDaysAsThree == nil {
		enabled := true
		c.Pricing.BillTwoDaysAsThree = &enabled
	}
	if c.Pricing.DefaultPickupTime == "" {
		c.Pricing.DefaultPickupTime = "11:00"
	}

	if c.Redis.IdempotencyTTLHours == 0 {
		c.Redis.IdempotencyTTLHours = 72
	}
	if c.RateLimit.Rate == "" {
		c.RateLimit.Rate = "60-M"
	}

	if c.Scheduler.ExpirePendingPayments == "" {
		c.Scheduler.ExpirePendingPayments = "0 */15 * * * *" // every 15 minutes
	}
	if c.Scheduler.SendSecondPaymentReminders == "" {
		c.Scheduler.SendSecondPaymentReminders = "0 0 9 * * *" // 9 AM UTC
	}
	if c.Scheduler.ReconcilePaymentStatuses == "" {
		c.Scheduler.ReconcilePaymentStatuses = "0 0 2 * * *" // 2 AM UTC
	}
	if c.Scheduler.AdvanceBookingStatuses == "" {
		c.Scheduler.AdvanceBookingStatuses = "0 0 3 * * *" // 3 AM UTC
	}
	if c.Scheduler.ReminderDaysBeforePickup == 0 {
		c.Scheduler.ReminderDaysBeforePickup = 15
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

// GetServerAddress returns the HTTP listen address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetGRPCAddress returns the health-check listen address, empty when disabled.
func (c *Config) GetGRPCAddress() string {
	if c.Server.GRPCPort == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	ExpirePendingPayments      string `yaml:"expire_pending_payments"`
	SendSecondPaymentReminders string `yaml:"send_second_payment_reminders"`
	ReconcilePaymentStatuses   string `yaml:"reconcile_payment_statuses"`
	AdvanceBookingStatuses     string `yaml:"advance_booking_statuses"`
	ReminderDaysBeforePickup   int    `yaml:"reminder_days_before_pickup"`
}
