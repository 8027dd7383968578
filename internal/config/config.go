package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"Payrecon"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		Host        string        `envconfig:"DB_HOST" default:"localhost"`
		Port        int           `envconfig:"DB_PORT" default:"5432"`
		User        string        `envconfig:"DB_USER" default:"postgres"`
		Password    string        `envconfig:"DB_PASSWORD" default:""`
		Name        string        `envconfig:"DB_NAME" default:"payrecon"`
		LockTimeout time.Duration `envconfig:"DB_LOCK_TIMEOUT" default:"5s"`
	}

	Server struct {
		Timeout        time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		AllowedOrigins []string      `envconfig:"HTTP_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	}

	Redis struct {
		Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
		Password string `envconfig:"REDIS_PASSWORD" default:""`
		DB       int    `envconfig:"REDIS_DB" default:"0"`
	}

	Queue struct {
		Prefix            string        `envconfig:"QUEUE_PREFIX" default:"payrecon"`
		Workers           int           `envconfig:"WORKER_COUNT" default:"4"`
		MaxAttempts       int           `envconfig:"JOB_MAX_ATTEMPTS" default:"5"`
		BackoffBase       time.Duration `envconfig:"JOB_BACKOFF_BASE" default:"2s"`
		BackoffMax        time.Duration `envconfig:"JOB_BACKOFF_MAX" default:"5m"`
		VisibilityTimeout time.Duration `envconfig:"JOB_VISIBILITY_TIMEOUT" default:"10m"`
	}

	// Billing values are frozen onto each invoice at creation time.
	Billing struct {
		CommissionRate  decimal.Decimal `envconfig:"COMMISSION_RATE" default:"0.10"`
		DefaultCurrency string          `envconfig:"DEFAULT_CURRENCY" default:"USD"`
	}

	Auth struct {
		JWTSecret string `envconfig:"AUTH_JWT_SECRET"`
	}

	Gateways struct {
		StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

// MigrationURL is the connection string in the form expected by the
// golang-migrate pgx/v5 driver.
func (c *Config) MigrationURL() string {
	return "pgx5" + strings.TrimPrefix(c.ConnectionString(), "postgres")
}

const commissionRateScale = 5

func (c *Config) Validate() error {
	rate := c.Billing.CommissionRate
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("commission rate %s must be between 0 and 1", rate)
	}

	// invoices.commission_rate is NUMERIC(6,5).
	if !rate.Equal(rate.Truncate(commissionRateScale)) {
		return fmt.Errorf("commission rate %s has more than %d decimal places", rate, commissionRateScale)
	}

	if _, err := currency.ParseISO(c.Billing.DefaultCurrency); err != nil {
		return fmt.Errorf("default currency %q: %w", c.Billing.DefaultCurrency, err)
	}

	if c.Queue.MaxAttempts < 1 {
		return errors.New("job max attempts must be at least 1")
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	cfg.Billing.DefaultCurrency = strings.ToUpper(cfg.Billing.DefaultCurrency)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
