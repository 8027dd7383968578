package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	type testCase struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}

	tests := []testCase{
		{name: "Defaults", mutate: func(*Config) {}},
		{
			name:   "FiveDecimalPlaces",
			mutate: func(c *Config) { c.Billing.CommissionRate = decimal.RequireFromString("0.12345") },
		},
		{
			name:   "TrailingZeros",
			mutate: func(c *Config) { c.Billing.CommissionRate = decimal.RequireFromString("0.1000000") },
		},
		{
			name:    "SixDecimalPlaces",
			mutate:  func(c *Config) { c.Billing.CommissionRate = decimal.RequireFromString("0.123456") },
			wantErr: "more than 5 decimal places",
		},
		{
			name:    "RateAboveOne",
			mutate:  func(c *Config) { c.Billing.CommissionRate = decimal.RequireFromString("1.5") },
			wantErr: "between 0 and 1",
		},
		{
			name:    "NegativeRate",
			mutate:  func(c *Config) { c.Billing.CommissionRate = decimal.RequireFromString("-0.1") },
			wantErr: "between 0 and 1",
		},
		{
			name:    "UnknownCurrency",
			mutate:  func(c *Config) { c.Billing.DefaultCurrency = "ZZZZ" },
			wantErr: "default currency",
		},
		{
			name:    "NoAttempts",
			mutate:  func(c *Config) { c.Queue.MaxAttempts = 0 },
			wantErr: "max attempts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			c.Billing.CommissionRate = decimal.RequireFromString("0.10")
			c.Billing.DefaultCurrency = "USD"
			c.Queue.MaxAttempts = 5
			tt.mutate(&c)

			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}

			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
