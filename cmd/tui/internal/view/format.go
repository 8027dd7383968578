package view

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

const dbTimeout = 5 * time.Second

// FormatAmount renders an amount held in minor units using the currency's
// standard number of decimals, e.g. 12345 USD is "USD 123.45" and 500 JPY
// is "JPY 500". Unknown currency codes fall back to two decimals.
func FormatAmount(amount int64, code string) string {
	scale := 2

	unit, err := currency.ParseISO(code)
	if err == nil {
		scale, _ = currency.Standard.Rounding(unit)
	}

	value := decimal.New(amount, -int32(scale)).StringFixed(int32(scale))
	if err != nil {
		return value
	}

	return unit.String() + " " + value
}

// FormatTime formats a time.Time into YYYY-MM-DD HH:MM.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}

	return t.Format("2006-01-02 15:04")
}

// DbCtx returns a context with a standard timeout for database and queue
// operations.
func DbCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), dbTimeout)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}

	return string(r[:n-1]) + "…"
}
