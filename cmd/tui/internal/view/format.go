package view

import (
	"context"
	"fmt"
	"time"

	"github.com/MrJamesThe3rd/bnpl/internal/creditline"
	"github.com/MrJamesThe3rd/bnpl/internal/money"
)

const dbTimeout = 5 * time.Second

// FormatAmount formats an amount in minor units of the line's currency.
func FormatAmount(amount int64, currency creditline.Currency) string {
	return money.Format(amount, string(currency))
}

// FormatDate formats a time.Time into YYYY-MM-DD.
func FormatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}

	return t.Format("2006-01-02")
}

func FormatPct(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

// DbCtx returns a context with a standard timeout for database operations.
func DbCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), dbTimeout)
}
