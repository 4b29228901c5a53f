package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryExpense is spend aggregated by category name.
type CategoryExpense struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// Summary covers one half-open [start, end) window.
// Net is always Income - Expenses.
type Summary struct {
	PeriodStart time.Time         `json:"period_start"`
	PeriodEnd   time.Time         `json:"period_end"`
	Income      decimal.Decimal   `json:"income"`
	Expenses    decimal.Decimal   `json:"expenses"`
	Net         decimal.Decimal   `json:"net"`
	ByCategory  []CategoryExpense `json:"by_category,omitempty"`
}
