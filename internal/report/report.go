// Package report defines the outbound port for monthly report exports.
package report

import (
	"context"
	"time"

	"fincast/internal/core"
)

// MonthlyRow is one exported report line, one per recomputed month.
type MonthlyRow struct {
	Month       string
	Income      core.Money
	Expenses    core.Money
	Net         core.Money
	SavingsRate float64
	TopCategory string
	Insights    int
	GeneratedAt time.Time
}

// Appender receives finished monthly rows. Implementations decide the
// destination; the worker treats export as best effort.
type Appender interface {
	AppendMonthlyRow(ctx context.Context, row MonthlyRow) error
}
