package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"fincast/internal/core"
)

// ForecastHistoryMonths bounds how much history feeds the rolling averages.
const ForecastHistoryMonths = 6

// ForecastMonth is one projected month. Cumulative carries the running net
// forward from the historical months through the forecast, so emission
// order matters.
type ForecastMonth struct {
	Month      string
	Income     core.Money
	Expenses   core.Money
	Net        core.Money
	Cumulative core.Money
	IsForecast bool
}

var (
	trendDamping    = decimal.NewFromFloat(0.5)
	multiplierFloor = decimal.NewFromFloat(0.5)
	multiplierCeil  = decimal.NewFromFloat(1.5)
)

// Forecast projects horizon months past the given history. History must be
// the chronologically ordered month buckets; only the most recent
// ForecastHistoryMonths of it are considered. Income is projected flat at
// its historical mean (a documented simplifying assumption); expenses get a
// dampened linear trend derived from the head and tail 3-month windows of
// the history, clamped per month to [0.5, 1.5] of the mean.
//
// All intermediate arithmetic stays in decimal; amounts round to whole
// currency units only at emission so the cumulative walk does not compound
// rounding error. A non-positive horizon yields an empty slice and an empty
// history yields all-zero months; neither is an error.
func Forecast(history []MonthBucket, horizon int, referenceDate time.Time) []ForecastMonth {
	if horizon <= 0 {
		return nil
	}
	if len(history) > ForecastHistoryMonths {
		history = history[len(history)-ForecastHistoryMonths:]
	}

	avgIncome, avgExpenses := historicalAverages(history)
	trend := expenseTrend(history)

	// Seed the cumulative walk from the history's final cumulative net.
	cumulative := decimal.Zero
	for _, b := range history {
		cumulative = cumulative.Add(b.Income.Decimal().Sub(b.Expenses.Decimal()))
	}

	startMonth := nextMonthAfter(history, referenceDate)

	out := make([]ForecastMonth, 0, horizon)
	for i := 1; i <= horizon; i++ {
		multiplier := decimal.NewFromInt(1).Add(
			trend.Mul(trendDamping).Mul(decimal.NewFromInt(int64(i))))
		if multiplier.LessThan(multiplierFloor) {
			multiplier = multiplierFloor
		}
		if multiplier.GreaterThan(multiplierCeil) {
			multiplier = multiplierCeil
		}

		expenses := avgExpenses.Mul(multiplier)
		if expenses.IsNegative() {
			expenses = decimal.Zero
		}
		net := avgIncome.Sub(expenses)
		cumulative = cumulative.Add(net)

		month := startMonth.AddDate(0, i-1, 0)
		out = append(out, ForecastMonth{
			Month:      core.MonthKey(month),
			Income:     roundToUnit(avgIncome),
			Expenses:   roundToUnit(expenses),
			Net:        roundToUnit(net),
			Cumulative: roundToUnit(cumulative),
			IsForecast: true,
		})
	}
	return out
}

func historicalAverages(history []MonthBucket) (income, expenses decimal.Decimal) {
	if len(history) == 0 {
		return decimal.Zero, decimal.Zero
	}
	n := decimal.NewFromInt(int64(len(history)))
	for _, b := range history {
		income = income.Add(b.Income.Decimal())
		expenses = expenses.Add(b.Expenses.Decimal())
	}
	return income.Div(n), expenses.Div(n)
}

// expenseTrend measures relative growth between the oldest and newest
// 3-month windows of the history. Fewer than two data points, or an older
// window averaging zero, mean no usable slope: the trend is zero.
func expenseTrend(history []MonthBucket) decimal.Decimal {
	if len(history) < 2 {
		return decimal.Zero
	}
	window := 3
	if window > len(history) {
		window = len(history)
	}
	older := windowAverage(history[:window])
	recent := windowAverage(history[len(history)-window:])
	if older.IsZero() {
		return decimal.Zero
	}
	return recent.Sub(older).Div(older)
}

func windowAverage(buckets []MonthBucket) decimal.Decimal {
	if len(buckets) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, b := range buckets {
		sum = sum.Add(b.Expenses.Decimal())
	}
	return sum.Div(decimal.NewFromInt(int64(len(buckets))))
}

// nextMonthAfter picks the first forecast month: the month following the
// last historical bucket, or the month after the reference date when there
// is no history to extend.
func nextMonthAfter(history []MonthBucket, referenceDate time.Time) time.Time {
	if len(history) > 0 {
		if t, err := time.Parse("2006-01", history[len(history)-1].Month); err == nil {
			return t.AddDate(0, 1, 0)
		}
	}
	return time.Date(referenceDate.Year(), referenceDate.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}

// roundToUnit rounds to the nearest whole currency unit at emission time.
func roundToUnit(d decimal.Decimal) core.Money {
	return core.Money{Cents: d.Round(0).IntPart() * 100}
}
