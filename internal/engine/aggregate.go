package engine

import "fincast/internal/core"

// TrendDirection classifies a value against its previous-period
// counterpart.
type TrendDirection string

const (
	TrendUp   TrendDirection = "up"
	TrendDown TrendDirection = "down"
	TrendFlat TrendDirection = "flat"
)

// Polarity states whether growth in a series is good news. Expense series
// carry PolarityCost (a decrease is favorable), income series PolarityGain.
// The rule is an explicit parameter so call sites never infer it from
// context.
type Polarity int

const (
	PolarityGain Polarity = iota
	PolarityCost
)

// Trend pairs a direction with whether that direction is favorable under
// the series' polarity.
type Trend struct {
	Direction TrendDirection
	Favorable bool
}

// Comparison holds the percentage change of each total against the
// equivalent previous period. A previous total of zero yields a change of
// zero, which makes "no prior data" indistinguishable from "no change";
// that is a documented limitation, not something to paper over.
type Comparison struct {
	Income       float64
	Expenses     float64
	IncomeTrend  Trend
	ExpenseTrend Trend
	HasPrevious  bool
}

// PeriodSummary is the aggregate view of one period.
type PeriodSummary struct {
	Income      core.Money
	Expenses    core.Money
	Net         core.Money
	SavingsRate float64
	Comparison  Comparison
}

// ClassifyTrend compares a value against its predecessor under the given
// polarity.
func ClassifyTrend(current, previous int64, polarity Polarity) Trend {
	switch {
	case current > previous:
		return Trend{Direction: TrendUp, Favorable: polarity == PolarityGain}
	case current < previous:
		return Trend{Direction: TrendDown, Favorable: polarity == PolarityCost}
	default:
		return Trend{Direction: TrendFlat, Favorable: true}
	}
}

// PercentChange is the relative change from previous to current, in
// percent. Defined as 0 when previous is 0 to keep the result finite.
func PercentChange(current, previous int64) float64 {
	if previous == 0 {
		return 0
	}
	return float64(current-previous) / float64(previous) * 100
}

// Summarize reduces a period's totals into a summary, comparing against the
// equivalent previous period. savingsRate is net as a share of gross income
// and is 0 whenever income is 0, never NaN or Inf.
func Summarize(current, previous MonthBucket) PeriodSummary {
	net := current.Income.Sub(current.Expenses)

	var savingsRate float64
	if current.Income.Cents > 0 {
		savingsRate = float64(net.Cents) / float64(current.Income.Cents) * 100
	}

	hasPrevious := previous.Income.Cents != 0 || previous.Expenses.Cents != 0
	return PeriodSummary{
		Income:      current.Income,
		Expenses:    current.Expenses,
		Net:         net,
		SavingsRate: savingsRate,
		Comparison: Comparison{
			Income:       PercentChange(current.Income.Cents, previous.Income.Cents),
			Expenses:     PercentChange(current.Expenses.Cents, previous.Expenses.Cents),
			IncomeTrend:  ClassifyTrend(current.Income.Cents, previous.Income.Cents, PolarityGain),
			ExpenseTrend: ClassifyTrend(current.Expenses.Cents, previous.Expenses.Cents, PolarityCost),
			HasPrevious:  hasPrevious,
		},
	}
}

// SummarizePeriod filters the raw records down to the period and its
// predecessor and summarizes them. This is the main aggregation entry point
// for callers holding full snapshots.
func SummarizePeriod(expenses []core.Expense, incomes []core.Income, p Period) PeriodSummary {
	prev := p.Previous()
	current := MonthBucket{
		Income:   TotalIncomes(FilterIncomes(incomes, p)),
		Expenses: TotalExpenses(FilterExpenses(expenses, p)),
	}
	previous := MonthBucket{
		Income:   TotalIncomes(FilterIncomes(incomes, prev)),
		Expenses: TotalExpenses(FilterExpenses(expenses, prev)),
	}
	return Summarize(current, previous)
}
