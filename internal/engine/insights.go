package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"fincast/internal/core"
)

// MaxInsights caps the generated list. Rules are evaluated unconditionally
// and in declaration order; the cap truncates, it never reorders.
const MaxInsights = 6

// InsightType is the severity/flavor of a generated insight.
type InsightType string

const (
	InsightPositive   InsightType = "positive"
	InsightInfo       InsightType = "info"
	InsightWarning    InsightType = "warning"
	InsightSuggestion InsightType = "suggestion"
)

// Insight is a transient, derived fact for human consumption. It is
// regenerated on every engine run and never persisted.
type Insight struct {
	ID      string      `json:"id"`
	Type    InsightType `json:"type"`
	Title   string      `json:"title"`
	Message string      `json:"message"`
	Value   float64     `json:"value,omitempty"`
	Trend   string      `json:"trend,omitempty"`
}

// CurrencyFormatter renders an amount for human-facing messages. Injected
// by the caller so the engine stays locale-agnostic.
type CurrencyFormatter func(core.Money) string

// PlainFormatter is the fallback formatter: bare units with two decimals.
func PlainFormatter(m core.Money) string {
	return fmt.Sprintf("%.2f", m.Units())
}

// Facts is the aggregated input to insight generation. Everything in it is
// already computed; rules only read and compare.
type Facts struct {
	Period     Period
	Summary    PeriodSummary
	Categories []CategoryBucket
	// CategoryIndex resolves category ids in budget lines to names.
	CategoryIndex map[string]core.Category
	// DaySpend accumulates spend per weekday over the period.
	DaySpend map[time.Weekday]core.Money
	// Budget is the current month's budget, zero-valued when absent.
	Budget core.Budget
	Goals  []core.Goal
	// NonEssentialShare is non-essential spend as a percentage of period
	// total.
	NonEssentialShare float64
}

// BuildFacts filters a snapshot down to the period and precomputes
// everything the insight rules read.
func BuildFacts(categories []core.Category, expenses []core.Expense, incomes []core.Income, budget core.Budget, goals []core.Goal, p Period) Facts {
	index := core.CategoryIndex(categories)
	inPeriod := FilterExpenses(expenses, p)

	daySpend := make(map[time.Weekday]core.Money)
	var nonEssential, total int64
	for _, e := range inPeriod {
		daySpend[e.Date.Weekday()] = daySpend[e.Date.Weekday()].Add(e.Amount)
		total += e.Amount.Cents
		if !core.ResolveCategory(index, e.CategoryID).IsEssential {
			nonEssential += e.Amount.Cents
		}
	}

	return Facts{
		Period:            p,
		Summary:           SummarizePeriod(expenses, incomes, p),
		Categories:        GroupByCategory(inPeriod, index, DefaultGroupOptions()),
		CategoryIndex:     index,
		DaySpend:          daySpend,
		Budget:            budget,
		Goals:             goals,
		NonEssentialShare: percentOf(nonEssential, total),
	}
}

// Thresholds for the rule table. Percentages throughout.
const (
	spendSpikeThreshold       = 15.0
	spendImprovementThreshold = -10.0
	dominantCategoryShare     = 40.0
	discretionaryShare        = 30.0
)

// GenerateInsights runs the fixed rule table over the facts and returns at
// most MaxInsights insights. Each rule fires independently; truncation in
// declaration order is deliberate policy, relied on by deterministic
// expectations downstream.
func GenerateInsights(facts Facts, format CurrencyFormatter) []Insight {
	if format == nil {
		format = PlainFormatter
	}

	var out []Insight
	add := func(t InsightType, title, message string, value float64, trend string) {
		out = append(out, Insight{
			ID:      uuid.NewString(),
			Type:    t,
			Title:   title,
			Message: message,
			Value:   value,
			Trend:   trend,
		})
	}

	// Month-over-month spend spike / improvement.
	change := facts.Summary.Comparison.Expenses
	if change > spendSpikeThreshold {
		add(InsightWarning, "Spending is up sharply",
			fmt.Sprintf("Expenses rose %.0f%% compared with the previous period.", change),
			change, string(TrendUp))
	}
	if change < spendImprovementThreshold {
		add(InsightPositive, "Spending is down",
			fmt.Sprintf("Expenses fell %.0f%% compared with the previous period.", -change),
			change, string(TrendDown))
	}

	// Savings-rate tiers. The <0 branch is deliberate: the reference rule
	// table left overspending uncovered, which meant the users most in
	// trouble got no savings insight at all.
	rate := facts.Summary.SavingsRate
	switch {
	case rate >= 20:
		add(InsightPositive, "Strong savings rate",
			fmt.Sprintf("You kept %.0f%% of your income this period.", rate), rate, "")
	case rate >= 10:
		add(InsightInfo, "Steady savings rate",
			fmt.Sprintf("You kept %.0f%% of your income this period.", rate), rate, "")
	case rate >= 0 && rate < 5 && facts.Summary.Income.Cents > 0:
		add(InsightWarning, "Thin savings margin",
			fmt.Sprintf("Only %.0f%% of income left after expenses.", rate), rate, "")
	case rate < 0:
		add(InsightWarning, "Spending exceeds income",
			fmt.Sprintf("Expenses outpaced income by %s this period.",
				format(facts.Summary.Net.Neg())), rate, string(TrendDown))
	}

	// Dominant category.
	if len(facts.Categories) > 0 {
		top := facts.Categories[0]
		if top.Percentage > dominantCategoryShare {
			add(InsightInfo, "One category dominates",
				fmt.Sprintf("%s accounts for %.0f%% of this period's spending (%s).",
					top.Category.Name, top.Percentage, format(top.Total)), top.Percentage, "")
		}
	}

	// Day-of-week concentration.
	if day, amount, ok := peakSpendDay(facts.DaySpend); ok {
		add(InsightInfo, "Busiest spending day",
			fmt.Sprintf("%ss carry your highest spend this period (%s).",
				day.String(), format(amount)), amount.Units(), "")
	}

	// Budget overrun, one insight per offending category; the cap decides
	// how many actually surface. All-clear only when a budget exists.
	overrun := false
	for _, cb := range facts.Budget.CategoryBudgets {
		if cb.Planned.Cents > 0 && cb.Spent.Cents > cb.Planned.Cents {
			overrun = true
			name := core.ResolveCategory(facts.CategoryIndex, cb.CategoryID).Name
			add(InsightWarning, "Budget exceeded",
				fmt.Sprintf("Spending in %s is %s over its budget.",
					name, format(cb.Spent.Sub(cb.Planned))),
				cb.Percentage, string(TrendUp))
		}
	}
	if !overrun && len(facts.Budget.CategoryBudgets) > 0 {
		add(InsightPositive, "All budgets on track",
			"Every category is within its planned budget this month.", 0, "")
	}

	// Goal progress bands.
	for _, g := range facts.Goals {
		progress := g.Progress()
		switch {
		case progress >= 90 && progress < 100:
			add(InsightPositive, "Goal almost there",
				fmt.Sprintf("%s is %.0f%% funded; %s to go.",
					g.Title, progress, format(g.TargetAmount.Sub(g.CurrentAmount))),
				progress, "")
		case progress >= 50 && progress < 90:
			add(InsightInfo, "Goal past halfway",
				fmt.Sprintf("%s is %.0f%% funded.", g.Title, progress), progress, "")
		}
	}

	// Discretionary-spend opportunity.
	if facts.NonEssentialShare > discretionaryShare {
		add(InsightSuggestion, "Discretionary spending opportunity",
			fmt.Sprintf("%.0f%% of this period's spending was non-essential.",
				facts.NonEssentialShare), facts.NonEssentialShare, "")
	}

	if len(out) > MaxInsights {
		out = out[:MaxInsights]
	}
	return out
}

// peakSpendDay finds the weekday with the highest cumulative spend.
// Weekday order breaks exact ties so the result is stable.
func peakSpendDay(daySpend map[time.Weekday]core.Money) (time.Weekday, core.Money, bool) {
	var best time.Weekday
	var bestAmount core.Money
	found := false
	for d := time.Sunday; d <= time.Saturday; d++ {
		amount, ok := daySpend[d]
		if !ok || amount.Cents == 0 {
			continue
		}
		if !found || amount.Cents > bestAmount.Cents {
			best, bestAmount, found = d, amount, true
		}
	}
	return best, bestAmount, found
}
