package engine

import (
	"math"
	"testing"
	"time"

	"fincast/internal/core"
)

func TestSummarizeWorkedExample(t *testing.T) {
	// incomes: 10000 received 2024-01-05; expenses: 3000 on 2024-01-10.
	incomes := []core.Income{
		receivedIncome("salary", 1000000, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)),
	}
	expenses := []core.Expense{
		expense("groceries", 300000, "food", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)),
	}

	s := SummarizePeriod(expenses, incomes, MonthPeriod(2024, time.January))

	if s.Income.Cents != 1000000 {
		t.Errorf("income = %d, want 1000000", s.Income.Cents)
	}
	if s.Expenses.Cents != 300000 {
		t.Errorf("expenses = %d, want 300000", s.Expenses.Cents)
	}
	if s.Net.Cents != 700000 {
		t.Errorf("net = %d, want 700000", s.Net.Cents)
	}
	if s.SavingsRate != 70 {
		t.Errorf("savings rate = %v, want 70", s.SavingsRate)
	}
}

func TestSavingsRateBoundedness(t *testing.T) {
	tests := []struct {
		name     string
		income   int64
		expenses int64
		want     float64
	}{
		{"zero income", 0, 50000, 0},
		{"zero everything", 0, 0, 0},
		{"overspend", 100000, 150000, -50},
		{"break even", 100000, 100000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Summarize(MonthBucket{
				Income:   core.Money{Cents: tt.income},
				Expenses: core.Money{Cents: tt.expenses},
			}, MonthBucket{})
			if math.IsNaN(s.SavingsRate) || math.IsInf(s.SavingsRate, 0) {
				t.Fatalf("savings rate not finite: %v", s.SavingsRate)
			}
			if s.SavingsRate != tt.want {
				t.Errorf("savings rate = %v, want %v", s.SavingsRate, tt.want)
			}
		})
	}
}

func TestPercentChange(t *testing.T) {
	tests := []struct {
		name              string
		current, previous int64
		want              float64
	}{
		{"growth", 150, 100, 50},
		{"decline", 50, 100, -50},
		{"no previous data reads as no change", 500, 0, 0},
		{"flat", 100, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PercentChange(tt.current, tt.previous); got != tt.want {
				t.Errorf("PercentChange(%d, %d) = %v, want %v", tt.current, tt.previous, got, tt.want)
			}
		})
	}
}

func TestClassifyTrendPolarity(t *testing.T) {
	tests := []struct {
		name              string
		current, previous int64
		polarity          Polarity
		wantDir           TrendDirection
		wantFavorable     bool
	}{
		{"income up is favorable", 200, 100, PolarityGain, TrendUp, true},
		{"income down is unfavorable", 100, 200, PolarityGain, TrendDown, false},
		{"expense up is unfavorable", 200, 100, PolarityCost, TrendUp, false},
		{"expense down is favorable", 100, 200, PolarityCost, TrendDown, true},
		{"flat is always favorable", 100, 100, PolarityCost, TrendFlat, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyTrend(tt.current, tt.previous, tt.polarity)
			if got.Direction != tt.wantDir || got.Favorable != tt.wantFavorable {
				t.Errorf("ClassifyTrend = %+v, want {%s %v}", got, tt.wantDir, tt.wantFavorable)
			}
		})
	}
}

func TestSummarizeComparison(t *testing.T) {
	current := MonthBucket{Income: core.Money{Cents: 100000}, Expenses: core.Money{Cents: 46000}}
	previous := MonthBucket{Income: core.Money{Cents: 100000}, Expenses: core.Money{Cents: 40000}}

	s := Summarize(current, previous)
	if s.Comparison.Expenses != 15 {
		t.Errorf("expense change = %v, want 15", s.Comparison.Expenses)
	}
	if s.Comparison.ExpenseTrend.Direction != TrendUp || s.Comparison.ExpenseTrend.Favorable {
		t.Errorf("expense trend = %+v, want unfavorable up", s.Comparison.ExpenseTrend)
	}
	if !s.Comparison.HasPrevious {
		t.Error("HasPrevious = false with non-empty previous bucket")
	}
}

func TestSummarizeEmptyDataset(t *testing.T) {
	s := SummarizePeriod(nil, nil, MonthPeriod(2024, time.January))
	if s.Income.Cents != 0 || s.Expenses.Cents != 0 || s.Net.Cents != 0 || s.SavingsRate != 0 {
		t.Errorf("empty dataset summary not all-zero: %+v", s)
	}
}
