package engine

import (
	"testing"
	"time"

	"fincast/internal/core"
)

func expense(id string, cents int64, categoryID string, date time.Time) core.Expense {
	return core.Expense{
		ID:         id,
		Title:      id,
		Amount:     core.Money{Cents: cents},
		CategoryID: categoryID,
		Date:       date,
	}
}

func receivedIncome(id string, cents int64, date time.Time) core.Income {
	return core.Income{
		ID:         id,
		Title:      id,
		Amount:     core.Money{Cents: cents},
		Status:     core.IncomeReceived,
		ActualDate: date,
	}
}

func TestGroupByMonthConservation(t *testing.T) {
	jan := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)

	expenses := []core.Expense{
		expense("rent", 120000, "housing", jan),
		expense("food", 35000, "food", jan),
		expense("fuel", 8000, "transport", feb),
	}
	incomes := []core.Income{
		receivedIncome("salary-jan", 300000, jan),
		receivedIncome("salary-feb", 300000, feb),
	}

	buckets := GroupByMonth(expenses, incomes)

	var gotExpenses, gotIncome int64
	for _, b := range buckets {
		gotExpenses += b.Expenses.Cents
		gotIncome += b.Income.Cents
	}
	if gotExpenses != 163000 {
		t.Errorf("expense total across buckets = %d, want 163000", gotExpenses)
	}
	if gotIncome != 600000 {
		t.Errorf("income total across buckets = %d, want 600000", gotIncome)
	}

	if b := buckets["2024-01"]; b.Expenses.Cents != 155000 || b.Income.Cents != 300000 {
		t.Errorf("january bucket = %+v", b)
	}
	if b := buckets["2024-02"]; b.Expenses.Cents != 8000 {
		t.Errorf("february expenses = %d, want 8000", b.Expenses.Cents)
	}
}

func TestIncomeEffectiveDateFallback(t *testing.T) {
	actual := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	expected := time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)
	created := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		income core.Income
		want   time.Time
	}{
		{
			name:   "actual date wins",
			income: core.Income{ActualDate: actual, ExpectedDate: expected, CreatedAt: created},
			want:   actual,
		},
		{
			name:   "expected date next",
			income: core.Income{ExpectedDate: expected, CreatedAt: created},
			want:   expected,
		},
		{
			name:   "created at last",
			income: core.Income{CreatedAt: created},
			want:   created,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.income.EffectiveDate(); !got.Equal(tt.want) {
				t.Errorf("EffectiveDate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGroupByCategory(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	categories := []core.Category{
		{ID: "food", Name: "Food", Order: 1},
		{ID: "transport", Name: "Transport", Order: 2},
		{ID: "fun", Name: "Fun", Order: 3},
	}
	index := core.CategoryIndex(categories)
	expenses := []core.Expense{
		expense("groceries", 50000, "food", day),
		expense("bus", 10000, "transport", day),
		expense("cinema", 10000, "fun", day),
		expense("ghost", 5000, "deleted-category", day),
	}

	buckets := GroupByCategory(expenses, index, DefaultGroupOptions())
	if len(buckets) != 4 {
		t.Fatalf("bucket count = %d, want 4", len(buckets))
	}
	if buckets[0].Category.ID != "food" {
		t.Errorf("top category = %s, want food", buckets[0].Category.ID)
	}
	// 10000-cent tie between transport and fun breaks by category order.
	if buckets[1].Category.ID != "transport" || buckets[2].Category.ID != "fun" {
		t.Errorf("tie order = %s, %s; want transport, fun", buckets[1].Category.ID, buckets[2].Category.ID)
	}
	// The stale reference resolves to the sentinel rather than failing.
	if buckets[3].Category.ID != core.OtherCategoryID {
		t.Errorf("dangling reference bucket = %s, want %s", buckets[3].Category.ID, core.OtherCategoryID)
	}

	var sum int64
	for _, b := range buckets {
		sum += b.Total.Cents
	}
	if sum != 75000 {
		t.Errorf("bucket totals sum = %d, want 75000 (conservation)", sum)
	}
}

func TestGroupByCategoryTopK(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	var categories []core.Category
	var expenses []core.Expense
	amounts := []int64{90000, 80000, 70000, 60000, 50000}
	ids := []string{"a", "b", "c", "d", "e"}
	for i, id := range ids {
		categories = append(categories, core.Category{ID: id, Name: id, Order: i})
		expenses = append(expenses, expense(id, amounts[i], id, day))
	}
	index := core.CategoryIndex(categories)

	t.Run("remainder folded into Other", func(t *testing.T) {
		buckets := GroupByCategory(expenses, index, GroupOptions{TopK: 3, IncludeRemainder: true})
		if len(buckets) != 4 {
			t.Fatalf("bucket count = %d, want 4", len(buckets))
		}
		last := buckets[len(buckets)-1]
		if last.Category.ID != core.OtherCategoryID {
			t.Errorf("remainder bucket = %s, want sentinel", last.Category.ID)
		}
		if last.Total.Cents != 110000 {
			t.Errorf("remainder total = %d, want 110000", last.Total.Cents)
		}
	})

	t.Run("remainder dropped when disabled", func(t *testing.T) {
		buckets := GroupByCategory(expenses, index, GroupOptions{TopK: 3, IncludeRemainder: false})
		if len(buckets) != 3 {
			t.Fatalf("bucket count = %d, want 3", len(buckets))
		}
		for _, b := range buckets {
			if b.Category.ID == core.OtherCategoryID {
				t.Error("unexpected remainder bucket with IncludeRemainder off")
			}
		}
	})
}

func TestGroupByCategoryRemainderMergesIntoOther(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	categories := []core.Category{
		{ID: "a", Name: "A", Order: 1},
		{ID: "b", Name: "B", Order: 2},
		{ID: "c", Name: "C", Order: 3},
		{ID: "d", Name: "D", Order: 4},
	}
	index := core.CategoryIndex(categories)
	// The dangling reference puts a sentinel slot in the top-K head while
	// c and d fold into the remainder.
	expenses := []core.Expense{
		expense("mystery", 90000, "deleted-category", day),
		expense("a", 80000, "a", day),
		expense("b", 70000, "b", day),
		expense("c", 5000, "c", day),
		expense("d", 4000, "d", day),
	}

	buckets := GroupByCategory(expenses, index, GroupOptions{TopK: 3, IncludeRemainder: true})

	var others int
	for _, b := range buckets {
		if b.Category.ID == core.OtherCategoryID {
			others++
		}
	}
	if others != 1 {
		t.Fatalf("Other bucket count = %d, want exactly 1 (%+v)", others, buckets)
	}

	if len(buckets) != 3 {
		t.Fatalf("bucket count = %d, want 3", len(buckets))
	}
	if buckets[0].Category.ID != core.OtherCategoryID {
		t.Errorf("top bucket = %s, want sentinel", buckets[0].Category.ID)
	}
	if buckets[0].Total.Cents != 99000 {
		t.Errorf("merged Other total = %d, want 99000", buckets[0].Total.Cents)
	}

	var sum int64
	for _, b := range buckets {
		sum += b.Total.Cents
	}
	if sum != 249000 {
		t.Errorf("bucket totals sum = %d, want 249000 (conservation)", sum)
	}
}

func TestGroupByCategoryEmpty(t *testing.T) {
	if got := GroupByCategory(nil, nil, DefaultGroupOptions()); len(got) != 0 {
		t.Errorf("empty input produced %d buckets", len(got))
	}
}

func TestFilterByPeriod(t *testing.T) {
	p := MonthPeriod(2024, time.January)
	expenses := []core.Expense{
		expense("in", 1000, "food", time.Date(2024, 1, 31, 23, 59, 0, 0, time.UTC)),
		expense("out", 2000, "food", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)),
	}
	got := FilterExpenses(expenses, p)
	if len(got) != 1 || got[0].ID != "in" {
		t.Errorf("FilterExpenses kept %v, want just the January record", got)
	}
}
