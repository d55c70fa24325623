package engine

import (
	"sort"

	"fincast/internal/core"
)

// DefaultTopCategories caps the category breakdown size unless the caller
// asks otherwise.
const DefaultTopCategories = 8

// MonthBucket holds the income and expense totals for one YYYY-MM key.
type MonthBucket struct {
	Month    string
	Income   core.Money
	Expenses core.Money
}

// CategoryBucket is one slice of the category breakdown.
type CategoryBucket struct {
	Category   core.Category
	Total      core.Money
	Percentage float64
}

// GroupOptions tunes the category breakdown. TopK <= 0 means
// DefaultTopCategories. IncludeRemainder folds everything beyond the top K
// into the sentinel Other bucket so no spend disappears from the breakdown;
// with it off the tail is dropped, matching chart-style call sites that only
// want the leading slices.
type GroupOptions struct {
	TopK             int
	IncludeRemainder bool
}

// DefaultGroupOptions keeps the remainder visible: dropping it silently
// breaks total preservation for any caller that sums the buckets.
func DefaultGroupOptions() GroupOptions {
	return GroupOptions{TopK: DefaultTopCategories, IncludeRemainder: true}
}

// GroupByMonth partitions expenses and incomes into calendar-month buckets.
// The grouping is total-preserving: every record lands in exactly one
// bucket. Incomes are dated by their effective-date fallback chain.
func GroupByMonth(expenses []core.Expense, incomes []core.Income) map[string]MonthBucket {
	buckets := make(map[string]MonthBucket)
	for _, e := range expenses {
		key := core.MonthKey(e.Date)
		b := buckets[key]
		b.Month = key
		b.Expenses = b.Expenses.Add(e.Amount)
		buckets[key] = b
	}
	for _, i := range incomes {
		key := core.MonthKey(i.EffectiveDate())
		b := buckets[key]
		b.Month = key
		b.Income = b.Income.Add(i.Amount)
		buckets[key] = b
	}
	return buckets
}

// MonthsAscending flattens a month-bucket map into chronological order.
// YYYY-MM keys sort lexicographically, so plain string order is date order.
func MonthsAscending(buckets map[string]MonthBucket) []MonthBucket {
	out := make([]MonthBucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// GroupByCategory reduces expenses into per-category totals, resolved
// through the category index (dangling references land on the sentinel
// Other category). Buckets sort descending by total; ties break by the
// category's configured order and then by first appearance, keeping the
// result deterministic.
func GroupByCategory(expenses []core.Expense, index map[string]core.Category, opts GroupOptions) []CategoryBucket {
	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopCategories
	}

	type slot struct {
		category core.Category
		total    int64
		seen     int
	}
	slots := make(map[string]*slot)
	order := 0
	var grand int64
	for _, e := range expenses {
		c := core.ResolveCategory(index, e.CategoryID)
		s, ok := slots[c.ID]
		if !ok {
			s = &slot{category: c, seen: order}
			order++
			slots[c.ID] = s
		}
		s.total += e.Amount.Cents
		grand += e.Amount.Cents
	}
	if len(slots) == 0 {
		return nil
	}

	sortSlots := func(s []*slot) {
		sort.Slice(s, func(i, j int) bool {
			if s[i].total != s[j].total {
				return s[i].total > s[j].total
			}
			if s[i].category.Order != s[j].category.Order {
				return s[i].category.Order < s[j].category.Order
			}
			return s[i].seen < s[j].seen
		})
	}

	all := make([]*slot, 0, len(slots))
	for _, s := range slots {
		all = append(all, s)
	}
	sortSlots(all)

	head := all
	var remainder int64
	if len(all) > topK {
		head = all[:topK]
		for _, s := range all[topK:] {
			remainder += s.total
		}
	}

	// Imported records can legitimately carry the sentinel id, so the head
	// may already hold an Other slot; fold the tail into it instead of
	// emitting a second Other bucket.
	if remainder > 0 && opts.IncludeRemainder {
		for _, s := range head {
			if s.category.ID == core.OtherCategoryID {
				s.total += remainder
				remainder = 0
				sortSlots(head)
				break
			}
		}
	}

	buckets := make([]CategoryBucket, 0, len(head)+1)
	for _, s := range head {
		buckets = append(buckets, CategoryBucket{
			Category:   s.category,
			Total:      core.Money{Cents: s.total},
			Percentage: percentOf(s.total, grand),
		})
	}
	if remainder > 0 && opts.IncludeRemainder {
		buckets = append(buckets, CategoryBucket{
			Category:   core.OtherCategory(),
			Total:      core.Money{Cents: remainder},
			Percentage: percentOf(remainder, grand),
		})
	}
	return buckets
}

// FilterExpenses returns the expenses dated inside the period, in input
// order.
func FilterExpenses(expenses []core.Expense, p Period) []core.Expense {
	var out []core.Expense
	for _, e := range expenses {
		if p.Contains(e.Date) {
			out = append(out, e)
		}
	}
	return out
}

// FilterIncomes returns the incomes whose effective date falls inside the
// period, in input order.
func FilterIncomes(incomes []core.Income, p Period) []core.Income {
	var out []core.Income
	for _, i := range incomes {
		if p.Contains(i.EffectiveDate()) {
			out = append(out, i)
		}
	}
	return out
}

// TotalExpenses sums expense amounts.
func TotalExpenses(expenses []core.Expense) core.Money {
	var total int64
	for _, e := range expenses {
		total += e.Amount.Cents
	}
	return core.Money{Cents: total}
}

// TotalIncomes sums income amounts.
func TotalIncomes(incomes []core.Income) core.Money {
	var total int64
	for _, i := range incomes {
		total += i.Amount.Cents
	}
	return core.Money{Cents: total}
}

func percentOf(part, whole int64) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
