package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

const (
	IncomeReceived IncomeStatus = "received"
	IncomePending  IncomeStatus = "pending"
	IncomeExpected IncomeStatus = "expected"
)

const (
	InstallmentActive    InstallmentStatus = "active"
	InstallmentPaused    InstallmentStatus = "paused"
	InstallmentCompleted InstallmentStatus = "completed"
	InstallmentOverdue   InstallmentStatus = "overdue"
)

const (
	PaymentPaid    PaymentStatus = "paid"
	PaymentLate    PaymentStatus = "late"
	PaymentPartial PaymentStatus = "partial"
	PaymentMissed  PaymentStatus = "missed"
)

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
)

// OtherCategoryID is the sentinel category every dangling categoryId
// resolves to. It is never stored; lookups synthesize it on demand.
const OtherCategoryID = "other"

type (
	Frequency         string
	IncomeStatus      string
	InstallmentStatus string
	PaymentStatus     string
	GoalStatus        string

	// Category is the taxonomy entry expenses reference by id.
	Category struct {
		ID          string
		Name        string
		Color       string
		Icon        string
		IsEssential bool
		Order       int
	}

	// Expense is a single spend record. Immutable once created; an edit
	// supersedes it with a new version, a delete removes it.
	Expense struct {
		ID         string
		Title      string
		Amount     Money
		CategoryID string
		Date       time.Time
		Notes      string
	}

	// Income is a single income record. Exactly one of ActualDate and
	// ExpectedDate is set, chosen by Status.
	Income struct {
		ID           string
		Title        string
		Amount       Money
		Type         string
		Status       IncomeStatus
		Frequency    Frequency
		ActualDate   time.Time
		ExpectedDate time.Time
		CreatedAt    time.Time
		IsRecurring  bool
		Notes        string
	}

	// CategoryBudget is the planned-vs-actual line for one category
	// within a monthly budget.
	CategoryBudget struct {
		CategoryID string
		Planned    Money
		Spent      Money
		Remaining  Money
		Percentage float64
	}

	// Budget holds the planned spend for one calendar month, keyed YYYY-MM.
	Budget struct {
		ID              string
		Month           string
		CategoryBudgets []CategoryBudget
	}

	// InstallmentPayment is appended to an installment's history, never
	// mutated. Ordering by date defines the payment history.
	InstallmentPayment struct {
		ID     string
		Date   time.Time
		Amount Money
		Status PaymentStatus
	}

	// Installment tracks a loan or payment plan.
	Installment struct {
		ID                string
		Title             string
		TotalAmount       Money
		InstallmentAmount Money
		TotalInstallments int
		PaidInstallments  int
		Frequency         Frequency
		StartDate         time.Time
		NextPaymentDate   time.Time
		Status            InstallmentStatus
		Payments          []InstallmentPayment
	}

	// GoalMilestone is a checkpoint within a goal. Reached is monotonic:
	// once set it survives later withdrawals, and ReachedAt keeps the
	// first crossing timestamp.
	GoalMilestone struct {
		ID           string
		Title        string
		TargetAmount Money
		Reached      bool
		ReachedAt    time.Time
	}

	// GoalContribution is a signed delta applied to a goal's balance;
	// negative amounts are withdrawals.
	GoalContribution struct {
		ID     string
		Date   time.Time
		Amount Money
		Notes  string
	}

	// Goal is a savings target with optional milestones.
	Goal struct {
		ID                  string
		Title               string
		TargetAmount        Money
		CurrentAmount       Money
		Category            string
		Priority            int
		Deadline            time.Time
		MonthlyContribution Money
		AutoAllocate        bool
		Milestones          []GoalMilestone
		Contributions       []GoalContribution
		Status              GoalStatus
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidDate       = errors.New("invalid date")
	ErrEmptyTitle        = errors.New("empty title")
	ErrEmptyCategory     = errors.New("empty category")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidFrequency  = errors.New("invalid frequency")
	ErrInvalidWithdrawal = errors.New("withdrawal exceeds current amount")
)

// OtherCategory returns the sentinel category used for dangling references.
func OtherCategory() Category {
	return Category{
		ID:          OtherCategoryID,
		Name:        "Other",
		Color:       "#9e9e9e",
		Icon:        "more-horizontal",
		IsEssential: false,
		Order:       1 << 30,
	}
}

// ResolveCategory looks up id in the category index, falling back to the
// sentinel Other category for missing or stale references.
func ResolveCategory(index map[string]Category, id string) Category {
	if c, ok := index[id]; ok {
		return c
	}
	return OtherCategory()
}

// CategoryIndex builds an id lookup from a category slice.
func CategoryIndex(categories []Category) map[string]Category {
	index := make(map[string]Category, len(categories))
	for _, c := range categories {
		index[c.ID] = c
	}
	return index
}

// EffectiveDate returns the date an income counts towards, using the
// documented fallback chain: actual date, then expected date, then creation
// time.
func (i Income) EffectiveDate() time.Time {
	if !i.ActualDate.IsZero() {
		return i.ActualDate
	}
	if !i.ExpectedDate.IsZero() {
		return i.ExpectedDate
	}
	return i.CreatedAt
}

func (f Frequency) Validate() error {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return nil
	}
	return ErrInvalidFrequency
}

func (e Expense) Validate() error {
	if len(strings.TrimSpace(e.Title)) == 0 {
		return ErrEmptyTitle
	}
	if len(e.Title) > 200 {
		return errors.New("title too long (max 200 characters)")
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (i Income) Validate() error {
	if len(strings.TrimSpace(i.Title)) == 0 {
		return ErrEmptyTitle
	}
	if len(i.Title) > 200 {
		return errors.New("title too long (max 200 characters)")
	}
	if err := i.Amount.Validate(); err != nil {
		return err
	}
	switch i.Status {
	case IncomeReceived:
		if i.ActualDate.IsZero() {
			return errors.New("received income requires an actual date")
		}
		if !i.ExpectedDate.IsZero() {
			return errors.New("received income must not carry an expected date")
		}
	case IncomePending, IncomeExpected:
		if i.ExpectedDate.IsZero() {
			return errors.New("pending income requires an expected date")
		}
		if !i.ActualDate.IsZero() {
			return errors.New("pending income must not carry an actual date")
		}
	default:
		return ErrInvalidStatus
	}
	if i.IsRecurring {
		if err := i.Frequency.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (b Budget) Validate() error {
	if _, err := time.Parse("2006-01", b.Month); err != nil {
		return errors.New("invalid budget month, want YYYY-MM")
	}
	for _, cb := range b.CategoryBudgets {
		if strings.TrimSpace(cb.CategoryID) == "" {
			return ErrEmptyCategory
		}
		if cb.Planned.Cents < 0 {
			return ErrInvalidAmount
		}
	}
	return nil
}

func (ins Installment) Validate() error {
	if len(strings.TrimSpace(ins.Title)) == 0 {
		return ErrEmptyTitle
	}
	if err := ins.TotalAmount.Validate(); err != nil {
		return err
	}
	if err := ins.InstallmentAmount.Validate(); err != nil {
		return err
	}
	if ins.TotalInstallments < 1 {
		return errors.New("total installments must be at least 1")
	}
	if ins.PaidInstallments < 0 || ins.PaidInstallments > ins.TotalInstallments {
		return errors.New("paid installments out of range")
	}
	if err := ins.Frequency.Validate(); err != nil {
		return err
	}
	if ins.StartDate.IsZero() {
		return ErrInvalidDate
	}
	switch ins.Status {
	case InstallmentActive, InstallmentPaused, InstallmentCompleted, InstallmentOverdue:
	default:
		return ErrInvalidStatus
	}
	return nil
}

// PaidAmount is the amount repaid so far. When individual payments are
// recorded it is their sum; otherwise it falls back to the
// installmentAmount x paidInstallments invariant.
func (ins Installment) PaidAmount() Money {
	if len(ins.Payments) > 0 {
		var total int64
		for _, p := range ins.Payments {
			if p.Status == PaymentMissed {
				continue
			}
			total += p.Amount.Cents
		}
		return Money{Cents: total}
	}
	return Money{Cents: ins.InstallmentAmount.Cents * int64(ins.PaidInstallments)}
}

func (g Goal) Validate() error {
	if len(strings.TrimSpace(g.Title)) == 0 {
		return ErrEmptyTitle
	}
	if err := g.TargetAmount.Validate(); err != nil {
		return err
	}
	if g.CurrentAmount.Cents < 0 {
		return ErrInvalidAmount
	}
	switch g.Status {
	case GoalActive, GoalCompleted:
	default:
		return ErrInvalidStatus
	}
	return nil
}

// Progress is the goal completion percentage, capped at 100.
func (g Goal) Progress() float64 {
	if g.TargetAmount.Cents <= 0 {
		return 0
	}
	p := float64(g.CurrentAmount.Cents) / float64(g.TargetAmount.Cents) * 100
	if p > 100 {
		return 100
	}
	return p
}

// MonthKey formats a time as the YYYY-MM bucket key.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}
