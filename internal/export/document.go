// Package export defines the bulk JSON document used to dump and load a
// complete dataset. The document mirrors the domain types field for field
// so a dump/load cycle loses nothing.
package export

import (
	"encoding/json"
	"fmt"
	"time"

	"fincast/internal/core"
	"fincast/internal/store"
)

// DocumentVersion guards against loading documents written by an
// incompatible release.
const DocumentVersion = 1

type Document struct {
	Version      int           `json:"version"`
	ExportedAt   time.Time     `json:"exportedAt"`
	Categories   []Category    `json:"categories"`
	Expenses     []Expense     `json:"expenses"`
	Incomes      []Income      `json:"incomes"`
	Budgets      []Budget      `json:"budgets"`
	Installments []Installment `json:"installments"`
	Goals        []Goal        `json:"goals"`
}

type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Color       string `json:"color,omitempty"`
	Icon        string `json:"icon,omitempty"`
	IsEssential bool   `json:"isEssential"`
	Order       int    `json:"order"`
}

type Expense struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	AmountCents int64     `json:"amountCents"`
	CategoryID  string    `json:"categoryId"`
	Date        time.Time `json:"date"`
	Notes       string    `json:"notes,omitempty"`
}

type Income struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	AmountCents  int64      `json:"amountCents"`
	Type         string     `json:"type,omitempty"`
	Status       string     `json:"status"`
	Frequency    string     `json:"frequency,omitempty"`
	ActualDate   *time.Time `json:"actualDate,omitempty"`
	ExpectedDate *time.Time `json:"expectedDate,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	IsRecurring  bool       `json:"isRecurring"`
	Notes        string     `json:"notes,omitempty"`
}

type CategoryBudget struct {
	CategoryID     string  `json:"categoryId"`
	PlannedCents   int64   `json:"plannedCents"`
	SpentCents     int64   `json:"spentCents"`
	RemainingCents int64   `json:"remainingCents"`
	Percentage     float64 `json:"percentage"`
}

type Budget struct {
	ID              string           `json:"id"`
	Month           string           `json:"month"`
	CategoryBudgets []CategoryBudget `json:"categoryBudgets"`
}

type InstallmentPayment struct {
	ID          string    `json:"id"`
	Date        time.Time `json:"date"`
	AmountCents int64     `json:"amountCents"`
	Status      string    `json:"status"`
}

type Installment struct {
	ID                     string               `json:"id"`
	Title                  string               `json:"title"`
	TotalAmountCents       int64                `json:"totalAmountCents"`
	InstallmentAmountCents int64                `json:"installmentAmountCents"`
	TotalInstallments      int                  `json:"totalInstallments"`
	PaidInstallments       int                  `json:"paidInstallments"`
	Frequency              string               `json:"frequency"`
	StartDate              time.Time            `json:"startDate"`
	NextPaymentDate        *time.Time           `json:"nextPaymentDate,omitempty"`
	Status                 string               `json:"status"`
	Payments               []InstallmentPayment `json:"payments,omitempty"`
}

type GoalMilestone struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	TargetAmountCents int64      `json:"targetAmountCents"`
	Reached           bool       `json:"reached"`
	ReachedAt         *time.Time `json:"reachedAt,omitempty"`
}

type GoalContribution struct {
	ID          string    `json:"id"`
	Date        time.Time `json:"date"`
	AmountCents int64     `json:"amountCents"`
	Notes       string    `json:"notes,omitempty"`
}

type Goal struct {
	ID                       string             `json:"id"`
	Title                    string             `json:"title"`
	TargetAmountCents        int64              `json:"targetAmountCents"`
	CurrentAmountCents       int64              `json:"currentAmountCents"`
	Category                 string             `json:"category,omitempty"`
	Priority                 int                `json:"priority"`
	Deadline                 *time.Time         `json:"deadline,omitempty"`
	MonthlyContributionCents int64              `json:"monthlyContributionCents"`
	AutoAllocate             bool               `json:"autoAllocate"`
	Milestones               []GoalMilestone    `json:"milestones,omitempty"`
	Contributions            []GoalContribution `json:"contributions,omitempty"`
	Status                   string             `json:"status"`
}

// FromSnapshot builds an export document from a dataset snapshot.
func FromSnapshot(snap store.Snapshot, exportedAt time.Time) Document {
	doc := Document{
		Version:    DocumentVersion,
		ExportedAt: exportedAt,
	}
	for _, c := range snap.Categories {
		doc.Categories = append(doc.Categories, Category{
			ID:          c.ID,
			Name:        c.Name,
			Color:       c.Color,
			Icon:        c.Icon,
			IsEssential: c.IsEssential,
			Order:       c.Order,
		})
	}
	for _, e := range snap.Expenses {
		doc.Expenses = append(doc.Expenses, Expense{
			ID:          e.ID,
			Title:       e.Title,
			AmountCents: e.Amount.Cents,
			CategoryID:  e.CategoryID,
			Date:        e.Date,
			Notes:       e.Notes,
		})
	}
	for _, i := range snap.Incomes {
		doc.Incomes = append(doc.Incomes, Income{
			ID:           i.ID,
			Title:        i.Title,
			AmountCents:  i.Amount.Cents,
			Type:         i.Type,
			Status:       string(i.Status),
			Frequency:    string(i.Frequency),
			ActualDate:   optionalTime(i.ActualDate),
			ExpectedDate: optionalTime(i.ExpectedDate),
			CreatedAt:    i.CreatedAt,
			IsRecurring:  i.IsRecurring,
			Notes:        i.Notes,
		})
	}
	for _, b := range snap.Budgets {
		out := Budget{ID: b.ID, Month: b.Month}
		for _, cb := range b.CategoryBudgets {
			out.CategoryBudgets = append(out.CategoryBudgets, CategoryBudget{
				CategoryID:     cb.CategoryID,
				PlannedCents:   cb.Planned.Cents,
				SpentCents:     cb.Spent.Cents,
				RemainingCents: cb.Remaining.Cents,
				Percentage:     cb.Percentage,
			})
		}
		doc.Budgets = append(doc.Budgets, out)
	}
	for _, ins := range snap.Installments {
		out := Installment{
			ID:                     ins.ID,
			Title:                  ins.Title,
			TotalAmountCents:       ins.TotalAmount.Cents,
			InstallmentAmountCents: ins.InstallmentAmount.Cents,
			TotalInstallments:      ins.TotalInstallments,
			PaidInstallments:       ins.PaidInstallments,
			Frequency:              string(ins.Frequency),
			StartDate:              ins.StartDate,
			NextPaymentDate:        optionalTime(ins.NextPaymentDate),
			Status:                 string(ins.Status),
		}
		for _, p := range ins.Payments {
			out.Payments = append(out.Payments, InstallmentPayment{
				ID:          p.ID,
				Date:        p.Date,
				AmountCents: p.Amount.Cents,
				Status:      string(p.Status),
			})
		}
		doc.Installments = append(doc.Installments, out)
	}
	for _, g := range snap.Goals {
		out := Goal{
			ID:                       g.ID,
			Title:                    g.Title,
			TargetAmountCents:        g.TargetAmount.Cents,
			CurrentAmountCents:       g.CurrentAmount.Cents,
			Category:                 g.Category,
			Priority:                 g.Priority,
			Deadline:                 optionalTime(g.Deadline),
			MonthlyContributionCents: g.MonthlyContribution.Cents,
			AutoAllocate:             g.AutoAllocate,
			Status:                   string(g.Status),
		}
		for _, m := range g.Milestones {
			out.Milestones = append(out.Milestones, GoalMilestone{
				ID:                m.ID,
				Title:             m.Title,
				TargetAmountCents: m.TargetAmount.Cents,
				Reached:           m.Reached,
				ReachedAt:         optionalTime(m.ReachedAt),
			})
		}
		for _, c := range g.Contributions {
			out.Contributions = append(out.Contributions, GoalContribution{
				ID:          c.ID,
				Date:        c.Date,
				AmountCents: c.Amount.Cents,
				Notes:       c.Notes,
			})
		}
		doc.Goals = append(doc.Goals, out)
	}
	return doc
}

// Snapshot converts the document back to domain types, validating every
// record at the boundary. Expense references to unknown categories are
// rewritten to the sentinel Other category rather than rejected.
func (d Document) Snapshot() (store.Snapshot, error) {
	if d.Version != DocumentVersion {
		return store.Snapshot{}, fmt.Errorf("unsupported document version %d", d.Version)
	}

	var snap store.Snapshot

	known := make(map[string]struct{}, len(d.Categories))
	for _, c := range d.Categories {
		known[c.ID] = struct{}{}
		snap.Categories = append(snap.Categories, core.Category{
			ID:          c.ID,
			Name:        c.Name,
			Color:       c.Color,
			Icon:        c.Icon,
			IsEssential: c.IsEssential,
			Order:       c.Order,
		})
	}

	for _, e := range d.Expenses {
		categoryID := e.CategoryID
		if _, ok := known[categoryID]; !ok {
			categoryID = core.OtherCategoryID
		}
		expense := core.Expense{
			ID:         e.ID,
			Title:      e.Title,
			Amount:     core.Money{Cents: e.AmountCents},
			CategoryID: categoryID,
			Date:       e.Date,
			Notes:      e.Notes,
		}
		if err := expense.Validate(); err != nil {
			return store.Snapshot{}, fmt.Errorf("expense %s: %w", e.ID, err)
		}
		snap.Expenses = append(snap.Expenses, expense)
	}

	for _, i := range d.Incomes {
		income := core.Income{
			ID:           i.ID,
			Title:        i.Title,
			Amount:       core.Money{Cents: i.AmountCents},
			Type:         i.Type,
			Status:       core.IncomeStatus(i.Status),
			Frequency:    core.Frequency(i.Frequency),
			ActualDate:   derefTime(i.ActualDate),
			ExpectedDate: derefTime(i.ExpectedDate),
			CreatedAt:    i.CreatedAt,
			IsRecurring:  i.IsRecurring,
			Notes:        i.Notes,
		}
		if err := income.Validate(); err != nil {
			return store.Snapshot{}, fmt.Errorf("income %s: %w", i.ID, err)
		}
		snap.Incomes = append(snap.Incomes, income)
	}

	for _, b := range d.Budgets {
		budget := core.Budget{ID: b.ID, Month: b.Month}
		for _, cb := range b.CategoryBudgets {
			budget.CategoryBudgets = append(budget.CategoryBudgets, core.CategoryBudget{
				CategoryID: cb.CategoryID,
				Planned:    core.Money{Cents: cb.PlannedCents},
				Spent:      core.Money{Cents: cb.SpentCents},
				Remaining:  core.Money{Cents: cb.RemainingCents},
				Percentage: cb.Percentage,
			})
		}
		if err := budget.Validate(); err != nil {
			return store.Snapshot{}, fmt.Errorf("budget %s: %w", b.ID, err)
		}
		snap.Budgets = append(snap.Budgets, budget)
	}

	for _, ins := range d.Installments {
		installment := core.Installment{
			ID:                ins.ID,
			Title:             ins.Title,
			TotalAmount:       core.Money{Cents: ins.TotalAmountCents},
			InstallmentAmount: core.Money{Cents: ins.InstallmentAmountCents},
			TotalInstallments: ins.TotalInstallments,
			PaidInstallments:  ins.PaidInstallments,
			Frequency:         core.Frequency(ins.Frequency),
			StartDate:         ins.StartDate,
			NextPaymentDate:   derefTime(ins.NextPaymentDate),
			Status:            core.InstallmentStatus(ins.Status),
		}
		for _, p := range ins.Payments {
			installment.Payments = append(installment.Payments, core.InstallmentPayment{
				ID:     p.ID,
				Date:   p.Date,
				Amount: core.Money{Cents: p.AmountCents},
				Status: core.PaymentStatus(p.Status),
			})
		}
		if err := installment.Validate(); err != nil {
			return store.Snapshot{}, fmt.Errorf("installment %s: %w", ins.ID, err)
		}
		snap.Installments = append(snap.Installments, installment)
	}

	for _, g := range d.Goals {
		goal := core.Goal{
			ID:                  g.ID,
			Title:               g.Title,
			TargetAmount:        core.Money{Cents: g.TargetAmountCents},
			CurrentAmount:       core.Money{Cents: g.CurrentAmountCents},
			Category:            g.Category,
			Priority:            g.Priority,
			Deadline:            derefTime(g.Deadline),
			MonthlyContribution: core.Money{Cents: g.MonthlyContributionCents},
			AutoAllocate:        g.AutoAllocate,
			Status:              core.GoalStatus(g.Status),
		}
		for _, m := range g.Milestones {
			goal.Milestones = append(goal.Milestones, core.GoalMilestone{
				ID:           m.ID,
				Title:        m.Title,
				TargetAmount: core.Money{Cents: m.TargetAmountCents},
				Reached:      m.Reached,
				ReachedAt:    derefTime(m.ReachedAt),
			})
		}
		for _, c := range g.Contributions {
			goal.Contributions = append(goal.Contributions, core.GoalContribution{
				ID:     c.ID,
				Date:   c.Date,
				Amount: core.Money{Cents: c.AmountCents},
				Notes:  c.Notes,
			})
		}
		if err := goal.Validate(); err != nil {
			return store.Snapshot{}, fmt.Errorf("goal %s: %w", g.ID, err)
		}
		snap.Goals = append(snap.Goals, goal)
	}

	return snap, nil
}

// Marshal renders the document as indented JSON.
func (d Document) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return data, nil
}

// Unmarshal parses an export document from JSON.
func Unmarshal(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("unmarshal document: %w", err)
	}
	return doc, nil
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
