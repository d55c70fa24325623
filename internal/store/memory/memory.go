// Package memory is an in-process store used for development and tests.
// It can be seeded from an export document on disk.
package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"fincast/internal/core"
	"fincast/internal/export"
	"fincast/internal/store"
)

type Store struct {
	mu   sync.Mutex
	snap store.Snapshot
}

func New(snap store.Snapshot) *Store {
	s := &Store{}
	s.snap = copySnapshot(snap)
	if len(s.snap.Categories) == 0 {
		s.snap.Categories = defaultCategories()
	}
	return s
}

// NewFromDir loads seed.json from base when present, otherwise starts
// with the default category set and no records.
func NewFromDir(base string) (*Store, error) {
	path := filepath.Join(base, "seed.json")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(store.Snapshot{}), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	doc, err := export.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	snap, err := doc.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("validate seed file %s: %w", path, err)
	}
	return New(snap), nil
}

func defaultCategories() []core.Category {
	return []core.Category{
		{ID: "housing", Name: "Housing", Color: "#3f51b5", Icon: "home", IsEssential: true, Order: 1},
		{ID: "groceries", Name: "Groceries", Color: "#4caf50", Icon: "cart", IsEssential: true, Order: 2},
		{ID: "transport", Name: "Transport", Color: "#ff9800", Icon: "bus", IsEssential: true, Order: 3},
		{ID: "dining", Name: "Dining out", Color: "#e91e63", Icon: "utensils", IsEssential: false, Order: 4},
		{ID: "entertainment", Name: "Entertainment", Color: "#9c27b0", Icon: "film", IsEssential: false, Order: 5},
	}
}

// Snapshot returns a deep copy of the full dataset.
func (s *Store) Snapshot(_ context.Context) (store.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copySnapshot(s.snap), nil
}

// AddExpense validates and stores the expense, assigning an id when the
// caller did not provide one.
func (s *Store) AddExpense(_ context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Expenses = append(s.snap.Expenses, e)
	return e.ID, nil
}

func (s *Store) ListExpenses(_ context.Context, from, to time.Time) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Expense
	for _, e := range s.snap.Expenses {
		if e.Date.Before(from) || e.Date.After(to) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) AddIncome(_ context.Context, i core.Income) (string, error) {
	if err := i.Validate(); err != nil {
		return "", err
	}
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Incomes = append(s.snap.Incomes, i)
	return i.ID, nil
}

func (s *Store) GetGoal(_ context.Context, id string) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.snap.Goals {
		if g.ID == id {
			return copyGoal(g), nil
		}
	}
	return core.Goal{}, fmt.Errorf("goal %s: %w", id, store.ErrNotFound)
}

// SaveGoal replaces the stored goal, inserting when it is new.
func (s *Store) SaveGoal(_ context.Context, g core.Goal) error {
	if err := g.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for idx := range s.snap.Goals {
		if s.snap.Goals[idx].ID == g.ID {
			s.snap.Goals[idx] = copyGoal(g)
			return nil
		}
	}
	s.snap.Goals = append(s.snap.Goals, copyGoal(g))
	return nil
}

func (s *Store) GetInstallment(_ context.Context, id string) (core.Installment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ins := range s.snap.Installments {
		if ins.ID == id {
			return copyInstallment(ins), nil
		}
	}
	return core.Installment{}, fmt.Errorf("installment %s: %w", id, store.ErrNotFound)
}

func (s *Store) SaveInstallment(_ context.Context, ins core.Installment) error {
	if err := ins.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for idx := range s.snap.Installments {
		if s.snap.Installments[idx].ID == ins.ID {
			s.snap.Installments[idx] = copyInstallment(ins)
			return nil
		}
	}
	s.snap.Installments = append(s.snap.Installments, copyInstallment(ins))
	return nil
}

func (s *Store) GetBudget(_ context.Context, month string) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.snap.Budgets {
		if b.Month == month {
			return copyBudget(b), nil
		}
	}
	return core.Budget{}, fmt.Errorf("budget %s: %w", month, store.ErrNotFound)
}

func (s *Store) SaveBudget(_ context.Context, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for idx := range s.snap.Budgets {
		if s.snap.Budgets[idx].Month == b.Month {
			s.snap.Budgets[idx] = copyBudget(b)
			return nil
		}
	}
	s.snap.Budgets = append(s.snap.Budgets, copyBudget(b))
	return nil
}

// ReplaceAll swaps in a whole new dataset.
func (s *Store) ReplaceAll(_ context.Context, snap store.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = copySnapshot(snap)
	return nil
}

func (s *Store) Close() error {
	return nil
}

func copySnapshot(snap store.Snapshot) store.Snapshot {
	out := store.Snapshot{
		Categories: append([]core.Category(nil), snap.Categories...),
		Expenses:   append([]core.Expense(nil), snap.Expenses...),
		Incomes:    append([]core.Income(nil), snap.Incomes...),
	}
	for _, b := range snap.Budgets {
		out.Budgets = append(out.Budgets, copyBudget(b))
	}
	for _, ins := range snap.Installments {
		out.Installments = append(out.Installments, copyInstallment(ins))
	}
	for _, g := range snap.Goals {
		out.Goals = append(out.Goals, copyGoal(g))
	}
	return out
}

func copyBudget(b core.Budget) core.Budget {
	b.CategoryBudgets = append([]core.CategoryBudget(nil), b.CategoryBudgets...)
	return b
}

func copyInstallment(ins core.Installment) core.Installment {
	ins.Payments = append([]core.InstallmentPayment(nil), ins.Payments...)
	return ins
}

func copyGoal(g core.Goal) core.Goal {
	g.Milestones = append([]core.GoalMilestone(nil), g.Milestones...)
	g.Contributions = append([]core.GoalContribution(nil), g.Contributions...)
	return g
}
