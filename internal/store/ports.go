package store

import (
	"context"
	"errors"
	"time"

	"fincast/internal/core"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Snapshot is the full dataset an aggregation run reads. Implementations
// return copies; callers may mutate the result freely.
type Snapshot struct {
	Categories   []core.Category
	Expenses     []core.Expense
	Incomes      []core.Income
	Budgets      []core.Budget
	Installments []core.Installment
	Goals        []core.Goal
}

// Ports for outbound persistence adapters.
type (
	// SnapshotReader loads everything the engine needs in one call.
	SnapshotReader interface {
		Snapshot(ctx context.Context) (Snapshot, error)
	}

	ExpenseWriter interface {
		AddExpense(ctx context.Context, e core.Expense) (id string, err error)
	}

	ExpenseLister interface {
		// ListExpenses returns expenses with dates in [from, to].
		ListExpenses(ctx context.Context, from, to time.Time) ([]core.Expense, error)
	}

	IncomeWriter interface {
		AddIncome(ctx context.Context, i core.Income) (id string, err error)
	}

	// GoalStore reads and rewrites whole goals. Contributions and
	// milestone transitions are computed by the engine and persisted as
	// the updated aggregate.
	GoalStore interface {
		GetGoal(ctx context.Context, id string) (core.Goal, error)
		SaveGoal(ctx context.Context, g core.Goal) error
	}

	// InstallmentStore mirrors GoalStore for payment plans.
	InstallmentStore interface {
		GetInstallment(ctx context.Context, id string) (core.Installment, error)
		SaveInstallment(ctx context.Context, ins core.Installment) error
	}

	BudgetStore interface {
		// GetBudget returns the budget for a YYYY-MM month key.
		GetBudget(ctx context.Context, month string) (core.Budget, error)
		SaveBudget(ctx context.Context, b core.Budget) error
	}

	// Importer replaces the whole dataset atomically.
	Importer interface {
		ReplaceAll(ctx context.Context, snap Snapshot) error
	}
)

// Store is the composite port the HTTP layer and worker depend on.
type Store interface {
	SnapshotReader
	ExpenseWriter
	ExpenseLister
	IncomeWriter
	GoalStore
	InstallmentStore
	BudgetStore
	Importer

	Close() error
}
