package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"fincast/internal/core"
	"fincast/internal/store"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Snapshot loads all six collections in one transaction.
func (r *SQLiteRepository) Snapshot(ctx context.Context) (store.Snapshot, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	var snap store.Snapshot

	if snap.Categories, err = q.ListCategories(ctx); err != nil {
		return store.Snapshot{}, fmt.Errorf("load categories: %w", err)
	}
	if snap.Expenses, err = q.ListExpenses(ctx); err != nil {
		return store.Snapshot{}, fmt.Errorf("load expenses: %w", err)
	}
	if snap.Incomes, err = q.ListIncomes(ctx); err != nil {
		return store.Snapshot{}, fmt.Errorf("load incomes: %w", err)
	}
	if snap.Budgets, err = q.ListBudgets(ctx); err != nil {
		return store.Snapshot{}, fmt.Errorf("load budgets: %w", err)
	}
	if snap.Installments, err = q.ListInstallments(ctx); err != nil {
		return store.Snapshot{}, fmt.Errorf("load installments: %w", err)
	}
	if snap.Goals, err = q.ListGoals(ctx); err != nil {
		return store.Snapshot{}, fmt.Errorf("load goals: %w", err)
	}

	return snap, nil
}

func (r *SQLiteRepository) AddExpense(ctx context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if err := r.queries.InsertExpense(ctx, e); err != nil {
		return "", fmt.Errorf("insert expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID,
		"title", e.Title,
		"amount_cents", e.Amount.Cents,
		"category_id", e.CategoryID)

	return e.ID, nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, from, to time.Time) ([]core.Expense, error) {
	expenses, err := r.queries.ListExpensesBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

func (r *SQLiteRepository) AddIncome(ctx context.Context, i core.Income) (string, error) {
	if err := i.Validate(); err != nil {
		return "", err
	}
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.CreatedAt.IsZero() {
		i.CreatedAt = time.Now().UTC()
	}
	if err := r.queries.InsertIncome(ctx, i); err != nil {
		return "", fmt.Errorf("insert income: %w", err)
	}

	slog.InfoContext(ctx, "Income saved",
		"id", i.ID,
		"title", i.Title,
		"amount_cents", i.Amount.Cents,
		"status", string(i.Status))

	return i.ID, nil
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, id string) (core.Goal, error) {
	goal, err := r.queries.GetGoal(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Goal{}, fmt.Errorf("goal %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return core.Goal{}, fmt.Errorf("get goal: %w", err)
	}
	return goal, nil
}

func (r *SQLiteRepository) SaveGoal(ctx context.Context, g core.Goal) error {
	if err := g.Validate(); err != nil {
		return err
	}
	return r.inTx(ctx, func(q *Queries) error {
		return q.UpsertGoal(ctx, g)
	})
}

func (r *SQLiteRepository) GetInstallment(ctx context.Context, id string) (core.Installment, error) {
	ins, err := r.queries.GetInstallment(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Installment{}, fmt.Errorf("installment %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return core.Installment{}, fmt.Errorf("get installment: %w", err)
	}
	return ins, nil
}

func (r *SQLiteRepository) SaveInstallment(ctx context.Context, ins core.Installment) error {
	if err := ins.Validate(); err != nil {
		return err
	}
	return r.inTx(ctx, func(q *Queries) error {
		return q.UpsertInstallment(ctx, ins)
	})
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, month string) (core.Budget, error) {
	b, err := r.queries.GetBudgetByMonth(ctx, month)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("budget %s: %w", month, store.ErrNotFound)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) SaveBudget(ctx context.Context, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return r.inTx(ctx, func(q *Queries) error {
		return q.UpsertBudget(ctx, b)
	})
}

// ReplaceAll swaps the whole dataset in one transaction.
func (r *SQLiteRepository) ReplaceAll(ctx context.Context, snap store.Snapshot) error {
	err := r.inTx(ctx, func(q *Queries) error {
		if err := q.DeleteAll(ctx); err != nil {
			return fmt.Errorf("clear tables: %w", err)
		}
		for _, c := range snap.Categories {
			if err := q.InsertCategory(ctx, c); err != nil {
				return fmt.Errorf("insert category %s: %w", c.ID, err)
			}
		}
		for _, e := range snap.Expenses {
			if err := q.InsertExpense(ctx, e); err != nil {
				return fmt.Errorf("insert expense %s: %w", e.ID, err)
			}
		}
		for _, i := range snap.Incomes {
			if err := q.InsertIncome(ctx, i); err != nil {
				return fmt.Errorf("insert income %s: %w", i.ID, err)
			}
		}
		for _, b := range snap.Budgets {
			if b.ID == "" {
				b.ID = uuid.NewString()
			}
			if err := q.UpsertBudget(ctx, b); err != nil {
				return fmt.Errorf("insert budget %s: %w", b.Month, err)
			}
		}
		for _, ins := range snap.Installments {
			if err := q.UpsertInstallment(ctx, ins); err != nil {
				return fmt.Errorf("insert installment %s: %w", ins.ID, err)
			}
		}
		for _, g := range snap.Goals {
			if err := q.UpsertGoal(ctx, g); err != nil {
				return fmt.Errorf("insert goal %s: %w", g.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Dataset replaced",
		"categories", len(snap.Categories),
		"expenses", len(snap.Expenses),
		"incomes", len(snap.Incomes),
		"budgets", len(snap.Budgets),
		"installments", len(snap.Installments),
		"goals", len(snap.Goals))

	return nil
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(r.queries.WithTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
