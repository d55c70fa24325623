package storage

import (
	"context"
	"database/sql"
	"time"

	"fincast/internal/core"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so queries can run
// inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Dates are stored as RFC 3339 text. NULL maps to the zero time.

func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func encodeNullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: encodeTime(t), Valid: true}
}

func decodeTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func decodeNullTime(s sql.NullString) (time.Time, error) {
	if !s.Valid {
		return time.Time{}, nil
	}
	return decodeTime(s.String)
}

func (q *Queries) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, name, color, icon, is_essential, sort_order
		 FROM categories ORDER BY sort_order, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Color, &c.Icon, &c.IsEssential, &c.Order); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (q *Queries) InsertCategory(ctx context.Context, c core.Category) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, color, icon, is_essential, sort_order)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Color, c.Icon, c.IsEssential, c.Order)
	return err
}

func (q *Queries) InsertExpense(ctx context.Context, e core.Expense) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO expenses (id, title, amount_cents, category_id, date, notes)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Title, e.Amount.Cents, e.CategoryID, encodeTime(e.Date), e.Notes)
	return err
}

func scanExpenses(rows *sql.Rows) ([]core.Expense, error) {
	var out []core.Expense
	for rows.Next() {
		var (
			e    core.Expense
			date string
		)
		if err := rows.Scan(&e.ID, &e.Title, &e.Amount.Cents, &e.CategoryID, &date, &e.Notes); err != nil {
			return nil, err
		}
		parsed, err := decodeTime(date)
		if err != nil {
			return nil, err
		}
		e.Date = parsed
		out = append(out, e)
	}
	return out, rows.Err()
}

func (q *Queries) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, title, amount_cents, category_id, date, notes
		 FROM expenses ORDER BY date, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanExpenses(rows)
}

func (q *Queries) ListExpensesBetween(ctx context.Context, from, to time.Time) ([]core.Expense, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, title, amount_cents, category_id, date, notes
		 FROM expenses WHERE date >= ? AND date <= ? ORDER BY date, id`,
		encodeTime(from), encodeTime(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanExpenses(rows)
}

func (q *Queries) InsertIncome(ctx context.Context, i core.Income) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO incomes
		 (id, title, amount_cents, type, status, frequency, actual_date, expected_date, created_at, is_recurring, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		i.ID, i.Title, i.Amount.Cents, i.Type, string(i.Status), string(i.Frequency),
		encodeNullTime(i.ActualDate), encodeNullTime(i.ExpectedDate), encodeTime(i.CreatedAt),
		i.IsRecurring, i.Notes)
	return err
}

func (q *Queries) ListIncomes(ctx context.Context) ([]core.Income, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, title, amount_cents, type, status, frequency, actual_date, expected_date, created_at, is_recurring, notes
		 FROM incomes ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Income
	for rows.Next() {
		var (
			i                 core.Income
			status, frequency string
			actual, expected  sql.NullString
			createdAt         string
		)
		if err := rows.Scan(&i.ID, &i.Title, &i.Amount.Cents, &i.Type, &status, &frequency,
			&actual, &expected, &createdAt, &i.IsRecurring, &i.Notes); err != nil {
			return nil, err
		}
		i.Status = core.IncomeStatus(status)
		i.Frequency = core.Frequency(frequency)
		var err error
		if i.ActualDate, err = decodeNullTime(actual); err != nil {
			return nil, err
		}
		if i.ExpectedDate, err = decodeNullTime(expected); err != nil {
			return nil, err
		}
		if i.CreatedAt, err = decodeTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func (q *Queries) UpsertBudget(ctx context.Context, b core.Budget) error {
	if _, err := q.db.ExecContext(ctx,
		`INSERT INTO budgets (id, month) VALUES (?, ?)
		 ON CONFLICT(month) DO NOTHING`,
		b.ID, b.Month); err != nil {
		return err
	}

	var budgetID string
	if err := q.db.QueryRowContext(ctx,
		`SELECT id FROM budgets WHERE month = ?`, b.Month).Scan(&budgetID); err != nil {
		return err
	}

	if _, err := q.db.ExecContext(ctx,
		`DELETE FROM budget_lines WHERE budget_id = ?`, budgetID); err != nil {
		return err
	}
	for idx, cb := range b.CategoryBudgets {
		if _, err := q.db.ExecContext(ctx,
			`INSERT INTO budget_lines
			 (budget_id, category_id, planned_cents, spent_cents, remaining_cents, percentage, line_order)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			budgetID, cb.CategoryID, cb.Planned.Cents, cb.Spent.Cents, cb.Remaining.Cents,
			cb.Percentage, idx); err != nil {
			return err
		}
	}
	return nil
}

func (q *Queries) GetBudgetByMonth(ctx context.Context, month string) (core.Budget, error) {
	var b core.Budget
	err := q.db.QueryRowContext(ctx,
		`SELECT id, month FROM budgets WHERE month = ?`, month).Scan(&b.ID, &b.Month)
	if err != nil {
		return core.Budget{}, err
	}
	b.CategoryBudgets, err = q.listBudgetLines(ctx, b.ID)
	return b, err
}

func (q *Queries) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id, month FROM budgets ORDER BY month`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.ID, &b.Month); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for idx := range out {
		if out[idx].CategoryBudgets, err = q.listBudgetLines(ctx, out[idx].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (q *Queries) listBudgetLines(ctx context.Context, budgetID string) ([]core.CategoryBudget, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT category_id, planned_cents, spent_cents, remaining_cents, percentage
		 FROM budget_lines WHERE budget_id = ? ORDER BY line_order`, budgetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.CategoryBudget
	for rows.Next() {
		var cb core.CategoryBudget
		if err := rows.Scan(&cb.CategoryID, &cb.Planned.Cents, &cb.Spent.Cents,
			&cb.Remaining.Cents, &cb.Percentage); err != nil {
			return nil, err
		}
		out = append(out, cb)
	}
	return out, rows.Err()
}

func (q *Queries) UpsertInstallment(ctx context.Context, ins core.Installment) error {
	if _, err := q.db.ExecContext(ctx,
		`INSERT INTO installments
		 (id, title, total_amount_cents, installment_amount_cents, total_installments,
		  paid_installments, frequency, start_date, next_payment_date, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title = excluded.title,
		   total_amount_cents = excluded.total_amount_cents,
		   installment_amount_cents = excluded.installment_amount_cents,
		   total_installments = excluded.total_installments,
		   paid_installments = excluded.paid_installments,
		   frequency = excluded.frequency,
		   start_date = excluded.start_date,
		   next_payment_date = excluded.next_payment_date,
		   status = excluded.status`,
		ins.ID, ins.Title, ins.TotalAmount.Cents, ins.InstallmentAmount.Cents,
		ins.TotalInstallments, ins.PaidInstallments, string(ins.Frequency),
		encodeTime(ins.StartDate), encodeNullTime(ins.NextPaymentDate), string(ins.Status)); err != nil {
		return err
	}

	if _, err := q.db.ExecContext(ctx,
		`DELETE FROM installment_payments WHERE installment_id = ?`, ins.ID); err != nil {
		return err
	}
	for idx, p := range ins.Payments {
		if _, err := q.db.ExecContext(ctx,
			`INSERT INTO installment_payments (id, installment_id, date, amount_cents, status, pay_order)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			p.ID, ins.ID, encodeTime(p.Date), p.Amount.Cents, string(p.Status), idx); err != nil {
			return err
		}
	}
	return nil
}

func (q *Queries) GetInstallment(ctx context.Context, id string) (core.Installment, error) {
	var (
		ins               core.Installment
		frequency, status string
		startDate         string
		nextPayment       sql.NullString
	)
	err := q.db.QueryRowContext(ctx,
		`SELECT id, title, total_amount_cents, installment_amount_cents, total_installments,
		        paid_installments, frequency, start_date, next_payment_date, status
		 FROM installments WHERE id = ?`, id).Scan(
		&ins.ID, &ins.Title, &ins.TotalAmount.Cents, &ins.InstallmentAmount.Cents,
		&ins.TotalInstallments, &ins.PaidInstallments, &frequency, &startDate,
		&nextPayment, &status)
	if err != nil {
		return core.Installment{}, err
	}
	ins.Frequency = core.Frequency(frequency)
	ins.Status = core.InstallmentStatus(status)
	if ins.StartDate, err = decodeTime(startDate); err != nil {
		return core.Installment{}, err
	}
	if ins.NextPaymentDate, err = decodeNullTime(nextPayment); err != nil {
		return core.Installment{}, err
	}
	ins.Payments, err = q.listInstallmentPayments(ctx, ins.ID)
	return ins, err
}

func (q *Queries) ListInstallments(ctx context.Context) ([]core.Installment, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id FROM installments ORDER BY start_date, id`)
	if err != nil {
		return nil, err
	}
	ids, err := scanIDs(rows)
	if err != nil {
		return nil, err
	}

	var out []core.Installment
	for _, id := range ids {
		ins, err := q.GetInstallment(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, ins)
	}
	return out, nil
}

func (q *Queries) listInstallmentPayments(ctx context.Context, installmentID string) ([]core.InstallmentPayment, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, date, amount_cents, status
		 FROM installment_payments WHERE installment_id = ? ORDER BY pay_order`, installmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.InstallmentPayment
	for rows.Next() {
		var (
			p            core.InstallmentPayment
			date, status string
		)
		if err := rows.Scan(&p.ID, &date, &p.Amount.Cents, &status); err != nil {
			return nil, err
		}
		if p.Date, err = decodeTime(date); err != nil {
			return nil, err
		}
		p.Status = core.PaymentStatus(status)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (q *Queries) UpsertGoal(ctx context.Context, g core.Goal) error {
	if _, err := q.db.ExecContext(ctx,
		`INSERT INTO goals
		 (id, title, target_amount_cents, current_amount_cents, category, priority,
		  deadline, monthly_contribution_cents, auto_allocate, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title = excluded.title,
		   target_amount_cents = excluded.target_amount_cents,
		   current_amount_cents = excluded.current_amount_cents,
		   category = excluded.category,
		   priority = excluded.priority,
		   deadline = excluded.deadline,
		   monthly_contribution_cents = excluded.monthly_contribution_cents,
		   auto_allocate = excluded.auto_allocate,
		   status = excluded.status`,
		g.ID, g.Title, g.TargetAmount.Cents, g.CurrentAmount.Cents, g.Category, g.Priority,
		encodeNullTime(g.Deadline), g.MonthlyContribution.Cents, g.AutoAllocate,
		string(g.Status)); err != nil {
		return err
	}

	if _, err := q.db.ExecContext(ctx,
		`DELETE FROM goal_milestones WHERE goal_id = ?`, g.ID); err != nil {
		return err
	}
	for idx, m := range g.Milestones {
		if _, err := q.db.ExecContext(ctx,
			`INSERT INTO goal_milestones (id, goal_id, title, target_amount_cents, reached, reached_at, ms_order)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			m.ID, g.ID, m.Title, m.TargetAmount.Cents, m.Reached, encodeNullTime(m.ReachedAt), idx); err != nil {
			return err
		}
	}

	if _, err := q.db.ExecContext(ctx,
		`DELETE FROM goal_contributions WHERE goal_id = ?`, g.ID); err != nil {
		return err
	}
	for idx, c := range g.Contributions {
		if _, err := q.db.ExecContext(ctx,
			`INSERT INTO goal_contributions (id, goal_id, date, amount_cents, notes, contrib_order)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			c.ID, g.ID, encodeTime(c.Date), c.Amount.Cents, c.Notes, idx); err != nil {
			return err
		}
	}
	return nil
}

func (q *Queries) GetGoal(ctx context.Context, id string) (core.Goal, error) {
	var (
		g        core.Goal
		status   string
		deadline sql.NullString
	)
	err := q.db.QueryRowContext(ctx,
		`SELECT id, title, target_amount_cents, current_amount_cents, category, priority,
		        deadline, monthly_contribution_cents, auto_allocate, status
		 FROM goals WHERE id = ?`, id).Scan(
		&g.ID, &g.Title, &g.TargetAmount.Cents, &g.CurrentAmount.Cents, &g.Category,
		&g.Priority, &deadline, &g.MonthlyContribution.Cents, &g.AutoAllocate, &status)
	if err != nil {
		return core.Goal{}, err
	}
	g.Status = core.GoalStatus(status)
	if g.Deadline, err = decodeNullTime(deadline); err != nil {
		return core.Goal{}, err
	}
	if g.Milestones, err = q.listGoalMilestones(ctx, g.ID); err != nil {
		return core.Goal{}, err
	}
	g.Contributions, err = q.listGoalContributions(ctx, g.ID)
	return g, err
}

func (q *Queries) ListGoals(ctx context.Context) ([]core.Goal, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id FROM goals ORDER BY priority, id`)
	if err != nil {
		return nil, err
	}
	ids, err := scanIDs(rows)
	if err != nil {
		return nil, err
	}

	var out []core.Goal
	for _, id := range ids {
		g, err := q.GetGoal(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func (q *Queries) listGoalMilestones(ctx context.Context, goalID string) ([]core.GoalMilestone, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, title, target_amount_cents, reached, reached_at
		 FROM goal_milestones WHERE goal_id = ? ORDER BY ms_order`, goalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.GoalMilestone
	for rows.Next() {
		var (
			m         core.GoalMilestone
			reachedAt sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.Title, &m.TargetAmount.Cents, &m.Reached, &reachedAt); err != nil {
			return nil, err
		}
		if m.ReachedAt, err = decodeNullTime(reachedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (q *Queries) listGoalContributions(ctx context.Context, goalID string) ([]core.GoalContribution, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, date, amount_cents, notes
		 FROM goal_contributions WHERE goal_id = ? ORDER BY contrib_order`, goalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.GoalContribution
	for rows.Next() {
		var (
			c    core.GoalContribution
			date string
		)
		if err := rows.Scan(&c.ID, &date, &c.Amount.Cents, &c.Notes); err != nil {
			return nil, err
		}
		if c.Date, err = decodeTime(date); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteAll wipes every collection. Used by bulk import.
func (q *Queries) DeleteAll(ctx context.Context) error {
	tables := []string{
		"goal_contributions", "goal_milestones", "goals",
		"installment_payments", "installments",
		"budget_lines", "budgets",
		"incomes", "expenses", "categories",
	}
	for _, table := range tables {
		if _, err := q.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func scanIDs(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
