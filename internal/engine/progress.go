package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"fincast/internal/core"
)

// ApplyContribution applies a signed delta to a goal's balance and returns
// the updated goal; the input goal is never mutated. A withdrawal larger
// than the current balance fails with core.ErrInvalidWithdrawal and leaves
// no partial state behind.
//
// Milestones are monotonic: a crossing sets Reached and stamps ReachedAt
// once, and later withdrawals never un-reach a milestone or clear its
// timestamp. Goal status tracks the balance both ways; re-opening a
// completed goal on withdrawal is intentional.
func ApplyContribution(goal core.Goal, delta core.Money, notes string, now time.Time) (core.Goal, error) {
	if delta.Cents < 0 && -delta.Cents > goal.CurrentAmount.Cents {
		return core.Goal{}, fmt.Errorf("apply contribution to goal %s: %w", goal.ID, core.ErrInvalidWithdrawal)
	}
	// A zero delta is a no-op: status, milestones and history all stay put.
	if delta.Cents == 0 {
		return goal, nil
	}

	updated := goal
	updated.CurrentAmount = goal.CurrentAmount.Add(delta)
	updated.Contributions = append(append([]core.GoalContribution(nil), goal.Contributions...),
		core.GoalContribution{
			ID:     uuid.NewString(),
			Date:   now,
			Amount: delta,
			Notes:  notes,
		})

	updated.Milestones = make([]core.GoalMilestone, len(goal.Milestones))
	for i, m := range goal.Milestones {
		next := m
		if !m.Reached && updated.CurrentAmount.Cents >= m.TargetAmount.Cents {
			next.Reached = true
			next.ReachedAt = now
		}
		updated.Milestones[i] = next
	}

	if updated.CurrentAmount.Cents >= updated.TargetAmount.Cents {
		updated.Status = core.GoalCompleted
	} else {
		updated.Status = core.GoalActive
	}
	return updated, nil
}

// RecomputeBudget rebuilds every category line of a monthly budget from the
// expenses falling in that budget's month. Percentage is guarded against a
// zero plan (0, not Inf). The input budget is not mutated.
func RecomputeBudget(budget core.Budget, expenses []core.Expense) core.Budget {
	spentByCategory := make(map[string]int64)
	for _, e := range expenses {
		if core.MonthKey(e.Date) == budget.Month {
			spentByCategory[e.CategoryID] += e.Amount.Cents
		}
	}

	updated := budget
	updated.CategoryBudgets = make([]core.CategoryBudget, len(budget.CategoryBudgets))
	for i, cb := range budget.CategoryBudgets {
		spent := core.Money{Cents: spentByCategory[cb.CategoryID]}
		line := core.CategoryBudget{
			CategoryID: cb.CategoryID,
			Planned:    cb.Planned,
			Spent:      spent,
			Remaining:  cb.Planned.Sub(spent),
		}
		if cb.Planned.Cents > 0 {
			line.Percentage = float64(spent.Cents) / float64(cb.Planned.Cents) * 100
		}
		updated.CategoryBudgets[i] = line
	}
	return updated
}

// RecordInstallmentPayment appends a payment to an installment's history
// and returns the updated plan. Payments are append-only; missed payments
// join the history but do not advance the paid count. The paid count and
// the next due date move forward with each counted payment, and the plan
// flips to completed once every installment is covered.
func RecordInstallmentPayment(ins core.Installment, amount core.Money, status core.PaymentStatus, date time.Time) (core.Installment, error) {
	if err := amount.Validate(); err != nil {
		return core.Installment{}, fmt.Errorf("record payment on installment %s: %w", ins.ID, err)
	}
	switch status {
	case core.PaymentPaid, core.PaymentLate, core.PaymentPartial, core.PaymentMissed:
	default:
		return core.Installment{}, fmt.Errorf("record payment on installment %s: %w", ins.ID, core.ErrInvalidStatus)
	}
	if ins.Status == core.InstallmentCompleted {
		return core.Installment{}, fmt.Errorf("record payment on installment %s: plan already completed", ins.ID)
	}

	updated := ins
	updated.Payments = append(append([]core.InstallmentPayment(nil), ins.Payments...),
		core.InstallmentPayment{
			ID:     uuid.NewString(),
			Date:   date,
			Amount: amount,
			Status: status,
		})

	if status != core.PaymentMissed && status != core.PaymentPartial {
		updated.PaidInstallments = ins.PaidInstallments + 1
	} else if status == core.PaymentPartial {
		// Partials only count once their sum covers a full installment.
		if coveredInstallments(updated) > ins.PaidInstallments {
			updated.PaidInstallments = coveredInstallments(updated)
		}
	}
	if updated.PaidInstallments > updated.TotalInstallments {
		updated.PaidInstallments = updated.TotalInstallments
	}

	if updated.PaidInstallments >= updated.TotalInstallments {
		updated.Status = core.InstallmentCompleted
	} else {
		if ins.Status == core.InstallmentOverdue && status != core.PaymentMissed {
			updated.Status = core.InstallmentActive
		}
		updated.NextPaymentDate = advanceByFrequency(ins.NextPaymentDate, ins.Frequency)
	}
	return updated, nil
}

// coveredInstallments is how many whole installments the recorded payment
// amounts add up to.
func coveredInstallments(ins core.Installment) int {
	if ins.InstallmentAmount.Cents <= 0 {
		return ins.PaidInstallments
	}
	return int(ins.PaidAmount().Cents / ins.InstallmentAmount.Cents)
}

func advanceByFrequency(t time.Time, f core.Frequency) time.Time {
	switch f {
	case core.Daily:
		return t.AddDate(0, 0, 1)
	case core.Weekly:
		return t.AddDate(0, 0, 7)
	case core.Yearly:
		return t.AddDate(1, 0, 0)
	default:
		return t.AddDate(0, 1, 0)
	}
}

// MarkOverdueInstallments flags active plans whose next payment date has
// passed without a covering payment. Returns new values; inputs are
// untouched.
func MarkOverdueInstallments(installments []core.Installment, now time.Time) []core.Installment {
	out := make([]core.Installment, len(installments))
	for i, ins := range installments {
		next := ins
		if ins.Status == core.InstallmentActive && !ins.NextPaymentDate.IsZero() && ins.NextPaymentDate.Before(now) {
			next.Status = core.InstallmentOverdue
		}
		out[i] = next
	}
	return out
}
