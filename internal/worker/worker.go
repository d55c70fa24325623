// Package worker recomputes derived monthly state in the background:
// budget actuals, overdue installment flags, insight alerts and report
// exports, driven by recompute messages and a periodic sweep.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fincast/internal/amqp"
	"fincast/internal/core"
	"fincast/internal/engine"
	"fincast/internal/log"
	"fincast/internal/report"
	"fincast/internal/store"
)

type Options struct {
	// Now supplies the reference date for period resolution. Defaults to
	// time.Now; tests pin it.
	Now func() time.Time
}

type Worker struct {
	store    store.Store
	reporter report.Appender
	logger   *log.Logger
	now      func() time.Time
}

// New builds a worker. The reporter may be nil, which disables report
// export.
func New(st store.Store, reporter report.Appender, opts Options, logger *log.Logger) *Worker {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Worker{
		store:    st,
		reporter: reporter,
		logger:   logger.WithComponent(log.ComponentWorker),
		now:      opts.Now,
	}
}

// Recompute processes one recompute request. Month scope recomputes the
// named month; full scope sweeps every month that carries a budget plus
// the current one. Returning an error requeues the message.
func (w *Worker) Recompute(ctx context.Context, msg *amqp.RecomputeMessage) error {
	snap, err := w.store.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	if err := w.flagOverdueInstallments(ctx, snap.Installments); err != nil {
		return err
	}

	switch msg.Scope {
	case amqp.ScopeMonth:
		if msg.Month < 1 || msg.Month > 12 {
			return fmt.Errorf("invalid month %d in recompute message", msg.Month)
		}
		return w.recomputeMonth(ctx, snap, engine.MonthPeriod(msg.Year, time.Month(msg.Month)))
	case amqp.ScopeFull:
		for _, month := range w.sweepMonths(snap) {
			if err := w.recomputeMonth(ctx, snap, month); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown recompute scope %q", msg.Scope)
	}
}

// sweepMonths lists every month worth recomputing on a full sweep: each
// budgeted month plus the current one, deduplicated.
func (w *Worker) sweepMonths(snap store.Snapshot) []engine.Period {
	seen := make(map[string]bool)
	var out []engine.Period
	add := func(key string) {
		if seen[key] {
			return
		}
		t, err := time.Parse("2006-01", key)
		if err != nil {
			return
		}
		seen[key] = true
		out = append(out, engine.MonthPeriod(t.Year(), t.Month()))
	}
	for _, b := range snap.Budgets {
		add(b.Month)
	}
	add(core.MonthKey(w.now()))
	return out
}

func (w *Worker) recomputeMonth(ctx context.Context, snap store.Snapshot, p engine.Period) error {
	monthKey := core.MonthKey(p.Start)

	budget, err := w.store.GetBudget(ctx, monthKey)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// No budget for this month; insight rules simply skip it.
	case err != nil:
		return fmt.Errorf("load budget %s: %w", monthKey, err)
	default:
		recomputed := engine.RecomputeBudget(budget, snap.Expenses)
		if err := w.store.SaveBudget(ctx, recomputed); err != nil {
			return fmt.Errorf("save budget %s: %w", monthKey, err)
		}
		budget = recomputed
	}

	facts := engine.BuildFacts(snap.Categories, snap.Expenses, snap.Incomes, budget, snap.Goals, p)
	insights := engine.GenerateInsights(facts, nil)

	for _, ins := range insights {
		if ins.Type == engine.InsightWarning {
			w.logger.WarnContext(ctx, "Financial alert",
				log.FieldMonth, monthKey,
				"insight_type", string(ins.Type),
				"title", ins.Title,
				"message", ins.Message)
		}
	}

	w.logger.InfoContext(ctx, "Month recomputed",
		log.FieldMonth, monthKey,
		"income_cents", facts.Summary.Income.Cents,
		"expenses_cents", facts.Summary.Expenses.Cents,
		"insights", len(insights))

	w.exportReport(ctx, monthKey, facts, len(insights))
	return nil
}

// flagOverdueInstallments persists status flips for plans whose next
// payment date has passed.
func (w *Worker) flagOverdueInstallments(ctx context.Context, installments []core.Installment) error {
	flagged := engine.MarkOverdueInstallments(installments, w.now())
	for i, ins := range flagged {
		if ins.Status == installments[i].Status {
			continue
		}
		if err := w.store.SaveInstallment(ctx, ins); err != nil {
			return fmt.Errorf("flag overdue installment %s: %w", ins.ID, err)
		}
		w.logger.WarnContext(ctx, "Installment overdue",
			"installment_id", ins.ID,
			"title", ins.Title,
			"next_payment_date", ins.NextPaymentDate)
	}
	return nil
}

// exportReport appends one row to the configured report sink, best effort.
func (w *Worker) exportReport(ctx context.Context, monthKey string, facts engine.Facts, insightCount int) {
	if w.reporter == nil {
		return
	}

	var topCategory string
	if len(facts.Categories) > 0 {
		topCategory = facts.Categories[0].Category.Name
	}

	row := report.MonthlyRow{
		Month:       monthKey,
		Income:      facts.Summary.Income,
		Expenses:    facts.Summary.Expenses,
		Net:         facts.Summary.Net,
		SavingsRate: facts.Summary.SavingsRate,
		TopCategory: topCategory,
		Insights:    insightCount,
		GeneratedAt: w.now(),
	}
	if err := w.reporter.AppendMonthlyRow(ctx, row); err != nil {
		w.logger.WarnContext(ctx, "Report export failed",
			log.FieldError, err,
			log.FieldMonth, monthKey)
	}
}
