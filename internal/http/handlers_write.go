package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"fincast/internal/amqp"
	"fincast/internal/core"
	"fincast/internal/engine"
	"fincast/internal/export"
	"fincast/internal/log"
	"fincast/internal/store"
)

const maxImportBytes = 10 << 20 // 10 MiB

type createExpenseRequest struct {
	Title       string `json:"title"`
	Amount      string `json:"amount,omitempty"`
	AmountCents int64  `json:"amountCents,omitempty"`
	CategoryID  string `json:"categoryId"`
	Date        string `json:"date"`
	Notes       string `json:"notes,omitempty"`
}

type createIncomeRequest struct {
	Title        string `json:"title"`
	Amount       string `json:"amount,omitempty"`
	AmountCents  int64  `json:"amountCents,omitempty"`
	Type         string `json:"type,omitempty"`
	Status       string `json:"status"`
	Frequency    string `json:"frequency,omitempty"`
	ActualDate   string `json:"actualDate,omitempty"`
	ExpectedDate string `json:"expectedDate,omitempty"`
	IsRecurring  bool   `json:"isRecurring,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

type createdResponse struct {
	ID string `json:"id"`
}

type contributionRequest struct {
	AmountCents int64  `json:"amountCents"`
	Notes       string `json:"notes,omitempty"`
}

type milestoneDTO struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	TargetAmountCents int64      `json:"targetAmountCents"`
	Reached           bool       `json:"reached"`
	ReachedAt         *time.Time `json:"reachedAt,omitempty"`
}

type goalStateResponse struct {
	ID                 string         `json:"id"`
	Title              string         `json:"title"`
	TargetAmountCents  int64          `json:"targetAmountCents"`
	CurrentAmountCents int64          `json:"currentAmountCents"`
	Progress           float64        `json:"progress"`
	Status             string         `json:"status"`
	Milestones         []milestoneDTO `json:"milestones,omitempty"`
}

type paymentRequest struct {
	AmountCents int64  `json:"amountCents"`
	Status      string `json:"status"`
	Date        string `json:"date,omitempty"`
}

type installmentStateResponse struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	PaidInstallments  int        `json:"paidInstallments"`
	TotalInstallments int        `json:"totalInstallments"`
	PaidAmountCents   int64      `json:"paidAmountCents"`
	Status            string     `json:"status"`
	NextPaymentDate   *time.Time `json:"nextPaymentDate,omitempty"`
}

type importResponse struct {
	Categories   int `json:"categories"`
	Expenses     int `json:"expenses"`
	Incomes      int `json:"incomes"`
	Budgets      int `json:"budgets"`
	Installments int `json:"installments"`
	Goals        int `json:"goals"`
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// resolveCents accepts either an integer cent amount or a decimal string.
func resolveCents(amountCents int64, amount string) (core.Money, error) {
	if amountCents != 0 {
		return core.Money{Cents: amountCents}, nil
	}
	cents, err := core.ParseAmountToCents(amount)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: cents}, nil
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	amount, err := resolveCents(req.AmountCents, req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid date, want YYYY-MM-DD")
		return
	}

	expense := core.Expense{
		Title:      sanitizeInput(req.Title),
		Amount:     amount,
		CategoryID: sanitizeInput(req.CategoryID),
		Date:       date,
		Notes:      sanitizeInput(req.Notes),
	}
	if err := expense.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.store.AddExpense(r.Context(), expense)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Expense create failed", log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "failed to save expense")
		return
	}

	s.invalidateDerived()
	s.publishRecompute(r.Context(), amqp.NewMonthRecompute(date.Year(), date.Month()))

	s.logger.InfoContext(r.Context(), "Expense created",
		log.FieldExpenseID, id,
		log.FieldAmount, expense.Amount.Cents,
		log.FieldCategoryID, expense.CategoryID)

	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	var req createIncomeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	amount, err := resolveCents(req.AmountCents, req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}

	income := core.Income{
		Title:       sanitizeInput(req.Title),
		Amount:      amount,
		Type:        sanitizeInput(req.Type),
		Status:      core.IncomeStatus(req.Status),
		Frequency:   core.Frequency(req.Frequency),
		IsRecurring: req.IsRecurring,
		Notes:       sanitizeInput(req.Notes),
		CreatedAt:   s.now(),
	}
	if req.ActualDate != "" {
		if income.ActualDate, err = parseDate(req.ActualDate); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid actualDate, want YYYY-MM-DD")
			return
		}
	}
	if req.ExpectedDate != "" {
		if income.ExpectedDate, err = parseDate(req.ExpectedDate); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid expectedDate, want YYYY-MM-DD")
			return
		}
	}
	if err := income.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.store.AddIncome(r.Context(), income)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Income create failed", log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "failed to save income")
		return
	}

	s.invalidateDerived()
	effective := income.EffectiveDate()
	s.publishRecompute(r.Context(), amqp.NewMonthRecompute(effective.Year(), effective.Month()))

	s.logger.InfoContext(r.Context(), "Income created",
		log.FieldIncomeID, id,
		log.FieldAmount, income.Amount.Cents,
		"status", string(income.Status))

	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

func toGoalState(g core.Goal) goalStateResponse {
	resp := goalStateResponse{
		ID:                 g.ID,
		Title:              g.Title,
		TargetAmountCents:  g.TargetAmount.Cents,
		CurrentAmountCents: g.CurrentAmount.Cents,
		Progress:           g.Progress(),
		Status:             string(g.Status),
	}
	for _, m := range g.Milestones {
		dto := milestoneDTO{
			ID:                m.ID,
			Title:             m.Title,
			TargetAmountCents: m.TargetAmount.Cents,
			Reached:           m.Reached,
		}
		if !m.ReachedAt.IsZero() {
			at := m.ReachedAt
			dto.ReachedAt = &at
		}
		resp.Milestones = append(resp.Milestones, dto)
	}
	return resp
}

func (s *Server) handleGoalContribution(w http.ResponseWriter, r *http.Request) {
	goalID := r.PathValue("id")

	var req contributionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	goal, err := s.store.GetGoal(r.Context(), goalID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "goal not found")
		return
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Goal load failed", log.FieldError, err, log.FieldGoalID, goalID)
		writeError(w, http.StatusInternalServerError, "failed to load goal")
		return
	}

	updated, err := engine.ApplyContribution(goal, core.Money{Cents: req.AmountCents}, sanitizeInput(req.Notes), s.now())
	if errors.Is(err, core.ErrInvalidWithdrawal) {
		writeError(w, http.StatusConflict, "withdrawal exceeds current amount")
		return
	}
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.store.SaveGoal(r.Context(), updated); err != nil {
		s.logger.ErrorContext(r.Context(), "Goal save failed", log.FieldError, err, log.FieldGoalID, goalID)
		writeError(w, http.StatusInternalServerError, "failed to save goal")
		return
	}

	s.invalidateDerived()
	s.publishRecompute(r.Context(), amqp.NewFullRecompute())

	s.logger.InfoContext(r.Context(), "Goal contribution applied",
		log.FieldGoalID, goalID,
		log.FieldAmount, req.AmountCents,
		"progress", updated.Progress())

	writeJSON(w, http.StatusOK, toGoalState(updated))
}

func (s *Server) handleInstallmentPayment(w http.ResponseWriter, r *http.Request) {
	installmentID := r.PathValue("id")

	var req paymentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	date := s.now()
	if req.Date != "" {
		var err error
		if date, err = parseDate(req.Date); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid date, want YYYY-MM-DD")
			return
		}
	}

	ins, err := s.store.GetInstallment(r.Context(), installmentID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "installment not found")
		return
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Installment load failed", log.FieldError, err, "installment_id", installmentID)
		writeError(w, http.StatusInternalServerError, "failed to load installment")
		return
	}

	updated, err := engine.RecordInstallmentPayment(ins, core.Money{Cents: req.AmountCents}, core.PaymentStatus(req.Status), date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.store.SaveInstallment(r.Context(), updated); err != nil {
		s.logger.ErrorContext(r.Context(), "Installment save failed", log.FieldError, err, "installment_id", installmentID)
		writeError(w, http.StatusInternalServerError, "failed to save installment")
		return
	}

	s.invalidateDerived()
	s.publishRecompute(r.Context(), amqp.NewMonthRecompute(date.Year(), date.Month()))

	resp := installmentStateResponse{
		ID:                updated.ID,
		Title:             updated.Title,
		PaidInstallments:  updated.PaidInstallments,
		TotalInstallments: updated.TotalInstallments,
		PaidAmountCents:   updated.PaidAmount().Cents,
		Status:            string(updated.Status),
	}
	if !updated.NextPaymentDate.IsZero() {
		next := updated.NextPaymentDate
		resp.NextPaymentDate = &next
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Snapshot(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Snapshot load failed", log.FieldError, err, log.FieldOperation, "export")
		writeError(w, http.StatusInternalServerError, "failed to load data")
		return
	}

	doc := export.FromSnapshot(snap, s.now())
	data, err := doc.Marshal()
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Export marshal failed", log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "failed to build export")
		return
	}

	filename := "fincast-export-" + s.now().Format("2006-01-02") + ".json"
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	doc, err := export.Unmarshal(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, err := doc.Snapshot()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.store.ReplaceAll(r.Context(), snap); err != nil {
		s.logger.ErrorContext(r.Context(), "Import failed", log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "failed to import data")
		return
	}

	s.invalidateDerived()
	s.publishRecompute(r.Context(), amqp.NewFullRecompute())

	s.logger.InfoContext(r.Context(), "Dataset imported",
		"expenses", len(snap.Expenses),
		"incomes", len(snap.Incomes),
		"goals", len(snap.Goals))

	writeJSON(w, http.StatusOK, importResponse{
		Categories:   len(snap.Categories),
		Expenses:     len(snap.Expenses),
		Incomes:      len(snap.Incomes),
		Budgets:      len(snap.Budgets),
		Installments: len(snap.Installments),
		Goals:        len(snap.Goals),
	})
}
