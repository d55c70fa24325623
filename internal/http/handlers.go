package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fincast/internal/core"
	"fincast/internal/engine"
	"fincast/internal/log"
	"fincast/internal/store"
)

type periodDTO struct {
	Preset string    `json:"preset"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Label  string    `json:"label"`
}

func toPeriodDTO(p engine.Period) periodDTO {
	return periodDTO{
		Preset: string(p.Preset),
		Start:  p.Start,
		End:    p.End,
		Label:  p.Label,
	}
}

type trendDTO struct {
	Direction string `json:"direction"`
	Favorable bool   `json:"favorable"`
}

func toTrendDTO(t engine.Trend) trendDTO {
	return trendDTO{Direction: string(t.Direction), Favorable: t.Favorable}
}

type comparisonDTO struct {
	IncomePct    float64  `json:"incomePct"`
	ExpensesPct  float64  `json:"expensesPct"`
	IncomeTrend  trendDTO `json:"incomeTrend"`
	ExpenseTrend trendDTO `json:"expenseTrend"`
	HasPrevious  bool     `json:"hasPrevious"`
}

type summaryResponse struct {
	Period        periodDTO     `json:"period"`
	IncomeCents   int64         `json:"incomeCents"`
	ExpensesCents int64         `json:"expensesCents"`
	NetCents      int64         `json:"netCents"`
	SavingsRate   float64       `json:"savingsRate"`
	Comparison    comparisonDTO `json:"comparison"`
}

type forecastMonthDTO struct {
	Month           string `json:"month"`
	IncomeCents     int64  `json:"incomeCents"`
	ExpensesCents   int64  `json:"expensesCents"`
	NetCents        int64  `json:"netCents"`
	CumulativeCents int64  `json:"cumulativeCents"`
	IsForecast      bool   `json:"isForecast"`
}

type forecastResponse struct {
	GeneratedAt time.Time          `json:"generatedAt"`
	Horizon     int                `json:"horizon"`
	Months      []forecastMonthDTO `json:"months"`
}

type insightsResponse struct {
	Period   periodDTO        `json:"period"`
	Insights []engine.Insight `json:"insights"`
}

type categorySliceDTO struct {
	CategoryID  string  `json:"categoryId"`
	Name        string  `json:"name"`
	Color       string  `json:"color,omitempty"`
	Icon        string  `json:"icon,omitempty"`
	IsEssential bool    `json:"isEssential"`
	TotalCents  int64   `json:"totalCents"`
	Percentage  float64 `json:"percentage"`
}

type breakdownResponse struct {
	Period     periodDTO          `json:"period"`
	TotalCents int64              `json:"totalCents"`
	Categories []categorySliceDTO `json:"categories"`
}

func periodKey(prefix string, p engine.Period) string {
	return fmt.Sprintf("%s:%s:%d:%d", prefix, p.Preset, p.Start.UnixNano(), p.End.UnixNano())
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	p, err := parsePeriod(r, s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := periodKey("summary", p)
	if resp, found := s.summaryCache.Get(key); found {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	snap, err := s.store.Snapshot(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Snapshot load failed", log.FieldError, err, log.FieldOperation, "summary")
		writeError(w, http.StatusInternalServerError, "failed to load data")
		return
	}

	summary := engine.SummarizePeriod(snap.Expenses, snap.Incomes, p)
	resp := summaryResponse{
		Period:        toPeriodDTO(p),
		IncomeCents:   summary.Income.Cents,
		ExpensesCents: summary.Expenses.Cents,
		NetCents:      summary.Net.Cents,
		SavingsRate:   summary.SavingsRate,
		Comparison: comparisonDTO{
			IncomePct:    summary.Comparison.Income,
			ExpensesPct:  summary.Comparison.Expenses,
			IncomeTrend:  toTrendDTO(summary.Comparison.IncomeTrend),
			ExpenseTrend: toTrendDTO(summary.Comparison.ExpenseTrend),
			HasPrevious:  summary.Comparison.HasPrevious,
		},
	}

	s.summaryCache.Set(key, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	horizon := s.forecastHorizon
	if v := strings.TrimSpace(r.URL.Query().Get("horizon")); v != "" {
		h, err := strconv.Atoi(v)
		if err != nil || h < 1 || h > 60 {
			writeError(w, http.StatusBadRequest, "invalid horizon, want 1-60 months")
			return
		}
		horizon = h
	}

	key := "forecast:" + strconv.Itoa(horizon)
	if resp, found := s.forecastCache.Get(key); found {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	snap, err := s.store.Snapshot(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Snapshot load failed", log.FieldError, err, log.FieldOperation, "forecast")
		writeError(w, http.StatusInternalServerError, "failed to load data")
		return
	}

	history := engine.MonthsAscending(engine.GroupByMonth(snap.Expenses, snap.Incomes))
	months := engine.Forecast(history, horizon, s.now())

	resp := forecastResponse{
		GeneratedAt: s.now(),
		Horizon:     horizon,
		Months:      make([]forecastMonthDTO, 0, len(months)),
	}
	for _, m := range months {
		resp.Months = append(resp.Months, forecastMonthDTO{
			Month:           m.Month,
			IncomeCents:     m.Income.Cents,
			ExpensesCents:   m.Expenses.Cents,
			NetCents:        m.Net.Cents,
			CumulativeCents: m.Cumulative.Cents,
			IsForecast:      m.IsForecast,
		})
	}

	s.forecastCache.Set(key, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	p, err := parsePeriod(r, s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := periodKey("insights", p)
	if resp, found := s.insightsCache.Get(key); found {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	snap, err := s.store.Snapshot(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Snapshot load failed", log.FieldError, err, log.FieldOperation, "insights")
		writeError(w, http.StatusInternalServerError, "failed to load data")
		return
	}

	// Budget rules read the budget of the period's starting month; absent
	// budgets simply disable those rules. Spent comes from the snapshot's
	// expenses, not the stored lines, which may predate recent writes.
	budget, err := s.store.GetBudget(r.Context(), core.MonthKey(p.Start))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.logger.ErrorContext(r.Context(), "Budget load failed", log.FieldError, err, log.FieldMonth, core.MonthKey(p.Start))
		writeError(w, http.StatusInternalServerError, "failed to load data")
		return
	}
	budget = engine.RecomputeBudget(budget, snap.Expenses)

	facts := engine.BuildFacts(snap.Categories, snap.Expenses, snap.Incomes, budget, snap.Goals, p)
	insights := engine.GenerateInsights(facts, FormatEuros)

	resp := insightsResponse{
		Period:   toPeriodDTO(p),
		Insights: insights,
	}

	s.insightsCache.Set(key, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	p, err := parsePeriod(r, s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := engine.GroupOptions{TopK: s.topCategories, IncludeRemainder: true}
	if v := strings.TrimSpace(r.URL.Query().Get("top")); v != "" {
		k, err := strconv.Atoi(v)
		if err != nil || k < 1 || k > 100 {
			writeError(w, http.StatusBadRequest, "invalid top, want 1-100")
			return
		}
		opts.TopK = k
	}
	if v := strings.TrimSpace(r.URL.Query().Get("remainder")); v != "" {
		include, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid remainder flag")
			return
		}
		opts.IncludeRemainder = include
	}

	key := fmt.Sprintf("%s:%d:%t", periodKey("breakdown", p), opts.TopK, opts.IncludeRemainder)
	if resp, found := s.breakdownCache.Get(key); found {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	snap, err := s.store.Snapshot(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Snapshot load failed", log.FieldError, err, log.FieldOperation, "breakdown")
		writeError(w, http.StatusInternalServerError, "failed to load data")
		return
	}

	inPeriod := engine.FilterExpenses(snap.Expenses, p)
	buckets := engine.GroupByCategory(inPeriod, core.CategoryIndex(snap.Categories), opts)

	resp := breakdownResponse{
		Period:     toPeriodDTO(p),
		TotalCents: engine.TotalExpenses(inPeriod).Cents,
		Categories: make([]categorySliceDTO, 0, len(buckets)),
	}
	for _, b := range buckets {
		resp.Categories = append(resp.Categories, categorySliceDTO{
			CategoryID:  b.Category.ID,
			Name:        b.Category.Name,
			Color:       b.Category.Color,
			Icon:        b.Category.Icon,
			IsEssential: b.Category.IsEssential,
			TotalCents:  b.Total.Cents,
			Percentage:  b.Percentage,
		})
	}

	s.breakdownCache.Set(key, resp)
	writeJSON(w, http.StatusOK, resp)
}
