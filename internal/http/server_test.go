package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"fincast/internal/amqp"
	"fincast/internal/core"
	"fincast/internal/log"
	"fincast/internal/store"
	"fincast/internal/store/memory"
)

var testNow = time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)

type fakePublisher struct {
	mu       sync.Mutex
	messages []*amqp.RecomputeMessage
}

func (f *fakePublisher) PublishRecompute(_ context.Context, msg *amqp.RecomputeMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakePublisher) published() []*amqp.RecomputeMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*amqp.RecomputeMessage(nil), f.messages...)
}

func testSnapshot() store.Snapshot {
	return store.Snapshot{
		Expenses: []core.Expense{
			{ID: "e1", Title: "Weekly shop", Amount: core.Money{Cents: 10000}, CategoryID: "groceries",
				Date: time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)},
			{ID: "e2", Title: "Dinner out", Amount: core.Money{Cents: 25000}, CategoryID: "dining",
				Date: time.Date(2025, time.March, 8, 0, 0, 0, 0, time.UTC)},
			{ID: "e3", Title: "February rent", Amount: core.Money{Cents: 50000}, CategoryID: "housing",
				Date: time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)},
		},
		Incomes: []core.Income{
			{ID: "in1", Title: "March salary", Amount: core.Money{Cents: 300000}, Status: core.IncomeReceived,
				ActualDate: time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)},
			{ID: "in2", Title: "February salary", Amount: core.Money{Cents: 280000}, Status: core.IncomeReceived,
				ActualDate: time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)},
		},
		Installments: []core.Installment{
			{ID: "i1", Title: "Laptop plan", TotalAmount: core.Money{Cents: 120000},
				InstallmentAmount: core.Money{Cents: 10000}, TotalInstallments: 12, PaidInstallments: 3,
				Frequency: core.Monthly, StartDate: time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
				NextPaymentDate: time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC),
				Status:          core.InstallmentActive},
		},
		Goals: []core.Goal{
			{ID: "g1", Title: "Emergency fund", TargetAmount: core.Money{Cents: 100000},
				CurrentAmount: core.Money{Cents: 40000}, Status: core.GoalActive,
				Milestones: []core.GoalMilestone{
					{ID: "m1", Title: "Halfway", TargetAmount: core.Money{Cents: 50000}},
				}},
		},
	}
}

func newTestServer(t *testing.T, snap store.Snapshot) (*Server, *fakePublisher) {
	t.Helper()
	pub := &fakePublisher{}
	logger := log.New(log.Config{
		Handler: slog.NewTextHandler(io.Discard, nil),
	})
	s := NewServer(":0", memory.New(snap), pub, Options{
		Now: func() time.Time { return testNow },
	}, logger)
	t.Cleanup(func() {
		if err := s.Shutdown(context.Background()); err != nil {
			t.Errorf("shutdown: %v", err)
		}
	})
	return s, pub
}

func doRequest(s *Server, method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response: %v (body %s)", err, rec.Body.String())
	}
}

func TestHealthEndpoints(t *testing.T) {
	s, _ := newTestServer(t, testSnapshot())

	if rec := doRequest(s, http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec := doRequest(s, http.MethodGet, "/readyz", nil); rec.Code != http.StatusOK {
		t.Errorf("readyz status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestSummaryThisMonth(t *testing.T) {
	s, _ := newTestServer(t, testSnapshot())

	rec := doRequest(s, http.MethodGet, "/api/summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp summaryResponse
	decodeInto(t, rec, &resp)

	if resp.IncomeCents != 300000 {
		t.Errorf("income = %d, want 300000", resp.IncomeCents)
	}
	if resp.ExpensesCents != 35000 {
		t.Errorf("expenses = %d, want 35000", resp.ExpensesCents)
	}
	if resp.NetCents != 265000 {
		t.Errorf("net = %d, want 265000", resp.NetCents)
	}
	if resp.SavingsRate < 88.3 || resp.SavingsRate > 88.4 {
		t.Errorf("savings rate = %f, want ~88.33", resp.SavingsRate)
	}
	if !resp.Comparison.HasPrevious {
		t.Error("expected comparison against February")
	}
	if resp.Period.Label == "" {
		t.Error("expected a period label")
	}
}

func TestSummaryCustomPeriod(t *testing.T) {
	s, _ := newTestServer(t, testSnapshot())

	rec := doRequest(s, http.MethodGet, "/api/summary?start=2025-02-01&end=2025-02-28", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp summaryResponse
	decodeInto(t, rec, &resp)
	if resp.IncomeCents != 280000 {
		t.Errorf("income = %d, want 280000", resp.IncomeCents)
	}
	if resp.ExpensesCents != 50000 {
		t.Errorf("expenses = %d, want 50000", resp.ExpensesCents)
	}
}

func TestSummaryRejectsHalfCustomPeriod(t *testing.T) {
	s, _ := newTestServer(t, testSnapshot())

	rec := doRequest(s, http.MethodGet, "/api/summary?start=2025-02-01", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestForecast(t *testing.T) {
	s, _ := newTestServer(t, testSnapshot())

	rec := doRequest(s, http.MethodGet, "/api/forecast?horizon=3", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp forecastResponse
	decodeInto(t, rec, &resp)
	if resp.Horizon != 3 {
		t.Errorf("horizon = %d, want 3", resp.Horizon)
	}
	if len(resp.Months) != 3 {
		t.Fatalf("months = %d, want 3", len(resp.Months))
	}
	// History ends in March 2025, so projection starts in April.
	if resp.Months[0].Month != "2025-04" {
		t.Errorf("first month = %q, want 2025-04", resp.Months[0].Month)
	}
	for _, m := range resp.Months {
		if !m.IsForecast {
			t.Errorf("month %s not flagged as forecast", m.Month)
		}
	}
}

func TestForecastRejectsBadHorizon(t *testing.T) {
	s, _ := newTestServer(t, testSnapshot())

	for _, horizon := range []string{"0", "61", "abc", "-1"} {
		rec := doRequest(s, http.MethodGet, "/api/forecast?horizon="+horizon, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("horizon %q: status = %d, want %d", horizon, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestInsights(t *testing.T) {
	s, _ := newTestServer(t, testSnapshot())

	rec := doRequest(s, http.MethodGet, "/api/insights", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp insightsResponse
	decodeInto(t, rec, &resp)
	if len(resp.Insights) == 0 {
		t.Fatal("expected at least one insight")
	}
	for _, ins := range resp.Insights {
		if ins.Title == "" || ins.Message == "" {
			t.Errorf("insight %q missing title or message", ins.Type)
		}
	}
}

func TestInsightsReflectSpendAgainstBudget(t *testing.T) {
	snap := testSnapshot()
	// Stored lines carry no Spent; the handler must derive it from the
	// snapshot's expenses.
	snap.Budgets = []core.Budget{
		{ID: "b1", Month: "2025-03", CategoryBudgets: []core.CategoryBudget{
			{CategoryID: "groceries", Planned: core.Money{Cents: 10000}},
		}},
	}
	s, _ := newTestServer(t, snap)

	body := `{"title":"Stockpile run","amountCents":50000,"categoryId":"groceries","date":"2025-03-14"}`
	if rec := doRequest(s, http.MethodPost, "/api/expenses", strings.NewReader(body)); rec.Code != http.StatusCreated {
		t.Fatalf("create expense: status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec := doRequest(s, http.MethodGet, "/api/insights", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp insightsResponse
	decodeInto(t, rec, &resp)

	var overrun, allClear bool
	for _, ins := range resp.Insights {
		switch ins.Title {
		case "Budget exceeded":
			overrun = true
		case "All budgets on track":
			allClear = true
		}
	}
	if !overrun {
		t.Errorf("expected a budget-exceeded insight, got %+v", resp.Insights)
	}
	if allClear {
		t.Error("got an all-clear insight while groceries is over plan")
	}
}

func TestCategoryBreakdown(t *testing.T) {
	s, _ := newTestServer(t, testSnapshot())

	rec := doRequest(s, http.MethodGet, "/api/categories/breakdown", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp breakdownResponse
	decodeInto(t, rec, &resp)
	if resp.TotalCents != 35000 {
		t.Errorf("total = %d, want 35000", resp.TotalCents)
	}
	if len(resp.Categories) != 2 {
		t.Fatalf("categories = %d, want 2", len(resp.Categories))
	}
	// Slices come back largest first.
	if resp.Categories[0].CategoryID != "dining" || resp.Categories[0].TotalCents != 25000 {
		t.Errorf("top slice = %s/%d, want dining/25000",
			resp.Categories[0].CategoryID, resp.Categories[0].TotalCents)
	}
	if resp.Categories[1].CategoryID != "groceries" {
		t.Errorf("second slice = %s, want groceries", resp.Categories[1].CategoryID)
	}
}

func TestCreateExpense(t *testing.T) {
	s, pub := newTestServer(t, testSnapshot())

	// Prime the summary cache so the write has something to invalidate.
	if rec := doRequest(s, http.MethodGet, "/api/summary", nil); rec.Code != http.StatusOK {
		t.Fatalf("prime summary: status = %d", rec.Code)
	}

	body := `{"title":"Bus ticket","amountCents":250,"categoryId":"transport","date":"2025-03-10"}`
	rec := doRequest(s, http.MethodPost, "/api/expenses", strings.NewReader(body))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var created createdResponse
	decodeInto(t, rec, &created)
	if created.ID == "" {
		t.Fatal("expected a generated id")
	}

	msgs := pub.published()
	if len(msgs) != 1 {
		t.Fatalf("published messages = %d, want 1", len(msgs))
	}
	if msgs[0].Scope != amqp.ScopeMonth || msgs[0].Year != 2025 || msgs[0].Month != 3 {
		t.Errorf("recompute message = %+v, want month scope for 2025-03", msgs[0])
	}

	// The write must flush the cached summary.
	var resp summaryResponse
	decodeInto(t, doRequest(s, http.MethodGet, "/api/summary", nil), &resp)
	if resp.ExpensesCents != 35250 {
		t.Errorf("expenses after create = %d, want 35250", resp.ExpensesCents)
	}
}

func TestCreateExpenseDecimalAmount(t *testing.T) {
	s, _ := newTestServer(t, testSnapshot())

	body := `{"title":"Coffee","amount":"3,50","categoryId":"dining","date":"2025-03-11"}`
	rec := doRequest(s, http.MethodPost, "/api/expenses", strings.NewReader(body))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestCreateExpenseRejectsInvalid(t *testing.T) {
	s, _ := newTestServer(t, testSnapshot())

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"title":`, http.StatusBadRequest},
		{"unknown field", `{"title":"x","amountCents":100,"categoryId":"dining","date":"2025-03-10","bogus":1}`, http.StatusBadRequest},
		{"empty title", `{"title":"","amountCents":100,"categoryId":"dining","date":"2025-03-10"}`, http.StatusUnprocessableEntity},
		{"bad amount", `{"title":"x","amount":"abc","categoryId":"dining","date":"2025-03-10"}`, http.StatusUnprocessableEntity},
		{"bad date", `{"title":"x","amountCents":100,"categoryId":"dining","date":"10-03-2025"}`, http.StatusUnprocessableEntity},
		{"missing category", `{"title":"x","amountCents":100,"date":"2025-03-10"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(s, http.MethodPost, "/api/expenses", strings.NewReader(tt.body))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestCreateIncome(t *testing.T) {
	s, pub := newTestServer(t, testSnapshot())

	body := `{"title":"Freelance gig","amountCents":50000,"status":"received","actualDate":"2025-03-12"}`
	rec := doRequest(s, http.MethodPost, "/api/incomes", strings.NewReader(body))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	if msgs := pub.published(); len(msgs) != 1 || msgs[0].Scope != amqp.ScopeMonth {
		t.Errorf("expected one month-scope recompute message, got %+v", msgs)
	}

	var resp summaryResponse
	decodeInto(t, doRequest(s, http.MethodGet, "/api/summary", nil), &resp)
	if resp.IncomeCents != 350000 {
		t.Errorf("income after create = %d, want 350000", resp.IncomeCents)
	}
}

func TestCreateIncomeRejectsMismatchedDates(t *testing.T) {
	s, _ := newTestServer(t, testSnapshot())

	// Pending income carries an expected date, not an actual one.
	body := `{"title":"Bonus","amountCents":10000,"status":"pending","actualDate":"2025-03-12"}`
	rec := doRequest(s, http.MethodPost, "/api/incomes", strings.NewReader(body))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestGoalContribution(t *testing.T) {
	s, pub := newTestServer(t, testSnapshot())

	body := `{"amountCents":20000,"notes":"tax refund"}`
	rec := doRequest(s, http.MethodPost, "/api/goals/g1/contributions", strings.NewReader(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp goalStateResponse
	decodeInto(t, rec, &resp)
	if resp.CurrentAmountCents != 60000 {
		t.Errorf("current = %d, want 60000", resp.CurrentAmountCents)
	}
	if resp.Status != string(core.GoalActive) {
		t.Errorf("status = %q, want active", resp.Status)
	}
	if len(resp.Milestones) != 1 || !resp.Milestones[0].Reached {
		t.Errorf("milestone should be reached after crossing 50000, got %+v", resp.Milestones)
	}
	if resp.Milestones[0].ReachedAt == nil || !resp.Milestones[0].ReachedAt.Equal(testNow) {
		t.Errorf("milestone ReachedAt = %v, want %v", resp.Milestones[0].ReachedAt, testNow)
	}

	if msgs := pub.published(); len(msgs) != 1 || msgs[0].Scope != amqp.ScopeFull {
		t.Errorf("expected one full-scope recompute message, got %+v", msgs)
	}
}

func TestGoalContributionWithdrawalConflict(t *testing.T) {
	s, _ := newTestServer(t, testSnapshot())

	body := `{"amountCents":-50000}`
	rec := doRequest(s, http.MethodPost, "/api/goals/g1/contributions", strings.NewReader(body))
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusConflict, rec.Body.String())
	}
}

func TestGoalContributionNotFound(t *testing.T) {
	s, _ := newTestServer(t, testSnapshot())

	rec := doRequest(s, http.MethodPost, "/api/goals/missing/contributions", strings.NewReader(`{"amountCents":100}`))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestInstallmentPayment(t *testing.T) {
	s, _ := newTestServer(t, testSnapshot())

	body := `{"amountCents":10000,"status":"paid","date":"2025-04-01"}`
	rec := doRequest(s, http.MethodPost, "/api/installments/i1/payments", strings.NewReader(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp installmentStateResponse
	decodeInto(t, rec, &resp)
	if resp.PaidInstallments != 4 {
		t.Errorf("paid installments = %d, want 4", resp.PaidInstallments)
	}
	if resp.Status != string(core.InstallmentActive) {
		t.Errorf("status = %q, want active", resp.Status)
	}
	if resp.NextPaymentDate == nil {
		t.Fatal("expected a next payment date")
	}
	if want := time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC); !resp.NextPaymentDate.Equal(want) {
		t.Errorf("next payment date = %v, want %v", resp.NextPaymentDate, want)
	}
}

func TestInstallmentPaymentErrors(t *testing.T) {
	s, _ := newTestServer(t, testSnapshot())

	tests := []struct {
		name   string
		target string
		body   string
		want   int
	}{
		{"not found", "/api/installments/missing/payments", `{"amountCents":100,"status":"paid"}`, http.StatusNotFound},
		{"bad status", "/api/installments/i1/payments", `{"amountCents":100,"status":"maybe"}`, http.StatusUnprocessableEntity},
		{"bad amount", "/api/installments/i1/payments", `{"amountCents":-100,"status":"paid"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(s, http.MethodPost, tt.target, strings.NewReader(tt.body))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	s, pub := newTestServer(t, testSnapshot())

	rec := doRequest(s, http.MethodGet, "/api/export", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d, body %s", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Errorf("Content-Disposition = %q, want attachment", cd)
	}

	exported := rec.Body.Bytes()
	rec = doRequest(s, http.MethodPost, "/api/import", bytes.NewReader(exported))
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp importResponse
	decodeInto(t, rec, &resp)
	if resp.Expenses != 3 || resp.Incomes != 2 || resp.Goals != 1 || resp.Installments != 1 {
		t.Errorf("import counts = %+v, want 3 expenses, 2 incomes, 1 goal, 1 installment", resp)
	}

	msgs := pub.published()
	if len(msgs) != 1 || msgs[0].Scope != amqp.ScopeFull {
		t.Errorf("expected one full-scope recompute message, got %+v", msgs)
	}
}

func TestImportRejectsGarbage(t *testing.T) {
	s, _ := newTestServer(t, testSnapshot())

	rec := doRequest(s, http.MethodPost, "/api/import", strings.NewReader(`{"version":99}`))
	if rec.Code != http.StatusBadRequest && rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want a client error", rec.Code)
	}
}

func TestRateLimitOnWrites(t *testing.T) {
	s, _ := newTestServer(t, testSnapshot())

	var limited bool
	for i := 0; i < requestsPerMinute+1; i++ {
		rec := doRequest(s, http.MethodPost, "/api/expenses", strings.NewReader(`{}`))
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			if retry := rec.Header().Get("Retry-After"); retry != "60" {
				t.Errorf("Retry-After = %q, want 60", retry)
			}
			break
		}
	}
	if !limited {
		t.Error("expected rate limiting to kick in")
	}

	// Reads stay unlimited.
	if rec := doRequest(s, http.MethodGet, "/api/summary", nil); rec.Code != http.StatusOK {
		t.Errorf("read after limit: status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestSecurityHeaders(t *testing.T) {
	s, _ := newTestServer(t, testSnapshot())

	rec := doRequest(s, http.MethodGet, "/api/summary", nil)
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
}
