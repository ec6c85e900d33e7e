package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tally/internal/core"
	"tally/internal/ledger"
	"tally/internal/report"
	"tally/internal/services"
	"tally/internal/storage/memory"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	backend := memory.New()
	store := ledger.NewStore(backend)
	svc := services.NewLedgerService(store, nil)
	recurring := ledger.NewRecurringStore(backend)

	s := NewServer(":0", svc, recurring)
	t.Cleanup(func() {
		svc.Close()
		recurring.Flush()
		_ = s.Shutdown(context.Background())
	})
	return s
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func createTransaction(t *testing.T, s *Server, body string) core.Transaction {
	t.Helper()
	rec := doRequest(s, http.MethodPost, "/transactions", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var tx core.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &tx); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	return tx
}

func txBody(cents int64, desc, typ string, date time.Time) string {
	return fmt.Sprintf(`{"amount_cents":%d,"description":%q,"category_id":"other","date":%q,"type":%q}`,
		cents, desc, date.Format(time.RFC3339), typ)
}

func TestCreateTransaction(t *testing.T) {
	s := newTestServer(t)

	tx := createTransaction(t, s, txBody(1500, "office supplies", "expense", time.Now()))

	if tx.ID == "" {
		t.Errorf("expected assigned id")
	}
	if tx.CreatedAt.IsZero() {
		t.Errorf("expected assigned created_at")
	}
	if tx.AmountCents != 1500 || tx.Type != core.Expense {
		t.Errorf("unexpected transaction: %+v", tx)
	}
}

func TestCreateTransaction_Validation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{
			name: "zero amount",
			body: txBody(0, "office supplies", "expense", time.Now()),
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "amount above maximum",
			body: txBody(100_000_000_000, "big purchase", "expense", time.Now()),
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "description too short",
			body: txBody(100, "ab", "expense", time.Now()),
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "unknown type",
			body: txBody(100, "office supplies", "transfer", time.Now()),
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "bad date",
			body: `{"amount_cents":100,"description":"office supplies","date":"yesterday","type":"expense"}`,
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "malformed JSON",
			body: `{"amount_cents":`,
			want: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(s, http.MethodPost, "/transactions", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body: %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestTransactionLifecycle(t *testing.T) {
	s := newTestServer(t)

	tx := createTransaction(t, s, txBody(2000, "consulting fee", "income", time.Now()))

	// Read it back.
	rec := doRequest(s, http.MethodGet, "/transactions/"+tx.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	// Patch the description; id must not change.
	rec = doRequest(s, http.MethodPatch, "/transactions/"+tx.ID, `{"description":"consulting retainer"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var updated core.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode patch response: %v", err)
	}
	if updated.Description != "consulting retainer" {
		t.Errorf("description = %q, want consulting retainer", updated.Description)
	}
	if updated.ID != tx.ID || !updated.CreatedAt.Equal(tx.CreatedAt) {
		t.Errorf("id or created_at changed on patch")
	}
	if updated.AmountCents != 2000 {
		t.Errorf("untouched amount changed: %d", updated.AmountCents)
	}

	// Delete and verify.
	rec = doRequest(s, http.MethodDelete, "/transactions/"+tx.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = doRequest(s, http.MethodGet, "/transactions/"+tx.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestMissingTransactionIs404(t *testing.T) {
	s := newTestServer(t)

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rec := doRequest(s, method, "/transactions/nope", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s status = %d, want 404", method, rec.Code)
		}
	}
	rec := doRequest(s, http.MethodPatch, "/transactions/nope", `{"notes":"x"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("PATCH status = %d, want 404", rec.Code)
	}
}

func TestPatchValidation(t *testing.T) {
	s := newTestServer(t)
	tx := createTransaction(t, s, txBody(500, "team lunch", "expense", time.Now()))

	rec := doRequest(s, http.MethodPatch, "/transactions/"+tx.ID, `{"amount_cents":0}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid patch status = %d, want 422", rec.Code)
	}
}

func TestClearTransactions(t *testing.T) {
	s := newTestServer(t)
	createTransaction(t, s, txBody(100, "coffee run", "expense", time.Now()))
	createTransaction(t, s, txBody(200, "snack supplies", "expense", time.Now()))

	rec := doRequest(s, http.MethodDelete, "/transactions", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("clear status = %d", rec.Code)
	}

	rec = doRequest(s, http.MethodGet, "/transactions", "")
	var list []core.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected empty list after clear, got %d", len(list))
	}
}

func TestSummaryReflectsMutations(t *testing.T) {
	s := newTestServer(t)
	now := time.Now()

	createTransaction(t, s, txBody(10000, "invoice payment", "income", now))

	rec := doRequest(s, http.MethodGet, "/reports/summary?period=week", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("summary status = %d", rec.Code)
	}
	var first summaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &first); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if first.Totals.IncomeCents != 10000 || first.ProfitCents != 10000 {
		t.Errorf("summary = %+v, want income 10000", first)
	}

	// A new expense must invalidate the cached payload.
	createTransaction(t, s, txBody(4000, "materials order", "expense", now))

	rec = doRequest(s, http.MethodGet, "/reports/summary?period=week", "")
	var second summaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &second); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if second.Totals.ExpenseCents != 4000 || second.ProfitCents != 6000 {
		t.Errorf("summary after mutation = %+v, want expense 4000 profit 6000", second)
	}
}

func TestSummaryInvalidPeriod(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/reports/summary?period=fortnight", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestChartBucketCounts(t *testing.T) {
	s := newTestServer(t)
	createTransaction(t, s, txBody(100, "coffee run", "expense", time.Now()))

	tests := []struct {
		period string
		want   int
	}{
		{"day", 24},
		{"week", 7},
		{"month", 4},
		{"year", 12},
	}

	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			rec := doRequest(s, http.MethodGet, "/reports/chart?period="+tt.period, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			var resp chartResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode chart: %v", err)
			}
			if len(resp.Buckets) != tt.want {
				t.Errorf("buckets = %d, want %d", len(resp.Buckets), tt.want)
			}
		})
	}
}

func TestRecentLimit(t *testing.T) {
	s := newTestServer(t)
	now := time.Now()
	for i := 0; i < 8; i++ {
		createTransaction(t, s, txBody(int64(100+i), fmt.Sprintf("purchase %d", i), "expense", now.Add(-time.Duration(i)*time.Hour)))
	}

	rec := doRequest(s, http.MethodGet, "/reports/recent", "")
	var recent []core.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &recent); err != nil {
		t.Fatalf("decode recent: %v", err)
	}
	if len(recent) != report.DefaultRecentLimit {
		t.Errorf("default recent = %d, want %d", len(recent), report.DefaultRecentLimit)
	}

	rec = doRequest(s, http.MethodGet, "/reports/recent?limit=3", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &recent); err != nil {
		t.Fatalf("decode recent: %v", err)
	}
	if len(recent) != 3 {
		t.Errorf("recent with limit=3 = %d", len(recent))
	}
}

func TestGroupedByDate(t *testing.T) {
	s := newTestServer(t)
	now := time.Now()
	createTransaction(t, s, txBody(100, "morning coffee", "expense", now))
	createTransaction(t, s, txBody(200, "afternoon snack", "expense", now))

	rec := doRequest(s, http.MethodGet, "/reports/grouped?period=day", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp groupedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode grouped: %v", err)
	}
	if len(resp.Groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(resp.Groups))
	}
	if len(resp.Groups[0].Transactions) != 2 {
		t.Errorf("group size = %d, want 2", len(resp.Groups[0].Transactions))
	}
}

func TestCategoriesEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/categories", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var all []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &all); err != nil {
		t.Fatalf("decode categories: %v", err)
	}
	if len(all) == 0 {
		t.Fatalf("expected non-empty catalog")
	}

	rec = doRequest(s, http.MethodGet, "/categories?type=income", "")
	var income []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &income); err != nil {
		t.Fatalf("decode income categories: %v", err)
	}
	if len(income) >= len(all) {
		t.Errorf("income filter returned %d of %d", len(income), len(all))
	}

	rec = doRequest(s, http.MethodGet, "/categories?type=transfer", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid type status = %d, want 400", rec.Code)
	}
}

func TestRecurringEndpoints(t *testing.T) {
	s := newTestServer(t)

	body := `{"start_date":"2024-01-01","every":"monthly","amount_cents":120000,"description":"monthly rent","category_id":"rent","type":"expense"}`
	rec := doRequest(s, http.MethodPost, "/recurring", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create recurring status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var rt core.RecurringTransaction
	if err := json.Unmarshal(rec.Body.Bytes(), &rt); err != nil {
		t.Fatalf("decode recurring: %v", err)
	}
	if rt.ID == "" || rt.Every != core.Monthly {
		t.Errorf("unexpected recurring transaction: %+v", rt)
	}

	rec = doRequest(s, http.MethodGet, "/recurring", "")
	var list []core.RecurringTransaction
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode recurring list: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("recurring list = %d, want 1", len(list))
	}

	rec = doRequest(s, http.MethodDelete, "/recurring/"+rt.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete recurring status = %d", rec.Code)
	}
	rec = doRequest(s, http.MethodDelete, "/recurring/"+rt.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestRecurringValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{
			name: "unknown repetition",
			body: `{"start_date":"2024-01-01","every":"fortnightly","amount_cents":100,"description":"bad cadence","type":"expense"}`,
		},
		{
			name: "end before start",
			body: `{"start_date":"2024-06-01","end_date":"2024-01-01","every":"daily","amount_cents":100,"description":"inverted range","type":"expense"}`,
		},
		{
			name: "zero amount",
			body: `{"start_date":"2024-01-01","every":"daily","amount_cents":0,"description":"free stuff","type":"expense"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(s, http.MethodPost, "/recurring", tt.body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Errorf("status = %d, want 422 (body: %s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doRequest(s, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rec.Code)
		}
	}
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/transactions", "")
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
}

func TestCreateTransactionDecimalAmount(t *testing.T) {
	s := newTestServer(t)
	date := time.Now().Format(time.RFC3339)

	tests := []struct {
		name   string
		amount string
		want   int64
	}{
		{name: "dot separator", amount: "15.00", want: 1500},
		{name: "comma separator", amount: "12,34", want: 1234},
		{name: "third decimal rounds half-up", amount: "0.005", want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := fmt.Sprintf(`{"amount":%q,"description":"office supplies","category_id":"supplies","date":%q,"type":"expense"}`,
				tt.amount, date)
			tx := createTransaction(t, s, body)
			if tx.AmountCents != tt.want {
				t.Errorf("amount_cents = %d, want %d", tx.AmountCents, tt.want)
			}
		})
	}

	t.Run("unparsable decimal", func(t *testing.T) {
		body := fmt.Sprintf(`{"amount":"abc","description":"office supplies","date":%q,"type":"expense"}`, date)
		rec := doRequest(s, http.MethodPost, "/transactions", body)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", rec.Code)
		}
	})

	t.Run("patch by decimal", func(t *testing.T) {
		tx := createTransaction(t, s, txBody(1000, "stationery order", "expense", time.Now()))
		rec := doRequest(s, http.MethodPatch, "/transactions/"+tx.ID, `{"amount":"20.50"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("patch status = %d, body = %s", rec.Code, rec.Body.String())
		}
		var updated core.Transaction
		if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
			t.Fatalf("decode patch response: %v", err)
		}
		if updated.AmountCents != 2050 {
			t.Errorf("amount_cents = %d, want 2050", updated.AmountCents)
		}
	})
}

func TestAmountBoundErrorSpellsOutRange(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/transactions", txBody(0, "free lunch", "expense", time.Now()))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "between 0.01 and") {
		t.Errorf("error should spell out the allowed range, got %s", rec.Body.String())
	}
}

func TestSummaryCacheRollsOverWithWindow(t *testing.T) {
	s := newTestServer(t)

	day1 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return day1 }

	createTransaction(t, s, txBody(1000, "day one expense", "expense", day1))

	rec := doRequest(s, http.MethodGet, "/reports/summary?period=day", "")
	var first summaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &first); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if first.Totals.ExpenseCents != 1000 {
		t.Fatalf("summary = %+v, want expense 1000", first)
	}

	// The clock crosses midnight with no mutation in between. The
	// cached payload belongs to the old window and must not be served.
	day2 := day1.Add(24 * time.Hour)
	s.now = func() time.Time { return day2 }

	rec = doRequest(s, http.MethodGet, "/reports/summary?period=day", "")
	var second summaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &second); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	wantStart := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	if !second.Start.Equal(wantStart) {
		t.Errorf("summary window start = %v, want %v", second.Start, wantStart)
	}
	if second.Totals.ExpenseCents != 0 {
		t.Errorf("summary after rollover = %+v, want empty window", second)
	}
}

func TestResponsesCarryResolvedCategory(t *testing.T) {
	s := newTestServer(t)

	known := createTransaction(t, s,
		fmt.Sprintf(`{"amount_cents":90000,"description":"office rent","category_id":"rent","date":%q,"type":"expense"}`,
			time.Now().Format(time.RFC3339)))
	// txBody uses a category id that is not in the catalog.
	unknown := createTransaction(t, s, txBody(500, "mystery purchase", "expense", time.Now()))

	var view transactionView

	rec := doRequest(s, http.MethodGet, "/transactions/"+known.ID, "")
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode transaction: %v", err)
	}
	if view.Category.Name != "Rent" {
		t.Errorf("category = %+v, want Rent", view.Category)
	}

	rec = doRequest(s, http.MethodGet, "/transactions/"+unknown.ID, "")
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode transaction: %v", err)
	}
	if view.Category.ID != "unknown" {
		t.Errorf("unresolvable id should fall back to Unknown, got %+v", view.Category)
	}

	rec = doRequest(s, http.MethodGet, "/reports/recent", "")
	var recent []transactionView
	if err := json.Unmarshal(rec.Body.Bytes(), &recent); err != nil {
		t.Fatalf("decode recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("recent = %d entries, want 2", len(recent))
	}
	for _, v := range recent {
		if v.Category.ID == "" {
			t.Errorf("recent entry missing category: %+v", v)
		}
	}
}

func TestMaterializedRecurringServedWithoutReload(t *testing.T) {
	backend := memory.New()
	store := ledger.NewStore(backend)
	svc := services.NewLedgerService(store, nil)
	recurring := ledger.NewRecurringStore(backend)

	s := NewServer(":0", svc, recurring)
	t.Cleanup(func() {
		svc.Close()
		recurring.Flush()
		_ = s.Shutdown(context.Background())
	})

	body := `{"start_date":"2024-01-01","every":"daily","amount_cents":90000,"description":"office rent","category_id":"rent","type":"expense"}`
	rec := doRequest(s, http.MethodPost, "/recurring", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create recurring status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// The materializer runs against the same live stores the server
	// reads from, so its output is served with no reload.
	processor := services.NewRecurringProcessor(recurring, svc)
	processed, err := processor.ProcessDue(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("process due: %v", err)
	}
	if processed != 1 {
		t.Fatalf("processed = %d, want 1", processed)
	}
	s.InvalidateReports()

	rec = doRequest(s, http.MethodGet, "/transactions", "")
	var list []core.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode transactions: %v", err)
	}
	if len(list) != 1 || list[0].Description != "office rent" {
		t.Fatalf("transactions = %+v, want the materialized rent", list)
	}
}
