package http

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"kasa/internal/core"
	"kasa/internal/log"
	"kasa/internal/services"
	"kasa/internal/storage/memory"
	"kasa/internal/store"
)

var testToday = core.NewDate(2024, 3, 10)

type testEnv struct {
	srv    *Server
	ledger *services.LedgerService
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	n := 0
	st := store.New(memory.New(), store.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}))
	if err := st.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	ledger := services.NewLedgerService(st, nil)
	if opts.Clock == nil {
		opts.Clock = func() core.Date { return testToday }
	}
	srv := NewServer(":0", ledger, opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testEnv{srv: srv, ledger: ledger}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func (e *testEnv) typeID(t *testing.T, name string) string {
	t.Helper()
	for _, et := range e.ledger.Snapshot().ExpenseTypes {
		if et.Name == name {
			return et.ID
		}
	}
	t.Fatalf("no expense type %q", name)
	return ""
}

func (e *testEnv) seed(t *testing.T) {
	t.Helper()
	rent := e.typeID(t, "Kira")
	bodies := []string{
		`{"type":"income","date":"2024-03-01","description":"Satış","cashAmount":100}`,
		`{"type":"expense","date":"2024-03-02","description":"Market","expenseType":"` + rent + `","amount":40}`,
		`{"type":"expense","date":"2024-03-03","description":"Kira","expenseType":"` + rent + `","amount":"60,00"}`,
	}
	for _, b := range bodies {
		if w := e.do(t, http.MethodPost, "/api/transactions", b); w.Code != http.StatusCreated {
			t.Fatalf("seed %s: %d %s", b, w.Code, w.Body.String())
		}
	}
}

func TestHealthAndReady(t *testing.T) {
	ready := errors.New("database locked")
	env := newTestEnv(t, Options{Ready: func(context.Context) error { return ready }})

	if w := env.do(t, http.MethodGet, "/healthz", ""); w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", w.Code, w.Body.String())
	}
	if w := env.do(t, http.MethodGet, "/readyz", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with failing backend = %d", w.Code)
	}
	ready = nil
	if w := env.do(t, http.MethodGet, "/readyz", ""); w.Code != http.StatusOK {
		t.Fatalf("readyz = %d", w.Code)
	}
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	env := newTestEnv(t, Options{})
	w := env.do(t, http.MethodGet, "/api/transactions", "")
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
	if w.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
	}
}

func TestCreateTransaction(t *testing.T) {
	env := newTestEnv(t, Options{})
	rent := env.typeID(t, "Kira")

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantField  string
	}{
		{"income", `{"type":"income","date":"2024-03-05","cashAmount":100,"creditCardAmount":"50,5","vatAmount":18}`, http.StatusCreated, ""},
		{"expense", `{"type":"expense","date":"2024-03-05","expenseType":"` + rent + `","amount":40}`, http.StatusCreated, ""},
		{"income without payment", `{"type":"income","date":"2024-03-05","vatAmount":18}`, http.StatusUnprocessableEntity, "payment"},
		{"negative amount", `{"type":"income","date":"2024-03-05","cashAmount":-5}`, http.StatusUnprocessableEntity, "cashAmount"},
		{"unknown expense type", `{"type":"expense","date":"2024-03-05","expenseType":"nope","amount":40}`, http.StatusUnprocessableEntity, "expenseType"},
		{"unknown kind", `{"type":"transfer","date":"2024-03-05"}`, http.StatusUnprocessableEntity, "type"},
		{"missing date", `{"type":"expense","expenseType":"` + rent + `","amount":40}`, http.StatusUnprocessableEntity, "date"},
		{"malformed", `{"type":`, http.StatusBadRequest, ""},
		{"empty body", ``, http.StatusBadRequest, ""},
		{"bad amount", `{"type":"income","date":"2024-03-05","cashAmount":"abc"}`, http.StatusBadRequest, ""},
		{"amount out of range", `{"type":"income","date":"2024-03-05","cashAmount":184467440737095516.17}`, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			env.srv.Handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantField != "" {
				resp := decode[struct {
					Error   string     `json:"error"`
					Details FieldError `json:"details"`
				}](t, w)
				if resp.Details.Field != tt.wantField {
					t.Errorf("field = %q, want %q (%s)", resp.Details.Field, tt.wantField, w.Body.String())
				}
			}
		})
	}

	list := decode[[]transactionView](t, env.do(t, http.MethodGet, "/api/transactions", ""))
	if len(list) != 2 {
		t.Fatalf("expected 2 stored transactions, got %d", len(list))
	}
	if list[0].ExpenseTypeName != "Kira" || list[0].Type != core.KindExpense {
		t.Errorf("newest first with type name, got %+v", list[0])
	}
	if list[1].Total == nil || list[1].Total.Cents != 15050 {
		t.Errorf("income total = %v, want 150.50", list[1].Total)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	env := newTestEnv(t, Options{})
	w := env.do(t, http.MethodPost, "/api/transactions", `{"type":"income","date":"2024-03-05","ibanAmount":20}`)
	created := decode[transactionView](t, w)
	path := "/api/transactions/" + created.ID

	if w := env.do(t, http.MethodGet, path, ""); w.Code != http.StatusOK {
		t.Fatalf("get = %d", w.Code)
	}
	w = env.do(t, http.MethodPut, path, `{"type":"income","date":"2024-03-06","cashAmount":30,"description":"düzeltme"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d %s", w.Code, w.Body.String())
	}
	updated := decode[transactionView](t, w)
	if updated.ID != created.ID || updated.Description != "düzeltme" || updated.Total.Cents != 3000 {
		t.Fatalf("unexpected update %+v", updated)
	}
	if w := env.do(t, http.MethodDelete, path, ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}
	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		if w := env.do(t, method, path, ""); w.Code != http.StatusNotFound {
			t.Fatalf("%s after delete = %d", method, w.Code)
		}
	}
	if w := env.do(t, http.MethodPut, path, `{"type":"income","date":"2024-03-06","cashAmount":30}`); w.Code != http.StatusNotFound {
		t.Fatalf("update missing = %d", w.Code)
	}
}

func TestExpenseTypes(t *testing.T) {
	env := newTestEnv(t, Options{})

	types := decode[[]core.ExpenseType](t, env.do(t, http.MethodGet, "/api/expense-types", ""))
	if len(types) != len(store.DefaultExpenseTypes) {
		t.Fatalf("expected default types, got %v", types)
	}

	w := env.do(t, http.MethodPost, "/api/expense-types", `{"name":" Yakıt "}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", w.Code, w.Body.String())
	}
	fuel := decode[core.ExpenseType](t, w)
	if fuel.Name != "Yakıt" {
		t.Fatalf("name not trimmed: %q", fuel.Name)
	}

	if w := env.do(t, http.MethodPost, "/api/expense-types", `{"name":"kira"}`); w.Code != http.StatusConflict {
		t.Fatalf("duplicate = %d", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/api/expense-types", `{"name":"  "}`); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty name = %d", w.Code)
	}
	if w := env.do(t, http.MethodPut, "/api/expense-types/"+fuel.ID, `{"name":"Benzin"}`); w.Code != http.StatusOK {
		t.Fatalf("rename = %d", w.Code)
	}
	if w := env.do(t, http.MethodPut, "/api/expense-types/missing", `{"name":"X"}`); w.Code != http.StatusNotFound {
		t.Fatalf("rename missing = %d", w.Code)
	}

	env.do(t, http.MethodPost, "/api/transactions", `{"type":"expense","date":"2024-03-05","expenseType":"`+fuel.ID+`","amount":12}`)
	if w := env.do(t, http.MethodDelete, "/api/expense-types/"+fuel.ID, ""); w.Code != http.StatusConflict {
		t.Fatalf("delete in use = %d", w.Code)
	}
	other := env.typeID(t, "Diğer")
	if w := env.do(t, http.MethodDelete, "/api/expense-types/"+other, ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete unused = %d", w.Code)
	}
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.do(t, http.MethodPost, "/api/transactions", `{"type":"income","date":"2024-03-10","cashAmount":500}`)

	w := env.do(t, http.MethodGet, "/api/dashboard/summary", "")
	if w.Code != http.StatusOK {
		t.Fatalf("summary = %d", w.Code)
	}
	summary := decode[map[string]any](t, w)
	if summary["monthlyAverage"] != 50.0 || summary["month"] != "March 2024" {
		t.Fatalf("unexpected summary %v", summary)
	}
	display, _ := summary["display"].(map[string]any)
	if total, _ := display["monthTotal"].(string); !strings.HasPrefix(total, "₺") {
		t.Fatalf("expected formatted display values, got %v", summary["display"])
	}

	days := decode[[]map[string]any](t, env.do(t, http.MethodGet, "/api/dashboard/last-7-days", ""))
	if len(days) != 7 || days[6]["label"] != "10/03" || days[6]["income"] != 500.0 {
		t.Fatalf("unexpected last 7 days %v", days)
	}
	months := decode[[]map[string]any](t, env.do(t, http.MethodGet, "/api/dashboard/last-12-months?today=2024-04-01", ""))
	if len(months) != 12 || months[10]["label"] != "Mar 2024" {
		t.Fatalf("unexpected last 12 months %v", months)
	}

	byType := decode[map[string]float64](t, env.do(t, http.MethodGet, "/api/dashboard/expense-by-type", ""))
	if len(byType) != len(store.DefaultExpenseTypes) || byType["Kira"] != 0 {
		t.Fatalf("unexpected by type %v", byType)
	}

	if w := env.do(t, http.MethodGet, "/api/dashboard/summary?today=10.03.2024", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("bad today = %d", w.Code)
	}
}

func TestDashboardCacheFollowsLedger(t *testing.T) {
	env := newTestEnv(t, Options{})
	first := decode[map[string]any](t, env.do(t, http.MethodGet, "/api/dashboard/summary", ""))
	if first["totalIncome"] != 0.0 {
		t.Fatalf("expected empty ledger, got %v", first)
	}

	env.do(t, http.MethodPost, "/api/transactions", `{"type":"income","date":"2024-03-09","cashAmount":80}`)

	second := decode[map[string]any](t, env.do(t, http.MethodGet, "/api/dashboard/summary", ""))
	if second["totalIncome"] != 80.0 || second["previousDayTurnover"] != 80.0 {
		t.Fatalf("summary should reflect the new transaction, got %v", second)
	}
}

func TestRecent(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.seed(t)

	all := decode[[]transactionView](t, env.do(t, http.MethodGet, "/api/dashboard/recent", ""))
	if len(all) != 3 {
		t.Fatalf("expected 3, got %d", len(all))
	}
	incomes := decode[[]transactionView](t, env.do(t, http.MethodGet, "/api/dashboard/recent?search=gel", ""))
	if len(incomes) != 1 || incomes[0].Type != core.KindIncome {
		t.Fatalf("search gel should find the income, got %+v", incomes)
	}
	byTypeName := decode[[]transactionView](t, env.do(t, http.MethodGet, "/api/dashboard/recent?kind=expense&search=kira", ""))
	if len(byTypeName) != 2 {
		t.Fatalf("type name search = %d, want 2", len(byTypeName))
	}
	limited := decode[[]transactionView](t, env.do(t, http.MethodGet, "/api/dashboard/recent?limit=1", ""))
	if len(limited) != 1 {
		t.Fatalf("limit ignored: %d", len(limited))
	}
}

func TestRecentHugeLimit(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.seed(t)

	for _, limit := range []string{"200000000000", "9223372036854775807"} {
		w := env.do(t, http.MethodGet, "/api/dashboard/recent?limit="+limit, "")
		if w.Code != http.StatusOK {
			t.Fatalf("limit=%s: status %d", limit, w.Code)
		}
		if got := decode[[]transactionView](t, w); len(got) != 3 {
			t.Fatalf("limit=%s: expected 3 transactions, got %d", limit, len(got))
		}
	}
}

func TestDetailedReport(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.seed(t)

	w := env.do(t, http.MethodGet, "/api/reports/detailed?type=expense&minAmount=50", "")
	if w.Code != http.StatusOK {
		t.Fatalf("detailed = %d", w.Code)
	}
	rep := decode[detailedReport](t, w)
	if rep.Count != 1 || rep.Transactions[0].Amount.Cents != 6000 || rep.TotalExpense.Cents != 6000 {
		t.Fatalf("unexpected report %+v", rep)
	}

	sorted := decode[detailedReport](t, env.do(t, http.MethodGet, "/api/reports/detailed?sortBy=amount&sortOrder=asc&minAmount=abc", ""))
	if sorted.Count != 3 || sorted.Balance.Cents != 0 {
		t.Fatalf("bad bound must be ignored: %+v", sorted)
	}
	if sorted.Transactions[0].Amount == nil || sorted.Transactions[0].Amount.Cents != 4000 {
		t.Fatalf("ascending amount order broken: %+v", sorted.Transactions)
	}
}

func TestDetailedCSV(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.seed(t)

	w := env.do(t, http.MethodGet, "/api/reports/detailed/export.csv?type=income", "")
	if w.Code != http.StatusOK {
		t.Fatalf("csv = %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="rapor_10_03_2024.csv"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "text/csv") {
		t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
	}
	records, err := csv.NewReader(w.Body).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 2 || records[1][0] != "01.03.2024" || records[1][1] != "Gelir" || records[1][3] != "100.00" {
		t.Fatalf("unexpected csv %v", records)
	}
}

func TestAnalytics(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.seed(t)

	w := env.do(t, http.MethodGet, "/api/reports/analytics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("analytics = %d", w.Code)
	}
	body := decode[map[string]json.RawMessage](t, w)
	for _, key := range []string{"topExpenses", "paymentDistribution", "monthlyGrowth", "totalVat", "vatRate", "expenseTypeTrends"} {
		if _, ok := body[key]; !ok {
			t.Errorf("analytics lacks %s", key)
		}
	}
	var top []transactionView
	if err := json.Unmarshal(body["topExpenses"], &top); err != nil || len(top) != 2 || top[0].Amount.Cents != 6000 {
		t.Fatalf("unexpected top expenses %s (%v)", body["topExpenses"], err)
	}
}

func TestExportSettings(t *testing.T) {
	env := newTestEnv(t, Options{})

	if w := env.do(t, http.MethodPut, "/api/settings/export", `{"filePath":" /tmp/rapor.xlsx "}`); w.Code != http.StatusOK {
		t.Fatalf("put = %d", w.Code)
	}
	got := decode[core.ExportSettings](t, env.do(t, http.MethodGet, "/api/settings/export", ""))
	if got.FilePath != "/tmp/rapor.xlsx" {
		t.Fatalf("FilePath = %q", got.FilePath)
	}
	if w := env.do(t, http.MethodPost, "/api/settings/export/run", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("run without queue = %d", w.Code)
	}
}

func TestMutationRateLimit(t *testing.T) {
	var logs bytes.Buffer
	env := newTestEnv(t, Options{MutationsPerMin: 2, Logger: log.New(log.Config{Output: &logs})})
	body := `{"name":"T%d"}`
	for i := 0; i < 2; i++ {
		if w := env.do(t, http.MethodPost, "/api/expense-types", fmt.Sprintf(body, i)); w.Code != http.StatusCreated {
			t.Fatalf("request %d = %d", i, w.Code)
		}
	}
	w := env.do(t, http.MethodPost, "/api/expense-types", fmt.Sprintf(body, 9))
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") == "" {
		t.Fatalf("expected 429 with Retry-After, got %d", w.Code)
	}
	if !strings.Contains(logs.String(), "component=rate_limit") {
		t.Errorf("rejection not logged under the rate limit component: %s", logs.String())
	}
	if w := env.do(t, http.MethodGet, "/api/expense-types", ""); w.Code != http.StatusOK {
		t.Fatalf("reads are not limited, got %d", w.Code)
	}
}

func TestNotFoundIsJSON(t *testing.T) {
	env := newTestEnv(t, Options{})
	w := env.do(t, http.MethodGet, "/api/nope", "")
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), `"error"`) {
		t.Fatalf("unexpected 404 %d %s", w.Code, w.Body.String())
	}
}
