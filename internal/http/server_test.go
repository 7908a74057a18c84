package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

const testUser = "u1"

type testEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []FieldError    `json:"errors"`
}

type apiClient struct {
	t   *testing.T
	srv *Server
}

func newTestServer(t *testing.T, opts Options) *apiClient {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	if opts.Logger == nil {
		opts.Logger = log.New(log.Config{Output: io.Discard})
	}
	srv := NewServer(opts, services.NewLedger(repo, nil, time.Minute), repo)
	t.Cleanup(srv.limiter.Stop)
	return &apiClient{t: t, srv: srv}
}

func (c *apiClient) do(method, path, user string, body any) (*httptest.ResponseRecorder, testEnvelope) {
	c.t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(c.t, err)
		rd = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	rec := httptest.NewRecorder()
	c.srv.Handler.ServeHTTP(rec, req)

	var env testEnvelope
	if rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func decodeData[T any](t *testing.T, env testEnvelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out), string(env.Data))
	return out
}

func (c *apiClient) create(path string, body any) int64 {
	c.t.Helper()
	rec, env := c.do(http.MethodPost, path, testUser, body)
	require.Equal(c.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeData[struct {
		ID int64 `json:"id"`
	}](c.t, env).ID
}

func TestHealthAndReady(t *testing.T) {
	c := newTestServer(t, Options{})

	for _, path := range []string{"/healthz", "/readyz"} {
		rec, env := c.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.True(t, env.Success, path)
	}

	rec, _ := c.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestMissingUserIsUnauthorized(t *testing.T) {
	c := newTestServer(t, Options{})

	rec, env := c.do(http.MethodGet, "/api/v1/accounts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, env.Success)
	assert.Contains(t, env.Message, "X-User-Id")
}

func TestCustomUserHeader(t *testing.T) {
	c := newTestServer(t, Options{UserHeader: "X-Forwarded-User"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
	req.Header.Set("X-Forwarded-User", "alice")
	rec := httptest.NewRecorder()
	c.srv.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTransactionLifecycleOverHTTP(t *testing.T) {
	c := newTestServer(t, Options{})

	accID := c.create("/api/v1/accounts", map[string]any{"name": "Checking", "type": "current", "opening_balance": "1000.00"})
	catID := c.create("/api/v1/categories", map[string]any{"name": "Food", "kind": "expense"})
	budgetID := c.create("/api/v1/budgets", map[string]any{
		"category_id": catID, "amount": "300.00", "start_date": "2025-01-01", "end_date": "2025-01-31",
	})

	txID := c.create("/api/v1/transactions", map[string]any{
		"account_id": accID, "category_id": catID, "kind": "expense", "amount": "50.00", "date": "2025-01-15", "note": "groceries",
	})

	_, env := c.do(http.MethodGet, fmt.Sprintf("/api/v1/accounts/%d", accID), testUser, nil)
	assert.Equal(t, "950.00", decodeData[accountResponse](t, env).Balance.String())

	_, env = c.do(http.MethodGet, fmt.Sprintf("/api/v1/budgets/%d", budgetID), testUser, nil)
	b := decodeData[budgetResponse](t, env)
	assert.Equal(t, "50.00", b.CurrentExpense.String())
	assert.Equal(t, "250.00", b.Remaining.String())

	// an explicit null clears the category, which releases the budget
	rec, env := c.do(http.MethodPatch, fmt.Sprintf("/api/v1/transactions/%d", txID), testUser, `{"category_id": null, "amount": "80.00"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tx := decodeData[transactionResponse](t, env)
	assert.Nil(t, tx.CategoryID)
	assert.Equal(t, "80.00", tx.Amount.String())

	_, env = c.do(http.MethodGet, fmt.Sprintf("/api/v1/budgets/%d", budgetID), testUser, nil)
	assert.Equal(t, "0.00", decodeData[budgetResponse](t, env).CurrentExpense.String())

	rec, _ = c.do(http.MethodDelete, fmt.Sprintf("/api/v1/transactions/%d", txID), testUser, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	_, env = c.do(http.MethodGet, fmt.Sprintf("/api/v1/accounts/%d", accID), testUser, nil)
	assert.Equal(t, "1000.00", decodeData[accountResponse](t, env).Balance.String())

	rec, env = c.do(http.MethodGet, "/api/v1/audit", testUser, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ledger consistent", env.Message)
}

func TestErrorMapping(t *testing.T) {
	c := newTestServer(t, Options{})
	accID := c.create("/api/v1/accounts", map[string]any{"name": "Checking", "type": "current"})

	tests := []struct {
		name       string
		method     string
		path       string
		user       string
		body       any
		wantStatus int
		wantField  string
	}{
		{
			name:       "validation failure",
			method:     http.MethodPost,
			path:       "/api/v1/transactions",
			user:       testUser,
			body:       map[string]any{"account_id": accID, "kind": "expense", "amount": "0", "date": "2025-01-01"},
			wantStatus: http.StatusBadRequest,
			wantField:  "amount",
		},
		{
			name:       "malformed json",
			method:     http.MethodPost,
			path:       "/api/v1/accounts",
			user:       testUser,
			body:       `{"name":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown field",
			method:     http.MethodPatch,
			path:       "/api/v1/recurring/1",
			user:       testUser,
			body:       `{"last_processed_date": "2025-01-01"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad path id",
			method:     http.MethodGet,
			path:       "/api/v1/accounts/abc",
			user:       testUser,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad query",
			method:     http.MethodGet,
			path:       "/api/v1/transactions?from=yesterday&limit=-1",
			user:       testUser,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "not found",
			method:     http.MethodGet,
			path:       "/api/v1/accounts/999",
			user:       testUser,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "other users data is not found",
			method:     http.MethodGet,
			path:       fmt.Sprintf("/api/v1/accounts/%d", accID),
			user:       "u2",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unknown endpoint",
			method:     http.MethodGet,
			path:       "/api/v1/nope",
			user:       testUser,
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := c.do(tt.method, tt.path, tt.user, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.False(t, env.Success)
			if tt.wantField != "" {
				require.NotEmpty(t, env.Errors)
				assert.Equal(t, tt.wantField, env.Errors[0].Field)
			}
		})
	}
}

func TestReconciliationConflict(t *testing.T) {
	c := newTestServer(t, Options{})
	accID := c.create("/api/v1/accounts", map[string]any{"name": "Full", "type": "savings", "opening_balance": "9999999999.99"})

	rec, env := c.do(http.MethodPost, "/api/v1/transactions", testUser, map[string]any{
		"account_id": accID, "kind": "income", "amount": "1.00", "date": "2025-01-01",
	})
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	assert.False(t, env.Success)

	_, env = c.do(http.MethodGet, "/api/v1/transactions", testUser, nil)
	assert.Empty(t, decodeData[[]transactionResponse](t, env))
}

func TestRecurringRunOverHTTP(t *testing.T) {
	c := newTestServer(t, Options{})
	accID := c.create("/api/v1/accounts", map[string]any{"name": "Checking", "type": "current"})
	rtID := c.create("/api/v1/recurring", map[string]any{
		"account_id": accID, "kind": "expense", "amount": "10.00", "frequency": "monthly", "start_date": "2025-01-31",
	})

	rec, env := c.do(http.MethodPost, "/api/v1/recurring/run?dry_run=true&date=2025-03-31", testUser, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	dry := decodeData[services.RunReport](t, env)
	assert.True(t, dry.DryRun)
	require.Len(t, dry.Templates, 1)
	assert.Len(t, dry.Templates[0].Dates, 3)

	rec, env = c.do(http.MethodPost, "/api/v1/recurring/run?date=2025-03-31", testUser, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 3, decodeData[services.RunReport](t, env).Emitted)

	_, env = c.do(http.MethodGet, fmt.Sprintf("/api/v1/recurring/%d", rtID), testUser, nil)
	assert.Equal(t, "2025-03-31", decodeData[recurringResponse](t, env).LastProcessedDate.String())

	_, env = c.do(http.MethodGet, fmt.Sprintf("/api/v1/transactions?account_id=%d", accID), testUser, nil)
	txs := decodeData[[]transactionResponse](t, env)
	require.Len(t, txs, 3)
	for _, tx := range txs {
		require.NotNil(t, tx.RecurringID)
		assert.Equal(t, rtID, *tx.RecurringID)
	}

	rec, _ = c.do(http.MethodPost, "/api/v1/recurring/run?dry_run=maybe", testUser, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboardOverHTTP(t *testing.T) {
	c := newTestServer(t, Options{})
	accID := c.create("/api/v1/accounts", map[string]any{"name": "Checking", "type": "current"})
	catID := c.create("/api/v1/categories", map[string]any{"name": "Salary", "kind": "income"})
	c.create("/api/v1/transactions", map[string]any{
		"account_id": accID, "category_id": catID, "kind": "income", "amount": "2000.00", "date": "2025-02-01",
	})

	rec, env := c.do(http.MethodGet, "/api/v1/dashboard/summary", testUser, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, string(env.Data), `"total_income":"2000.00"`)

	rec, env = c.do(http.MethodGet, "/api/v1/dashboard/trend?months=3&date=2025-03-15", testUser, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var trend []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &trend))
	require.Len(t, trend, 3)
	assert.Equal(t, "2000.00", trend[1]["income"])

	rec, _ = c.do(http.MethodGet, "/api/v1/dashboard/trend?months=100", testUser, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = c.do(http.MethodGet, "/api/v1/dashboard/categories?from=2025-03-01&to=2025-01-01", testUser, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = c.do(http.MethodGet, "/api/v1/dashboard/budgets?date=2025-02-01", testUser, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAnalyticsOverHTTP(t *testing.T) {
	c := newTestServer(t, Options{})
	accID := c.create("/api/v1/accounts", map[string]any{"name": "Checking", "type": "current"})
	salary := c.create("/api/v1/categories", map[string]any{"name": "Salary", "kind": "income"})
	food := c.create("/api/v1/categories", map[string]any{"name": "Food", "kind": "expense"})
	c.create("/api/v1/budgets", map[string]any{
		"category_id": food, "amount": "500.00", "start_date": "2025-03-01", "end_date": "2025-03-31",
	})
	for _, tx := range []map[string]any{
		{"category_id": salary, "kind": "income", "amount": "2000.00", "date": "2025-03-01"},
		{"category_id": food, "kind": "expense", "amount": "100.00", "date": "2025-03-03"},
		{"category_id": food, "kind": "expense", "amount": "300.00", "date": "2025-03-10"},
	} {
		tx["account_id"] = accID
		c.create("/api/v1/transactions", tx)
	}

	get := func(path string) testEnvelope {
		t.Helper()
		rec, env := c.do(http.MethodGet, path, testUser, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		return env
	}

	health := decodeData[map[string]any](t, get("/api/v1/dashboard/health?date=2025-03-10"))
	assert.Equal(t, 80.0, health["savings_rate"])
	assert.NotEmpty(t, health["rating"])

	burn := decodeData[[]map[string]any](t, get("/api/v1/dashboard/burn-rate?date=2025-03-10"))
	require.Len(t, burn, 1)
	assert.Equal(t, "400.00", burn[0]["current_expense"])
	assert.Equal(t, 10.0, burn[0]["days_elapsed"])

	stats := decodeData[map[string]any](t, get("/api/v1/dashboard/statistics?days=30&date=2025-03-10"))
	expense := stats["expense"].(map[string]any)
	assert.Equal(t, "400.00", expense["total"])
	assert.Equal(t, 2.0, expense["count"])

	cmp := decodeData[map[string]any](t, get("/api/v1/dashboard/compare?from=2025-03-01&to=2025-03-10"))
	assert.Equal(t, "400.00", cmp["current"].(map[string]any)["expense"])
	assert.Equal(t, "0.00", cmp["previous"].(map[string]any)["expense"])
	assert.Nil(t, cmp["expense_change"])

	growth := decodeData[map[string]any](t, get("/api/v1/dashboard/growth?date=2025-03-10&account_id="+fmt.Sprint(accID)))
	assert.Equal(t, "400.00", growth["current_month"])

	forecast := decodeData[map[string]any](t, get("/api/v1/dashboard/forecast?months=2&date=2025-03-10"))
	assert.Len(t, forecast["forecasts"], 2)

	insights := decodeData[map[string]any](t, get("/api/v1/dashboard/category-insights?date=2025-03-10"))
	assert.Equal(t, 1.0, insights["category_count"])

	get("/api/v1/dashboard/patterns?date=2025-03-10")

	rec, _ := c.do(http.MethodGet, "/api/v1/dashboard/forecast?months=30", testUser, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = c.do(http.MethodGet, "/api/v1/dashboard/compare?from=2025-03-10&to=2025-03-01", testUser, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = c.do(http.MethodGet, "/api/v1/dashboard/statistics?days=x", testUser, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = c.do(http.MethodGet, "/api/v1/dashboard/health", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimitPerUser(t *testing.T) {
	c := newTestServer(t, Options{RateLimitPerMinute: 2})

	for i := 0; i < 2; i++ {
		rec, _ := c.do(http.MethodGet, "/api/v1/accounts", testUser, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec, env := c.do(http.MethodGet, "/api/v1/accounts", testUser, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.False(t, env.Success)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec, _ = c.do(http.MethodGet, "/api/v1/accounts", "u2", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORS(t *testing.T) {
	c := newTestServer(t, Options{CORSAllowedOrigins: []string{"https://app.example"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/accounts", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	c.srv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
}
