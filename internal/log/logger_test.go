package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	dec := json.NewDecoder(buf)
	for dec.More() {
		var m map[string]any
		require.NoError(t, dec.Decode(&m))
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestLoggerAttachesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Format: "json", Output: &buf, Component: ComponentWorker})

	logger.Info("started", "queue", "ledger_events")
	logger.WithComponent(ComponentSheets).Debug("mirrored")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, ComponentWorker, lines[0][FieldComponent])
	assert.Equal(t, "ledger_events", lines[0]["queue"])
	assert.Equal(t, ComponentSheets, lines[1][FieldComponent])
}

func TestLevelFiltersRecords(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Format: "json", Output: &buf})

	logger.Info("hidden")
	logger.Warn("shown")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["msg"])
	assert.Equal(t, ComponentApp, lines[0][FieldComponent])
}

func TestFromContext(t *testing.T) {
	fallback := FromContext(context.Background())
	assert.Equal(t, "unknown", fallback.Component())

	var buf bytes.Buffer
	logger := New(Config{Format: "json", Output: &buf, Component: ComponentHTTP})

	var seen *Logger
	h := Middleware(logger)(ComponentMiddleware(ComponentLedger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, seen)
	assert.Equal(t, ComponentLedger, seen.Component())
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Format: "json", Output: &buf})
	sl := NewStructuredLogger(logger)
	ctx := WithLogger(context.Background(), logger)

	cat := int64(3)
	sl.LogTransaction(ctx, OpCreate, "u1", 10, 2, &cat, "expense", 5000)
	sl.LogError(ctx, "write failed", errors.New("boom"), ErrorTypeConflict, ComponentLedger, OpUpdate, nil)
	sl.LogHTTPEnd(ctx, httptest.NewRequest(http.MethodPost, "/api/v1/transactions", nil), http.StatusNotFound, 3, "10.0.0.1")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)

	assert.Equal(t, float64(10), lines[0][FieldTransactionID])
	assert.Equal(t, float64(3), lines[0][FieldCategoryID])
	assert.Equal(t, "u1", lines[0][FieldUserID])

	assert.Equal(t, "ERROR", lines[1]["level"])
	assert.Equal(t, "boom", lines[1][FieldError])
	assert.Equal(t, ErrorTypeConflict, lines[1][FieldErrorType])

	assert.Equal(t, "WARN", lines[2]["level"])
	assert.Equal(t, float64(http.StatusNotFound), lines[2][FieldStatusCode])
	assert.Equal(t, false, lines[2][FieldSuccess])
	assert.Equal(t, ComponentHTTP, lines[2][FieldComponent])
}

func TestFromContextOr(t *testing.T) {
	fallback := New(Config{Output: &bytes.Buffer{}, Component: ComponentWorker})
	assert.Same(t, fallback, FromContextOr(context.Background(), fallback))
	assert.Equal(t, "unknown", FromContextOr(context.Background(), nil).Component())

	stored := New(Config{Output: &bytes.Buffer{}, Component: ComponentHTTP})
	ctx := WithLogger(context.Background(), stored)
	assert.Same(t, stored, FromContextOr(ctx, fallback))
}

func TestStructuredLogger_HTTPEndWithoutContextLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Format: "json", Output: &buf}))

	sl.LogHTTPEnd(context.Background(), httptest.NewRequest(http.MethodGet, "/healthz", nil), http.StatusOK, 1, "")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, float64(http.StatusOK), lines[0][FieldStatusCode])
}
