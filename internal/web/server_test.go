package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockscope/internal/backtest"
	"stockscope/internal/ledger"
	"stockscope/internal/opportunity"
	"stockscope/internal/predict"
	"stockscope/internal/provider"
	"stockscope/internal/regime"
	"stockscope/internal/scanner"
)

var providerErr = provider.ProviderError{Provider: "yahoo", Err: errors.New("status 503"), Retryable: true}

type fakeAnalyzer struct {
	err          error
	scanned      []string
	backtestArgs struct {
		symbols  []string
		from, to time.Time
		opts     scanner.BacktestOptions
	}
}

func (f *fakeAnalyzer) Predict(ctx context.Context, symbol string) (*predict.Prediction, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &predict.Prediction{Symbol: symbol, CurrentPrice: 100, PredictedPrice: 101, Confidence: 62}, nil
}

func (f *fakeAnalyzer) Regime(ctx context.Context, symbol string) (regime.Analysis, error) {
	return regime.Analysis{Regime: regime.TrendingUp, Strategy: regime.Momentum, Confidence: 70}, f.err
}

func (f *fakeAnalyzer) Scan(ctx context.Context, symbols []string) (*scanner.ScanResult, error) {
	f.scanned = symbols
	if f.err != nil {
		return nil, f.err
	}
	return &scanner.ScanResult{Result: opportunity.Result{ScanID: "scan-1", SymbolsScanned: len(symbols)}}, nil
}

func (f *fakeAnalyzer) Backtest(ctx context.Context, symbols []string, from, to time.Time, opts scanner.BacktestOptions) (*scanner.BacktestResult, error) {
	f.backtestArgs.symbols, f.backtestArgs.from, f.backtestArgs.to, f.backtestArgs.opts = symbols, from, to, opts
	if f.err != nil {
		return nil, f.err
	}
	return &scanner.BacktestResult{RunID: "run-1", Symbols: symbols, Report: &backtest.Report{From: from, To: to, Checkpoints: 3}}, nil
}

type fakeRuns struct{}

func (fakeRuns) Runs(ctx context.Context, limit int) ([]ledger.Run, error) {
	runs := []ledger.Run{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	if limit > 0 && limit < len(runs) {
		runs = runs[:limit]
	}
	return runs, nil
}

func (fakeRuns) Trades(ctx context.Context, runID string) ([]backtest.Trade, error) {
	if runID != "a" {
		return nil, fmt.Errorf("%w: %s", ledger.ErrRunNotFound, runID)
	}
	return []backtest.Trade{{Symbol: "AAPL", Outcome: backtest.Win, ExitReason: backtest.ExitTarget}}, nil
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error.Code
}

func TestPredictAndRegime(t *testing.T) {
	h := NewServer(&fakeAnalyzer{}, Options{}).Handler()

	rec := do(t, h, http.MethodGet, "/api/predict/aapl", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var p predict.Prediction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "AAPL", p.Symbol)
	assert.Equal(t, 62.0, p.Confidence)

	rec = do(t, h, http.MethodGet, "/api/regime/MSFT", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"regime":"trending_up"`)

	rec = do(t, h, http.MethodGet, "/api/predict/NOT_A_TICKER", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_PARAMETER", errorCode(t, rec))
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"short history", fmt.Errorf("predicting X: %w", predict.ErrInsufficientData), http.StatusUnprocessableEntity, "INSUFFICIENT_DATA"},
		{"provider failure", fmt.Errorf("fetching X: %w", &providerErr), http.StatusBadGateway, "EXTERNAL_API_ERROR"},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, "TIMEOUT"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewServer(&fakeAnalyzer{err: tt.err}, Options{}).Handler()
			rec := do(t, h, http.MethodGet, "/api/predict/AAPL", "")
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}
}

func TestScan(t *testing.T) {
	a := &fakeAnalyzer{}
	h := NewServer(a, Options{}).Handler()

	rec := do(t, h, http.MethodPost, "/api/scan", `{"symbols":["aapl","msft","AAPL"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"AAPL", "MSFT"}, a.scanned)
	assert.Contains(t, rec.Body.String(), `"scan_id":"scan-1"`)

	rec = do(t, h, http.MethodPost, "/api/scan", "")
	require.Equal(t, http.StatusOK, rec.Code, "empty body scans the default universe")
	assert.Len(t, a.scanned, 10)

	rec = do(t, h, http.MethodPost, "/api/scan", `{"universe":"russell"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))

	rec = do(t, h, http.MethodPost, "/api/scan", `{"symbols":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_BODY", errorCode(t, rec))
}

func TestBacktest(t *testing.T) {
	a := &fakeAnalyzer{}
	h := NewServer(a, Options{}).Handler()

	rec := do(t, h, http.MethodPost, "/api/backtest",
		`{"symbols":["AAPL"],"from":"2024-01-01","to":"2024-06-30","monte_carlo_runs":100,"seed":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"AAPL"}, a.backtestArgs.symbols)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), a.backtestArgs.from)
	assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), a.backtestArgs.to)
	assert.Equal(t, 100, a.backtestArgs.opts.MonteCarloRuns)
	assert.Equal(t, uint64(3), a.backtestArgs.opts.Seed)
	assert.Contains(t, rec.Body.String(), `"run_id":"run-1"`)

	rec = do(t, h, http.MethodPost, "/api/backtest", `{"symbols":["AAPL"],"from":"01/02/2024","to":"2024-06-30"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))

	a.err = fmt.Errorf("%w: need 117 bars", scanner.ErrInsufficientHistory)
	rec = do(t, h, http.MethodPost, "/api/backtest", `{"symbols":["AAPL"],"from":"2024-01-01","to":"2024-06-30"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	a.err = backtest.ErrInvalidRange
	rec = do(t, h, http.MethodPost, "/api/backtest", `{"symbols":["AAPL"],"from":"2024-06-30","to":"2024-01-01"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLedgerRoutes(t *testing.T) {
	h := NewServer(&fakeAnalyzer{}, Options{Runs: fakeRuns{}}).Handler()

	rec := do(t, h, http.MethodGet, "/api/backtests?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []ledger.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	assert.Len(t, runs, 2)

	rec = do(t, h, http.MethodGet, "/api/backtests?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/backtests/a/trades", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"outcome":"win"`)

	rec = do(t, h, http.MethodGet, "/api/backtests/zzz/trades", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	disabled := NewServer(&fakeAnalyzer{}, Options{}).Handler()
	rec = do(t, disabled, http.MethodGet, "/api/backtests", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthMetricsAndCORS(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("stockscope_fetch_total 1\n"))
	})
	h := NewServer(&fakeAnalyzer{}, Options{Metrics: metrics}).Handler()

	rec := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "stockscope_fetch_total")

	rec = do(t, h, http.MethodOptions, "/api/scan", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	noMetrics := NewServer(&fakeAnalyzer{}, Options{}).Handler()
	rec = do(t, noMetrics, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
