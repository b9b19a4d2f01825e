package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"stockscope/internal/backtest"
	"stockscope/internal/ledger"
	"stockscope/internal/predict"
	"stockscope/internal/provider"
	"stockscope/internal/scanner"
	"stockscope/internal/symbols"
)

var validate = validator.New()

// ScanRequest selects the symbols to scan. Symbols override Universe.
type ScanRequest struct {
	Symbols  []string `json:"symbols" validate:"max=600"`
	Universe string   `json:"universe" default:"test" validate:"oneof=test nasdaq100 sp500"`
}

// BacktestRequest is a walk-forward backtest over [From, To]
type BacktestRequest struct {
	ScanRequest
	From           string `json:"from" validate:"required,datetime=2006-01-02"`
	To             string `json:"to" validate:"required,datetime=2006-01-02"`
	MonteCarloRuns int    `json:"monte_carlo_runs" validate:"gte=0,lte=10000"`
	Seed           uint64 `json:"seed"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failure
type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /api/predict/{symbol}
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	symbol, ok := symbolParam(w, r)
	if !ok {
		return
	}
	p, err := s.analyzer.Predict(r.Context(), symbol)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GET /api/regime/{symbol}
func (s *Server) handleRegime(w http.ResponseWriter, r *http.Request) {
	symbol, ok := symbolParam(w, r)
	if !ok {
		return
	}
	a, err := s.analyzer.Regime(r.Context(), symbol)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// POST /api/scan
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if !s.decode(w, r, &req) {
		return
	}
	syms, ok := resolve(w, r, req)
	if !ok {
		return
	}
	res, err := s.analyzer.Scan(r.Context(), syms)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// POST /api/backtest
func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if !s.decode(w, r, &req) {
		return
	}
	syms, ok := resolve(w, r, req.ScanRequest)
	if !ok {
		return
	}
	from, _ := time.Parse(time.DateOnly, req.From)
	to, _ := time.Parse(time.DateOnly, req.To)

	res, err := s.analyzer.Backtest(r.Context(), syms, from, to, scanner.BacktestOptions{
		MonteCarloRuns: req.MonteCarloRuns,
		Seed:           req.Seed,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GET /api/backtests?limit=N
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.opts.Runs == nil {
		writeStatus(w, r, http.StatusServiceUnavailable, "LEDGER_DISABLED", "backtest ledger is not configured")
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeStatus(w, r, http.StatusBadRequest, "INVALID_PARAMETER", "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	runs, err := s.opts.Runs.Runs(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if runs == nil {
		runs = []ledger.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// GET /api/backtests/{id}/trades
func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	if s.opts.Runs == nil {
		writeStatus(w, r, http.StatusServiceUnavailable, "LEDGER_DISABLED", "backtest ledger is not configured")
		return
	}
	trades, err := s.opts.Runs.Trades(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if trades == nil {
		trades = []backtest.Trade{}
	}
	writeJSON(w, http.StatusOK, trades)
}

// decode reads a JSON body, fills defaults and validates it
func (s *Server) decode(w http.ResponseWriter, r *http.Request, req any) bool {
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			writeStatus(w, r, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body: "+err.Error())
			return false
		}
	}
	if err := defaults.Set(req); err != nil {
		writeStatus(w, r, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return false
	}
	if err := validate.StructCtx(r.Context(), req); err != nil {
		writeStatus(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return false
	}
	return true
}

func resolve(w http.ResponseWriter, r *http.Request, req ScanRequest) ([]string, bool) {
	var u symbols.Universe
	if err := u.UnmarshalText([]byte(req.Universe)); err != nil {
		writeStatus(w, r, http.StatusBadRequest, "INVALID_PARAMETER", err.Error())
		return nil, false
	}
	syms, err := symbols.Resolve(u, req.Symbols)
	if err != nil {
		writeStatus(w, r, http.StatusBadRequest, "INVALID_PARAMETER", err.Error())
		return nil, false
	}
	return syms, true
}

func symbolParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "symbol")
	if !symbols.Valid(raw) {
		writeStatus(w, r, http.StatusBadRequest, "INVALID_PARAMETER", "invalid symbol "+strconv.Quote(raw))
		return "", false
	}
	return symbols.Normalize(raw), true
}

// writeError maps domain errors to HTTP statuses
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var perr *provider.ProviderError
	switch {
	case errors.Is(err, predict.ErrInsufficientData), errors.Is(err, scanner.ErrInsufficientHistory):
		writeStatus(w, r, http.StatusUnprocessableEntity, "INSUFFICIENT_DATA", err.Error())
	case errors.Is(err, backtest.ErrInvalidRange):
		writeStatus(w, r, http.StatusBadRequest, "INVALID_PARAMETER", err.Error())
	case errors.Is(err, ledger.ErrRunNotFound):
		writeStatus(w, r, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeStatus(w, r, http.StatusGatewayTimeout, "TIMEOUT", err.Error())
	case errors.Is(err, scanner.ErrNoData), errors.As(err, &perr):
		writeStatus(w, r, http.StatusBadGateway, "EXTERNAL_API_ERROR", err.Error())
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		writeStatus(w, r, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", err.Error())
	}
}

func writeStatus(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{
		Code:      code,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Writing response failed")
	}
}
