// Package web serves the analysis engine over a JSON HTTP API.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"stockscope/internal/backtest"
	"stockscope/internal/ledger"
	"stockscope/internal/predict"
	"stockscope/internal/regime"
	"stockscope/internal/scanner"
	"stockscope/internal/symbols"
)

// Analyzer runs analyses on demand
type Analyzer interface {
	Predict(ctx context.Context, symbol string) (*predict.Prediction, error)
	Regime(ctx context.Context, symbol string) (regime.Analysis, error)
	Scan(ctx context.Context, symbols []string) (*scanner.ScanResult, error)
	Backtest(ctx context.Context, symbols []string, from, to time.Time, opts scanner.BacktestOptions) (*scanner.BacktestResult, error)
}

// RunReader reads stored backtests
type RunReader interface {
	Runs(ctx context.Context, limit int) ([]ledger.Run, error)
	Trades(ctx context.Context, runID string) ([]backtest.Trade, error)
}

// Options configures the server. A nil Runs disables the ledger routes and
// a nil Metrics handler disables /metrics.
type Options struct {
	Universe       symbols.Universe
	Runs           RunReader
	Metrics        http.Handler
	MetricsPath    string
	RequestTimeout time.Duration
}

// Server represents the web server
type Server struct {
	analyzer Analyzer
	opts     Options
	srv      *http.Server
}

// NewServer creates a new web server
func NewServer(a Analyzer, opts Options) *Server {
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 5 * time.Minute
	}
	return &Server{analyzer: a, opts: opts}
}

// Handler builds the router
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(corsMiddleware)

	r.Get("/healthz", s.handleHealth)
	if s.opts.Metrics != nil {
		r.Handle(s.opts.MetricsPath, s.opts.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(s.opts.RequestTimeout))
		r.Get("/predict/{symbol}", s.handlePredict)
		r.Get("/regime/{symbol}", s.handleRegime)
		r.Post("/scan", s.handleScan)
		r.Post("/backtest", s.handleBacktest)
		r.Get("/backtests", s.handleRuns)
		r.Get("/backtests/{id}/trades", s.handleTrades)
	})
	return r
}

// Start listens on addr until Shutdown
func (s *Server) Start(addr string, readTimeout, writeTimeout time.Duration) error {
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  120 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("Starting stockscope API")
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv != nil {
		return s.srv.Shutdown(ctx)
	}
	return nil
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

// corsMiddleware adds CORS headers for local dashboards
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
