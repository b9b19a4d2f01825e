package scanner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"stockscope/internal/backtest"
	"stockscope/internal/fundamental"
	"stockscope/internal/indicator"
	"stockscope/internal/metrics"
	"stockscope/internal/opportunity"
	"stockscope/internal/predict"
	"stockscope/internal/provider"
	"stockscope/internal/regime"
	"stockscope/internal/syncqueue"
	"stockscope/pkg/model"
)

// ErrInsufficientHistory is returned when no symbol has enough bars to
// warm up and cover a backtest range
var ErrInsufficientHistory = errors.New("insufficient history for backtest")

// ErrNoData is returned when no symbol could be fetched
var ErrNoData = errors.New("no market data fetched")

// Config holds service settings
type Config struct {
	Fetch        FetchConfig `yaml:"fetch"`
	IndexSymbol  string      `yaml:"index_symbol" default:"SPY"` // empty disables correlation
	Fundamentals bool        `yaml:"fundamentals" default:"true"`
	WarmupDays   int         `yaml:"warmup_days" default:"150" validate:"gte=0"` // calendar days fetched before a backtest
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		Fetch:        DefaultFetchConfig(),
		IndexSymbol:  "SPY",
		Fundamentals: true,
		WarmupDays:   150,
	}
}

// RunStore persists backtest runs
type RunStore interface {
	SaveRun(ctx context.Context, symbols []string, r *backtest.Report) (string, error)
}

// Queue accepts results for later delivery
type Queue interface {
	Append(kind syncqueue.Kind, payload any) (syncqueue.Item, error)
}

// Components are the collaborators of a Service. Provider is required;
// nil analyzers are created with their default configuration, and nil
// Metrics, Runs and Queue disable those hooks.
type Components struct {
	Provider     provider.Provider
	Indicators   indicator.Options
	Regime       *regime.Classifier
	Ensemble     *predict.Ensemble
	Scanner      *opportunity.Scanner
	Simulator    *backtest.Simulator
	Fundamentals *fundamental.Analyzer
	Metrics      *metrics.Recorder
	Runs         RunStore
	Queue        Queue
}

// Service wires data fetching to the analysis engine
type Service struct {
	config  Config
	c       Components
	fetcher *Fetcher
	now     func() time.Time
}

// NewService creates a new service
func NewService(cfg Config, c Components) *Service {
	if c.Regime == nil {
		c.Regime = regime.NewClassifier(regime.DefaultConfig())
	}
	if c.Fundamentals == nil {
		c.Fundamentals = fundamental.NewAnalyzer(fundamental.DefaultConfig())
	}
	if c.Ensemble == nil {
		c.Ensemble = predict.NewEnsemble(predict.DefaultConfig(), predict.Components{
			Indicators:   c.Indicators,
			Regime:       c.Regime,
			Fundamentals: c.Fundamentals,
		})
	}
	if c.Scanner == nil {
		c.Scanner = opportunity.NewScanner(opportunity.DefaultConfig(), opportunity.Components{
			Indicators: c.Indicators,
			Regime:     c.Regime,
		})
	}
	if c.Simulator == nil {
		c.Simulator = backtest.NewSimulator(backtest.DefaultConfig(), backtest.Components{
			Indicators: c.Indicators,
			Regime:     c.Regime,
			Scanner:    c.Scanner,
		})
	}
	return &Service{
		config:  cfg,
		c:       c,
		fetcher: NewFetcher(c.Provider, cfg.Fetch, c.Metrics),
		now:     time.Now,
	}
}

// Fetcher returns the batched fetcher used by the service
func (s *Service) Fetcher() *Fetcher {
	return s.fetcher
}

// Predict forecasts the next session for symbol. Fundamentals and index
// bars are optional and their failures are ignored.
func (s *Service) Predict(ctx context.Context, symbol string) (*predict.Prediction, error) {
	bars, err := s.bars(ctx, symbol)
	if err != nil {
		return nil, err
	}

	in := predict.Inputs{}
	if s.config.Fundamentals {
		if fd, err := s.c.Provider.GetFundamentals(ctx, symbol); err == nil && fd != nil {
			in.Fundamentals = fd
			in.FundamentalAnalysis = s.c.Fundamentals.Analyze(fd)
		} else {
			log.Debug().Err(err).Str("symbol", symbol).Msg("Predicting without fundamentals")
		}
	}
	if s.config.IndexSymbol != "" && s.config.IndexSymbol != symbol {
		if index, err := s.bars(ctx, s.config.IndexSymbol); err == nil {
			in.IndexBars = index
		} else {
			log.Debug().Err(err).Str("index", s.config.IndexSymbol).Msg("Predicting without index correlation")
		}
	}

	p, err := s.c.Ensemble.Predict(symbol, bars, in)
	if err != nil {
		return nil, fmt.Errorf("predicting %s: %w", symbol, err)
	}
	s.c.Metrics.RecordPrediction(p.Confidence)
	return p, nil
}

// Regime classifies the current market regime of symbol
func (s *Service) Regime(ctx context.Context, symbol string) (regime.Analysis, error) {
	bars, err := s.bars(ctx, symbol)
	if err != nil {
		return regime.Analysis{}, err
	}
	set := indicator.ComputeWith(bars, s.c.Indicators)
	return s.c.Regime.Classify(bars, set), nil
}

// ScanResult is a scan plus the symbols that could not be fetched
type ScanResult struct {
	opportunity.Result
	Failures []Failure `json:"failures,omitempty"`
}

// Scan fetches symbols and runs the opportunity scanner over them
func (s *Service) Scan(ctx context.Context, symbols []string) (*ScanResult, error) {
	start := time.Now()

	data, failures, err := s.fetcher.FetchBars(ctx, symbols, "")
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %d symbols failed", ErrNoData, len(failures))
	}

	opts := opportunity.Options{}
	if s.config.Fundamentals {
		opts.Fundamentals, err = s.fetcher.FetchFundamentals(ctx, sortedKeys(data))
		if err != nil {
			return nil, err
		}
	}

	res := &ScanResult{Result: s.c.Scanner.Scan(data, opts), Failures: failures}
	res.SymbolsScanned += len(failures)

	types := make([]string, len(res.Opportunities))
	for i, o := range res.Opportunities {
		types[i] = o.Type.String()
	}
	s.c.Metrics.RecordScan(time.Since(start), types)
	s.enqueue(syncqueue.KindScan, res)

	log.Debug().
		Str("scan_id", res.ScanID).
		Int("symbols", res.SymbolsScanned).
		Int("opportunities", len(res.Opportunities)).
		Msg("Scan complete")
	return res, nil
}

// BacktestOptions are the optional knobs of a backtest
type BacktestOptions struct {
	MonteCarloRuns int
	Seed           uint64
	Progress       backtest.ProgressCallback
}

// BacktestResult is a backtest report with its provenance
type BacktestResult struct {
	RunID      string                     `json:"run_id,omitempty"`
	Symbols    []string                   `json:"symbols"`
	Failures   []Failure                  `json:"failures,omitempty"`
	Report     *backtest.Report           `json:"report"`
	MonteCarlo *backtest.MonteCarloResult `json:"monte_carlo,omitempty"`
}

// Backtest replays the scanner over [from, to]. At least one symbol must
// have the simulator's minimum bars plus one bar per weekday in the range,
// with to clamped to today.
func (s *Service) Backtest(ctx context.Context, symbols []string, from, to time.Time, opts BacktestOptions) (*BacktestResult, error) {
	if !from.Before(to) {
		return nil, fmt.Errorf("%w: %s >= %s", backtest.ErrInvalidRange, from.Format(time.DateOnly), to.Format(time.DateOnly))
	}

	data, failures, err := s.fetcher.FetchBars(ctx, symbols, s.backtestPeriod(from))
	if err != nil {
		return nil, err
	}

	end := to
	if now := s.now(); end.After(now) {
		end = now
	}
	need := s.c.Simulator.MinBars() + TradingDays(from, end)
	eligible := 0
	for _, bars := range data {
		if len(bars) >= need {
			eligible++
		}
	}
	if eligible == 0 {
		return nil, fmt.Errorf("%w: need %d bars for %s to %s, %d symbols fetched",
			ErrInsufficientHistory, need, from.Format(time.DateOnly), end.Format(time.DateOnly), len(data))
	}

	report, err := s.c.Simulator.RunWithProgress(data, from, to, opts.Progress)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, t := range report.Trades {
		s.c.Metrics.RecordTrade(t.Outcome.String())
	}

	res := &BacktestResult{
		Symbols:  sortedKeys(data),
		Failures: failures,
		Report:   report,
	}
	if opts.MonteCarloRuns > 0 {
		res.MonteCarlo = backtest.RunMonteCarlo(report.Trades, opts.MonteCarloRuns, opts.Seed)
	}

	if s.c.Runs != nil {
		id, err := s.c.Runs.SaveRun(ctx, res.Symbols, report)
		if err != nil {
			return nil, fmt.Errorf("saving backtest run: %w", err)
		}
		res.RunID = id
	}
	s.enqueue(syncqueue.KindBacktest, res)
	return res, nil
}

// bars fetches a single symbol without batching
func (s *Service) bars(ctx context.Context, symbol string) ([]model.Bar, error) {
	bars, err := s.fetcher.fetchBars(ctx, symbol, s.config.Fetch.Period)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", symbol, err)
	}
	return bars, nil
}

// backtestPeriod covers from back to the warm-up start, in whole years
func (s *Service) backtestPeriod(from time.Time) string {
	start := from.AddDate(0, 0, -s.config.WarmupDays)
	years := math.Ceil(s.now().Sub(start).Hours() / 24 / 365)
	return fmt.Sprintf("%dy", max(int(years), 1))
}

func (s *Service) enqueue(kind syncqueue.Kind, payload any) {
	if s.c.Queue == nil {
		return
	}
	if _, err := s.c.Queue.Append(kind, payload); err != nil {
		log.Warn().Err(err).Str("kind", string(kind)).Msg("Could not queue result for sync")
	}
}

// TradingDays counts weekdays in [from, to]. Exchange holidays are not
// excluded, so the count can run a few days above the bars a provider returns.
func TradingDays(from, to time.Time) int {
	n := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n++
		}
	}
	return n
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
