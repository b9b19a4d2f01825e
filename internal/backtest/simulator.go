// Package backtest replays the opportunity scanner over history at monthly
// checkpoints and simulates each surfaced trade on the bars that followed.
package backtest

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"stockscope/internal/indicator"
	"stockscope/internal/opportunity"
	"stockscope/internal/regime"
	"stockscope/pkg/model"
)

// ErrInvalidRange is returned when from is not before to
var ErrInvalidRange = errors.New("backtest: from must be before to")

// Config holds backtest configuration
type Config struct {
	MinBars             int     `yaml:"min_bars" validate:"gte=30"`
	WindowBars          int     `yaml:"window_bars" validate:"gtefield=MinBars"`
	MaxHoldDays         int     `yaml:"max_hold_days" validate:"gte=1"`
	TrailingATRMultiple float64 `yaml:"trailing_atr_multiple" validate:"gt=0"`
	BreakevenBandPct    float64 `yaml:"breakeven_band_pct" validate:"gte=0"`
	PositionSizePct     float64 `yaml:"position_size_pct" validate:"gt=0,lte=100"`
	MaxProfitFactor     float64 `yaml:"max_profit_factor" validate:"gt=0"`
	Workers             int     `yaml:"workers" validate:"gte=1"`
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		MinBars:             60,
		WindowBars:          90,
		MaxHoldDays:         15,
		TrailingATRMultiple: 1.5,
		BreakevenBandPct:    0.2,
		PositionSizePct:     5,
		MaxProfitFactor:     99.99,
		Workers:             4,
	}
}

// ProgressCallback reports checkpoint progress
type ProgressCallback func(done, total int, checkpoint time.Time)

// Components are the analyzers replayed at each checkpoint. Nil members are
// created with their default configuration.
type Components struct {
	Indicators indicator.Options
	Regime     *regime.Classifier
	Scanner    *opportunity.Scanner
}

// Simulator runs walk-forward backtests
type Simulator struct {
	config Config
	c      Components
}

// NewSimulator creates a new simulator
func NewSimulator(cfg Config, c Components) *Simulator {
	if c.Regime == nil {
		c.Regime = regime.NewClassifier(regime.DefaultConfig())
	}
	if c.Scanner == nil {
		c.Scanner = opportunity.NewScanner(opportunity.DefaultConfig(), opportunity.Components{
			Indicators: c.Indicators,
			Regime:     c.Regime,
		})
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Simulator{config: cfg, c: c}
}

// MinBars is the history a symbol needs at a checkpoint to be scanned
func (s *Simulator) MinBars() int {
	return s.config.MinBars
}

// Run executes the backtest over [from, to]
func (s *Simulator) Run(data map[string][]model.Bar, from, to time.Time) (*Report, error) {
	return s.RunWithProgress(data, from, to, nil)
}

// RunWithProgress executes the backtest, reporting after every checkpoint
func (s *Simulator) RunWithProgress(data map[string][]model.Bar, from, to time.Time, progress ProgressCallback) (*Report, error) {
	if !from.Before(to) {
		return nil, fmt.Errorf("%w: %s >= %s", ErrInvalidRange, from.Format(time.DateOnly), to.Format(time.DateOnly))
	}

	symbols := make([]string, 0, len(data))
	for sym := range data {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	points := Checkpoints(from, to)
	report := &Report{From: from, To: to, Checkpoints: len(points)}

	// Checkpoints run in order; each only sees bars dated on or before it.
	for i, cp := range points {
		trades := s.runCheckpoint(report, data, symbols, cp)
		report.Trades = append(report.Trades, trades...)
		if progress != nil {
			progress(i+1, len(points), cp)
		}
	}

	s.computeStats(report)
	log.Debug().
		Int("checkpoints", report.Checkpoints).
		Int("scans", report.Scans).
		Int("trades", report.TotalTrades).
		Msg("Backtest complete")
	return report, nil
}

// runCheckpoint scans the as-of window and simulates every surfaced trade
func (s *Simulator) runCheckpoint(report *Report, data map[string][]model.Bar, symbols []string, cp time.Time) []Trade {
	window := make(map[string][]model.Bar)
	future := make(map[string][]model.Bar)
	regimes := make(map[string]regime.Analysis)

	for _, sym := range symbols {
		bars := data[sym]
		upto := model.TruncateAsOf(bars, cp)
		if len(upto) < s.config.MinBars {
			continue
		}
		w := model.Last(upto, s.config.WindowBars)
		window[sym] = w
		future[sym] = bars[len(upto):]
		regimes[sym] = s.c.Regime.Classify(w, indicator.ComputeWith(w, s.c.Indicators))
	}

	if len(window) == 0 {
		log.Debug().Time("checkpoint", cp).Msg("No symbol has enough history at checkpoint")
		return nil
	}

	res := s.c.Scanner.Scan(window, opportunity.Options{Regimes: regimes, AsOf: cp})
	report.Scans++
	report.Opportunities += len(res.Opportunities)

	results := make([]*Trade, len(res.Opportunities))
	var g errgroup.Group
	g.SetLimit(s.config.Workers)
	for i, o := range res.Opportunities {
		entryDate := model.Last(window[o.Symbol], 1)[0].Date
		path := future[o.Symbol]
		g.Go(func() error {
			results[i] = s.simulateTrade(o, entryDate, path)
			return nil
		})
	}
	_ = g.Wait()

	var trades []Trade
	for _, t := range results {
		if t != nil {
			trades = append(trades, *t)
		}
	}
	log.Debug().
		Time("checkpoint", cp).
		Int("symbols", len(window)).
		Int("opportunities", len(res.Opportunities)).
		Int("trades", len(trades)).
		Msg("Checkpoint simulated")
	return trades
}

// simulateTrade walks the bars after entry. The stop is checked before the
// target on each day; the trailing stop is ratcheted after both checks.
// Returns nil when there is no subsequent bar to trade on.
func (s *Simulator) simulateTrade(o opportunity.Opportunity, entryDate time.Time, path []model.Bar) *Trade {
	if len(path) == 0 || o.Entry <= 0 {
		return nil
	}

	horizon := s.config.MaxHoldDays
	if o.HoldingDays > 0 {
		horizon = min(horizon, o.HoldingDays)
	}
	horizon = min(horizon, len(path))

	t := &Trade{
		Symbol:       o.Symbol,
		Strategy:     o.Type,
		Regime:       o.Regime,
		EntryDate:    entryDate,
		EntryPrice:   o.Entry,
		OriginalStop: o.Stop,
		Target:       o.Target,
	}

	stop := o.Stop
	highest := o.Entry
	for i := 0; i < horizon; i++ {
		bar := path[i]
		t.ExitDate = bar.Date
		t.DaysHeld = i + 1

		if bar.Low <= stop {
			t.ExitPrice = math.Min(bar.Open, stop)
			t.ExitReason = ExitStop
			if stop > o.Stop {
				t.ExitReason = ExitTrailingStop
			}
			break
		}
		if bar.High >= o.Target {
			t.ExitPrice = math.Max(bar.Open, o.Target)
			t.ExitReason = ExitTarget
			break
		}

		highest = math.Max(highest, bar.High)
		if highest > o.Entry {
			stop = math.Max(stop, highest-s.config.TrailingATRMultiple*o.ATR)
		}

		if i == horizon-1 {
			t.ExitPrice = bar.Close
			t.ExitReason = ExitHorizon
		}
	}

	t.FinalStop = stop
	t.ReturnPct = (t.ExitPrice - t.EntryPrice) / t.EntryPrice * 100
	t.Outcome = s.outcome(t.ReturnPct)
	return t
}

func (s *Simulator) outcome(returnPct float64) Outcome {
	switch {
	case returnPct > s.config.BreakevenBandPct:
		return Win
	case returnPct < -s.config.BreakevenBandPct:
		return Loss
	default:
		return Breakeven
	}
}

// Checkpoints returns from followed by the first day of every later month
// up to and including to
func Checkpoints(from, to time.Time) []time.Time {
	if from.After(to) {
		return nil
	}
	points := []time.Time{from}
	next := time.Date(from.Year(), from.Month()+1, 1, 0, 0, 0, 0, from.Location())
	for !next.After(to) {
		points = append(points, next)
		next = next.AddDate(0, 1, 0)
	}
	return points
}
