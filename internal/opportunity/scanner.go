// Package opportunity runs pattern detectors across a universe, screens the
// hits through a fixed filter chain and ranks the survivors.
package opportunity

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"stockscope/internal/indicator"
	"stockscope/internal/levels"
	"stockscope/internal/position"
	"stockscope/internal/regime"
	"stockscope/pkg/model"
)

// Options carries per-scan optional inputs
type Options struct {
	Fundamentals map[string]*model.FundamentalData
	Regimes      map[string]regime.Analysis // classified on demand when missing
	AsOf         time.Time
}

// Components are the analyzers the scanner consults. Nil members are
// created with their default configuration.
type Components struct {
	Indicators indicator.Options
	Levels     *levels.Analyzer
	Regime     *regime.Classifier
	Detectors  []Detector
}

// Scanner finds and ranks opportunities
type Scanner struct {
	config Config
	c      Components
}

// NewScanner creates a new opportunity scanner
func NewScanner(cfg Config, c Components) *Scanner {
	if c.Levels == nil {
		c.Levels = levels.NewAnalyzer(levels.DefaultConfig())
	}
	if c.Regime == nil {
		c.Regime = regime.NewClassifier(regime.DefaultConfig())
	}
	if len(c.Detectors) == 0 {
		c.Detectors = DefaultDetectors(cfg)
	}
	return &Scanner{config: cfg, c: c}
}

// Scan runs every detector on every symbol with enough history
func (s *Scanner) Scan(data map[string][]model.Bar, opts Options) Result {
	res := Result{
		ScanID:         uuid.NewString(),
		ScanDate:       opts.AsOf,
		SymbolsScanned: len(data),
	}

	symbols := make([]string, 0, len(data))
	for sym := range data {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	for _, sym := range symbols {
		bars := data[sym]
		if len(bars) < s.config.MinBars {
			res.SymbolsFiltered++
			log.Debug().Str("symbol", sym).Int("bars", len(bars)).Msg("Skipping symbol with short history")
			continue
		}
		if last := bars[len(bars)-1].Date; opts.AsOf.IsZero() && last.After(res.ScanDate) {
			res.ScanDate = last
		}
		res.Candidates = append(res.Candidates, s.ScanSymbol(sym, bars, opts)...)
	}

	for _, o := range res.Candidates {
		if o.PassesFilters {
			res.Opportunities = append(res.Opportunities, o)
		}
	}
	Rank(res.Opportunities)
	if len(res.Opportunities) > s.config.TopN {
		res.Opportunities = res.Opportunities[:s.config.TopN]
	}

	res.Summary = summarize(res)
	return res
}

// ScanSymbol runs the detectors on one symbol and returns every candidate,
// filtered or not
func (s *Scanner) ScanSymbol(symbol string, bars []model.Bar, opts Options) []Opportunity {
	set := indicator.ComputeWith(bars, s.c.Indicators)
	reg, ok := opts.Regimes[symbol]
	if !ok {
		reg = s.c.Regime.Classify(bars, set)
	}

	in := Input{
		Symbol:       symbol,
		Bars:         bars,
		Indicators:   set,
		Levels:       s.c.Levels.Analyze(bars),
		Regime:       reg,
		Fundamentals: opts.Fundamentals[symbol],
		AsOf:         opts.AsOf,
	}

	var out []Opportunity
	for _, d := range s.c.Detectors {
		setup := d.Detect(in)
		if setup == nil {
			continue
		}
		o := s.build(in, setup)
		o.Setup = d.Description()
		out = append(out, o)
	}
	return out
}

// build turns a setup into a sized, filtered and scored opportunity
func (s *Scanner) build(in Input, setup *Setup) Opportunity {
	entry := in.Indicators.Price
	atr := in.Indicators.ATR
	stop := max(entry-s.config.StopATRMultiple*atr, 0)

	o := Opportunity{
		Symbol:      in.Symbol,
		Type:        setup.Type,
		Catalyst:    setup.Catalyst,
		Reason:      setup.Reason,
		Edge:        setup.Edge,
		ZScore:      setup.ZScore,
		PValue:      indicator.PValue(setup.ZScore),
		Confidence:  clamp(setup.Confidence, 0, 100),
		HoldingDays: setup.HoldingDays,
		ATR:         atr,
		Regime:      in.Regime.Regime,
		Strategy:    in.Regime.Strategy,
		Details:     setup.Details,
	}

	gain := setup.Target - entry
	loss := entry - stop
	var lossPct float64
	if entry > 0 {
		o.ExpectedReturn = gain / entry * 100
		lossPct = loss / entry * 100
	}
	if loss > 0 {
		o.RiskReward = gain / loss
		o.BreakevenWinRate = position.BreakevenWinRate(o.RiskReward) * 100
	}
	if lossPct > 0 {
		kelly := position.Kelly(s.config.WinRates.For(setup.Type), o.ExpectedReturn/lossPct, s.config.KellyFraction, s.config.MaxPositionPct)
		o.KellySize = min(kelly*in.Regime.SizeMultiplier, s.config.MaxPositionPct)
	}

	o.Entry = position.RoundPrice(entry)
	o.Stop = position.RoundPrice(stop)
	o.Target = position.RoundPrice(setup.Target)

	s.applyFilters(&o)
	o.Score = score(o)
	return o
}

// Rank sorts by score descending, then symbol, then type
func Rank(opps []Opportunity) {
	sort.SliceStable(opps, func(i, j int) bool {
		a, b := opps[i], opps[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		return a.Type < b.Type
	})
}

func summarize(res Result) []string {
	passed := 0
	for _, o := range res.Candidates {
		if o.PassesFilters {
			passed++
		}
	}
	lines := []string{
		fmt.Sprintf("Scanned %d symbols, %d filtered for short history", res.SymbolsScanned, res.SymbolsFiltered),
		fmt.Sprintf("%d candidates, %d passed filters, %d ranked", len(res.Candidates), passed, len(res.Opportunities)),
	}
	for i, o := range res.Opportunities {
		lines = append(lines, fmt.Sprintf("#%d %s %s score %.0f: %s", i+1, o.Symbol, o.Type, o.Score, o.Reason))
	}
	return lines
}
