// Package predict blends several price estimators into a next-session
// forecast with a confidence score, trend label and recommendation.
package predict

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"stockscope/internal/events"
	"stockscope/internal/fundamental"
	"stockscope/internal/indicator"
	"stockscope/internal/levels"
	"stockscope/internal/regime"
	"stockscope/pkg/model"
)

// ErrInsufficientData is returned when a series is too short to forecast
var ErrInsufficientData = errors.New("insufficient data for prediction")

// Components are the analyzers the ensemble consults. Nil members are
// created with their default configuration.
type Components struct {
	Indicators   indicator.Options
	Regime       *regime.Classifier
	Levels       *levels.Analyzer
	Events       *events.Analyzer
	Correlation  *events.CorrelationAnalyzer
	Fundamentals *fundamental.Analyzer
}

// Ensemble produces forecasts
type Ensemble struct {
	config Config
	c      Components
}

// NewEnsemble creates a new prediction ensemble
func NewEnsemble(cfg Config, c Components) *Ensemble {
	if c.Regime == nil {
		c.Regime = regime.NewClassifier(regime.DefaultConfig())
	}
	if c.Levels == nil {
		c.Levels = levels.NewAnalyzer(levels.DefaultConfig())
	}
	if c.Events == nil {
		c.Events = events.NewAnalyzer(events.DefaultConfig())
	}
	if c.Correlation == nil {
		c.Correlation = events.NewCorrelationAnalyzer(events.DefaultCorrelationConfig())
	}
	if c.Fundamentals == nil {
		c.Fundamentals = fundamental.NewAnalyzer(fundamental.DefaultConfig())
	}
	return &Ensemble{config: cfg, c: c}
}

// Predict forecasts the next session close for symbol
func (e *Ensemble) Predict(symbol string, bars []model.Bar, in Inputs) (*Prediction, error) {
	if len(bars) < e.config.MinBars {
		return nil, fmt.Errorf("%w: %s has %d bars, need %d", ErrInsufficientData, symbol, len(bars), e.config.MinBars)
	}

	set := indicator.ComputeWith(bars, e.c.Indicators)
	closes := model.Closes(bars)
	current := set.Price

	p := &Prediction{
		Symbol:       symbol,
		Sector:       in.Sector,
		AsOf:         in.AsOf,
		CurrentPrice: current,
		Indicators:   set,
	}
	if p.AsOf.IsZero() {
		p.AsOf = bars[len(bars)-1].Date
	}
	if p.Sector == "" && in.Fundamentals != nil {
		p.Sector = in.Fundamentals.Sector
	}

	reg := indicator.LinearRegression(model.Last(closes, indicator.PeriodRegression))
	p.Estimates = Estimates{Regression: reg.Forecast, EMA: set.EMA12, SMA: set.SMA20, VWAP: set.VWAP}
	p.Weights = e.weights(bars, set, &p.Signals)
	predicted := p.Estimates.Blend(p.Weights)

	p.Regime = e.c.Regime.Classify(bars, set)
	p.Signals = append(p.Signals, p.Regime.Signals...)

	votes := e.tally(bars, set, reg)
	p.TrendScore, p.Trend = votes.score, e.trend(votes.score)
	confidence := e.baseConfidence(set, votes, predicted-current)
	confidence *= p.Regime.Confidence / 100

	p.Events = e.c.Events.Analyze(in.Fundamentals, current, p.AsOf)
	predicted, confidence = p.Events.Apply(predicted, confidence)
	p.Signals = append(p.Signals, p.Events.Signals...)

	sr := e.c.Levels.Analyze(bars)
	p.Support, p.Resistance, p.Pivots = sr.NearestSupport, sr.NearestResistance, sr.Pivots
	var factor float64
	predicted, factor = e.c.Levels.Clamp(sr, predicted)
	confidence *= factor
	if factor < 1 {
		p.Signals = append(p.Signals, fmt.Sprintf("forecast capped at strong level %.2f", predicted))
	}

	if len(in.IndexBars) > 0 {
		corr := e.c.Correlation.Analyze(bars, in.IndexBars)
		if corr.Available {
			predicted, confidence = e.c.Correlation.Adjust(corr, current, predicted, confidence)
			p.Signals = append(p.Signals, corr.Signals...)
		}
		p.Correlation = &corr
	}

	if in.FundamentalAnalysis != nil {
		p.Fundamental = in.FundamentalAnalysis
		predicted, confidence = e.c.Fundamentals.Fold(in.FundamentalAnalysis, current, predicted, confidence)
		p.Signals = append(p.Signals, fmt.Sprintf("fundamental score %.0f (%s)", in.FundamentalAnalysis.Score, in.FundamentalAnalysis.Bias))
	}

	if p.Regime.Strategy == regime.StayCash && confidence > e.config.StayCashCap {
		confidence = e.config.StayCashCap
	}

	p.PredictedPrice = predicted
	p.Change = predicted - current
	if current > 0 {
		p.ChangePct = p.Change / current * 100
	}
	p.Confidence = clamp(confidence, 0, 100)
	p.Recommendation = e.recommend(p.TrendScore, p.ChangePct, p.Confidence)

	log.Debug().
		Str("symbol", symbol).
		Float64("current", current).
		Float64("predicted", predicted).
		Float64("confidence", p.Confidence).
		Str("regime", p.Regime.Regime.String()).
		Msg("Prediction computed")

	return p, nil
}

// weights perturbs the default blend and renormalises it to sum to 1
func (e *Ensemble) weights(bars []model.Bar, set indicator.Set, signals *[]string) Weights {
	w := e.config.Weights
	shift := e.config.WeightShift
	closes := model.Closes(bars)

	lastMove := indicator.PriceChange(closes, 1)
	if set.VolumeRatio > e.config.BreakoutVolumeRatio && math.Abs(lastMove) > e.config.BreakoutMovePct {
		w.Regression += shift
		w.EMA += shift
		w.SMA -= shift
		w.VWAP -= shift
		*signals = append(*signals, fmt.Sprintf("volume breakout: %.1fx volume on %+.1f%% move", set.VolumeRatio, lastMove))
	}
	if indicator.Divergence(bars, e.config.DivergenceSessions) {
		w.VWAP += e.config.DivergenceShift
		w.Regression -= shift
		w.EMA -= shift
		*signals = append(*signals, "volume/price divergence")
	}
	if set.ADX > e.config.TrendADX {
		w.EMA += shift
		w.SMA += shift
		w.Regression -= shift
		w.VWAP -= shift
	}

	floor := e.config.WeightFloor
	w.Regression = math.Max(w.Regression, floor)
	w.EMA = math.Max(w.EMA, floor)
	w.SMA = math.Max(w.SMA, floor)
	w.VWAP = math.Max(w.VWAP, floor)

	sum := w.Sum()
	w.Regression /= sum
	w.EMA /= sum
	w.SMA /= sum
	w.VWAP /= sum
	return w
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
