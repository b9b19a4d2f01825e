// Package regime labels the current market state of a bar series and
// recommends a strategy posture for it.
package regime

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"stockscope/internal/indicator"
	"stockscope/pkg/model"
)

// Multipliers holds the position-size multiplier for each regime
type Multipliers struct {
	TrendingUp     float64 `yaml:"trending_up" validate:"gte=0.3,lte=1.5"`
	TrendingDown   float64 `yaml:"trending_down" validate:"gte=0.3,lte=1.5"`
	RangeBound     float64 `yaml:"range_bound" validate:"gte=0.3,lte=1.5"`
	HighVolatility float64 `yaml:"high_volatility" validate:"gte=0.3,lte=1.5"`
	LowVolatility  float64 `yaml:"low_volatility" validate:"gte=0.3,lte=1.5"`
	BreakoutUp     float64 `yaml:"breakout_up" validate:"gte=0.3,lte=1.5"`
	Breakdown      float64 `yaml:"breakdown" validate:"gte=0.3,lte=1.5"`
}

// For returns the multiplier of r
func (m Multipliers) For(r Regime) float64 {
	switch r {
	case TrendingUp:
		return m.TrendingUp
	case TrendingDown:
		return m.TrendingDown
	case HighVolatility:
		return m.HighVolatility
	case LowVolatility:
		return m.LowVolatility
	case BreakoutUp:
		return m.BreakoutUp
	case Breakdown:
		return m.Breakdown
	default:
		return m.RangeBound
	}
}

// Config holds the cascade thresholds
type Config struct {
	MinBars             int         `yaml:"min_bars" validate:"gte=20"`
	FallbackConfidence  float64     `yaml:"fallback_confidence" validate:"gte=0,lte=100"`
	PercentileLookback  int         `yaml:"percentile_lookback" validate:"gte=10"`
	HighVolPercentile   float64     `yaml:"high_vol_percentile"`
	LowVolPercentile    float64     `yaml:"low_vol_percentile"`
	SqueezePercentile   float64     `yaml:"squeeze_percentile"`
	BreakoutChangePct   float64     `yaml:"breakout_change_pct"`
	BreakoutVolumeRatio float64     `yaml:"breakout_volume_ratio"`
	TrendADX            float64     `yaml:"trend_adx"`
	MaxDuration         int         `yaml:"max_duration"`
	RangeBandPct        float64     `yaml:"range_band_pct"`
	Multipliers         Multipliers `yaml:"multipliers"`
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		MinBars:             60,
		FallbackConfidence:  30,
		PercentileLookback:  100,
		HighVolPercentile:   80,
		LowVolPercentile:    20,
		SqueezePercentile:   30,
		BreakoutChangePct:   5,
		BreakoutVolumeRatio: 1.5,
		TrendADX:            25,
		MaxDuration:         30,
		RangeBandPct:        3,
		Multipliers: Multipliers{
			TrendingUp:     1.2,
			TrendingDown:   0.5,
			RangeBound:     0.8,
			HighVolatility: 0.3,
			LowVolatility:  1.0,
			BreakoutUp:     1.5,
			Breakdown:      0.4,
		},
	}
}

// Classifier decides the regime through an ordered priority cascade
type Classifier struct {
	config Config
}

// NewClassifier creates a new regime classifier
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{config: cfg}
}

// Classify labels bars with exactly one regime. Short or flat histories
// fall back to range_bound at reduced confidence.
func (c *Classifier) Classify(bars []model.Bar, set indicator.Set) Analysis {
	if len(bars) < c.config.MinBars {
		return c.fallback(fmt.Sprintf("insufficient history: %d bars, need %d", len(bars), c.config.MinBars))
	}

	atrFull := indicator.ATRPercentSeries(bars, indicator.PeriodATR)
	if set.ATR <= 0 || len(atrFull) == 0 {
		return c.fallback("flat price series: no measurable range")
	}
	atrWindow := tail(atrFull, c.config.PercentileLookback)
	widths := tail(indicator.BollingerWidthSeries(model.Closes(bars), indicator.PeriodBollinger, indicator.BollingerK), c.config.PercentileLookback)

	m := Metrics{
		ATRPercentile:       indicator.PercentileRank(atrWindow, atrWindow[len(atrWindow)-1]),
		BandWidthPercentile: 50,
		ADX:                 set.ADX,
		PriceChange5:        set.PriceChange5,
		VolumeRatio:         set.VolumeRatio,
	}
	if len(widths) > 0 {
		m.BandWidthPercentile = indicator.PercentileRank(widths, widths[len(widths)-1])
	}

	up, down := set.TrendAligned()
	trending := m.ADX > c.config.TrendADX
	surge := math.Abs(m.PriceChange5) > c.config.BreakoutChangePct && m.VolumeRatio > c.config.BreakoutVolumeRatio && trending

	a := Analysis{Metrics: m}
	switch {
	case m.ATRPercentile > c.config.HighVolPercentile:
		a.Regime = HighVolatility
		a.Confidence = 60 + (m.ATRPercentile-c.config.HighVolPercentile)*2
		a.Signals = append(a.Signals, fmt.Sprintf("ATR percentile %.0f above %.0f", m.ATRPercentile, c.config.HighVolPercentile))

	case surge && m.PriceChange5 > 0 && set.Price > set.SMA20:
		a.Regime = BreakoutUp
		a.Confidence = c.surgeConfidence(m)
		a.Signals = append(a.Signals,
			fmt.Sprintf("5-session change %+.1f%% on %.1fx volume", m.PriceChange5, m.VolumeRatio),
			fmt.Sprintf("ADX %.0f confirms trend strength", m.ADX))

	case surge && m.PriceChange5 < 0 && set.Price < set.SMA20:
		a.Regime = Breakdown
		a.Confidence = c.surgeConfidence(m)
		a.Signals = append(a.Signals,
			fmt.Sprintf("5-session change %+.1f%% on %.1fx volume", m.PriceChange5, m.VolumeRatio),
			fmt.Sprintf("ADX %.0f confirms trend strength", m.ADX))

	case trending && up:
		a.Regime = TrendingUp
		a.Confidence = 55 + math.Min(m.ADX-c.config.TrendADX, 30)
		a.Signals = append(a.Signals, fmt.Sprintf("ADX %.0f with price > SMA20 > SMA50", m.ADX))

	case trending && down:
		a.Regime = TrendingDown
		a.Confidence = 55 + math.Min(m.ADX-c.config.TrendADX, 30)
		a.Signals = append(a.Signals, fmt.Sprintf("ADX %.0f with price < SMA20 < SMA50", m.ADX))

	case m.ATRPercentile < c.config.LowVolPercentile && m.BandWidthPercentile < c.config.SqueezePercentile:
		a.Regime = LowVolatility
		a.Confidence = 55 + (c.config.LowVolPercentile - m.ATRPercentile) + (c.config.SqueezePercentile-m.BandWidthPercentile)/2
		a.Signals = append(a.Signals, fmt.Sprintf("volatility squeeze: ATR pct %.0f, band width pct %.0f", m.ATRPercentile, m.BandWidthPercentile))

	default:
		a.Regime = RangeBound
		a.Confidence = 50 + math.Max(0, c.config.TrendADX-m.ADX)
		a.Confidence = math.Min(a.Confidence, 75)
		a.Signals = append(a.Signals, fmt.Sprintf("no trend or volatility extreme (ADX %.0f)", m.ADX))
	}

	a.Confidence = math.Max(0, math.Min(a.Confidence, 95))
	a.Strategy = StrategyFor(a.Regime)
	a.SizeMultiplier = c.config.Multipliers.For(a.Regime)
	a.Duration = c.duration(bars, a.Regime, atrFull, atrWindow)

	log.Debug().
		Str("regime", a.Regime.String()).
		Float64("confidence", a.Confidence).
		Int("duration", a.Duration).
		Float64("atr_pct", m.ATRPercentile).
		Float64("adx", m.ADX).
		Msg("Regime classified")

	return a
}

func (c *Classifier) surgeConfidence(m Metrics) float64 {
	conf := 65.0
	conf += math.Min(math.Abs(m.PriceChange5)-c.config.BreakoutChangePct, 10) * 1.5
	conf += math.Min(m.VolumeRatio-c.config.BreakoutVolumeRatio, 1) * 10
	return conf
}

func (c *Classifier) fallback(reason string) Analysis {
	return Analysis{
		Regime:         RangeBound,
		Confidence:     c.config.FallbackConfidence,
		Strategy:       StrategyFor(RangeBound),
		SizeMultiplier: c.config.Multipliers.For(RangeBound),
		Signals:        []string{reason},
		Metrics:        Metrics{ATRPercentile: 50, BandWidthPercentile: 50, VolumeRatio: 1},
	}
}

func tail(values []float64, n int) []float64 {
	if n > 0 && len(values) > n {
		return values[len(values)-n:]
	}
	return values
}
