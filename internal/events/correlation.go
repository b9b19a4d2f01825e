package events

import (
	"fmt"
	"math"

	"stockscope/internal/indicator"
	"stockscope/pkg/model"
)

// CorrelationConfig holds the cross-market settings
type CorrelationConfig struct {
	Lookback          int     `yaml:"lookback" validate:"gte=10"`
	MinSessions       int     `yaml:"min_sessions" validate:"gte=3"`
	ShortTrend        int     `yaml:"short_trend" validate:"gte=1"`
	LongTrend         int     `yaml:"long_trend" validate:"gte=1"`
	NeutralBandPct    float64 `yaml:"neutral_band_pct"`
	MaxImpactPct      float64 `yaml:"max_impact_pct"`
	StrongCorrelation float64 `yaml:"strong_correlation" validate:"gte=0,lte=1"`
	AgreeBoost        float64 `yaml:"agree_boost"`
	DisagreePenalty   float64 `yaml:"disagree_penalty"`
}

// DefaultCorrelationConfig returns default configuration
func DefaultCorrelationConfig() CorrelationConfig {
	return CorrelationConfig{
		Lookback:          60,
		MinSessions:       20,
		ShortTrend:        5,
		LongTrend:         20,
		NeutralBandPct:    1,
		MaxImpactPct:      2,
		StrongCorrelation: 0.7,
		AgreeBoost:        1.05,
		DisagreePenalty:   0.95,
	}
}

// Correlation describes how a symbol co-moves with an index
type Correlation struct {
	Available     bool        `json:"available"`
	Sessions      int         `json:"sessions"`
	Coefficient   float64     `json:"coefficient"`
	Beta          float64     `json:"beta"`
	IndexTrend    model.Trend `json:"index_trend"`
	IndexChange5  float64     `json:"index_change5"`
	IndexChange20 float64     `json:"index_change20"`
	ImpactPct     float64     `json:"impact_pct"`
	Signals       []string    `json:"signals,omitempty"`
}

// CorrelationAnalyzer compares a symbol against a market index
type CorrelationAnalyzer struct {
	config CorrelationConfig
}

// NewCorrelationAnalyzer creates a new correlation analyzer
func NewCorrelationAnalyzer(cfg CorrelationConfig) *CorrelationAnalyzer {
	return &CorrelationAnalyzer{config: cfg}
}

// Analyze aligns bars with index by session date. Too few shared sessions
// leave the result unavailable with a neutral trend.
func (c *CorrelationAnalyzer) Analyze(bars, index []model.Bar) Correlation {
	result := Correlation{IndexTrend: model.Neutral}

	stock, idx := align(bars, index)
	if len(stock) > c.config.Lookback+1 {
		stock = stock[len(stock)-c.config.Lookback-1:]
		idx = idx[len(idx)-c.config.Lookback-1:]
	}
	result.Sessions = len(stock)
	if len(stock) < c.config.MinSessions {
		return result
	}
	result.Available = true

	sr := indicator.Returns(stock)
	ir := indicator.Returns(idx)
	result.Coefficient = indicator.Correlation(sr, ir)
	result.Beta = beta(sr, ir)

	result.IndexChange5 = indicator.PriceChange(idx, c.config.ShortTrend)
	result.IndexChange20 = indicator.PriceChange(idx, c.config.LongTrend)
	switch {
	case result.IndexChange5 > c.config.NeutralBandPct && result.IndexChange20 > 0:
		result.IndexTrend = model.Bullish
	case result.IndexChange5 < -c.config.NeutralBandPct && result.IndexChange20 < 0:
		result.IndexTrend = model.Bearish
	}

	momentum := result.IndexChange5 / float64(c.config.ShortTrend)
	impact := result.Beta * momentum * math.Abs(result.Coefficient)
	result.ImpactPct = math.Max(-c.config.MaxImpactPct, math.Min(impact, c.config.MaxImpactPct))

	result.Signals = append(result.Signals,
		fmt.Sprintf("index correlation %.2f, beta %.2f over %d sessions", result.Coefficient, result.Beta, result.Sessions),
		fmt.Sprintf("index trend %s (%+.1f%% 5d, %+.1f%% 20d)", result.IndexTrend, result.IndexChange5, result.IndexChange20))

	return result
}

// Adjust applies the index impact to predicted and scales confidence when
// the symbol is strongly correlated: up when the index trend agrees with
// the forecast direction, down when it disagrees.
func (c *CorrelationAnalyzer) Adjust(corr Correlation, current, predicted, confidence float64) (float64, float64) {
	if !corr.Available {
		return predicted, confidence
	}
	predicted *= 1 + corr.ImpactPct/100

	if math.Abs(corr.Coefficient) <= c.config.StrongCorrelation || corr.IndexTrend == model.Neutral {
		return predicted, confidence
	}
	direction := 0.0
	switch {
	case predicted > current:
		direction = 1
	case predicted < current:
		direction = -1
	}
	if direction == 0 {
		return predicted, confidence
	}
	if direction == corr.IndexTrend.Sign() {
		return predicted, confidence * c.config.AgreeBoost
	}
	return predicted, confidence * c.config.DisagreePenalty
}

// align returns closes of both series on the sessions they share
func align(bars, index []model.Bar) ([]float64, []float64) {
	byDate := make(map[string]float64, len(index))
	for _, b := range index {
		byDate[b.Date.Format("2006-01-02")] = b.Close
	}
	var stock, idx []float64
	for _, b := range bars {
		if v, ok := byDate[b.Date.Format("2006-01-02")]; ok {
			stock = append(stock, b.Close)
			idx = append(idx, v)
		}
	}
	return stock, idx
}

func beta(stock, index []float64) float64 {
	n := min(len(stock), len(index))
	if n < 2 {
		return 0
	}
	stock, index = stock[len(stock)-n:], index[len(index)-n:]
	ms, mi := indicator.Mean(stock), indicator.Mean(index)
	var cov, variance float64
	for i := 0; i < n; i++ {
		cov += (stock[i] - ms) * (index[i] - mi)
		variance += (index[i] - mi) * (index[i] - mi)
	}
	if variance < 1e-12 {
		return 0
	}
	return cov / variance
}
