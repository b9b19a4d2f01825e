// Package fundamental scores company fundamentals and folds the result
// into a technical forecast.
package fundamental

import (
	"fmt"
	"math"

	"stockscope/pkg/model"
)

// Config holds the scoring bands and the forecast fold weights
type Config struct {
	BullishScore      float64 `yaml:"bullish_score" validate:"gte=50,lte=100"`
	BearishScore      float64 `yaml:"bearish_score" validate:"gte=0,lte=50"`
	MaxPriceAdjustPct float64 `yaml:"max_price_adjust_pct"`
	ConfidenceShift   float64 `yaml:"confidence_shift"`
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		BullishScore:      60,
		BearishScore:      40,
		MaxPriceAdjustPct: 0.5,
		ConfidenceShift:   5,
	}
}

// Analysis is a 0-100 fundamental score with its directional bias
type Analysis struct {
	Symbol  string      `json:"symbol"`
	Score   float64     `json:"score"`
	Bias    model.Trend `json:"bias"`
	Signals []string    `json:"signals,omitempty"`
}

// Analyzer scores fundamentals
type Analyzer struct {
	config Config
}

// NewAnalyzer creates a new fundamental analyzer
func NewAnalyzer(cfg Config) *Analyzer {
	return &Analyzer{config: cfg}
}

// Analyze scores f starting from a neutral 50. It returns nil for nil input.
func (a *Analyzer) Analyze(f *model.FundamentalData) *Analysis {
	if f == nil {
		return nil
	}
	res := &Analysis{Symbol: f.Symbol, Score: 50}
	add := func(points float64, format string, args ...any) {
		res.Score += points
		res.Signals = append(res.Signals, fmt.Sprintf(format, args...))
	}

	switch pe := f.PERatio; {
	case pe < 0:
		add(-10, "negative earnings (P/E %.1f)", pe)
	case pe > 0 && pe < 15:
		add(10, "value P/E %.1f", pe)
	case pe >= 15 && pe <= 25:
		add(5, "moderate P/E %.1f", pe)
	case pe > 40:
		add(-10, "rich P/E %.1f", pe)
	}

	switch peg := f.PEGRatio; {
	case peg > 0 && peg < 1:
		add(10, "PEG %.2f below 1", peg)
	case peg > 2:
		add(-5, "PEG %.2f above 2", peg)
	}

	switch g := f.EarningsGrowth; {
	case g > 0.20:
		add(10, "earnings growth %.0f%%", g*100)
	case g > 0.05:
		add(5, "earnings growth %.0f%%", g*100)
	case g < 0:
		add(-10, "earnings shrinking %.0f%%", g*100)
	}

	switch g := f.RevenueGrowth; {
	case g > 0.10:
		add(5, "revenue growth %.0f%%", g*100)
	case g < 0:
		add(-5, "revenue shrinking %.0f%%", g*100)
	}

	switch m := f.ProfitMargin; {
	case m > 0.20:
		add(5, "profit margin %.0f%%", m*100)
	case m < 0:
		add(-5, "unprofitable (margin %.0f%%)", m*100)
	}

	switch de := f.DebtToEquity; {
	case de > 0 && de < 0.5:
		add(5, "low leverage (D/E %.2f)", de)
	case de > 2:
		add(-10, "high leverage (D/E %.2f)", de)
	}

	if roe := f.ReturnOnEquity; roe > 0.15 {
		add(5, "ROE %.0f%%", roe*100)
	} else if roe < 0 {
		add(-5, "negative ROE %.0f%%", roe*100)
	}

	res.Score = math.Max(0, math.Min(res.Score, 100))
	switch {
	case res.Score > a.config.BullishScore:
		res.Bias = model.Bullish
	case res.Score < a.config.BearishScore:
		res.Bias = model.Bearish
	default:
		res.Bias = model.Neutral
	}
	return res
}

// Fold shifts predicted by up to MaxPriceAdjustPct in proportion to the
// score's distance from neutral and nudges confidence toward agreement.
func (a *Analyzer) Fold(an *Analysis, current, predicted, confidence float64) (float64, float64) {
	if an == nil {
		return predicted, confidence
	}
	tilt := (an.Score - 50) / 50
	predicted *= 1 + tilt*a.config.MaxPriceAdjustPct/100

	direction := model.Neutral
	switch {
	case predicted > current:
		direction = model.Bullish
	case predicted < current:
		direction = model.Bearish
	}
	switch {
	case an.Bias == model.Neutral || direction == model.Neutral:
	case an.Bias == direction:
		confidence += a.config.ConfidenceShift
	default:
		confidence -= a.config.ConfidenceShift
	}
	return predicted, math.Max(0, math.Min(confidence, 100))
}
