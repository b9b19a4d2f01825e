package opportunity

import (
	"time"

	"stockscope/internal/indicator"
	"stockscope/internal/levels"
	"stockscope/internal/regime"
	"stockscope/pkg/model"
)

// Input is everything a detector may look at for one symbol
type Input struct {
	Symbol       string
	Bars         []model.Bar
	Indicators   indicator.Set
	Levels       levels.Analysis
	Regime       regime.Analysis
	Fundamentals *model.FundamentalData // nil when unavailable
	AsOf         time.Time
}

// Last returns the most recent bar
func (in Input) Last() model.Bar {
	return in.Bars[len(in.Bars)-1]
}

// Setup is a raw detector hit before sizing and filtering
type Setup struct {
	Type        Type
	Catalyst    Catalyst
	Target      float64
	Confidence  float64
	Edge        Edge
	ZScore      float64
	HoldingDays int
	Reason      string
	Details     map[string]float64
}

// Detector recognises one pattern. Detect returns nil when the pattern is absent.
type Detector interface {
	Type() Type
	Description() string
	Detect(in Input) *Setup
}

// DefaultDetectors returns one detector per opportunity type
func DefaultDetectors(cfg Config) []Detector {
	return []Detector{
		&MomentumDetector{config: cfg.Momentum},
		&MeanReversionDetector{config: cfg.MeanReversion},
		&SupportBounceDetector{config: cfg.SupportBounce},
		&BreakoutDetector{config: cfg.Breakout},
		&VolumeAnomalyDetector{config: cfg.VolumeAnomaly},
		&EventDriftDetector{config: cfg.EventDrift},
	}
}

// priceZ is the z-score of the last close against the trailing lookback closes
func priceZ(bars []model.Bar, lookback int) (z, mean, std float64) {
	closes := model.Last(model.Closes(bars), lookback)
	mean = indicator.Mean(closes)
	std = indicator.StdDev(closes)
	return indicator.ZScore(closes[len(closes)-1], mean, std), mean, std
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
