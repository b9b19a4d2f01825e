package opportunity

import (
	"fmt"
	"math"

	"stockscope/internal/regime"
)

// Favor is how well an opportunity type suits the regime's strategy
type Favor uint8

const (
	Unfavorable Favor = iota
	Neutral
	Favorable
)

// Favorability rates t under strategy s. Stay-cash regimes favour nothing.
func Favorability(t Type, s regime.Strategy) Favor {
	switch s {
	case regime.StayCash:
		return Unfavorable
	case regime.Momentum, regime.BreakoutFollow:
		switch t {
		case Momentum, ResistanceBreakout, VolumeAnomaly:
			return Favorable
		case MeanReversion:
			return Unfavorable
		}
	case regime.MeanReversion:
		switch t {
		case MeanReversion, SupportBounce:
			return Favorable
		case Momentum, ResistanceBreakout:
			return Unfavorable
		}
	}
	return Neutral
}

// applyFilters evaluates every filter and records each failure
func (s *Scanner) applyFilters(o *Opportunity) {
	f := s.config.Filters
	o.FilterReasons = o.FilterReasons[:0]

	if o.Confidence < f.MinConfidence {
		o.FilterReasons = append(o.FilterReasons, fmt.Sprintf("confidence %.0f < %.0f", o.Confidence, f.MinConfidence))
	}
	if o.RiskReward < f.MinRiskReward {
		o.FilterReasons = append(o.FilterReasons, fmt.Sprintf("risk/reward %.2f < %.2f", o.RiskReward, f.MinRiskReward))
	}
	if o.ExpectedReturn < f.MinExpectedReturn {
		o.FilterReasons = append(o.FilterReasons, fmt.Sprintf("expected return %.2f%% < %.2f%%", o.ExpectedReturn, f.MinExpectedReturn))
	}
	if o.KellySize < f.MinKellySize {
		o.FilterReasons = append(o.FilterReasons, fmt.Sprintf("kelly size %.1f%% < %.1f%%", o.KellySize, f.MinKellySize))
	}
	o.PassesFilters = len(o.FilterReasons) == 0
}

// score combines edge, confidence, risk/reward, expected return and regime
// favourability into 0-100
func score(o Opportunity) float64 {
	var total float64

	switch o.Edge {
	case Strong:
		total += 20
	case Medium:
		total += 12
	default:
		total += 5
	}

	total += clamp((o.Confidence-50)/50*30, 0, 30)
	total += math.Min(math.Max(o.RiskReward, 0)/3, 1) * 20
	total += math.Min(math.Max(o.ExpectedReturn, 0)/5, 1) * 15

	switch Favorability(o.Type, o.Strategy) {
	case Favorable:
		total += 15
	case Neutral:
		total += 7.5
	}
	return clamp(total, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
