package regime

import "fmt"

// Regime represents the current market regime classification
type Regime uint8

const (
	RangeBound Regime = iota
	TrendingUp
	TrendingDown
	HighVolatility
	LowVolatility
	BreakoutUp
	Breakdown
)

// All lists every regime in declaration order
var All = []Regime{RangeBound, TrendingUp, TrendingDown, HighVolatility, LowVolatility, BreakoutUp, Breakdown}

func (r Regime) String() string {
	switch r {
	case RangeBound:
		return "range_bound"
	case TrendingUp:
		return "trending_up"
	case TrendingDown:
		return "trending_down"
	case HighVolatility:
		return "high_volatility"
	case LowVolatility:
		return "low_volatility"
	case BreakoutUp:
		return "breakout_up"
	case Breakdown:
		return "breakdown"
	default:
		return fmt.Sprintf("regime(%d)", uint8(r))
	}
}

// MarshalText implements encoding.TextMarshaler
func (r Regime) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (r *Regime) UnmarshalText(b []byte) error {
	for _, candidate := range All {
		if candidate.String() == string(b) {
			*r = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown regime %q", b)
}

// Strategy is the posture recommended for a regime
type Strategy uint8

const (
	MeanReversion Strategy = iota
	Momentum
	StayCash
	BreakoutFollow
)

func (s Strategy) String() string {
	switch s {
	case MeanReversion:
		return "mean_reversion"
	case Momentum:
		return "momentum"
	case StayCash:
		return "stay_cash"
	case BreakoutFollow:
		return "breakout_follow"
	default:
		return fmt.Sprintf("strategy(%d)", uint8(s))
	}
}

// MarshalText implements encoding.TextMarshaler
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Strategy) UnmarshalText(b []byte) error {
	for _, candidate := range []Strategy{MeanReversion, Momentum, StayCash, BreakoutFollow} {
		if candidate.String() == string(b) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown strategy %q", b)
}

// StrategyFor maps each regime to its recommended posture
func StrategyFor(r Regime) Strategy {
	switch r {
	case TrendingUp:
		return Momentum
	case BreakoutUp, LowVolatility:
		return BreakoutFollow
	case TrendingDown, HighVolatility, Breakdown:
		return StayCash
	default:
		return MeanReversion
	}
}

// Metrics are the measurements the cascade was decided on
type Metrics struct {
	ATRPercentile       float64 `json:"atr_percentile"`
	BandWidthPercentile float64 `json:"band_width_percentile"`
	ADX                 float64 `json:"adx"`
	PriceChange5        float64 `json:"price_change5"`
	VolumeRatio         float64 `json:"volume_ratio"`
}

// Analysis is the result of classifying a bar series
type Analysis struct {
	Regime         Regime   `json:"regime"`
	Confidence     float64  `json:"confidence"` // 0-100
	Duration       int      `json:"duration"`   // sessions
	Strategy       Strategy `json:"strategy"`
	SizeMultiplier float64  `json:"size_multiplier"`
	Signals        []string `json:"signals"`
	Metrics        Metrics  `json:"metrics"`
}
