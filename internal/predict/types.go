package predict

import (
	"fmt"
	"time"

	"stockscope/internal/events"
	"stockscope/internal/fundamental"
	"stockscope/internal/indicator"
	"stockscope/internal/levels"
	"stockscope/internal/regime"
	"stockscope/pkg/model"
)

// Recommendation is a five-point action scale
type Recommendation uint8

const (
	Hold Recommendation = iota
	StrongSell
	Sell
	Buy
	StrongBuy
)

func (r Recommendation) String() string {
	switch r {
	case Hold:
		return "hold"
	case StrongSell:
		return "strong_sell"
	case Sell:
		return "sell"
	case Buy:
		return "buy"
	case StrongBuy:
		return "strong_buy"
	default:
		return fmt.Sprintf("recommendation(%d)", uint8(r))
	}
}

// MarshalText implements encoding.TextMarshaler
func (r Recommendation) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (r *Recommendation) UnmarshalText(b []byte) error {
	for _, candidate := range []Recommendation{Hold, StrongSell, Sell, Buy, StrongBuy} {
		if candidate.String() == string(b) {
			*r = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown recommendation %q", b)
}

// Weights is the blend of the four base estimators
type Weights struct {
	Regression float64 `yaml:"regression" json:"regression"`
	EMA        float64 `yaml:"ema" json:"ema"`
	SMA        float64 `yaml:"sma" json:"sma"`
	VWAP       float64 `yaml:"vwap" json:"vwap"`
}

// Sum returns the total weight
func (w Weights) Sum() float64 {
	return w.Regression + w.EMA + w.SMA + w.VWAP
}

// Estimates are the next-session prices from each base estimator
type Estimates struct {
	Regression float64 `json:"regression"`
	EMA        float64 `json:"ema"`
	SMA        float64 `json:"sma"`
	VWAP       float64 `json:"vwap"`
}

// Blend returns the weighted price
func (e Estimates) Blend(w Weights) float64 {
	return e.Regression*w.Regression + e.EMA*w.EMA + e.SMA*w.SMA + e.VWAP*w.VWAP
}

// Inputs are the optional collaborators of a forecast
type Inputs struct {
	Fundamentals        *model.FundamentalData
	FundamentalAnalysis *fundamental.Analysis
	IndexBars           []model.Bar
	Sector              string
	AsOf                time.Time // defaults to the last bar date
}

// Prediction is a next-session forecast
type Prediction struct {
	Symbol         string         `json:"symbol"`
	Sector         string         `json:"sector,omitempty"`
	AsOf           time.Time      `json:"as_of"`
	CurrentPrice   float64        `json:"current_price"`
	PredictedPrice float64        `json:"predicted_price"`
	Change         float64        `json:"change"`
	ChangePct      float64        `json:"change_pct"`
	Confidence     float64        `json:"confidence"`
	Trend          model.Trend    `json:"trend"`
	TrendScore     int            `json:"trend_score"`
	Recommendation Recommendation `json:"recommendation"`

	Weights     Weights               `json:"weights"`
	Estimates   Estimates             `json:"estimates"`
	Indicators  indicator.Set         `json:"indicators"`
	Regime      regime.Analysis       `json:"regime"`
	Support     *levels.Level         `json:"support,omitempty"`
	Resistance  *levels.Level         `json:"resistance,omitempty"`
	Pivots      levels.Pivots         `json:"pivots"`
	Events      events.Impact         `json:"events"`
	Correlation *events.Correlation   `json:"correlation,omitempty"`
	Fundamental *fundamental.Analysis `json:"fundamental,omitempty"`
	Signals     []string              `json:"signals"`
}
