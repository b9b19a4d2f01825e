// Package events adjusts forecasts for scheduled corporate events and for
// co-movement with a market index.
package events

import (
	"fmt"
	"math"
	"time"

	"stockscope/pkg/model"
)

// Kind identifies a scheduled corporate event
type Kind uint8

const (
	Earnings Kind = iota
	Dividend
)

func (k Kind) String() string {
	switch k {
	case Earnings:
		return "earnings"
	case Dividend:
		return "dividend"
	default:
		return fmt.Sprintf("event(%d)", uint8(k))
	}
}

// MarshalText implements encoding.TextMarshaler
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "earnings":
		*k = Earnings
	case "dividend":
		*k = Dividend
	default:
		return fmt.Errorf("unknown event kind %q", b)
	}
	return nil
}

// Event is a dated corporate event relative to an as-of date
type Event struct {
	Kind     Kind      `json:"kind"`
	Date     time.Time `json:"date"`
	DaysAway int       `json:"days_away"` // negative when in the past
}

// Config holds the event windows and adjustments
type Config struct {
	PreEarningsDays     int     `yaml:"pre_earnings_days" validate:"gte=0"`
	PreEarningsCap      float64 `yaml:"pre_earnings_cap" validate:"gte=0,lte=100"`
	EarningsImminentCap float64 `yaml:"earnings_imminent_cap" validate:"gte=0,lte=100"`
	PostEarningsDays    int     `yaml:"post_earnings_days" validate:"gte=0"`
	SurpriseScale       float64 `yaml:"surprise_scale"`
	MaxDriftPct         float64 `yaml:"max_drift_pct"`
	DividendRunupDays   int     `yaml:"dividend_runup_days" validate:"gte=0"`
	DividendRunupPct    float64 `yaml:"dividend_runup_pct"`
	PaymentsPerYear     float64 `yaml:"payments_per_year" validate:"gt=0"`
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		PreEarningsDays:     5,
		PreEarningsCap:      60,
		EarningsImminentCap: 50,
		PostEarningsDays:    10,
		SurpriseScale:       0.05,
		MaxDriftPct:         1,
		DividendRunupDays:   10,
		DividendRunupPct:    0.2,
		PaymentsPerYear:     4,
	}
}

// Impact is the combined effect of nearby events on a forecast
type Impact struct {
	PriceAdjustmentPct float64  `json:"price_adjustment_pct"`
	ConfidenceCap      float64  `json:"confidence_cap"` // 100 when uncapped
	Events             []Event  `json:"events,omitempty"`
	Signals            []string `json:"signals,omitempty"`
}

// Apply shifts price by the adjustment and caps confidence
func (i Impact) Apply(price, confidence float64) (float64, float64) {
	return price * (1 + i.PriceAdjustmentPct/100), math.Min(confidence, i.ConfidenceCap)
}

// Analyzer measures event proximity
type Analyzer struct {
	config Config
}

// NewAnalyzer creates a new event analyzer
func NewAnalyzer(cfg Config) *Analyzer {
	return &Analyzer{config: cfg}
}

// Analyze returns the impact of the events in f on a forecast made at asOf.
// Missing fundamentals yield a neutral impact.
func (a *Analyzer) Analyze(f *model.FundamentalData, price float64, asOf time.Time) Impact {
	impact := Impact{ConfidenceCap: 100}
	if f == nil || price <= 0 {
		return impact
	}

	if f.NextEarningsDate != nil {
		days := DaysBetween(asOf, *f.NextEarningsDate)
		if days >= 0 && days <= a.config.PreEarningsDays {
			impact.Events = append(impact.Events, Event{Kind: Earnings, Date: *f.NextEarningsDate, DaysAway: days})
			limit := a.config.PreEarningsCap
			if days <= 1 {
				limit = a.config.EarningsImminentCap
			}
			impact.ConfidenceCap = math.Min(impact.ConfidenceCap, limit)
			impact.Signals = append(impact.Signals, fmt.Sprintf("earnings in %d days: confidence capped at %.0f", days, limit))
		}
	}

	if f.LastEarningsDate != nil && f.LastEarningsSurprise != 0 {
		days := -DaysBetween(asOf, *f.LastEarningsDate)
		if days >= 1 && days <= a.config.PostEarningsDays {
			drift := a.PostEarningsDrift(f.LastEarningsSurprise)
			impact.Events = append(impact.Events, Event{Kind: Earnings, Date: *f.LastEarningsDate, DaysAway: -days})
			impact.PriceAdjustmentPct += drift
			impact.Signals = append(impact.Signals, fmt.Sprintf("post-earnings drift %+.2f%% after %+.1f%% surprise", drift, f.LastEarningsSurprise))
		}
	}

	if f.ExDividendDate != nil {
		days := DaysBetween(asOf, *f.ExDividendDate)
		switch {
		case days == 0:
			drop := a.dividendPerShare(f, price) / price * 100
			if drop > 0 {
				impact.Events = append(impact.Events, Event{Kind: Dividend, Date: *f.ExDividendDate})
				impact.PriceAdjustmentPct -= drop
				impact.Signals = append(impact.Signals, fmt.Sprintf("ex-dividend today: price adjusts -%.2f%%", drop))
			}
		case days >= 1 && days <= a.config.DividendRunupDays:
			impact.Events = append(impact.Events, Event{Kind: Dividend, Date: *f.ExDividendDate, DaysAway: days})
			impact.PriceAdjustmentPct += a.config.DividendRunupPct
			impact.Signals = append(impact.Signals, fmt.Sprintf("ex-dividend in %d days: pre-dividend accumulation", days))
		}
	}

	return impact
}

// PostEarningsDrift converts an earnings surprise (percent) into an expected drift (percent)
func (a *Analyzer) PostEarningsDrift(surprise float64) float64 {
	drift := math.Min(math.Abs(surprise)*a.config.SurpriseScale, a.config.MaxDriftPct)
	if surprise < 0 {
		return -drift
	}
	return drift
}

func (a *Analyzer) dividendPerShare(f *model.FundamentalData, price float64) float64 {
	if f.DividendAmount > 0 {
		return f.DividendAmount
	}
	return f.DividendYield * price / a.config.PaymentsPerYear
}

// DaysBetween returns whole calendar days from one date to another
func DaysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(math.Round(t.Sub(f).Hours() / 24))
}
