package opportunity

import (
	"fmt"
	"time"

	"stockscope/internal/regime"
)

// Type identifies the pattern behind an opportunity
type Type uint8

const (
	Momentum Type = iota
	MeanReversion
	SupportBounce
	ResistanceBreakout
	VolumeAnomaly
	EventDrift
)

// Types lists every opportunity type in declaration order
var Types = []Type{Momentum, MeanReversion, SupportBounce, ResistanceBreakout, VolumeAnomaly, EventDrift}

func (t Type) String() string {
	switch t {
	case Momentum:
		return "momentum"
	case MeanReversion:
		return "mean_reversion"
	case SupportBounce:
		return "support_bounce"
	case ResistanceBreakout:
		return "resistance_breakout"
	case VolumeAnomaly:
		return "volume_anomaly"
	case EventDrift:
		return "event_drift"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// MarshalText implements encoding.TextMarshaler
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *Type) UnmarshalText(b []byte) error {
	for _, candidate := range Types {
		if candidate.String() == string(b) {
			*t = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown opportunity type %q", b)
}

// Edge is the statistical strength tier of a setup
type Edge uint8

const (
	Weak Edge = iota
	Medium
	Strong
)

func (e Edge) String() string {
	switch e {
	case Weak:
		return "weak"
	case Medium:
		return "medium"
	case Strong:
		return "strong"
	default:
		return fmt.Sprintf("edge(%d)", uint8(e))
	}
}

// MarshalText implements encoding.TextMarshaler
func (e Edge) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (e *Edge) UnmarshalText(b []byte) error {
	switch string(b) {
	case "weak":
		*e = Weak
	case "medium":
		*e = Medium
	case "strong":
		*e = Strong
	default:
		return fmt.Errorf("unknown edge strength %q", b)
	}
	return nil
}

// Catalyst names the corporate event behind an event_drift setup
type Catalyst uint8

const (
	NoCatalyst Catalyst = iota
	EarningsCatalyst
	DividendCatalyst
)

func (c Catalyst) String() string {
	switch c {
	case NoCatalyst:
		return ""
	case EarningsCatalyst:
		return "earnings"
	case DividendCatalyst:
		return "dividend"
	default:
		return fmt.Sprintf("catalyst(%d)", uint8(c))
	}
}

// MarshalText implements encoding.TextMarshaler
func (c Catalyst) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (c *Catalyst) UnmarshalText(b []byte) error {
	switch string(b) {
	case "":
		*c = NoCatalyst
	case "earnings":
		*c = EarningsCatalyst
	case "dividend":
		*c = DividendCatalyst
	default:
		return fmt.Errorf("unknown catalyst %q", b)
	}
	return nil
}

// Opportunity is a screened long setup with its trade plan
type Opportunity struct {
	Symbol   string   `json:"symbol"`
	Type     Type     `json:"type"`
	Catalyst Catalyst `json:"catalyst,omitempty"`
	Setup    string   `json:"setup"` // detector description
	Reason   string   `json:"reason"`

	Edge       Edge    `json:"edge"`
	ZScore     float64 `json:"z_score"`
	PValue     float64 `json:"p_value"`
	Confidence float64 `json:"confidence"`

	ExpectedReturn float64 `json:"expected_return"` // percent move to target
	HoldingDays    int     `json:"holding_days"`
	RiskReward     float64 `json:"risk_reward"`
	Entry          float64 `json:"entry"`
	Stop           float64 `json:"stop"`
	Target         float64 `json:"target"`
	ATR            float64 `json:"atr"`

	BreakevenWinRate float64 `json:"breakeven_win_rate"` // percent at which RiskReward has zero edge

	KellySize float64         `json:"kelly_size"` // percent of portfolio
	Score     float64         `json:"score"`
	Regime    regime.Regime   `json:"regime"`
	Strategy  regime.Strategy `json:"strategy"`

	PassesFilters bool               `json:"passes_filters"`
	FilterReasons []string           `json:"filter_reasons,omitempty"`
	Details       map[string]float64 `json:"details,omitempty"`
}

// Result is the outcome of a scan
type Result struct {
	ScanID          string        `json:"scan_id"`
	ScanDate        time.Time     `json:"scan_date"`
	Opportunities   []Opportunity `json:"opportunities"`
	Candidates      []Opportunity `json:"candidates"`
	SymbolsScanned  int           `json:"symbols_scanned"`
	SymbolsFiltered int           `json:"symbols_filtered"`
	Summary         []string      `json:"summary"`
}
