package model

import "fmt"

// Trend is a directional label shared by forecasts, index trends and fundamental bias
type Trend uint8

const (
	Neutral Trend = iota
	Bullish
	Bearish
)

func (t Trend) String() string {
	switch t {
	case Neutral:
		return "neutral"
	case Bullish:
		return "bullish"
	case Bearish:
		return "bearish"
	default:
		return fmt.Sprintf("trend(%d)", uint8(t))
	}
}

// MarshalText implements encoding.TextMarshaler
func (t Trend) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *Trend) UnmarshalText(b []byte) error {
	switch string(b) {
	case "neutral":
		*t = Neutral
	case "bullish":
		*t = Bullish
	case "bearish":
		*t = Bearish
	default:
		return fmt.Errorf("unknown trend %q", b)
	}
	return nil
}

// Sign returns +1 for bullish, -1 for bearish and 0 otherwise
func (t Trend) Sign() float64 {
	switch t {
	case Bullish:
		return 1
	case Bearish:
		return -1
	default:
		return 0
	}
}
