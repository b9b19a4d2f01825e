package opportunity

import (
	"fmt"
	"math"
)

// MeanReversionDetector buys statistically stretched, oversold closes.
// Buy setup when:
// 1. 20-session z-score <= -2
// 2. RSI14 < 30
// Target is the 20-session mean.
type MeanReversionDetector struct {
	config MeanReversionConfig
}

// Type returns the opportunity type
func (d *MeanReversionDetector) Type() Type { return MeanReversion }

// Description returns the detector description
func (d *MeanReversionDetector) Description() string {
	return "Mean Reversion - oversold close stretched below its 20-session mean"
}

// Detect looks for an oversold setup on the last bar
func (d *MeanReversionDetector) Detect(in Input) *Setup {
	if len(in.Bars) < d.config.Lookback {
		return nil
	}
	z, mean, std := priceZ(in.Bars, d.config.Lookback)
	rsi := in.Indicators.RSI
	if z > d.config.MaxZScore || rsi >= d.config.MaxRSI {
		return nil
	}

	edge := Weak
	switch abs := math.Abs(z); {
	case abs >= 2.5:
		edge = Strong
	case abs >= 2:
		edge = Medium
	}

	conf := 50 + math.Min((math.Abs(z)-2)*20, 20) + (d.config.MaxRSI-rsi)*0.5
	return &Setup{
		Type:        MeanReversion,
		Target:      mean,
		Confidence:  math.Min(conf, 85),
		Edge:        edge,
		ZScore:      z,
		HoldingDays: d.config.HoldingDays,
		Reason:      fmt.Sprintf("Oversold stretch: z=%.2f, RSI=%.0f, mean $%.2f", z, rsi, mean),
		Details: map[string]float64{
			"z_score": z,
			"mean":    mean,
			"std":     std,
			"rsi":     rsi,
		},
	}
}
