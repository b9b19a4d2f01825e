package opportunity

import (
	"fmt"
	"math"

	"stockscope/internal/indicator"
	"stockscope/pkg/model"
)

// VolumeAnomalyDetector buys an up-day volume spike more than 3 standard
// deviations above the prior 30-session baseline. Over a perfectly flat
// baseline any higher volume counts as a FlatBaselineZ spike.
type VolumeAnomalyDetector struct {
	config VolumeAnomalyConfig
}

// Type returns the opportunity type
func (d *VolumeAnomalyDetector) Type() Type { return VolumeAnomaly }

// Description returns the detector description
func (d *VolumeAnomalyDetector) Description() string {
	return "Volume Anomaly - accumulation spike on an up day"
}

// Detect looks for a volume spike on the last bar
func (d *VolumeAnomalyDetector) Detect(in Input) *Setup {
	n := len(in.Bars)
	if n < d.config.Baseline+1 {
		return nil
	}
	today, prev := in.Bars[n-1], in.Bars[n-2]
	if today.Close <= prev.Close {
		return nil
	}

	baseline := model.Volumes(in.Bars[n-1-d.config.Baseline : n-1])
	mean := indicator.Mean(baseline)
	std := indicator.StdDev(baseline)
	z := indicator.ZScore(float64(today.Volume), mean, std)
	// a constant baseline has no spread, so any rise above it scores the
	// configured flat-baseline z instead of 0
	if std < 1e-12 && float64(today.Volume) > mean {
		z = d.config.FlatBaselineZ
	}
	if z <= d.config.MinZScore {
		return nil
	}

	edge := Weak
	switch {
	case z >= 5:
		edge = Strong
	case z >= 4:
		edge = Medium
	}

	move := (today.Close - prev.Close) / prev.Close * 100
	return &Setup{
		Type:        VolumeAnomaly,
		Target:      today.Close + d.config.TargetATR*in.Indicators.ATR,
		Confidence:  50 + math.Min((z-d.config.MinZScore)*5, 25),
		Edge:        edge,
		ZScore:      z,
		HoldingDays: d.config.HoldingDays,
		Reason:      fmt.Sprintf("Volume spike z=%.1f (%.0f vs %.0f avg) on %+.1f%% day", z, float64(today.Volume), mean, move),
		Details: map[string]float64{
			"volume":      float64(today.Volume),
			"baseline":    mean,
			"baseline_sd": std,
			"move_pct":    move,
		},
	}
}
