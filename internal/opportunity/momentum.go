package opportunity

import (
	"fmt"
	"math"

	"stockscope/internal/indicator"
	"stockscope/internal/regime"
	"stockscope/pkg/model"
)

// MomentumDetector finds volume-confirmed streaks.
// Continuation: 2+ up sessions with volume ratio >= 1.2.
// Reversal: 3+ down sessions on capitulation volume with RSI < 35.
type MomentumDetector struct {
	config MomentumConfig
}

// Type returns the opportunity type
func (d *MomentumDetector) Type() Type { return Momentum }

// Description returns the detector description
func (d *MomentumDetector) Description() string {
	return "Momentum - volume-confirmed continuation or capitulation reversal"
}

// Detect looks for a momentum setup on the last bar
func (d *MomentumDetector) Detect(in Input) *Setup {
	set := in.Indicators
	up, down := streaks(in.Bars)

	continuation := up >= d.config.MinStreak && set.VolumeRatio >= d.config.MinVolumeRatio
	reversal := down >= d.config.ReversalStreak && set.VolumeRatio >= d.config.CapitulationVolume && set.RSI < d.config.ReversalRSI
	if !continuation && !reversal {
		return nil
	}

	details := map[string]float64{
		"up_streak":    float64(up),
		"down_streak":  float64(down),
		"volume_ratio": set.VolumeRatio,
		"adx":          set.ADX,
		"rsi":          set.RSI,
	}

	var points float64
	streak := max(up, down)
	switch {
	case streak >= 3:
		points += 30
	case streak >= 2:
		points += 20
	}
	switch vr := set.VolumeRatio; {
	case vr >= 2:
		points += 30
	case vr >= 1.5:
		points += 25
	case vr >= 1.2:
		points += 15
	}
	trendUp, _ := set.TrendAligned()
	if continuation && trendUp {
		points += 20
	}
	if reversal && set.RSI < 25 {
		points += 20
	}
	if set.ADX > 25 {
		points += 10
	}
	if s := in.Regime.Strategy; s == regime.Momentum || s == regime.BreakoutFollow || (reversal && s == regime.MeanReversion) {
		points += 10
	}
	details["points"] = points

	edge := Weak
	switch {
	case points >= 70:
		edge = Strong
	case points >= 50:
		edge = Medium
	}

	z, _, _ := priceZ(in.Bars, indicator.PeriodBollinger)
	entry := set.Price

	reason := fmt.Sprintf("%d-session up streak on %.1fx volume", up, set.VolumeRatio)
	if !continuation {
		reason = fmt.Sprintf("capitulation after %d down sessions: %.1fx volume, RSI %.0f", down, set.VolumeRatio, set.RSI)
	}

	return &Setup{
		Type:        Momentum,
		Target:      entry + d.config.TargetATR*set.ATR,
		Confidence:  math.Min(40+points*0.45, 90),
		Edge:        edge,
		ZScore:      z,
		HoldingDays: d.config.HoldingDays,
		Reason:      reason,
		Details:     details,
	}
}

// streaks counts consecutive rising and falling closes ending at the last bar
func streaks(bars []model.Bar) (up, down int) {
	for i := len(bars) - 1; i > 0 && bars[i].Close > bars[i-1].Close; i-- {
		up++
	}
	for i := len(bars) - 1; i > 0 && bars[i].Close < bars[i-1].Close; i-- {
		down++
	}
	return up, down
}
