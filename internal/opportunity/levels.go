package opportunity

import (
	"fmt"
	"math"

	"stockscope/internal/indicator"
	"stockscope/internal/levels"
)

// SupportBounceDetector buys a rejection wick at clustered support.
// Buy setup when:
// 1. Close within 2% above the nearest support
// 2. Lower shadow > 1.5x body and longer than the upper shadow
type SupportBounceDetector struct {
	config SupportBounceConfig
}

// Type returns the opportunity type
func (d *SupportBounceDetector) Type() Type { return SupportBounce }

// Description returns the detector description
func (d *SupportBounceDetector) Description() string {
	return "Support Bounce - long lower wick rejecting clustered support"
}

// Detect looks for a support bounce on the last bar
func (d *SupportBounceDetector) Detect(in Input) *Setup {
	support := in.Levels.NearestSupport
	if support == nil {
		return nil
	}
	today := in.Last()
	distance := support.DistancePct(today.Close)
	if distance < 0 || distance > d.config.ProximityPct {
		return nil
	}

	lower, upper, body := today.LowerShadow(), today.UpperShadow(), today.Body()
	if lower <= body*d.config.WickRatio || lower <= upper {
		return nil
	}

	entry := today.Close
	target := entry + d.config.TargetATR*in.Indicators.ATR
	if r := in.Levels.NearestResistance; r != nil && r.Price > entry {
		target = r.Price
	}

	edge := Weak
	switch {
	case support.Strength >= 80:
		edge = Strong
	case support.Strength >= 60:
		edge = Medium
	}

	conf := 45 + support.Strength*0.3
	if body > 0 {
		conf += math.Min(lower/body-d.config.WickRatio, 5)
	} else {
		conf += 5
	}
	z, _, _ := priceZ(in.Bars, indicator.PeriodBollinger)

	return &Setup{
		Type:        SupportBounce,
		Target:      target,
		Confidence:  math.Min(conf, 85),
		Edge:        edge,
		ZScore:      z,
		HoldingDays: d.config.HoldingDays,
		Reason: fmt.Sprintf("Bounce off $%.2f support (%d touches, strength %.0f), %.1f%% above",
			support.Price, support.Touches, support.Strength, distance),
		Details: map[string]float64{
			"support":      support.Price,
			"strength":     support.Strength,
			"distance_pct": distance,
			"lower_shadow": lower,
			"body":         body,
		},
	}
}

// BreakoutDetector buys a fresh, volume-confirmed cross of a clustered level.
// Buy setup when:
// 1. Close within 1.5% above a level
// 2. A close below that level within the prior 3 sessions
// 3. Volume ratio > 1.3
type BreakoutDetector struct {
	config BreakoutConfig
}

// Type returns the opportunity type
func (d *BreakoutDetector) Type() Type { return ResistanceBreakout }

// Description returns the detector description
func (d *BreakoutDetector) Description() string {
	return "Resistance Breakout - fresh cross of a clustered level on volume"
}

// Detect looks for a breakout on the last bar
func (d *BreakoutDetector) Detect(in Input) *Setup {
	set := in.Indicators
	if set.VolumeRatio <= d.config.MinVolumeRatio {
		return nil
	}
	n := len(in.Bars)
	price := in.Bars[n-1].Close

	var crossed *levels.Level
	for i := range in.Levels.Levels {
		l := &in.Levels.Levels[i]
		above := l.DistancePct(price)
		if above < 0 || above > d.config.ProximityPct {
			continue
		}
		for k := 1; k <= d.config.CrossSessions && n-1-k >= 0; k++ {
			if in.Bars[n-1-k].Close < l.Price {
				crossed = l
				break
			}
		}
		if crossed != nil {
			break
		}
	}
	if crossed == nil {
		return nil
	}

	edge := Weak
	switch {
	case set.VolumeRatio >= 2 && crossed.Strength >= 60:
		edge = Strong
	case set.VolumeRatio >= 1.5:
		edge = Medium
	}

	conf := 50 + math.Min(crossed.Strength*0.2, 15) + math.Min((set.VolumeRatio-d.config.MinVolumeRatio)*20, 15)
	z, _, _ := priceZ(in.Bars, indicator.PeriodBollinger)

	return &Setup{
		Type:        ResistanceBreakout,
		Target:      price + d.config.TargetATR*set.ATR,
		Confidence:  math.Min(conf, 85),
		Edge:        edge,
		ZScore:      z,
		HoldingDays: d.config.HoldingDays,
		Reason:      fmt.Sprintf("Breakout above $%.2f (%d touches) on %.1fx volume", crossed.Price, crossed.Touches, set.VolumeRatio),
		Details: map[string]float64{
			"level":        crossed.Price,
			"strength":     crossed.Strength,
			"breakout_pct": crossed.DistancePct(price),
			"volume_ratio": set.VolumeRatio,
		},
	}
}
