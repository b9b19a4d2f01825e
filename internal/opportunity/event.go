package opportunity

import (
	"fmt"
	"math"

	"stockscope/internal/events"
	"stockscope/internal/indicator"
)

// EventDriftDetector trades scheduled corporate events. It needs
// fundamentals and is skipped without them.
// Post-earnings drift: positive surprise reported within the last 10 days.
// Pre-dividend accumulation: ex-dividend date 3-15 days ahead.
type EventDriftDetector struct {
	config EventDriftConfig
}

// Type returns the opportunity type
func (d *EventDriftDetector) Type() Type { return EventDrift }

// Description returns the detector description
func (d *EventDriftDetector) Description() string {
	return "Event Drift - post-earnings drift or pre-dividend accumulation"
}

// Detect looks for an event catalyst as of in.AsOf
func (d *EventDriftDetector) Detect(in Input) *Setup {
	f := in.Fundamentals
	if f == nil {
		return nil
	}
	asOf := in.AsOf
	if asOf.IsZero() {
		asOf = in.Last().Date
	}
	entry := in.Indicators.Price
	z, _, _ := priceZ(in.Bars, indicator.PeriodBollinger)

	if f.LastEarningsDate != nil && f.LastEarningsSurprise > 0 {
		elapsed := -events.DaysBetween(asOf, *f.LastEarningsDate)
		if elapsed >= 1 && elapsed <= d.config.PostEarningsDays {
			surprise := f.LastEarningsSurprise
			edge := Weak
			switch {
			case surprise >= 10:
				edge = Strong
			case surprise >= 5:
				edge = Medium
			}
			return &Setup{
				Type:        EventDrift,
				Catalyst:    EarningsCatalyst,
				Target:      entry + d.config.TargetATR*in.Indicators.ATR,
				Confidence:  50 + math.Min(surprise*1.5, 25),
				Edge:        edge,
				ZScore:      z,
				HoldingDays: max(d.config.HoldingDays-elapsed, 3),
				Reason:      fmt.Sprintf("Post-earnings drift: %+.1f%% surprise %d days ago", surprise, elapsed),
				Details: map[string]float64{
					"surprise":     surprise,
					"days_elapsed": float64(elapsed),
				},
			}
		}
	}

	if f.ExDividendDate != nil {
		ahead := events.DaysBetween(asOf, *f.ExDividendDate)
		if ahead >= d.config.DividendMinDays && ahead <= d.config.DividendMaxDays {
			yield := f.DividendYield * 100
			edge := Weak
			if yield >= 3 {
				edge = Medium
			}
			return &Setup{
				Type:        EventDrift,
				Catalyst:    DividendCatalyst,
				Target:      entry + d.config.TargetATR*in.Indicators.ATR,
				Confidence:  52 + math.Min(yield*3, 15),
				Edge:        edge,
				ZScore:      z,
				HoldingDays: ahead,
				Reason:      fmt.Sprintf("Pre-dividend accumulation: ex-date in %d days, yield %.1f%%", ahead, yield),
				Details: map[string]float64{
					"days_ahead": float64(ahead),
					"yield_pct":  yield,
				},
			}
		}
	}

	return nil
}
