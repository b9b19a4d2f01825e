package levels

// Confidence multipliers applied by Clamp
const (
	crossPenalty = 0.85
	bounceBoost  = 1.1
	nearLevelPct = 2.0
)

// Clamp caps a forecast that would cross a strong level and returns the
// adjusted price with a confidence multiplier in [0.85, 1.1]. A forecast
// moving away from a strong level that price is sitting on is boosted.
func (a *Analyzer) Clamp(an Analysis, predicted float64) (float64, float64) {
	current := an.Price
	if current <= 0 {
		return predicted, 1
	}

	strong := func(l *Level) bool {
		return l != nil && l.Strength >= a.config.StrongLevel
	}
	near := func(l *Level) bool {
		d := (current - l.Price) / current * 100
		if d < 0 {
			d = -d
		}
		return d <= nearLevelPct
	}

	switch {
	case predicted > current:
		if r := an.NearestResistance; strong(r) && predicted > r.Price {
			return r.Price, crossPenalty
		}
		if s := an.NearestSupport; strong(s) && near(s) {
			return predicted, bounceBoost
		}
	case predicted < current:
		if s := an.NearestSupport; strong(s) && predicted < s.Price {
			return s.Price, crossPenalty
		}
		if r := an.NearestResistance; strong(r) && near(r) {
			return predicted, bounceBoost
		}
	}
	return predicted, 1
}

// DistancePct returns the percentage distance of price above the level (negative below)
func (l Level) DistancePct(price float64) float64 {
	if l.Price == 0 {
		return 0
	}
	return (price - l.Price) / l.Price * 100
}
