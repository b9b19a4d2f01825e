package position

import "math"

// Kelly returns the fractional Kelly position size as a percent of the
// portfolio, clamped to [0, capPct].
//
//	full  = (p*b - q) / b    where q = 1 - p
//	size  = full * fraction * 100
//
// p is the assumed win rate and b the ratio of expected gain to expected
// loss. Non-finite or non-positive inputs size to zero.
func Kelly(p, b, fraction, capPct float64) float64 {
	for _, v := range []float64{p, b, fraction, capPct} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
	}
	if p <= 0 || p >= 1 || b <= 0 || fraction <= 0 || capPct <= 0 {
		return 0
	}

	full := (p*b - (1 - p)) / b
	size := full * fraction * 100
	return math.Max(0, math.Min(size, capPct))
}

// BreakevenWinRate is the win rate at which a payoff ratio b has zero edge
func BreakevenWinRate(b float64) float64 {
	if b <= 0 {
		return 1
	}
	return 1 / (1 + b)
}
