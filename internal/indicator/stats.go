package indicator

import (
	"math"

	"github.com/markcheno/go-talib"
)

// Mean returns the arithmetic mean (0 for empty input)
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return talib.Sma(values, len(values))[len(values)-1]
}

// StdDev returns the population standard deviation (0 for fewer than 2 values)
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	sd := talib.StdDev(values, len(values), 1)[len(values)-1]
	if math.IsNaN(sd) || sd < 0 {
		return 0
	}
	return sd
}

// ZScore standardises x against mean/std; a degenerate std yields 0
func ZScore(x, mean, std float64) float64 {
	if std < 1e-12 || math.IsNaN(std) {
		return 0
	}
	return (x - mean) / std
}

// PValue returns the two-sided normal p-value for a z-score
func PValue(z float64) float64 {
	return math.Erfc(math.Abs(z) / math.Sqrt2)
}

// PercentileRank returns the mid-rank percentile (0-100) of v within series.
// Ties count half, so a constant series ranks every member at 50.
func PercentileRank(series []float64, v float64) float64 {
	if len(series) == 0 {
		return 50
	}
	var below, equal float64
	for _, s := range series {
		switch {
		case s < v:
			below++
		case s == v:
			equal++
		}
	}
	return (below + equal/2) / float64(len(series)) * 100
}

// Returns converts closes into percentage session-over-session changes
func Returns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (closes[i]-closes[i-1])/closes[i-1]*100)
	}
	return out
}

// Correlation returns the Pearson correlation of the aligned tails of a and b.
// Fewer than 3 points or zero variance yields 0.
func Correlation(a, b []float64) float64 {
	n := min(len(a), len(b))
	if n < 3 {
		return 0
	}
	a, b = a[len(a)-n:], b[len(b)-n:]
	r := talib.Correl(a, b, n)[n-1]
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return math.Max(-1, math.Min(1, r))
}

// Regression is an ordinary least squares fit over a window
type Regression struct {
	Slope    float64 `json:"slope"`
	Value    float64 `json:"value"`    // fitted value at the last point
	R2       float64 `json:"r2"`
	Forecast float64 `json:"forecast"` // extrapolated next point
}

// LinearRegression fits values against their index
func LinearRegression(values []float64) Regression {
	n := len(values)
	switch n {
	case 0:
		return Regression{}
	case 1:
		return Regression{Value: values[0], Forecast: values[0]}
	}

	value := talib.LinearReg(values, n)[n-1]
	slope := talib.LinearRegSlope(values, n)[n-1]

	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	r := Correlation(xs, values)

	return Regression{
		Slope:    slope,
		Value:    value,
		R2:       r * r,
		Forecast: value + slope,
	}
}
