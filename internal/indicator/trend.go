package indicator

import (
	"math"

	"github.com/markcheno/go-talib"

	"stockscope/pkg/model"
)

// ADX returns an approximate average directional index.
//
// Each DX is computed from plain sums of +DM, -DM and true range over a
// period window, and the result is the mean of the last period DX values.
// Wilder's recursive smoothing is not applied; see WilderADX.
// Fewer than period+1 bars returns 0.
func ADX(bars []model.Bar, period int) float64 {
	n := len(bars)
	if period < 1 || n < period+1 {
		return 0
	}

	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	tr := make([]float64, n)
	for i := 1; i < n; i++ {
		up := bars[i].High - bars[i-1].High
		down := bars[i-1].Low - bars[i].Low
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
		tr[i] = TrueRange(bars, i)
	}

	first := max(period, n-period)
	var sum float64
	var count int
	for end := first; end < n; end++ {
		var p, m, t float64
		for i := end - period + 1; i <= end; i++ {
			p += plusDM[i]
			m += minusDM[i]
			t += tr[i]
		}
		sum += directionalIndex(p, m, t)
		count++
	}
	return sum / float64(count)
}

func directionalIndex(plusDM, minusDM, trueRange float64) float64 {
	if trueRange <= 0 {
		return 0
	}
	plusDI := 100 * plusDM / trueRange
	minusDI := 100 * minusDM / trueRange
	if plusDI+minusDI == 0 {
		return 0
	}
	return 100 * math.Abs(plusDI-minusDI) / (plusDI + minusDI)
}

// WilderADX returns the textbook Wilder-smoothed ADX, falling back to the
// approximation when history is shorter than two periods.
func WilderADX(bars []model.Bar, period int) float64 {
	n := len(bars)
	if period < 2 || n <= 2*period {
		return ADX(bars, period)
	}
	adx := talib.Adx(model.Highs(bars), model.Lows(bars), model.Closes(bars), period)[n-1]
	if math.IsNaN(adx) {
		return 0
	}
	return adx
}

// OBVSeries returns on-balance volume: a running volume sum whose sign
// follows the close-to-close direction.
func OBVSeries(bars []model.Bar) []float64 {
	if len(bars) == 0 {
		return nil
	}
	return talib.Obv(model.Closes(bars), model.Volumes(bars))
}

// OBV returns the latest on-balance volume value
func OBV(bars []model.Bar) float64 {
	series := OBVSeries(bars)
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}

// Divergence reports whether price and OBV moved in opposite directions
// over the last n sessions.
func Divergence(bars []model.Bar, n int) bool {
	if n < 1 || len(bars) <= n {
		return false
	}
	obv := OBVSeries(bars)
	priceDelta := bars[len(bars)-1].Close - bars[len(bars)-1-n].Close
	obvDelta := obv[len(obv)-1] - obv[len(obv)-1-n]
	return (priceDelta > 0 && obvDelta < 0) || (priceDelta < 0 && obvDelta > 0)
}
