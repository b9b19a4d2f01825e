package indicator

import (
	"math"

	"github.com/markcheno/go-talib"

	"stockscope/pkg/model"
)

// Bands holds Bollinger band levels. Width is (upper-lower)/middle in percent.
type Bands struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
	Width  float64 `json:"width"`
}

// Bollinger returns SMA(period) +/- k standard deviations.
// Short history collapses the bands onto the available mean.
func Bollinger(closes []float64, period int, k float64) Bands {
	n := len(closes)
	if n == 0 {
		return Bands{}
	}
	if period < 2 || n < period {
		m := Mean(closes)
		return Bands{Upper: m, Middle: m, Lower: m}
	}

	upper, middle, lower := talib.BBands(closes, period, k, k, talib.SMA)
	b := Bands{Upper: upper[n-1], Middle: middle[n-1], Lower: lower[n-1]}
	if b.Middle > 0 {
		b.Width = (b.Upper - b.Lower) / b.Middle * 100
	}
	return b
}

// BollingerWidthSeries returns the band width (percent) for every bar with a full window
func BollingerWidthSeries(closes []float64, period int, k float64) []float64 {
	n := len(closes)
	if period < 2 || n < period {
		return nil
	}
	upper, middle, lower := talib.BBands(closes, period, k, k, talib.SMA)
	out := make([]float64, 0, n-period+1)
	for i := period - 1; i < n; i++ {
		w := 0.0
		if middle[i] > 0 {
			w = (upper[i] - lower[i]) / middle[i] * 100
		}
		out = append(out, w)
	}
	return out
}

// TrueRange returns the true range of bar i (high-low for the first bar)
func TrueRange(bars []model.Bar, i int) float64 {
	b := bars[i]
	if i == 0 {
		return b.High - b.Low
	}
	prev := bars[i-1].Close
	return math.Max(b.High-b.Low, math.Max(math.Abs(b.High-prev), math.Abs(b.Low-prev)))
}

// ATR returns Wilder's average true range. With period or fewer bars it
// averages the true ranges that exist.
func ATR(bars []model.Bar, period int) float64 {
	n := len(bars)
	if n == 0 {
		return 0
	}
	if period < 1 || n <= period {
		ranges := make([]float64, n)
		for i := range bars {
			ranges[i] = TrueRange(bars, i)
		}
		return Mean(ranges)
	}
	return talib.Atr(model.Highs(bars), model.Lows(bars), model.Closes(bars), period)[n-1]
}

// ATRPercentSeries returns ATR as a percentage of close for every bar past the warm-up
func ATRPercentSeries(bars []model.Bar, period int) []float64 {
	n := len(bars)
	if period < 1 || n <= period {
		return nil
	}
	atr := talib.Atr(model.Highs(bars), model.Lows(bars), model.Closes(bars), period)
	out := make([]float64, 0, n-period)
	for i := period; i < n; i++ {
		out = append(out, atr[i]/bars[i].Close*100)
	}
	return out
}

// Volatility returns the standard deviation of the last period session returns, in percent
func Volatility(closes []float64, period int) float64 {
	returns := Returns(closes)
	if len(returns) > period && period > 0 {
		returns = returns[len(returns)-period:]
	}
	return StdDev(returns)
}
