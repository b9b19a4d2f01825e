package indicator

import (
	"github.com/markcheno/go-talib"

	"stockscope/pkg/model"
)

// SMA returns the simple moving average of the last period values.
// With less history it averages whatever is available.
func SMA(values []float64, period int) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	if period < 1 || n < period {
		return Mean(values)
	}
	return talib.Sma(values, period)[n-1]
}

// EMASeries returns the exponential moving average series, or nil when
// there are fewer values than the period. Entries before period-1 are zero.
func EMASeries(values []float64, period int) []float64 {
	if period < 1 || len(values) < period {
		return nil
	}
	return talib.Ema(values, period)
}

// EMA returns the latest exponential moving average value
func EMA(values []float64, period int) float64 {
	series := EMASeries(values, period)
	if series == nil {
		return Mean(values)
	}
	return series[len(series)-1]
}

// VWAP returns the typical-price volume weighted average over the last period bars
func VWAP(bars []model.Bar, period int) float64 {
	window := model.Last(bars, period)
	if len(window) == 0 {
		return 0
	}

	var pv, vol float64
	typical := make([]float64, len(window))
	for i, b := range window {
		tp := b.TypicalPrice()
		typical[i] = tp
		pv += tp * float64(b.Volume)
		vol += float64(b.Volume)
	}
	if vol == 0 {
		return Mean(typical)
	}
	return pv / vol
}

// AvgVolume returns the mean volume of the period sessions preceding the last bar
func AvgVolume(bars []model.Bar, period int) float64 {
	if len(bars) < 2 {
		if len(bars) == 1 {
			return float64(bars[0].Volume)
		}
		return 0
	}
	baseline := model.Last(bars[:len(bars)-1], period)
	return Mean(model.Volumes(baseline))
}

// VolumeRatio compares the last session's volume with its baseline
func VolumeRatio(bars []model.Bar, period int) float64 {
	avg := AvgVolume(bars, period)
	if avg <= 0 || len(bars) == 0 {
		return 1
	}
	return float64(bars[len(bars)-1].Volume) / avg
}

// HighestHigh returns the highest high over the last period bars
func HighestHigh(bars []model.Bar, period int) float64 {
	var hh float64
	for _, b := range model.Last(bars, period) {
		if b.High > hh {
			hh = b.High
		}
	}
	return hh
}

// LowestLow returns the lowest low over the last period bars
func LowestLow(bars []model.Bar, period int) float64 {
	window := model.Last(bars, period)
	if len(window) == 0 {
		return 0
	}
	ll := window[0].Low
	for _, b := range window[1:] {
		if b.Low < ll {
			ll = b.Low
		}
	}
	return ll
}

// PriceChange returns the percentage change over the last n sessions
func PriceChange(closes []float64, n int) float64 {
	if n < 1 || len(closes) <= n {
		return 0
	}
	prev := closes[len(closes)-1-n]
	if prev == 0 {
		return 0
	}
	return (closes[len(closes)-1] - prev) / prev * 100
}
