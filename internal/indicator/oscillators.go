package indicator

import (
	"math"

	"github.com/markcheno/go-talib"

	"stockscope/pkg/model"
)

// RSI returns Wilder's relative strength index over closes.
// Fewer than period+1 closes returns the neutral 50. When no delta is
// negative the result is 100, or 50 for a perfectly flat series.
func RSI(closes []float64, period int) float64 {
	if period < 2 || len(closes) < period+1 {
		return 50
	}

	var gained, lost bool
	for i := 1; i < len(closes); i++ {
		switch d := closes[i] - closes[i-1]; {
		case d > 0:
			gained = true
		case d < 0:
			lost = true
		}
	}
	if !lost {
		if gained {
			return 100
		}
		return 50
	}

	rsi := talib.Rsi(closes, period)[len(closes)-1]
	if math.IsNaN(rsi) {
		return 50
	}
	return math.Max(0, math.Min(100, rsi))
}

// MACDResult holds the MACD line, its signal and histogram
type MACDResult struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// MACD returns EMA(fast) - EMA(slow) with an EMA(signal) of the MACD line
// re-derived over a trailing slice of at most twice the slow period.
func MACD(closes []float64, fast, slow, signal int) MACDResult {
	n := len(closes)
	if fast < 1 || slow <= fast || n < slow {
		return MACDResult{}
	}

	fastEMA := EMASeries(closes, fast)
	slowEMA := EMASeries(closes, slow)

	start := max(slow-1, n-2*slow)
	line := make([]float64, 0, n-start)
	for i := start; i < n; i++ {
		line = append(line, fastEMA[i]-slowEMA[i])
	}

	macd := line[len(line)-1]
	sig := EMA(line, signal)
	return MACDResult{
		MACD:      macd,
		Signal:    sig,
		Histogram: macd - sig,
	}
}

// Stochastic returns %K over the last period bars with %D equal to %K.
// A zero high/low range or short history yields 50.
func Stochastic(bars []model.Bar, period int) (k, d float64) {
	if period < 1 || len(bars) < period {
		return 50, 50
	}
	hh := HighestHigh(bars, period)
	ll := LowestLow(bars, period)
	if hh-ll <= 0 {
		return 50, 50
	}
	k = (bars[len(bars)-1].Close - ll) / (hh - ll) * 100
	return k, k
}

// SmoothedStochastic returns %K with %D as the dPeriod SMA of %K
func SmoothedStochastic(bars []model.Bar, kPeriod, dPeriod int) (k, d float64) {
	n := len(bars)
	if kPeriod < 1 || dPeriod < 1 || n < kPeriod+dPeriod-1 {
		return Stochastic(bars, kPeriod)
	}
	if HighestHigh(bars, kPeriod+dPeriod-1)-LowestLow(bars, kPeriod+dPeriod-1) <= 0 {
		return 50, 50
	}
	fastK, fastD := talib.StochF(model.Highs(bars), model.Lows(bars), model.Closes(bars), kPeriod, dPeriod, talib.SMA)
	return fastK[n-1], fastD[n-1]
}

// MFI returns the money flow index over typical price.
// Short history yields 50; no negative flow yields 100 (or 50 with no flow at all).
func MFI(bars []model.Bar, period int) float64 {
	n := len(bars)
	if period < 1 || n < period+1 {
		return 50
	}

	var pos, neg float64
	for i := n - period; i < n; i++ {
		tp := bars[i].TypicalPrice()
		prev := bars[i-1].TypicalPrice()
		flow := tp * float64(bars[i].Volume)
		switch {
		case tp > prev:
			pos += flow
		case tp < prev:
			neg += flow
		}
	}

	if neg == 0 {
		if pos == 0 {
			return 50
		}
		return 100
	}
	return 100 - 100/(1+pos/neg)
}
