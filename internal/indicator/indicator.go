// Package indicator computes trend, momentum, volume and volatility
// indicators over daily bar series. Every function is pure and returns a
// documented neutral value when history is too short.
package indicator

import (
	"stockscope/pkg/model"
)

// Standard look-back periods
const (
	PeriodRSI        = 14
	PeriodATR        = 14
	PeriodADX        = 14
	PeriodStochastic = 14
	PeriodMFI        = 14
	PeriodBollinger  = 20
	PeriodVWAP       = 20
	PeriodVolume     = 20
	PeriodVolatility = 20
	PeriodRegression = 30
	MACDFast         = 12
	MACDSlow         = 26
	MACDSignal       = 9
	BollingerK       = 2.0
)

// Options toggles textbook smoothing in place of the default approximations
type Options struct {
	WilderADX        bool `yaml:"wilder_adx"`
	SmoothStochastic bool `yaml:"smooth_stochastic"`
}

// Set is a snapshot of indicators computed over the trailing window of a bar series
type Set struct {
	Bars  int     `json:"bars"`
	Price float64 `json:"price"`

	SMA20 float64 `json:"sma20"`
	SMA50 float64 `json:"sma50"`
	EMA12 float64 `json:"ema12"`
	EMA26 float64 `json:"ema26"`

	RSI           float64 `json:"rsi"`
	MACD          float64 `json:"macd"`
	MACDSignal    float64 `json:"macd_signal"`
	MACDHistogram float64 `json:"macd_histogram"`
	StochasticK   float64 `json:"stochastic_k"`
	StochasticD   float64 `json:"stochastic_d"`
	MFI           float64 `json:"mfi"`

	BollingerUpper  float64 `json:"bollinger_upper"`
	BollingerMiddle float64 `json:"bollinger_middle"`
	BollingerLower  float64 `json:"bollinger_lower"`
	BollingerWidth  float64 `json:"bollinger_width"`
	ATR             float64 `json:"atr"`
	ADX             float64 `json:"adx"`
	Volatility20    float64 `json:"volatility20"`

	OBV          float64 `json:"obv"`
	VWAP         float64 `json:"vwap"`
	AvgVolume    float64 `json:"avg_volume"`
	VolumeRatio  float64 `json:"volume_ratio"`
	PriceChange5 float64 `json:"price_change5"`
}

// Compute calculates the indicator set with default options
func Compute(bars []model.Bar) Set {
	return ComputeWith(bars, Options{})
}

// ComputeWith calculates the indicator set for bars
func ComputeWith(bars []model.Bar, opts Options) Set {
	set := Set{Bars: len(bars), RSI: 50, MFI: 50, StochasticK: 50, StochasticD: 50, VolumeRatio: 1}
	if len(bars) == 0 {
		return set
	}

	closes := model.Closes(bars)
	set.Price = closes[len(closes)-1]

	set.SMA20 = SMA(closes, 20)
	set.SMA50 = SMA(closes, 50)
	set.EMA12 = EMA(closes, MACDFast)
	set.EMA26 = EMA(closes, MACDSlow)

	set.RSI = RSI(closes, PeriodRSI)
	macd := MACD(closes, MACDFast, MACDSlow, MACDSignal)
	set.MACD, set.MACDSignal, set.MACDHistogram = macd.MACD, macd.Signal, macd.Histogram

	if opts.SmoothStochastic {
		set.StochasticK, set.StochasticD = SmoothedStochastic(bars, PeriodStochastic, 3)
	} else {
		set.StochasticK, set.StochasticD = Stochastic(bars, PeriodStochastic)
	}
	set.MFI = MFI(bars, PeriodMFI)

	bands := Bollinger(closes, PeriodBollinger, BollingerK)
	set.BollingerUpper, set.BollingerMiddle, set.BollingerLower, set.BollingerWidth =
		bands.Upper, bands.Middle, bands.Lower, bands.Width

	set.ATR = ATR(bars, PeriodATR)
	if opts.WilderADX {
		set.ADX = WilderADX(bars, PeriodADX)
	} else {
		set.ADX = ADX(bars, PeriodADX)
	}
	set.Volatility20 = Volatility(closes, PeriodVolatility)

	set.OBV = OBV(bars)
	set.VWAP = VWAP(bars, PeriodVWAP)
	set.AvgVolume = AvgVolume(bars, PeriodVolume)
	set.VolumeRatio = VolumeRatio(bars, PeriodVolume)
	set.PriceChange5 = PriceChange(closes, 5)

	return set
}

// TrendAligned reports price > SMA20 > SMA50 (up) or price < SMA20 < SMA50 (down)
func (s Set) TrendAligned() (up, down bool) {
	if s.SMA20 == 0 || s.SMA50 == 0 {
		return false, false
	}
	up = s.Price > s.SMA20 && s.SMA20 > s.SMA50
	down = s.Price < s.SMA20 && s.SMA20 < s.SMA50
	return up, down
}
