package model

import (
	"math"
	"sort"
	"time"
)

// Bar represents a single daily OHLCV session
type Bar struct {
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   int64     `json:"volume"`
	AdjClose float64   `json:"adj_close"`
}

// TypicalPrice returns (high + low + close) / 3
func (b Bar) TypicalPrice() float64 {
	return (b.High + b.Low + b.Close) / 3
}

// Body returns the absolute size of the candle body
func (b Bar) Body() float64 {
	return math.Abs(b.Close - b.Open)
}

// LowerShadow returns the wick below the body
func (b Bar) LowerShadow() float64 {
	return math.Min(b.Open, b.Close) - b.Low
}

// UpperShadow returns the wick above the body
func (b Bar) UpperShadow() float64 {
	return b.High - math.Max(b.Open, b.Close)
}

// Stock represents basic stock information
type Stock struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"` // NYSE, NASDAQ
}

// SanitizeBars applies the ingestion rules: non-positive closes are dropped,
// bars are sorted ascending with duplicate dates removed, and high/low are
// widened to contain open and close.
func SanitizeBars(bars []Bar) []Bar {
	out := make([]Bar, 0, len(bars))
	for _, b := range bars {
		if b.Close <= 0 || math.IsNaN(b.Close) || math.IsInf(b.Close, 0) {
			continue
		}
		if b.Open <= 0 {
			b.Open = b.Close
		}
		if b.High < math.Max(b.Open, b.Close) {
			b.High = math.Max(b.Open, b.Close)
		}
		if b.Low <= 0 || b.Low > math.Min(b.Open, b.Close) {
			b.Low = math.Min(b.Open, b.Close)
		}
		if b.Volume < 0 {
			b.Volume = 0
		}
		if b.AdjClose <= 0 {
			b.AdjClose = b.Close
		}
		out = append(out, b)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})

	deduped := out[:0]
	for _, b := range out {
		if n := len(deduped); n > 0 && sameDay(b.Date, deduped[n-1].Date) {
			deduped[len(deduped)-1] = b
			continue
		}
		deduped = append(deduped, b)
	}
	return deduped
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Closes extracts close prices
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Highs extracts high prices
func Highs(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.High
	}
	return out
}

// Lows extracts low prices
func Lows(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Low
	}
	return out
}

// Volumes extracts volumes as float64
func Volumes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = float64(b.Volume)
	}
	return out
}

// TruncateAsOf returns the prefix of bars dated on or before t
func TruncateAsOf(bars []Bar, t time.Time) []Bar {
	idx := sort.Search(len(bars), func(i int) bool {
		return bars[i].Date.After(t)
	})
	return bars[:idx]
}

// Last returns the trailing n elements (or all when fewer)
func Last[T any](s []T, n int) []T {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
