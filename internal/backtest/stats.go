package backtest

import (
	"math"
	"sort"
	"strconv"

	"stockscope/internal/indicator"
)

const tradingDaysPerYear = 252

// computeStats fills the aggregate fields from report.Trades
func (s *Simulator) computeStats(r *Report) {
	r.TotalTrades = len(r.Trades)
	if r.TotalTrades == 0 {
		return
	}

	var grossWin, grossLoss, totalDays float64
	var winStreak, loseStreak int
	returns := make([]float64, 0, r.TotalTrades)

	for _, t := range r.Trades {
		returns = append(returns, t.ReturnPct)
		totalDays += float64(t.DaysHeld)

		switch t.Outcome {
		case Win:
			r.WinningTrades++
			grossWin += t.ReturnPct
			r.LargestWin = math.Max(r.LargestWin, t.ReturnPct)
			winStreak++
			loseStreak = 0
		case Loss:
			r.LosingTrades++
			grossLoss += -t.ReturnPct
			r.LargestLoss = math.Min(r.LargestLoss, t.ReturnPct)
			loseStreak++
			winStreak = 0
		default:
			r.BreakevenTrades++
			winStreak, loseStreak = 0, 0
		}
		r.MaxWinStreak = max(r.MaxWinStreak, winStreak)
		r.MaxLoseStreak = max(r.MaxLoseStreak, loseStreak)
	}

	n := float64(r.TotalTrades)
	r.WinRate = float64(r.WinningTrades) / n * 100
	r.AvgDaysHeld = totalDays / n
	if r.WinningTrades > 0 {
		r.AvgWinPct = grossWin / float64(r.WinningTrades)
	}
	if r.LosingTrades > 0 {
		r.AvgLossPct = grossLoss / float64(r.LosingTrades)
	}
	lossRate := float64(r.LosingTrades) / n
	r.Expectancy = r.WinRate/100*r.AvgWinPct - lossRate*r.AvgLossPct

	switch {
	case grossLoss > 0:
		r.ProfitFactor = math.Min(grossWin/grossLoss, s.config.MaxProfitFactor)
	case grossWin > 0:
		r.ProfitFactor = s.config.MaxProfitFactor
	}

	r.EquityCurve = equityCurve(returns, s.config.PositionSizePct)
	r.TotalReturnPct = (r.EquityCurve[len(r.EquityCurve)-1]/100 - 1) * 100
	r.MaxDrawdownPct = maxDrawdown(r.EquityCurve)

	// Sharpe & Sortino on per-trade returns, annualised by trades per year
	if len(returns) > 1 && r.AvgDaysHeld > 0 {
		scale := math.Sqrt(tradingDaysPerYear / r.AvgDaysHeld)
		avg := indicator.Mean(returns)
		if std := sampleStdDev(returns); std > 0 {
			r.SharpeRatio = avg / std * scale
		}
		var neg []float64
		for _, v := range returns {
			if v < 0 {
				neg = append(neg, v)
			}
		}
		if down := sampleStdDev(neg); down > 0 {
			r.SortinoRatio = avg / down * scale
		}
	}

	r.ByStrategy = breakdown(r.Trades, func(t Trade) string { return t.Strategy.String() })
	r.ByYear = breakdown(r.Trades, func(t Trade) string { return strconv.Itoa(t.EntryDate.Year()) })
}

// equityCurve compounds each return at a fixed position size starting from 100
func equityCurve(returns []float64, positionPct float64) []float64 {
	curve := make([]float64, 0, len(returns)+1)
	equity := 100.0
	curve = append(curve, equity)
	for _, ret := range returns {
		equity *= 1 + positionPct/100*ret/100
		curve = append(curve, equity)
	}
	return curve
}

// maxDrawdown returns the largest peak-to-trough decline in percent
func maxDrawdown(curve []float64) float64 {
	if len(curve) == 0 {
		return 0
	}
	peak := curve[0]
	var maxDD float64
	for _, e := range curve {
		if e > peak {
			peak = e
		}
		if peak > 0 {
			maxDD = math.Max(maxDD, (peak-e)/peak*100)
		}
	}
	return maxDD
}

func sampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := indicator.Mean(values)
	var sum float64
	for _, v := range values {
		sum += (v - mean) * (v - mean)
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

// breakdown groups trades by key, sorted by key
func breakdown(trades []Trade, key func(Trade) string) []Breakdown {
	groups := make(map[string]*Breakdown)
	for _, t := range trades {
		k := key(t)
		b, ok := groups[k]
		if !ok {
			b = &Breakdown{Key: k}
			groups[k] = b
		}
		b.Trades++
		b.TotalReturnPct += t.ReturnPct
		switch t.Outcome {
		case Win:
			b.Wins++
		case Loss:
			b.Losses++
		}
	}

	out := make([]Breakdown, 0, len(groups))
	for _, b := range groups {
		b.WinRate = float64(b.Wins) / float64(b.Trades) * 100
		b.AvgReturnPct = b.TotalReturnPct / float64(b.Trades)
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
