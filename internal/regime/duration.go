package regime

import (
	"math"

	"stockscope/internal/indicator"
	"stockscope/pkg/model"
)

// duration counts consecutive sessions, newest first and at most
// MaxDuration, whose bars match the regime's trend signature.
// The classified session always counts.
func (c *Classifier) duration(bars []model.Bar, r Regime, atrFull, atrWindow []float64) int {
	closes := model.Closes(bars)
	n := len(bars)

	compatible := func(idx int) bool {
		sma := indicator.SMA(closes[:idx+1], 20)
		switch r {
		case TrendingUp, BreakoutUp:
			return closes[idx] > sma
		case TrendingDown, Breakdown:
			return closes[idx] < sma
		case HighVolatility, LowVolatility:
			j := idx - indicator.PeriodATR
			if j < 0 || j >= len(atrFull) {
				return false
			}
			rank := indicator.PercentileRank(atrWindow, atrFull[j])
			if r == HighVolatility {
				return rank > c.config.HighVolPercentile
			}
			return rank < c.config.LowVolPercentile
		default:
			if sma == 0 {
				return false
			}
			return math.Abs(closes[idx]-sma)/sma*100 <= c.config.RangeBandPct
		}
	}

	count := 0
	for k := 0; k < c.config.MaxDuration && n-1-k >= 0; k++ {
		if !compatible(n - 1 - k) {
			break
		}
		count++
	}
	return max(count, 1)
}
