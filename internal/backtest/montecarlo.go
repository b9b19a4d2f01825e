package backtest

import (
	"math/rand/v2"
	"sort"
)

// RuinDrawdownPct is the drawdown at which a Monte Carlo path counts as ruined
const RuinDrawdownPct = 20

// MonteCarloResult contains Monte Carlo simulation results
type MonteCarloResult struct {
	Runs                 int     `json:"runs"`
	MedianReturnPct      float64 `json:"median_return_pct"`
	WorstCasePct         float64 `json:"worst_case_pct"` // 5th percentile
	BestCasePct          float64 `json:"best_case_pct"`  // 95th percentile
	MedianMaxDrawdownPct float64 `json:"median_max_drawdown_pct"`
	WorstMaxDrawdownPct  float64 `json:"worst_max_drawdown_pct"` // 95th percentile
	RuinProbability      float64 `json:"ruin_probability"`       // % of runs reaching RuinDrawdownPct
}

// RunMonteCarlo reshuffles the trade order runs times and compounds the
// returns at the default position size. The same seed gives the same result.
func RunMonteCarlo(trades []Trade, runs int, seed uint64) *MonteCarloResult {
	if len(trades) == 0 || runs <= 0 {
		return nil
	}

	positionPct := DefaultConfig().PositionSizePct
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	returns := make([]float64, len(trades))
	for i, t := range trades {
		returns[i] = t.ReturnPct
	}

	finals := make([]float64, runs)
	drawdowns := make([]float64, runs)
	ruined := 0
	shuffled := make([]float64, len(returns))
	for run := range runs {
		copy(shuffled, returns)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		curve := equityCurve(shuffled, positionPct)
		finals[run] = curve[len(curve)-1] - 100
		drawdowns[run] = maxDrawdown(curve)
		if drawdowns[run] >= RuinDrawdownPct {
			ruined++
		}
	}

	sort.Float64s(finals)
	sort.Float64s(drawdowns)

	return &MonteCarloResult{
		Runs:                 runs,
		MedianReturnPct:      finals[runs/2],
		WorstCasePct:         finals[runs/20],
		BestCasePct:          finals[runs*19/20],
		MedianMaxDrawdownPct: drawdowns[runs/2],
		WorstMaxDrawdownPct:  drawdowns[runs*19/20],
		RuinProbability:      float64(ruined) / float64(runs) * 100,
	}
}
