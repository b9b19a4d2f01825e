package backtest

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockscope/internal/opportunity"
	"stockscope/pkg/model"
)

var start = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

// generateTestBars builds one bar per calendar day with a 2-point range
func generateTestBars(n int, closeAt func(i int) float64) []model.Bar {
	bars := make([]model.Bar, n)
	for i := range bars {
		c := closeAt(i)
		bars[i] = model.Bar{Date: start.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
	}
	return bars
}

func rising(i int) float64 { return 100 + float64(i) }

// alwaysDetector fires on every symbol with a 4 ATR target
type alwaysDetector struct{}

func (alwaysDetector) Type() opportunity.Type { return opportunity.VolumeAnomaly }
func (alwaysDetector) Description() string    { return "always" }
func (alwaysDetector) Detect(in opportunity.Input) *opportunity.Setup {
	return &opportunity.Setup{
		Type:        opportunity.VolumeAnomaly,
		Target:      in.Indicators.Price + 4*in.Indicators.ATR,
		Confidence:  80,
		Edge:        opportunity.Strong,
		HoldingDays: 5,
	}
}

func newTestSimulator() *Simulator {
	scanner := opportunity.NewScanner(opportunity.DefaultConfig(), opportunity.Components{
		Detectors: []opportunity.Detector{alwaysDetector{}},
	})
	return NewSimulator(DefaultConfig(), Components{Scanner: scanner})
}

func TestRunRejectsInvalidRange(t *testing.T) {
	s := newTestSimulator()
	_, err := s.Run(nil, start, start)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = s.Run(nil, start.AddDate(0, 1, 0), start)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestRunShortHistoryYieldsEmptyReport(t *testing.T) {
	data := map[string][]model.Bar{
		"AAA": generateTestBars(40, rising),
		"BBB": generateTestBars(40, func(int) float64 { return 50 }),
	}
	report, err := newTestSimulator().Run(data, start, start.AddDate(0, 0, 39))
	require.NoError(t, err)

	assert.Equal(t, 2, report.Checkpoints)
	assert.Zero(t, report.Scans)
	assert.Zero(t, report.TotalTrades)
	assert.Empty(t, report.Trades)
	for name, v := range map[string]float64{
		"win_rate":      report.WinRate,
		"avg_win":       report.AvgWinPct,
		"avg_loss":      report.AvgLossPct,
		"profit_factor": report.ProfitFactor,
		"total_return":  report.TotalReturnPct,
		"max_drawdown":  report.MaxDrawdownPct,
		"sharpe":        report.SharpeRatio,
		"sortino":       report.SortinoRatio,
		"expectancy":    report.Expectancy,
	} {
		assert.Zero(t, v, name)
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), name)
	}
}

func TestRunWalksForwardMonthly(t *testing.T) {
	data := map[string][]model.Bar{
		"AAA": generateTestBars(200, rising),
		"BBB": generateTestBars(200, func(i int) float64 { return 200 + float64(i) }),
	}
	from := time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

	var seen []time.Time
	report, err := newTestSimulator().RunWithProgress(data, from, to, func(done, total int, cp time.Time) {
		assert.Equal(t, 4, total)
		seen = append(seen, cp)
	})
	require.NoError(t, err)

	wantCheckpoints := []time.Time{
		from,
		time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC),
		to,
	}
	assert.Equal(t, wantCheckpoints, seen)
	assert.Equal(t, 4, report.Scans)
	assert.Equal(t, 8, report.Opportunities)
	require.Equal(t, 8, report.TotalTrades)

	for i, tr := range report.Trades {
		assert.Equal(t, wantCheckpoints[i/2], tr.EntryDate, "trades follow checkpoint order")
		assert.Equal(t, tr.EntryDate.AddDate(0, 0, 5), tr.ExitDate)
		assert.Equal(t, ExitHorizon, tr.ExitReason)
		assert.Equal(t, 5, tr.DaysHeld)
		assert.Equal(t, Win, tr.Outcome)
		assert.InDelta(t, tr.EntryPrice+5, tr.ExitPrice, 1e-9)
		assert.Equal(t, tr.EntryPrice-4, tr.OriginalStop)
		assert.Greater(t, tr.FinalStop, tr.OriginalStop)
	}
	assert.Equal(t, "AAA", report.Trades[0].Symbol)
	assert.Equal(t, "BBB", report.Trades[1].Symbol)

	assert.Equal(t, 100.0, report.WinRate)
	assert.Equal(t, 99.99, report.ProfitFactor)
	assert.Equal(t, 8, report.MaxWinStreak)
	assert.Zero(t, report.MaxLoseStreak)
	assert.Zero(t, report.MaxDrawdownPct)
	assert.Greater(t, report.TotalReturnPct, 0.0)
	assert.Greater(t, report.SharpeRatio, 0.0)
	assert.Len(t, report.EquityCurve, 9)

	require.Len(t, report.ByStrategy, 1)
	assert.Equal(t, "volume_anomaly", report.ByStrategy[0].Key)
	require.Len(t, report.ByYear, 1)
	assert.Equal(t, "2023", report.ByYear[0].Key)
	assert.Equal(t, 8, report.ByYear[0].Wins)
}

func TestSimulateTrade(t *testing.T) {
	s := NewSimulator(DefaultConfig(), Components{})
	opp := opportunity.Opportunity{Symbol: "T", Type: opportunity.Momentum, Entry: 100, Stop: 96, Target: 110, ATR: 2, HoldingDays: 5}
	day := func(i int, o, h, l, c float64) model.Bar {
		return model.Bar{Date: start.AddDate(0, 0, i+1), Open: o, High: h, Low: l, Close: c, Volume: 1000}
	}
	flat := func(n int, c float64) []model.Bar {
		path := make([]model.Bar, n)
		for i := range path {
			path[i] = day(i, 100, 100.4, 99.6, c)
		}
		return path
	}

	tests := []struct {
		name       string
		opp        opportunity.Opportunity
		path       []model.Bar
		wantExit   float64
		wantReason ExitReason
		wantResult Outcome
		wantDays   int
	}{
		{
			name:       "horizon close inside band is breakeven",
			opp:        opp,
			path:       flat(10, 100.1),
			wantExit:   100.1,
			wantReason: ExitHorizon,
			wantResult: Breakeven,
			wantDays:   5,
		},
		{
			name:       "horizon close above band is a win",
			opp:        opp,
			path:       flat(10, 100.3),
			wantExit:   100.3,
			wantReason: ExitHorizon,
			wantResult: Win,
			wantDays:   5,
		},
		{
			name:       "horizon capped at max hold days",
			opp:        opportunity.Opportunity{Entry: 100, Stop: 96, Target: 110, ATR: 2},
			path:       flat(20, 99.7),
			wantExit:   99.7,
			wantReason: ExitHorizon,
			wantResult: Loss,
			wantDays:   15,
		},
		{
			name:       "data ends before horizon",
			opp:        opp,
			path:       flat(3, 100),
			wantExit:   100,
			wantReason: ExitHorizon,
			wantResult: Breakeven,
			wantDays:   3,
		},
		{
			name:       "gap below stop exits at open",
			opp:        opp,
			path:       []model.Bar{day(0, 94, 95, 93, 94.5)},
			wantExit:   94,
			wantReason: ExitStop,
			wantResult: Loss,
			wantDays:   1,
		},
		{
			name:       "stop checked before target",
			opp:        opp,
			path:       []model.Bar{day(0, 100, 111, 95, 100)},
			wantExit:   96,
			wantReason: ExitStop,
			wantResult: Loss,
			wantDays:   1,
		},
		{
			name:       "target hit",
			opp:        opp,
			path:       []model.Bar{day(0, 100, 101, 99, 100.5), day(1, 101, 111, 100, 110.5)},
			wantExit:   110,
			wantReason: ExitTarget,
			wantResult: Win,
			wantDays:   2,
		},
		{
			name:       "trailing stop locks in gain",
			opp:        opp,
			path:       []model.Bar{day(0, 100, 106, 100, 105), day(1, 104, 104.5, 102, 102.5)},
			wantExit:   103,
			wantReason: ExitTrailingStop,
			wantResult: Win,
			wantDays:   2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := s.simulateTrade(tt.opp, start, tt.path)
			require.NotNil(t, tr)
			assert.InDelta(t, tt.wantExit, tr.ExitPrice, 1e-9)
			assert.Equal(t, tt.wantReason, tr.ExitReason)
			assert.Equal(t, tt.wantResult, tr.Outcome)
			assert.Equal(t, tt.wantDays, tr.DaysHeld)
			assert.Equal(t, tt.path[tt.wantDays-1].Date, tr.ExitDate)
			assert.GreaterOrEqual(t, tr.FinalStop, tr.OriginalStop)
		})
	}

	assert.Nil(t, s.simulateTrade(opp, start, nil), "no bars after entry")
}

func TestTrailingStopNeverBelowOriginal(t *testing.T) {
	s := NewSimulator(DefaultConfig(), Components{})
	rng := rand.New(rand.NewPCG(7, 11))

	for run := 0; run < 200; run++ {
		opp := opportunity.Opportunity{Entry: 100, Stop: 94, Target: 112, ATR: 3, HoldingDays: 1 + rng.IntN(15)}
		path := make([]model.Bar, 20)
		price := 100.0
		for i := range path {
			open := price
			price *= 1 + (rng.Float64()-0.5)*0.06
			high := math.Max(open, price) * (1 + rng.Float64()*0.02)
			low := math.Min(open, price) * (1 - rng.Float64()*0.02)
			path[i] = model.Bar{Date: start.AddDate(0, 0, i+1), Open: open, High: high, Low: low, Close: price}
		}

		tr := s.simulateTrade(opp, start, path)
		require.NotNil(t, tr)
		assert.GreaterOrEqual(t, tr.FinalStop, tr.OriginalStop)
		assert.LessOrEqual(t, tr.DaysHeld, opp.HoldingDays)
		if tr.ExitReason == ExitStop || tr.ExitReason == ExitTrailingStop {
			assert.LessOrEqual(t, tr.ExitPrice, tr.FinalStop+1e-9)
		}
	}
}

func TestComputeStats(t *testing.T) {
	s := NewSimulator(DefaultConfig(), Components{})
	mk := func(ret float64, o Outcome, typ opportunity.Type, year int) Trade {
		return Trade{ReturnPct: ret, Outcome: o, Strategy: typ, DaysHeld: 5, EntryDate: time.Date(year, 6, 1, 0, 0, 0, 0, time.UTC)}
	}
	r := &Report{Trades: []Trade{
		mk(5, Win, opportunity.Momentum, 2022),
		mk(3, Win, opportunity.Momentum, 2022),
		mk(-2, Loss, opportunity.MeanReversion, 2022),
		mk(0.1, Breakeven, opportunity.MeanReversion, 2023),
		mk(-3, Loss, opportunity.Momentum, 2023),
		mk(-1, Loss, opportunity.Momentum, 2023),
	}}
	s.computeStats(r)

	assert.Equal(t, 6, r.TotalTrades)
	assert.Equal(t, 2, r.WinningTrades)
	assert.Equal(t, 3, r.LosingTrades)
	assert.Equal(t, 1, r.BreakevenTrades)
	assert.InDelta(t, 33.333, r.WinRate, 1e-3)
	assert.InDelta(t, 4, r.AvgWinPct, 1e-9)
	assert.InDelta(t, 2, r.AvgLossPct, 1e-9)
	assert.InDelta(t, 8.0/6.0, r.ProfitFactor, 1e-9)
	assert.InDelta(t, 1.0/3.0, r.Expectancy, 1e-9)
	assert.Equal(t, 5.0, r.LargestWin)
	assert.Equal(t, -3.0, r.LargestLoss)
	assert.Equal(t, 2, r.MaxWinStreak)
	assert.Equal(t, 2, r.MaxLoseStreak, "breakeven resets the streak")
	assert.Greater(t, r.MaxDrawdownPct, 0.0)
	assert.NotZero(t, r.SortinoRatio)

	require.Len(t, r.ByStrategy, 2)
	assert.Equal(t, "mean_reversion", r.ByStrategy[0].Key)
	assert.Equal(t, 2, r.ByStrategy[0].Trades)
	assert.Equal(t, "momentum", r.ByStrategy[1].Key)
	assert.Equal(t, 4, r.ByStrategy[1].Trades)
	assert.InDelta(t, 50, r.ByStrategy[1].WinRate, 1e-9)

	require.Len(t, r.ByYear, 2)
	assert.Equal(t, "2022", r.ByYear[0].Key)
	assert.InDelta(t, 6, r.ByYear[0].TotalReturnPct, 1e-9)
}

func TestEquityCurveAndDrawdown(t *testing.T) {
	curve := equityCurve([]float64{10, -10}, 5)
	require.Len(t, curve, 3)
	assert.InDelta(t, 100.5, curve[1], 1e-9)
	assert.InDelta(t, 99.9975, curve[2], 1e-9)
	assert.InDelta(t, 0.5, maxDrawdown(curve), 1e-9)
	assert.Zero(t, maxDrawdown(nil))
}

func TestCheckpoints(t *testing.T) {
	from := time.Date(2023, 1, 20, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)
	got := Checkpoints(from, to)
	assert.Equal(t, []time.Time{
		from,
		time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC),
		to,
	}, got)
	assert.Nil(t, Checkpoints(to, from))
}

func TestRunMonteCarlo(t *testing.T) {
	trades := []Trade{{ReturnPct: 4}, {ReturnPct: -2}, {ReturnPct: 3}, {ReturnPct: -1}, {ReturnPct: 0.1}}

	a := RunMonteCarlo(trades, 500, 42)
	b := RunMonteCarlo(trades, 500, 42)
	require.NotNil(t, a)
	assert.Equal(t, a, b, "same seed, same result")
	assert.Equal(t, 500, a.Runs)

	// order does not change the compounded product
	assert.InDelta(t, a.WorstCasePct, a.BestCasePct, 1e-9)
	assert.Greater(t, a.MedianReturnPct, 0.0)
	assert.Zero(t, a.RuinProbability)
	assert.LessOrEqual(t, a.MedianMaxDrawdownPct, a.WorstMaxDrawdownPct)

	assert.Nil(t, RunMonteCarlo(nil, 100, 1))
	assert.Nil(t, RunMonteCarlo(trades, 0, 1))
}

func TestOutcomeText(t *testing.T) {
	var o Outcome
	require.NoError(t, o.UnmarshalText([]byte("loss")))
	assert.Equal(t, Loss, o)
	assert.Error(t, o.UnmarshalText([]byte("draw")))

	var r ExitReason
	require.NoError(t, r.UnmarshalText([]byte("trailing_stop")))
	assert.Equal(t, ExitTrailingStop, r)
	text, err := ExitTarget.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "target", string(text))
}
