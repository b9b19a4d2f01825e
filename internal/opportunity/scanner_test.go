package opportunity

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockscope/internal/indicator"
	"stockscope/internal/levels"
	"stockscope/internal/regime"
	"stockscope/pkg/model"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func generateTestBars(closes []float64, volume int64) []model.Bar {
	bars := make([]model.Bar, len(closes))
	for i, c := range closes {
		bars[i] = model.Bar{Date: start.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: volume}
	}
	return bars
}

func risingBars(n int) []model.Bar {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	bars := generateTestBars(closes, 1000)
	bars[n-1].Volume = 2000
	return bars
}

func TestScanRisingMomentum(t *testing.T) {
	s := NewScanner(DefaultConfig(), Components{})
	res := s.Scan(map[string][]model.Bar{"UP": risingBars(60)}, Options{})

	require.Len(t, res.Opportunities, 1)
	o := res.Opportunities[0]
	assert.Equal(t, Momentum, o.Type)
	assert.Contains(t, []Edge{Medium, Strong}, o.Edge)
	assert.True(t, o.PassesFilters)
	assert.Empty(t, o.FilterReasons)

	assert.Equal(t, 159.0, o.Entry)
	assert.InDelta(t, 2.0, o.ATR, 1e-9)
	assert.Equal(t, 155.0, o.Stop)
	assert.Equal(t, 165.0, o.Target)
	assert.InDelta(t, 1.5, o.RiskReward, 1e-9)
	assert.InDelta(t, 40.0, o.BreakevenWinRate, 1e-9)
	assert.InDelta(t, 9.0, o.KellySize, 1e-9)
	assert.Equal(t, (&MomentumDetector{}).Description(), o.Setup)
	assert.Greater(t, o.Score, 0.0)
	assert.LessOrEqual(t, o.Score, 100.0)

	assert.Equal(t, 1, res.SymbolsScanned)
	assert.Zero(t, res.SymbolsFiltered)
	assert.Equal(t, start.AddDate(0, 0, 59), res.ScanDate)
	assert.NotEmpty(t, res.ScanID)
}

func TestScanShortHistoryFiltered(t *testing.T) {
	s := NewScanner(DefaultConfig(), Components{})
	res := s.Scan(map[string][]model.Bar{
		"SHORT": risingBars(20),
		"UP":    risingBars(60),
	}, Options{})

	assert.Equal(t, 2, res.SymbolsScanned)
	assert.Equal(t, 1, res.SymbolsFiltered)
	for _, o := range res.Candidates {
		assert.NotEqual(t, "SHORT", o.Symbol)
	}
}

func TestApplyFiltersCollectsEveryFailure(t *testing.T) {
	s := NewScanner(DefaultConfig(), Components{})

	o := Opportunity{Confidence: 40, RiskReward: 1.0, ExpectedReturn: 0.3, KellySize: 1}
	s.applyFilters(&o)
	assert.False(t, o.PassesFilters)
	assert.Len(t, o.FilterReasons, 4)

	o = Opportunity{Confidence: 40, RiskReward: 2, ExpectedReturn: 3, KellySize: 5}
	s.applyFilters(&o)
	assert.False(t, o.PassesFilters)
	require.Len(t, o.FilterReasons, 1)
	assert.Contains(t, o.FilterReasons[0], "confidence")

	o = Opportunity{Confidence: 50, RiskReward: 1.2, ExpectedReturn: 0.6, KellySize: 2}
	s.applyFilters(&o)
	assert.True(t, o.PassesFilters, "thresholds are inclusive")
}

// stubDetector fires on every symbol with a fixed confidence
type stubDetector struct {
	confidence float64
	targetATR  float64
}

func (d stubDetector) Type() Type          { return VolumeAnomaly }
func (d stubDetector) Description() string { return "stub" }
func (d stubDetector) Detect(in Input) *Setup {
	return &Setup{
		Type:        VolumeAnomaly,
		Target:      in.Indicators.Price + d.targetATR*in.Indicators.ATR,
		Confidence:  d.confidence,
		HoldingDays: 5,
	}
}

func TestScanKeepsFailedCandidates(t *testing.T) {
	s := NewScanner(DefaultConfig(), Components{Detectors: []Detector{stubDetector{confidence: 30, targetATR: 3}}})
	res := s.Scan(map[string][]model.Bar{"UP": risingBars(60)}, Options{})

	require.Len(t, res.Candidates, 1)
	assert.False(t, res.Candidates[0].PassesFilters)
	assert.Empty(t, res.Opportunities)
}

func TestScanRanksAndTruncates(t *testing.T) {
	s := NewScanner(DefaultConfig(), Components{Detectors: []Detector{stubDetector{confidence: 80, targetATR: 3}}})
	data := make(map[string][]model.Bar)
	for i := 0; i < 8; i++ {
		data[fmt.Sprintf("S%d", i)] = risingBars(60)
	}
	res := s.Scan(data, Options{})

	require.Len(t, res.Candidates, 8)
	require.Len(t, res.Opportunities, 5)
	for i, o := range res.Opportunities {
		assert.Equal(t, fmt.Sprintf("S%d", i), o.Symbol, "equal scores tie-break by symbol")
	}
}

func TestRegimeScalesKellySize(t *testing.T) {
	s := NewScanner(DefaultConfig(), Components{})
	bars := risingBars(60)

	calm := regime.Analysis{Regime: regime.HighVolatility, Strategy: regime.StayCash, SizeMultiplier: 0.3, Confidence: 70}
	opps := s.ScanSymbol("UP", bars, Options{Regimes: map[string]regime.Analysis{"UP": calm}})

	require.NotEmpty(t, opps)
	assert.InDelta(t, 2.25, opps[0].KellySize, 1e-9)
	assert.Equal(t, regime.HighVolatility, opps[0].Regime)
}

func TestMeanReversionDetector(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i%2)
	}
	closes = append(closes, 97, 94, 90)
	bars := generateTestBars(closes, 1000)

	d := &MeanReversionDetector{config: DefaultConfig().MeanReversion}
	in := Input{Symbol: "MR", Bars: bars, Indicators: indicator.Set{Price: 90, RSI: 25, ATR: 2}}
	setup := d.Detect(in)

	require.NotNil(t, setup)
	assert.Equal(t, Strong, setup.Edge)
	assert.Less(t, setup.ZScore, -2.5)
	assert.Greater(t, setup.Target, 90.0)

	in.Indicators.RSI = 45
	assert.Nil(t, d.Detect(in))
}

func TestSupportBounceDetector(t *testing.T) {
	d := &SupportBounceDetector{config: DefaultConfig().SupportBounce}
	hammer := model.Bar{Date: start, Open: 101, High: 101.5, Low: 98, Close: 101.2, Volume: 1000}
	bars := append(generateTestBars(make40(101), 1000), hammer)

	support := &levels.Level{Price: 100, Strength: 75, Type: levels.Support, Touches: 3}
	resistance := &levels.Level{Price: 108, Strength: 60, Type: levels.Resistance, Touches: 2}
	in := Input{
		Bars:       bars,
		Indicators: indicator.Set{Price: 101.2, ATR: 2},
		Levels:     levels.Analysis{Price: 101.2, NearestSupport: support, NearestResistance: resistance},
	}

	setup := d.Detect(in)
	require.NotNil(t, setup)
	assert.Equal(t, 108.0, setup.Target)
	assert.Equal(t, Medium, setup.Edge)

	in.Levels.NearestSupport = &levels.Level{Price: 95, Strength: 75, Type: levels.Support}
	assert.Nil(t, d.Detect(in), "too far above support")
}

func TestEventDriftDetector(t *testing.T) {
	d := &EventDriftDetector{config: DefaultConfig().EventDrift}
	bars := generateTestBars(make40(100), 1000)
	asOf := bars[len(bars)-1].Date
	in := Input{Bars: bars, Indicators: indicator.Set{Price: 100, ATR: 2}, AsOf: asOf}

	assert.Nil(t, d.Detect(in), "skipped without fundamentals")

	reported := asOf.AddDate(0, 0, -2)
	in.Fundamentals = &model.FundamentalData{LastEarningsDate: &reported, LastEarningsSurprise: 12}
	setup := d.Detect(in)
	require.NotNil(t, setup)
	assert.Equal(t, EarningsCatalyst, setup.Catalyst)
	assert.Equal(t, Strong, setup.Edge)
	assert.Equal(t, 8, setup.HoldingDays)

	exDate := asOf.AddDate(0, 0, 7)
	in.Fundamentals = &model.FundamentalData{ExDividendDate: &exDate, DividendYield: 0.035}
	setup = d.Detect(in)
	require.NotNil(t, setup)
	assert.Equal(t, DividendCatalyst, setup.Catalyst)
	assert.Equal(t, 7, setup.HoldingDays)

	exDate = asOf.AddDate(0, 0, 1)
	assert.Nil(t, d.Detect(in), "ex-date too close")
}

func TestFavorability(t *testing.T) {
	assert.Equal(t, Favorable, Favorability(Momentum, regime.Momentum))
	assert.Equal(t, Unfavorable, Favorability(MeanReversion, regime.BreakoutFollow))
	assert.Equal(t, Favorable, Favorability(SupportBounce, regime.MeanReversion))
	assert.Equal(t, Neutral, Favorability(EventDrift, regime.Momentum))
	for _, typ := range Types {
		assert.Equal(t, Unfavorable, Favorability(typ, regime.StayCash))
	}
}

func make40(c float64) []float64 {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = c
	}
	return closes
}
