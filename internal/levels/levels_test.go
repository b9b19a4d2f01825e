package levels

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockscope/pkg/model"
)

// generateWaveBars oscillates close around 100 with a 20-session period
func generateWaveBars(n int) []model.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.Bar, n)
	for i := range bars {
		c := 100 + 10*math.Sin(2*math.Pi*float64(i)/20)
		bars[i] = model.Bar{
			Date:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

func TestCalculatePivots(t *testing.T) {
	p := CalculatePivots(model.Bar{High: 110, Low: 90, Close: 100})

	assert.InDelta(t, 100.0, p.Pivot, 1e-9)
	assert.InDelta(t, 110.0, p.R1, 1e-9)
	assert.InDelta(t, 90.0, p.S1, 1e-9)
	assert.InDelta(t, 120.0, p.R2, 1e-9)
	assert.InDelta(t, 80.0, p.S2, 1e-9)
	assert.InDelta(t, 130.0, p.R3, 1e-9)
	assert.InDelta(t, 70.0, p.S3, 1e-9)
}

func TestSwingPointsStrictDominance(t *testing.T) {
	bars := make([]model.Bar, 11)
	for i := range bars {
		bars[i] = model.Bar{High: 10, Low: 5, Close: 8}
	}
	highs, lows := SwingPoints(bars, 2)
	assert.Empty(t, highs, "a plateau is not a swing high")
	assert.Empty(t, lows)

	bars[5].High = 12
	bars[5].Low = 4
	highs, lows = SwingPoints(bars, 2)
	require.Len(t, highs, 1)
	require.Len(t, lows, 1)
	assert.Equal(t, 12.0, highs[0].Price)
	assert.Equal(t, 4.0, lows[0].Price)
}

func TestAnalyzeWave(t *testing.T) {
	a := NewAnalyzer(DefaultConfig())
	result := a.Analyze(generateWaveBars(100))

	require.NotNil(t, result.NearestSupport)
	require.NotNil(t, result.NearestResistance)

	assert.InDelta(t, 89.0, result.NearestSupport.Price, 0.01)
	assert.InDelta(t, 111.0, result.NearestResistance.Price, 0.01)
	assert.Equal(t, Support, result.NearestSupport.Type)
	assert.Equal(t, Resistance, result.NearestResistance.Type)
	assert.Equal(t, 4, result.NearestSupport.Touches)
	assert.Equal(t, 5, result.NearestResistance.Touches)
	assert.True(t, result.NearestSupport.Historical)

	for _, l := range result.Levels {
		assert.GreaterOrEqual(t, l.Touches, 2)
		assert.LessOrEqual(t, l.Strength, 100.0)
		assert.Greater(t, l.Strength, 0.0)
	}
	for i := 1; i < len(result.Levels); i++ {
		assert.GreaterOrEqual(t, result.Levels[i-1].Strength, result.Levels[i].Strength)
	}
}

func TestAnalyzeShortHistory(t *testing.T) {
	a := NewAnalyzer(DefaultConfig())

	empty := a.Analyze(nil)
	assert.Empty(t, empty.Levels)
	assert.Nil(t, empty.NearestSupport)

	short := a.Analyze(generateWaveBars(8))
	assert.Empty(t, short.Levels)
	assert.NotZero(t, short.Pivots.Pivot)
}

func TestClamp(t *testing.T) {
	a := NewAnalyzer(DefaultConfig())
	support := &Level{Price: 99, Strength: 80, Type: Support}
	resistance := &Level{Price: 105, Strength: 80, Type: Resistance}
	weak := &Level{Price: 105, Strength: 30, Type: Resistance}

	tests := []struct {
		name       string
		an         Analysis
		predicted  float64
		wantPrice  float64
		wantFactor float64
	}{
		{"caps above strong resistance", Analysis{Price: 100, NearestResistance: resistance}, 107, 105, 0.85},
		{"weak resistance does not cap", Analysis{Price: 100, NearestResistance: weak}, 107, 107, 1},
		{"bounce off nearby support", Analysis{Price: 100, NearestSupport: support, NearestResistance: resistance}, 102, 102, 1.1},
		{"caps below strong support", Analysis{Price: 100, NearestSupport: support}, 97, 99, 0.85},
		{"no levels", Analysis{Price: 100}, 101, 101, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, factor := a.Clamp(tt.an, tt.predicted)
			assert.InDelta(t, tt.wantPrice, price, 1e-9)
			assert.InDelta(t, tt.wantFactor, factor, 1e-9)
		})
	}
}

func TestTypeText(t *testing.T) {
	var typ Type
	require.NoError(t, typ.UnmarshalText([]byte("resistance")))
	assert.Equal(t, Resistance, typ)
	assert.Error(t, typ.UnmarshalText([]byte("sideways")))
}
