package position

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKelly(t *testing.T) {
	tests := []struct {
		name string
		p, b float64
		want float64
	}{
		{"positive edge", 0.6, 2, 10},      // (1.2-0.4)/2 = 0.4 * 0.25
		{"capped", 0.9, 5, 15},             // (4.5-0.1)/5 = 0.88 * 0.25 = 22%
		{"no edge", 0.5, 1, 0},
		{"negative edge", 0.4, 1, 0},
		{"zero payoff", 0.6, 0, 0},
		{"certain win", 1, 2, 0},
		{"nan", math.NaN(), 2, 0},
		{"inf payoff", 0.6, math.Inf(1), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Kelly(tt.p, tt.b, 0.25, 15), 1e-9)
		})
	}
}

func TestKellyBounds(t *testing.T) {
	for p := 0.0; p <= 1.0; p += 0.05 {
		for b := 0.0; b <= 10; b += 0.25 {
			k := Kelly(p, b, 0.25, 15)
			assert.GreaterOrEqual(t, k, 0.0)
			assert.LessOrEqual(t, k, 15.0)
			assert.False(t, math.IsNaN(k))
		}
	}
}

func TestBreakevenWinRate(t *testing.T) {
	assert.InDelta(t, 1.0/3, BreakevenWinRate(2), 1e-9)
	assert.Equal(t, 1.0, BreakevenWinRate(0))
}

func TestAllocate(t *testing.T) {
	s := &Sizer{Capital: 100000}

	alloc := s.Allocate(50, 48, 10)
	assert.Equal(t, int64(200), alloc.Shares)
	assert.Equal(t, 10000.0, alloc.InvestAmount)
	assert.Equal(t, 400.0, alloc.RiskAmount)
	assert.Equal(t, 0.4, alloc.MaxLossPct)

	alloc = s.Allocate(33.33, 30, 5)
	assert.Equal(t, int64(150), alloc.Shares)
	assert.Equal(t, 4999.5, alloc.InvestAmount)

	assert.Zero(t, s.Allocate(0, 0, 10).Shares)
	assert.Zero(t, s.Allocate(200000, 190000, 10).Shares)
}

func TestRoundPrice(t *testing.T) {
	assert.Equal(t, 12.35, RoundPrice(12.345))
	assert.Equal(t, 99.99, RoundPrice(99.9949))
}
