package position

import (
	"github.com/shopspring/decimal"
)

// Allocation converts a portfolio percentage into an order
type Allocation struct {
	SizePct      float64 `json:"size_pct"`
	Shares       int64   `json:"shares"`
	InvestAmount float64 `json:"invest_amount"`
	RiskAmount   float64 `json:"risk_amount"`  // loss if the stop is hit, costs included
	MaxLossPct   float64 `json:"max_loss_pct"` // of capital
}

// Sizer calculates share counts for a capital amount
type Sizer struct {
	Capital    float64 // total account value
	Commission float64 // per side, 0.0005 = 0.05%
	Slippage   float64 // per side
}

// NewSizer creates a new sizer with default costs
func NewSizer(capital float64) *Sizer {
	return &Sizer{
		Capital:    capital,
		Commission: 0.0005,
		Slippage:   0.001,
	}
}

// Allocate sizes a long position of sizePct percent of capital at entry
// with a protective stop. Amounts are rounded to cents.
func (s *Sizer) Allocate(entry, stop, sizePct float64) Allocation {
	alloc := Allocation{SizePct: sizePct}
	if s.Capital <= 0 || entry <= 0 || sizePct <= 0 {
		return alloc
	}

	budget := decimal.NewFromFloat(s.Capital).Mul(decimal.NewFromFloat(sizePct)).Div(decimal.NewFromInt(100))
	price := decimal.NewFromFloat(entry)
	shares := budget.Div(price).Floor()
	alloc.Shares = shares.IntPart()
	if alloc.Shares == 0 {
		return alloc
	}

	invest := shares.Mul(price)
	alloc.InvestAmount = invest.Round(2).InexactFloat64()

	perShare := decimal.Zero
	if stop > 0 && stop < entry {
		perShare = price.Sub(decimal.NewFromFloat(stop))
	}
	costs := invest.Mul(decimal.NewFromFloat((s.Commission + s.Slippage) * 2))
	risk := shares.Mul(perShare).Add(costs)
	alloc.RiskAmount = risk.Round(2).InexactFloat64()
	alloc.MaxLossPct = risk.Div(decimal.NewFromFloat(s.Capital)).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
	return alloc
}

// RoundPrice rounds a price to cents
func RoundPrice(p float64) float64 {
	return decimal.NewFromFloat(p).Round(2).InexactFloat64()
}
