package model

import "time"

// FundamentalData holds optional company fundamentals.
// Zero values mean "not reported"; date pointers are nil when unknown.
type FundamentalData struct {
	Symbol string `json:"symbol"`
	Sector string `json:"sector,omitempty"`

	MarketCap      float64 `json:"market_cap"`
	PERatio        float64 `json:"pe_ratio"`
	ForwardPE      float64 `json:"forward_pe"`
	PEGRatio       float64 `json:"peg_ratio"`
	PriceToBook    float64 `json:"price_to_book"`
	EPS            float64 `json:"eps"`
	Beta           float64 `json:"beta"`
	Week52High     float64 `json:"week52_high"`
	Week52Low      float64 `json:"week52_low"`
	DividendYield  float64 `json:"dividend_yield"`  // fraction, 0.02 = 2%
	DividendAmount float64 `json:"dividend_amount"` // per share, per payment

	RevenueGrowth  float64 `json:"revenue_growth"`  // fraction
	EarningsGrowth float64 `json:"earnings_growth"` // fraction
	ProfitMargin   float64 `json:"profit_margin"`   // fraction
	ReturnOnEquity float64 `json:"return_on_equity"`
	DebtToEquity   float64 `json:"debt_to_equity"` // ratio, 1.5 = 150%

	NextEarningsDate     *time.Time `json:"next_earnings_date,omitempty"`
	LastEarningsDate     *time.Time `json:"last_earnings_date,omitempty"`
	LastEarningsSurprise float64    `json:"last_earnings_surprise"` // percent
	ExDividendDate       *time.Time `json:"ex_dividend_date,omitempty"`
}

// HasEarningsCalendar reports whether any earnings date is known
func (f *FundamentalData) HasEarningsCalendar() bool {
	return f != nil && (f.NextEarningsDate != nil || f.LastEarningsDate != nil)
}
