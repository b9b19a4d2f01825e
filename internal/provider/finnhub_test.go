package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockscope/pkg/model"
)

func newTestFinnhub(t *testing.T, routes map[string]string) *FinnhubProvider {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("token"))
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	p := NewFinnhubProvider("secret", 600)
	p.baseURL = srv.URL
	p.now = func() time.Time { return time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC) }
	return p
}

func TestFinnhubHistoricalData(t *testing.T) {
	p := newTestFinnhub(t, map[string]string{
		"/stock/candle": `{"s":"ok","t":[1704205800,1704292200],"o":[185,184],"h":[188,185],"l":[183,181],"c":[185.6,184.2],"v":[82488700,58414500]}`,
	})

	bars, err := p.GetHistoricalData(context.Background(), "AAPL", "6mo", "1d")
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), bars[1].Date)
	assert.Equal(t, int64(58414500), bars[1].Volume)

	_, err = p.GetHistoricalData(context.Background(), "AAPL", "6mo", "5m")
	assert.ErrorIs(t, err, ErrNotSupported)

	_, err = p.GetHistoricalData(context.Background(), "AAPL", "forever", "1d")
	assert.Error(t, err)
}

func TestFinnhubNoData(t *testing.T) {
	p := newTestFinnhub(t, map[string]string{"/stock/candle": `{"s":"no_data"}`})
	_, err := p.GetHistoricalData(context.Background(), "ZZZZ", "1y", "1d")
	require.Error(t, err)
	assert.False(t, IsRetryable(err))
}

func TestFinnhubFundamentals(t *testing.T) {
	p := newTestFinnhub(t, map[string]string{
		"/stock/metric":   `{"metric":{"marketCapitalization":2900000,"peBasicExclExtraTTM":29.5,"beta":1.25,"dividendYieldIndicatedAnnual":0.52,"revenueGrowthTTMYoy":-2.8,"epsGrowthTTMYoy":10.5,"netProfitMarginTTM":26.2,"roeTTM":154.3,"totalDebt/totalEquityQuarterly":1.45}}`,
		"/stock/profile2": `{"finnhubIndustry":"Technology"}`,
		"/calendar/earnings": `{"earningsCalendar":[
			{"date":"2024-04-25","epsActual":null,"epsEstimate":1.5},
			{"date":"2024-01-25","epsActual":2.18,"epsEstimate":2.10},
			{"date":"2023-11-02","epsActual":1.46,"epsEstimate":1.39}]}`,
	})

	f, err := p.GetFundamentals(context.Background(), "aapl")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", f.Symbol)
	assert.Equal(t, "Technology", f.Sector)
	assert.Equal(t, 2.9e12, f.MarketCap)
	assert.InDelta(t, 0.0052, f.DividendYield, 1e-12)
	assert.InDelta(t, -0.028, f.RevenueGrowth, 1e-12)
	assert.InDelta(t, 0.105, f.EarningsGrowth, 1e-12)
	assert.Equal(t, 1.45, f.DebtToEquity)

	require.NotNil(t, f.NextEarningsDate)
	assert.Equal(t, "2024-04-25", f.NextEarningsDate.Format(time.DateOnly))
	require.NotNil(t, f.LastEarningsDate)
	assert.Equal(t, "2024-01-25", f.LastEarningsDate.Format(time.DateOnly))
	assert.InDelta(t, 0.08/2.10*100, f.LastEarningsSurprise, 1e-9)
}

func TestFinnhubFundamentalsToleratesMissingExtras(t *testing.T) {
	p := newTestFinnhub(t, map[string]string{"/stock/metric": `{"metric":{"beta":0.9}}`})

	f, err := p.GetFundamentals(context.Background(), "KO")
	require.NoError(t, err)
	assert.Empty(t, f.Sector)
	assert.Nil(t, f.NextEarningsDate)
	assert.Equal(t, 0.9, f.Beta)
}

func TestFinnhubAvailability(t *testing.T) {
	assert.False(t, NewFinnhubProvider("", 60).IsAvailable())
	assert.True(t, NewFinnhubProvider("key", 60).IsAvailable())
}

func TestApplyEarningsZeroEstimate(t *testing.T) {
	var e finnhubEarnings
	require.NoError(t, json.Unmarshal([]byte(`{"earningsCalendar":[{"date":"2024-01-10","epsActual":0.5,"epsEstimate":0}]}`), &e))

	f := &model.FundamentalData{}
	applyEarnings(f, e, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NotNil(t, f.LastEarningsDate)
	assert.Nil(t, f.NextEarningsDate)
	assert.Zero(t, f.LastEarningsSurprise)
}
