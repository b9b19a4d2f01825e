package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stockscope/internal/ratelimit"
	"stockscope/pkg/model"
)

const finnhubBaseURL = "https://finnhub.io/api/v1"

// FinnhubProvider implements the Provider interface for Finnhub API
type FinnhubProvider struct {
	apiKey    string
	baseURL   string
	client    *http.Client
	limiter   *ratelimit.Limiter
	rateLimit int
	now       func() time.Time
}

// NewFinnhubProvider creates a new Finnhub provider
func NewFinnhubProvider(apiKey string, rateLimitPerMin int) *FinnhubProvider {
	return &FinnhubProvider{
		apiKey:    apiKey,
		baseURL:   finnhubBaseURL,
		client:    &http.Client{Timeout: 30 * time.Second},
		limiter:   ratelimit.NewLimiter("finnhub", rateLimitPerMin),
		rateLimit: rateLimitPerMin,
		now:       time.Now,
	}
}

// Name returns the provider name
func (p *FinnhubProvider) Name() string {
	return "finnhub"
}

// IsAvailable checks if the provider has an API key
func (p *FinnhubProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// RateLimit returns the rate limit per minute
func (p *FinnhubProvider) RateLimit() int {
	return p.rateLimit
}

// finnhubCandle represents the Finnhub candle response
type finnhubCandle struct {
	C []float64 `json:"c"` // Close prices
	H []float64 `json:"h"` // High prices
	L []float64 `json:"l"` // Low prices
	O []float64 `json:"o"` // Open prices
	S string    `json:"s"` // Status
	T []int64   `json:"t"` // Timestamps
	V []float64 `json:"v"` // Volumes
}

// finnhubMetrics holds the fields read from /stock/metric. Percent-valued
// metrics are converted to fractions.
type finnhubMetrics struct {
	Metric struct {
		MarketCap     float64 `json:"marketCapitalization"` // millions
		PE            float64 `json:"peBasicExclExtraTTM"`
		PB            float64 `json:"pbQuarterly"`
		EPS           float64 `json:"epsTTM"`
		Beta          float64 `json:"beta"`
		High52        float64 `json:"52WeekHigh"`
		Low52         float64 `json:"52WeekLow"`
		DividendYield float64 `json:"dividendYieldIndicatedAnnual"` // percent
		DividendPerSh float64 `json:"dividendPerShareAnnual"`
		RevenueGrowth float64 `json:"revenueGrowthTTMYoy"` // percent
		EPSGrowth     float64 `json:"epsGrowthTTMYoy"`     // percent
		NetMargin     float64 `json:"netProfitMarginTTM"`  // percent
		ROE           float64 `json:"roeTTM"`              // percent
		DebtToEquity  float64 `json:"totalDebt/totalEquityQuarterly"`
	} `json:"metric"`
}

type finnhubProfile struct {
	Industry string `json:"finnhubIndustry"`
}

type finnhubEarnings struct {
	EarningsCalendar []struct {
		Date        string   `json:"date"`
		EPSActual   *float64 `json:"epsActual"`
		EPSEstimate *float64 `json:"epsEstimate"`
	} `json:"earningsCalendar"`
}

// GetHistoricalData fetches daily candles
func (p *FinnhubProvider) GetHistoricalData(ctx context.Context, symbol, period, interval string) ([]model.Bar, error) {
	if err := requireDaily(p.Name(), interval); err != nil {
		return nil, err
	}
	now := p.now()
	from, err := PeriodStart(now, period)
	if err != nil {
		return nil, permanent(p.Name(), "%w", err)
	}

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("resolution", "D")
	q.Set("from", fmt.Sprint(from.Unix()))
	q.Set("to", fmt.Sprint(now.Unix()))

	var data finnhubCandle
	if err := p.get(ctx, "/stock/candle", q, &data); err != nil {
		return nil, err
	}
	if data.S != "ok" || len(data.T) == 0 {
		return nil, permanent(p.Name(), "no data available for %s", symbol)
	}

	bars := make([]model.Bar, 0, len(data.T))
	for i := range data.T {
		if i >= len(data.O) || i >= len(data.H) || i >= len(data.L) || i >= len(data.C) {
			continue
		}
		var volume int64
		if i < len(data.V) {
			volume = int64(math.Round(data.V[i]))
		}
		bars = append(bars, model.Bar{
			Date:   sessionDate(time.Unix(data.T[i], 0)),
			Open:   data.O[i],
			High:   data.H[i],
			Low:    data.L[i],
			Close:  data.C[i],
			Volume: volume,
		})
	}
	return model.SanitizeBars(bars), nil
}

// GetFundamentals combines the metric, profile and earnings calendar
// endpoints. Only the metric call is required.
func (p *FinnhubProvider) GetFundamentals(ctx context.Context, symbol string) (*model.FundamentalData, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("metric", "all")

	var m finnhubMetrics
	if err := p.get(ctx, "/stock/metric", q, &m); err != nil {
		return nil, err
	}

	mt := m.Metric
	f := &model.FundamentalData{
		Symbol:         strings.ToUpper(symbol),
		MarketCap:      mt.MarketCap * 1e6,
		PERatio:        mt.PE,
		PriceToBook:    mt.PB,
		EPS:            mt.EPS,
		Beta:           mt.Beta,
		Week52High:     mt.High52,
		Week52Low:      mt.Low52,
		DividendYield:  mt.DividendYield / 100,
		DividendAmount: mt.DividendPerSh / 4,
		RevenueGrowth:  mt.RevenueGrowth / 100,
		EarningsGrowth: mt.EPSGrowth / 100,
		ProfitMargin:   mt.NetMargin / 100,
		ReturnOnEquity: mt.ROE / 100,
		DebtToEquity:   mt.DebtToEquity,
	}

	var profile finnhubProfile
	if err := p.get(ctx, "/stock/profile2", url.Values{"symbol": {symbol}}, &profile); err == nil {
		f.Sector = profile.Industry
	}

	now := p.now()
	cal := url.Values{}
	cal.Set("symbol", symbol)
	cal.Set("from", now.AddDate(0, -6, 0).Format(time.DateOnly))
	cal.Set("to", now.AddDate(0, 6, 0).Format(time.DateOnly))
	var earnings finnhubEarnings
	if err := p.get(ctx, "/calendar/earnings", cal, &earnings); err == nil {
		applyEarnings(f, earnings, sessionDate(now))
	}
	return f, nil
}

// applyEarnings sets the next scheduled and latest reported earnings
func applyEarnings(f *model.FundamentalData, e finnhubEarnings, today time.Time) {
	for _, entry := range e.EarningsCalendar {
		d, err := time.Parse(time.DateOnly, entry.Date)
		if err != nil {
			continue
		}
		if entry.EPSActual == nil || d.After(today) {
			if f.NextEarningsDate == nil || d.Before(*f.NextEarningsDate) {
				f.NextEarningsDate = &d
			}
			continue
		}
		if f.LastEarningsDate == nil || d.After(*f.LastEarningsDate) {
			f.LastEarningsDate = &d
			f.LastEarningsSurprise = 0
			if est := entry.EPSEstimate; est != nil && *est != 0 {
				f.LastEarningsSurprise = (*entry.EPSActual - *est) / math.Abs(*est) * 100
			}
		}
	}
}

// get performs a rate-limited GET against path and decodes the body into out
func (p *FinnhubProvider) get(ctx context.Context, path string, q url.Values, out any) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	q.Set("token", p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return retryable(p.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		p.limiter.SignalRateLimited()
		return retryable(p.Name(), fmt.Errorf("rate limited"))
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return retryable(p.Name(), fmt.Errorf("status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return permanent(p.Name(), "status %d", resp.StatusCode)
	}

	p.limiter.ResetBackoff()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return permanent(p.Name(), "decoding response: %w", err)
	}
	return nil
}
