package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata" // session dates need America/New_York everywhere

	"stockscope/internal/ratelimit"
	"stockscope/pkg/model"
)

const (
	yahooBaseURL   = "https://query1.finance.yahoo.com"
	yahooUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	yahooModules   = "summaryDetail,defaultKeyStatistics,financialData,calendarEvents,earningsHistory,assetProfile"
)

// YahooProvider implements the Provider interface for Yahoo Finance (unofficial API)
type YahooProvider struct {
	baseURL   string
	client    *http.Client
	limiter   *ratelimit.Limiter
	rateLimit int
	now       func() time.Time
}

// NewYahooProvider creates a new Yahoo Finance provider
func NewYahooProvider(rateLimitPerMin int) *YahooProvider {
	return &YahooProvider{
		baseURL:   yahooBaseURL,
		client:    &http.Client{Timeout: 30 * time.Second},
		limiter:   ratelimit.NewLimiter("yahoo", rateLimitPerMin),
		rateLimit: rateLimitPerMin,
		now:       time.Now,
	}
}

// Name returns the provider name
func (p *YahooProvider) Name() string {
	return "yahoo"
}

// IsAvailable always returns true (no API key needed)
func (p *YahooProvider) IsAvailable() bool {
	return true
}

// RateLimit returns the rate limit per minute
func (p *YahooProvider) RateLimit() int {
	return p.rateLimit
}

// yahooChart represents the chart API response. Quote values are null on
// sessions without trades.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"chart"`
}

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// yahooValue is Yahoo's {"raw": 1.23, "fmt": "1.23"} wrapper
type yahooValue struct {
	Raw float64 `json:"raw"`
}

type yahooSummary struct {
	QuoteSummary struct {
		Result []struct {
			SummaryDetail struct {
				MarketCap        *yahooValue `json:"marketCap"`
				TrailingPE       *yahooValue `json:"trailingPE"`
				ForwardPE        *yahooValue `json:"forwardPE"`
				Beta             *yahooValue `json:"beta"`
				FiftyTwoWeekHigh *yahooValue `json:"fiftyTwoWeekHigh"`
				FiftyTwoWeekLow  *yahooValue `json:"fiftyTwoWeekLow"`
				DividendYield    *yahooValue `json:"dividendYield"`
				DividendRate     *yahooValue `json:"dividendRate"`
				ExDividendDate   *yahooValue `json:"exDividendDate"`
			} `json:"summaryDetail"`
			DefaultKeyStatistics struct {
				PegRatio    *yahooValue `json:"pegRatio"`
				PriceToBook *yahooValue `json:"priceToBook"`
				TrailingEps *yahooValue `json:"trailingEps"`
			} `json:"defaultKeyStatistics"`
			FinancialData struct {
				RevenueGrowth  *yahooValue `json:"revenueGrowth"`
				EarningsGrowth *yahooValue `json:"earningsGrowth"`
				ProfitMargins  *yahooValue `json:"profitMargins"`
				ReturnOnEquity *yahooValue `json:"returnOnEquity"`
				DebtToEquity   *yahooValue `json:"debtToEquity"` // percent
			} `json:"financialData"`
			CalendarEvents struct {
				Earnings struct {
					EarningsDate []yahooValue `json:"earningsDate"`
				} `json:"earnings"`
			} `json:"calendarEvents"`
			EarningsHistory struct {
				History []struct {
					Quarter         *yahooValue `json:"quarter"` // fiscal period end, not the report date
					SurprisePercent *yahooValue `json:"surprisePercent"` // fraction
				} `json:"history"`
			} `json:"earningsHistory"`
			AssetProfile struct {
				Sector string `json:"sector"`
			} `json:"assetProfile"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"quoteSummary"`
}

// GetHistoricalData fetches bars from the chart endpoint
func (p *YahooProvider) GetHistoricalData(ctx context.Context, symbol, period, interval string) ([]model.Bar, error) {
	if interval == "" {
		interval = "1d"
	}
	q := url.Values{}
	q.Set("range", period)
	q.Set("interval", interval)
	q.Set("includePrePost", "false")
	q.Set("events", "div,split")

	var data yahooChart
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", p.baseURL, url.PathEscape(symbol), q.Encode())
	if err := p.get(ctx, endpoint, &data); err != nil {
		return nil, err
	}

	if data.Chart.Error != nil {
		return nil, permanent(p.Name(), "%s", data.Chart.Error.Description)
	}
	if len(data.Chart.Result) == 0 || len(data.Chart.Result[0].Timestamp) == 0 || len(data.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, permanent(p.Name(), "no data available for %s", symbol)
	}

	result := data.Chart.Result[0]
	quotes := result.Indicators.Quote[0]
	var adj []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adj = result.Indicators.AdjClose[0].AdjClose
	}

	bars := make([]model.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		open, high, low, closePx := at(quotes.Open, i), at(quotes.High, i), at(quotes.Low, i), at(quotes.Close, i)
		if closePx == nil {
			continue
		}
		bar := model.Bar{
			Date:  sessionDate(time.Unix(ts, 0)),
			Close: *closePx,
		}
		if open != nil {
			bar.Open = *open
		}
		if high != nil {
			bar.High = *high
		}
		if low != nil {
			bar.Low = *low
		}
		if v := at(quotes.Volume, i); v != nil {
			bar.Volume = *v
		}
		if a := at(adj, i); a != nil {
			bar.AdjClose = *a
		}
		bars = append(bars, bar)
	}

	return model.SanitizeBars(bars), nil
}

// GetFundamentals fetches fundamentals from the quoteSummary endpoint
func (p *YahooProvider) GetFundamentals(ctx context.Context, symbol string) (*model.FundamentalData, error) {
	var data yahooSummary
	endpoint := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=%s", p.baseURL, url.PathEscape(symbol), yahooModules)
	if err := p.get(ctx, endpoint, &data); err != nil {
		return nil, err
	}
	if data.QuoteSummary.Error != nil {
		return nil, permanent(p.Name(), "%s", data.QuoteSummary.Error.Description)
	}
	if len(data.QuoteSummary.Result) == 0 {
		return nil, permanent(p.Name(), "no fundamentals for %s", symbol)
	}

	r := data.QuoteSummary.Result[0]
	sd, ks, fd := r.SummaryDetail, r.DefaultKeyStatistics, r.FinancialData
	f := &model.FundamentalData{
		Symbol:         strings.ToUpper(symbol),
		Sector:         r.AssetProfile.Sector,
		MarketCap:      raw(sd.MarketCap),
		PERatio:        raw(sd.TrailingPE),
		ForwardPE:      raw(sd.ForwardPE),
		Beta:           raw(sd.Beta),
		Week52High:     raw(sd.FiftyTwoWeekHigh),
		Week52Low:      raw(sd.FiftyTwoWeekLow),
		DividendYield:  raw(sd.DividendYield),
		DividendAmount: raw(sd.DividendRate) / 4,
		PEGRatio:       raw(ks.PegRatio),
		PriceToBook:    raw(ks.PriceToBook),
		EPS:            raw(ks.TrailingEps),
		RevenueGrowth:  raw(fd.RevenueGrowth),
		EarningsGrowth: raw(fd.EarningsGrowth),
		ProfitMargin:   raw(fd.ProfitMargins),
		ReturnOnEquity: raw(fd.ReturnOnEquity),
		DebtToEquity:   raw(fd.DebtToEquity) / 100,
		ExDividendDate: unixDate(sd.ExDividendDate),
	}

	applyEarningsDates(f, r.CalendarEvents.Earnings.EarningsDate, sessionDate(p.now()))
	// history is oldest first; the last entry is the latest report. Its
	// quarter field is the period end, so the report date comes from the
	// calendar and the surprise is dropped when the calendar has none.
	if h := r.EarningsHistory.History; len(h) > 0 && f.LastEarningsDate != nil {
		f.LastEarningsSurprise = raw(h[len(h)-1].SurprisePercent) * 100
	}
	return f, nil
}

// applyEarningsDates splits calendar report dates around today. Yahoo keeps
// the latest report on the calendar until the next one is announced.
func applyEarningsDates(f *model.FundamentalData, dates []yahooValue, today time.Time) {
	for i := range dates {
		d := unixDate(&dates[i])
		if d == nil {
			continue
		}
		if d.After(today) {
			if f.NextEarningsDate == nil || d.Before(*f.NextEarningsDate) {
				f.NextEarningsDate = d
			}
			continue
		}
		if f.LastEarningsDate == nil || d.After(*f.LastEarningsDate) {
			f.LastEarningsDate = d
		}
	}
}

// get performs a rate-limited GET and decodes the JSON body into out
func (p *YahooProvider) get(ctx context.Context, endpoint string, out any) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", yahooUserAgent)

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

func at[T any](s []*T, i int) *T {
	if i < len(s) {
		return s[i]
	}
	return nil
}

func raw(v *yahooValue) float64 {
	if v == nil {
		return 0
	}
	return v.Raw
}

func unixDate(v *yahooValue) *time.Time {
	if v == nil || v.Raw <= 0 {
		return nil
	}
	d := sessionDate(time.Unix(int64(v.Raw), 0))
	return &d
}

var newYork = loadLocation("America/New_York")

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// sessionDate returns the New York trading date of t as midnight UTC
func sessionDate(t time.Time) time.Time {
	y, m, d := t.In(newYork).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
