package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"stockscope/internal/ratelimit"
	"stockscope/pkg/model"
)

// AlpacaProvider serves daily bars from the Alpaca market-data API. It has
// no fundamentals.
type AlpacaProvider struct {
	apiKey    string
	client    *marketdata.Client
	limiter   *ratelimit.Limiter
	rateLimit int
	now       func() time.Time
}

// NewAlpacaProvider creates a new Alpaca provider on the free IEX feed.
// baseURL may be empty for the production endpoint.
func NewAlpacaProvider(apiKey, apiSecret, baseURL string, rateLimitPerMin int) *AlpacaProvider {
	return &AlpacaProvider{
		apiKey: apiKey,
		client: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
			BaseURL:   baseURL,
			Feed:      marketdata.IEX,
		}),
		limiter:   ratelimit.NewLimiter("alpaca", rateLimitPerMin),
		rateLimit: rateLimitPerMin,
		now:       time.Now,
	}
}

// Name returns the provider name
func (p *AlpacaProvider) Name() string {
	return "alpaca"
}

// IsAvailable checks if the provider has API credentials
func (p *AlpacaProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// RateLimit returns the rate limit per minute
func (p *AlpacaProvider) RateLimit() int {
	return p.rateLimit
}

// GetHistoricalData fetches split and dividend adjusted daily bars
func (p *AlpacaProvider) GetHistoricalData(ctx context.Context, symbol, period, interval string) ([]model.Bar, error) {
	if err := requireDaily(p.Name(), interval); err != nil {
		return nil, err
	}
	now := p.now()
	start, err := PeriodStart(now, period)
	if err != nil {
		return nil, permanent(p.Name(), "%w", err)
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	// the SDK call is not context-aware
	bars, err := p.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame:  marketdata.OneDay,
		Start:      start,
		End:        now,
		Adjustment: marketdata.All,
	})
	if err != nil {
		return nil, retryable(p.Name(), fmt.Errorf("bars for %s: %w", symbol, err))
	}
	if len(bars) == 0 {
		return nil, permanent(p.Name(), "no data available for %s", symbol)
	}
	return convertAlpacaBars(bars), nil
}

// GetFundamentals is not offered by the market-data API
func (p *AlpacaProvider) GetFundamentals(ctx context.Context, symbol string) (*model.FundamentalData, error) {
	return nil, permanent(p.Name(), "fundamentals: %w", ErrNotSupported)
}

func convertAlpacaBars(in []marketdata.Bar) []model.Bar {
	bars := make([]model.Bar, 0, len(in))
	for _, b := range in {
		bars = append(bars, model.Bar{
			Date:     sessionDate(b.Timestamp),
			Open:     b.Open,
			High:     b.High,
			Low:      b.Low,
			Close:    b.Close,
			Volume:   int64(b.Volume),
			AdjClose: b.Close,
		})
	}
	return model.SanitizeBars(bars)
}
