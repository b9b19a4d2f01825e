package provider

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"stockscope/pkg/model"
)

// CachingProvider wraps a Provider with an in-memory cache, an optional shared
// BarCache and per-key request de-duplication. A scan and a prediction on the
// same symbol share one download.
type CachingProvider struct {
	inner  Provider
	shared BarCache
	ttl    time.Duration
	now    func() time.Time

	mu           sync.Mutex
	bars         map[string]cachedBars
	fundamentals map[string]cachedFundamentals

	group singleflight.Group
}

type cachedBars struct {
	bars    []model.Bar
	expires time.Time
}

type cachedFundamentals struct {
	data    *model.FundamentalData
	expires time.Time
}

// NewCachingProvider creates a caching wrapper. shared may be nil.
func NewCachingProvider(inner Provider, ttl time.Duration, shared BarCache) *CachingProvider {
	return &CachingProvider{
		inner:        inner,
		shared:       shared,
		ttl:          ttl,
		now:          time.Now,
		bars:         make(map[string]cachedBars),
		fundamentals: make(map[string]cachedFundamentals),
	}
}

func (p *CachingProvider) Name() string      { return p.inner.Name() }
func (p *CachingProvider) IsAvailable() bool { return p.inner.IsAvailable() }
func (p *CachingProvider) RateLimit() int    { return p.inner.RateLimit() }

// GetHistoricalData serves from memory, then the shared cache, then the
// wrapped provider
func (p *CachingProvider) GetHistoricalData(ctx context.Context, symbol, period, interval string) ([]model.Bar, error) {
	key := strings.Join([]string{strings.ToUpper(symbol), period, interval}, "|")

	p.mu.Lock()
	if e, ok := p.bars[key]; ok && p.now().Before(e.expires) {
		p.mu.Unlock()
		return slices.Clone(e.bars), nil
	}
	p.mu.Unlock()

	v, err, _ := p.group.Do(key, func() (any, error) {
		if p.shared != nil {
			bars, ok, err := p.shared.Get(ctx, key)
			if err != nil {
				log.Warn().Err(err).Str("key", key).Msg("Shared bar cache read failed")
			}
			if ok {
				p.storeBars(key, bars)
				return bars, nil
			}
		}

		bars, err := p.inner.GetHistoricalData(ctx, symbol, period, interval)
		if err != nil {
			return nil, err
		}
		p.storeBars(key, bars)
		if p.shared != nil {
			if err := p.shared.Set(ctx, key, bars, p.ttl); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("Shared bar cache write failed")
			}
		}
		return bars, nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]model.Bar)), nil
}

// GetFundamentals caches successful lookups in memory
func (p *CachingProvider) GetFundamentals(ctx context.Context, symbol string) (*model.FundamentalData, error) {
	key := strings.ToUpper(symbol)

	p.mu.Lock()
	if e, ok := p.fundamentals[key]; ok && p.now().Before(e.expires) {
		p.mu.Unlock()
		return e.data, nil
	}
	p.mu.Unlock()

	v, err, _ := p.group.Do("fundamentals|"+key, func() (any, error) {
		data, err := p.inner.GetFundamentals(ctx, symbol)
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.fundamentals[key] = cachedFundamentals{data: data, expires: p.now().Add(p.ttl)}
		p.mu.Unlock()
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.FundamentalData), nil
}

func (p *CachingProvider) storeBars(key string, bars []model.Bar) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bars[key] = cachedBars{bars: bars, expires: p.now().Add(p.ttl)}
}
