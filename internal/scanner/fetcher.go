// Package scanner fetches market data in rate-friendly batches and runs the
// analysis engine over it.
package scanner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"stockscope/internal/metrics"
	"stockscope/internal/provider"
	"stockscope/pkg/model"
)

// ProgressCallback is called with progress updates
type ProgressCallback func(fetched, total int)

// FetchConfig controls how symbols are downloaded
type FetchConfig struct {
	BatchSize  int           `yaml:"batch_size" default:"2" validate:"gte=1"`
	BatchDelay time.Duration `yaml:"batch_delay" default:"800ms" validate:"gte=0"`
	Period     string        `yaml:"period" default:"1y" validate:"required"`
	Interval   string        `yaml:"interval" default:"1d" validate:"eq=1d"`
}

// DefaultFetchConfig returns default configuration
func DefaultFetchConfig() FetchConfig {
	return FetchConfig{
		BatchSize:  2,
		BatchDelay: 800 * time.Millisecond,
		Period:     "1y",
		Interval:   "1d",
	}
}

// Failure records a symbol that could not be fetched
type Failure struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// Fetcher downloads bars and fundamentals for many symbols. Symbols are
// fetched concurrently within a batch and batches are separated by a pause.
type Fetcher struct {
	provider     provider.Provider
	config       FetchConfig
	metrics      *metrics.Recorder
	progressFunc ProgressCallback
	sleep        func(ctx context.Context, d time.Duration) error
}

// NewFetcher creates a new fetcher. rec may be nil.
func NewFetcher(p provider.Provider, cfg FetchConfig, rec *metrics.Recorder) *Fetcher {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	return &Fetcher{
		provider: p,
		config:   cfg,
		metrics:  rec,
		sleep:    sleepCtx,
	}
}

// SetProgressCallback sets the progress callback function
func (f *Fetcher) SetProgressCallback(fn ProgressCallback) {
	f.progressFunc = fn
}

// FetchBars downloads period of daily bars for every symbol. Failed or empty
// symbols are reported and left out of the map. The error is non-nil only
// when ctx ends.
func (f *Fetcher) FetchBars(ctx context.Context, symbols []string, period string) (map[string][]model.Bar, []Failure, error) {
	if period == "" {
		period = f.config.Period
	}

	out := make(map[string][]model.Bar, len(symbols))
	var failures []Failure
	var mu sync.Mutex

	err := f.batches(ctx, symbols, func(ctx context.Context, sym string) {
		bars, err := f.fetchBars(ctx, sym, period)

		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			log.Warn().Err(err).Str("symbol", sym).Msg("Excluding symbol after failed fetch")
			failures = append(failures, Failure{Symbol: sym, Reason: err.Error(), Err: err})
			return
		}
		out[sym] = bars
	})
	return out, failures, err
}

// FetchFundamentals downloads fundamentals for every symbol. Failures are
// tolerated and simply omitted.
func (f *Fetcher) FetchFundamentals(ctx context.Context, symbols []string) (map[string]*model.FundamentalData, error) {
	out := make(map[string]*model.FundamentalData, len(symbols))
	var mu sync.Mutex

	err := f.batches(ctx, symbols, func(ctx context.Context, sym string) {
		fd, err := f.provider.GetFundamentals(ctx, sym)
		if err != nil || fd == nil {
			log.Debug().Err(err).Str("symbol", sym).Msg("No fundamentals, continuing with technicals only")
			return
		}
		mu.Lock()
		out[sym] = fd
		mu.Unlock()
	})
	return out, err
}

func (f *Fetcher) fetchBars(ctx context.Context, symbol, period string) ([]model.Bar, error) {
	start := time.Now()
	bars, err := f.provider.GetHistoricalData(ctx, symbol, period, f.config.Interval)
	if err == nil {
		bars = model.SanitizeBars(bars)
		if len(bars) == 0 {
			err = fmt.Errorf("%s: no bars returned", symbol)
		}
	}
	f.metrics.RecordFetch(f.provider.Name(), err == nil, time.Since(start))
	return bars, err
}

// batches runs fn over symbols batch by batch, waiting for each batch to
// finish and pausing before the next one
func (f *Fetcher) batches(ctx context.Context, symbols []string, fn func(ctx context.Context, sym string)) error {
	total := len(symbols)
	done := 0

	for start := 0; start < total; start += f.config.BatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		if start > 0 && f.config.BatchDelay > 0 {
			if err := f.sleep(ctx, f.config.BatchDelay); err != nil {
				return err
			}
		}

		batch := symbols[start:min(start+f.config.BatchSize, total)]
		var wg sync.WaitGroup
		for _, sym := range batch {
			wg.Add(1)
			go func() {
				defer wg.Done()
				fn(ctx, sym)
			}()
		}
		wg.Wait()

		done += len(batch)
		if f.progressFunc != nil {
			f.progressFunc(done, total)
		}
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

