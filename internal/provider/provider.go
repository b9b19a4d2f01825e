// Package provider fetches daily bars and fundamentals from market-data
// services.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"stockscope/pkg/model"
)

// ErrNotSupported is wrapped by providers that lack an operation
var ErrNotSupported = errors.New("operation not supported")

// Provider defines the interface for data providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// GetHistoricalData fetches bars covering period ("6mo", "1y", "5y", "max")
	// at interval ("1d"), oldest first
	GetHistoricalData(ctx context.Context, symbol, period, interval string) ([]model.Bar, error)

	// GetFundamentals fetches company fundamentals. Callers treat a failure
	// as "no fundamentals".
	GetFundamentals(ctx context.Context, symbol string) (*model.FundamentalData, error)

	// IsAvailable checks if the provider is available (has valid API key)
	IsAvailable() bool

	// RateLimit returns the rate limit per minute
	RateLimit() int
}

// ProviderError represents a provider-specific error
type ProviderError struct {
	Provider  string
	Err       error
	Retryable bool
}

func (e *ProviderError) Error() string {
	return e.Provider + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func retryable(name string, err error) error {
	return &ProviderError{Provider: name, Err: err, Retryable: true}
}

func permanent(name string, format string, args ...any) error {
	return &ProviderError{Provider: name, Err: fmt.Errorf(format, args...)}
}

// IsRetryable reports whether err is a transient provider failure
func IsRetryable(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Retryable
}

// FallbackProvider tries multiple providers in order
type FallbackProvider struct {
	providers []Provider
}

// NewFallbackProvider creates a new fallback provider from the available ones
func NewFallbackProvider(providers ...Provider) *FallbackProvider {
	available := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p != nil && p.IsAvailable() {
			available = append(available, p)
		}
	}
	return &FallbackProvider{providers: available}
}

// Name returns the combined provider name
func (f *FallbackProvider) Name() string {
	return "fallback"
}

// GetHistoricalData tries each provider in order until one succeeds
func (f *FallbackProvider) GetHistoricalData(ctx context.Context, symbol, period, interval string) ([]model.Bar, error) {
	lastErr := f.noProviders()
	for _, p := range f.providers {
		bars, err := retryOnce(ctx, p, symbol, func() ([]model.Bar, error) {
			return p.GetHistoricalData(ctx, symbol, period, interval)
		})
		if err == nil && len(bars) > 0 {
			return bars, nil
		}
		if err == nil {
			err = permanent(p.Name(), "no data for %s", symbol)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
	}
	return nil, lastErr
}

// GetFundamentals tries each provider in order until one succeeds
func (f *FallbackProvider) GetFundamentals(ctx context.Context, symbol string) (*model.FundamentalData, error) {
	lastErr := f.noProviders()
	for _, p := range f.providers {
		data, err := retryOnce(ctx, p, symbol, func() (*model.FundamentalData, error) {
			return p.GetFundamentals(ctx, symbol)
		})
		if err == nil && data != nil {
			return data, nil
		}
		if err == nil {
			err = permanent(p.Name(), "no fundamentals for %s", symbol)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
	}
	return nil, lastErr
}

// retryOnce repeats call a single time when it fails with a retryable error.
// The repeat waits on the provider's own limiter, including any backoff a
// rate-limited response scheduled. Permanent errors return at once.
func retryOnce[T any](ctx context.Context, p Provider, symbol string, call func() (T, error)) (T, error) {
	v, err := call()
	if err == nil || !IsRetryable(err) || ctx.Err() != nil {
		return v, err
	}
	log.Debug().Err(err).Str("provider", p.Name()).Str("symbol", symbol).Msg("Retrying provider")
	return call()
}

func (f *FallbackProvider) noProviders() error {
	return permanent(f.Name(), "no provider available")
}

// IsAvailable returns true if any provider is available
func (f *FallbackProvider) IsAvailable() bool {
	return len(f.providers) > 0
}

// RateLimit returns the highest rate limit among providers
func (f *FallbackProvider) RateLimit() int {
	maxRate := 0
	for _, p := range f.providers {
		maxRate = max(maxRate, p.RateLimit())
	}
	return maxRate
}

// Providers returns the list of underlying providers
func (f *FallbackProvider) Providers() []Provider {
	return f.providers
}
