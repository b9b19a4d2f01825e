package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"stockscope/internal/backtest"
	"stockscope/internal/config"
	"stockscope/internal/events"
	"stockscope/internal/fundamental"
	"stockscope/internal/ledger"
	"stockscope/internal/levels"
	"stockscope/internal/metrics"
	"stockscope/internal/opportunity"
	"stockscope/internal/predict"
	"stockscope/internal/provider"
	"stockscope/internal/regime"
	"stockscope/internal/scanner"
	"stockscope/internal/syncqueue"
)

// app holds everything a command needs
type app struct {
	cfg      *config.Config
	registry *prometheus.Registry
	provider provider.Provider
	service  *scanner.Service
	ledger   *ledger.Ledger
	queue    *syncqueue.Queue
	closers  []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	providers := createProviders(cfg)
	fallback := provider.NewFallbackProvider(providers...)
	if !fallback.IsAvailable() {
		return nil, errors.New("no available data providers")
	}
	names := make([]string, 0, len(providers))
	for _, p := range fallback.Providers() {
		names = append(names, p.Name())
	}
	log.Debug().Strs("providers", names).Msg("Data providers ready")

	var shared provider.BarCache
	if cfg.Data.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Data.Redis.Addr,
			Password: cfg.Data.Redis.Password,
			DB:       cfg.Data.Redis.DB,
		})
		a.closers = append(a.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Data.Redis.Addr).Msg("Redis unreachable, using memory cache only")
		} else {
			shared = provider.NewRedisBarCache(client, cfg.Data.Redis.Prefix)
		}
	}
	a.provider = provider.NewCachingProvider(fallback, cfg.Data.CacheTTL, shared)

	var runs scanner.RunStore
	if cfg.Ledger.Path != "" {
		l, err := ledger.Open(ctx, cfg.Ledger.Path)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("opening ledger: %w", err)
		}
		a.ledger = l
		a.closers = append(a.closers, l.Close)
		runs = l
	}

	var queue scanner.Queue
	if cfg.Queue.Enabled {
		q, err := syncqueue.NewQueue(cfg.Queue.Dir)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("opening sync queue: %w", err)
		}
		a.queue = q
		queue = q
	}

	classifier := regime.NewClassifier(cfg.Regime)
	fundamentals := fundamental.NewAnalyzer(cfg.Fundamental)
	levelAnalyzer := levels.NewAnalyzer(cfg.Levels)
	opp := opportunity.NewScanner(cfg.Opportunity, opportunity.Components{
		Indicators: cfg.Indicators,
		Levels:     levelAnalyzer,
		Regime:     classifier,
	})

	a.service = scanner.NewService(cfg.Data.Config, scanner.Components{
		Provider:   a.provider,
		Indicators: cfg.Indicators,
		Regime:     classifier,
		Ensemble: predict.NewEnsemble(cfg.Prediction, predict.Components{
			Indicators:   cfg.Indicators,
			Regime:       classifier,
			Levels:       levelAnalyzer,
			Events:       events.NewAnalyzer(cfg.Events),
			Correlation:  events.NewCorrelationAnalyzer(cfg.Correlation),
			Fundamentals: fundamentals,
		}),
		Scanner: opp,
		Simulator: backtest.NewSimulator(cfg.Backtest, backtest.Components{
			Indicators: cfg.Indicators,
			Regime:     classifier,
			Scanner:    opp,
		}),
		Fundamentals: fundamentals,
		Metrics:      metrics.New(a.registry),
		Runs:         runs,
		Queue:        queue,
	})
	return a, nil
}

// Close releases the ledger and cache connections
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Debug().Err(err).Msg("Close failed")
		}
	}
	a.closers = nil
}

// createProviders builds the configured providers in fallback order
func createProviders(cfg *config.Config) []provider.Provider {
	var providers []provider.Provider
	for _, name := range cfg.Data.Providers {
		switch name {
		case "yahoo":
			providers = append(providers, provider.NewYahooProvider(cfg.Data.Yahoo.RateLimit))
		case "finnhub":
			providers = append(providers, provider.NewFinnhubProvider(cfg.Data.Finnhub.Key, cfg.Data.Finnhub.RateLimit))
		case "alpaca":
			providers = append(providers, provider.NewAlpacaProvider(cfg.Data.Alpaca.Key, cfg.Data.Alpaca.Secret, cfg.Data.Alpaca.BaseURL, cfg.Data.Alpaca.RateLimit))
		}
	}
	return providers
}
