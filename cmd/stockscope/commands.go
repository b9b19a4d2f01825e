package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"stockscope/internal/predict"
	"stockscope/internal/regime"
	"stockscope/internal/scanner"
	"stockscope/internal/symbols"
	"stockscope/internal/syncqueue"
	"stockscope/internal/web"
)

func newPredictCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "predict SYMBOL...",
		Short: "Forecast the next session for each symbol",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			syms, err := symbols.Resolve(symbols.Test, args)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				var preds []*predict.Prediction
				for _, sym := range syms {
					p, err := a.service.Predict(ctx, sym)
					if err != nil {
						if len(syms) == 1 {
							return err
						}
						log.Warn().Err(err).Str("symbol", sym).Msg("Skipping prediction")
						continue
					}
					preds = append(preds, p)
				}
				if format == "json" {
					return outputJSON(preds)
				}
				return outputPredictions(preds)
			})
		},
	}
}

func newRegimeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regime SYMBOL...",
		Short: "Classify the market regime of each symbol",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			syms, err := symbols.Resolve(symbols.Test, args)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				out := make(map[string]regime.Analysis, len(syms))
				for _, sym := range syms {
					r, err := a.service.Regime(ctx, sym)
					if err != nil {
						log.Warn().Err(err).Str("symbol", sym).Msg("Skipping regime")
						continue
					}
					out[sym] = r
				}
				if format == "json" {
					return outputJSON(out)
				}
				return outputRegimes(syms, out)
			})
		},
	}
}

func newScanCmd() *cobra.Command {
	var (
		symbolList string
		universe   string
		capital    float64
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Rank trading opportunities across a universe",
		RunE: func(cmd *cobra.Command, args []string) error {
			syms, err := resolveSymbols(universe, symbolList)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if format == "table" {
					fmt.Printf("Scanning %d symbols...\n\n", len(syms))
					bar := newProgressBar(len(syms), "Fetching")
					a.service.Fetcher().SetProgressCallback(func(fetched, total int) { _ = bar.Set(fetched) })
					defer func() { _ = bar.Finish() }()
				}

				res, err := a.service.Scan(ctx, syms)
				if err != nil {
					return fmt.Errorf("scanning: %w", err)
				}
				if format == "json" {
					return outputJSON(res)
				}
				fmt.Println()
				return outputScan(res, capital)
			})
		},
	}
	cmd.Flags().StringVar(&symbolList, "symbols", "", "comma-separated symbols (overrides --universe)")
	cmd.Flags().StringVar(&universe, "universe", "test", "universe: test, nasdaq100, sp500")
	cmd.Flags().Float64Var(&capital, "capital", 0, "account size for share counts (0 hides them)")
	return cmd
}

func newBacktestCmd() *cobra.Command {
	var (
		symbolList string
		universe   string
		fromStr    string
		toStr      string
		mcRuns     int
		seed       uint64
	)
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay the scanner monthly and simulate every trade",
		RunE: func(cmd *cobra.Command, args []string) error {
			syms, err := resolveSymbols(universe, symbolList)
			if err != nil {
				return err
			}
			from, err := time.Parse(time.DateOnly, fromStr)
			if err != nil {
				return fmt.Errorf("invalid --from: %w", err)
			}
			to := time.Now().UTC().Truncate(24 * time.Hour)
			if toStr != "" {
				if to, err = time.Parse(time.DateOnly, toStr); err != nil {
					return fmt.Errorf("invalid --to: %w", err)
				}
			}

			return withApp(cmd, func(ctx context.Context, a *app) error {
				opts := scanner.BacktestOptions{MonteCarloRuns: mcRuns, Seed: seed}
				if format == "table" {
					fetchBar := newProgressBar(len(syms), "Fetching")
					a.service.Fetcher().SetProgressCallback(func(fetched, total int) { _ = fetchBar.Set(fetched) })
					var cpBar *progressbar.ProgressBar
					opts.Progress = func(done, total int, _ time.Time) {
						if cpBar == nil {
							_ = fetchBar.Finish()
							fmt.Println()
							cpBar = newProgressBar(total, "Replaying")
						}
						_ = cpBar.Set(done)
					}
				}

				res, err := a.service.Backtest(ctx, syms, from, to, opts)
				if err != nil {
					return fmt.Errorf("backtesting: %w", err)
				}
				if format == "json" {
					return outputJSON(res)
				}
				fmt.Println()
				return outputBacktest(res)
			})
		},
	}
	cmd.Flags().StringVar(&symbolList, "symbols", "", "comma-separated symbols (overrides --universe)")
	cmd.Flags().StringVar(&universe, "universe", "test", "universe: test, nasdaq100, sp500")
	cmd.Flags().StringVar(&fromStr, "from", "", "first checkpoint date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&toStr, "to", "", "last date (YYYY-MM-DD, default today)")
	cmd.Flags().IntVar(&mcRuns, "monte-carlo", 0, "Monte Carlo reshuffles of the trade list (0 disables)")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "Monte Carlo seed")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			opts := web.Options{
				Universe:       symbols.Test,
				MetricsPath:    cfg.Metrics.Path,
				RequestTimeout: cfg.Server.WriteTimeout,
			}
			if a.ledger != nil {
				opts.Runs = a.ledger
			}
			if cfg.Metrics.Enabled {
				opts.Metrics = promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})
			}
			srv := web.NewServer(a.service, opts)

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start(cfg.Server.Addr, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			log.Info().Msg("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func newQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and deliver queued results",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show queued items",
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := syncqueue.NewQueue(cfg.Queue.Dir)
			if err != nil {
				return err
			}
			items := q.Items()
			if format == "json" {
				return outputJSON(items)
			}
			return outputQueue(items)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "drain",
		Short: "Send queued items to queue.endpoint, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Queue.Endpoint == "" {
				return errors.New("queue.endpoint is not configured")
			}
			q, err := syncqueue.NewQueue(cfg.Queue.Dir)
			if err != nil {
				return err
			}

			ctx, cancel := commandContext(cmd.Context())
			defer cancel()

			sent, err := q.Drain(ctx, syncqueue.NewHTTPSender(cfg.Queue.Endpoint, cfg.Queue.Timeout))
			fmt.Printf("Sent %d items, %d remaining\n", sent, q.Len())
			return err
		},
	})
	return cmd
}

func resolveSymbols(universe, list string) ([]string, error) {
	var u symbols.Universe
	if err := u.UnmarshalText([]byte(universe)); err != nil {
		return nil, err
	}
	var explicit []string
	if list != "" {
		explicit = []string{list}
	}
	return symbols.Resolve(u, explicit)
}
