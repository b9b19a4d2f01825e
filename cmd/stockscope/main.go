package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"stockscope/internal/config"
	"stockscope/internal/logger"
)

var (
	cfgFile string
	format  string
	verbose bool
	timeout time.Duration

	cfg *config.Config
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "stockscope",
		Short: "Quantitative analysis of US equities on daily bars",
		Long: `Stockscope forecasts, classifies and screens US stocks from daily bars:

  predict   - next-session forecast with confidence and recommendation
  regime    - current market regime and the strategy it favours
  scan      - rank trading opportunities across a universe
  backtest  - walk-forward replay of the scanner with simulated trades
  serve     - JSON HTTP API and Prometheus metrics
  queue     - deliver queued results to the sync endpoint

Examples:
  stockscope predict AAPL MSFT
  stockscope scan --universe nasdaq100 --capital 50000
  stockscope backtest --symbols AAPL,NVDA --from 2023-01-01 --to 2024-01-01`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "output format: table, json")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "debug logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Minute, "deadline for the whole command")

	rootCmd.AddCommand(
		newPredictCmd(),
		newRegimeCmd(),
		newScanCmd(),
		newBacktestCmd(),
		newServeCmd(),
		newQueueCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, args []string) error {
	if format != "table" && format != "json" {
		return fmt.Errorf("unknown format %q", format)
	}

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return logger.Init(cfg.Log)
}

// commandContext is cancelled on interrupt or when --timeout elapses
func commandContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// withApp builds the app for one command run
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx, cancel := commandContext(cmd.Context())
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
