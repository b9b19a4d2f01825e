package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"

	"stockscope/internal/backtest"
	"stockscope/internal/levels"
	"stockscope/internal/position"
	"stockscope/internal/predict"
	"stockscope/internal/regime"
	"stockscope/internal/scanner"
	"stockscope/internal/syncqueue"
)

func newProgressBar(total int, desc string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]█[reset]",
			SaucerHead:    "[green]█[reset]",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func outputJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func outputPredictions(preds []*predict.Prediction) error {
	if len(preds) == 0 {
		fmt.Println("No predictions.")
		return nil
	}

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Symbol", "Price", "Predicted", "Change", "Conf", "Trend", "Regime", "Action"}),
	)
	for _, p := range preds {
		table.Append([]string{
			p.Symbol,
			fmt.Sprintf("$%.2f", p.CurrentPrice),
			fmt.Sprintf("$%.2f", p.PredictedPrice),
			fmt.Sprintf("%+.2f%%", p.ChangePct),
			fmt.Sprintf("%.0f%%", p.Confidence),
			p.Trend.String(),
			p.Regime.Regime.String(),
			p.Recommendation.String(),
		})
	}
	if err := table.Render(); err != nil {
		return err
	}

	for _, p := range preds {
		fmt.Printf("\n[%s] as of %s\n", p.Symbol, p.AsOf.Format("2006-01-02"))
		if p.Support != nil || p.Resistance != nil {
			fmt.Printf("  Support: %s | Resistance: %s\n", levelPrice(p.Support), levelPrice(p.Resistance))
		}
		for _, s := range p.Signals {
			fmt.Printf("  - %s\n", s)
		}
	}
	return nil
}

func levelPrice(l *levels.Level) string {
	if l == nil {
		return "-"
	}
	return fmt.Sprintf("$%.2f", l.Price)
}

func outputRegimes(order []string, out map[string]regime.Analysis) error {
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Symbol", "Regime", "Strategy", "Conf", "Days", "Size", "Signals"}),
	)
	for _, sym := range order {
		r, ok := out[sym]
		if !ok {
			continue
		}
		signals := strings.Join(r.Signals, "; ")
		if len(signals) > 50 {
			signals = signals[:50] + "..."
		}
		table.Append([]string{
			sym,
			r.Regime.String(),
			r.Strategy.String(),
			fmt.Sprintf("%.0f%%", r.Confidence),
			fmt.Sprintf("%d", r.Duration),
			fmt.Sprintf("%.1fx", r.SizeMultiplier),
			signals,
		})
	}
	return table.Render()
}

func outputScan(res *scanner.ScanResult, capital float64) error {
	for _, line := range res.Summary[:min(2, len(res.Summary))] {
		fmt.Println(line)
	}
	for _, f := range res.Failures {
		fmt.Printf("  failed %s: %s\n", f.Symbol, f.Reason)
	}
	if len(res.Opportunities) == 0 {
		fmt.Println("\nNo opportunities passed the filters.")
		return nil
	}
	fmt.Println()

	header := []string{"#", "Symbol", "Type", "Edge", "Score", "Conf", "Entry", "Stop", "Target", "R/R", "Kelly"}
	if capital > 0 {
		header = append(header, "Shares")
	}
	table := tablewriter.NewTable(os.Stdout, tablewriter.WithHeader(header))

	sizer := position.NewSizer(capital)
	for i, o := range res.Opportunities {
		row := []string{
			fmt.Sprintf("%d", i+1),
			o.Symbol,
			o.Type.String(),
			o.Edge.String(),
			fmt.Sprintf("%.0f", o.Score),
			fmt.Sprintf("%.0f%%", o.Confidence),
			fmt.Sprintf("$%.2f", o.Entry),
			fmt.Sprintf("$%.2f", o.Stop),
			fmt.Sprintf("$%.2f", o.Target),
			fmt.Sprintf("%.2f", o.RiskReward),
			fmt.Sprintf("%.1f%%", o.KellySize),
		}
		if capital > 0 {
			alloc := sizer.Allocate(o.Entry, o.Stop, o.KellySize)
			row = append(row, fmt.Sprintf("%d", alloc.Shares))
		}
		table.Append(row)
	}
	if err := table.Render(); err != nil {
		return err
	}

	fmt.Println("\n--- Details ---")
	for _, o := range res.Opportunities {
		fmt.Printf("\n[%s] %s, %s regime\n", o.Symbol, o.Setup, o.Regime)
		fmt.Printf("  %s\n", o.Reason)
		fmt.Printf("  Breakeven win rate: %.0f%% at R/R %.2f\n", o.BreakevenWinRate, o.RiskReward)
		fmt.Printf("  Expected: %+.2f%% over %d days | z=%.2f p=%.3f\n", o.ExpectedReturn, o.HoldingDays, o.ZScore, o.PValue)
	}
	return nil
}

func outputBacktest(res *scanner.BacktestResult) error {
	r := res.Report
	fmt.Printf("Backtest %s to %s over %d symbols", r.From.Format("2006-01-02"), r.To.Format("2006-01-02"), len(res.Symbols))
	if res.RunID != "" {
		fmt.Printf(" (run %s)", res.RunID)
	}
	fmt.Println()
	for _, f := range res.Failures {
		fmt.Printf("  failed %s: %s\n", f.Symbol, f.Reason)
	}
	fmt.Println()

	summary := tablewriter.NewTable(os.Stdout, tablewriter.WithHeader([]string{"Metric", "Value"}))
	for _, row := range [][]string{
		{"Checkpoints", fmt.Sprintf("%d (%d scanned)", r.Checkpoints, r.Scans)},
		{"Trades", fmt.Sprintf("%d (%dW / %dL / %dBE)", r.TotalTrades, r.WinningTrades, r.LosingTrades, r.BreakevenTrades)},
		{"Win rate", fmt.Sprintf("%.1f%%", r.WinRate)},
		{"Avg win / loss", fmt.Sprintf("%+.2f%% / -%.2f%%", r.AvgWinPct, r.AvgLossPct)},
		{"Profit factor", fmt.Sprintf("%.2f", r.ProfitFactor)},
		{"Expectancy", fmt.Sprintf("%+.2f%%", r.Expectancy)},
		{"Total return", fmt.Sprintf("%+.2f%%", r.TotalReturnPct)},
		{"Max drawdown", fmt.Sprintf("%.2f%%", r.MaxDrawdownPct)},
		{"Sharpe / Sortino", fmt.Sprintf("%.2f / %.2f", r.SharpeRatio, r.SortinoRatio)},
		{"Avg days held", fmt.Sprintf("%.1f", r.AvgDaysHeld)},
		{"Streaks", fmt.Sprintf("%d wins / %d losses", r.MaxWinStreak, r.MaxLoseStreak)},
	} {
		summary.Append(row)
	}
	if err := summary.Render(); err != nil {
		return err
	}

	if err := outputBreakdown("Strategy", r.ByStrategy); err != nil {
		return err
	}
	if err := outputBreakdown("Year", r.ByYear); err != nil {
		return err
	}

	if mc := res.MonteCarlo; mc != nil {
		fmt.Printf("\nMonte Carlo (%d runs)\n", mc.Runs)
		fmt.Printf("  Return: median %+.2f%% | 5th %+.2f%% | 95th %+.2f%%\n", mc.MedianReturnPct, mc.WorstCasePct, mc.BestCasePct)
		fmt.Printf("  Drawdown: median %.2f%% | 95th %.2f%%\n", mc.MedianMaxDrawdownPct, mc.WorstMaxDrawdownPct)
		fmt.Printf("  Ruin probability: %.1f%%\n", mc.RuinProbability)
	}
	return nil
}

func outputBreakdown(label string, rows []backtest.Breakdown) error {
	if len(rows) == 0 {
		return nil
	}
	fmt.Printf("\nBy %s\n", strings.ToLower(label))
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{label, "Trades", "Wins", "Losses", "Win Rate", "Avg", "Total"}),
	)
	for _, b := range rows {
		table.Append([]string{
			b.Key,
			fmt.Sprintf("%d", b.Trades),
			fmt.Sprintf("%d", b.Wins),
			fmt.Sprintf("%d", b.Losses),
			fmt.Sprintf("%.1f%%", b.WinRate),
			fmt.Sprintf("%+.2f%%", b.AvgReturnPct),
			fmt.Sprintf("%+.2f%%", b.TotalReturnPct),
		})
	}
	return table.Render()
}

func outputQueue(items []syncqueue.Item) error {
	if len(items) == 0 {
		fmt.Println("Queue is empty.")
		return nil
	}
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"ID", "Kind", "Created", "Bytes"}),
	)
	for _, it := range items {
		table.Append([]string{
			it.ID,
			string(it.Kind),
			it.CreatedAt.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%d", len(it.Payload)),
		})
	}
	return table.Render()
}
