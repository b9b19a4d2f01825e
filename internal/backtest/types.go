package backtest

import (
	"fmt"
	"time"

	"stockscope/internal/opportunity"
	"stockscope/internal/regime"
)

// Outcome classifies a closed trade
type Outcome uint8

const (
	Breakeven Outcome = iota
	Win
	Loss
)

func (o Outcome) String() string {
	switch o {
	case Breakeven:
		return "breakeven"
	case Win:
		return "win"
	case Loss:
		return "loss"
	default:
		return fmt.Sprintf("outcome(%d)", uint8(o))
	}
}

// MarshalText implements encoding.TextMarshaler
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (o *Outcome) UnmarshalText(b []byte) error {
	for _, candidate := range []Outcome{Breakeven, Win, Loss} {
		if candidate.String() == string(b) {
			*o = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", b)
}

// ExitReason is the condition that closed a trade
type ExitReason uint8

const (
	ExitHorizon ExitReason = iota
	ExitStop
	ExitTrailingStop
	ExitTarget
)

func (r ExitReason) String() string {
	switch r {
	case ExitHorizon:
		return "horizon"
	case ExitStop:
		return "stop"
	case ExitTrailingStop:
		return "trailing_stop"
	case ExitTarget:
		return "target"
	default:
		return fmt.Sprintf("exit(%d)", uint8(r))
	}
}

// MarshalText implements encoding.TextMarshaler
func (r ExitReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (r *ExitReason) UnmarshalText(b []byte) error {
	for _, candidate := range []ExitReason{ExitHorizon, ExitStop, ExitTrailingStop, ExitTarget} {
		if candidate.String() == string(b) {
			*r = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown exit reason %q", b)
}

// Trade represents a single simulated trade
type Trade struct {
	Symbol       string           `json:"symbol"`
	Strategy     opportunity.Type `json:"strategy"`
	Regime       regime.Regime    `json:"regime"`
	EntryDate    time.Time        `json:"entry_date"`
	EntryPrice   float64          `json:"entry_price"`
	ExitDate     time.Time        `json:"exit_date"`
	ExitPrice    float64          `json:"exit_price"`
	OriginalStop float64          `json:"original_stop"`
	FinalStop    float64          `json:"final_stop"` // never below OriginalStop
	Target       float64          `json:"target"`
	ReturnPct    float64          `json:"return_pct"`
	DaysHeld     int              `json:"days_held"`
	Outcome      Outcome          `json:"outcome"`
	ExitReason   ExitReason       `json:"exit_reason"`
}

// Breakdown aggregates trades sharing a strategy or a year
type Breakdown struct {
	Key            string  `json:"key"`
	Trades         int     `json:"trades"`
	Wins           int     `json:"wins"`
	Losses         int     `json:"losses"`
	WinRate        float64 `json:"win_rate"`
	AvgReturnPct   float64 `json:"avg_return_pct"`
	TotalReturnPct float64 `json:"total_return_pct"` // sum of trade returns
}

// Report contains the walk-forward results. Every ratio is zero when it
// cannot be computed.
type Report struct {
	From          time.Time `json:"from"`
	To            time.Time `json:"to"`
	Checkpoints   int       `json:"checkpoints"`
	Scans         int       `json:"scans"` // checkpoints with at least one eligible symbol
	Opportunities int       `json:"opportunities"`

	TotalTrades     int `json:"total_trades"`
	WinningTrades   int `json:"winning_trades"`
	LosingTrades    int `json:"losing_trades"`
	BreakevenTrades int `json:"breakeven_trades"`

	WinRate      float64 `json:"win_rate"`
	AvgWinPct    float64 `json:"avg_win_pct"`
	AvgLossPct   float64 `json:"avg_loss_pct"` // magnitude
	LargestWin   float64 `json:"largest_win_pct"`
	LargestLoss  float64 `json:"largest_loss_pct"`
	ProfitFactor float64 `json:"profit_factor"`
	Expectancy   float64 `json:"expectancy_pct"`
	AvgDaysHeld  float64 `json:"avg_days_held"`

	TotalReturnPct float64   `json:"total_return_pct"` // compounded at the fixed position size
	MaxDrawdownPct float64   `json:"max_drawdown_pct"`
	SharpeRatio    float64   `json:"sharpe_ratio"`
	SortinoRatio   float64   `json:"sortino_ratio"`
	MaxWinStreak   int       `json:"max_win_streak"`
	MaxLoseStreak  int       `json:"max_lose_streak"`
	EquityCurve    []float64 `json:"equity_curve"`

	ByStrategy []Breakdown `json:"by_strategy"`
	ByYear     []Breakdown `json:"by_year"`
	Trades     []Trade     `json:"trades"`
}
