// Package ledger persists backtest runs and their trades in SQLite.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"stockscope/internal/backtest"
)

// ErrRunNotFound is returned for an unknown run ID
var ErrRunNotFound = errors.New("backtest run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id               TEXT PRIMARY KEY,
	created_at       TEXT NOT NULL,
	from_date        TEXT NOT NULL,
	to_date          TEXT NOT NULL,
	symbols          TEXT NOT NULL,
	checkpoints      INTEGER NOT NULL,
	total_trades     INTEGER NOT NULL,
	win_rate         REAL NOT NULL,
	profit_factor    REAL NOT NULL,
	total_return_pct REAL NOT NULL,
	max_drawdown_pct REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS trades (
	run_id        TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	seq           INTEGER NOT NULL,
	symbol        TEXT NOT NULL,
	strategy      TEXT NOT NULL,
	regime        TEXT NOT NULL,
	entry_date    TEXT NOT NULL,
	entry_price   REAL NOT NULL,
	exit_date     TEXT NOT NULL,
	exit_price    REAL NOT NULL,
	original_stop REAL NOT NULL,
	final_stop    REAL NOT NULL,
	target        REAL NOT NULL,
	return_pct    REAL NOT NULL,
	days_held     INTEGER NOT NULL,
	outcome       TEXT NOT NULL,
	exit_reason   TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);
CREATE INDEX IF NOT EXISTS runs_created_at ON runs (created_at);
`

// Run summarises a stored backtest
type Run struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	From           time.Time `json:"from"`
	To             time.Time `json:"to"`
	Symbols        []string  `json:"symbols"`
	Checkpoints    int       `json:"checkpoints"`
	TotalTrades    int       `json:"total_trades"`
	WinRate        float64   `json:"win_rate"`
	ProfitFactor   float64   `json:"profit_factor"`
	TotalReturnPct float64   `json:"total_return_pct"`
	MaxDrawdownPct float64   `json:"max_drawdown_pct"`
}

// Ledger is a SQLite-backed store of backtest runs
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the ledger database at path
func Open(ctx context.Context, path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger %s: %w", path, err)
	}
	// one writer; SQLite serialises anyway
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000", schema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("initialising ledger %s: %w", path, err)
		}
	}
	return &Ledger{db: db, now: time.Now}, nil
}

// Close closes the database
func (l *Ledger) Close() error {
	return l.db.Close()
}

// SaveRun stores a report and its trades atomically and returns the run ID
func (l *Ledger) SaveRun(ctx context.Context, symbols []string, r *backtest.Report) (string, error) {
	id := uuid.NewString()
	syms, err := json.Marshal(symbols)
	if err != nil {
		return "", fmt.Errorf("encoding symbols: %w", err)
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, from_date, to_date, symbols, checkpoints,
			total_trades, win_rate, profit_factor, total_return_pct, max_drawdown_pct)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, l.now().UTC().Format(time.RFC3339Nano), dateString(r.From), dateString(r.To), string(syms),
		r.Checkpoints, r.TotalTrades, r.WinRate, r.ProfitFactor, r.TotalReturnPct, r.MaxDrawdownPct)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trades (run_id, seq, symbol, strategy, regime, entry_date, entry_price, exit_date,
			exit_price, original_stop, final_stop, target, return_pct, days_held, outcome, exit_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing trade insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range r.Trades {
		_, err := stmt.ExecContext(ctx, id, i, t.Symbol, t.Strategy.String(), t.Regime.String(), dateString(t.EntryDate), t.EntryPrice,
			dateString(t.ExitDate), t.ExitPrice, t.OriginalStop, t.FinalStop, t.Target, t.ReturnPct,
			t.DaysHeld, t.Outcome.String(), t.ExitReason.String())
		if err != nil {
			return "", fmt.Errorf("inserting trade %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	log.Debug().Str("run_id", id).Int("trades", len(r.Trades)).Msg("Backtest run saved")
	return id, nil
}

// Runs lists the most recent runs first. limit <= 0 returns all.
func (l *Ledger) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, created_at, from_date, to_date, symbols, checkpoints, total_trades,
			win_rate, profit_factor, total_return_pct, max_drawdown_pct
		FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run                   Run
			created, from, to, sy string
		)
		if err := rows.Scan(&run.ID, &created, &from, &to, &sy, &run.Checkpoints, &run.TotalTrades,
			&run.WinRate, &run.ProfitFactor, &run.TotalReturnPct, &run.MaxDrawdownPct); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if run.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("run %s created_at: %w", run.ID, err)
		}
		if run.From, err = parseDate(from); err != nil {
			return nil, fmt.Errorf("run %s from: %w", run.ID, err)
		}
		if run.To, err = parseDate(to); err != nil {
			return nil, fmt.Errorf("run %s to: %w", run.ID, err)
		}
		if err := json.Unmarshal([]byte(sy), &run.Symbols); err != nil {
			return nil, fmt.Errorf("run %s symbols: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Trades returns the trades of a run in simulation order
func (l *Ledger) Trades(ctx context.Context, runID string) ([]backtest.Trade, error) {
	var exists int
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, runID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("looking up run %s: %w", runID, err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT symbol, strategy, regime, entry_date, entry_price, exit_date, exit_price, original_stop,
			final_stop, target, return_pct, days_held, outcome, exit_reason
		FROM trades WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying trades of %s: %w", runID, err)
	}
	defer rows.Close()

	trades := []backtest.Trade{}
	for rows.Next() {
		var (
			t                                 backtest.Trade
			strategy, reg, entry, exit, out, cause string
		)
		if err := rows.Scan(&t.Symbol, &strategy, &reg, &entry, &t.EntryPrice, &exit, &t.ExitPrice, &t.OriginalStop,
			&t.FinalStop, &t.Target, &t.ReturnPct, &t.DaysHeld, &out, &cause); err != nil {
			return nil, fmt.Errorf("scanning trade: %w", err)
		}
		if err := decodeTrade(&t, strategy, reg, entry, exit, out, cause); err != nil {
			return nil, fmt.Errorf("run %s: %w", runID, err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func decodeTrade(t *backtest.Trade, strategy, reg, entry, exit, outcome, reason string) error {
	var err error
	if err = t.Strategy.UnmarshalText([]byte(strategy)); err != nil {
		return err
	}
	if err = t.Regime.UnmarshalText([]byte(reg)); err != nil {
		return err
	}
	if t.EntryDate, err = parseDate(entry); err != nil {
		return err
	}
	if t.ExitDate, err = parseDate(exit); err != nil {
		return err
	}
	if err = t.Outcome.UnmarshalText([]byte(outcome)); err != nil {
		return err
	}
	return t.ExitReason.UnmarshalText([]byte(reason))
}

func dateString(t time.Time) string {
	return t.Format(time.DateOnly)
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(time.DateOnly, s)
}
