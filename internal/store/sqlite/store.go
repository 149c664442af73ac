// Package sqlite persists price bars, indicator snapshots, and signals.
//
// The database is opened in WAL mode with a busy timeout; composite primary
// keys on (symbol, ts) give bar and snapshot deduplication for free.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"stockbotv1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Store provides access to the trading database. It implements
// model.BarStore, model.SnapshotStore, and model.SignalStore.
type Store struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// Open creates a Store at path, initializing WAL mode and the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single writer keeps the executed-flag updates serialized.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", path)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS raw_prices (
			symbol TEXT    NOT NULL,
			ts     INTEGER NOT NULL,
			open   REAL    NOT NULL,
			high   REAL    NOT NULL,
			low    REAL    NOT NULL,
			close  REAL    NOT NULL,
			volume INTEGER NOT NULL,
			PRIMARY KEY (symbol, ts)
		);

		CREATE TABLE IF NOT EXISTS indicators (
			symbol TEXT    NOT NULL,
			ts     INTEGER NOT NULL,
			rsi    REAL    NOT NULL,
			sma20  REAL    NOT NULL,
			ema50  REAL    NOT NULL,
			PRIMARY KEY (symbol, ts)
		);

		CREATE TABLE IF NOT EXISTS signals (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol            TEXT    NOT NULL,
			ts                INTEGER NOT NULL,
			signal_type       TEXT    NOT NULL,
			reason            TEXT    NOT NULL,
			vals              TEXT    NOT NULL,
			executed          INTEGER NOT NULL DEFAULT 0,
			execution_details TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_signals_executed ON signals (executed, ts);
		CREATE INDEX IF NOT EXISTS idx_signals_symbol_ts ON signals (symbol, ts);
	`)
	return err
}

// ── BarStore ──

// InsertBars writes bars in one transaction, skipping (symbol, ts) duplicates.
func (s *Store) InsertBars(ctx context.Context, bars []model.PriceBar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO raw_prices (symbol, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, b := range bars {
		res, err := stmt.ExecContext(ctx, b.Symbol, b.TS.Unix(), b.Open, b.High, b.Low, b.Close, b.Volume)
		if err != nil {
			tx.Rollback()
			return 0, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	return inserted, tx.Commit()
}

// ReadBars returns up to limit most recent bars for symbol, oldest first.
func (s *Store) ReadBars(ctx context.Context, symbol string, limit int) ([]model.PriceBar, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, ts, open, high, low, close, volume
		FROM (
			SELECT * FROM raw_prices WHERE symbol = ? ORDER BY ts DESC LIMIT ?
		) ORDER BY ts ASC
	`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query raw_prices: %w", err)
	}
	defer rows.Close()

	var bars []model.PriceBar
	for rows.Next() {
		var b model.PriceBar
		var ts int64
		if err := rows.Scan(&b.Symbol, &ts, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("sqlite scan raw_prices: %w", err)
		}
		b.TS = time.Unix(ts, 0).UTC()
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// LastBarTS returns the most recent bar timestamp for symbol, or the zero
// time if no bars exist.
func (s *Store) LastBarTS(ctx context.Context, symbol string) (time.Time, error) {
	var ts sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(ts) FROM raw_prices WHERE symbol = ?`, symbol,
	).Scan(&ts)
	if err != nil {
		return time.Time{}, err
	}
	if !ts.Valid {
		return time.Time{}, nil
	}
	return time.Unix(ts.Int64, 0).UTC(), nil
}

// ── SnapshotStore ──

// UpsertSnapshots writes snapshots in one transaction, overwriting existing
// (symbol, ts) rows — recomputation over new bars replaces old values.
func (s *Store) UpsertSnapshots(ctx context.Context, snaps []model.IndicatorSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO indicators (symbol, ts, rsi, sma20, ema50)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, snap := range snaps {
		if _, err := stmt.ExecContext(ctx, snap.Symbol, snap.TS.Unix(), snap.RSI, snap.SMA20, snap.EMA50); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// ReadRecentSnapshots returns up to n most recent snapshots for symbol,
// oldest first.
func (s *Store) ReadRecentSnapshots(ctx context.Context, symbol string, n int) ([]model.IndicatorSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, ts, rsi, sma20, ema50
		FROM (
			SELECT * FROM indicators WHERE symbol = ? ORDER BY ts DESC LIMIT ?
		) ORDER BY ts ASC
	`, symbol, n)
	if err != nil {
		return nil, fmt.Errorf("sqlite query indicators: %w", err)
	}
	defer rows.Close()

	var snaps []model.IndicatorSnapshot
	for rows.Next() {
		var snap model.IndicatorSnapshot
		var ts int64
		if err := rows.Scan(&snap.Symbol, &ts, &snap.RSI, &snap.SMA20, &snap.EMA50); err != nil {
			return nil, fmt.Errorf("sqlite scan indicators: %w", err)
		}
		snap.TS = time.Unix(ts, 0).UTC()
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// ── SignalStore ──

// InsertSignals writes all signals in a single transaction so a detection
// pass commits atomically.
func (s *Store) InsertSignals(ctx context.Context, signals []model.Signal) error {
	if len(signals) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO signals (symbol, ts, signal_type, reason, vals, executed)
		VALUES (?, ?, ?, ?, ?, 0)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range signals {
		vals, err := json.Marshal(signals[i].Values)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("marshal signal values: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, signals[i].Symbol, signals[i].TS.Unix(),
			string(signals[i].Type), signals[i].Reason, string(vals)); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// HasSignalAt reports whether any signal exists for (symbol, ts).
func (s *Store) HasSignalAt(ctx context.Context, symbol string, ts time.Time) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM signals WHERE symbol = ? AND ts = ? LIMIT 1`,
		symbol, ts.Unix(),
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListUnexecuted returns all pending signals ordered by timestamp ascending,
// oldest first, so no signal starves behind newer ones.
func (s *Store) ListUnexecuted(ctx context.Context) ([]model.Signal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, ts, signal_type, reason, vals, executed, execution_details
		FROM signals
		WHERE executed = 0
		ORDER BY ts ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlite query unexecuted signals: %w", err)
	}
	defer rows.Close()
	return scanSignals(rows)
}

// GetSignal returns a signal by id, or nil if it does not exist.
func (s *Store) GetSignal(ctx context.Context, id int64) (*model.Signal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, ts, signal_type, reason, vals, executed, execution_details
		FROM signals WHERE id = ?
	`, id)
	if err != nil {
		return nil, fmt.Errorf("sqlite query signal %d: %w", id, err)
	}
	defer rows.Close()

	signals, err := scanSignals(rows)
	if err != nil {
		return nil, err
	}
	if len(signals) == 0 {
		return nil, nil
	}
	return &signals[0], nil
}

// MarkExecuted flips executed from 0 to 1 and records the details. The
// conditional WHERE makes the latch atomic: a second caller sees zero rows
// affected and must not resubmit.
func (s *Store) MarkExecuted(ctx context.Context, id int64, details model.ExecutionDetails) (bool, error) {
	data, err := json.Marshal(details)
	if err != nil {
		return false, fmt.Errorf("marshal execution details: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE signals SET executed = 1, execution_details = ?
		WHERE id = ? AND executed = 0
	`, string(data), id)
	if err != nil {
		return false, fmt.Errorf("sqlite mark executed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// LatestSignals returns the n most recent signals, newest first.
func (s *Store) LatestSignals(ctx context.Context, n int) ([]model.Signal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, ts, signal_type, reason, vals, executed, execution_details
		FROM signals
		ORDER BY ts DESC, id DESC
		LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("sqlite query latest signals: %w", err)
	}
	defer rows.Close()
	return scanSignals(rows)
}

func scanSignals(rows *sql.Rows) ([]model.Signal, error) {
	var signals []model.Signal
	for rows.Next() {
		var sig model.Signal
		var ts int64
		var sigType, vals string
		var executed int
		var details sql.NullString
		if err := rows.Scan(&sig.ID, &sig.Symbol, &ts, &sigType, &sig.Reason, &vals, &executed, &details); err != nil {
			return nil, fmt.Errorf("sqlite scan signal: %w", err)
		}
		sig.TS = time.Unix(ts, 0).UTC()
		sig.Type = model.SignalType(sigType)
		sig.Executed = executed != 0
		if err := json.Unmarshal([]byte(vals), &sig.Values); err != nil {
			return nil, fmt.Errorf("unmarshal signal values: %w", err)
		}
		if details.Valid {
			var d model.ExecutionDetails
			if err := json.Unmarshal([]byte(details.String), &d); err != nil {
				return nil, fmt.Errorf("unmarshal execution details: %w", err)
			}
			sig.ExecutionDetails = &d
		}
		signals = append(signals, sig)
	}
	return signals, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
