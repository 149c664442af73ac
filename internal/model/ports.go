package model

import (
	"context"
	"time"
)

// ── Port Interfaces ──
// These interfaces decouple business logic from concrete implementations
// (SQLite, Redis, the broker REST API). Components receive them explicitly
// instead of reaching for package-level singletons, so tests can substitute
// doubles.

// BarStore reads and writes OHLCV price bars.
type BarStore interface {
	// InsertBars writes bars, silently skipping (symbol, ts) duplicates.
	// Returns the number of rows actually inserted.
	InsertBars(ctx context.Context, bars []PriceBar) (int, error)

	// ReadBars returns up to limit most recent bars for a symbol, ordered
	// by timestamp ascending.
	ReadBars(ctx context.Context, symbol string, limit int) ([]PriceBar, error)

	// LastBarTS returns the most recent bar timestamp for a symbol.
	// Returns the zero time if no bars exist.
	LastBarTS(ctx context.Context, symbol string) (time.Time, error)
}

// SnapshotStore reads and writes indicator snapshots.
type SnapshotStore interface {
	// UpsertSnapshots writes snapshots, overwriting existing (symbol, ts) rows.
	UpsertSnapshots(ctx context.Context, snaps []IndicatorSnapshot) error

	// ReadRecentSnapshots returns up to n most recent snapshots for a symbol,
	// ordered by timestamp ascending (newest last).
	ReadRecentSnapshots(ctx context.Context, symbol string, n int) ([]IndicatorSnapshot, error)
}

// SignalStore persists signals and drives the executor's work queue.
type SignalStore interface {
	// InsertSignals writes all signals in a single transaction.
	InsertSignals(ctx context.Context, signals []Signal) error

	// HasSignalAt reports whether any signal exists for (symbol, ts).
	// This is the idempotency guard against re-detection over unchanged data.
	HasSignalAt(ctx context.Context, symbol string, ts time.Time) (bool, error)

	// ListUnexecuted returns all signals with executed=false ordered by
	// timestamp ascending, oldest first.
	ListUnexecuted(ctx context.Context) ([]Signal, error)

	// GetSignal returns a signal by id, or nil if it does not exist.
	GetSignal(ctx context.Context, id int64) (*Signal, error)

	// MarkExecuted flips executed from false to true and records details.
	// Returns false if the signal was already executed (the latch held),
	// guarding against double submission from concurrent callers.
	MarkExecuted(ctx context.Context, id int64, details ExecutionDetails) (bool, error)

	// LatestSignals returns the n most recent signals, newest first.
	LatestSignals(ctx context.Context, n int) ([]Signal, error)
}

// SignalPublisher pushes newly detected signals to the stream layer.
type SignalPublisher interface {
	PublishSignal(ctx context.Context, sig Signal) error
}

// Broker is the brokerage API surface the executor depends on.
type Broker interface {
	// GetAccount returns the current account snapshot (cash, buying power).
	GetAccount(ctx context.Context) (Account, error)

	// GetLatestTrade returns the most recent trade for a symbol.
	GetLatestTrade(ctx context.Context, symbol string) (Trade, error)

	// SubmitOrder places an order and returns the broker's view of it.
	SubmitOrder(ctx context.Context, req OrderRequest) (Order, error)
}

// BarProvider supplies historical bars from a market data vendor.
type BarProvider interface {
	// GetBars returns daily bars for symbol in [start, end), oldest first.
	GetBars(ctx context.Context, symbol string, start, end time.Time) ([]PriceBar, error)
}
