package signalengine

import (
	"context"
	"fmt"
	"log"

	"stockbotv1/internal/metrics"
	"stockbotv1/internal/model"
)

// snapshotWindow is how many recent snapshots the engine fetches per symbol.
// Detection only needs the latest two rows.
const snapshotWindow = 10

// Config holds the signal engine thresholds.
type Config struct {
	Oversold   float64 // RSI BUY threshold, default 30
	Overbought float64 // RSI SELL threshold, default 70
}

// DefaultConfig returns the standard 30/70 RSI thresholds.
func DefaultConfig() Config {
	return Config{Oversold: DefaultOversold, Overbought: DefaultOverbought}
}

// Engine reads recent indicator snapshots, runs the detection rules, and
// persists new signals as one batch per (symbol, latest timestamp).
type Engine struct {
	cfg       Config
	snapshots model.SnapshotStore
	signals   model.SignalStore
	publisher model.SignalPublisher // optional
	prom      *metrics.Metrics      // optional
}

// NewEngine creates a signal engine. publisher and prom may be nil.
func NewEngine(cfg Config, snapshots model.SnapshotStore, signals model.SignalStore,
	publisher model.SignalPublisher, prom *metrics.Metrics) *Engine {
	return &Engine{
		cfg:       cfg,
		snapshots: snapshots,
		signals:   signals,
		publisher: publisher,
		prom:      prom,
	}
}

// DetectForSymbol runs one detection pass for a symbol.
//
// The pass is idempotent: if any signal already exists for (symbol, latest
// snapshot timestamp) the pass is skipped entirely, so reruns over unchanged
// indicator data never duplicate signals. Malformed candidates are dropped
// with a warning; they never abort the batch.
//
// Returns the number of signals persisted.
func (e *Engine) DetectForSymbol(ctx context.Context, symbol string) (int, error) {
	snaps, err := e.snapshots.ReadRecentSnapshots(ctx, symbol, snapshotWindow)
	if err != nil {
		return 0, fmt.Errorf("read snapshots for %s: %w", symbol, err)
	}
	if len(snaps) == 0 {
		log.Printf("[signalengine] no indicator data for %s, skipping", symbol)
		return 0, nil
	}

	latest := snaps[len(snaps)-1]
	exists, err := e.signals.HasSignalAt(ctx, symbol, latest.TS)
	if err != nil {
		return 0, fmt.Errorf("idempotency check for %s: %w", symbol, err)
	}
	if exists {
		log.Printf("[signalengine] signals already exist for %s at %s, skipping", symbol, latest.TS.Format("2006-01-02"))
		return 0, nil
	}

	var candidates []model.Signal
	if len(snaps) >= 2 {
		candidates = Detect(snaps[len(snaps)-2], latest, e.cfg.Oversold, e.cfg.Overbought)
	} else {
		// Single row: the crossover rule cannot fire, RSI still can.
		if sig := DetectRSI(latest, e.cfg.Oversold, e.cfg.Overbought); sig != nil {
			candidates = append(candidates, *sig)
		}
	}

	batch := e.filterValid(symbol, candidates)
	if len(batch) == 0 {
		return 0, nil
	}

	// All signals of a pass share the latest snapshot timestamp and are
	// committed in one transaction.
	if err := e.signals.InsertSignals(ctx, batch); err != nil {
		return 0, fmt.Errorf("persist signals for %s: %w", symbol, err)
	}
	if e.prom != nil {
		e.prom.SignalsDetected.Add(float64(len(batch)))
	}

	for i := range batch {
		log.Printf("[signalengine] %s %s %s (%s)", batch[i].Type, symbol, latest.TS.Format("2006-01-02"), batch[i].Reason)
		if e.publisher == nil {
			continue
		}
		// Publishing is best-effort: the row is already durable in the store.
		if err := e.publisher.PublishSignal(ctx, batch[i]); err != nil {
			log.Printf("[signalengine] publish %s signal for %s: %v", batch[i].Type, symbol, err)
		}
	}
	return len(batch), nil
}

// filterValid drops malformed candidates (missing type, reason, or values)
// with a warning and keeps the rest. A bad candidate never aborts the batch.
func (e *Engine) filterValid(symbol string, candidates []model.Signal) []model.Signal {
	batch := candidates[:0]
	for i := range candidates {
		if !candidates[i].Valid() {
			log.Printf("[signalengine] WARNING: dropping malformed candidate for %s (type=%q reason=%q)",
				symbol, candidates[i].Type, candidates[i].Reason)
			if e.prom != nil {
				e.prom.SignalsDropped.Inc()
			}
			continue
		}
		batch = append(batch, candidates[i])
	}
	return batch
}

// Run performs a detection pass over all symbols sequentially. A failing
// symbol is logged and does not stop the others.
func (e *Engine) Run(ctx context.Context, symbols []string) {
	for _, symbol := range symbols {
		if ctx.Err() != nil {
			return
		}
		if _, err := e.DetectForSymbol(ctx, symbol); err != nil {
			log.Printf("[signalengine] detection failed for %s: %v", symbol, err)
		}
	}
}
