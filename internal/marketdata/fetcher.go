// Package marketdata pulls daily bars from the broker's data API into the
// local bar store. Fetches are retried with exponential backoff so a flaky
// upstream does not abort an ingestion cycle.
package marketdata

import (
	"context"
	"fmt"
	"log"
	"time"

	"stockbotv1/internal/metrics"
	"stockbotv1/internal/model"
)

const (
	// DefaultHistoryDays is how far back Refresh looks when the store is
	// empty for a symbol.
	DefaultHistoryDays = 120

	defaultBackoffBase = 2 * time.Second
	defaultMaxAttempts = 5
)

// Config tunes fetch retry behavior.
type Config struct {
	BackoffBase time.Duration // first retry delay, doubles per attempt
	MaxAttempts int

	// Sleep is swappable in tests. Defaults to a ctx-aware time.Sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Fetcher ingests bars from a BarProvider into a BarStore.
type Fetcher struct {
	cfg      Config
	provider model.BarProvider
	bars     model.BarStore
	prom     *metrics.Metrics
}

// NewFetcher creates a Fetcher. prom may be nil.
func NewFetcher(cfg Config, provider model.BarProvider, bars model.BarStore, prom *metrics.Metrics) *Fetcher {
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = defaultBackoffBase
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepCtx
	}
	return &Fetcher{cfg: cfg, provider: provider, bars: bars, prom: prom}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// fetchWithRetry calls the provider, backing off 2s, 4s, 8s... between
// attempts. The last error is returned once attempts are exhausted.
func (f *Fetcher) fetchWithRetry(ctx context.Context, symbol string, start, end time.Time) ([]model.PriceBar, error) {
	delay := f.cfg.BackoffBase
	var lastErr error

	for attempt := 1; attempt <= f.cfg.MaxAttempts; attempt++ {
		bars, err := f.provider.GetBars(ctx, symbol, start, end)
		if err == nil {
			return bars, nil
		}
		lastErr = err
		log.Printf("[marketdata] fetch %s attempt %d/%d failed: %v", symbol, attempt, f.cfg.MaxAttempts, err)

		if attempt == f.cfg.MaxAttempts {
			break
		}
		if err := f.cfg.Sleep(ctx, delay); err != nil {
			return nil, err
		}
		delay *= 2
	}
	return nil, fmt.Errorf("fetch %s: %w", symbol, lastErr)
}

// Refresh pulls any bars newer than the latest stored bar for symbol and
// persists them. Returns the number of new rows.
func (f *Fetcher) Refresh(ctx context.Context, symbol string, now time.Time) (int, error) {
	last, err := f.bars.LastBarTS(ctx, symbol)
	if err != nil {
		return 0, err
	}

	start := now.AddDate(0, 0, -DefaultHistoryDays)
	if !last.IsZero() {
		// Re-fetch from the last stored bar; INSERT OR IGNORE dedupes.
		start = last
	}

	bars, err := f.fetchWithRetry(ctx, symbol, start, now)
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, nil
	}

	n, err := f.bars.InsertBars(ctx, bars)
	if err != nil {
		return 0, err
	}
	if f.prom != nil {
		f.prom.BarsIngested.Add(float64(n))
	}
	if n > 0 {
		log.Printf("[marketdata] %s: %d new bars (through %s)", symbol, n, bars[len(bars)-1].TS.Format("2006-01-02"))
	}
	return n, nil
}

// Backfill pulls the full [start, end) range for symbol and persists it.
// Existing rows are left untouched.
func (f *Fetcher) Backfill(ctx context.Context, symbol string, start, end time.Time) (int, error) {
	bars, err := f.fetchWithRetry(ctx, symbol, start, end)
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, nil
	}

	n, err := f.bars.InsertBars(ctx, bars)
	if err != nil {
		return 0, err
	}
	if f.prom != nil {
		f.prom.BarsIngested.Add(float64(n))
	}
	log.Printf("[marketdata] backfill %s: %d bars fetched, %d new", symbol, len(bars), n)
	return n, nil
}

// RefreshAll refreshes every symbol, logging per-symbol failures and
// continuing. The first error is returned after all symbols are attempted.
func (f *Fetcher) RefreshAll(ctx context.Context, symbols []string, now time.Time) error {
	var firstErr error
	for _, sym := range symbols {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := f.Refresh(ctx, sym, now); err != nil {
			log.Printf("[marketdata] refresh %s failed: %v", sym, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
