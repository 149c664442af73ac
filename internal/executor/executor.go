// Package executor polls for unexecuted signals, sizes orders under the
// zero-leverage policy, and submits them to the broker.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"stockbotv1/internal/markethours"
	"stockbotv1/internal/metrics"
	"stockbotv1/internal/model"
	"stockbotv1/internal/notification"
	"stockbotv1/internal/risk"
)

// DefaultPollInterval is the pause between executor poll cycles.
const DefaultPollInterval = 10 * time.Second

// ErrAlreadyExecuted is returned by ExecuteSignal when the executed latch
// was already set, e.g. by a concurrent caller or an earlier poll cycle.
var ErrAlreadyExecuted = errors.New("executor: signal already executed")

// ErrSignalNotFound is returned by ExecuteSignal for an unknown signal id.
var ErrSignalNotFound = errors.New("executor: signal not found")

// Config holds the executor's runtime settings.
type Config struct {
	// DryRun marks signals executed without contacting the broker.
	DryRun bool

	// PollInterval is the pause between poll cycles (default 10s).
	PollInterval time.Duration

	// MarketHoursOnly skips live poll cycles outside the regular US equity
	// session. Dry-run cycles are never gated so the pipeline stays testable.
	MarketHoursOnly bool

	// Now is the clock used for execution timestamps and the market-hours
	// gate. Defaults to time.Now.
	Now func() time.Time
}

// Executor drives the PENDING → EXECUTED state machine for signals.
//
// EXECUTED is a one-way latch: a signal is mutated exactly once. Broker
// failures leave the signal pending and it is retried on the next cycle
// (at-least-once attempt semantics).
type Executor struct {
	cfg      Config
	signals  model.SignalStore
	broker   model.Broker
	risk     *risk.Manager
	notifier notification.Notifier // optional
	prom     *metrics.Metrics      // optional
}

// New creates an Executor. notifier and prom may be nil; broker may be nil
// only in dry-run mode.
func New(cfg Config, signals model.SignalStore, broker model.Broker,
	rm *risk.Manager, notifier notification.Notifier, prom *metrics.Metrics) *Executor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Executor{
		cfg:      cfg,
		signals:  signals,
		broker:   broker,
		risk:     rm,
		notifier: notifier,
		prom:     prom,
	}
}

// Run polls for unexecuted signals on a fixed interval until ctx is
// cancelled. Iterations never overlap: the next tick is not serviced until
// the current cycle completes. A daily-loss breach halts the loop and is
// returned to the caller; any other per-signal failure only logs.
func (e *Executor) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := e.PollOnce(ctx); err != nil {
			if errors.Is(err, risk.ErrDailyLossLimit) {
				e.notify(ctx, notification.TradingHalted())
				return err
			}
			log.Printf("[executor] poll cycle error: %v", err)
		}

		select {
		case <-ctx.Done():
			log.Println("[executor] shutdown signal received, stopping poll loop")
			return nil
		case <-ticker.C:
		}
	}
}

// PollOnce executes one poll cycle: query all unexecuted signals oldest
// first and process each in order.
func (e *Executor) PollOnce(ctx context.Context) error {
	start := e.cfg.Now()

	if !e.cfg.DryRun && e.cfg.MarketHoursOnly && !markethours.IsMarketOpen(start) {
		log.Println("[executor] market closed, skipping poll cycle")
		return nil
	}

	signals, err := e.signals.ListUnexecuted(ctx)
	if err != nil {
		return fmt.Errorf("list unexecuted: %w", err)
	}
	if e.prom != nil {
		e.prom.UnexecutedBacklog.Set(float64(len(signals)))
	}
	if len(signals) == 0 {
		return nil
	}
	log.Printf("[executor] found %d unexecuted signals", len(signals))

	for i := range signals {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := e.processSignal(ctx, &signals[i]); err != nil {
			if errors.Is(err, risk.ErrDailyLossLimit) {
				return err
			}
			// Transient failure: the signal stays pending and is retried
			// on the next cycle.
			log.Printf("[executor] %s %s (id=%d) failed, left pending: %v",
				signals[i].Type, signals[i].Symbol, signals[i].ID, err)
			if e.prom != nil {
				e.prom.OrderErrors.Inc()
			}
		}
	}

	if e.prom != nil {
		e.prom.ExecutorCycleDur.Observe(time.Since(start).Seconds())
	}
	return nil
}

// processSignal handles one pending signal from the poll queue.
func (e *Executor) processSignal(ctx context.Context, sig *model.Signal) error {
	log.Printf("[executor] processing signal: %s %s at %s", sig.Type, sig.Symbol, sig.TS.Format("2006-01-02"))

	if e.cfg.DryRun {
		return e.executeDryRun(ctx, sig)
	}

	acct, err := e.broker.GetAccount(ctx)
	if err != nil {
		return fmt.Errorf("get account: %w", err)
	}
	trade, err := e.broker.GetLatestTrade(ctx, sig.Symbol)
	if err != nil {
		return fmt.Errorf("get latest trade: %w", err)
	}
	if trade.Price <= 0 {
		return fmt.Errorf("invalid trade price %v for %s", trade.Price, sig.Symbol)
	}

	// Poll-path sizing is BUY-only: SELL signals size to zero and stay
	// pending. See DESIGN.md for the recorded product decision.
	var qty int64
	if sig.Type == model.SignalBuy {
		qty = sizeOrder(e.risk, acct.Cash, trade.Price)
	}
	if e.risk != nil && e.risk.Halted() {
		return risk.ErrDailyLossLimit
	}
	if qty <= 0 {
		log.Printf("[executor] not enough cash to place %s order for %s (cash=%.2f price=%.2f)",
			sig.Type, sig.Symbol, acct.Cash, trade.Price)
		return nil
	}

	return e.submit(ctx, sig, qty, trade.Price)
}

// ExecuteSignal executes a single signal by id, outside the poll loop.
// Unlike the poll path it sizes both BUY and SELL orders from account cash.
func (e *Executor) ExecuteSignal(ctx context.Context, id int64) error {
	sig, err := e.signals.GetSignal(ctx, id)
	if err != nil {
		return fmt.Errorf("get signal %d: %w", id, err)
	}
	if sig == nil {
		return ErrSignalNotFound
	}
	// Re-check before doing any work; MarkExecuted re-checks atomically.
	if sig.Executed {
		return ErrAlreadyExecuted
	}

	if e.cfg.DryRun {
		return e.executeDryRun(ctx, sig)
	}

	acct, err := e.broker.GetAccount(ctx)
	if err != nil {
		return fmt.Errorf("get account: %w", err)
	}
	trade, err := e.broker.GetLatestTrade(ctx, sig.Symbol)
	if err != nil {
		return fmt.Errorf("get latest trade: %w", err)
	}
	if trade.Price <= 0 {
		return fmt.Errorf("invalid trade price %v for %s", trade.Price, sig.Symbol)
	}

	qty := sizeOrder(e.risk, acct.Cash, trade.Price)
	if e.risk != nil && e.risk.Halted() {
		return risk.ErrDailyLossLimit
	}
	if qty <= 0 {
		return fmt.Errorf("insufficient cash %.2f for %s at %.2f", acct.Cash, sig.Symbol, trade.Price)
	}

	return e.submit(ctx, sig, qty, trade.Price)
}

// sizeOrder computes the share quantity affordable with cash at price,
// capped by the risk manager's per-trade budget. The zero-leverage invariant
// qty*price ≤ cash holds by construction: the risk cap never increases the
// requested notional.
func sizeOrder(rm *risk.Manager, cash, price float64) int64 {
	notional := cash
	if rm != nil {
		capped, err := rm.PositionSize(cash)
		if err != nil {
			return 0
		}
		notional = capped
	}
	return int64(math.Floor(notional / price))
}

// submit places the market order and latches the signal as executed.
func (e *Executor) submit(ctx context.Context, sig *model.Signal, qty int64, price float64) error {
	side := model.SideBuy
	if sig.Type == model.SignalSell {
		side = model.SideSell
	}

	order, err := e.broker.SubmitOrder(ctx, model.OrderRequest{
		Symbol:      sig.Symbol,
		Qty:         qty,
		Side:        side,
		Type:        model.OrderTypeMarket,
		TimeInForce: model.TIFGoodTillCanceled,
	})
	if err != nil {
		return fmt.Errorf("submit order: %w", err)
	}

	// "Executed" here means submitted, not confirmed filled; see DESIGN.md.
	ok, err := e.signals.MarkExecuted(ctx, sig.ID, model.ExecutionDetails{
		OrderID:   order.ID,
		Qty:       qty,
		Price:     price,
		Timestamp: e.cfg.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("mark executed: %w", err)
	}
	if !ok {
		log.Printf("[executor] signal %d was executed concurrently, order %s may be duplicated", sig.ID, order.ID)
		return nil
	}

	log.Printf("[executor] order placed: %s %d %s @ %.2f (order=%s)", side, qty, sig.Symbol, price, order.ID)
	if e.prom != nil {
		e.prom.OrdersSubmitted.WithLabelValues(side).Inc()
	}
	e.notify(ctx, notification.OrderPlaced(side, qty, sig.Symbol, price, order.ID))
	return nil
}

// executeDryRun marks the signal executed without any broker call. The path
// is behaviorally identical to the live path apart from the network I/O.
func (e *Executor) executeDryRun(ctx context.Context, sig *model.Signal) error {
	ok, err := e.signals.MarkExecuted(ctx, sig.ID, model.ExecutionDetails{
		DryRun:    true,
		Timestamp: e.cfg.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("mark executed: %w", err)
	}
	if !ok {
		return nil
	}
	log.Printf("[executor] [DRY RUN] would execute %s order for %s", sig.Type, sig.Symbol)
	if e.prom != nil {
		e.prom.DryRunExecutions.Inc()
	}
	return nil
}

func (e *Executor) notify(ctx context.Context, alert notification.Alert) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Send(ctx, alert); err != nil {
		log.Printf("[executor] notification failed: %v", err)
	}
}
