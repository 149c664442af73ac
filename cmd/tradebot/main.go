package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"stockbotv1/config"
	"stockbotv1/internal/executor"
	"stockbotv1/internal/indicator"
	"stockbotv1/internal/marketdata"
	"stockbotv1/internal/metrics"
	"stockbotv1/internal/model"
	"stockbotv1/internal/notification"
	"stockbotv1/internal/risk"
	"stockbotv1/internal/signalengine"
	redisstore "stockbotv1/internal/store/redis"
	sqlitestore "stockbotv1/internal/store/sqlite"
	"stockbotv1/pkg/alpaca"
)

// refreshInterval is the pause between pipeline cycles (bar refresh →
// indicator recompute → signal detection). Bars are daily, so this only
// bounds how quickly a fresh close is picked up.
const refreshInterval = time.Minute

// barWindow is how many bars each indicator recompute reads. Must cover the
// largest indicator period with room to spare.
const barWindow = 200

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[tradebot] starting...")

	cfg := config.Load()
	settings, err := config.LoadSettings(cfg.SettingsPath)
	if err != nil {
		log.Fatalf("[tradebot] settings: %v", err)
	}
	symbols := cfg.ParseSymbols()
	if len(symbols) == 0 {
		log.Fatalf("[tradebot] no symbols configured")
	}
	log.Printf("[tradebot] symbols: %v (dry_run=%v)", symbols, cfg.DryRun)

	// ---- Metrics ----
	prom := metrics.NewMetrics()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr)
	metricsSrv.Start()

	// ---- Shutdown plumbing ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- SQLite store ----
	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		os.MkdirAll(dir, 0o755)
	}
	store, err := sqlitestore.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("[tradebot] sqlite init failed: %v", err)
	}
	defer store.Close()
	log.Printf("[tradebot] sqlite store ready at %s", cfg.DatabasePath)

	// ---- Redis publisher (optional) ----
	var publisher model.SignalPublisher
	redisPub, err := redisstore.NewPublisher(redisstore.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Printf("[tradebot] WARNING: redis unavailable: %v (continuing without live publishing)", err)
	} else {
		publisher = redisPub
		defer redisPub.Close()
	}

	// ---- Broker / market data ----
	broker := alpaca.NewClient(alpaca.Config{
		APIKey:      cfg.AlpacaAPIKey,
		APISecret:   cfg.AlpacaAPISecret,
		BaseURL:     cfg.AlpacaAPIURL,
		DataBaseURL: cfg.AlpacaDataURL,
	})
	fetcher := marketdata.NewFetcher(marketdata.Config{}, broker, store, prom)

	// ---- Pipeline components ----
	indEngine := indicator.NewEngine(indicator.Config{
		RSIPeriod: settings.Indicators.RSIPeriod,
		SMAPeriod: settings.Indicators.SMAPeriod,
		EMASpan:   settings.Indicators.EMASpan,
	})
	sigEngine := signalengine.NewEngine(signalengine.Config{
		Oversold:   settings.Signals.RSIOversold,
		Overbought: settings.Signals.RSIOverbought,
	}, store, store, publisher, prom)

	rm := risk.New(settings.Risk.Balance, settings.Risk.MaxDailyLossPct, settings.Risk.RiskPerTradePct)

	var notifier notification.Notifier = notification.NewLogNotifier()
	if settings.Notifications.WebhookURL != "" {
		notifier = notification.NewWebhookNotifier(settings.Notifications.WebhookURL)
		log.Println("[tradebot] webhook notifications enabled")
	}

	exec := executor.New(executor.Config{
		DryRun:          cfg.DryRun,
		PollInterval:    settings.PollInterval(),
		MarketHoursOnly: settings.Executor.TradeOnlyMarketHours,
	}, store, broker, rm, notifier, prom)

	// ---- Data + detection loop ----
	go func() {
		runPipelineCycle(ctx, fetcher, indEngine, sigEngine, store, prom, rm, symbols)
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runPipelineCycle(ctx, fetcher, indEngine, sigEngine, store, prom, rm, symbols)
			}
		}
	}()

	// ---- Executor loop ----
	execDone := make(chan error, 1)
	go func() {
		execDone <- exec.Run(ctx)
	}()

	log.Printf("[tradebot] pipeline ready: refresh every %s, executor poll every %s",
		refreshInterval, settings.PollInterval())

	// ---- Wait for shutdown or risk halt ----
	select {
	case <-sigCh:
		log.Println("[tradebot] shutdown signal received, cleaning up...")
	case err := <-execDone:
		if err != nil {
			log.Printf("[tradebot] executor halted: %v", err)
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Stop(shutdownCtx)

	log.Println("[tradebot] shutdown complete.")
}

// runPipelineCycle refreshes bars, recomputes indicators, and runs one
// detection pass. Per-symbol failures are logged and never abort the cycle.
func runPipelineCycle(ctx context.Context, fetcher *marketdata.Fetcher,
	indEngine *indicator.Engine, sigEngine *signalengine.Engine,
	store *sqlitestore.Store, prom *metrics.Metrics, rm *risk.Manager, symbols []string) {

	start := time.Now()

	if err := fetcher.RefreshAll(ctx, symbols, start); err != nil {
		log.Printf("[tradebot] bar refresh incomplete: %v", err)
	}

	for _, symbol := range symbols {
		if ctx.Err() != nil {
			return
		}
		bars, err := store.ReadBars(ctx, symbol, barWindow)
		if err != nil {
			log.Printf("[tradebot] read bars for %s: %v", symbol, err)
			continue
		}
		snaps := indEngine.Compute(symbol, bars)
		if len(snaps) == 0 {
			log.Printf("[tradebot] %s: not enough history for indicators (%d bars)", symbol, len(bars))
			continue
		}
		if err := store.UpsertSnapshots(ctx, snaps); err != nil {
			log.Printf("[tradebot] persist snapshots for %s: %v", symbol, err)
			continue
		}
		prom.SnapshotsComputed.Add(float64(len(snaps)))
	}

	sigEngine.Run(ctx, symbols)

	prom.DetectCycleDur.Observe(time.Since(start).Seconds())
	prom.RiskLossToday.Set(rm.LossToday())
}
