// Command backfill loads historical daily bars for a set of symbols into the
// local store. Run it once before starting the bot so the indicator engine
// has enough history on the first cycle.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"stockbotv1/config"
	"stockbotv1/internal/marketdata"
	sqlitestore "stockbotv1/internal/store/sqlite"
	"stockbotv1/pkg/alpaca"
)

func main() {
	log.SetFlags(log.LstdFlags)

	symbolsFlag := flag.String("symbols", "", "comma-separated symbols (default: SYMBOLS env)")
	days := flag.Int("days", 365, "how many calendar days of history to fetch")
	flag.Parse()

	cfg := config.Load()

	symbols := cfg.ParseSymbols()
	if *symbolsFlag != "" {
		symbols = nil
		for _, s := range strings.Split(*symbolsFlag, ",") {
			if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
				symbols = append(symbols, s)
			}
		}
	}
	if len(symbols) == 0 {
		log.Fatal("[backfill] no symbols given")
	}
	if cfg.AlpacaAPIKey == "" || cfg.AlpacaAPISecret == "" {
		log.Fatal("[backfill] ALPACA_API_KEY and ALPACA_API_SECRET are required")
	}

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		os.MkdirAll(dir, 0o755)
	}
	store, err := sqlitestore.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("[backfill] sqlite init failed: %v", err)
	}
	defer store.Close()

	client := alpaca.NewClient(alpaca.Config{
		APIKey:      cfg.AlpacaAPIKey,
		APISecret:   cfg.AlpacaAPISecret,
		BaseURL:     cfg.AlpacaAPIURL,
		DataBaseURL: cfg.AlpacaDataURL,
	})
	fetcher := marketdata.NewFetcher(marketdata.Config{}, client, store, nil)

	ctx := context.Background()
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -*days)
	log.Printf("[backfill] fetching %d symbols from %s to %s",
		len(symbols), start.Format("2006-01-02"), end.Format("2006-01-02"))

	total := 0
	failed := 0
	for _, symbol := range symbols {
		n, err := fetcher.Backfill(ctx, symbol, start, end)
		if err != nil {
			log.Printf("[backfill] %s failed: %v", symbol, err)
			failed++
			continue
		}
		total += n
	}

	log.Printf("[backfill] done: %d new bars across %d symbols (%d failed)", total, len(symbols), failed)
	if failed > 0 {
		os.Exit(1)
	}
}
