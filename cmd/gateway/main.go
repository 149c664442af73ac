package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockbotv1/config"
	"stockbotv1/internal/api"
	"stockbotv1/internal/gateway"
	"stockbotv1/internal/metrics"
	"stockbotv1/internal/model"
	redisstore "stockbotv1/internal/store/redis"
	sqlitestore "stockbotv1/internal/store/sqlite"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[gateway] starting...")

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- Signal store (read side) ----
	store, err := sqlitestore.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("[gateway] sqlite init failed: %v", err)
	}
	defer store.Close()

	// ---- Redis subscriber (live feed) ----
	sub, err := redisstore.NewSubscriber(redisstore.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Fatalf("[gateway] redis connection failed: %v", err)
	}
	defer sub.Close()
	log.Printf("[gateway] redis connected at %s", cfg.RedisAddr)

	// ---- Hub and fan-out ----
	prom := metrics.NewMetrics()
	hub := gateway.NewHub(prom)

	signalCh := make(chan model.Signal, 256)
	go sub.Run(ctx, signalCh)
	go hub.Run(ctx, signalCh)

	// ---- HTTP server ----
	mux := api.NewRouter(store, hub)
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: cfg.GatewayAddr, Handler: mux}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("[gateway] serving at http://localhost%s", cfg.GatewayAddr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[gateway] server error: %v", err)
		}
	}()

	<-sigCh
	log.Println("[gateway] shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)

	log.Println("[gateway] shutdown complete.")
}
