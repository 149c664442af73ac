// Package metrics exposes Prometheus metrics and a small HTTP server for
// /metrics and /healthz.
package metrics

import (
	"context"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the signal pipeline.
type Metrics struct {
	BarsIngested       prometheus.Counter
	SnapshotsComputed  prometheus.Counter
	SignalsDetected    prometheus.Counter
	SignalsDropped     prometheus.Counter
	OrdersSubmitted    *prometheus.CounterVec // labels: side
	OrderErrors        prometheus.Counter
	DryRunExecutions   prometheus.Counter
	DetectCycleDur     prometheus.Histogram
	ExecutorCycleDur   prometheus.Histogram
	UnexecutedBacklog  prometheus.Gauge
	RiskLossToday      prometheus.Gauge
	GatewayClients     prometheus.Gauge
	SignalsBroadcasted prometheus.Counter
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		BarsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradebot_bars_ingested_total",
			Help: "Total price bars written to the store",
		}),
		SnapshotsComputed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradebot_indicator_snapshots_total",
			Help: "Total indicator snapshots computed",
		}),
		SignalsDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradebot_signals_detected_total",
			Help: "Total signals persisted by the signal engine",
		}),
		SignalsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradebot_signals_dropped_total",
			Help: "Malformed signal candidates dropped during detection",
		}),
		OrdersSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradebot_orders_submitted_total",
			Help: "Orders submitted to the broker (by side)",
		}, []string{"side"}),
		OrderErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradebot_order_errors_total",
			Help: "Broker errors during order submission (signal left pending)",
		}),
		DryRunExecutions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradebot_dry_run_executions_total",
			Help: "Signals marked executed in dry-run mode",
		}),
		DetectCycleDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tradebot_detect_cycle_duration_seconds",
			Help:    "Duration of one full detection pass across symbols",
			Buckets: prometheus.DefBuckets,
		}),
		ExecutorCycleDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tradebot_executor_cycle_duration_seconds",
			Help:    "Duration of one executor poll cycle",
			Buckets: prometheus.DefBuckets,
		}),
		UnexecutedBacklog: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradebot_unexecuted_signals",
			Help: "Signals with executed=false at the start of the last poll",
		}),
		RiskLossToday: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradebot_risk_loss_today",
			Help: "Cumulative realized loss recorded by the risk manager",
		}),
		GatewayClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_ws_clients",
			Help: "Connected WebSocket clients",
		}),
		SignalsBroadcasted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_signals_broadcast_total",
			Help: "Signal messages fanned out to WebSocket clients",
		}),
	}

	prometheus.MustRegister(
		m.BarsIngested,
		m.SnapshotsComputed,
		m.SignalsDetected,
		m.SignalsDropped,
		m.OrdersSubmitted,
		m.OrderErrors,
		m.DryRunExecutions,
		m.DetectCycleDur,
		m.ExecutorCycleDur,
		m.UnexecutedBacklog,
		m.RiskLossToday,
		m.GatewayClients,
		m.SignalsBroadcasted,
	)

	return m
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	srv *http.Server
}

// NewServer creates a metrics and health server on addr.
func NewServer(addr string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	return &Server{
		srv: &http.Server{Addr: addr, Handler: mux},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
