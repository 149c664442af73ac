// Package api provides the HTTP surface of the signal gateway.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"stockbotv1/internal/gateway"
	"stockbotv1/internal/model"
)

const defaultLatestLimit = 50

// NewRouter sets up the gateway's HTTP routes: health, recent signals, and
// the live WebSocket stream.
func NewRouter(signals model.SignalStore, hub *gateway.Hub) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		setCORS(w)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "ok",
			"clients": hub.ClientCount(),
		})
	})

	// GET /api/v1/signals/latest?n=20 — newest first.
	mux.HandleFunc("/api/v1/signals/latest", func(w http.ResponseWriter, r *http.Request) {
		setCORS(w)
		w.Header().Set("Content-Type", "application/json")

		limit := defaultLatestLimit
		if s := r.URL.Query().Get("n"); s != "" {
			if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 500 {
				limit = n
			}
		}

		out, err := signals.LatestSignals(r.Context(), limit)
		if err != nil {
			log.Printf("[api] latest signals query failed: %v", err)
			http.Error(w, `{"error":"query failed"}`, http.StatusInternalServerError)
			return
		}
		if out == nil {
			out = []model.Signal{}
		}
		json.NewEncoder(w).Encode(out)
	})

	// WS /api/v1/stream — live signal fan-out.
	mux.HandleFunc("/api/v1/stream", hub.HandleWS)

	return mux
}

func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}
