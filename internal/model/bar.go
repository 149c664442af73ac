// Package model defines the core data types shared across the pipeline:
// price bars, indicator snapshots, signals, and the port interfaces that
// decouple business logic from storage and broker implementations.
package model

import (
	"encoding/json"
	"time"
)

// PriceBar represents one OHLCV bar for a single symbol.
// Bars are unique per (symbol, ts) and immutable once written; only the
// ingestion path creates them.
type PriceBar struct {
	Symbol string    `json:"symbol"`
	TS     time.Time `json:"ts"` // bar timestamp (UTC)
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// JSON returns the JSON-encoded bar (ignoring errors for hot-path usage).
func (b *PriceBar) JSON() []byte {
	data, _ := json.Marshal(b)
	return data
}
