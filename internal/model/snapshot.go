package model

import "time"

// IndicatorSnapshot holds the indicator values derived from the bar history
// up to and including TS. The fields are fixed and strongly typed rather than
// a dynamic name→value blob, so malformed rows cannot reach the signal rules.
// Snapshots are unique per (symbol, ts) and are overwritten on recompute when
// new bars arrive.
type IndicatorSnapshot struct {
	Symbol string    `json:"symbol"`
	TS     time.Time `json:"ts"`
	RSI    float64   `json:"rsi"`
	SMA20  float64   `json:"sma20"`
	EMA50  float64   `json:"ema50"`
}
