package model

import (
	"encoding/json"
	"time"
)

// SignalType represents the direction of a trading signal.
type SignalType string

const (
	SignalBuy  SignalType = "BUY"
	SignalSell SignalType = "SELL"
)

// Signal reason codes. Each detection rule emits exactly one of these.
const (
	ReasonSMACrossAbove = "SMA_20_CROSS_ABOVE_EMA_50"
	ReasonSMACrossBelow = "SMA_20_CROSS_BELOW_EMA_50"
	ReasonRSIOversold   = "RSI_OVERSOLD"
	ReasonRSIOverbought = "RSI_OVERBOUGHT"
)

// ExecutionDetails records the outcome of executing a signal.
// Either OrderID/Qty/Price are set (live order) or DryRun is true.
type ExecutionDetails struct {
	OrderID   string    `json:"order_id,omitempty"`
	Qty       int64     `json:"qty,omitempty"`
	Price     float64   `json:"price,omitempty"`
	DryRun    bool      `json:"dry_run,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Signal is a discrete trading signal detected from indicator data.
//
// Lifecycle: created by the signal engine with Executed=false, then flipped
// exactly once by the order executor to Executed=true together with
// ExecutionDetails. Signals are never deleted.
type Signal struct {
	ID               int64              `json:"id"`
	Symbol           string             `json:"symbol"`
	TS               time.Time          `json:"ts"`
	Type             SignalType         `json:"signal_type"`
	Reason           string             `json:"reason"`
	Values           map[string]float64 `json:"values"`
	Executed         bool               `json:"executed"`
	ExecutionDetails *ExecutionDetails  `json:"execution_details,omitempty"`
}

// Valid reports whether the signal carries the minimum required fields.
// Candidates missing type, reason, or values are dropped by the signal
// engine with a warning instead of aborting the batch.
func (s *Signal) Valid() bool {
	if s.Type != SignalBuy && s.Type != SignalSell {
		return false
	}
	if s.Reason == "" {
		return false
	}
	return len(s.Values) > 0
}

// JSON returns the JSON-encoded signal (ignoring errors for hot-path usage).
func (s *Signal) JSON() []byte {
	data, _ := json.Marshal(s)
	return data
}
