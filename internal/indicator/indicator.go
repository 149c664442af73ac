// Package indicator provides technical indicator calculations over price bars.
//
// All indicators implement the Indicator interface, receiving closing prices
// and producing float64 values. Updates are O(1) — no history scans.
package indicator

// Indicator is the interface for all technical indicators.
type Indicator interface {
	// Name returns the indicator name (e.g., "SMA_20", "EMA_50").
	Name() string

	// Update feeds a new closing price and recalculates.
	Update(close float64)

	// Value returns the current calculated value. Returns 0 if not enough data.
	Value() float64

	// Ready returns true when enough data has been accumulated.
	Ready() bool
}
