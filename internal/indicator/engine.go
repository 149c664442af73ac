package indicator

import (
	"stockbotv1/internal/model"
)

// Config holds the indicator periods for one engine instance.
type Config struct {
	RSIPeriod int // default 14
	SMAPeriod int // default 20
	EMASpan   int // default 50
}

// DefaultConfig returns the standard RSI(14)/SMA(20)/EMA(50) configuration.
func DefaultConfig() Config {
	return Config{RSIPeriod: 14, SMAPeriod: 20, EMASpan: 50}
}

// minBars returns the minimum history length required before any snapshot
// is emitted: the largest configured period.
func (c Config) minBars() int {
	min := c.RSIPeriod
	if c.SMAPeriod > min {
		min = c.SMAPeriod
	}
	if c.EMASpan > min {
		min = c.EMASpan
	}
	return min
}

// Engine converts a bar history into a time-aligned indicator series.
// Compute is pure: persistence of the resulting snapshots is the caller's
// responsibility.
type Engine struct {
	cfg Config
}

// NewEngine creates an indicator engine with the given periods.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Compute derives one IndicatorSnapshot per input bar, aligned to the bar's
// timestamp. Rows before the minimum required window are omitted, not
// zero-filled. If the history is shorter than the minimum window the result
// is empty — that is "not yet ready", not an error.
//
// Bars must be ordered by timestamp ascending.
func (e *Engine) Compute(symbol string, bars []model.PriceBar) []model.IndicatorSnapshot {
	min := e.cfg.minBars()
	if len(bars) < min {
		return nil
	}

	rsi := NewRSI(e.cfg.RSIPeriod)
	sma := NewSMA(e.cfg.SMAPeriod)
	ema := NewEMA(e.cfg.EMASpan)

	snaps := make([]model.IndicatorSnapshot, 0, len(bars)-min+1)
	for i, bar := range bars {
		rsi.Update(bar.Close)
		sma.Update(bar.Close)
		ema.Update(bar.Close)

		if i < min-1 {
			continue
		}
		snaps = append(snaps, model.IndicatorSnapshot{
			Symbol: symbol,
			TS:     bar.TS,
			RSI:    rsi.Value(),
			SMA20:  sma.Value(),
			EMA50:  ema.Value(),
		})
	}
	return snaps
}
