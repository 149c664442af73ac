package indicator

import "fmt"

// EMA calculates Exponential Moving Average in the recursive (non-adjusted)
// form: EMA[t] = α·close[t] + (1−α)·EMA[t−1] with α = 2/(span+1), seeded by
// the first available close. O(1) per update — no window storage needed.
type EMA struct {
	span       int
	multiplier float64
	current    float64
	count      int
}

// NewEMA creates a new EMA indicator with the given span.
func NewEMA(span int) *EMA {
	return &EMA{
		span:       span,
		multiplier: 2.0 / float64(span+1),
	}
}

func (e *EMA) Name() string { return fmt.Sprintf("EMA_%d", e.span) }

func (e *EMA) Update(close float64) {
	e.count++
	if e.count == 1 {
		e.current = close
		return
	}
	e.current = (close * e.multiplier) + (e.current * (1 - e.multiplier))
}

func (e *EMA) Value() float64 { return e.current }

// Ready reports whether a full span of closes has been observed. The value is
// defined from the first close onward, but it is not considered warm before
// span observations.
func (e *EMA) Ready() bool { return e.count >= e.span }
