package indicator

import "fmt"

// RSI calculates the Relative Strength Index from simple rolling means of the
// close-to-close gains and losses over the trailing window.
//
// Per step: gain = mean of positive deltas, loss = mean of |negative deltas|,
// RS = gain/loss, RSI = 100 - 100/(1+RS). When the window holds no losses the
// division is undefined; the value is pinned to 100 (maximal strength) rather
// than propagating +Inf downstream.
type RSI struct {
	period    int
	gains     []float64 // circular buffers of the last period deltas
	losses    []float64
	idx       int
	count     int // deltas received
	prevClose float64
	seen      bool // first close recorded
	sumGain   float64
	sumLoss   float64
	current   float64
}

// NewRSI creates a new RSI indicator with the given period (typically 14).
func NewRSI(period int) *RSI {
	return &RSI{
		period: period,
		gains:  make([]float64, period),
		losses: make([]float64, period),
	}
}

func (r *RSI) Name() string { return fmt.Sprintf("RSI_%d", r.period) }

func (r *RSI) Update(close float64) {
	if !r.seen {
		// First bar — just record the close, no delta yet.
		r.prevClose = close
		r.seen = true
		return
	}

	delta := close - r.prevClose
	r.prevClose = close

	gain, loss := 0.0, 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}

	// Evict the delta being overwritten, then write the new one.
	r.sumGain -= r.gains[r.idx]
	r.sumLoss -= r.losses[r.idx]
	r.gains[r.idx] = gain
	r.losses[r.idx] = loss
	r.sumGain += gain
	r.sumLoss += loss
	r.idx = (r.idx + 1) % r.period
	r.count++

	if r.count < r.period {
		return
	}

	avgLoss := r.sumLoss / float64(r.period)
	if avgLoss == 0 {
		r.current = 100.0
		return
	}
	avgGain := r.sumGain / float64(r.period)
	rs := avgGain / avgLoss
	r.current = 100.0 - (100.0 / (1.0 + rs))
}

func (r *RSI) Value() float64 { return r.current }
func (r *RSI) Ready() bool    { return r.count >= r.period }
