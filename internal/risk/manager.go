// Package risk enforces the per-session capital limits: a per-trade risk
// budget and a cumulative daily loss stop.
package risk

import (
	"errors"
	"log"
	"sync"
)

// ErrDailyLossLimit is returned once loss_today reaches the daily limit.
// It is a hard stop: callers must halt further order sizing for the session.
var ErrDailyLossLimit = errors.New("risk: daily loss limit reached")

// Manager tracks realized losses and caps position sizes over a single
// trading session.
//
// There is no timer or reset logic: a session boundary (a new trading day)
// is modeled by constructing a fresh Manager, not by mutating this one.
type Manager struct {
	mu sync.Mutex

	balance        float64
	dailyLossLimit float64 // maxDailyLossPct × balance
	maxPerTrade    float64 // riskPerTradePct × balance
	lossToday      float64
}

// New creates a Manager for one trading session. Percentages are expressed
// as 0-100 values (e.g. 2.0 means 2% of the balance).
func New(balance, maxDailyLossPct, riskPerTradePct float64) *Manager {
	return &Manager{
		balance:        balance,
		dailyLossLimit: maxDailyLossPct / 100 * balance,
		maxPerTrade:    riskPerTradePct / 100 * balance,
	}
}

// RecordPL accumulates realized losses. Profits do not reduce loss_today.
// Returns ErrDailyLossLimit once the cumulative loss reaches the daily limit.
func (m *Manager) RecordPL(pl float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if pl < 0 {
		m.lossToday += -pl
	}
	if m.lossToday >= m.dailyLossLimit {
		log.Printf("[risk] daily loss limit breached: lost %.2f of %.2f allowed", m.lossToday, m.dailyLossLimit)
		return ErrDailyLossLimit
	}
	return nil
}

// PositionSize caps the requested stop-risk amount by the per-trade budget.
// It never increases the requested size. Once the daily loss limit has been
// breached it deterministically returns ErrDailyLossLimit instead.
func (m *Manager) PositionSize(stopRiskAmount float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lossToday >= m.dailyLossLimit {
		return 0, ErrDailyLossLimit
	}
	if stopRiskAmount < m.maxPerTrade {
		return stopRiskAmount, nil
	}
	return m.maxPerTrade, nil
}

// LossToday returns the cumulative realized loss for the session.
func (m *Manager) LossToday() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lossToday
}

// Halted reports whether the daily loss limit has been breached.
func (m *Manager) Halted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lossToday >= m.dailyLossLimit
}
