// Package notification delivers trading alerts — order submissions and risk
// halts — to external channels (webhooks, logs).
package notification

import (
	"context"
	"fmt"
	"log"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert is a single trading event to be delivered.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
}

// OrderPlaced builds the alert sent after a market order is submitted to
// the broker.
func OrderPlaced(side string, qty int64, symbol string, price float64, orderID string) Alert {
	return Alert{
		Level:   AlertInfo,
		Title:   "order placed",
		Message: fmt.Sprintf("%s %d %s @ %.2f (order %s)", side, qty, symbol, price, orderID),
	}
}

// TradingHalted builds the alert sent when the daily loss limit stops the
// executor for the rest of the session.
func TradingHalted() Alert {
	return Alert{
		Level:   AlertCritical,
		Title:   "trading halted",
		Message: "daily loss limit reached, executor stopped for the session",
	}
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier logs alerts instead of delivering them externally (useful for
// development and dry-run mode).
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	log.Printf("[notify] [%s] %s: %s", alert.Level, alert.Title, alert.Message)
	return nil
}
