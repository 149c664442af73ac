// Package signalengine applies rule-based detection to indicator snapshots
// and persists the resulting signals idempotently.
package signalengine

import (
	"stockbotv1/internal/model"
)

// RSI thresholds for the overbought/oversold rule.
const (
	DefaultOversold   = 30.0
	DefaultOverbought = 70.0
)

// DetectCrossover emits a signal when SMA20 crosses EMA50 between two
// consecutive snapshots: BUY on a cross above, SELL on a cross below.
// Returns nil when no crossover occurred.
func DetectCrossover(prev, curr model.IndicatorSnapshot) *model.Signal {
	values := map[string]float64{
		"sma_20": curr.SMA20,
		"ema_50": curr.EMA50,
	}

	if prev.SMA20 <= prev.EMA50 && curr.SMA20 > curr.EMA50 {
		return &model.Signal{
			Symbol: curr.Symbol,
			TS:     curr.TS,
			Type:   model.SignalBuy,
			Reason: model.ReasonSMACrossAbove,
			Values: values,
		}
	}
	if prev.SMA20 >= prev.EMA50 && curr.SMA20 < curr.EMA50 {
		return &model.Signal{
			Symbol: curr.Symbol,
			TS:     curr.TS,
			Type:   model.SignalSell,
			Reason: model.ReasonSMACrossBelow,
			Values: values,
		}
	}
	return nil
}

// DetectRSI emits a signal when the current RSI is past a threshold:
// BUY below oversold, SELL above overbought. No previous row is required.
// Returns nil when RSI is inside the neutral band.
func DetectRSI(curr model.IndicatorSnapshot, oversold, overbought float64) *model.Signal {
	if curr.RSI < oversold {
		return &model.Signal{
			Symbol: curr.Symbol,
			TS:     curr.TS,
			Type:   model.SignalBuy,
			Reason: model.ReasonRSIOversold,
			Values: map[string]float64{"rsi": curr.RSI},
		}
	}
	if curr.RSI > overbought {
		return &model.Signal{
			Symbol: curr.Symbol,
			TS:     curr.TS,
			Type:   model.SignalSell,
			Reason: model.ReasonRSIOverbought,
			Values: map[string]float64{"rsi": curr.RSI},
		}
	}
	return nil
}

// Detect runs both rules independently against the latest two snapshots and
// returns 0, 1, or 2 candidates. The crossover rule needs two consecutive
// rows; the RSI rule fires on the current row alone. Both may fire at the
// same step.
func Detect(prev, curr model.IndicatorSnapshot, oversold, overbought float64) []model.Signal {
	var out []model.Signal
	if sig := DetectCrossover(prev, curr); sig != nil {
		out = append(out, *sig)
	}
	if sig := DetectRSI(curr, oversold, overbought); sig != nil {
		out = append(out, *sig)
	}
	return out
}
