package signalengine

import (
	"testing"
	"time"

	"stockbotv1/internal/model"
)

func snap(sma, ema, rsi float64) model.IndicatorSnapshot {
	return model.IndicatorSnapshot{
		Symbol: "AAPL",
		TS:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		SMA20:  sma,
		EMA50:  ema,
		RSI:    rsi,
	}
}

func TestDetectCrossover_BuyOnCrossAbove(t *testing.T) {
	prev := snap(99, 100, 50)
	curr := snap(101, 100, 50)

	sig := DetectCrossover(prev, curr)
	if sig == nil {
		t.Fatal("expected a crossover signal")
	}
	if sig.Type != model.SignalBuy {
		t.Errorf("type = %s, want BUY", sig.Type)
	}
	if sig.Reason != model.ReasonSMACrossAbove {
		t.Errorf("reason = %s, want %s", sig.Reason, model.ReasonSMACrossAbove)
	}
	if sig.Values["sma_20"] != 101 || sig.Values["ema_50"] != 100 {
		t.Errorf("values = %v, want sma_20:101 ema_50:100 at curr", sig.Values)
	}
}

func TestDetectCrossover_SellOnCrossBelow(t *testing.T) {
	sig := DetectCrossover(snap(101, 100, 50), snap(99, 100, 50))
	if sig == nil {
		t.Fatal("expected a crossover signal")
	}
	if sig.Type != model.SignalSell || sig.Reason != model.ReasonSMACrossBelow {
		t.Errorf("got %s/%s, want SELL/%s", sig.Type, sig.Reason, model.ReasonSMACrossBelow)
	}
}

func TestDetectCrossover_NoSignalWithoutCross(t *testing.T) {
	cases := []struct {
		name       string
		prev, curr model.IndicatorSnapshot
	}{
		{"stays above", snap(101, 100, 50), snap(102, 100, 50)},
		{"stays below", snap(99, 100, 50), snap(98, 100, 50)},
		{"touches from above", snap(101, 100, 50), snap(100, 100, 50)},
	}
	for _, tc := range cases {
		if sig := DetectCrossover(tc.prev, tc.curr); sig != nil {
			t.Errorf("%s: unexpected signal %s/%s", tc.name, sig.Type, sig.Reason)
		}
	}
}

func TestDetectRSI_Thresholds(t *testing.T) {
	sig := DetectRSI(snap(0, 0, 25), DefaultOversold, DefaultOverbought)
	if sig == nil || sig.Type != model.SignalBuy || sig.Reason != model.ReasonRSIOversold {
		t.Fatalf("rsi=25: got %+v, want BUY/RSI_OVERSOLD", sig)
	}
	if sig.Values["rsi"] != 25 {
		t.Errorf("values = %v, want rsi:25", sig.Values)
	}

	sig = DetectRSI(snap(0, 0, 75), DefaultOversold, DefaultOverbought)
	if sig == nil || sig.Type != model.SignalSell || sig.Reason != model.ReasonRSIOverbought {
		t.Fatalf("rsi=75: got %+v, want SELL/RSI_OVERBOUGHT", sig)
	}

	// Neutral band, including exact thresholds, fires nothing.
	for _, rsi := range []float64{30, 50, 70} {
		if sig := DetectRSI(snap(0, 0, rsi), DefaultOversold, DefaultOverbought); sig != nil {
			t.Errorf("rsi=%v: unexpected signal %s", rsi, sig.Reason)
		}
	}
}

func TestDetect_BothRulesMayFire(t *testing.T) {
	// Cross above with oversold RSI → two independent BUY signals.
	sigs := Detect(snap(99, 100, 50), snap(101, 100, 25), DefaultOversold, DefaultOverbought)
	if len(sigs) != 2 {
		t.Fatalf("expected 2 signals, got %d", len(sigs))
	}
	if sigs[0].Reason != model.ReasonSMACrossAbove || sigs[1].Reason != model.ReasonRSIOversold {
		t.Errorf("reasons = %s, %s", sigs[0].Reason, sigs[1].Reason)
	}
}
