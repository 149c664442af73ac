package model

import (
	"testing"
	"time"
)

func TestSignalValid(t *testing.T) {
	base := func() Signal {
		return Signal{
			Symbol: "AAPL",
			TS:     time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
			Type:   SignalBuy,
			Reason: ReasonRSIOversold,
			Values: map[string]float64{"rsi": 25},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Signal)
		want   bool
	}{
		{"buy with reason and values", nil, true},
		{"sell with reason and values", func(s *Signal) {
			s.Type = SignalSell
			s.Reason = ReasonRSIOverbought
		}, true},
		{"unknown type", func(s *Signal) { s.Type = "HOLD" }, false},
		{"empty type", func(s *Signal) { s.Type = "" }, false},
		{"empty reason", func(s *Signal) { s.Reason = "" }, false},
		{"nil values", func(s *Signal) { s.Values = nil }, false},
		{"empty values", func(s *Signal) { s.Values = map[string]float64{} }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base()
			if tt.mutate != nil {
				tt.mutate(&s)
			}
			if got := s.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v for %+v", got, tt.want, s)
			}
		})
	}
}
