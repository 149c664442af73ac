package markethours

import (
	"testing"
	"time"
)

// et builds a time in the package's Eastern location.
func et(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, eastern)
}

func TestIsMarketOpen(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"monday midsession", et(2024, 3, 4, 12, 0), true},
		{"open boundary inclusive", et(2024, 3, 4, 9, 30), true},
		{"just before open", et(2024, 3, 4, 9, 29), false},
		{"close boundary exclusive", et(2024, 3, 4, 16, 0), false},
		{"last open minute", et(2024, 3, 4, 15, 59), true},
		{"saturday", et(2024, 3, 2, 12, 0), false},
		{"sunday", et(2024, 3, 3, 12, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsMarketOpen(tt.t); got != tt.want {
				t.Errorf("IsMarketOpen(%v) = %v, want %v", tt.t, got, tt.want)
			}
		})
	}
}

func TestIsMarketOpen_ConvertsZones(t *testing.T) {
	// Noon ET on a Monday expressed in UTC.
	noonET := et(2024, 3, 4, 12, 0).UTC()
	if !IsMarketOpen(noonET) {
		t.Error("UTC instant inside the ET session must count as open")
	}
}

func TestNextOpen(t *testing.T) {
	tests := []struct {
		name string
		from time.Time
		want time.Time
	}{
		{"before open same day", et(2024, 3, 4, 8, 0), et(2024, 3, 4, 9, 30)},
		{"after close rolls to next day", et(2024, 3, 4, 17, 0), et(2024, 3, 5, 9, 30)},
		{"friday evening rolls to monday", et(2024, 3, 1, 17, 0), et(2024, 3, 4, 9, 30)},
		{"saturday rolls to monday", et(2024, 3, 2, 12, 0), et(2024, 3, 4, 9, 30)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextOpen(tt.from); !got.Equal(tt.want) {
				t.Errorf("NextOpen(%v) = %v, want %v", tt.from, got, tt.want)
			}
		})
	}
}
