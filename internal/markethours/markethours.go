// Package markethours answers whether the US equity market is open.
package markethours

import "time"

// eastern is the US Eastern time zone with a fixed-offset fallback when the
// tz database is unavailable.
var eastern = mustLoadEastern()

func mustLoadEastern() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.FixedZone("ET", -5*3600)
	}
	return loc
}

// Regular session in Eastern time.
const (
	OpenHour    = 9
	OpenMinute  = 30
	CloseHour   = 16
	CloseMinute = 0
)

// IsMarketOpen returns true if t falls within the regular US equity session
// (9:30 AM – 4:00 PM ET, Mon–Fri).
func IsMarketOpen(t time.Time) bool {
	et := t.In(eastern)
	if !IsWeekday(et) {
		return false
	}
	hm := et.Hour()*60 + et.Minute()
	return hm >= OpenHour*60+OpenMinute && hm < CloseHour*60+CloseMinute
}

// IsWeekday returns true if t is Mon–Fri in Eastern time.
func IsWeekday(t time.Time) bool {
	wd := t.In(eastern).Weekday()
	return wd >= time.Monday && wd <= time.Friday
}

// NextOpen returns the next regular session open at or after t.
func NextOpen(t time.Time) time.Time {
	et := t.In(eastern)
	open := time.Date(et.Year(), et.Month(), et.Day(), OpenHour, OpenMinute, 0, 0, eastern)
	for !open.After(et) || !IsWeekday(open) {
		open = open.AddDate(0, 0, 1)
	}
	return open
}
