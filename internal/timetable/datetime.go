package timetable

import (
	"time"
)

// DateKeyLayout is the layout of Week keys.
const DateKeyLayout = "2006-01-02"

// Date turns the numeric YYYYMMDD into local midnight of that day.
func Date(date int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y := date / 10000
	m := time.Month((date / 100) % 100)
	d := date % 100
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// CombineDateTime combines a numeric YYYYMMDD date with a numeric HMM or
// HHMM time into a wall-clock instant in loc. The time is read as if
// zero-padded to four digits: hours are the first two, minutes the last
// two digits.
func CombineDateTime(date, hhmm int, loc *time.Location) time.Time {
	day := Date(date, loc)
	h := (hhmm / 100) % 100
	m := hhmm % 100
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, day.Location())
}

// DateKey is the Week bucket key of t.
func DateKey(t time.Time) string {
	return t.Format(DateKeyLayout)
}

// ParseDateKey is the inverse of DateKey; the result is local midnight.
func ParseDateKey(key string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(DateKeyLayout, key, loc)
}

// StartOfDay truncates t to local midnight.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	if loc != nil {
		a, b = a.In(loc), b.In(loc)
	}
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
