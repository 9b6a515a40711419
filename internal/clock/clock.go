package clock

import "time"

// Clock supplies "now" to every time-dependent component.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock in the given location (time.Local if nil).
type System struct {
	Location *time.Location
}

func (s System) Now() time.Time {
	if s.Location == nil {
		return time.Now()
	}
	return time.Now().In(s.Location)
}

// Fixed always returns the same instant. Used for the -now debug flag
// and in tests.
type Fixed time.Time

func (f Fixed) Now() time.Time {
	return time.Time(f)
}

// Parse reads a debug override such as "2024-05-10T18:00" in loc.
// Accepted layouts are RFC 3339, "2006-01-02T15:04" and "2006-01-02".
func Parse(value string, loc *time.Location) (Fixed, error) {
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return Fixed(t.In(loc)), nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04", value, loc); err == nil {
		return Fixed(t), nil
	}
	t, err := time.ParseInLocation("2006-01-02", value, loc)
	if err != nil {
		return Fixed{}, err
	}
	return Fixed(t), nil
}
