// Package report derives display data from a ledger snapshot.
//
// Every function here is pure: it takes a snapshot and returns derived
// values without mutating the input or keeping state. The evaluation
// instant is always an explicit parameter, never an implicit clock read.
package report

import (
	"fmt"
	"time"
)

const (
	Day   Period = "day"
	Week  Period = "week"
	Month Period = "month"
	Year  Period = "year"
)

// Period names a recurring calendar window. Weeks start on Sunday,
// matching the Sun..Sat chart bucket labels.
type Period string

func (p Period) IsValid() bool {
	switch p {
	case Day, Week, Month, Year:
		return true
	default:
		return false
	}
}

// ParsePeriod converts a query-string value into a Period.
func ParsePeriod(s string) (Period, error) {
	p := Period(s)
	if !p.IsValid() {
		return "", fmt.Errorf("unknown period %q", s)
	}
	return p, nil
}

// Range resolves the period to the half-open instant range [start, end)
// containing now, computed in now's location.
func (p Period) Range(now time.Time) (start, end time.Time) {
	y, m, d := now.Date()
	loc := now.Location()

	switch p {
	case Day:
		start = time.Date(y, m, d, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 0, 1)
	case Week:
		day := time.Date(y, m, d, 0, 0, 0, 0, loc)
		start = day.AddDate(0, 0, -int(now.Weekday()))
		return start, start.AddDate(0, 0, 7)
	case Month:
		start = time.Date(y, m, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 1, 0)
	case Year:
		start = time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(1, 0, 0)
	default:
		return now, now
	}
}

// Contains reports whether ts falls inside [start, end) for the period
// resolved at now.
func (p Period) Contains(ts, now time.Time) bool {
	start, end := p.Range(now)
	return !ts.Before(start) && ts.Before(end)
}
