package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Month identifies a calendar month used to filter reports by creation time.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses a "YYYY-MM" value.
func ParseMonth(value string) (Month, error) {
	parts := strings.Split(strings.TrimSpace(value), "-")
	if len(parts) != 2 {
		return Month{}, fmt.Errorf("month %q must be formatted as YYYY-MM", value)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil || year < 1 || year > 9999 {
		return Month{}, fmt.Errorf("month %q has an invalid year", value)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 1 || m > 12 {
		return Month{}, fmt.Errorf("month %q has an invalid month", value)
	}
	return Month{Year: year, Month: time.Month(m)}, nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Window returns the half-open interval [first-of-month, first-of-next-month) in loc.
func (m Month) Window(loc *time.Location) TimeWindow {
	if loc == nil {
		loc = time.Local
	}
	start := time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, loc)
	return TimeWindow{From: start, To: start.AddDate(0, 1, 0)}
}

// TimeWindow is a half-open time interval [From, To).
type TimeWindow struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the window.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}
