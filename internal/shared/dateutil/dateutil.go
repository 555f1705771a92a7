// Package dateutil holds the calendar arithmetic used by leave balances.
//
// All counts work on calendar dates: the time of day is dropped and the
// date is taken in the value's own location, so a daylight saving change
// inside a range never adds or removes a day.
package dateutil

import (
	"fmt"
	"time"
)

const (
	isoLayout      = "2006-01-02"
	displayLayout  = "02/01/2006"
	dateTimeLayout = "02/01/2006 - 15:04"
)

// StartOfDay returns midnight UTC of t's calendar date.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween is the signed number of calendar days from start to end.
func daysBetween(start, end time.Time) int {
	return int(StartOfDay(end).Sub(StartOfDay(start)).Hours() / 24)
}

// InclusiveDayCount counts calendar days from start to end, both included.
// A single day range counts 1; an inverted range counts 0.
func InclusiveDayCount(start, end time.Time) int {
	diff := daysBetween(start, end)
	if diff < 0 {
		return 0
	}
	return diff + 1
}

// WeekdayCount counts Monday to Friday dates from start to end, both included.
func WeekdayCount(start, end time.Time) int {
	total := InclusiveDayCount(start, end)
	if total == 0 {
		return 0
	}

	// Whole weeks contribute five weekdays each; walk the remainder.
	count := (total / 7) * 5
	day := StartOfDay(start).AddDate(0, 0, (total/7)*7)
	for i := 0; i < total%7; i++ {
		if IsWeekday(day) {
			count++
		}
		day = day.AddDate(0, 0, 1)
	}
	return count
}

func IsWeekday(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// FormatDate renders DD/MM/YYYY; the zero time renders as N/A.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format(displayLayout)
}

// FormatDateTime renders DD/MM/YYYY - HH:MM.
func FormatDateTime(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format(dateTimeLayout)
}

// FormatISO renders YYYY-MM-DD, the wire format of every date field.
func FormatISO(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(isoLayout)
}

// ParseDate parses a YYYY-MM-DD date at midnight UTC. RFC3339 timestamps are
// accepted too and truncated to their date.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(isoLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: expected YYYY-MM-DD", s)
	}
	return StartOfDay(t), nil
}
