// Package timeutil provides calendar-day helpers for attendance tracking.
// Attendance is keyed by local calendar date, never by instant, so all
// helpers here work on dates formatted as ISO "YYYY-MM-DD".
package timeutil

import (
	"fmt"
	"time"
)

// DayFormat is the ISO calendar-date layout used in persisted rows.
const DayFormat = "2006-01-02"

// StampFormat is the ISO-8601 second-precision layout used for ledger and
// observation timestamps. Generated by the writers, never by the backend.
const StampFormat = "2006-01-02T15:04:05"

// Day formats a time as a calendar date.
func Day(t time.Time) string {
	return t.Format(DayFormat)
}

// Stamp formats a time as a second-precision timestamp.
func Stamp(t time.Time) string {
	return t.Format(StampFormat)
}

// ParseDay parses an ISO calendar date.
func ParseDay(s string) (time.Time, error) {
	return time.Parse(DayFormat, s)
}

// ParseStamp parses a second-precision timestamp.
func ParseStamp(s string) (time.Time, error) {
	return time.Parse(StampFormat, s)
}

// Date creates a calendar day value.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// MonthPrefix returns the "YYYY-MM-" prefix shared by every date in the
// given month. Month scans match on this prefix.
func MonthPrefix(year, month int) string {
	return fmt.Sprintf("%04d-%02d-", year, month)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year, month int) int {
	return Date(year, month+1, 1).AddDate(0, 0, -1).Day()
}

// DayOfMonth extracts the day number from an ISO date string.
// Returns 0 if the string is not a valid date.
func DayOfMonth(s string) int {
	t, err := ParseDay(s)
	if err != nil {
		return 0
	}
	return t.Day()
}
