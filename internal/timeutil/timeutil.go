// ABOUTME: Elapsed-seconds decomposition and clock/date formatting
// ABOUTME: Pure helpers shared by the engine and the display layer
package timeutil

import (
	"fmt"
	"time"
)

const (
	secondsPerMinute = 60
	secondsPerHour   = 60 * secondsPerMinute
	secondsPerDay    = 24 * secondsPerHour
)

// Parts is an elapsed duration split into calendar-free units
type Parts struct {
	Days    int64
	Hours   int
	Minutes int
	Seconds int
}

// Decompose splits totalSeconds into days, hours, minutes and seconds.
// Negative input is treated as zero.
func Decompose(totalSeconds int64) Parts {
	if totalSeconds < 0 {
		totalSeconds = 0
	}

	remainder := totalSeconds % secondsPerDay
	return Parts{
		Days:    totalSeconds / secondsPerDay,
		Hours:   int(remainder / secondsPerHour),
		Minutes: int((remainder % secondsPerHour) / secondsPerMinute),
		Seconds: int(remainder % secondsPerMinute),
	}
}

// Total reassembles the parts into seconds
func (p Parts) Total() int64 {
	return p.Days*secondsPerDay +
		int64(p.Hours)*secondsPerHour +
		int64(p.Minutes)*secondsPerMinute +
		int64(p.Seconds)
}

// Clock renders the hours/minutes/seconds as HH:MM:SS
func (p Parts) Clock() string {
	return FormatClock(p.Hours, p.Minutes, p.Seconds)
}

// FormatClock zero-pads each field to two digits and joins them with colons
func FormatClock(h, m, s int) string {
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FormatDate renders a date with time and zone, e.g. "Jan 2 2024 03:04:05 PM UTC"
func FormatDate(t time.Time) string {
	return t.Format("Jan 2 2006 03:04:05 PM MST")
}

// FormatDateOnly renders just the calendar date, e.g. "Jan 2, 2024"
func FormatDateOnly(t time.Time) string {
	return t.Format("Jan 2, 2006")
}
