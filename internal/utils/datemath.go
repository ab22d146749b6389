package utils

import (
	"fmt"
	"math"
	"time"
)

const DateLayout = "2006-01-02"

// NormalizeDate drops the clock part, keeping the local calendar day.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ParseDate converts a yyyy-mm-dd string into a local midnight time.
func ParseDate(dateStr string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, dateStr, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format, expected yyyy-mm-dd: %w", err)
	}
	return t, nil
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DaysBetween returns ceil(b - a) in days after normalizing both to midnight.
// Calendar days are counted through UTC so DST transitions never produce 23h or 25h days.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	start := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	end := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(math.Ceil(end.Sub(start).Hours() / 24))
}

// IsBefore compares calendar days only.
func IsBefore(a, b time.Time) bool {
	return DaysBetween(a, b) > 0
}

func AddDays(d time.Time, n int) time.Time {
	return NormalizeDate(d).AddDate(0, 0, n)
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return DaysBetween(a, b) == 0
}
