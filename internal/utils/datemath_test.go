package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDate(t *testing.T) {
	t.Run("Valid date", func(t *testing.T) {
		d, err := ParseDate("2024-01-15")
		assert.NoError(t, err)
		assert.Equal(t, 2024, d.Year())
		assert.Equal(t, time.January, d.Month())
		assert.Equal(t, 15, d.Day())
	})

	t.Run("Invalid format", func(t *testing.T) {
		_, err := ParseDate("2024/01/15")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid date format")
	})

	t.Run("Invalid day", func(t *testing.T) {
		_, err := ParseDate("2024-02-30")
		assert.Error(t, err)
	})
}

func TestDaysBetween(t *testing.T) {
	tests := []struct {
		a, b     string
		expected int
	}{
		{"2025-01-01", "2025-01-10", 9},
		{"2025-01-10", "2025-01-10", 0},
		{"2025-01-10", "2025-01-01", -9},
		{"2024-02-28", "2024-03-01", 2}, // leap year
		{"2023-02-28", "2023-03-01", 1},
		{"2024-12-31", "2025-01-01", 1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"->"+tt.b, func(t *testing.T) {
			a, _ := ParseDate(tt.a)
			b, _ := ParseDate(tt.b)
			assert.Equal(t, tt.expected, DaysBetween(a, b))
		})
	}

	t.Run("Ignores clock part", func(t *testing.T) {
		a := time.Date(2025, 1, 1, 23, 59, 0, 0, time.Local)
		b := time.Date(2025, 1, 2, 0, 1, 0, 0, time.Local)
		assert.Equal(t, 1, DaysBetween(a, b))
	})
}

func TestAddDaysAndIsBefore(t *testing.T) {
	d, _ := ParseDate("2025-01-30")
	next := AddDays(d, 3)
	assert.Equal(t, "2025-02-02", FormatDate(next))
	assert.True(t, IsBefore(d, next))
	assert.False(t, IsBefore(next, d))
	assert.False(t, IsBefore(d, d))
	assert.True(t, SameDay(d, d.Add(5*time.Hour)))
}
