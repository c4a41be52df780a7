package plan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDate(t *testing.T) {
	cases := map[string]string{
		"2026-03-15":           "2026-03-15",
		"2026/03/15":           "2026-03-15",
		"03/15/2026":           "2026-03-15",
		"Mar 15, 2026":         "2026-03-15",
		"2026-03-15T10:00:00Z": "2026-03-15",
		"not a date":           "not a date", // passes through unchanged
		"":                     "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeDate(in), "NormalizeDate(%q)", in)
	}
}

func TestCompareToToday(t *testing.T) {
	now := time.Date(2026, 3, 15, 13, 30, 0, 0, time.UTC)

	assert.Equal(t, -1, CompareToToday("2026-03-14", now))
	assert.Equal(t, 0, CompareToToday("2026-03-15", now))
	assert.Equal(t, 1, CompareToToday("2026-03-16", now))
	assert.Equal(t, 0, CompareToToday("garbage", now))
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 31, DaysBetween("2026-02-01", "2026-03-04"))
	assert.Equal(t, -1, DaysBetween("2026-03-02", "2026-03-01"))
	assert.Equal(t, 0, DaysBetween("bad", "2026-03-01"))
}
