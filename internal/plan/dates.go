package plan

import "time"

// DateFormat is the canonical form for session keys and due dates.
const DateFormat = "2006-01-02"

var dateLayouts = []string{
	DateFormat,
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// NormalizeDate converts any recognized date string to YYYY-MM-DD.
// Unparseable input is returned unchanged; a bad date simply fails key
// lookups rather than raising.
func NormalizeDate(s string) string {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DateFormat)
		}
	}
	return s
}

// DateOf truncates a timestamp to its calendar date string.
func DateOf(t time.Time) string {
	return t.Format(DateFormat)
}

// CompareToToday reports -1, 0 or 1 for a date before, on or after
// today. Unparseable dates compare as today.
func CompareToToday(date string, now time.Time) int {
	d, err := time.Parse(DateFormat, date)
	if err != nil {
		return 0
	}
	today, _ := time.Parse(DateFormat, now.Format(DateFormat))
	switch {
	case d.Before(today):
		return -1
	case d.After(today):
		return 1
	default:
		return 0
	}
}

// DaysBetween returns whole days from a to b, zero when either date is
// unparseable.
func DaysBetween(a, b string) int {
	ta, err := time.Parse(DateFormat, a)
	if err != nil {
		return 0
	}
	tb, err := time.Parse(DateFormat, b)
	if err != nil {
		return 0
	}
	return int(tb.Sub(ta).Hours() / 24)
}
