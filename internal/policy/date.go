package policy

import "time"

// DateLayout is the canonical text form of date fields.
const DateLayout = "2006-01-02"

// ParseDate parses a canonical date field value.
func ParseDate(s string) (time.Time, bool) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatDate renders the calendar date of t in its own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
