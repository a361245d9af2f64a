package validation

import (
	"strings"
	"time"
)

// dateLayouts are tried in order; the first successful parse wins. Single-digit
// layout elements accept both padded and unpadded values.
var dateLayouts = []string{
	"2006-1-2", // YYYY-MM-DD
	"1/2/2006", // MM/DD/YYYY
	"2/1/2006", // DD/MM/YYYY
	"2006/1/2", // YYYY/MM/DD
	"1-2-2006", // MM-DD-YYYY
	"2-1-2006", // DD-MM-YYYY
}

// ParseDate reads v as a calendar date. Only strings and time.Time are dates.
func ParseDate(v interface{}) (time.Time, bool) {
	switch d := v.(type) {
	case time.Time:
		return d, true
	case string:
		s := strings.TrimSpace(d)
		for _, layout := range dateLayouts {
			if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// ageInDays returns the number of whole days from t to now.
func ageInDays(t, now time.Time) int {
	return int(now.Sub(t).Hours() / 24)
}
