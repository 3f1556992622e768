package cli

import (
	"fmt"
	"strings"
	"time"
)

// parseDate parses:
// - YYYY-MM-DD (local midnight)
// - YYYY-MM-DD HH:MM (local date+time)
// - RFC3339 / RFC3339Nano (timezone-aware)
//
// An empty string clears the date (nil).
func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", "2006-01-02 15:04", "2006-01-02T15:04"} {
		if ts, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			ts = ts.UTC()
			return &ts, nil
		}
	}
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		ts = ts.UTC()
		return &ts, nil
	}
	return nil, fmt.Errorf("invalid date %q (expected YYYY-MM-DD, YYYY-MM-DD HH:MM, or RFC3339)", s)
}
