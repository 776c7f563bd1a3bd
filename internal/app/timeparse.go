package app

import (
	"fmt"
	"strings"
	"time"
)

var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

var reversedLayouts = []string{
	"02-01-2006T15:04:05Z07:00",
	"02-01-2006T15:04:05",
	"02-01-2006T15:04",
	"02-01-2006 15:04:05",
	"02-01-2006",
}

// ParseTimestamp accepts ISO timestamps (YYYY-MM-DDTHH:MM:SS, optionally with
// an offset or Z) and the reversed DD-MM-YYYYTHH:MM:SS form, each also as a
// bare date. The result carries the wall clock of the input in the policy's
// location.
func (p Policy) ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	layouts := isoLayouts
	if first, _, ok := strings.Cut(s, "-"); ok && len(first) == 2 {
		layouts = reversedLayouts
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return p.Naive(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// FormatTimestamp renders t as ISO local time without an offset, the format
// used for EventStart, EventEnd and calendar events.
func FormatTimestamp(t time.Time) string {
	return t.Format("2006-01-02T15:04:05")
}
