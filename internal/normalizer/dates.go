package normalizer

import (
	"strings"
	"time"
)

// dateLayouts are tried in order when parsing text dates. The US-style
// slash format precedes the day-first one because the extraction prompt
// requests it; a fixed order keeps parsing deterministic.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"02-01-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"02.01.2006",
}

// ParseDate normalizes a text date to ISO-8601 (date only). Timestamps with
// a time component are accepted and truncated to the date.
func ParseDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}

	// RFC3339 timestamps show up when a backend echoes stored dates back.
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format("2006-01-02"), true
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}
