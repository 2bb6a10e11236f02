// Package timeutil parses the loosely formatted timestamps the data
// sources emit.
package timeutil

import (
	"strings"
	"time"
)

var zoned = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02 15:04:05Z07:00",
}

var naive = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Parse leniently parses an ISO-8601-ish timestamp. Values without an
// offset are assumed already local to loc and are tagged with it, not
// shifted. Unparseable input yields nil, never an error; one bad
// record must not abort a batch.
func Parse(s string, loc *time.Location) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range zoned {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range naive {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return &t
		}
	}
	return nil
}
