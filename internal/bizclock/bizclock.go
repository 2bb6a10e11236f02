// Package bizclock measures elapsed time restricted to a daily work
// window, so response-latency metrics do not penalize hours when nobody
// is expected to answer.
package bizclock

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Window is a daily work window parsed from "HH:MM-HH:MM". Windows that
// cross midnight (e.g. "22:00-06:00") are not supported; ParseWindow
// rejects them as a configuration error.
type Window struct {
	startMin int // minutes from midnight
	endMin   int
}

func ParseWindow(s string) (Window, error) {
	parts := strings.SplitN(strings.TrimSpace(s), "-", 2)
	if len(parts) != 2 {
		return Window{}, fmt.Errorf("work hours %q: want HH:MM-HH:MM", s)
	}
	start, err := parseHHMM(parts[0])
	if err != nil {
		return Window{}, fmt.Errorf("work hours %q: %w", s, err)
	}
	end, err := parseHHMM(parts[1])
	if err != nil {
		return Window{}, fmt.Errorf("work hours %q: %w", s, err)
	}
	if end <= start {
		return Window{}, fmt.Errorf("work hours %q: window must not cross midnight", s)
	}
	return Window{startMin: start, endMin: end}, nil
}

func parseHHMM(s string) (int, error) {
	hm := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(hm) != 2 {
		return 0, fmt.Errorf("bad time %q", s)
	}
	h, err := strconv.Atoi(strings.TrimSpace(hm[0]))
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("bad hour %q", hm[0])
	}
	m, err := strconv.Atoi(strings.TrimSpace(hm[1]))
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("bad minute %q", hm[1])
	}
	return h*60 + m, nil
}

// String renders the window back in its configuration form.
func (w Window) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", w.startMin/60, w.startMin%60, w.endMin/60, w.endMin%60)
}

// Seconds returns the number of seconds between start and end that fall
// inside the window, evaluated in loc. The second return is false when
// end precedes start; callers treat that as "unknown", not zero.
//
// The walk visits every calendar day from start's date through end's
// date, intersects [start, end] with that day's window, and sums the
// positive intersections. Time outside the window never accumulates,
// which zero-clips overnight idle gaps and multi-day spans.
func (w Window) Seconds(start, end time.Time, loc *time.Location) (int, bool) {
	if end.Before(start) {
		return 0, false
	}
	s := start.In(loc)
	e := end.In(loc)

	total := 0
	day := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, loc)
	lastDay := time.Date(e.Year(), e.Month(), e.Day(), 0, 0, 0, 0, loc)
	for !day.After(lastDay) {
		winStart := day.Add(time.Duration(w.startMin) * time.Minute)
		winEnd := day.Add(time.Duration(w.endMin) * time.Minute)

		segStart := s
		if winStart.After(segStart) {
			segStart = winStart
		}
		segEnd := e
		if winEnd.Before(segEnd) {
			segEnd = winEnd
		}
		if segEnd.After(segStart) {
			total += int(segEnd.Sub(segStart) / time.Second)
		}
		day = day.AddDate(0, 0, 1)
	}
	return total, true
}
