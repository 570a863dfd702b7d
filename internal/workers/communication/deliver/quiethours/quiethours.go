// internal/workers/communication/deliver/quiethours/quiethours.go
package quiethours

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Window is the evaluation result. EndUTC is the UTC instant the active
// suppression window ends; nil when the window is inactive.
type Window struct {
	Active bool
	EndUTC *time.Time
}

// Evaluate decides whether now falls inside the local-time suppression
// window [start, end) in the given IANA timezone, and when it ends.
//
// start == end is a zero-width window and never active. A start after end
// wraps overnight: active when local >= start or local < end. end == "00:00"
// is end-of-day via the overnight branch. Start is inclusive, end exclusive.
//
// Pure and cheap; safe to call per dispatch.
func Evaluate(start, end, tz string, now time.Time) (Window, error) {
	startMin, err := parseHHMM(start)
	if err != nil {
		return Window{}, fmt.Errorf("quiet hours start: %w", err)
	}
	endMin, err := parseHHMM(end)
	if err != nil {
		return Window{}, fmt.Errorf("quiet hours end: %w", err)
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Window{}, fmt.Errorf("quiet hours timezone %q: %w", tz, err)
	}

	local := now.In(loc)
	localMin := local.Hour()*60 + local.Minute()

	var active bool
	switch {
	case startMin == endMin:
		active = false
	case startMin < endMin:
		active = localMin >= startMin && localMin < endMin
	default:
		active = localMin >= startMin || localMin < endMin
	}

	if !active {
		return Window{Active: false}, nil
	}

	endUTC := nextOccurrence(local, endMin).UTC()
	return Window{Active: true, EndUTC: &endUTC}, nil
}

// nextOccurrence returns the first instant strictly after local whose
// wall-clock time equals endMin minutes past local midnight.
func nextOccurrence(local time.Time, endMin int) time.Time {
	candidate := time.Date(local.Year(), local.Month(), local.Day(),
		endMin/60, endMin%60, 0, 0, local.Location())
	if !candidate.After(local) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}

func parseHHMM(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("invalid HH:MM value %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour*60 + minute, nil
}
