// Package timeparse parses relative-time expressions like "3m ago" or
// "1h 30m" for the CLI's "--since" note filters and the recording
// sub-command's lookback window.
package timeparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var durationRe = regexp.MustCompile(`^(?:(\d+)h)?\s*(?:(\d+)m)?\s*(?:(\d+)s)?$`)

// ErrInvalidFormat is returned when input doesn't match "<N>h <N>m <N>s" in
// any combination.
type ErrInvalidFormat struct{ Input string }

func (e *ErrInvalidFormat) Error() string {
	return fmt.Sprintf("invalid time format %q, use formats like \"3m ago\", \"2h ago\", \"1h 30m ago\"", e.Input)
}

// ParseAgo parses a relative-time expression ("3m ago", "2h ago",
// "1h 30m ago", or without the trailing "ago") relative to now, returning
// the target time in the past.
func ParseAgo(input string, now time.Time) (time.Time, error) {
	trimmed := strings.ToLower(strings.TrimSpace(input))
	timePart := strings.TrimSuffix(trimmed, " ago")

	m := durationRe.FindStringSubmatch(timePart)
	if m == nil {
		return time.Time{}, &ErrInvalidFormat{Input: input}
	}

	hours := parseUintGroup(m[1])
	minutes := parseUintGroup(m[2])
	seconds := parseUintGroup(m[3])
	if hours == 0 && minutes == 0 && seconds == 0 {
		return time.Time{}, &ErrInvalidFormat{Input: input}
	}

	total := time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second
	return now.Add(-total), nil
}

func parseUintGroup(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// ErrTooFarBack and ErrTooRecent are returned by Validate.
type ErrTooFarBack struct{ MaxLookbackHours uint32 }

func (e *ErrTooFarBack) Error() string {
	return fmt.Sprintf("time too far back: maximum allowed is %d hours ago", e.MaxLookbackHours)
}

type ErrTooRecent struct{ MinLookbackMinutes uint32 }

func (e *ErrTooRecent) Error() string {
	return fmt.Sprintf("time too recent: minimum allowed is %d minutes ago", e.MinLookbackMinutes)
}

// Validate checks target against the configured lookback bounds (spec.md
// §6.7's [recording] block: max_lookback_hours, min_lookback_minutes).
func Validate(target, now time.Time, maxLookbackHours, minLookbackMinutes uint32) error {
	elapsed := now.Sub(target)
	if elapsed > time.Duration(maxLookbackHours)*time.Hour {
		return &ErrTooFarBack{MaxLookbackHours: maxLookbackHours}
	}
	if elapsed < time.Duration(minLookbackMinutes)*time.Minute {
		return &ErrTooRecent{MinLookbackMinutes: minLookbackMinutes}
	}
	return nil
}
