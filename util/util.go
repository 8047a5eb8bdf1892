package util

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ParsePort parses a UDP port number. 0 is accepted and means "any free port".
func ParsePort(raw string) (uint16, error) {
	raw = strings.TrimSpace(raw)
	n, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q: must be a number between 0 and 65535", raw)
	}
	return uint16(n), nil
}

// MaxDragTimeMs is the largest drag time, in milliseconds, that fits in a
// time.Duration.
const MaxDragTimeMs = math.MaxInt64 / int64(time.Millisecond)

// ParseDragTime parses a non-negative number of milliseconds.
func ParseDragTime(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid drag time %q: must be a non-negative number of milliseconds", raw)
	}
	d, err := DragTimeFromMs(ms)
	if err != nil {
		return 0, fmt.Errorf("invalid drag time %q: %w", raw, err)
	}
	return d, nil
}

// DragTimeFromMs converts milliseconds to a duration, rejecting negative
// values and values that would overflow.
func DragTimeFromMs(ms int64) (time.Duration, error) {
	if ms < 0 {
		return 0, fmt.Errorf("must be a non-negative number of milliseconds")
	}
	if ms > MaxDragTimeMs {
		return 0, fmt.Errorf("must be at most %d milliseconds", MaxDragTimeMs)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// FormatDragTime is the inverse of ParseDragTime.
func FormatDragTime(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10)
}

// ParseBool accepts "True"/"False" in any case, as written by older config
// files, plus the spellings strconv.ParseBool understands.
func ParseBool(raw string) (bool, error) {
	raw = strings.TrimSpace(raw)
	switch strings.ToLower(raw) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid boolean %q", raw)
	}
	return b, nil
}

// FormatBool writes "True" or "False".
func FormatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
