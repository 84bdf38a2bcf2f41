package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ParseRetryAfter parses a Retry-After header value into a wait duration.
// Both RFC 7231 forms are accepted: a non-negative number of seconds
// (fractions allowed) or an HTTP date. The bool result is false for empty,
// negative, or malformed values. A date already in the past yields zero.
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds * float64(time.Second)), true
	}

	when, err := http.ParseTime(value)
	if err != nil {
		return 0, false
	}

	wait := when.Sub(now)
	if wait < 0 {
		return 0, true
	}
	return wait, true
}
