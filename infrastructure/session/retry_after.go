package session

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// retryAfterDelay interprets a Retry-After header value.
// ok is false when the header is absent. A value that is neither an integer
// number of seconds nor an HTTP-date yields fallback. Dates in the past yield 0.
// Delays above limit, including seconds too large for a Duration, yield limit.
func retryAfterDelay(value string, now time.Time, fallback, limit time.Duration) (delay time.Duration, ok bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if limit <= 0 {
		limit = math.MaxInt64
	}

	seconds, err := strconv.ParseInt(value, 10, 64)
	switch {
	case err == nil && seconds < 0:
		return fallback, true
	case err == nil:
		if seconds > int64(limit/time.Second) {
			return limit, true
		}
		return time.Duration(seconds) * time.Second, true
	case errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(value, "-"):
		return limit, true
	}

	if at, err := http.ParseTime(value); err == nil {
		d := at.Sub(now)
		if d <= 0 {
			return 0, true
		}
		return min(d, limit), true
	}

	return fallback, true
}

// linearBackoff returns base * attempt.
func linearBackoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return base * time.Duration(attempt)
}
