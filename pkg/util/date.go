package util

import (
	"strconv"
	"time"
)

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// HorizonDuration maps a chart horizon string to a lookback window.
// Unknown horizons fall back to one month.
func HorizonDuration(horizon string) time.Duration {
	switch horizon {
	case "1d":
		return 24 * time.Hour
	case "5d":
		return 5 * 24 * time.Hour
	case "1mo":
		return 30 * 24 * time.Hour
	case "3mo":
		return 90 * 24 * time.Hour
	case "6mo":
		return 180 * 24 * time.Hour
	case "1y":
		return 365 * 24 * time.Hour
	default:
		return 30 * 24 * time.Hour
	}
}
