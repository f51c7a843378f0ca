package repository

// Interval is a chart candle interval.
type Interval string

const (
	IV1m  Interval = "1m"
	IV5m  Interval = "5m"
	IV15m Interval = "15m"
	IV30m Interval = "30m"
	IV1h  Interval = "1h"
	IV4h  Interval = "4h"
	IV1d  Interval = "1d"
)

// IsValidInterval returns true if iv is a supported interval.
func IsValidInterval(iv Interval) bool {
	switch iv {
	case IV1m, IV5m, IV15m, IV30m, IV1h, IV4h, IV1d:
		return true
	default:
		return false
	}
}

// DefaultInterval returns the default chart interval.
func DefaultInterval() Interval { return IV1h }

// NormalizeInterval converts a raw string to a valid interval (or default).
func NormalizeInterval(s string) Interval {
	if s == "" {
		return DefaultInterval()
	}
	iv := Interval(s)
	if IsValidInterval(iv) {
		return iv
	}
	return DefaultInterval()
}
