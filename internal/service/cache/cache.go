// Package cache provides the short-TTL response cache sitting in front of
// the vendor failover chains. Keys encode the endpoint and the request
// parameters so distinct intervals and horizons never collide.
package cache

import (
	"strings"
	"time"
)

// BytesCache is a minimal cache API storing raw bytes with TTL.
type BytesCache interface {
	GetBytes(key string) (b []byte, ok bool, err error)
	SetBytes(key string, value []byte, ttl time.Duration) error
}

// Key builds a cache key from an endpoint name and its request parameters.
// Symbols are uppercased so "aapl" and "AAPL" share an entry.
func Key(endpoint, symbol string, parts ...string) string {
	b := strings.Builder{}
	b.WriteString(endpoint)
	b.WriteByte(':')
	b.WriteString(strings.ToUpper(symbol))
	for _, p := range parts {
		b.WriteByte(':')
		b.WriteString(p)
	}
	return b.String()
}
