package cache

import (
	"time"
)

// Entry represents a cached API response.
type Entry struct {
	// Payload is the raw response body.
	Payload []byte

	// Headers are the response headers with lower-cased keys.
	Headers map[string]string

	// ExpiresAt is when the entry becomes stale.
	ExpiresAt time.Time

	// InsertedAt is when the entry was stored (eviction order).
	InsertedAt time.Time

	// seq orders entries by insertion for capacity eviction.
	seq uint64
}

// IsExpired returns true if the entry is stale relative to now.
func (e *Entry) IsExpired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// TTL returns the time until expiration relative to now.
// Returns 0 if already expired.
func (e *Entry) TTL(now time.Time) time.Duration {
	ttl := e.ExpiresAt.Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}
