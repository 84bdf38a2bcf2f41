package cache

import (
	"sync"
	"time"
)

// Policy holds cache configuration.
type Policy struct {
	// Enabled turns the cache on. When false, Get and Put are no-ops.
	Enabled bool

	// TTL is how long entries stay valid. TTL <= 0 disables caching.
	TTL time.Duration

	// MaxEntries bounds the number of live entries. Minimum 1.
	MaxEntries int
}

// DefaultPolicy returns the default cache policy.
func DefaultPolicy() Policy {
	return Policy{
		Enabled:    true,
		TTL:        30 * time.Second,
		MaxEntries: 128,
	}
}

// Store is an in-process read cache with TTL expiry and insertion-ordered
// capacity eviction. It is safe for concurrent use; one mutex guards
// prune+read+write as a single critical section.
type Store struct {
	mu      sync.Mutex
	policy  Policy
	entries map[string]*Entry
	seq     uint64

	// now is overridable in tests to simulate clock advancement.
	now func() time.Time
}

// New creates a cache store with the given policy.
func New(policy Policy) *Store {
	if policy.MaxEntries < 1 {
		policy.MaxEntries = 1
	}
	return &Store{
		policy:  policy,
		entries: make(map[string]*Entry),
		now:     time.Now,
	}
}

// Enabled reports whether the store caches anything at all.
func (s *Store) Enabled() bool {
	return s.policy.Enabled && s.policy.TTL > 0
}

// Get returns the live entry for key, or false on miss.
// Expired entries are never returned.
func (s *Store) Get(key string) (*Entry, bool) {
	if !s.Enabled() {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.prune()

	entry, ok := s.entries[key]
	if !ok {
		CacheMisses.Inc()
		return nil, false
	}

	CacheHits.Inc()
	return entry, true
}

// Put stores a response payload with its lower-cased headers under key.
// No-op when the policy is disabled or TTL <= 0.
func (s *Store) Put(key string, payload []byte, headers map[string]string) {
	if !s.Enabled() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.seq++
	s.entries[key] = &Entry{
		Payload:    payload,
		Headers:    headers,
		ExpiresAt:  now.Add(s.policy.TTL),
		InsertedAt: now,
		seq:        s.seq,
	}

	s.prune()
	CacheEntries.Set(float64(len(s.entries)))
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// prune removes expired entries, then evicts oldest-inserted entries until
// the store fits MaxEntries. Callers must hold s.mu.
func (s *Store) prune() {
	now := s.now()

	for key, entry := range s.entries {
		if entry.IsExpired(now) {
			delete(s.entries, key)
			CacheExpirations.Inc()
		}
	}

	for len(s.entries) > s.policy.MaxEntries {
		oldestKey := ""
		var oldestSeq uint64
		for key, entry := range s.entries {
			if oldestKey == "" || entry.seq < oldestSeq {
				oldestKey = key
				oldestSeq = entry.seq
			}
		}
		delete(s.entries, oldestKey)
		CacheEvictions.Inc()
	}

	CacheEntries.Set(float64(len(s.entries)))
}
