// Package cache provides an in-process read cache for Zotero API responses.
//
// The store implements time-and-capacity-bounded caching of GET responses:
//
// - Entries are keyed by METHOD:URL and expire after a fixed TTL
// - Only bodyless GET requests are eligible, on both read and write sides
// - Expired entries are pruned opportunistically before every access
// - When the entry count exceeds the capacity, oldest-inserted entries are
//   evicted first (insertion-ordered eviction, not LRU)
// - A single mutex guards prune+read+write as one critical section
// - Prometheus metrics for observability
//
// Reads may be stale for up to one TTL window: the cache is a performance
// optimization, not a consistency mechanism.
//
// # Basic Usage
//
//	store := cache.New(cache.Policy{
//		Enabled:    true,
//		TTL:        30 * time.Second,
//		MaxEntries: 128,
//	})
//
//	key := cache.Key("GET", "https://api.zotero.org/users/12345/items?limit=25")
//
//	if entry, ok := store.Get(key); ok {
//		// Cache hit - use entry.Payload / entry.Headers
//	}
//
//	// After a successful GET
//	store.Put(key, payload, cache.HeadersFromResponse(resp.Header))
//
// # Metrics
//
// The store exports Prometheus metrics:
//
//   - zotero_cache_hits_total - Cache hits
//   - zotero_cache_misses_total - Cache misses
//   - zotero_cache_evictions_total - Capacity evictions
//   - zotero_cache_expirations_total - TTL expirations removed during pruning
//   - zotero_cache_entries - Current number of live entries
package cache
