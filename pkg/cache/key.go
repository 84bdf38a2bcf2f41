package cache

import (
	"net/http"
	"strings"
)

// Key generates a deterministic cache key for a request.
// Format: METHOD:absolute-url
//
// Example:
//
//	GET:https://api.zotero.org/users/12345/items?limit=25
func Key(method, url string) string {
	return strings.ToUpper(method) + ":" + url
}

// Cacheable reports whether a request is eligible for the read cache.
// Only bodyless GET requests qualify; mutating calls must never be
// served stale or cached.
func Cacheable(method string, hasBody bool) bool {
	return strings.EqualFold(method, http.MethodGet) && !hasBody
}
