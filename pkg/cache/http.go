package cache

import (
	"net/http"
	"strings"
)

// HeadersFromResponse flattens HTTP response headers into the lower-cased
// single-value map stored on cache entries. Multi-valued headers keep their
// first value; pagination consumers (Link, Total-Results) only need that.
func HeadersFromResponse(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for key, values := range headers {
		if len(values) == 0 {
			continue
		}
		out[strings.ToLower(key)] = values[0]
	}
	return out
}
