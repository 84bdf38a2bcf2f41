package zotero

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// ParseTotalResults extracts the Total-Results header Zotero attaches to
// list responses. Some proxies rewrite the name to TotalResults, so both
// spellings are accepted. Returns false when the header is missing or
// malformed.
func ParseTotalResults(headers http.Header) (int, bool) {
	raw := strings.TrimSpace(headers.Get("Total-Results"))
	if raw == "" {
		raw = strings.TrimSpace(headers.Get("TotalResults"))
	}
	if raw == "" {
		return 0, false
	}

	total, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return total, true
}

// ParseNextStart extracts the start offset from the rel="next" entry of a
// Link header. Returns false when no usable next link is present.
func ParseNextStart(headers http.Header) (int, bool) {
	link := headers.Get("Link")
	if link == "" {
		return 0, false
	}

	for _, part := range strings.Split(link, ",") {
		segment := strings.TrimSpace(part)
		if !strings.Contains(segment, `rel="next"`) {
			continue
		}

		open := strings.Index(segment, "<")
		end := strings.Index(segment, ">")
		if open == -1 || end <= open {
			continue
		}

		nextURL, err := url.Parse(segment[open+1 : end])
		if err != nil {
			continue
		}

		values := nextURL.Query()["start"]
		if len(values) == 0 {
			continue
		}

		start, err := strconv.Atoi(values[0])
		if err != nil {
			continue
		}
		return start, true
	}

	return 0, false
}
