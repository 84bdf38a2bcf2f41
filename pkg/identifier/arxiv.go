package identifier

import (
	"regexp"
	"strings"
)

var (
	// arxivIDPattern matches an arXiv identifier core with an optional
	// version suffix. The core is either old-style archive/NNNNNNN or
	// new-style YYMM.NNNNN.
	arxivIDPattern = regexp.MustCompile(`(?i)^([a-z-]+/\d{7}|\d{4}\.\d{4,5})(v\d+)?$`)

	// arxivURLPattern finds an arxiv.org abstract or PDF URL, with or
	// without a scheme, anywhere in the input.
	arxivURLPattern = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?arxiv\.org/(?:abs|pdf)/(.+)`)

	// arxivURLFullPattern is the anchored variant used for exact-query
	// detection: the whole input must be the URL.
	arxivURLFullPattern = regexp.MustCompile(`(?i)^(?:https?://)?(?:www\.)?arxiv\.org/(?:abs|pdf)/(.+)$`)
)

// ArxivID is a parsed arXiv identifier: a lowercase core plus an optional
// version ("v2"). An empty Version means the identifier is unversioned.
type ArxivID struct {
	Core    string
	Version string
}

// String renders the identifier in its canonical core[vN] form.
func (id ArxivID) String() string {
	return id.Core + id.Version
}

// Match reports whether a candidate satisfies this identifier when used as
// a query: cores must be equal, and either the query carries no version or
// both versions are equal.
func (id ArxivID) Match(candidate ArxivID) bool {
	if id.Core != candidate.Core {
		return false
	}
	return id.Version == "" || id.Version == candidate.Version
}

// ParseArxivID parses an arXiv identifier from a bare id, an arxiv:
// prefixed form, or an arxiv.org /abs/ or /pdf/ URL (with or without a
// trailing .pdf). This is the tolerant variant used when fetching remote
// PDFs; the remaining token must still match the core pattern exactly.
func ParseArxivID(value string) (ArxivID, bool) {
	v := strings.TrimSpace(value)
	if strings.HasPrefix(strings.ToLower(v), "arxiv:") {
		v = strings.TrimSpace(v[len("arxiv:"):])
	}
	if m := arxivURLPattern.FindStringSubmatch(v); m != nil {
		v = m[1]
	}
	if strings.HasSuffix(strings.ToLower(v), ".pdf") {
		v = strings.TrimSpace(v[:len(v)-len(".pdf")])
	}

	return parseCore(v)
}

// ExtractExactArxivID reports whether text is an unambiguous single-token
// arXiv lookup. Stricter than ParseArxivID: whitespace anywhere in the
// input disqualifies, and a URL must span the whole input.
func ExtractExactArxivID(text string) (ArxivID, bool) {
	if text == "" || containsSpace(text) {
		return ArxivID{}, false
	}

	v := text
	if strings.HasPrefix(strings.ToLower(v), "arxiv:") {
		v = v[len("arxiv:"):]
	}
	if m := arxivURLFullPattern.FindStringSubmatch(v); m != nil {
		v = m[1]
	}
	if strings.HasSuffix(strings.ToLower(v), ".pdf") {
		v = v[:len(v)-len(".pdf")]
	}

	return parseCore(v)
}

// parseCore matches the canonical core[vN] token and lowercases both parts.
func parseCore(v string) (ArxivID, bool) {
	m := arxivIDPattern.FindStringSubmatch(v)
	if m == nil {
		return ArxivID{}, false
	}
	return ArxivID{
		Core:    strings.ToLower(m[1]),
		Version: strings.ToLower(m[2]),
	}, true
}
