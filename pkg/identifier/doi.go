// Package identifier parses and canonicalizes DOI and arXiv identifiers.
//
// It decides whether a free-text search input is an unambiguous identifier
// lookup ("exact query") and matches identifiers against library item
// records, including identifiers embedded in a free-text extra field.
package identifier

import (
	"regexp"
	"strings"
	"unicode"
)

// doiPattern matches a bare DOI: 10.NNNN/suffix with a restricted suffix
// character class. Matching is case-insensitive; canonical form is lowercase.
var doiPattern = regexp.MustCompile(`(?i)^10\.\d{4,9}/[-._;()/:a-z0-9]+$`)

// doiPrefixes are the recognized strippable DOI wrappers, checked
// case-insensitively. At most one prefix is stripped.
var doiPrefixes = []string{
	"doi:",
	"https://doi.org/",
	"http://doi.org/",
	"https://dx.doi.org/",
	"http://dx.doi.org/",
}

// NormalizeDOI strips a recognized prefix from value and validates the
// remainder against the DOI pattern. Returns the lowercase canonical DOI.
func NormalizeDOI(value string) (string, bool) {
	v := strings.TrimSpace(value)
	lower := strings.ToLower(v)
	for _, prefix := range doiPrefixes {
		if strings.HasPrefix(lower, prefix) {
			v = strings.TrimSpace(v[len(prefix):])
			break
		}
	}
	if !doiPattern.MatchString(v) {
		return "", false
	}
	return strings.ToLower(v), true
}

// ExtractExactDOI reports whether text is an unambiguous single-token DOI
// lookup. Any whitespace anywhere in the input disqualifies: surrounding
// prose means "treat as fuzzy search", not "treat as DOI".
func ExtractExactDOI(text string) (string, bool) {
	if text == "" || containsSpace(text) {
		return "", false
	}
	return NormalizeDOI(text)
}

func containsSpace(s string) bool {
	return strings.IndexFunc(s, unicode.IsSpace) >= 0
}
