package identifier

import (
	"regexp"
	"strings"
)

// Token patterns for identifiers embedded in a free-text extra field, e.g.
// "DOI: 10.1000/xyz123" or "arXiv ID: 1707.12345v2" on their own lines.
var (
	extraDOIPattern   = regexp.MustCompile(`(?i)(?:^|\s)doi\s*[:=]\s*(\S+)`)
	extraArxivPattern = regexp.MustCompile(`(?i)(?:^|\s)arxiv(?:\s*id)?\s*[:=]\s*(\S+)`)
)

// Record carries the identifier-bearing fields of a library item.
type Record struct {
	// DOI is the item's canonical DOI field, in any prefix form.
	DOI string

	// ArchiveID is the item's archive identifier field (arXiv id for
	// arXiv-sourced items).
	ArchiveID string

	// Extra is the item's free-text extra field, scanned for embedded
	// doi:/arxiv: tokens.
	Extra string
}

// DOIsFromExtra extracts all normalized DOI tokens from an extra field.
func DOIsFromExtra(extra string) []string {
	var out []string
	for _, m := range extraDOIPattern.FindAllStringSubmatch(extra, -1) {
		if doi, ok := NormalizeDOI(m[1]); ok {
			out = append(out, doi)
		}
	}
	return out
}

// ArxivIDsFromExtra extracts all parsed arXiv tokens from an extra field.
func ArxivIDsFromExtra(extra string) []ArxivID {
	var out []ArxivID
	for _, m := range extraArxivPattern.FindAllStringSubmatch(extra, -1) {
		if id, ok := ParseArxivID(m[1]); ok {
			out = append(out, id)
		}
	}
	return out
}

// MatchesDOI reports whether the record carries the given normalized DOI,
// either in its DOI field or as an embedded extra token.
func (r Record) MatchesDOI(doi string) bool {
	if doi == "" {
		return false
	}
	if normalized, ok := NormalizeDOI(r.DOI); ok && normalized == doi {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(r.DOI), doi) {
		return true
	}
	for _, candidate := range DOIsFromExtra(r.Extra) {
		if candidate == doi {
			return true
		}
	}
	return false
}

// MatchesArxiv reports whether the record carries an arXiv identifier
// satisfying the query id, either in its archive-id field or as an
// embedded extra token.
func (r Record) MatchesArxiv(id ArxivID) bool {
	if candidate, ok := ParseArxivID(r.ArchiveID); ok && id.Match(candidate) {
		return true
	}
	for _, candidate := range ArxivIDsFromExtra(r.Extra) {
		if id.Match(candidate) {
			return true
		}
	}
	return false
}

// FilterExact returns the indexes of records satisfying every requested
// identifier. The doi argument must already be normalized; arxivID is the
// raw query token and is parsed here. A requested arXiv identifier that
// fails to parse yields no matches (fail closed), so an explicit exactness
// request never degrades into an unfiltered result set. When neither
// identifier is given, every index is returned.
func FilterExact(records []Record, doi, arxivID string) []int {
	indexes := make([]int, 0, len(records))

	var wantArxiv ArxivID
	haveArxiv := false
	if arxivID != "" {
		wantArxiv, haveArxiv = ParseArxivID(arxivID)
		if !haveArxiv {
			return indexes
		}
	}

	for i, record := range records {
		if doi != "" && !record.MatchesDOI(doi) {
			continue
		}
		if haveArxiv && !record.MatchesArxiv(wantArxiv) {
			continue
		}
		indexes = append(indexes, i)
	}
	return indexes
}
