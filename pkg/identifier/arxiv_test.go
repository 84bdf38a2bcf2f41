package identifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseArxivID(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantCore    string
		wantVersion string
		ok          bool
	}{
		{
			name:     "new style id",
			input:    "1707.12345",
			wantCore: "1707.12345",
			ok:       true,
		},
		{
			name:        "new style with version",
			input:       "1707.12345v2",
			wantCore:    "1707.12345",
			wantVersion: "v2",
			ok:          true,
		},
		{
			name:        "arxiv prefix",
			input:       "arXiv:1707.12345v2",
			wantCore:    "1707.12345",
			wantVersion: "v2",
			ok:          true,
		},
		{
			name:     "arxiv prefix with space",
			input:    "arXiv: 1707.12345",
			wantCore: "1707.12345",
			ok:       true,
		},
		{
			name:     "four digit sequence",
			input:    "2301.0001",
			wantCore: "2301.0001",
			ok:       true,
		},
		{
			name:     "old style id",
			input:    "hep-th/9901001",
			wantCore: "hep-th/9901001",
			ok:       true,
		},
		{
			name:        "old style with version",
			input:       "math/0211159v1",
			wantCore:    "math/0211159",
			wantVersion: "v1",
			ok:          true,
		},
		{
			name:     "abs url",
			input:    "https://arxiv.org/abs/1707.12345",
			wantCore: "1707.12345",
			ok:       true,
		},
		{
			name:     "url without scheme",
			input:    "arxiv.org/abs/1707.12345",
			wantCore: "1707.12345",
			ok:       true,
		},
		{
			name:     "pdf url with extension",
			input:    "https://arxiv.org/pdf/1707.12345.pdf",
			wantCore: "1707.12345",
			ok:       true,
		},
		{
			name:        "www pdf url with version",
			input:       "http://www.arxiv.org/pdf/1707.12345v3.pdf",
			wantCore:    "1707.12345",
			wantVersion: "v3",
			ok:          true,
		},
		{
			name:     "surrounding whitespace trimmed",
			input:    "  1707.12345  ",
			wantCore: "1707.12345",
			ok:       true,
		},
		{
			name:  "empty string",
			input: "",
			ok:    false,
		},
		{
			name:  "doi is not an arxiv id",
			input: "10.1000/xyz123",
			ok:    false,
		},
		{
			name:  "three digit sequence",
			input: "1707.123",
			ok:    false,
		},
		{
			name:  "trailing junk",
			input: "1707.12345x",
			ok:    false,
		},
		{
			name:  "unrelated url",
			input: "https://example.com/abs/1707.12345",
			ok:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseArxivID(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.wantCore, got.Core)
				assert.Equal(t, tt.wantVersion, got.Version)
			}
		})
	}
}

func TestExtractExactArxivID(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		wantCore    string
		wantVersion string
		ok          bool
	}{
		{
			name:        "prefixed with version",
			query:       "arXiv:1707.12345v2",
			wantCore:    "1707.12345",
			wantVersion: "v2",
			ok:          true,
		},
		{
			name:     "pdf url",
			query:    "https://arxiv.org/pdf/1707.12345.pdf",
			wantCore: "1707.12345",
			ok:       true,
		},
		{
			name:  "outer whitespace disqualifies",
			query: "\t1707.12345 ",
			ok:    false,
		},
		{
			name:  "interior whitespace disqualifies",
			query: "1707.12345 extra",
			ok:    false,
		},
		{
			name:  "whitespace only",
			query: " \n ",
			ok:    false,
		},
		{
			name:  "free text",
			query: "quantum error correction",
			ok:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractExactArxivID(tt.query)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.wantCore, got.Core)
				assert.Equal(t, tt.wantVersion, got.Version)
			}
		})
	}
}

func TestArxivIDMatch(t *testing.T) {
	tests := []struct {
		name      string
		query     ArxivID
		candidate ArxivID
		want      bool
	}{
		{
			name:      "same core no versions",
			query:     ArxivID{Core: "1707.12345"},
			candidate: ArxivID{Core: "1707.12345"},
			want:      true,
		},
		{
			name:      "versionless query matches any version",
			query:     ArxivID{Core: "1707.12345"},
			candidate: ArxivID{Core: "1707.12345", Version: "v3"},
			want:      true,
		},
		{
			name:      "versioned query requires same version",
			query:     ArxivID{Core: "1707.12345", Version: "v2"},
			candidate: ArxivID{Core: "1707.12345", Version: "v2"},
			want:      true,
		},
		{
			name:      "versioned query rejects other version",
			query:     ArxivID{Core: "1707.12345", Version: "v2"},
			candidate: ArxivID{Core: "1707.12345", Version: "v3"},
			want:      false,
		},
		{
			name:      "versioned query rejects versionless candidate",
			query:     ArxivID{Core: "1707.12345", Version: "v2"},
			candidate: ArxivID{Core: "1707.12345"},
			want:      false,
		},
		{
			name:      "different core",
			query:     ArxivID{Core: "1707.12345"},
			candidate: ArxivID{Core: "1808.00001"},
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.query.Match(tt.candidate))
		})
	}
}

func TestArxivIDString(t *testing.T) {
	assert.Equal(t, "1707.12345", ArxivID{Core: "1707.12345"}.String())
	assert.Equal(t, "1707.12345v2", ArxivID{Core: "1707.12345", Version: "v2"}.String())
}
