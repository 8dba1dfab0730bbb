// Package query turns free-text sample searches into structured filters.
package query

import (
	"net/url"
	"strings"

	"github.com/ewilliams-labs/loopmatch/internal/core/domain"
)

// ExtractFilters scans text once per facet. Each facet takes the first
// matching rule of its table and only values present in the facet's option
// list. Unrecognised text yields empty fields, never an error.
func ExtractFilters(text string) domain.ExtractedFilters {
	lower := strings.ToLower(strings.TrimSpace(text))

	return domain.ExtractedFilters{
		LoopType:      firstPhrase(lower, loopTypeRules, DrumTypeOptions),
		Instrument:    firstPhrase(lower, instrumentRules, InstrumentOptions),
		Genre:         firstPhrase(lower, genreRules, GenreOptions),
		Keyword:       firstPhrase(lower, keywordRules, KeywordOptions),
		Key:           firstPattern(text, keyPatterns),
		TimeSignature: firstPattern(text, timeSignaturePatterns),
	}
}

func firstPhrase(lower string, rules []rule, options []string) string {
	for _, r := range rules {
		if strings.Contains(lower, r.phrase) && contains(options, r.value) {
			return r.value
		}
	}
	return ""
}

func firstPattern(text string, patterns []pattern) string {
	for _, p := range patterns {
		if p.re.MatchString(text) {
			return p.value
		}
	}
	return ""
}

func contains(options []string, v string) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}

// Params encodes filters as the search page's query string. Empty facets
// are omitted; query is included verbatim when non-empty.
func Params(f domain.ExtractedFilters, query string) url.Values {
	v := url.Values{}
	set := func(k, val string) {
		if val != "" {
			v.Set(k, val)
		}
	}
	set("query", query)
	set("loopType", f.LoopType)
	set("instrument", f.Instrument)
	set("genre", f.Genre)
	set("keyword", f.Keyword)
	set("key", f.Key)
	set("timeSignature", f.TimeSignature)
	return v
}
