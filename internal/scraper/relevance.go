package scraper

import "strings"

// RelevanceFilter accepts text containing at least one keyword, case-insensitively.
type RelevanceFilter struct {
	keywords []string
}

// NewRelevanceFilter builds a filter. An empty keyword list accepts everything.
func NewRelevanceFilter(keywords []string) *RelevanceFilter {
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			lowered = append(lowered, k)
		}
	}
	return &RelevanceFilter{keywords: lowered}
}

// Match reports whether any keyword occurs in text.
func (f *RelevanceFilter) Match(text string) bool {
	if len(f.keywords) == 0 {
		return true
	}
	text = strings.ToLower(text)
	for _, k := range f.keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
