package extractor

import "strings"

// ImageDenylist rejects URLs that look like tracking pixels, icons or logos.
type ImageDenylist struct {
	patterns []string
}

// NewImageDenylist builds a denylist from case-insensitive substrings.
func NewImageDenylist(patterns []string) *ImageDenylist {
	lowered := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			lowered = append(lowered, p)
		}
	}
	return &ImageDenylist{patterns: lowered}
}

// Allowed reports whether u is a usable image URL.
func (d *ImageDenylist) Allowed(u string) bool {
	u = strings.TrimSpace(u)
	if u == "" || strings.HasPrefix(u, "data:") {
		return false
	}
	lower := strings.ToLower(u)
	for _, p := range d.patterns {
		if strings.Contains(lower, p) {
			return false
		}
	}
	return true
}
