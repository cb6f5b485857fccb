package ai

import (
	"strings"
	"unicode"

	"github.com/tkilaker/dronewire/internal/config"
	"github.com/tkilaker/dronewire/internal/database"
)

// Slugify lowercases name and joins its alphanumeric runs with hyphens.
func Slugify(name string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}

// TagClassifier assigns a coarse category to a tag name by keyword list membership
type TagClassifier struct {
	company    map[string]bool
	country    map[string]bool
	systemType map[string]bool
}

// NewTagClassifier builds a classifier from the configured lists
func NewTagClassifier(c config.TagCategories) *TagClassifier {
	return &TagClassifier{
		company:    toSet(c.Company),
		country:    toSet(c.Country),
		systemType: toSet(c.SystemType),
	}
}

// Category returns company, country or system-type when name is listed, else technology.
func (t *TagClassifier) Category(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	switch {
	case t.company[key]:
		return database.TagCompany
	case t.country[key]:
		return database.TagCountry
	case t.systemType[key]:
		return database.TagSystemType
	}
	return database.TagTechnology
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[strings.ToLower(strings.TrimSpace(v))] = true
	}
	return set
}
