package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// Rules is the declarative data driving relevance filtering, tag
// classification and content extraction.
type Rules struct {
	Keywords         []string      `yaml:"keywords"`
	ContractKeywords []string      `yaml:"contractKeywords"`
	TagCategories    TagCategories `yaml:"tagCategories"`
	ImageDenylist    []string      `yaml:"imageDenylist"`
	Sites            []SiteRule    `yaml:"sites"`
	DefaultSite      SiteRule      `yaml:"defaultSite"`
}

// TagCategories lists lowercase names whose membership decides a tag's category.
type TagCategories struct {
	Company    []string `yaml:"company"`
	Country    []string `yaml:"country"`
	SystemType []string `yaml:"systemType"`
}

// SiteRule describes where article text and images live on one publisher's pages.
type SiteRule struct {
	Domains []string `yaml:"domains"`
	Article []string `yaml:"article"`
	Image   []string `yaml:"image"`
	Remove  []string `yaml:"remove"`
	Render  bool     `yaml:"render"`
}

// DefaultRules returns the built-in rule set.
func DefaultRules() *Rules {
	var r Rules
	if err := yaml.Unmarshal(defaultRulesYAML, &r); err != nil {
		panic(fmt.Sprintf("config: embedded rules.yaml is invalid: %v", err))
	}
	r.normalize()
	return &r
}

// LoadRules reads the rules file at path and overlays every section it sets
// on top of the built-in defaults. An empty path yields the defaults.
func LoadRules(path string) (*Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file %s: %w", path, err)
	}

	var fileRules Rules
	if err := yaml.Unmarshal(raw, &fileRules); err != nil {
		return nil, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}

	merged := mergeRules(*rules, fileRules)
	merged.normalize()
	return &merged, nil
}

func mergeRules(base, override Rules) Rules {
	if len(override.Keywords) > 0 {
		base.Keywords = override.Keywords
	}
	if len(override.ContractKeywords) > 0 {
		base.ContractKeywords = override.ContractKeywords
	}
	if len(override.TagCategories.Company) > 0 {
		base.TagCategories.Company = override.TagCategories.Company
	}
	if len(override.TagCategories.Country) > 0 {
		base.TagCategories.Country = override.TagCategories.Country
	}
	if len(override.TagCategories.SystemType) > 0 {
		base.TagCategories.SystemType = override.TagCategories.SystemType
	}
	if len(override.ImageDenylist) > 0 {
		base.ImageDenylist = override.ImageDenylist
	}
	if len(override.Sites) > 0 {
		base.Sites = override.Sites
	}
	if len(override.DefaultSite.Article) > 0 {
		base.DefaultSite = override.DefaultSite
	}
	return base
}

func (r *Rules) normalize() {
	r.Keywords = lowerAll(r.Keywords)
	r.ContractKeywords = lowerAll(r.ContractKeywords)
	r.TagCategories.Company = lowerAll(r.TagCategories.Company)
	r.TagCategories.Country = lowerAll(r.TagCategories.Country)
	r.TagCategories.SystemType = lowerAll(r.TagCategories.SystemType)
	r.ImageDenylist = lowerAll(r.ImageDenylist)
	for i := range r.Sites {
		r.Sites[i].Domains = lowerAll(r.Sites[i].Domains)
	}
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
