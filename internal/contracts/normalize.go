package contracts

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tkilaker/dronewire/internal/database"
)

var awardDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"01/02/2006",
}

var counterTerms = []string{"counter-uas", "c-uas", "counter-drone", "counter-unmanned", "anti-drone"}

// ParseValue turns a money string like "$1,250,000.00" into a decimal. Blank
// input is zero.
func ParseValue(raw string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '$', ',', ' ', '\t', '\n':
			return -1
		}
		return r
	}, raw)
	if cleaned == "" {
		return decimal.Zero, nil
	}
	v, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid contract value %q", raw)
	}
	return v, nil
}

// ParseAwardDate accepts the date formats seen in award records.
func ParseAwardDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range awardDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognized award date %q", raw)
}

// Normalize maps an award notice onto a contract row.
func Normalize(n Notice) (*database.Contract, error) {
	c := &database.Contract{
		Title:    strings.TrimSpace(n.Title),
		Category: database.CategoryContracts,
		Status:   database.ContractActive,
	}
	if c.Title == "" {
		return nil, fmt.Errorf("notice %s has no title", n.NoticeID)
	}

	number := n.SolicitationNumber
	if n.Award != nil {
		if n.Award.Number != "" {
			number = n.Award.Number
		}
		c.Company = optional(n.Award.Awardee.Name)

		value, err := ParseValue(string(n.Award.Amount))
		if err != nil {
			return nil, err
		}
		c.Value = value

		date, err := ParseAwardDate(n.Award.Date)
		if err != nil {
			return nil, err
		}
		c.AwardDate = date
	}
	if c.AwardDate == nil {
		// posted date is the best fallback for notices without award details
		if date, err := ParseAwardDate(n.PostedDate); err == nil {
			c.AwardDate = date
		}
	}

	c.ContractNumber = optional(number)
	c.Description = optional(n.Description)
	c.Agency = optional(agencyName(n.FullParentPathName))
	c.SourceURL = optional(n.UILink)

	if matchesAny(searchText(c), counterTerms) {
		c.Category = database.CategoryCounterUAS
	}
	return c, nil
}

// agencyName takes the sub-tier agency of a dotted SAM path like
// "DEPT OF DEFENSE.DEPT OF THE ARMY.AMC", or the department when there is none.
func agencyName(path string) string {
	parts := strings.Split(path, ".")
	if len(parts) > 1 {
		return strings.TrimSpace(parts[1])
	}
	return strings.TrimSpace(parts[0])
}

// relevanceText is the text contract keywords are matched against: the
// description, awardee and agency of the raw notice.
func relevanceText(n Notice) string {
	fields := []string{n.Description, agencyName(n.FullParentPathName)}
	if n.Award != nil {
		fields = append(fields, n.Award.Awardee.Name)
	}
	return strings.ToLower(strings.Join(fields, " "))
}

// searchText is the text the counter-UAS category is inferred from.
func searchText(c *database.Contract) string {
	fields := []string{c.Title}
	for _, p := range []*string{c.Description, c.Company, c.Agency} {
		if p != nil {
			fields = append(fields, *p)
		}
	}
	return strings.ToLower(strings.Join(fields, " "))
}

func matchesAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
