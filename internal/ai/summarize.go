package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tkilaker/dronewire/internal/database"
)

const (
	maxPromptContent = 8000
	maxKeyPoints     = 5
	maxTags          = 10
)

const systemPrompt = `You are an analyst for a counter-UAS and drone warfare news service.
Read the article and respond with a single JSON object with these fields:
  "summary": 2-4 sentence neutral summary,
  "key_points": array of 3 to 5 short bullet strings,
  "rationale": one sentence on why the article matters to counter-drone professionals,
  "tags": array of short entity names (companies, countries, systems, technologies),
  "confidence": number between 0 and 1 for how relevant the article is to drones or counter-UAS,
  "category": one of "counter-uas", "drone-warfare", "contracts", "policy", "general".
Respond with JSON only.`

// Analysis is the validated model output for one article
type Analysis struct {
	Summary    string   `json:"summary"`
	KeyPoints  []string `json:"key_points"`
	Rationale  string   `json:"rationale"`
	Tags       []string `json:"tags"`
	Confidence float64  `json:"confidence"`
	Category   string   `json:"category"`
}

// BuildPrompt assembles the user message for an article.
func BuildPrompt(title, excerpt, content string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", strings.TrimSpace(title))
	if excerpt = strings.TrimSpace(excerpt); excerpt != "" {
		fmt.Fprintf(&b, "Excerpt: %s\n", excerpt)
	}
	if content = strings.TrimSpace(content); content != "" {
		r := []rune(content)
		if len(r) > maxPromptContent {
			r = r[:maxPromptContent]
		}
		fmt.Fprintf(&b, "\nContent:\n%s\n", string(r))
	}
	return b.String()
}

// ParseAnalysis decodes and validates a model response. The summary must be
// non-empty; everything else is clamped or normalized.
func ParseAnalysis(raw string) (*Analysis, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var a Analysis
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return nil, fmt.Errorf("invalid analysis json: %w", err)
	}

	a.Summary = strings.TrimSpace(a.Summary)
	if a.Summary == "" {
		return nil, errors.New("analysis has empty summary")
	}
	a.Rationale = strings.TrimSpace(a.Rationale)

	a.KeyPoints = cleanList(a.KeyPoints, maxKeyPoints)
	a.Tags = cleanList(a.Tags, maxTags)

	switch {
	case a.Confidence < 0:
		a.Confidence = 0
	case a.Confidence > 1:
		a.Confidence = 1
	}

	a.Category = database.NormalizeCategory(strings.ToLower(strings.TrimSpace(a.Category)))
	return &a, nil
}

// cleanList trims entries, drops empties and case-insensitive duplicates, and caps the length.
func cleanList(in []string, max int) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
		if len(out) == max {
			break
		}
	}
	return out
}
