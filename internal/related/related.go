package related

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/tkilaker/dronewire/internal/database"
)

const (
	// DefaultCandidates is how many recent articles are scored per lookup.
	DefaultCandidates = 50
	defaultLimit      = 5
	maxLimit          = 20
)

// Weights for the overlap score used when the source has no embedding.
type Weights struct {
	Category float64
	Tag      float64
}

// DefaultWeights are tunable defaults, not derived constants.
var DefaultWeights = Weights{Category: 2, Tag: 1}

// Scored pairs an article with its relatedness score
type Scored struct {
	Article *database.Article `json:"article"`
	Score   float64           `json:"score"`
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// either is empty, they differ in length, or one has zero magnitude.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Rank orders candidates by relatedness to source and returns at most limit.
// The source itself is never returned. With a source embedding, candidates
// with embeddings are ranked by cosine similarity; otherwise by the weighted
// category and tag overlap, dropping non-positive scores.
func Rank(source *database.Article, candidates []*database.Article, limit int, w Weights) []Scored {
	if limit <= 0 {
		return []Scored{}
	}

	scored := make([]Scored, 0, len(candidates))
	useEmbeddings := len(source.Embedding) > 0

	var sourceTags map[int64]bool
	if !useEmbeddings {
		sourceTags = make(map[int64]bool, len(source.TagIDs))
		for _, id := range source.TagIDs {
			sourceTags[id] = true
		}
	}

	for _, c := range candidates {
		if c == nil || c.ID == source.ID {
			continue
		}

		if useEmbeddings {
			if len(c.Embedding) == 0 {
				continue
			}
			scored = append(scored, Scored{Article: c, Score: CosineSimilarity(source.Embedding, c.Embedding)})
			continue
		}

		score := overlapScore(source, c, sourceTags, w)
		if score > 0 {
			scored = append(scored, Scored{Article: c, Score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

func overlapScore(source, c *database.Article, sourceTags map[int64]bool, w Weights) float64 {
	var score float64
	if source.Category != "" && c.Category == source.Category {
		score += w.Category
	}
	for _, id := range c.TagIDs {
		if sourceTags[id] {
			score += w.Tag
		}
	}
	return score
}

// Store is the persistence the related service needs
type Store interface {
	GetArticleByID(ctx context.Context, id int64) (*database.Article, error)
	ListRelatedCandidates(ctx context.Context, excludeID int64, limit int) ([]*database.Article, error)
}

// Service answers related-article lookups
type Service struct {
	store      Store
	candidates int
	weights    Weights
}

// NewService creates a service scoring the DefaultCandidates most recent articles
func NewService(store Store) *Service {
	return &Service{store: store, candidates: DefaultCandidates, weights: DefaultWeights}
}

// Related returns up to limit articles related to the article with id.
// database.ErrNotFound is returned when the article does not exist.
func (s *Service) Related(ctx context.Context, id int64, limit int) ([]Scored, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	source, err := s.store.GetArticleByID(ctx, id)
	if err != nil {
		return nil, err
	}

	candidates, err := s.store.ListRelatedCandidates(ctx, id, s.candidates)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}

	return Rank(source, candidates, limit, s.weights), nil
}
