// Package search merges the backend-native text and vector primitives
// into ranked, parent-deduplicated result lists.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"ai-knowledgebase-be/internal/pkg/logger"
	"ai-knowledgebase-be/internal/storage"
)

// Result is one ranked entry after merging. Parent is the entity the
// match collapsed onto: the owning source for chunks and insights, the
// note itself for notes.
type Result struct {
	Parent  storage.RecordID `json:"parent"`
	Title   string           `json:"title"`
	Snippet string           `json:"snippet,omitempty"`
	Score   float64          `json:"score"`
}

type Service struct {
	driver storage.ISearchDriver
	log    logger.ILogger
}

func NewService(driver storage.ISearchDriver, log logger.ILogger) *Service {
	return &Service{driver: driver, log: log}
}

// Text runs full-text search over the selected content types. Hits from
// different sub-types of the same parent collapse into one entry keeping
// the highest score.
func (s *Service) Text(ctx context.Context, query string, scope storage.SearchScope, limit int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty search query", storage.ErrValidation)
	}
	limit = normalizeLimit(limit)

	hits, err := s.driver.SearchText(ctx, query, scope, limit)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, Result{
			Parent:  h.Parent,
			Title:   h.Title,
			Snippet: h.Snippet,
			Score:   h.Score,
		})
	}
	return rank(results, limit), nil
}

// Vector runs similarity search with a minimum-score threshold. A hit
// below the threshold, or against an incomparable vector, is dropped
// silently rather than failing the call.
func (s *Service) Vector(ctx context.Context, vector []float32, scope storage.SearchScope, limit int, minSimilarity float64) ([]Result, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", storage.ErrValidation)
	}
	limit = normalizeLimit(limit)

	hits, err := s.driver.SearchVector(ctx, vector, scope, limit, minSimilarity)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, Result{
			Parent:  h.Parent,
			Title:   h.Title,
			Snippet: h.Content,
			Score:   h.Similarity,
		})
	}
	return rank(results, limit), nil
}

const defaultLimit = 20

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return limit
}

// rank deduplicates by parent keeping the best-scoring hit, sorts by
// score descending and truncates.
func rank(results []Result, limit int) []Result {
	best := make(map[storage.RecordID]Result, len(results))
	for _, r := range results {
		if cur, ok := best[r.Parent]; !ok || r.Score > cur.Score {
			best[r.Parent] = r
		}
	}

	merged := make([]Result, 0, len(best))
	for _, r := range best {
		merged = append(merged, r)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].Parent.String() < merged[j].Parent.String()
	})

	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
