package service

import (
	"context"

	"ai-knowledgebase-be/internal/dto"
	"ai-knowledgebase-be/internal/search"
	"ai-knowledgebase-be/internal/storage"
	"ai-knowledgebase-be/pkg/embedding"
)

type ISearchService interface {
	Text(ctx context.Context, req *dto.TextSearchRequest) (*dto.SearchResponse, error)
	Semantic(ctx context.Context, req *dto.VectorSearchRequest) (*dto.SearchResponse, error)
}

type searchService struct {
	search   *search.Service
	embedder embedding.Provider
}

func NewSearchService(s *search.Service, embedder embedding.Provider) ISearchService {
	return &searchService{search: s, embedder: embedder}
}

func scopeOf(sources, notes bool) storage.SearchScope {
	// No flags means search everything.
	if !sources && !notes {
		return storage.SearchScope{Sources: true, Notes: true}
	}
	return storage.SearchScope{Sources: sources, Notes: notes}
}

func (s *searchService) Text(ctx context.Context, req *dto.TextSearchRequest) (*dto.SearchResponse, error) {
	results, err := s.search.Text(ctx, req.Query, scopeOf(req.Sources, req.Notes), req.Limit)
	if err != nil {
		return nil, err
	}
	return toSearchResponse(results), nil
}

const defaultMinSimilarity = 0.2

// Semantic embeds the query text and ranks stored vectors against it.
func (s *searchService) Semantic(ctx context.Context, req *dto.VectorSearchRequest) (*dto.SearchResponse, error) {
	vector, err := s.embedder.GenerateEmbedding(ctx, req.Query, embedding.TaskQuery)
	if err != nil {
		return nil, err
	}

	minSimilarity := req.MinSimilarity
	if minSimilarity <= 0 {
		minSimilarity = defaultMinSimilarity
	}

	results, err := s.search.Vector(ctx, vector, scopeOf(req.Sources, req.Notes), req.Limit, minSimilarity)
	if err != nil {
		return nil, err
	}
	return toSearchResponse(results), nil
}

func toSearchResponse(results []search.Result) *dto.SearchResponse {
	resp := &dto.SearchResponse{Results: make([]dto.SearchResultItem, 0, len(results))}
	for _, r := range results {
		resp.Results = append(resp.Results, dto.SearchResultItem{
			Id:      r.Parent.String(),
			Title:   r.Title,
			Snippet: r.Snippet,
			Score:   r.Score,
		})
	}
	return resp
}
