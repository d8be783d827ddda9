package dto

type TextSearchRequest struct {
	Query   string `json:"query" validate:"required"`
	Sources bool   `json:"sources"`
	Notes   bool   `json:"notes"`
	Limit   int    `json:"limit"`
}

type VectorSearchRequest struct {
	Query         string  `json:"query" validate:"required"`
	Sources       bool    `json:"sources"`
	Notes         bool    `json:"notes"`
	Limit         int     `json:"limit"`
	MinSimilarity float64 `json:"min_similarity"`
}

type SearchResultItem struct {
	Id      string  `json:"id"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet,omitempty"`
	Score   float64 `json:"score"`
}

type SearchResponse struct {
	Results []SearchResultItem `json:"results"`
}
