package mapper

import (
	"ai-knowledgebase-be/internal/dto"
	"ai-knowledgebase-be/internal/storage"
)

type SourceMapper struct{}

func NewSourceMapper() *SourceMapper {
	return &SourceMapper{}
}

func (m *SourceMapper) ToResponse(rec *storage.Record) *dto.SourceResponse {
	if rec == nil {
		return nil
	}
	return &dto.SourceResponse{
		Id:            rec.ID.String(),
		Title:         rec.String("title"),
		Topics:        rec.StringSlice("topics"),
		FullText:      rec.String("full_text"),
		AssetFilePath: rec.String("asset_file_path"),
		AssetUrl:      rec.String("asset_url"),
		CreatedAt:     rec.Created,
		UpdatedAt:     updatedAt(rec),
	}
}

func (m *SourceMapper) ToInsightResponse(rec *storage.Record) dto.InsightResponse {
	return dto.InsightResponse{
		Id:          rec.ID.String(),
		InsightType: rec.String("insight_type"),
		Content:     rec.String("content"),
		CreatedAt:   rec.Created,
	}
}
