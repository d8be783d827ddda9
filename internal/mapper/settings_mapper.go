package mapper

import (
	"ai-knowledgebase-be/internal/dto"
	"ai-knowledgebase-be/internal/storage"
)

type ContentSettingsMapper struct{}

func NewContentSettingsMapper() *ContentSettingsMapper {
	return &ContentSettingsMapper{}
}

func (m *ContentSettingsMapper) ToResponse(rec *storage.Record) *dto.ContentSettingsResponse {
	if rec == nil {
		return nil
	}
	return &dto.ContentSettingsResponse{
		Id:                             rec.ID.String(),
		DefaultContentProcessingEngine: rec.String("default_content_processing_engine"),
		DefaultEmbeddingOption:         rec.String("default_embedding_option"),
		AutoDeleteFiles:                rec.String("auto_delete_files"),
	}
}
