package mapper

import (
	"ai-knowledgebase-be/internal/dto"
	"ai-knowledgebase-be/internal/storage"
)

type ChatSessionMapper struct{}

func NewChatSessionMapper() *ChatSessionMapper {
	return &ChatSessionMapper{}
}

func (m *ChatSessionMapper) ToResponse(rec *storage.Record) *dto.ChatSessionResponse {
	if rec == nil {
		return nil
	}
	return &dto.ChatSessionResponse{
		Id:          rec.ID.String(),
		Title:       rec.String("title"),
		Description: rec.String("description"),
		CreatedAt:   rec.Created,
		UpdatedAt:   updatedAt(rec),
	}
}
