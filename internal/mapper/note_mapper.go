package mapper

import (
	"ai-knowledgebase-be/internal/dto"
	"ai-knowledgebase-be/internal/storage"
)

type NoteMapper struct{}

func NewNoteMapper() *NoteMapper {
	return &NoteMapper{}
}

func (m *NoteMapper) ToResponse(rec *storage.Record) *dto.NoteResponse {
	if rec == nil {
		return nil
	}
	return &dto.NoteResponse{
		Id:        rec.ID.String(),
		Title:     rec.String("title"),
		Content:   rec.String("content"),
		NoteType:  rec.String("note_type"),
		CreatedAt: rec.Created,
		UpdatedAt: updatedAt(rec),
	}
}
