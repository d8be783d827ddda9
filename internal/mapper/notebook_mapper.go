// Package mapper converts stored records into response DTOs. Services
// never hand raw records to the transport layer.
package mapper

import (
	"time"

	"ai-knowledgebase-be/internal/dto"
	"ai-knowledgebase-be/internal/storage"
)

func updatedAt(rec *storage.Record) *time.Time {
	if rec.Updated.IsZero() {
		return nil
	}
	t := rec.Updated
	return &t
}

type NotebookMapper struct{}

func NewNotebookMapper() *NotebookMapper {
	return &NotebookMapper{}
}

func (m *NotebookMapper) ToResponse(rec *storage.Record) *dto.NotebookResponse {
	if rec == nil {
		return nil
	}
	return &dto.NotebookResponse{
		Id:          rec.ID.String(),
		Name:        rec.String("name"),
		Description: rec.String("description"),
		SourceCount: rec.Int("source_count"),
		NoteCount:   rec.Int("note_count"),
		CreatedAt:   rec.Created,
		UpdatedAt:   updatedAt(rec),
	}
}
