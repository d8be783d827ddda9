package dto

import "time"

type CreateNotebookRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

type UpdateNotebookRequest struct {
	Id          string `json:"-"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

type NotebookResponse struct {
	Id          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	SourceCount int64      `json:"source_count"`
	NoteCount   int64      `json:"note_count"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

type DeleteNotebookRequest struct {
	Id                     string `json:"-"`
	DeleteExclusiveSources bool   `json:"delete_exclusive_sources" query:"delete_exclusive_sources"`
}

// DeleteNotebookPreview tells the caller what a delete would touch
// before they commit to it.
type DeleteNotebookPreview struct {
	Notes            int `json:"notes"`
	ExclusiveSources int `json:"exclusive_sources"`
	LinkedSources    int `json:"linked_sources"`
}
