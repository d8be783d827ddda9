package dto

import "time"

type CreateNoteRequest struct {
	NotebookId string `json:"notebook_id" validate:"required"`
	Title      string `json:"title" validate:"required"`
	Content    string `json:"content"`
	NoteType   string `json:"note_type"`
}

type UpdateNoteRequest struct {
	Id      string `json:"-"`
	Title   string `json:"title" validate:"required"`
	Content string `json:"content"`
}

type NoteResponse struct {
	Id        string     `json:"id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	NoteType  string     `json:"note_type,omitempty"`
	EmbedJob  string     `json:"embed_job,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}
