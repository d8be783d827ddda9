package dto

import "time"

type CreateChatSessionRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	NotebookId  string `json:"notebook_id"`
}

type ChatSessionResponse struct {
	Id          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

type AddChatReferenceRequest struct {
	SessionId string `json:"-"`
	TargetId  string `json:"target_id" validate:"required"`
}

type ChatReferencesResponse struct {
	Notebooks []NotebookResponse `json:"notebooks"`
	Sources   []SourceResponse   `json:"sources"`
}
