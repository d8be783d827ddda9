package dto

import "time"

type CreateSourceRequest struct {
	NotebookId    string   `json:"notebook_id" validate:"required"`
	Title         string   `json:"title" validate:"required"`
	Topics        []string `json:"topics"`
	FullText      string   `json:"full_text"`
	AssetFilePath string   `json:"asset_file_path"`
	AssetUrl      string   `json:"asset_url"`
}

type UpdateSourceRequest struct {
	Id       string   `json:"-"`
	Title    string   `json:"title" validate:"required"`
	Topics   []string `json:"topics"`
	FullText string   `json:"full_text"`
}

type SourceResponse struct {
	Id            string     `json:"id"`
	Title         string     `json:"title"`
	Topics        []string   `json:"topics"`
	FullText      string     `json:"full_text,omitempty"`
	AssetFilePath string     `json:"asset_file_path,omitempty"`
	AssetUrl      string     `json:"asset_url,omitempty"`
	EmbedJob      string     `json:"embed_job,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at"`
}

type InsightResponse struct {
	Id          string    `json:"id"`
	InsightType string    `json:"insight_type"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

type ShowSourceResponse struct {
	SourceResponse
	Insights []InsightResponse `json:"insights"`
}

type LinkSourceRequest struct {
	SourceId   string `json:"-"`
	NotebookId string `json:"notebook_id" validate:"required"`
}
