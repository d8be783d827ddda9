package dto

import "time"

type SubmitCommandRequest struct {
	Command        string         `json:"command" validate:"required"`
	Args           map[string]any `json:"args"`
	Sync           bool           `json:"sync"`
	TimeoutSeconds int            `json:"timeout_seconds" validate:"omitempty,min=1,max=3600"`
}

type SubmitCommandResponse struct {
	Mode   string `json:"mode"`
	Status string `json:"status"`
	JobId  string `json:"job_id,omitempty"`
}

type JobStatusResponse struct {
	JobId        string         `json:"job_id"`
	Command      string         `json:"command"`
	Status       string         `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	Result       map[string]any `json:"result,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
}

type QueueStatsResponse struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
}
