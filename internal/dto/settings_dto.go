package dto

type UpdateContentSettingsRequest struct {
	DefaultContentProcessingEngine string `json:"default_content_processing_engine"`
	DefaultEmbeddingOption         string `json:"default_embedding_option"`
	AutoDeleteFiles                string `json:"auto_delete_files"`
}

type ContentSettingsResponse struct {
	Id                             string `json:"id"`
	DefaultContentProcessingEngine string `json:"default_content_processing_engine"`
	DefaultEmbeddingOption         string `json:"default_embedding_option"`
	AutoDeleteFiles                string `json:"auto_delete_files"`
}
