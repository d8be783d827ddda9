package service

import (
	"context"
	"errors"

	"ai-knowledgebase-be/internal/dto"
	"ai-knowledgebase-be/internal/mapper"
	"ai-knowledgebase-be/internal/storage"
)

type IContentSettingsService interface {
	Get(ctx context.Context) (*dto.ContentSettingsResponse, error)
	Update(ctx context.Context, req *dto.UpdateContentSettingsRequest) (*dto.ContentSettingsResponse, error)
}

// contentSettingsService manages the per-tenant singleton settings row.
// The record key is deterministic and backend specific, injected at
// wiring time.
type contentSettingsService struct {
	driver       storage.IDriver
	singletonKey string
	mapper       *mapper.ContentSettingsMapper
}

func NewContentSettingsService(driver storage.IDriver, singletonKey string) IContentSettingsService {
	return &contentSettingsService{
		driver:       driver,
		singletonKey: singletonKey,
		mapper:       mapper.NewContentSettingsMapper(),
	}
}

func (s *contentSettingsService) id() storage.RecordID {
	return storage.NewID(storage.CollectionContentSettings, s.singletonKey)
}

func (s *contentSettingsService) Get(ctx context.Context) (*dto.ContentSettingsResponse, error) {
	rec, err := s.driver.Get(ctx, s.id())
	if errors.Is(err, storage.ErrNotFound) {
		// Never written yet; defaults are all empty.
		return &dto.ContentSettingsResponse{Id: s.id().String()}, nil
	}
	if err != nil {
		return nil, err
	}
	return s.mapper.ToResponse(rec), nil
}

func (s *contentSettingsService) Update(ctx context.Context, req *dto.UpdateContentSettingsRequest) (*dto.ContentSettingsResponse, error) {
	rec, err := s.driver.Upsert(ctx, s.id(), map[string]any{
		"default_content_processing_engine": req.DefaultContentProcessingEngine,
		"default_embedding_option":          req.DefaultEmbeddingOption,
		"auto_delete_files":                 req.AutoDeleteFiles,
	})
	if err != nil {
		return nil, err
	}
	return s.mapper.ToResponse(rec), nil
}
