package service

import (
	"context"
	"fmt"

	"ai-knowledgebase-be/internal/dto"
	"ai-knowledgebase-be/internal/mapper"
	"ai-knowledgebase-be/internal/storage"
)

type IChatSessionService interface {
	Create(ctx context.Context, req *dto.CreateChatSessionRequest) (*dto.ChatSessionResponse, error)
	GetAll(ctx context.Context) ([]*dto.ChatSessionResponse, error)
	AddReference(ctx context.Context, req *dto.AddChatReferenceRequest) error
	RemoveReference(ctx context.Context, req *dto.AddChatReferenceRequest) error
	ListReferences(ctx context.Context, sessionId string) (*dto.ChatReferencesResponse, error)
	Delete(ctx context.Context, id string) error
}

type chatSessionService struct {
	driver    storage.IDriver
	mapper    *mapper.ChatSessionMapper
	notebooks *mapper.NotebookMapper
	sources   *mapper.SourceMapper
}

func NewChatSessionService(driver storage.IDriver) IChatSessionService {
	return &chatSessionService{
		driver:    driver,
		mapper:    mapper.NewChatSessionMapper(),
		notebooks: mapper.NewNotebookMapper(),
		sources:   mapper.NewSourceMapper(),
	}
}

func (s *chatSessionService) Create(ctx context.Context, req *dto.CreateChatSessionRequest) (*dto.ChatSessionResponse, error) {
	rec, err := s.driver.Create(ctx, storage.CollectionChatSession, map[string]any{
		"title":       req.Title,
		"description": req.Description,
	})
	if err != nil {
		return nil, err
	}

	if req.NotebookId != "" {
		nbID, err := parseCollectionID(req.NotebookId, storage.CollectionNotebook)
		if err != nil {
			return nil, err
		}
		if err := s.driver.Relate(ctx, rec.ID, storage.RelationRefersTo, nbID); err != nil {
			return nil, err
		}
	}
	return s.mapper.ToResponse(rec), nil
}

func (s *chatSessionService) GetAll(ctx context.Context) ([]*dto.ChatSessionResponse, error) {
	recs, err := s.driver.List(ctx, storage.CollectionChatSession, storage.ListQuery{
		OrderBy: "created",
		Desc:    true,
	})
	if err != nil {
		return nil, err
	}

	result := make([]*dto.ChatSessionResponse, 0, len(recs))
	for _, rec := range recs {
		result = append(result, s.mapper.ToResponse(rec))
	}
	return result, nil
}

// AddReference links a session to a notebook or a source; anything else
// is rejected before touching storage.
func (s *chatSessionService) AddReference(ctx context.Context, req *dto.AddChatReferenceRequest) error {
	sessID, targetID, err := s.referenceIDs(req)
	if err != nil {
		return err
	}
	if _, err := s.driver.Get(ctx, sessID); err != nil {
		return err
	}
	if _, err := s.driver.Get(ctx, targetID); err != nil {
		return err
	}
	return s.driver.Relate(ctx, sessID, storage.RelationRefersTo, targetID)
}

func (s *chatSessionService) RemoveReference(ctx context.Context, req *dto.AddChatReferenceRequest) error {
	sessID, targetID, err := s.referenceIDs(req)
	if err != nil {
		return err
	}
	return s.driver.Unrelate(ctx, sessID, storage.RelationRefersTo, targetID)
}

func (s *chatSessionService) referenceIDs(req *dto.AddChatReferenceRequest) (storage.RecordID, storage.RecordID, error) {
	sessID, err := parseCollectionID(req.SessionId, storage.CollectionChatSession)
	if err != nil {
		return storage.RecordID{}, storage.RecordID{}, err
	}
	targetID, err := storage.ParseID(req.TargetId)
	if err != nil {
		return storage.RecordID{}, storage.RecordID{}, err
	}
	if targetID.Collection != storage.CollectionNotebook && targetID.Collection != storage.CollectionSource {
		return storage.RecordID{}, storage.RecordID{}, fmt.Errorf(
			"%w: a chat session may only refer to notebooks and sources, got %q",
			storage.ErrValidation, targetID.Collection)
	}
	return sessID, targetID, nil
}

func (s *chatSessionService) ListReferences(ctx context.Context, sessionId string) (*dto.ChatReferencesResponse, error) {
	sessID, err := parseCollectionID(sessionId, storage.CollectionChatSession)
	if err != nil {
		return nil, err
	}
	if _, err := s.driver.Get(ctx, sessID); err != nil {
		return nil, err
	}

	resp := &dto.ChatReferencesResponse{
		Notebooks: make([]dto.NotebookResponse, 0),
		Sources:   make([]dto.SourceResponse, 0),
	}

	notebooks, err := s.driver.ListRelated(ctx, sessID, storage.RelationRefersTo, storage.CollectionNotebook)
	if err != nil {
		return nil, err
	}
	for _, nb := range notebooks {
		resp.Notebooks = append(resp.Notebooks, *s.notebooks.ToResponse(nb))
	}

	sources, err := s.driver.ListRelated(ctx, sessID, storage.RelationRefersTo, storage.CollectionSource)
	if err != nil {
		return nil, err
	}
	for _, src := range sources {
		item := s.sources.ToResponse(src)
		item.FullText = ""
		resp.Sources = append(resp.Sources, *item)
	}
	return resp, nil
}

func (s *chatSessionService) Delete(ctx context.Context, id string) error {
	sessID, err := parseCollectionID(id, storage.CollectionChatSession)
	if err != nil {
		return err
	}
	if _, err := s.driver.Get(ctx, sessID); err != nil {
		return err
	}

	for _, collection := range []string{storage.CollectionNotebook, storage.CollectionSource} {
		targets, err := s.driver.ListRelated(ctx, sessID, storage.RelationRefersTo, collection)
		if err != nil {
			return err
		}
		for _, target := range targets {
			if err := s.driver.Unrelate(ctx, sessID, storage.RelationRefersTo, target.ID); err != nil {
				return err
			}
		}
	}

	_, err = s.driver.Delete(ctx, sessID)
	return err
}
