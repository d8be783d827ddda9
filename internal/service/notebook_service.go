package service

import (
	"context"

	"ai-knowledgebase-be/internal/dto"
	"ai-knowledgebase-be/internal/mapper"
	"ai-knowledgebase-be/internal/pkg/logger"
	"ai-knowledgebase-be/internal/storage"
)

type INotebookService interface {
	Create(ctx context.Context, req *dto.CreateNotebookRequest) (*dto.NotebookResponse, error)
	GetAll(ctx context.Context) ([]*dto.NotebookResponse, error)
	Show(ctx context.Context, id string) (*dto.NotebookResponse, error)
	Update(ctx context.Context, req *dto.UpdateNotebookRequest) (*dto.NotebookResponse, error)
	DeletePreview(ctx context.Context, id string) (*dto.DeleteNotebookPreview, error)
	Delete(ctx context.Context, req *dto.DeleteNotebookRequest) error
}

type notebookService struct {
	driver  storage.IDriver
	sources ISourceService
	notes   INoteService
	log     logger.ILogger
	mapper  *mapper.NotebookMapper
}

func NewNotebookService(driver storage.IDriver, sources ISourceService, notes INoteService, log logger.ILogger) INotebookService {
	return &notebookService{
		driver:  driver,
		sources: sources,
		notes:   notes,
		log:     log,
		mapper:  mapper.NewNotebookMapper(),
	}
}

func (s *notebookService) Create(ctx context.Context, req *dto.CreateNotebookRequest) (*dto.NotebookResponse, error) {
	rec, err := s.driver.Create(ctx, storage.CollectionNotebook, map[string]any{
		"name":        req.Name,
		"description": req.Description,
	})
	if err != nil {
		return nil, err
	}
	return s.mapper.ToResponse(rec), nil
}

func (s *notebookService) GetAll(ctx context.Context) ([]*dto.NotebookResponse, error) {
	recs, err := s.driver.ListWithCounts(ctx, storage.CollectionNotebook, []storage.CountSpec{
		{Alias: "source_count", Kind: storage.RelationReference, TargetCollection: storage.CollectionSource},
		{Alias: "note_count", Kind: storage.RelationArtifact, TargetCollection: storage.CollectionNote},
	}, storage.ListQuery{OrderBy: "created", Desc: true})
	if err != nil {
		return nil, err
	}

	result := make([]*dto.NotebookResponse, 0, len(recs))
	for _, rec := range recs {
		result = append(result, s.mapper.ToResponse(rec))
	}
	return result, nil
}

func (s *notebookService) Show(ctx context.Context, id string) (*dto.NotebookResponse, error) {
	nbID, err := parseCollectionID(id, storage.CollectionNotebook)
	if err != nil {
		return nil, err
	}
	rec, err := s.driver.Get(ctx, nbID)
	if err != nil {
		return nil, err
	}

	resp := s.mapper.ToResponse(rec)
	if resp.SourceCount, err = s.driver.CountRelated(ctx, nbID, storage.RelationReference, storage.CollectionSource); err != nil {
		return nil, err
	}
	if resp.NoteCount, err = s.driver.CountRelated(ctx, nbID, storage.RelationArtifact, storage.CollectionNote); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *notebookService) Update(ctx context.Context, req *dto.UpdateNotebookRequest) (*dto.NotebookResponse, error) {
	nbID, err := parseCollectionID(req.Id, storage.CollectionNotebook)
	if err != nil {
		return nil, err
	}
	rec, err := s.driver.Update(ctx, nbID, map[string]any{
		"name":        req.Name,
		"description": req.Description,
	})
	if err != nil {
		return nil, err
	}
	return s.mapper.ToResponse(rec), nil
}

func (s *notebookService) DeletePreview(ctx context.Context, id string) (*dto.DeleteNotebookPreview, error) {
	nbID, err := parseCollectionID(id, storage.CollectionNotebook)
	if err != nil {
		return nil, err
	}
	if _, err := s.driver.Get(ctx, nbID); err != nil {
		return nil, err
	}

	notes, err := s.driver.CountRelated(ctx, nbID, storage.RelationArtifact, storage.CollectionNote)
	if err != nil {
		return nil, err
	}

	preview := &dto.DeleteNotebookPreview{Notes: int(notes)}
	sources, err := s.driver.ListRelated(ctx, nbID, storage.RelationReference, storage.CollectionSource)
	if err != nil {
		return nil, err
	}
	for _, src := range sources {
		refs, err := s.driver.CountRelated(ctx, src.ID, storage.RelationReference, storage.CollectionNotebook)
		if err != nil {
			return nil, err
		}
		if refs == 1 {
			preview.ExclusiveSources++
		} else {
			preview.LinkedSources++
		}
	}
	return preview, nil
}

// Delete removes the notebook and everything attached only to it: its
// notes always, its exclusively-referenced sources only when the caller
// asked for that. Shared sources are unlinked and kept.
func (s *notebookService) Delete(ctx context.Context, req *dto.DeleteNotebookRequest) error {
	nbID, err := parseCollectionID(req.Id, storage.CollectionNotebook)
	if err != nil {
		return err
	}
	if _, err := s.driver.Get(ctx, nbID); err != nil {
		return err
	}

	notes, err := s.driver.ListRelated(ctx, nbID, storage.RelationArtifact, storage.CollectionNote)
	if err != nil {
		return err
	}
	for _, note := range notes {
		if err := s.notes.Delete(ctx, note.ID.String()); err != nil {
			return err
		}
	}

	sources, err := s.driver.ListRelated(ctx, nbID, storage.RelationReference, storage.CollectionSource)
	if err != nil {
		return err
	}
	for _, src := range sources {
		refs, err := s.driver.CountRelated(ctx, src.ID, storage.RelationReference, storage.CollectionNotebook)
		if err != nil {
			return err
		}
		if err := s.driver.Unrelate(ctx, src.ID, storage.RelationReference, nbID); err != nil {
			return err
		}
		if req.DeleteExclusiveSources && refs == 1 {
			if err := s.sources.Delete(ctx, src.ID.String()); err != nil {
				return err
			}
		}
	}

	sessions, err := s.driver.ListRelated(ctx, nbID, storage.RelationRefersTo, storage.CollectionChatSession)
	if err != nil {
		return err
	}
	for _, sess := range sessions {
		if err := s.driver.Unrelate(ctx, sess.ID, storage.RelationRefersTo, nbID); err != nil {
			return err
		}
	}

	if _, err := s.driver.Delete(ctx, nbID); err != nil {
		return err
	}
	s.log.Info("notebook", "notebook deleted", map[string]interface{}{
		"id": nbID.String(), "notes": len(notes), "sources": len(sources),
	})
	return nil
}
