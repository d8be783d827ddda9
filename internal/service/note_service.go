package service

import (
	"context"
	"strings"

	"ai-knowledgebase-be/internal/commands"
	"ai-knowledgebase-be/internal/dto"
	"ai-knowledgebase-be/internal/executor"
	"ai-knowledgebase-be/internal/mapper"
	"ai-knowledgebase-be/internal/pkg/logger"
	"ai-knowledgebase-be/internal/storage"
)

type INoteService interface {
	Create(ctx context.Context, req *dto.CreateNoteRequest) (*dto.NoteResponse, error)
	Show(ctx context.Context, id string) (*dto.NoteResponse, error)
	ListByNotebook(ctx context.Context, notebookId string) ([]*dto.NoteResponse, error)
	Update(ctx context.Context, req *dto.UpdateNoteRequest) (*dto.NoteResponse, error)
	Delete(ctx context.Context, id string) error
}

type noteService struct {
	driver storage.IDriver
	exec   executor.IExecutor
	log    logger.ILogger
	mapper *mapper.NoteMapper
}

func NewNoteService(driver storage.IDriver, exec executor.IExecutor, log logger.ILogger) INoteService {
	return &noteService{
		driver: driver,
		exec:   exec,
		log:    log,
		mapper: mapper.NewNoteMapper(),
	}
}

func (s *noteService) Create(ctx context.Context, req *dto.CreateNoteRequest) (*dto.NoteResponse, error) {
	nbID, err := parseCollectionID(req.NotebookId, storage.CollectionNotebook)
	if err != nil {
		return nil, err
	}
	if _, err := s.driver.Get(ctx, nbID); err != nil {
		return nil, err
	}

	noteType := req.NoteType
	if noteType == "" {
		noteType = "human"
	}
	rec, err := s.driver.Create(ctx, storage.CollectionNote, map[string]any{
		"title":     req.Title,
		"content":   req.Content,
		"note_type": noteType,
	})
	if err != nil {
		return nil, err
	}
	if err := s.driver.Relate(ctx, rec.ID, storage.RelationArtifact, nbID); err != nil {
		return nil, err
	}

	resp := s.mapper.ToResponse(rec)
	resp.EmbedJob = s.scheduleEmbed(ctx, rec.ID, req.Content)
	return resp, nil
}

func (s *noteService) scheduleEmbed(ctx context.Context, id storage.RecordID, content string) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	token, err := s.exec.Execute(ctx, commands.Namespace, commands.CmdEmbedNote, map[string]any{
		"note_id": id.String(),
	})
	if err != nil {
		s.log.Warn("note", "embed scheduling failed", map[string]interface{}{
			"id": id.String(), "error": err.Error(),
		})
		return ""
	}
	return token.String()
}

func (s *noteService) Show(ctx context.Context, id string) (*dto.NoteResponse, error) {
	noteID, err := parseCollectionID(id, storage.CollectionNote)
	if err != nil {
		return nil, err
	}
	rec, err := s.driver.Get(ctx, noteID)
	if err != nil {
		return nil, err
	}
	return s.mapper.ToResponse(rec), nil
}

func (s *noteService) ListByNotebook(ctx context.Context, notebookId string) ([]*dto.NoteResponse, error) {
	nbID, err := parseCollectionID(notebookId, storage.CollectionNotebook)
	if err != nil {
		return nil, err
	}
	recs, err := s.driver.ListRelated(ctx, nbID, storage.RelationArtifact, storage.CollectionNote)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.NoteResponse, 0, len(recs))
	for _, rec := range recs {
		result = append(result, s.mapper.ToResponse(rec))
	}
	return result, nil
}

func (s *noteService) Update(ctx context.Context, req *dto.UpdateNoteRequest) (*dto.NoteResponse, error) {
	noteID, err := parseCollectionID(req.Id, storage.CollectionNote)
	if err != nil {
		return nil, err
	}

	before, err := s.driver.Get(ctx, noteID)
	if err != nil {
		return nil, err
	}
	rec, err := s.driver.Update(ctx, noteID, map[string]any{
		"title":   req.Title,
		"content": req.Content,
	})
	if err != nil {
		return nil, err
	}

	resp := s.mapper.ToResponse(rec)
	if req.Content != before.String("content") {
		resp.EmbedJob = s.scheduleEmbed(ctx, noteID, req.Content)
	}
	return resp, nil
}

func (s *noteService) Delete(ctx context.Context, id string) error {
	noteID, err := parseCollectionID(id, storage.CollectionNote)
	if err != nil {
		return err
	}
	if _, err := s.driver.Get(ctx, noteID); err != nil {
		return err
	}

	notebooks, err := s.driver.ListRelated(ctx, noteID, storage.RelationArtifact, storage.CollectionNotebook)
	if err != nil {
		return err
	}
	for _, nb := range notebooks {
		if err := s.driver.Unrelate(ctx, noteID, storage.RelationArtifact, nb.ID); err != nil {
			return err
		}
	}

	_, err = s.driver.Delete(ctx, noteID)
	return err
}
