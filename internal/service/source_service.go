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
	"ai-knowledgebase-be/pkg/filestore"
)

type ISourceService interface {
	Create(ctx context.Context, req *dto.CreateSourceRequest) (*dto.SourceResponse, error)
	Show(ctx context.Context, id string) (*dto.ShowSourceResponse, error)
	ListByNotebook(ctx context.Context, notebookId string) ([]*dto.SourceResponse, error)
	Update(ctx context.Context, req *dto.UpdateSourceRequest) (*dto.SourceResponse, error)
	Link(ctx context.Context, req *dto.LinkSourceRequest) error
	Unlink(ctx context.Context, req *dto.LinkSourceRequest) error
	Delete(ctx context.Context, id string) error
}

type sourceService struct {
	driver storage.IDriver
	exec   executor.IExecutor
	files  filestore.Store
	log    logger.ILogger
	mapper *mapper.SourceMapper
}

func NewSourceService(driver storage.IDriver, exec executor.IExecutor, files filestore.Store, log logger.ILogger) ISourceService {
	return &sourceService{
		driver: driver,
		exec:   exec,
		files:  files,
		log:    log,
		mapper: mapper.NewSourceMapper(),
	}
}

func (s *sourceService) Create(ctx context.Context, req *dto.CreateSourceRequest) (*dto.SourceResponse, error) {
	nbID, err := parseCollectionID(req.NotebookId, storage.CollectionNotebook)
	if err != nil {
		return nil, err
	}
	if _, err := s.driver.Get(ctx, nbID); err != nil {
		return nil, err
	}

	rec, err := s.driver.Create(ctx, storage.CollectionSource, map[string]any{
		"title":           req.Title,
		"topics":          req.Topics,
		"full_text":       req.FullText,
		"asset_file_path": req.AssetFilePath,
		"asset_url":       req.AssetUrl,
	})
	if err != nil {
		return nil, err
	}
	if err := s.driver.Relate(ctx, rec.ID, storage.RelationReference, nbID); err != nil {
		return nil, err
	}

	resp := s.mapper.ToResponse(rec)
	resp.EmbedJob = s.scheduleEmbed(ctx, rec.ID, req.FullText)
	return resp, nil
}

// scheduleEmbed kicks off the embedding pipeline. An inline failure is
// recorded on the token, never propagated: the source itself was saved.
func (s *sourceService) scheduleEmbed(ctx context.Context, id storage.RecordID, fullText string) string {
	if strings.TrimSpace(fullText) == "" {
		return ""
	}
	token, err := s.exec.Execute(ctx, commands.Namespace, commands.CmdEmbedSource, map[string]any{
		"source_id": id.String(),
	})
	if err != nil {
		s.log.Warn("source", "embed scheduling failed", map[string]interface{}{
			"id": id.String(), "error": err.Error(),
		})
		return ""
	}
	return token.String()
}

func (s *sourceService) Show(ctx context.Context, id string) (*dto.ShowSourceResponse, error) {
	srcID, err := parseCollectionID(id, storage.CollectionSource)
	if err != nil {
		return nil, err
	}
	rec, err := s.driver.Get(ctx, srcID)
	if err != nil {
		return nil, err
	}

	insights, err := s.driver.List(ctx, storage.CollectionSourceInsight, storage.ListQuery{
		Filters: storage.Filter{"source_id": srcID.String()},
		OrderBy: "created",
	})
	if err != nil {
		return nil, err
	}

	resp := &dto.ShowSourceResponse{
		SourceResponse: *s.mapper.ToResponse(rec),
		Insights:       make([]dto.InsightResponse, 0, len(insights)),
	}
	for _, ins := range insights {
		resp.Insights = append(resp.Insights, s.mapper.ToInsightResponse(ins))
	}
	return resp, nil
}

func (s *sourceService) ListByNotebook(ctx context.Context, notebookId string) ([]*dto.SourceResponse, error) {
	nbID, err := parseCollectionID(notebookId, storage.CollectionNotebook)
	if err != nil {
		return nil, err
	}
	recs, err := s.driver.ListRelated(ctx, nbID, storage.RelationReference, storage.CollectionSource)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.SourceResponse, 0, len(recs))
	for _, rec := range recs {
		resp := s.mapper.ToResponse(rec)
		// Full text stays out of list payloads.
		resp.FullText = ""
		result = append(result, resp)
	}
	return result, nil
}

func (s *sourceService) Update(ctx context.Context, req *dto.UpdateSourceRequest) (*dto.SourceResponse, error) {
	srcID, err := parseCollectionID(req.Id, storage.CollectionSource)
	if err != nil {
		return nil, err
	}

	before, err := s.driver.Get(ctx, srcID)
	if err != nil {
		return nil, err
	}

	rec, err := s.driver.Update(ctx, srcID, map[string]any{
		"title":     req.Title,
		"topics":    req.Topics,
		"full_text": req.FullText,
	})
	if err != nil {
		return nil, err
	}

	resp := s.mapper.ToResponse(rec)
	if req.FullText != before.String("full_text") {
		resp.EmbedJob = s.scheduleEmbed(ctx, srcID, req.FullText)
	}
	return resp, nil
}

func (s *sourceService) Link(ctx context.Context, req *dto.LinkSourceRequest) error {
	srcID, err := parseCollectionID(req.SourceId, storage.CollectionSource)
	if err != nil {
		return err
	}
	nbID, err := parseCollectionID(req.NotebookId, storage.CollectionNotebook)
	if err != nil {
		return err
	}
	if _, err := s.driver.Get(ctx, srcID); err != nil {
		return err
	}
	if _, err := s.driver.Get(ctx, nbID); err != nil {
		return err
	}
	return s.driver.Relate(ctx, srcID, storage.RelationReference, nbID)
}

func (s *sourceService) Unlink(ctx context.Context, req *dto.LinkSourceRequest) error {
	srcID, err := parseCollectionID(req.SourceId, storage.CollectionSource)
	if err != nil {
		return err
	}
	nbID, err := parseCollectionID(req.NotebookId, storage.CollectionNotebook)
	if err != nil {
		return err
	}
	return s.driver.Unrelate(ctx, srcID, storage.RelationReference, nbID)
}

// Delete cascades: embedding chunks first, then insights, then the
// source row, then a best-effort removal of the stored asset file.
func (s *sourceService) Delete(ctx context.Context, id string) error {
	srcID, err := parseCollectionID(id, storage.CollectionSource)
	if err != nil {
		return err
	}
	rec, err := s.driver.Get(ctx, srcID)
	if err != nil {
		return err
	}

	for _, collection := range []string{storage.CollectionSourceEmbedding, storage.CollectionSourceInsight} {
		rows, err := s.driver.List(ctx, collection, storage.ListQuery{
			Filters: storage.Filter{"source_id": srcID.String()},
		})
		if err != nil {
			return err
		}
		for _, row := range rows {
			if _, err := s.driver.Delete(ctx, row.ID); err != nil {
				return err
			}
		}
	}

	notebooks, err := s.driver.ListRelated(ctx, srcID, storage.RelationReference, storage.CollectionNotebook)
	if err != nil {
		return err
	}
	for _, nb := range notebooks {
		if err := s.driver.Unrelate(ctx, srcID, storage.RelationReference, nb.ID); err != nil {
			return err
		}
	}
	sessions, err := s.driver.ListRelated(ctx, srcID, storage.RelationRefersTo, storage.CollectionChatSession)
	if err != nil {
		return err
	}
	for _, sess := range sessions {
		if err := s.driver.Unrelate(ctx, sess.ID, storage.RelationRefersTo, srcID); err != nil {
			return err
		}
	}

	if _, err := s.driver.Delete(ctx, srcID); err != nil {
		return err
	}

	if path := rec.String("asset_file_path"); path != "" {
		if _, err := s.files.Delete(ctx, path); err != nil {
			// The record is already gone; a stale file is acceptable.
			s.log.Warn("source", "asset removal failed", map[string]interface{}{
				"id": srcID.String(), "path": path, "error": err.Error(),
			})
		}
	}
	return nil
}
