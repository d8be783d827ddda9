// Package commands holds the job handlers behind the content namespace:
// embedding pipelines for notes, insights and chunked sources, plus the
// bulk rebuild sweep. Handlers are safe to re-run; a recovered job
// re-applies the same writes.
package commands

import (
	"context"
	"fmt"
	"strings"

	"ai-knowledgebase-be/internal/pkg/logger"
	"ai-knowledgebase-be/internal/queue"
	"ai-knowledgebase-be/internal/storage"
	"ai-knowledgebase-be/pkg/embedding"
	"ai-knowledgebase-be/pkg/utils"
)

const Namespace = "content"

const (
	CmdEmbedNote         = "embed_note"
	CmdEmbedInsight      = "embed_insight"
	CmdEmbedSource       = "embed_source"
	CmdCreateInsight     = "create_insight"
	CmdRebuildEmbeddings = "rebuild_embeddings"
)

type Deps struct {
	Driver   storage.IDriver
	Embedder embedding.Provider
	Log      logger.ILogger

	// Chunking knobs for source full text. Zero values use defaults.
	ChunkSize    int
	ChunkOverlap int
}

func (d *Deps) withDefaults() {
	if d.ChunkSize <= 0 {
		d.ChunkSize = 1000
	}
	if d.ChunkOverlap < 0 || d.ChunkOverlap >= d.ChunkSize {
		d.ChunkOverlap = 100
	}
}

// Register wires every content command into the registry.
func Register(r *queue.Registry, deps Deps) {
	deps.withDefaults()
	h := &handlers{deps: deps}
	r.Register(Namespace, CmdEmbedNote, h.embedNote)
	r.Register(Namespace, CmdEmbedInsight, h.embedInsight)
	r.Register(Namespace, CmdEmbedSource, h.embedSource)
	r.Register(Namespace, CmdCreateInsight, h.createInsight)
	r.Register(Namespace, CmdRebuildEmbeddings, h.rebuildEmbeddings)
}

type handlers struct {
	deps Deps
}

func (h *handlers) embedNote(ctx context.Context, args map[string]any) (map[string]any, error) {
	id, err := argID(args, "note_id", storage.CollectionNote)
	if err != nil {
		return nil, err
	}
	note, err := h.deps.Driver.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(note.String("content"))
	if content == "" {
		return nil, fmt.Errorf("%w: note %s has no content to embed", storage.ErrValidation, id)
	}

	vector, err := h.deps.Embedder.GenerateEmbedding(ctx, content, embedding.TaskDocument)
	if err != nil {
		return nil, err
	}
	if _, err := h.deps.Driver.Update(ctx, id, map[string]any{"embedding": vector}); err != nil {
		return nil, err
	}
	return map[string]any{"note_id": id.String(), "dimensions": len(vector)}, nil
}

func (h *handlers) embedInsight(ctx context.Context, args map[string]any) (map[string]any, error) {
	id, err := argID(args, "insight_id", storage.CollectionSourceInsight)
	if err != nil {
		return nil, err
	}
	insight, err := h.deps.Driver.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(insight.String("content"))
	if content == "" {
		return nil, fmt.Errorf("%w: insight %s has no content to embed", storage.ErrValidation, id)
	}

	vector, err := h.deps.Embedder.GenerateEmbedding(ctx, content, embedding.TaskDocument)
	if err != nil {
		return nil, err
	}
	if _, err := h.deps.Driver.Update(ctx, id, map[string]any{"embedding": vector}); err != nil {
		return nil, err
	}
	return map[string]any{"insight_id": id.String(), "dimensions": len(vector)}, nil
}

// embedSource chunks the full text and replaces the source's embedding
// rows. Vectors are generated before anything is deleted, so a provider
// failure leaves the old chunks intact.
func (h *handlers) embedSource(ctx context.Context, args map[string]any) (map[string]any, error) {
	id, err := argID(args, "source_id", storage.CollectionSource)
	if err != nil {
		return nil, err
	}
	source, err := h.deps.Driver.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(source.String("full_text"))
	if text == "" {
		return nil, fmt.Errorf("%w: source %s has no text to embed", storage.ErrValidation, id)
	}

	chunks := utils.SplitText(text, h.deps.ChunkSize, h.deps.ChunkOverlap)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: chunking produced no fragments for source %s", storage.ErrValidation, id)
	}

	vectors, err := h.deps.Embedder.GenerateEmbeddings(ctx, chunks)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("provider returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	if err := h.replaceChunks(ctx, id, chunks, vectors); err != nil {
		return nil, err
	}
	return map[string]any{"source_id": id.String(), "chunks": len(chunks)}, nil
}

func (h *handlers) replaceChunks(ctx context.Context, source storage.RecordID, chunks []string, vectors [][]float32) error {
	old, err := h.deps.Driver.List(ctx, storage.CollectionSourceEmbedding, storage.ListQuery{
		Filters: storage.Filter{"source_id": source.String()},
	})
	if err != nil {
		return err
	}
	for _, rec := range old {
		if _, err := h.deps.Driver.Delete(ctx, rec.ID); err != nil {
			return err
		}
	}

	rows := make([]map[string]any, len(chunks))
	for i, chunk := range chunks {
		rows[i] = map[string]any{
			"source_id":   source.String(),
			"chunk_order": i,
			"content":     chunk,
			"embedding":   vectors[i],
		}
	}
	_, err = h.deps.Driver.BulkInsert(ctx, storage.CollectionSourceEmbedding, rows, false)
	return err
}

func (h *handlers) createInsight(ctx context.Context, args map[string]any) (map[string]any, error) {
	sourceID, err := argID(args, "source_id", storage.CollectionSource)
	if err != nil {
		return nil, err
	}
	insightType, err := argString(args, "insight_type")
	if err != nil {
		return nil, err
	}
	content, err := argString(args, "content")
	if err != nil {
		return nil, err
	}

	// The source must exist; an insight may not dangle.
	if _, err := h.deps.Driver.Get(ctx, sourceID); err != nil {
		return nil, err
	}

	vector, err := h.deps.Embedder.GenerateEmbedding(ctx, content, embedding.TaskDocument)
	if err != nil {
		return nil, err
	}

	rec, err := h.deps.Driver.Create(ctx, storage.CollectionSourceInsight, map[string]any{
		"source_id":    sourceID.String(),
		"insight_type": insightType,
		"content":      content,
		"embedding":    vector,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"insight_id": rec.ID.String()}, nil
}

// rebuildEmbeddings re-embeds every note, insight and source in the
// tenant. Rows without content are skipped, not failed; one bad row must
// not abort a full rebuild.
func (h *handlers) rebuildEmbeddings(ctx context.Context, args map[string]any) (map[string]any, error) {
	var embedded, skipped int

	rebuildRow := func(collection, field string) func(*storage.Record) error {
		return func(rec *storage.Record) error {
			content := strings.TrimSpace(rec.String(field))
			if content == "" {
				skipped++
				return nil
			}
			vector, err := h.deps.Embedder.GenerateEmbedding(ctx, content, embedding.TaskDocument)
			if err != nil {
				return err
			}
			if _, err := h.deps.Driver.Update(ctx, rec.ID, map[string]any{"embedding": vector}); err != nil {
				return err
			}
			embedded++
			return nil
		}
	}

	if err := h.forEach(ctx, storage.CollectionNote, rebuildRow(storage.CollectionNote, "content")); err != nil {
		return nil, err
	}
	if err := h.forEach(ctx, storage.CollectionSourceInsight, rebuildRow(storage.CollectionSourceInsight, "content")); err != nil {
		return nil, err
	}

	var sources int
	err := h.forEach(ctx, storage.CollectionSource, func(rec *storage.Record) error {
		text := strings.TrimSpace(rec.String("full_text"))
		if text == "" {
			skipped++
			return nil
		}
		_, err := h.embedSource(ctx, map[string]any{"source_id": rec.ID.String()})
		if err != nil {
			return err
		}
		sources++
		return nil
	})
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"embedded": embedded,
		"sources":  sources,
		"skipped":  skipped,
	}, nil
}

const rebuildPageSize = 200

func (h *handlers) forEach(ctx context.Context, collection string, fn func(*storage.Record) error) error {
	for offset := 0; ; offset += rebuildPageSize {
		page, err := h.deps.Driver.List(ctx, collection, storage.ListQuery{
			OrderBy: "created",
			Limit:   rebuildPageSize,
			Offset:  offset,
		})
		if err != nil {
			return err
		}
		for _, rec := range page {
			if err := fn(rec); err != nil {
				return err
			}
		}
		if len(page) < rebuildPageSize {
			return nil
		}
	}
}

func argString(args map[string]any, key string) (string, error) {
	v, _ := args[key].(string)
	v = strings.TrimSpace(v)
	if v == "" {
		return "", fmt.Errorf("%w: missing required argument %q", storage.ErrValidation, key)
	}
	return v, nil
}

func argID(args map[string]any, key, collection string) (storage.RecordID, error) {
	raw, err := argString(args, key)
	if err != nil {
		return storage.RecordID{}, err
	}
	id, err := storage.ParseID(raw)
	if err != nil {
		return storage.RecordID{}, err
	}
	if id.Collection != collection {
		return storage.RecordID{}, fmt.Errorf("%w: %s must reference a %s, got %s", storage.ErrValidation, key, collection, id.Collection)
	}
	return id, nil
}
