package commands

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-knowledgebase-be/internal/pkg/logger"
	"ai-knowledgebase-be/internal/queue"
	"ai-knowledgebase-be/internal/storage"
	"ai-knowledgebase-be/internal/storage/sqlite"
	"ai-knowledgebase-be/internal/tenant"
)

type fakeProvider struct {
	calls int
	err   error
}

func (f *fakeProvider) GenerateEmbedding(ctx context.Context, text string, taskType string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0, float32(len(text) % 7)}, nil
}

func (f *fakeProvider) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := f.GenerateEmbedding(ctx, text, "")
		if err != nil {
			return nil, err
		}
		vectors[i] = v
	}
	return vectors, nil
}

func newTestHandlers(t *testing.T) (*handlers, storage.IDriver, *fakeProvider, context.Context) {
	t.Helper()
	d, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	provider := &fakeProvider{}
	deps := Deps{
		Driver:       d,
		Embedder:     provider,
		Log:          logger.NewNopLogger(),
		ChunkSize:    40,
		ChunkOverlap: 10,
	}
	deps.withDefaults()

	ctx := tenant.NewContext(context.Background(), tenant.Context{Namespace: "tenant-a", UserID: "u1"})
	return &handlers{deps: deps}, d, provider, ctx
}

func countChunks(t *testing.T, d storage.IDriver, ctx context.Context, source storage.RecordID) int {
	t.Helper()
	rows, err := d.List(ctx, storage.CollectionSourceEmbedding, storage.ListQuery{
		Filters: storage.Filter{"source_id": source.String()},
	})
	require.NoError(t, err)
	return len(rows)
}

func TestEmbedNoteStoresVector(t *testing.T) {
	h, d, _, ctx := newTestHandlers(t)

	note, err := d.Create(ctx, storage.CollectionNote, map[string]any{
		"title":   "idea",
		"content": "vector databases are useful",
	})
	require.NoError(t, err)

	result, err := h.embedNote(ctx, map[string]any{"note_id": note.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, note.ID.String(), result["note_id"])

	stored, err := d.Get(ctx, note.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.Vector("embedding"))
}

func TestEmbedNoteRejectsEmptyContent(t *testing.T) {
	h, d, _, ctx := newTestHandlers(t)

	note, err := d.Create(ctx, storage.CollectionNote, map[string]any{
		"title":   "empty",
		"content": "   ",
	})
	require.NoError(t, err)

	_, err = h.embedNote(ctx, map[string]any{"note_id": note.ID.String()})
	assert.ErrorIs(t, err, storage.ErrValidation)
}

func TestEmbedNoteMissingArg(t *testing.T) {
	h, _, _, ctx := newTestHandlers(t)

	_, err := h.embedNote(ctx, map[string]any{})
	assert.ErrorIs(t, err, storage.ErrValidation)
}

func TestArgIDRejectsWrongCollection(t *testing.T) {
	h, _, _, ctx := newTestHandlers(t)

	_, err := h.embedNote(ctx, map[string]any{"note_id": "source:12"})
	assert.ErrorIs(t, err, storage.ErrValidation)

	_, err = h.embedNote(ctx, map[string]any{"note_id": "garbage"})
	assert.ErrorIs(t, err, storage.ErrMalformedID)
}

func TestEmbedSourceChunkReplacement(t *testing.T) {
	h, d, _, ctx := newTestHandlers(t)

	source, err := d.Create(ctx, storage.CollectionSource, map[string]any{
		"title":     "paper",
		"full_text": strings.Repeat("alpha beta gamma ", 10),
	})
	require.NoError(t, err)

	result, err := h.embedSource(ctx, map[string]any{"source_id": source.ID.String()})
	require.NoError(t, err)
	first := result["chunks"].(int)
	assert.Greater(t, first, 1)
	assert.Equal(t, first, countChunks(t, d, ctx, source.ID))

	// Shrinking the text must leave exactly the new chunk count, never
	// old plus new.
	_, err = d.Update(ctx, source.ID, map[string]any{"full_text": "short text"})
	require.NoError(t, err)

	result, err = h.embedSource(ctx, map[string]any{"source_id": source.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, 1, result["chunks"])
	assert.Equal(t, 1, countChunks(t, d, ctx, source.ID))
}

func TestEmbedSourceChunkOrderIsSequential(t *testing.T) {
	h, d, _, ctx := newTestHandlers(t)

	source, err := d.Create(ctx, storage.CollectionSource, map[string]any{
		"title":     "paper",
		"full_text": strings.Repeat("one two three four ", 8),
	})
	require.NoError(t, err)

	_, err = h.embedSource(ctx, map[string]any{"source_id": source.ID.String()})
	require.NoError(t, err)

	rows, err := d.List(ctx, storage.CollectionSourceEmbedding, storage.ListQuery{
		Filters: storage.Filter{"source_id": source.ID.String()},
		OrderBy: "chunk_order",
	})
	require.NoError(t, err)
	for i, rec := range rows {
		assert.Equal(t, int64(i), rec.Int("chunk_order"))
		assert.NotEmpty(t, rec.Vector("embedding"))
	}
}

func TestEmbedSourceProviderFailureKeepsOldChunks(t *testing.T) {
	h, d, provider, ctx := newTestHandlers(t)

	source, err := d.Create(ctx, storage.CollectionSource, map[string]any{
		"title":     "paper",
		"full_text": strings.Repeat("alpha beta gamma ", 10),
	})
	require.NoError(t, err)

	_, err = h.embedSource(ctx, map[string]any{"source_id": source.ID.String()})
	require.NoError(t, err)
	before := countChunks(t, d, ctx, source.ID)

	provider.err = errors.New("provider down")
	_, err = h.embedSource(ctx, map[string]any{"source_id": source.ID.String()})
	require.Error(t, err)
	assert.Equal(t, before, countChunks(t, d, ctx, source.ID))
}

func TestEmbedSourceRejectsEmptyText(t *testing.T) {
	h, d, _, ctx := newTestHandlers(t)

	source, err := d.Create(ctx, storage.CollectionSource, map[string]any{"title": "empty"})
	require.NoError(t, err)

	_, err = h.embedSource(ctx, map[string]any{"source_id": source.ID.String()})
	assert.ErrorIs(t, err, storage.ErrValidation)
}

func TestCreateInsight(t *testing.T) {
	h, d, _, ctx := newTestHandlers(t)

	source, err := d.Create(ctx, storage.CollectionSource, map[string]any{"title": "paper"})
	require.NoError(t, err)

	result, err := h.createInsight(ctx, map[string]any{
		"source_id":    source.ID.String(),
		"insight_type": "summary",
		"content":      "the paper argues for chunked retrieval",
	})
	require.NoError(t, err)

	id, err := storage.ParseID(result["insight_id"].(string))
	require.NoError(t, err)
	insight, err := d.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "summary", insight.String("insight_type"))
	assert.NotEmpty(t, insight.Vector("embedding"))
}

func TestCreateInsightRequiresExistingSource(t *testing.T) {
	h, _, _, ctx := newTestHandlers(t)

	_, err := h.createInsight(ctx, map[string]any{
		"source_id":    "source:999",
		"insight_type": "summary",
		"content":      "text",
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRebuildEmbeddings(t *testing.T) {
	h, d, _, ctx := newTestHandlers(t)

	_, err := d.Create(ctx, storage.CollectionNote, map[string]any{"title": "a", "content": "note body"})
	require.NoError(t, err)
	_, err = d.Create(ctx, storage.CollectionNote, map[string]any{"title": "b", "content": ""})
	require.NoError(t, err)
	source, err := d.Create(ctx, storage.CollectionSource, map[string]any{
		"title": "paper", "full_text": "source body",
	})
	require.NoError(t, err)
	_, err = d.Create(ctx, storage.CollectionSourceInsight, map[string]any{
		"source_id": source.ID.String(), "insight_type": "summary", "content": "insight body",
	})
	require.NoError(t, err)

	result, err := h.rebuildEmbeddings(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result["embedded"]) // one note, one insight
	assert.Equal(t, 1, result["sources"])
	assert.Equal(t, 1, result["skipped"])
	assert.Equal(t, 1, countChunks(t, d, ctx, source.ID))
}

func TestRegisterWiresAllCommands(t *testing.T) {
	r := queue.NewRegistry()
	Register(r, Deps{Driver: nil, Embedder: &fakeProvider{}, Log: logger.NewNopLogger()})

	for _, cmd := range []string{CmdEmbedNote, CmdEmbedInsight, CmdEmbedSource, CmdCreateInsight, CmdRebuildEmbeddings} {
		_, err := r.Lookup(Namespace, cmd)
		assert.NoError(t, err, cmd)
	}
}
