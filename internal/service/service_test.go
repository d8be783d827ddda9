package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-knowledgebase-be/internal/dto"
	"ai-knowledgebase-be/internal/executor"
	"ai-knowledgebase-be/internal/pkg/logger"
	"ai-knowledgebase-be/internal/storage"
	"ai-knowledgebase-be/internal/storage/sqlite"
	"ai-knowledgebase-be/internal/tenant"
)

type execCall struct {
	command string
	args    map[string]any
}

type fakeExecutor struct {
	calls        []execCall
	syncTimeouts []time.Duration
	err          error
}

func (f *fakeExecutor) Execute(ctx context.Context, namespace, command string, args map[string]any) (executor.Token, error) {
	f.calls = append(f.calls, execCall{command: command, args: args})
	if f.err != nil {
		return executor.Token{}, f.err
	}
	return executor.Token{Mode: executor.ModeDirect, Status: executor.StatusCompleted}, nil
}

func (f *fakeExecutor) ExecuteSync(ctx context.Context, namespace, command string, args map[string]any, timeout time.Duration) (executor.Token, error) {
	f.syncTimeouts = append(f.syncTimeouts, timeout)
	return f.Execute(ctx, namespace, command, args)
}

type fakeFiles struct {
	deleted []string
	err     error
}

func (f *fakeFiles) Exists(ctx context.Context, path string) (bool, error) { return true, nil }
func (f *fakeFiles) Read(ctx context.Context, path string) ([]byte, error) { return nil, nil }
func (f *fakeFiles) Delete(ctx context.Context, path string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.deleted = append(f.deleted, path)
	return true, nil
}

type testEnv struct {
	driver    storage.IDriver
	exec      *fakeExecutor
	files     *fakeFiles
	notes     INoteService
	sources   ISourceService
	notebooks INotebookService
	ctx       context.Context
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	d, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	env := &testEnv{
		driver: d,
		exec:   &fakeExecutor{},
		files:  &fakeFiles{},
		ctx:    tenant.NewContext(context.Background(), tenant.Context{Namespace: "tenant-a", UserID: "u1"}),
	}
	log := logger.NewNopLogger()
	env.notes = NewNoteService(d, env.exec, log)
	env.sources = NewSourceService(d, env.exec, env.files, log)
	env.notebooks = NewNotebookService(d, env.sources, env.notes, log)
	return env
}

func (e *testEnv) createNotebook(t *testing.T, name string) *dto.NotebookResponse {
	t.Helper()
	nb, err := e.notebooks.Create(e.ctx, &dto.CreateNotebookRequest{Name: name})
	require.NoError(t, err)
	return nb
}

func (e *testEnv) createSource(t *testing.T, notebookId, title, fullText string) *dto.SourceResponse {
	t.Helper()
	src, err := e.sources.Create(e.ctx, &dto.CreateSourceRequest{
		NotebookId: notebookId,
		Title:      title,
		FullText:   fullText,
	})
	require.NoError(t, err)
	return src
}

func TestNotebookCounts(t *testing.T) {
	env := newTestEnv(t)

	nb := env.createNotebook(t, "research")
	env.createSource(t, nb.Id, "paper", "")
	env.createSource(t, nb.Id, "article", "")
	_, err := env.notes.Create(env.ctx, &dto.CreateNoteRequest{NotebookId: nb.Id, Title: "summary"})
	require.NoError(t, err)

	all, err := env.notebooks.GetAll(env.ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(2), all[0].SourceCount)
	assert.Equal(t, int64(1), all[0].NoteCount)

	shown, err := env.notebooks.Show(env.ctx, nb.Id)
	require.NoError(t, err)
	assert.Equal(t, int64(2), shown.SourceCount)
	assert.Equal(t, int64(1), shown.NoteCount)
}

func TestNotebookDeleteKeepsSharedSources(t *testing.T) {
	env := newTestEnv(t)

	nb1 := env.createNotebook(t, "one")
	nb2 := env.createNotebook(t, "two")
	exclusive := env.createSource(t, nb1.Id, "only in one", "")
	shared := env.createSource(t, nb1.Id, "in both", "")
	require.NoError(t, env.sources.Link(env.ctx, &dto.LinkSourceRequest{SourceId: shared.Id, NotebookId: nb2.Id}))
	note, err := env.notes.Create(env.ctx, &dto.CreateNoteRequest{NotebookId: nb1.Id, Title: "scratch"})
	require.NoError(t, err)

	err = env.notebooks.Delete(env.ctx, &dto.DeleteNotebookRequest{Id: nb1.Id, DeleteExclusiveSources: true})
	require.NoError(t, err)

	_, err = env.notebooks.Show(env.ctx, nb1.Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = env.notes.Show(env.ctx, note.Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = env.sources.Show(env.ctx, exclusive.Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// The shared source survives and stays linked to the other notebook.
	kept, err := env.sources.ListByNotebook(env.ctx, nb2.Id)
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, shared.Id, kept[0].Id)
}

func TestNotebookDeleteWithoutExclusiveFlag(t *testing.T) {
	env := newTestEnv(t)

	nb := env.createNotebook(t, "solo")
	src := env.createSource(t, nb.Id, "orphan to be", "")

	err := env.notebooks.Delete(env.ctx, &dto.DeleteNotebookRequest{Id: nb.Id})
	require.NoError(t, err)

	// The source is unlinked but kept.
	shown, err := env.sources.Show(env.ctx, src.Id)
	require.NoError(t, err)
	assert.Equal(t, "orphan to be", shown.Title)
}

func TestNotebookDeletePreview(t *testing.T) {
	env := newTestEnv(t)

	nb1 := env.createNotebook(t, "one")
	nb2 := env.createNotebook(t, "two")
	env.createSource(t, nb1.Id, "exclusive", "")
	shared := env.createSource(t, nb1.Id, "shared", "")
	require.NoError(t, env.sources.Link(env.ctx, &dto.LinkSourceRequest{SourceId: shared.Id, NotebookId: nb2.Id}))
	_, err := env.notes.Create(env.ctx, &dto.CreateNoteRequest{NotebookId: nb1.Id, Title: "n"})
	require.NoError(t, err)

	preview, err := env.notebooks.DeletePreview(env.ctx, nb1.Id)
	require.NoError(t, err)
	assert.Equal(t, 1, preview.Notes)
	assert.Equal(t, 1, preview.ExclusiveSources)
	assert.Equal(t, 1, preview.LinkedSources)
}

func TestSourceCreateSchedulesEmbedding(t *testing.T) {
	env := newTestEnv(t)

	nb := env.createNotebook(t, "nb")
	src := env.createSource(t, nb.Id, "with text", "some body to embed")
	require.Len(t, env.exec.calls, 1)
	assert.Equal(t, "embed_source", env.exec.calls[0].command)
	assert.Equal(t, src.Id, env.exec.calls[0].args["source_id"])
	assert.NotEmpty(t, src.EmbedJob)

	// No text, nothing to embed.
	empty := env.createSource(t, nb.Id, "empty", "")
	assert.Len(t, env.exec.calls, 1)
	assert.Empty(t, empty.EmbedJob)
}

func TestSourceCreateSurvivesSchedulingFailure(t *testing.T) {
	env := newTestEnv(t)
	env.exec.err = errors.New("queue down")

	nb := env.createNotebook(t, "nb")
	src := env.createSource(t, nb.Id, "still saved", "text")

	shown, err := env.sources.Show(env.ctx, src.Id)
	require.NoError(t, err)
	assert.Equal(t, "still saved", shown.Title)
}

func TestSourceUpdateReembedsOnlyOnTextChange(t *testing.T) {
	env := newTestEnv(t)

	nb := env.createNotebook(t, "nb")
	src := env.createSource(t, nb.Id, "v1", "original text")
	require.Len(t, env.exec.calls, 1)

	_, err := env.sources.Update(env.ctx, &dto.UpdateSourceRequest{Id: src.Id, Title: "v2", FullText: "original text"})
	require.NoError(t, err)
	assert.Len(t, env.exec.calls, 1)

	_, err = env.sources.Update(env.ctx, &dto.UpdateSourceRequest{Id: src.Id, Title: "v3", FullText: "changed text"})
	require.NoError(t, err)
	assert.Len(t, env.exec.calls, 2)
}

func TestSourceDeleteCascades(t *testing.T) {
	env := newTestEnv(t)

	nb := env.createNotebook(t, "nb")
	src, err := env.sources.Create(env.ctx, &dto.CreateSourceRequest{
		NotebookId:    nb.Id,
		Title:         "doc",
		AssetFilePath: "uploads/doc.pdf",
	})
	require.NoError(t, err)
	srcID, err := storage.ParseID(src.Id)
	require.NoError(t, err)

	_, err = env.driver.Create(env.ctx, storage.CollectionSourceEmbedding, map[string]any{
		"source_id": src.Id, "chunk_order": 0, "content": "chunk", "embedding": []float32{1, 0},
	})
	require.NoError(t, err)
	_, err = env.driver.Create(env.ctx, storage.CollectionSourceInsight, map[string]any{
		"source_id": src.Id, "insight_type": "summary", "content": "short",
	})
	require.NoError(t, err)

	require.NoError(t, env.sources.Delete(env.ctx, src.Id))

	for _, collection := range []string{storage.CollectionSourceEmbedding, storage.CollectionSourceInsight} {
		rows, err := env.driver.List(env.ctx, collection, storage.ListQuery{
			Filters: storage.Filter{"source_id": src.Id},
		})
		require.NoError(t, err)
		assert.Empty(t, rows, collection)
	}
	_, err = env.driver.Get(env.ctx, srcID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, []string{"uploads/doc.pdf"}, env.files.deleted)
}

func TestSourceDeleteSwallowsFileError(t *testing.T) {
	env := newTestEnv(t)
	env.files.err = errors.New("disk detached")

	nb := env.createNotebook(t, "nb")
	src, err := env.sources.Create(env.ctx, &dto.CreateSourceRequest{
		NotebookId:    nb.Id,
		Title:         "doc",
		AssetFilePath: "uploads/gone.pdf",
	})
	require.NoError(t, err)

	require.NoError(t, env.sources.Delete(env.ctx, src.Id))
	_, err = env.sources.Show(env.ctx, src.Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestNoteCreateDefaultsType(t *testing.T) {
	env := newTestEnv(t)

	nb := env.createNotebook(t, "nb")
	note, err := env.notes.Create(env.ctx, &dto.CreateNoteRequest{
		NotebookId: nb.Id,
		Title:      "thought",
		Content:    "worth keeping",
	})
	require.NoError(t, err)
	assert.Equal(t, "human", note.NoteType)

	require.Len(t, env.exec.calls, 1)
	assert.Equal(t, "embed_note", env.exec.calls[0].command)
}

func TestNoteUpdateReembedsOnlyOnContentChange(t *testing.T) {
	env := newTestEnv(t)

	nb := env.createNotebook(t, "nb")
	note, err := env.notes.Create(env.ctx, &dto.CreateNoteRequest{NotebookId: nb.Id, Title: "t", Content: "a"})
	require.NoError(t, err)
	require.Len(t, env.exec.calls, 1)

	_, err = env.notes.Update(env.ctx, &dto.UpdateNoteRequest{Id: note.Id, Title: "renamed", Content: "a"})
	require.NoError(t, err)
	assert.Len(t, env.exec.calls, 1)

	_, err = env.notes.Update(env.ctx, &dto.UpdateNoteRequest{Id: note.Id, Title: "renamed", Content: "b"})
	require.NoError(t, err)
	assert.Len(t, env.exec.calls, 2)
}

func TestServiceRejectsForeignIDs(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.notebooks.Show(env.ctx, "source:1")
	assert.ErrorIs(t, err, storage.ErrValidation)

	_, err = env.notebooks.Show(env.ctx, "garbage")
	assert.ErrorIs(t, err, storage.ErrMalformedID)
}
