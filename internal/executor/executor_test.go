package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-knowledgebase-be/internal/pkg/logger"
	"ai-knowledgebase-be/internal/queue"
	"ai-knowledgebase-be/internal/storage"
	"ai-knowledgebase-be/internal/tenant"
)

func scopedCtx() context.Context {
	return tenant.NewContext(context.Background(), tenant.Context{Namespace: "tenant-a", UserID: "u1"})
}

func TestDirectExecutesInline(t *testing.T) {
	r := queue.NewRegistry()
	r.Register("content", "embed_note", func(ctx context.Context, args map[string]any) (map[string]any, error) {
		return map[string]any{"chunks": 2}, nil
	})
	e := NewDirect(r, time.Second, logger.NewNopLogger())

	token, err := e.Execute(scopedCtx(), "content", "embed_note", nil)
	require.NoError(t, err)
	assert.Equal(t, ModeDirect, token.Mode)
	assert.Equal(t, StatusCompleted, token.Status)
	assert.Empty(t, token.JobID)
}

func TestDirectReportsSkip(t *testing.T) {
	r := queue.NewRegistry()
	r.Register("content", "embed_note", func(ctx context.Context, args map[string]any) (map[string]any, error) {
		return map[string]any{"skipped": true}, nil
	})
	e := NewDirect(r, time.Second, logger.NewNopLogger())

	token, err := e.Execute(scopedCtx(), "content", "embed_note", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, token.Status)
}

func TestDirectSurfacesFailure(t *testing.T) {
	r := queue.NewRegistry()
	r.Register("content", "embed_note", func(ctx context.Context, args map[string]any) (map[string]any, error) {
		return nil, errors.New("provider down")
	})
	e := NewDirect(r, time.Second, logger.NewNopLogger())

	token, err := e.Execute(scopedCtx(), "content", "embed_note", nil)
	require.Error(t, err)
	assert.Equal(t, StatusFailed, token.Status)
}

func TestDirectEnforcesTimeout(t *testing.T) {
	r := queue.NewRegistry()
	r.Register("content", "embed_note", func(ctx context.Context, args map[string]any) (map[string]any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	e := NewDirect(r, 10*time.Millisecond, logger.NewNopLogger())

	_, err := e.Execute(scopedCtx(), "content", "embed_note", nil)
	assert.ErrorIs(t, err, storage.ErrTimeout)
}

func TestDirectRequiresTenantScope(t *testing.T) {
	r := queue.NewRegistry()
	r.Register("content", "embed_note", func(ctx context.Context, args map[string]any) (map[string]any, error) {
		return nil, nil
	})
	e := NewDirect(r, time.Second, logger.NewNopLogger())

	_, err := e.Execute(context.Background(), "content", "embed_note", nil)
	assert.ErrorIs(t, err, storage.ErrTenantScope)
}

type captureStore struct {
	queue.IStore
	enqueued *queue.Job
}

func (c *captureStore) Enqueue(ctx context.Context, job *queue.Job) error {
	c.enqueued = job
	return nil
}

func TestQueuedCarriesTenantIntoArgs(t *testing.T) {
	store := &captureStore{}
	q := queue.New(store, nil, logger.NewNopLogger())
	e := NewQueued(q, nil)

	token, err := e.Execute(scopedCtx(), "content", "embed_note", map[string]any{"note_id": "note:3"})
	require.NoError(t, err)
	assert.Equal(t, ModeQueued, token.Mode)
	assert.Equal(t, StatusPending, token.Status)
	assert.NotEmpty(t, token.JobID)

	require.NotNil(t, store.enqueued)
	assert.Equal(t, "tenant-a", store.enqueued.Args["namespace"])
	assert.Equal(t, "u1", store.enqueued.Args["user_id"])
	assert.Equal(t, "note:3", store.enqueued.Args["note_id"])
}

func TestQueuedRequiresTenantScope(t *testing.T) {
	e := NewQueued(queue.New(&captureStore{}, nil, logger.NewNopLogger()), nil)

	_, err := e.Execute(context.Background(), "content", "embed_note", nil)
	assert.ErrorIs(t, err, storage.ErrTenantScope)
}

func TestExecuteSyncHonorsCallerTimeout(t *testing.T) {
	r := queue.NewRegistry()
	r.Register("content", "rebuild_embeddings", func(ctx context.Context, args map[string]any) (map[string]any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	// The configured deadline is generous; the caller's is not.
	e := NewDirect(r, time.Minute, logger.NewNopLogger())

	start := time.Now()
	_, err := e.ExecuteSync(scopedCtx(), "content", "rebuild_embeddings", nil, 10*time.Millisecond)
	assert.ErrorIs(t, err, storage.ErrTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestExecuteSyncDefaultsToConfiguredTimeout(t *testing.T) {
	r := queue.NewRegistry()
	r.Register("content", "embed_note", func(ctx context.Context, args map[string]any) (map[string]any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	e := NewDirect(r, 10*time.Millisecond, logger.NewNopLogger())

	_, err := e.ExecuteSync(scopedCtx(), "content", "embed_note", nil, 0)
	assert.ErrorIs(t, err, storage.ErrTimeout)
}

func TestQueuedExecuteSyncRunsInline(t *testing.T) {
	r := queue.NewRegistry()
	r.Register("content", "embed_note", func(ctx context.Context, args map[string]any) (map[string]any, error) {
		return map[string]any{"chunks": 1}, nil
	})
	direct := NewDirect(r, time.Second, logger.NewNopLogger())
	store := &captureStore{}
	e := NewQueued(queue.New(store, nil, logger.NewNopLogger()), direct)

	token, err := e.ExecuteSync(scopedCtx(), "content", "embed_note", nil, time.Second)
	require.NoError(t, err)
	assert.Equal(t, ModeDirect, token.Mode)
	assert.Equal(t, StatusCompleted, token.Status)
	assert.Nil(t, store.enqueued)
}

func TestForBackend(t *testing.T) {
	direct := NewDirect(queue.NewRegistry(), time.Second, logger.NewNopLogger())
	queued := NewQueued(queue.New(&captureStore{}, nil, logger.NewNopLogger()), direct)

	assert.Same(t, direct, ForBackend("sqlite", direct, queued).(*DirectExecutor))
	assert.Same(t, queued, ForBackend("postgres", direct, queued).(*QueuedExecutor))
}
