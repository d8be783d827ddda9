package queue

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-knowledgebase-be/internal/pkg/logger"
	"ai-knowledgebase-be/internal/storage"
	"ai-knowledgebase-be/internal/tenant"
)

func newTestWorker(t *testing.T, store IStore, registry *Registry) *Worker {
	t.Helper()
	return NewWorker(store, registry, nil, logger.NewNopLogger(), nil, WorkerConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	})
}

func tenantArgs(extra map[string]any) map[string]any {
	args := map[string]any{"namespace": "tenant-a", "user_id": "u1"}
	for k, v := range extra {
		args[k] = v
	}
	return args
}

func TestWorkerExecutesJob(t *testing.T) {
	s := newTestStore(t)
	r := NewRegistry()

	var gotScope tenant.Context
	r.Register("content", "embed_note", func(ctx context.Context, args map[string]any) (map[string]any, error) {
		gotScope, _ = tenant.FromContext(ctx)
		return map[string]any{"note_id": args["note_id"]}, nil
	})

	id := enqueueJob(t, s, "embed_note", tenantArgs(map[string]any{"note_id": "note:7"}))
	w := newTestWorker(t, s, r)
	w.drain(context.Background())

	job, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, job.Status)
	assert.Equal(t, "note:7", job.Result["note_id"])
	assert.Equal(t, "tenant-a", gotScope.Namespace)
	assert.Equal(t, "u1", gotScope.UserID)
}

func TestWorkerRetriesTransientFailure(t *testing.T) {
	s := newTestStore(t)
	r := NewRegistry()

	var calls atomic.Int32
	r.Register("content", "embed_note", func(ctx context.Context, args map[string]any) (map[string]any, error) {
		if calls.Add(1) < 3 {
			return nil, fmt.Errorf("%w: connection refused", storage.ErrUnavailable)
		}
		return map[string]any{"done": true}, nil
	})

	id := enqueueJob(t, s, "embed_note", tenantArgs(nil))
	w := newTestWorker(t, s, r)
	w.drain(context.Background())

	job, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, job.Status)
	assert.Equal(t, int32(3), calls.Load())
}

func TestWorkerExhaustsRetries(t *testing.T) {
	s := newTestStore(t)
	r := NewRegistry()

	var calls atomic.Int32
	r.Register("content", "embed_note", func(ctx context.Context, args map[string]any) (map[string]any, error) {
		calls.Add(1)
		return nil, errors.New("still down")
	})

	id := enqueueJob(t, s, "embed_note", tenantArgs(nil))
	w := newTestWorker(t, s, r)
	w.drain(context.Background())

	job, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, job.Status)
	assert.Contains(t, job.ErrorMessage, "still down")
	assert.Equal(t, int32(3), calls.Load())
}

func TestWorkerValidationFailureIsPermanent(t *testing.T) {
	s := newTestStore(t)
	r := NewRegistry()

	var calls atomic.Int32
	r.Register("content", "embed_note", func(ctx context.Context, args map[string]any) (map[string]any, error) {
		calls.Add(1)
		return nil, fmt.Errorf("%w: note has no content", storage.ErrValidation)
	})

	id := enqueueJob(t, s, "embed_note", tenantArgs(nil))
	w := newTestWorker(t, s, r)
	w.drain(context.Background())

	job, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, job.Status)
	assert.Contains(t, job.ErrorMessage, "note has no content")
	assert.Equal(t, int32(1), calls.Load())
}

func TestWorkerRejectsJobWithoutTenant(t *testing.T) {
	s := newTestStore(t)
	r := NewRegistry()
	r.Register("content", "embed_note", func(ctx context.Context, args map[string]any) (map[string]any, error) {
		t.Fatal("handler must not run without a tenant scope")
		return nil, nil
	})

	id := enqueueJob(t, s, "embed_note", map[string]any{"note_id": "note:7"})
	w := newTestWorker(t, s, r)
	w.drain(context.Background())

	job, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, job.Status)
	assert.Contains(t, job.ErrorMessage, "tenant namespace")
}

func TestWorkerUnknownCommandFails(t *testing.T) {
	s := newTestStore(t)

	id := enqueueJob(t, s, "no_such_command", tenantArgs(nil))
	w := newTestWorker(t, s, NewRegistry())
	w.drain(context.Background())

	job, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, job.Status)
	assert.Contains(t, job.ErrorMessage, "no handler")
}

func TestWorkerSurvivesHandlerPanic(t *testing.T) {
	s := newTestStore(t)
	r := NewRegistry()
	r.Register("content", "explode", func(ctx context.Context, args map[string]any) (map[string]any, error) {
		panic("boom")
	})
	r.Register("content", "embed_note", func(ctx context.Context, args map[string]any) (map[string]any, error) {
		return map[string]any{"ok": true}, nil
	})

	panicID := enqueueJob(t, s, "explode", tenantArgs(nil))
	okID := enqueueJob(t, s, "embed_note", tenantArgs(nil))

	w := newTestWorker(t, s, r)
	w.drain(context.Background())

	job, err := s.Get(context.Background(), panicID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, job.Status)
	assert.Contains(t, job.ErrorMessage, "panicked")

	job, err = s.Get(context.Background(), okID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, job.Status)
}

func TestWorkerWakesOnNudge(t *testing.T) {
	s := newTestStore(t)
	r := NewRegistry()

	done := make(chan struct{})
	r.Register("content", "embed_note", func(ctx context.Context, args map[string]any) (map[string]any, error) {
		close(done)
		return nil, nil
	})

	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	t.Cleanup(func() { pubsub.Close() })

	w := NewWorker(s, r, pubsub, logger.NewNopLogger(), nil, WorkerConfig{
		// Poll slowly so only the nudge can explain a prompt pickup.
		PollInterval:   time.Minute,
		InitialBackoff: time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// Let the worker finish its first empty drain and block on select.
	time.Sleep(50 * time.Millisecond)

	q := New(s, pubsub, logger.NewNopLogger())
	_, err := q.Submit(context.Background(), "content", "embed_note", tenantArgs(nil))
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not pick up the nudged job")
	}
}

func TestQueueSubmitAndStatus(t *testing.T) {
	s := newTestStore(t)
	q := New(s, nil, logger.NewNopLogger())
	ctx := context.Background()

	id, err := q.Submit(ctx, "content", "embed_note", tenantArgs(nil))
	require.NoError(t, err)

	job, err := q.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, job.Status)

	_, err = q.GetStatus(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	claimed, err := s.ClaimNext(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Complete(ctx, claimed.ID, map[string]any{"ok": true}))

	job, err = q.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, job.Status)

	// Terminal statuses are served from cache.
	again, err := q.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Same(t, job, again)
}
