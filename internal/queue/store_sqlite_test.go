package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-knowledgebase-be/internal/storage"
	"ai-knowledgebase-be/internal/storage/sqlite"
)

func newTestStore(t *testing.T) *SqliteStore {
	t.Helper()
	d, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return NewSqliteStore(d.DB())
}

func enqueueJob(t *testing.T, s IStore, command string, args map[string]any) string {
	t.Helper()
	job := &Job{
		ID:        uuid.NewString(),
		Namespace: "content",
		Command:   command,
		Args:      args,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.Enqueue(context.Background(), job))
	return job.ID
}

func TestJobLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id := enqueueJob(t, s, "embed_note", map[string]any{"namespace": "tenant-a", "note_id": "note:1"})

	job, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, job.Status)
	assert.Nil(t, job.StartedAt)
	assert.Equal(t, "note:1", job.Args["note_id"])

	claimed, err := s.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, id, claimed.ID)
	assert.Equal(t, StatusProcessing, claimed.Status)
	require.NotNil(t, claimed.StartedAt)

	require.NoError(t, s.Complete(ctx, id, map[string]any{"chunks": float64(3)}))

	job, err = s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, job.Status)
	require.NotNil(t, job.CompletedAt)
	assert.Equal(t, float64(3), job.Result["chunks"])
}

func TestClaimNextEmpty(t *testing.T) {
	s := newTestStore(t)

	job, err := s.ClaimNext(context.Background())
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestClaimOrderIsFIFO(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 100_000_000, time.UTC)
	var want []string
	for i := 0; i < 3; i++ {
		job := &Job{
			ID:        uuid.NewString(),
			Namespace: "content",
			Command:   "embed_note",
			Status:    StatusPending,
			CreatedAt: base.Add(time.Duration(i) * time.Millisecond),
		}
		require.NoError(t, s.Enqueue(ctx, job))
		want = append(want, job.ID)
	}

	for _, id := range want {
		claimed, err := s.ClaimNext(ctx)
		require.NoError(t, err)
		require.NotNil(t, claimed)
		assert.Equal(t, id, claimed.ID)
	}
}

func TestClaimIsExclusive(t *testing.T) {
	s := newTestStore(t)
	enqueueJob(t, s, "embed_note", nil)

	const claimers = 8
	var wg sync.WaitGroup
	claims := make(chan *Job, claimers)
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job, err := s.ClaimNext(context.Background())
			assert.NoError(t, err)
			if job != nil {
				claims <- job
			}
		}()
	}
	wg.Wait()
	close(claims)

	assert.Len(t, claims, 1)
}

func TestCompleteRequiresProcessing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id := enqueueJob(t, s, "embed_note", nil)

	// Still pending.
	err := s.Complete(ctx, id, nil)
	assert.ErrorIs(t, err, storage.ErrValidation)

	_, err = s.ClaimNext(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Fail(ctx, id, "boom"))

	// Already terminal.
	err = s.Complete(ctx, id, nil)
	assert.ErrorIs(t, err, storage.ErrValidation)
	err = s.Fail(ctx, id, "again")
	assert.ErrorIs(t, err, storage.ErrValidation)

	job, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, job.Status)
	assert.Equal(t, "boom", job.ErrorMessage)
}

func TestFinishUnknownJob(t *testing.T) {
	s := newTestStore(t)

	err := s.Complete(context.Background(), "no-such-job", nil)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRecoverStuck(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stuckID := enqueueJob(t, s, "embed_note", nil)
	_, err := s.ClaimNext(ctx)
	require.NoError(t, err)

	// Backdate the claim so it looks abandoned.
	_, err = s.db.ExecContext(ctx,
		`UPDATE command_queue SET started_at = ? WHERE job_id = ?`,
		formatJobTime(time.Now().UTC().Add(-time.Hour)), stuckID)
	require.NoError(t, err)

	freshID := enqueueJob(t, s, "embed_note", nil)
	_, err = s.ClaimNext(ctx)
	require.NoError(t, err)

	n, err := s.RecoverStuck(ctx, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stuck, err := s.Get(ctx, stuckID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stuck.Status)
	assert.Nil(t, stuck.StartedAt)

	fresh, err := s.Get(ctx, freshID)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, fresh.Status)
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		enqueueJob(t, s, "embed_note", nil)
	}

	claimed, err := s.ClaimNext(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Fail(ctx, claimed.ID, "x"))
	claimed, err = s.ClaimNext(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Complete(ctx, claimed.ID, nil))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Pending: 1, Completed: 1, Failed: 1}, stats)
}
