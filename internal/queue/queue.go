// Package queue implements the durable background command queue: job
// submission, atomic FIFO claim, terminal-state recording and stuck-job
// recovery, with at-least-once delivery to registered handlers.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"ai-knowledgebase-be/internal/pkg/logger"
	"ai-knowledgebase-be/internal/storage"
)

// NudgeTopic carries a wake-up signal to the worker on every submission
// so an idle worker does not wait out its poll interval.
const NudgeTopic = "jobs.enqueued"

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is one unit of deferred work. Namespace groups commands by module;
// the tenant scope travels inside Args and is re-established by the
// worker before the handler runs.
type Job struct {
	ID           string
	Namespace    string
	Command      string
	Args         map[string]any
	Status       Status
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
	Result       map[string]any
	ErrorMessage string
}

// Stats is a point-in-time census of the queue.
type Stats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
}

// IStore is the persistence contract behind the queue, one implementation
// per storage backend. ClaimNext must be atomic: concurrent callers never
// receive the same job.
type IStore interface {
	Enqueue(ctx context.Context, job *Job) error
	// ClaimNext returns the oldest pending job marked processing, or
	// (nil, nil) when the queue is empty.
	ClaimNext(ctx context.Context) (*Job, error)
	// Complete and Fail reject jobs that are not processing.
	Complete(ctx context.Context, jobID string, result map[string]any) error
	Fail(ctx context.Context, jobID string, errorMessage string) error
	// RecoverStuck resets jobs processing longer than olderThan back to
	// pending, clearing their start timestamp. Returns how many.
	RecoverStuck(ctx context.Context, olderThan time.Duration) (int, error)
	Get(ctx context.Context, jobID string) (*Job, error)
	Stats(ctx context.Context) (Stats, error)
}

// Queue is the submission-side facade. Terminal statuses are immutable,
// so lookups for finished jobs are served from a short-lived cache.
type Queue struct {
	store  IStore
	pub    message.Publisher
	log    logger.ILogger
	status *gocache.Cache
}

func New(store IStore, pub message.Publisher, log logger.ILogger) *Queue {
	return &Queue{
		store:  store,
		pub:    pub,
		log:    log,
		status: gocache.New(5*time.Minute, 10*time.Minute),
	}
}

// Submit enqueues a command and returns its fresh job id immediately.
// Execution happens later in the worker.
func (q *Queue) Submit(ctx context.Context, namespace, command string, args map[string]any) (string, error) {
	job := &Job{
		ID:        uuid.NewString(),
		Namespace: namespace,
		Command:   command,
		Args:      args,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := q.store.Enqueue(ctx, job); err != nil {
		return "", err
	}

	if q.pub != nil {
		msg := message.NewMessage(watermill.NewUUID(), []byte(job.ID))
		if err := q.pub.Publish(NudgeTopic, msg); err != nil {
			// The worker's poll timer covers a lost nudge.
			q.log.Warn("queue", "failed to publish enqueue nudge", map[string]interface{}{
				"job_id": job.ID, "error": err.Error(),
			})
		}
	}
	return job.ID, nil
}

// GetStatus returns a status snapshot, or ErrNotFound.
func (q *Queue) GetStatus(ctx context.Context, jobID string) (*Job, error) {
	if cached, ok := q.status.Get(jobID); ok {
		return cached.(*Job), nil
	}
	job, err := q.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		q.status.SetDefault(jobID, job)
	}
	return job, nil
}

func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	return q.store.Stats(ctx)
}

// encodeArgs and decodeArgs are shared by both stores; the payload is one
// JSON object per row.
func encodeArgs(args map[string]any) (string, error) {
	if args == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("%w: %v", storage.ErrValidation, err)
	}
	return string(raw), nil
}

func decodeArgs(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil
	}
	return args
}
