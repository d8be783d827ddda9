// Package executor decides how deferred work runs: inline in the caller
// or through the command queue. Callers get back an opaque token either
// way and never branch on the active strategy.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ai-knowledgebase-be/internal/pkg/logger"
	"ai-knowledgebase-be/internal/queue"
	"ai-knowledgebase-be/internal/storage"
	"ai-knowledgebase-be/internal/tenant"
)

const (
	ModeDirect = "direct"
	ModeQueued = "queued"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// Token tracks one submitted command. For the queued strategy JobID can
// be polled; for the direct strategy Status already holds the outcome.
type Token struct {
	Mode   string `json:"mode"`
	Status string `json:"status"`
	JobID  string `json:"job_id,omitempty"`
}

func (t Token) String() string {
	if t.JobID != "" {
		return t.Mode + ":" + t.Status + ":" + t.JobID
	}
	return t.Mode + ":" + t.Status
}

type IExecutor interface {
	Execute(ctx context.Context, namespace, command string, args map[string]any) (Token, error)
	// ExecuteSync runs the handler inline under a caller supplied
	// deadline and waits for the outcome, regardless of the strategy
	// used for Execute.
	ExecuteSync(ctx context.Context, namespace, command string, args map[string]any, timeout time.Duration) (Token, error)
}

// DirectExecutor runs the registered handler inline under a bounded
// deadline, for deployments without a separate worker process.
type DirectExecutor struct {
	registry *queue.Registry
	timeout  time.Duration
	log      logger.ILogger
}

func NewDirect(registry *queue.Registry, timeout time.Duration, log logger.ILogger) *DirectExecutor {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &DirectExecutor{registry: registry, timeout: timeout, log: log}
}

func (e *DirectExecutor) Execute(ctx context.Context, namespace, command string, args map[string]any) (Token, error) {
	return e.run(ctx, namespace, command, args, e.timeout)
}

// ExecuteSync overrides the configured deadline with the caller's. A
// non-positive timeout falls back to the configured one.
func (e *DirectExecutor) ExecuteSync(ctx context.Context, namespace, command string, args map[string]any, timeout time.Duration) (Token, error) {
	if timeout <= 0 {
		timeout = e.timeout
	}
	return e.run(ctx, namespace, command, args, timeout)
}

func (e *DirectExecutor) run(ctx context.Context, namespace, command string, args map[string]any, timeout time.Duration) (Token, error) {
	handler, err := e.registry.Lookup(namespace, command)
	if err != nil {
		return Token{}, err
	}
	if _, ok := tenant.FromContext(ctx); !ok {
		return Token{}, fmt.Errorf("%w: %s/%s", storage.ErrTenantScope, namespace, command)
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := handler(runCtx, args)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %s/%s exceeded %s", storage.ErrTimeout, namespace, command, timeout)
		}
		e.log.Error("executor", "inline command failed", map[string]interface{}{
			"namespace": namespace, "command": command, "error": err.Error(),
		})
		return Token{Mode: ModeDirect, Status: StatusFailed}, err
	}

	status := StatusCompleted
	if skipped, _ := result["skipped"].(bool); skipped {
		status = StatusSkipped
	}
	return Token{Mode: ModeDirect, Status: status}, nil
}

// QueuedExecutor submits a job and returns immediately. The tenant scope
// is copied from ctx into the job args because context values do not
// survive the queue boundary.
type QueuedExecutor struct {
	queue *queue.Queue
	sync  *DirectExecutor
}

func NewQueued(q *queue.Queue, sync *DirectExecutor) *QueuedExecutor {
	return &QueuedExecutor{queue: q, sync: sync}
}

func (e *QueuedExecutor) Execute(ctx context.Context, namespace, command string, args map[string]any) (Token, error) {
	scope, ok := tenant.FromContext(ctx)
	if !ok {
		return Token{}, fmt.Errorf("%w: %s/%s", storage.ErrTenantScope, namespace, command)
	}

	jobArgs := make(map[string]any, len(args)+2)
	for k, v := range args {
		jobArgs[k] = v
	}
	jobArgs["namespace"] = scope.Namespace
	if scope.UserID != "" {
		jobArgs["user_id"] = scope.UserID
	}

	jobID, err := e.queue.Submit(ctx, namespace, command, jobArgs)
	if err != nil {
		return Token{}, err
	}
	return Token{Mode: ModeQueued, Status: StatusPending, JobID: jobID}, nil
}

// ExecuteSync bypasses the queue so callers that need the result now do
// not have to poll a job id.
func (e *QueuedExecutor) ExecuteSync(ctx context.Context, namespace, command string, args map[string]any, timeout time.Duration) (Token, error) {
	return e.sync.ExecuteSync(ctx, namespace, command, args, timeout)
}

// ForBackend picks the deployment-wide strategy. The single-file backend
// runs embedded without a worker, so it executes inline; the relational
// backend defers to the worker process.
func ForBackend(backend string, direct *DirectExecutor, queued *QueuedExecutor) IExecutor {
	if backend == "sqlite" {
		return direct
	}
	return queued
}

var (
	_ IExecutor = (*DirectExecutor)(nil)
	_ IExecutor = (*QueuedExecutor)(nil)
)
