package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cenkalti/backoff/v5"

	"ai-knowledgebase-be/internal/pkg/logger"
	"ai-knowledgebase-be/internal/storage"
	"ai-knowledgebase-be/internal/tenant"
)

// WorkerConfig tunes the claim loop. Zero values fall back to defaults.
type WorkerConfig struct {
	PollInterval     time.Duration
	RecoveryInterval time.Duration
	StuckTimeout     time.Duration
	MaxAttempts      uint
	InitialBackoff   time.Duration
	MaxBackoff       time.Duration
}

func (c *WorkerConfig) withDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.RecoveryInterval <= 0 {
		c.RecoveryInterval = time.Minute
	}
	if c.StuckTimeout <= 0 {
		c.StuckTimeout = 5 * time.Minute
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 5
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = time.Minute
	}
}

// INotifier receives job lifecycle transitions, e.g. for publishing over
// NATS. May be nil.
type INotifier interface {
	JobStarted(job *Job)
	JobCompleted(job *Job, result map[string]any)
	JobFailed(job *Job, errorMessage string)
}

// Worker drains the queue: claim, dispatch, record outcome, repeat.
// Handler failures are recorded on the job, never propagated; the loop
// only stops when its context does.
type Worker struct {
	store    IStore
	registry *Registry
	sub      message.Subscriber
	log      logger.ILogger
	notify   INotifier
	cfg      WorkerConfig
}

func NewWorker(store IStore, registry *Registry, sub message.Subscriber, log logger.ILogger, notify INotifier, cfg WorkerConfig) *Worker {
	cfg.withDefaults()
	return &Worker{
		store:    store,
		registry: registry,
		sub:      sub,
		log:      log,
		notify:   notify,
		cfg:      cfg,
	}
}

// Run blocks until ctx is cancelled. Jobs left processing by a previous
// crash are swept back to pending on startup and on every recovery tick.
func (w *Worker) Run(ctx context.Context) error {
	if n, err := w.store.RecoverStuck(ctx, w.cfg.StuckTimeout); err != nil {
		w.log.Error("worker", "startup recovery sweep failed", map[string]interface{}{"error": err.Error()})
	} else if n > 0 {
		w.log.Warn("worker", "recovered stuck jobs on startup", map[string]interface{}{"count": n})
	}

	var nudges <-chan *message.Message
	if w.sub != nil {
		ch, err := w.sub.Subscribe(ctx, NudgeTopic)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", NudgeTopic, err)
		}
		nudges = ch
	}

	poll := time.NewTicker(w.cfg.PollInterval)
	defer poll.Stop()
	recovery := time.NewTicker(w.cfg.RecoveryInterval)
	defer recovery.Stop()

	w.log.Info("worker", "worker started", map[string]interface{}{
		"poll_interval": w.cfg.PollInterval.String(),
		"stuck_timeout": w.cfg.StuckTimeout.String(),
	})

	for {
		w.drain(ctx)

		select {
		case <-ctx.Done():
			w.log.Info("worker", "worker stopping", nil)
			return ctx.Err()
		case <-poll.C:
		case msg, ok := <-nudges:
			if ok {
				msg.Ack()
			}
		case <-recovery.C:
			if n, err := w.store.RecoverStuck(ctx, w.cfg.StuckTimeout); err != nil {
				w.log.Error("worker", "recovery sweep failed", map[string]interface{}{"error": err.Error()})
			} else if n > 0 {
				w.log.Warn("worker", "recovered stuck jobs", map[string]interface{}{"count": n})
			}
		}
	}
}

// drain claims and executes until the queue is empty, so a burst of
// submissions is worked through without waiting on the poll timer.
func (w *Worker) drain(ctx context.Context) {
	for ctx.Err() == nil {
		job, err := w.store.ClaimNext(ctx)
		if err != nil {
			w.log.Error("worker", "claim failed", map[string]interface{}{"error": err.Error()})
			return
		}
		if job == nil {
			return
		}
		w.execute(ctx, job)
	}
}

func (w *Worker) execute(ctx context.Context, job *Job) {
	w.log.Info("worker", "job claimed", map[string]interface{}{
		"job_id": job.ID, "namespace": job.Namespace, "command": job.Command,
	})
	if w.notify != nil {
		w.notify.JobStarted(job)
	}

	result, err := w.runHandler(ctx, job)
	if err != nil {
		if ferr := w.store.Fail(ctx, job.ID, err.Error()); ferr != nil {
			w.log.Error("worker", "failed to record job failure", map[string]interface{}{
				"job_id": job.ID, "error": ferr.Error(),
			})
		}
		w.log.Error("worker", "job failed", map[string]interface{}{
			"job_id": job.ID, "command": job.Command, "error": err.Error(),
		})
		if w.notify != nil {
			w.notify.JobFailed(job, err.Error())
		}
		return
	}

	if cerr := w.store.Complete(ctx, job.ID, result); cerr != nil {
		w.log.Error("worker", "failed to record job completion", map[string]interface{}{
			"job_id": job.ID, "error": cerr.Error(),
		})
		return
	}
	w.log.Info("worker", "job completed", map[string]interface{}{
		"job_id": job.ID, "command": job.Command,
	})
	if w.notify != nil {
		w.notify.JobCompleted(job, result)
	}
}

// runHandler dispatches with retries. Validation failures are permanent;
// everything else retries with exponential backoff and jitter up to
// MaxAttempts.
func (w *Worker) runHandler(ctx context.Context, job *Job) (map[string]any, error) {
	handler, err := w.registry.Lookup(job.Namespace, job.Command)
	if err != nil {
		return nil, err
	}
	scope, err := tenantScope(job.Args)
	if err != nil {
		return nil, err
	}
	jobCtx := tenant.NewContext(ctx, scope)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.cfg.InitialBackoff
	b.MaxInterval = w.cfg.MaxBackoff

	attempt := 0
	op := func() (map[string]any, error) {
		attempt++
		result, err := safeInvoke(jobCtx, handler, job.Args)
		switch {
		case err == nil:
			return result, nil
		case errors.Is(err, storage.ErrValidation), errors.Is(err, storage.ErrMalformedID):
			return nil, backoff.Permanent(err)
		default:
			w.log.Warn("worker", "job attempt failed", map[string]interface{}{
				"job_id": job.ID, "attempt": attempt, "error": err.Error(),
			})
			return nil, err
		}
	}
	return backoff.Retry(jobCtx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(w.cfg.MaxAttempts))
}

// safeInvoke turns a handler panic into a permanent failure so one bad
// job cannot take the worker down.
func safeInvoke(ctx context.Context, handler Handler, args map[string]any) (result map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: handler panicked: %v", storage.ErrValidation, r)
		}
	}()
	return handler(ctx, args)
}

// tenantScope rebuilds the tenant context a job must carry in its args.
// A job without one can never run and fails permanently.
func tenantScope(args map[string]any) (tenant.Context, error) {
	ns, _ := args["namespace"].(string)
	if ns == "" {
		return tenant.Context{}, fmt.Errorf("%w: job args missing tenant namespace", storage.ErrValidation)
	}
	user, _ := args["user_id"].(string)
	return tenant.Context{Namespace: ns, UserID: user}, nil
}
