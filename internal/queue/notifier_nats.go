package queue

import (
	"context"
	"time"

	"ai-knowledgebase-be/internal/pkg/logger"
	"ai-knowledgebase-be/pkg/events"
	"ai-knowledgebase-be/pkg/nats"
)

// NatsNotifier publishes job lifecycle transitions as bus events.
// Publish failures are logged and swallowed; the queue never depends on
// the bus being up.
type NatsNotifier struct {
	pub *nats.Publisher
	log logger.ILogger
}

func NewNatsNotifier(pub *nats.Publisher, log logger.ILogger) *NatsNotifier {
	return &NatsNotifier{pub: pub, log: log}
}

func (n *NatsNotifier) JobStarted(job *Job) {
	n.publish(events.JobStarted(job.ID, job.Namespace, job.Command))
}

func (n *NatsNotifier) JobCompleted(job *Job, result map[string]any) {
	n.publish(events.JobCompleted(job.ID, job.Namespace, job.Command, result))
}

func (n *NatsNotifier) JobFailed(job *Job, errorMessage string) {
	n.publish(events.JobFailed(job.ID, job.Namespace, job.Command, errorMessage))
}

func (n *NatsNotifier) publish(event events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := n.pub.Publish(ctx, event); err != nil {
		n.log.Warn("queue", "failed to publish job event", map[string]interface{}{
			"event": event.EventType(),
			"error": err.Error(),
		})
	}
}

var _ INotifier = (*NatsNotifier)(nil)
