package events

import "time"

// Job lifecycle event codes. Subscribers filter on these to drive
// progress UIs or audit trails.
const (
	TypeJobStarted   = "JOB_STARTED"
	TypeJobCompleted = "JOB_COMPLETED"
	TypeJobFailed    = "JOB_FAILED"
)

func JobStarted(jobId, namespace, command string) Event {
	return BaseEvent{
		Type: TypeJobStarted,
		Data: map[string]interface{}{
			"job_id":    jobId,
			"namespace": namespace,
			"command":   command,
		},
		OccurredAt: time.Now(),
	}
}

func JobCompleted(jobId, namespace, command string, result map[string]interface{}) Event {
	return BaseEvent{
		Type: TypeJobCompleted,
		Data: map[string]interface{}{
			"job_id":    jobId,
			"namespace": namespace,
			"command":   command,
			"result":    result,
		},
		OccurredAt: time.Now(),
	}
}

func JobFailed(jobId, namespace, command, errorMessage string) Event {
	return BaseEvent{
		Type: TypeJobFailed,
		Data: map[string]interface{}{
			"job_id":    jobId,
			"namespace": namespace,
			"command":   command,
			"error":     errorMessage,
		},
		OccurredAt: time.Now(),
	}
}
