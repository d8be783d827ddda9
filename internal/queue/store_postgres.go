package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"ai-knowledgebase-be/internal/storage"
)

// CommandJob is the relational row behind a Job.
type CommandJob struct {
	Id           uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	JobId        string         `gorm:"type:varchar(64);uniqueIndex:ux_command_job_id;not null"`
	Namespace    string         `gorm:"type:varchar(64);not null"`
	Command      string         `gorm:"type:varchar(128);not null"`
	Args         datatypes.JSON `gorm:"type:jsonb;default:'{}'"`
	Status       string         `gorm:"type:varchar(16);index:idx_command_job_claim,priority:1;not null"`
	CreatedAt    time.Time      `gorm:"index:idx_command_job_claim,priority:2;not null"`
	StartedAt    *time.Time
	CompletedAt  *time.Time
	Result       datatypes.JSON `gorm:"type:jsonb"`
	ErrorMessage string         `gorm:"type:text"`
}

func (CommandJob) TableName() string {
	return "command_jobs"
}

// PostgresStore persists jobs in command_jobs and relies on row locking
// for the claim, so any number of worker processes can share one queue.
type PostgresStore struct {
	db *gorm.DB
}

var _ IStore = (*PostgresStore)(nil)

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Enqueue(ctx context.Context, job *Job) error {
	args, err := encodeArgs(job.Args)
	if err != nil {
		return err
	}
	row := &CommandJob{
		JobId:     job.ID,
		Namespace: job.Namespace,
		Command:   job.Command,
		Args:      datatypes.JSON(args),
		Status:    string(StatusPending),
		CreatedAt: job.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return mapPostgresQueueErr(err)
	}
	return nil
}

func (s *PostgresStore) ClaimNext(ctx context.Context) (*Job, error) {
	// SKIP LOCKED keeps concurrent claimers from blocking on, or
	// double-claiming, the same row.
	var row CommandJob
	tx := s.db.WithContext(ctx).Raw(`
		UPDATE command_jobs
		SET status = ?, started_at = ?
		WHERE id = (
			SELECT id FROM command_jobs
			WHERE status = ?
			ORDER BY created_at, id
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING *`,
		string(StatusProcessing), time.Now().UTC(), string(StatusPending)).Scan(&row)
	if tx.Error != nil {
		return nil, mapPostgresQueueErr(tx.Error)
	}
	if tx.RowsAffected == 0 {
		return nil, nil
	}
	return jobFromRow(&row), nil
}

func (s *PostgresStore) Complete(ctx context.Context, jobID string, result map[string]any) error {
	encoded, err := encodeArgs(result)
	if err != nil {
		return err
	}
	return s.finish(ctx, jobID, map[string]any{
		"status":       string(StatusCompleted),
		"completed_at": time.Now().UTC(),
		"result":       datatypes.JSON(encoded),
	})
}

func (s *PostgresStore) Fail(ctx context.Context, jobID string, errorMessage string) error {
	return s.finish(ctx, jobID, map[string]any{
		"status":        string(StatusFailed),
		"completed_at":  time.Now().UTC(),
		"error_message": errorMessage,
	})
}

func (s *PostgresStore) finish(ctx context.Context, jobID string, updates map[string]any) error {
	tx := s.db.WithContext(ctx).Model(&CommandJob{}).
		Where("job_id = ? AND status = ?", jobID, string(StatusProcessing)).
		Updates(updates)
	if tx.Error != nil {
		return mapPostgresQueueErr(tx.Error)
	}
	if tx.RowsAffected > 0 {
		return nil
	}
	job, err := s.Get(ctx, jobID)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: job %s is %s, not processing", storage.ErrValidation, jobID, job.Status)
}

func (s *PostgresStore) RecoverStuck(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	tx := s.db.WithContext(ctx).Model(&CommandJob{}).
		Where("status = ? AND started_at < ?", string(StatusProcessing), cutoff).
		Updates(map[string]any{"status": string(StatusPending), "started_at": nil})
	if tx.Error != nil {
		return 0, mapPostgresQueueErr(tx.Error)
	}
	return int(tx.RowsAffected), nil
}

func (s *PostgresStore) Get(ctx context.Context, jobID string) (*Job, error) {
	var row CommandJob
	err := s.db.WithContext(ctx).Where("job_id = ?", jobID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: job %s", storage.ErrNotFound, jobID)
	}
	if err != nil {
		return nil, mapPostgresQueueErr(err)
	}
	return jobFromRow(&row), nil
}

func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	var counts []struct {
		Status string
		N      int64
	}
	err := s.db.WithContext(ctx).Model(&CommandJob{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return Stats{}, mapPostgresQueueErr(err)
	}
	var stats Stats
	for _, c := range counts {
		switch Status(c.Status) {
		case StatusPending:
			stats.Pending = c.N
		case StatusProcessing:
			stats.Processing = c.N
		case StatusCompleted:
			stats.Completed = c.N
		case StatusFailed:
			stats.Failed = c.N
		}
	}
	return stats, nil
}

func jobFromRow(row *CommandJob) *Job {
	return &Job{
		ID:           row.JobId,
		Namespace:    row.Namespace,
		Command:      row.Command,
		Args:         decodeArgs(string(row.Args)),
		Status:       Status(row.Status),
		CreatedAt:    row.CreatedAt,
		StartedAt:    row.StartedAt,
		CompletedAt:  row.CompletedAt,
		Result:       decodeArgs(string(row.Result)),
		ErrorMessage: row.ErrorMessage,
	}
}

func mapPostgresQueueErr(err error) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", storage.ErrConstraint, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", storage.ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
}
