package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ai-knowledgebase-be/internal/storage"
)

// SqliteStore persists jobs in the command_queue table, sharing the
// database handle with the entity driver. The handle is limited to a
// single connection, which serializes writers; the claim statement is
// still written to be safe under concurrency.
type SqliteStore struct {
	db *sql.DB
}

var _ IStore = (*SqliteStore)(nil)

func NewSqliteStore(db *sql.DB) *SqliteStore {
	return &SqliteStore{db: db}
}

const jobColumns = "job_id, namespace, command, args, status, created_at, started_at, completed_at, result, error_message"

func (s *SqliteStore) Enqueue(ctx context.Context, job *Job) error {
	args, err := encodeArgs(job.Args)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO command_queue (job_id, namespace, command, args, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		job.ID, job.Namespace, job.Command, args, string(StatusPending), formatJobTime(job.CreatedAt))
	if err != nil {
		return mapQueueErr(err)
	}
	return nil
}

func (s *SqliteStore) ClaimNext(ctx context.Context) (*Job, error) {
	// Single statement so the pick and the transition cannot interleave
	// with another claimer.
	row := s.db.QueryRowContext(ctx, `
		UPDATE command_queue
		SET status = ?, started_at = ?
		WHERE id = (
			SELECT id FROM command_queue
			WHERE status = ?
			ORDER BY created_at, id
			LIMIT 1
		) AND status = ?
		RETURNING `+jobColumns,
		string(StatusProcessing), formatJobTime(time.Now().UTC()),
		string(StatusPending), string(StatusPending))

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapQueueErr(err)
	}
	return job, nil
}

func (s *SqliteStore) Complete(ctx context.Context, jobID string, result map[string]any) error {
	encoded, err := encodeArgs(result)
	if err != nil {
		return err
	}
	return s.finish(ctx, jobID,
		`UPDATE command_queue SET status = ?, completed_at = ?, result = ? WHERE job_id = ? AND status = ?`,
		string(StatusCompleted), formatJobTime(time.Now().UTC()), encoded, jobID, string(StatusProcessing))
}

func (s *SqliteStore) Fail(ctx context.Context, jobID string, errorMessage string) error {
	return s.finish(ctx, jobID,
		`UPDATE command_queue SET status = ?, completed_at = ?, error_message = ? WHERE job_id = ? AND status = ?`,
		string(StatusFailed), formatJobTime(time.Now().UTC()), errorMessage, jobID, string(StatusProcessing))
}

// finish applies a terminal transition guarded on the processing status.
// Zero rows affected means either the job is unknown or the transition
// is illegal; the two are told apart with a follow-up lookup.
func (s *SqliteStore) finish(ctx context.Context, jobID, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapQueueErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapQueueErr(err)
	}
	if n > 0 {
		return nil
	}
	job, err := s.Get(ctx, jobID)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: job %s is %s, not processing", storage.ErrValidation, jobID, job.Status)
}

func (s *SqliteStore) RecoverStuck(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := formatJobTime(time.Now().UTC().Add(-olderThan))
	res, err := s.db.ExecContext(ctx,
		`UPDATE command_queue SET status = ?, started_at = NULL WHERE status = ? AND started_at < ?`,
		string(StatusPending), string(StatusProcessing), cutoff)
	if err != nil {
		return 0, mapQueueErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, mapQueueErr(err)
	}
	return int(n), nil
}

func (s *SqliteStore) Get(ctx context.Context, jobID string) (*Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM command_queue WHERE job_id = ?`, jobID)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: job %s", storage.ErrNotFound, jobID)
	}
	if err != nil {
		return nil, mapQueueErr(err)
	}
	return job, nil
}

func (s *SqliteStore) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM command_queue GROUP BY status`)
	if err != nil {
		return Stats{}, mapQueueErr(err)
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return Stats{}, mapQueueErr(err)
		}
		switch Status(status) {
		case StatusPending:
			stats.Pending = n
		case StatusProcessing:
			stats.Processing = n
		case StatusCompleted:
			stats.Completed = n
		case StatusFailed:
			stats.Failed = n
		}
	}
	return stats, rows.Err()
}

func scanJob(row *sql.Row) (*Job, error) {
	var (
		job        Job
		status     string
		args       string
		createdAt  string
		startedAt  sql.NullString
		finishedAt sql.NullString
		result     sql.NullString
		errMsg     sql.NullString
	)
	err := row.Scan(&job.ID, &job.Namespace, &job.Command, &args, &status,
		&createdAt, &startedAt, &finishedAt, &result, &errMsg)
	if err != nil {
		return nil, err
	}
	job.Status = Status(status)
	job.Args = decodeArgs(args)
	job.CreatedAt = parseJobTime(createdAt)
	if startedAt.Valid {
		t := parseJobTime(startedAt.String)
		job.StartedAt = &t
	}
	if finishedAt.Valid {
		t := parseJobTime(finishedAt.String)
		job.CompletedAt = &t
	}
	if result.Valid {
		job.Result = decodeArgs(result.String)
	}
	job.ErrorMessage = errMsg.String
	return &job, nil
}

// jobTimeLayout is fixed width so the TEXT columns sort the same way
// the instants do. Variable-precision layouts truncate trailing zeros
// and break the ORDER BY in ClaimNext and the cutoff in RecoverStuck.
const jobTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatJobTime(t time.Time) string {
	return t.UTC().Format(jobTimeLayout)
}

func parseJobTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func mapQueueErr(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", storage.ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
}
