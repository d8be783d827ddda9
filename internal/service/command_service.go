package service

import (
	"context"
	"time"

	"ai-knowledgebase-be/internal/commands"
	"ai-knowledgebase-be/internal/dto"
	"ai-knowledgebase-be/internal/executor"
	"ai-knowledgebase-be/internal/queue"
)

type ICommandService interface {
	Submit(ctx context.Context, req *dto.SubmitCommandRequest) (*dto.SubmitCommandResponse, error)
	Status(ctx context.Context, jobId string) (*dto.JobStatusResponse, error)
	Stats(ctx context.Context) (*dto.QueueStatsResponse, error)
}

type commandService struct {
	exec  executor.IExecutor
	queue *queue.Queue
}

func NewCommandService(exec executor.IExecutor, q *queue.Queue) ICommandService {
	return &commandService{exec: exec, queue: q}
}

// syncTimeout bounds synchronous submissions when the caller does not
// name one.
const syncTimeout = 5 * time.Minute

func (s *commandService) Submit(ctx context.Context, req *dto.SubmitCommandRequest) (*dto.SubmitCommandResponse, error) {
	var token executor.Token
	var err error
	if req.Sync {
		timeout := syncTimeout
		if req.TimeoutSeconds > 0 {
			timeout = time.Duration(req.TimeoutSeconds) * time.Second
		}
		token, err = s.exec.ExecuteSync(ctx, commands.Namespace, req.Command, req.Args, timeout)
	} else {
		token, err = s.exec.Execute(ctx, commands.Namespace, req.Command, req.Args)
	}
	if err != nil {
		return nil, err
	}
	return &dto.SubmitCommandResponse{
		Mode:   token.Mode,
		Status: token.Status,
		JobId:  token.JobID,
	}, nil
}

func (s *commandService) Status(ctx context.Context, jobId string) (*dto.JobStatusResponse, error) {
	job, err := s.queue.GetStatus(ctx, jobId)
	if err != nil {
		return nil, err
	}
	return &dto.JobStatusResponse{
		JobId:        job.ID,
		Command:      job.Command,
		Status:       string(job.Status),
		CreatedAt:    job.CreatedAt,
		StartedAt:    job.StartedAt,
		CompletedAt:  job.CompletedAt,
		Result:       job.Result,
		ErrorMessage: job.ErrorMessage,
	}, nil
}

func (s *commandService) Stats(ctx context.Context) (*dto.QueueStatsResponse, error) {
	stats, err := s.queue.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.QueueStatsResponse{
		Pending:    stats.Pending,
		Processing: stats.Processing,
		Completed:  stats.Completed,
		Failed:     stats.Failed,
	}, nil
}
