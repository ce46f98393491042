package service

import (
	"context"
	"encoding/json"
	"fmt"

	"app/internal/config"
	"app/internal/model"
	"app/internal/repository"
	"app/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Queue is the enqueue side of the durable job queue.
type Queue interface {
	Send(ctx context.Context, queue string, payload []byte) error
}

// SubmitJobParams carries a generation request from the authenticated caller.
type SubmitJobParams struct {
	Prompt         string
	Provider       string
	Model          string
	UserID         string
	OrganizationID *string
}

// JobService defines business logic for AI job submission and status.
type JobService interface {
	// Submit persists a pending job and enqueues it. When the queue is
	// unavailable the job row stays pending and the error wraps
	// pgmq.ErrUnavailable; resubmitting later enqueues without creating a
	// duplicate job.
	Submit(ctx context.Context, p SubmitJobParams) (*model.Job, error)
	Get(ctx context.Context, jobID, userID string) (*model.Job, error)
	ListUsage(ctx context.Context, userID string) ([]*model.AIUsage, float64, error)
}

type jobService struct {
	cfg    *config.Config
	jobs   repository.JobRepository
	usage  repository.UsageRepository
	queue  Queue
	logger zerolog.Logger
}

// NewJobService creates a new JobService with a scoped logger.
func NewJobService(cfg *config.Config, jobs repository.JobRepository, usage repository.UsageRepository, queue Queue, logger zerolog.Logger) JobService {
	return &jobService{
		cfg:    cfg,
		jobs:   jobs,
		usage:  usage,
		queue:  queue,
		logger: logger.With().Str("service", "JobService").Logger(),
	}
}

func (s *jobService) Submit(ctx context.Context, p SubmitJobParams) (*model.Job, error) {
	input, err := json.Marshal(map[string]string{
		"prompt":   p.Prompt,
		"provider": p.Provider,
		"model":    p.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal job input: %w", err)
	}

	job := &model.Job{
		ID:             uuid.NewString(),
		Type:           model.JobTypeTextGeneration,
		Status:         model.JobStatusPending,
		Input:          input,
		UserID:         p.UserID,
		OrganizationID: p.OrganizationID,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		s.logger.Error().Err(err).Str("user_id", p.UserID).Msg("Failed to create job")
		return nil, err
	}

	payload, err := json.Marshal(worker.Payload{
		JobID:          job.ID,
		Prompt:         p.Prompt,
		Provider:       p.Provider,
		Model:          p.Model,
		UserID:         p.UserID,
		OrganizationID: p.OrganizationID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal queue payload for job %s: %w", job.ID, err)
	}
	if err := s.queue.Send(ctx, s.cfg.AIQueueName, payload); err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to enqueue job; job remains pending")
		return nil, fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}

	s.logger.Info().Str("job_id", job.ID).Str("user_id", p.UserID).Msg("Job submitted")
	return job, nil
}

func (s *jobService) Get(ctx context.Context, jobID, userID string) (*model.Job, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		// Owned by someone else; indistinguishable from absent.
		return nil, repository.ErrJobNotFound
	}
	return job, nil
}

func (s *jobService) ListUsage(ctx context.Context, userID string) ([]*model.AIUsage, float64, error) {
	records, err := s.usage.ListByUser(ctx, userID, 100)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to list usage")
		return nil, 0, err
	}
	total, err := s.usage.TotalCostByUser(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to total usage cost")
		return nil, 0, err
	}
	return records, total, nil
}
