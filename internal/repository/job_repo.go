package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrJobNotFound is returned when no job exists for the given id.
var ErrJobNotFound = errors.New("job not found")

// JobRepository defines persistence for AI jobs and their status machine.
type JobRepository interface {
	Create(ctx context.Context, job *model.Job) error
	GetByID(ctx context.Context, id string) (*model.Job, error)
	// ClaimProcessing transitions a job from pending to processing. It
	// returns false when the job is not pending, which is how a redelivered
	// or concurrently claimed job is detected.
	ClaimProcessing(ctx context.Context, id string) (bool, error)
	// Complete marks a processing job completed and records its usage ledger
	// entry in the same transaction. Either both writes land or neither does.
	Complete(ctx context.Context, id string, output json.RawMessage, cost float64, usage *model.AIUsage) error
	// Fail marks a processing job failed, recording the error detail as the
	// job output. No usage row is written for a failed job.
	Fail(ctx context.Context, id string, output json.RawMessage) error
}

type jobRepo struct {
	pool *pgxpool.Pool
}

// NewJobRepo creates a new JobRepository.
func NewJobRepo(pool *pgxpool.Pool) JobRepository {
	return &jobRepo{pool: pool}
}

func (r *jobRepo) Create(ctx context.Context, job *model.Job) error {
	const q = `
        INSERT INTO ai_jobs (id, type, status, input, user_id, organization_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
    `
	_, err := r.pool.Exec(ctx, q, job.ID, job.Type, job.Status, job.Input, job.UserID, job.OrganizationID)
	if err != nil {
		return fmt.Errorf("insert job %s: %w", job.ID, err)
	}
	return nil
}

func (r *jobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	const q = `
        SELECT id, type, status, input, output, cost, user_id, organization_id, created_at, updated_at
        FROM ai_jobs
        WHERE id = $1
    `
	var j model.Job
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&j.ID,
		&j.Type,
		&j.Status,
		&j.Input,
		&j.Output,
		&j.Cost,
		&j.UserID,
		&j.OrganizationID,
		&j.CreatedAt,
		&j.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("fetch job %s: %w", id, err)
	}
	return &j, nil
}

// ClaimProcessing is a conditional update so that exactly one worker wins a
// concurrent claim even if the queue redelivers the same job to two consumers.
func (r *jobRepo) ClaimProcessing(ctx context.Context, id string) (bool, error) {
	const q = `
        UPDATE ai_jobs
        SET status = $2, updated_at = NOW()
        WHERE id = $1 AND status = $3
    `
	tag, err := r.pool.Exec(ctx, q, id, model.JobStatusProcessing, model.JobStatusPending)
	if err != nil {
		return false, fmt.Errorf("claim job %s: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *jobRepo) Complete(ctx context.Context, id string, output json.RawMessage, cost float64, usage *model.AIUsage) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("starting transaction for job %s completion: %w", id, err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	const updateQ = `
        UPDATE ai_jobs
        SET status = $2, output = $3, cost = $4, updated_at = NOW()
        WHERE id = $1 AND status = $5
    `
	tag, err := tx.Exec(ctx, updateQ, id, model.JobStatusCompleted, output, cost, model.JobStatusProcessing)
	if err != nil {
		return fmt.Errorf("completing job %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("completing job %s: job is not processing", id)
	}

	const usageQ = `
        INSERT INTO ai_usage (user_id, organization_id, provider, model, input_tokens, output_tokens, total_tokens, cost, job_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `
	_, err = tx.Exec(ctx, usageQ,
		usage.UserID,
		usage.OrganizationID,
		usage.Provider,
		usage.Model,
		usage.InputTokens,
		usage.OutputTokens,
		usage.TotalTokens,
		usage.Cost,
		id,
	)
	if err != nil {
		return fmt.Errorf("recording usage for job %s: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing completion of job %s: %w", id, err)
	}
	return nil
}

func (r *jobRepo) Fail(ctx context.Context, id string, output json.RawMessage) error {
	const q = `
        UPDATE ai_jobs
        SET status = $2, output = $3, updated_at = NOW()
        WHERE id = $1 AND status = $4
    `
	tag, err := r.pool.Exec(ctx, q, id, model.JobStatusFailed, output, model.JobStatusProcessing)
	if err != nil {
		return fmt.Errorf("failing job %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failing job %s: job is not processing", id)
	}
	return nil
}
