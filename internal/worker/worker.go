package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"app/internal/ai"
	"app/internal/config"
	"app/internal/model"
	"app/internal/pgmq"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// Payload is the message carried on the AI job queue. It contains everything
// the worker needs so it never re-reads the submission input.
type Payload struct {
	JobID          string  `json:"job_id"`
	Prompt         string  `json:"prompt"`
	Provider       string  `json:"provider,omitempty"`
	Model          string  `json:"model,omitempty"`
	UserID         string  `json:"user_id"`
	OrganizationID *string `json:"organization_id,omitempty"`
}

// Worker consumes the AI job queue and drives each job through its state
// machine: pending -> processing -> completed | failed.
type Worker struct {
	cfg       *config.Config
	queue     *pgmq.Client
	jobs      repository.JobRepository
	providers *ai.Registry
	logger    zerolog.Logger
}

// New creates a Worker with a scoped logger.
func New(cfg *config.Config, queue *pgmq.Client, jobs repository.JobRepository, providers *ai.Registry, logger zerolog.Logger) *Worker {
	return &Worker{
		cfg:       cfg,
		queue:     queue,
		jobs:      jobs,
		providers: providers,
		logger:    logger.With().Str("service", "Worker").Logger(),
	}
}

// Run starts the consumer loop until context cancellation.
func (w *Worker) Run(ctx context.Context) error {
	queue := w.cfg.AIQueueName
	w.logger.Info().Str("queue", queue).Msg("Starting AI job worker")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Shutting down AI job worker")
			return nil
		default:
		}

		msgs, err := w.queue.ReadWithPoll(ctx, queue, w.cfg.AIPollTimeoutSec, w.cfg.AIPollMaxMsg)
		if err != nil {
			w.logger.Error().Err(err).Msg("Error reading AI job queue")
			time.Sleep(time.Second)
			continue
		}
		if len(msgs) == 0 {
			continue
		}

		msg := msgs[0]
		w.logger.Info().Int64("msg_id", msg.ID).Msg("Received AI job")

		var payload Payload
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			w.logger.Error().Err(err).Msg("Failed to unmarshal AI job payload; deleting message")
			if derr := w.queue.Delete(ctx, queue, []int64{msg.ID}); derr != nil {
				w.logger.Error().Err(derr).Msg("Error deleting malformed AI job message")
			}
			continue
		}

		if err := w.process(ctx, payload); err != nil {
			// Infrastructure failure: leave the message for redelivery. The
			// pending-only claim makes the redelivery safe.
			w.logger.Error().Err(err).Str("job_id", payload.JobID).Msg("AI job processing hit an infrastructure error; will retry on redelivery")
			time.Sleep(time.Second)
			continue
		}

		if err := w.queue.Delete(ctx, queue, []int64{msg.ID}); err != nil {
			w.logger.Error().Err(err).Msg("Error deleting AI job message")
		}
	}
}

// process executes one job. It returns an error only for infrastructure
// failures; a generation failure is terminal for the job (recorded as
// status=failed) and is not retried.
func (w *Worker) process(ctx context.Context, payload Payload) error {
	claimed, err := w.jobs.ClaimProcessing(ctx, payload.JobID)
	if err != nil {
		return fmt.Errorf("claiming job %s: %w", payload.JobID, err)
	}
	if !claimed {
		// Redelivery of a job another consumer already claimed or finished.
		w.logger.Info().Str("job_id", payload.JobID).Msg("Job is not pending; treating redelivery as a no-op")
		return nil
	}

	provider := w.providers.ForName(payload.Provider)
	modelName := payload.Model
	if modelName == "" {
		modelName = provider.DefaultModel()
	}

	genCtx, cancel := context.WithTimeout(ctx, time.Duration(w.cfg.AIRequestTimeoutSec)*time.Second)
	defer cancel()

	gen, genErr := provider.GenerateText(genCtx, payload.Prompt, modelName)
	if genErr != nil {
		w.logger.Error().Err(genErr).Str("job_id", payload.JobID).Str("provider", provider.Name()).Msg("Generation failed; marking job failed")
		output, _ := json.Marshal(map[string]string{"error": genErr.Error()})
		if err := w.jobs.Fail(ctx, payload.JobID, output); err != nil {
			return fmt.Errorf("marking job %s failed: %w", payload.JobID, err)
		}
		return nil
	}

	cost := float64(gen.Usage.TotalTokens) * w.cfg.AICostPerToken
	output, err := json.Marshal(map[string]string{"text": gen.Text})
	if err != nil {
		return fmt.Errorf("marshalling output for job %s: %w", payload.JobID, err)
	}

	usage := &model.AIUsage{
		UserID:         payload.UserID,
		OrganizationID: payload.OrganizationID,
		Provider:       provider.Name(),
		Model:          modelName,
		InputTokens:    gen.Usage.InputTokens,
		OutputTokens:   gen.Usage.OutputTokens,
		TotalTokens:    gen.Usage.TotalTokens,
		Cost:           cost,
		JobID:          payload.JobID,
	}
	if err := w.jobs.Complete(ctx, payload.JobID, output, cost, usage); err != nil {
		return fmt.Errorf("completing job %s: %w", payload.JobID, err)
	}

	w.logger.Info().
		Str("job_id", payload.JobID).
		Str("provider", provider.Name()).
		Str("model", modelName).
		Int("total_tokens", gen.Usage.TotalTokens).
		Msg("Job completed")
	return nil
}
