package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WebhookEventRepository defines persistence for externally delivered events.
type WebhookEventRepository interface {
	// Insert records an event row. It returns false when a row for the same
	// (source, external_id) already exists; the uniqueness constraint makes a
	// concurrent duplicate delivery lose cleanly instead of erroring.
	Insert(ctx context.Context, event *model.WebhookEvent) (bool, error)
	GetBySourceExternalID(ctx context.Context, source, externalID string) (*model.WebhookEvent, error)
	UpdateStatus(ctx context.Context, source, externalID, status string) error
}

type webhookEventRepo struct {
	pool *pgxpool.Pool
}

// NewWebhookEventRepo creates a new WebhookEventRepository.
func NewWebhookEventRepo(pool *pgxpool.Pool) WebhookEventRepository {
	return &webhookEventRepo{pool: pool}
}

func (r *webhookEventRepo) Insert(ctx context.Context, event *model.WebhookEvent) (bool, error) {
	const q = `
        INSERT INTO webhook_events (source, external_id, type, data, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
        ON CONFLICT (source, external_id) DO NOTHING
    `
	tag, err := r.pool.Exec(ctx, q, event.Source, event.ExternalID, event.Type, event.Data, event.Status)
	if err != nil {
		return false, fmt.Errorf("insert webhook event %s/%s: %w", event.Source, event.ExternalID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *webhookEventRepo) GetBySourceExternalID(ctx context.Context, source, externalID string) (*model.WebhookEvent, error) {
	const q = `
        SELECT id, source, external_id, type, data, status, created_at, updated_at
        FROM webhook_events
        WHERE source = $1 AND external_id = $2
    `
	var e model.WebhookEvent
	err := r.pool.QueryRow(ctx, q, source, externalID).Scan(
		&e.ID,
		&e.Source,
		&e.ExternalID,
		&e.Type,
		&e.Data,
		&e.Status,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch webhook event %s/%s: %w", source, externalID, err)
	}
	return &e, nil
}

func (r *webhookEventRepo) UpdateStatus(ctx context.Context, source, externalID, status string) error {
	const q = `
        UPDATE webhook_events
        SET status = $3, updated_at = NOW()
        WHERE source = $1 AND external_id = $2
    `
	if _, err := r.pool.Exec(ctx, q, source, externalID, status); err != nil {
		return fmt.Errorf("update webhook event %s/%s status: %w", source, externalID, err)
	}
	return nil
}
