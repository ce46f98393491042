package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubscriptionRepository defines methods for accessing subscription data.
type SubscriptionRepository interface {
	GetByExternalID(ctx context.Context, stripeSubscriptionID string) (*model.Subscription, error)
	// UpsertByOrganization creates the subscription for an organization if
	// none exists, else updates it in place. This is the common path: new
	// subscriptions always carry the organization in metadata at creation.
	UpsertByOrganization(ctx context.Context, sub *model.Subscription) error
	// UpdateByExternalID updates an existing subscription keyed by the
	// provider's subscription id. It returns false when no row matched. This
	// is the fallback path for update events where the provider dropped the
	// organization metadata on relay.
	UpdateByExternalID(ctx context.Context, sub *model.Subscription) (bool, error)
	UpdateStatusByExternalID(ctx context.Context, stripeSubscriptionID string, status model.SubscriptionStatus) (bool, error)
}

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepo creates a new SubscriptionRepository.
func NewSubscriptionRepo(pool *pgxpool.Pool) SubscriptionRepository {
	return &subscriptionRepo{pool: pool}
}

func (r *subscriptionRepo) GetByExternalID(ctx context.Context, stripeSubscriptionID string) (*model.Subscription, error) {
	const q = `
        SELECT id, organization_id, stripe_subscription_id, stripe_customer_id, status, plan,
               current_period_start, current_period_end, cancel_at_period_end, created_at, updated_at
        FROM subscriptions
        WHERE stripe_subscription_id = $1
    `
	var s model.Subscription
	err := r.pool.QueryRow(ctx, q, stripeSubscriptionID).Scan(
		&s.ID,
		&s.OrganizationID,
		&s.StripeSubscriptionID,
		&s.StripeCustomerID,
		&s.Status,
		&s.Plan,
		&s.CurrentPeriodStart,
		&s.CurrentPeriodEnd,
		&s.CancelAtPeriodEnd,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch subscription %s: %w", stripeSubscriptionID, err)
	}
	return &s, nil
}

func (r *subscriptionRepo) UpsertByOrganization(ctx context.Context, sub *model.Subscription) error {
	const q = `
        INSERT INTO subscriptions (organization_id, stripe_subscription_id, stripe_customer_id, status, plan,
                                   current_period_start, current_period_end, cancel_at_period_end, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
        ON CONFLICT (organization_id) DO UPDATE
        SET stripe_subscription_id = EXCLUDED.stripe_subscription_id,
            stripe_customer_id = EXCLUDED.stripe_customer_id,
            status = EXCLUDED.status,
            plan = EXCLUDED.plan,
            current_period_start = EXCLUDED.current_period_start,
            current_period_end = EXCLUDED.current_period_end,
            cancel_at_period_end = EXCLUDED.cancel_at_period_end,
            updated_at = NOW();
    `
	_, err := r.pool.Exec(ctx, q,
		sub.OrganizationID,
		sub.StripeSubscriptionID,
		sub.StripeCustomerID,
		sub.Status,
		sub.Plan,
		sub.CurrentPeriodStart,
		sub.CurrentPeriodEnd,
		sub.CancelAtPeriodEnd,
	)
	if err != nil {
		return fmt.Errorf("upsert subscription for organization %s: %w", sub.OrganizationID, err)
	}
	return nil
}

func (r *subscriptionRepo) UpdateByExternalID(ctx context.Context, sub *model.Subscription) (bool, error) {
	const q = `
        UPDATE subscriptions
        SET stripe_customer_id = $2,
            status = $3,
            plan = $4,
            current_period_start = $5,
            current_period_end = $6,
            cancel_at_period_end = $7,
            updated_at = NOW()
        WHERE stripe_subscription_id = $1
    `
	tag, err := r.pool.Exec(ctx, q,
		sub.StripeSubscriptionID,
		sub.StripeCustomerID,
		sub.Status,
		sub.Plan,
		sub.CurrentPeriodStart,
		sub.CurrentPeriodEnd,
		sub.CancelAtPeriodEnd,
	)
	if err != nil {
		return false, fmt.Errorf("update subscription %s: %w", sub.StripeSubscriptionID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *subscriptionRepo) UpdateStatusByExternalID(ctx context.Context, stripeSubscriptionID string, status model.SubscriptionStatus) (bool, error) {
	const q = `
        UPDATE subscriptions
        SET status = $2, updated_at = NOW()
        WHERE stripe_subscription_id = $1
    `
	tag, err := r.pool.Exec(ctx, q, stripeSubscriptionID, status)
	if err != nil {
		return false, fmt.Errorf("update subscription %s status: %w", stripeSubscriptionID, err)
	}
	return tag.RowsAffected() == 1, nil
}
