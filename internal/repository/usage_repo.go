package repository

import (
	"context"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

// UsageRepository reads the append-only AI usage ledger. Writes happen inside
// the job completion transaction in JobRepository.
type UsageRepository interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.AIUsage, error)
	TotalCostByUser(ctx context.Context, userID string) (float64, error)
}

type usageRepo struct {
	pool *pgxpool.Pool
}

// NewUsageRepo creates a new UsageRepository.
func NewUsageRepo(pool *pgxpool.Pool) UsageRepository {
	return &usageRepo{pool: pool}
}

func (r *usageRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*model.AIUsage, error) {
	const q = `
        SELECT id, user_id, organization_id, provider, model, input_tokens, output_tokens, total_tokens, cost, job_id, created_at
        FROM ai_usage
        WHERE user_id = $1
        ORDER BY created_at DESC
        LIMIT $2
    `
	rows, err := r.pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing usage for user %s: %w", userID, err)
	}
	defer rows.Close()

	var records []*model.AIUsage
	for rows.Next() {
		var u model.AIUsage
		if err := rows.Scan(
			&u.ID,
			&u.UserID,
			&u.OrganizationID,
			&u.Provider,
			&u.Model,
			&u.InputTokens,
			&u.OutputTokens,
			&u.TotalTokens,
			&u.Cost,
			&u.JobID,
			&u.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning usage row for user %s: %w", userID, err)
		}
		records = append(records, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading usage rows for user %s: %w", userID, err)
	}
	return records, nil
}

func (r *usageRepo) TotalCostByUser(ctx context.Context, userID string) (float64, error) {
	const q = `
        SELECT COALESCE(SUM(cost), 0)
        FROM ai_usage
        WHERE user_id = $1
    `
	var total float64
	if err := r.pool.QueryRow(ctx, q, userID).Scan(&total); err != nil {
		return 0, fmt.Errorf("summing usage cost for user %s: %w", userID, err)
	}
	return total, nil
}
