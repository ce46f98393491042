package repository

import (
	"context"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

// InvoiceRepository defines persistence for provider invoices.
type InvoiceRepository interface {
	// Upsert inserts an invoice keyed by the provider's invoice id. A replay
	// of the same invoice only refreshes amount and status.
	Upsert(ctx context.Context, inv *model.Invoice) error
}

type invoiceRepo struct {
	pool *pgxpool.Pool
}

// NewInvoiceRepo creates a new InvoiceRepository.
func NewInvoiceRepo(pool *pgxpool.Pool) InvoiceRepository {
	return &invoiceRepo{pool: pool}
}

func (r *invoiceRepo) Upsert(ctx context.Context, inv *model.Invoice) error {
	const q = `
        INSERT INTO invoices (stripe_invoice_id, amount, currency, status, period_start, period_end,
                              stripe_customer_id, stripe_subscription_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
        ON CONFLICT (stripe_invoice_id) DO UPDATE
        SET amount = EXCLUDED.amount,
            status = EXCLUDED.status,
            updated_at = NOW();
    `
	_, err := r.pool.Exec(ctx, q,
		inv.StripeInvoiceID,
		inv.Amount,
		inv.Currency,
		inv.Status,
		inv.PeriodStart,
		inv.PeriodEnd,
		inv.StripeCustomerID,
		inv.StripeSubscriptionID,
	)
	if err != nil {
		return fmt.Errorf("upsert invoice %s: %w", inv.StripeInvoiceID, err)
	}
	return nil
}
