package model

import "time"

// Invoice is the local mirror of a payment-provider invoice, keyed by the
// provider's invoice id.
type Invoice struct {
	ID                   int64     `db:"id" json:"id"`
	StripeInvoiceID      string    `db:"stripe_invoice_id" json:"stripe_invoice_id"`
	Amount               int64     `db:"amount" json:"amount"`
	Currency             string    `db:"currency" json:"currency"`
	Status               string    `db:"status" json:"status"`
	PeriodStart          time.Time `db:"period_start" json:"period_start"`
	PeriodEnd            time.Time `db:"period_end" json:"period_end"`
	StripeCustomerID     string    `db:"stripe_customer_id" json:"stripe_customer_id"`
	StripeSubscriptionID string    `db:"stripe_subscription_id" json:"stripe_subscription_id"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}
