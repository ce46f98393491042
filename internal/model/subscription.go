package model

import "time"

// SubscriptionStatus is the local mirror of a provider subscription status.
type SubscriptionStatus string

const (
	SubscriptionStatusActive            SubscriptionStatus = "ACTIVE"
	SubscriptionStatusCanceled          SubscriptionStatus = "CANCELED"
	SubscriptionStatusIncomplete        SubscriptionStatus = "INCOMPLETE"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "INCOMPLETE_EXPIRED"
	SubscriptionStatusPastDue           SubscriptionStatus = "PAST_DUE"
	SubscriptionStatusTrialing          SubscriptionStatus = "TRIALING"
	SubscriptionStatusUnpaid            SubscriptionStatus = "UNPAID"
	SubscriptionStatusPaused            SubscriptionStatus = "PAUSED"
)

var stripeStatusMap = map[string]SubscriptionStatus{
	"active":             SubscriptionStatusActive,
	"canceled":           SubscriptionStatusCanceled,
	"incomplete":         SubscriptionStatusIncomplete,
	"incomplete_expired": SubscriptionStatusIncompleteExpired,
	"past_due":           SubscriptionStatusPastDue,
	"trialing":           SubscriptionStatusTrialing,
	"unpaid":             SubscriptionStatusUnpaid,
	"paused":             SubscriptionStatusPaused,
}

// SubscriptionStatusFromStripe maps a Stripe status string onto the local
// enum. Unknown statuses map to INCOMPLETE so a new provider status never
// drops an event.
func SubscriptionStatusFromStripe(status string) SubscriptionStatus {
	if s, ok := stripeStatusMap[status]; ok {
		return s
	}
	return SubscriptionStatusIncomplete
}

// Subscription is the local mirror of a provider subscription. At most one
// row per organization and at most one per external subscription id;
// cancellation is a status value, never a row deletion.
type Subscription struct {
	ID                   int64              `db:"id" json:"id"`
	OrganizationID       string             `db:"organization_id" json:"organization_id"`
	StripeSubscriptionID string             `db:"stripe_subscription_id" json:"stripe_subscription_id"`
	StripeCustomerID     string             `db:"stripe_customer_id" json:"stripe_customer_id"`
	Status               SubscriptionStatus `db:"status" json:"status"`
	Plan                 string             `db:"plan" json:"plan"`
	CurrentPeriodStart   time.Time          `db:"current_period_start" json:"current_period_start"`
	CurrentPeriodEnd     time.Time          `db:"current_period_end" json:"current_period_end"`
	CancelAtPeriodEnd    bool               `db:"cancel_at_period_end" json:"cancel_at_period_end"`
	CreatedAt            time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time          `db:"updated_at" json:"updated_at"`
}
