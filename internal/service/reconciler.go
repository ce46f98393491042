package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
)

// ErrCorrelationMissing is returned when a subscription event carries no
// organization metadata and no local row exists for its external id. There is
// nothing to create: an organization cannot be inferred, so the event is
// unrecoverable and the caller should log and skip it rather than make the
// provider retry forever.
var ErrCorrelationMissing = errors.New("subscription event correlation missing")

// Reconciler maps provider payloads onto local subscription and invoice
// state.
type Reconciler interface {
	HandleSubscriptionEvent(ctx context.Context, data json.RawMessage) error
	HandleInvoicePaid(ctx context.Context, data json.RawMessage) error
}

type reconciler struct {
	subs     repository.SubscriptionRepository
	invoices repository.InvoiceRepository
	logger   zerolog.Logger
}

// NewReconciler creates a Reconciler with a scoped logger.
func NewReconciler(subs repository.SubscriptionRepository, invoices repository.InvoiceRepository, logger zerolog.Logger) Reconciler {
	return &reconciler{
		subs:     subs,
		invoices: invoices,
		logger:   logger.With().Str("service", "Reconciler").Logger(),
	}
}

// HandleSubscriptionEvent applies a subscription lifecycle payload. The
// common path correlates by the organization id Stripe echoes back in
// metadata; updates where Stripe dropped the metadata fall back to the
// external subscription id.
func (r *reconciler) HandleSubscriptionEvent(ctx context.Context, data json.RawMessage) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(data, &sub); err != nil {
		return fmt.Errorf("unmarshal subscription payload: %w", err)
	}

	local := &model.Subscription{
		StripeSubscriptionID: sub.ID,
		Status:               model.SubscriptionStatusFromStripe(string(sub.Status)),
		Plan:                 "unknown",
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
	}
	if sub.Customer != nil {
		local.StripeCustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		if item.Price != nil && item.Price.ID != "" {
			local.Plan = item.Price.ID
		}
		local.CurrentPeriodStart = time.Unix(item.CurrentPeriodStart, 0)
		local.CurrentPeriodEnd = time.Unix(item.CurrentPeriodEnd, 0)
	}

	orgID := sub.Metadata["organizationId"]
	if orgID == "" {
		updated, err := r.subs.UpdateByExternalID(ctx, local)
		if err != nil {
			return err
		}
		if !updated {
			return fmt.Errorf("%w: subscription %s has no organization metadata and no existing row", ErrCorrelationMissing, sub.ID)
		}
		r.logger.Info().Str("subscription_id", sub.ID).Str("status", string(local.Status)).Msg("Subscription updated by external id")
		return nil
	}

	local.OrganizationID = orgID
	if err := r.subs.UpsertByOrganization(ctx, local); err != nil {
		return err
	}
	r.logger.Info().Str("subscription_id", sub.ID).Str("organization_id", orgID).Str("status", string(local.Status)).Msg("Subscription upserted")
	return nil
}

// HandleInvoicePaid upserts the invoice mirror and surfaces the payment onto
// the linked subscription on a best-effort basis.
func (r *reconciler) HandleInvoicePaid(ctx context.Context, data json.RawMessage) error {
	var inv stripe.Invoice
	if err := json.Unmarshal(data, &inv); err != nil {
		return fmt.Errorf("unmarshal invoice payload: %w", err)
	}

	var subID string
	if inv.Lines != nil {
		for _, line := range inv.Lines.Data {
			if line.Subscription != nil && line.Subscription.ID != "" {
				subID = line.Subscription.ID
				break
			}
		}
	}
	if subID == "" {
		// One-time invoice; nothing to reconcile against a subscription.
		r.logger.Info().Str("invoice_id", inv.ID).Msg("Invoice has no subscription, skipping")
		return nil
	}

	status := string(inv.Status)
	if status == "" {
		status = "unknown"
	}
	invoice := &model.Invoice{
		StripeInvoiceID:      inv.ID,
		Amount:               inv.AmountPaid,
		Currency:             string(inv.Currency),
		Status:               status,
		PeriodStart:          time.Unix(inv.PeriodStart, 0),
		PeriodEnd:            time.Unix(inv.PeriodEnd, 0),
		StripeSubscriptionID: subID,
	}
	if inv.Customer != nil {
		invoice.StripeCustomerID = inv.Customer.ID
	}
	if err := r.invoices.Upsert(ctx, invoice); err != nil {
		return err
	}

	// A paid invoice implies the subscription is current. Best effort: the
	// invoice write above stands on its own.
	if _, err := r.subs.UpdateStatusByExternalID(ctx, subID, model.SubscriptionStatusActive); err != nil {
		r.logger.Warn().Err(err).Str("subscription_id", subID).Msg("Failed to surface invoice payment onto subscription")
	}

	r.logger.Info().Str("invoice_id", inv.ID).Str("subscription_id", subID).Msg("Invoice reconciled")
	return nil
}
