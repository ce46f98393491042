package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"app/internal/config"
	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82/webhook"
)

const webhookSource = "stripe"

// ErrSignatureInvalid is returned when the webhook payload does not match its
// signature header. Nothing is persisted in that case.
var ErrSignatureInvalid = errors.New("webhook signature invalid")

// WebhookIngestor verifies, deduplicates, and dispatches provider events.
type WebhookIngestor interface {
	// Ingest processes one raw delivery. The payload must be the exact bytes
	// the provider sent; any re-encoding invalidates the signature. A replay
	// of an already processed event returns the stored record without
	// dispatching again.
	Ingest(ctx context.Context, payload []byte, sigHeader string) (*model.WebhookEvent, error)
}

type webhookService struct {
	secret   string
	events   repository.WebhookEventRepository
	handlers map[string]func(ctx context.Context, data json.RawMessage) error
	logger   zerolog.Logger
}

// NewWebhookService creates a WebhookIngestor with an explicit dispatch table
// over the event types this system consumes. Every other type is recorded and
// dropped.
func NewWebhookService(cfg *config.Config, events repository.WebhookEventRepository, rec Reconciler, logger zerolog.Logger) WebhookIngestor {
	return &webhookService{
		secret: cfg.StripeWebhookSecret,
		events: events,
		handlers: map[string]func(ctx context.Context, data json.RawMessage) error{
			"invoice.payment_succeeded":     rec.HandleInvoicePaid,
			"customer.subscription.created": rec.HandleSubscriptionEvent,
			"customer.subscription.updated": rec.HandleSubscriptionEvent,
			"customer.subscription.deleted": rec.HandleSubscriptionEvent,
		},
		logger: logger.With().Str("service", "WebhookService").Logger(),
	}
}

func (s *webhookService) Ingest(ctx context.Context, payload []byte, sigHeader string) (*model.WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, s.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	eventType := string(event.Type)
	s.logger.Info().Str("event_type", eventType).Str("event_id", event.ID).Msg("Webhook received")

	existing, err := s.events.GetBySourceExternalID(ctx, webhookSource, event.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil && (existing.Status == model.WebhookEventStatusProcessed || existing.Status == model.WebhookEventStatusSkipped) {
		// Replayed delivery of a concluded event: the provider retries
		// regardless of our 200s. Received and failed rows fall through so
		// the retry can dispatch again.
		s.logger.Info().Str("event_id", event.ID).Msg("Duplicate webhook delivery; skipping dispatch")
		return existing, nil
	}

	handler, handled := s.handlers[eventType]

	if existing == nil {
		// Handled events start non-terminal: even if every status write after
		// dispatch is lost, the row never reads as concluded, so the
		// provider's retry is not deduplicated away.
		status := model.WebhookEventStatusReceived
		if !handled {
			status = model.WebhookEventStatusSkipped
		}
		record := &model.WebhookEvent{
			Source:     webhookSource,
			ExternalID: event.ID,
			Type:       eventType,
			Data:       json.RawMessage(event.Data.Raw),
			Status:     status,
		}
		created, err := s.events.Insert(ctx, record)
		if err != nil {
			return nil, err
		}
		if !created {
			// A concurrent delivery of the same event id won the insert
			// race; the uniqueness constraint makes us the no-op side.
			s.logger.Info().Str("event_id", event.ID).Msg("Concurrent duplicate webhook delivery; skipping dispatch")
			return s.events.GetBySourceExternalID(ctx, webhookSource, event.ID)
		}
		existing = record
	}

	if !handled {
		s.logger.Info().Str("event_type", eventType).Str("event_id", event.ID).Msg("Unhandled webhook event type; recorded and dropped")
		return existing, nil
	}

	if err := handler(ctx, json.RawMessage(event.Data.Raw)); err != nil {
		if errors.Is(err, ErrCorrelationMissing) {
			// Named log-and-skip policy: retrying cannot recover this event.
			s.logger.Error().Err(err).Str("event_id", event.ID).Msg("Subscription event could not be correlated; skipping reconciliation")
			if uerr := s.events.UpdateStatus(ctx, webhookSource, event.ID, model.WebhookEventStatusSkipped); uerr != nil {
				s.logger.Error().Err(uerr).Str("event_id", event.ID).Msg("Failed to mark webhook event skipped")
			}
			existing.Status = model.WebhookEventStatusSkipped
			return existing, nil
		}
		// Best effort: failed is an operator signal, not the dedup state. If
		// this write is lost the row stays received, which replays the same.
		if uerr := s.events.UpdateStatus(ctx, webhookSource, event.ID, model.WebhookEventStatusFailed); uerr != nil {
			s.logger.Error().Err(uerr).Str("event_id", event.ID).Msg("Failed to mark webhook event failed")
		}
		return nil, fmt.Errorf("dispatching webhook event %s: %w", event.ID, err)
	}

	// A lost write here leaves the row received; a replay then dispatches
	// again, which the idempotent reconciliation handlers absorb.
	if err := s.events.UpdateStatus(ctx, webhookSource, event.ID, model.WebhookEventStatusProcessed); err != nil {
		s.logger.Error().Err(err).Str("event_id", event.ID).Msg("Failed to mark webhook event processed")
	}
	existing.Status = model.WebhookEventStatusProcessed
	return existing, nil
}
