package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"app/internal/service"

	"github.com/rs/zerolog"
)

// BillingHandler handles payment-provider webhook deliveries.
type BillingHandler struct {
	ingestor service.WebhookIngestor
	logger   zerolog.Logger
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(ingestor service.WebhookIngestor, logger zerolog.Logger) *BillingHandler {
	return &BillingHandler{ingestor: ingestor, logger: logger}
}

// RegisterRoutes mounts the webhook endpoint. It is authenticated by the
// provider signature, not by the bearer middleware.
func (h *BillingHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/billing/webhook", http.HandlerFunc(h.Webhook))
}

// Webhook godoc
// @Summary Ingest a Stripe webhook delivery
// @Description Verifies the signature over the raw body, deduplicates by event id, and dispatches to reconciliation. 400 tells the provider not to retry with the same payload; 500 requests a retry.
// @Tags billing
// @Accept json
// @Produce json
// @Success 200 {object} map[string]bool
// @Failure 400 {string} string "signature verification failed"
// @Failure 500 {string} string "failed to process event"
// @Router /billing/webhook [post]
func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// The raw bytes must reach verification untouched; re-encoding the JSON
	// would invalidate the signature.
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to read webhook payload")
		http.Error(w, "failed to read payload", http.StatusBadRequest)
		return
	}

	event, err := h.ingestor.Ingest(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, service.ErrSignatureInvalid) {
			h.logger.Error().Err(err).Msg("webhook signature verification failed")
			http.Error(w, "signature verification failed", http.StatusBadRequest)
			return
		}
		h.logger.Error().Err(err).Msg("failed to process webhook event")
		http.Error(w, "failed to process event", http.StatusInternalServerError)
		return
	}

	h.logger.Debug().Str("event_id", event.ExternalID).Str("status", event.Status).Msg("webhook event ingested")
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]bool{"received": true}); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}
