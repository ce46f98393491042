package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"app/internal/model"
	"app/internal/service"

	"github.com/rs/zerolog"
)

type fakeIngestor struct {
	event   *model.WebhookEvent
	err     error
	payload []byte
	sig     string
}

func (f *fakeIngestor) Ingest(ctx context.Context, payload []byte, sigHeader string) (*model.WebhookEvent, error) {
	f.payload = payload
	f.sig = sigHeader
	if f.err != nil {
		return nil, f.err
	}
	return f.event, nil
}

func TestWebhookReturnsOKOnSuccess(t *testing.T) {
	ingestor := &fakeIngestor{event: &model.WebhookEvent{ExternalID: "evt_1", Status: model.WebhookEventStatusProcessed}}
	h := NewBillingHandler(ingestor, zerolog.Nop())

	body := `{"id":"evt_1","type":"invoice.payment_succeeded"}`
	req := httptest.NewRequest(http.MethodPost, "/billing/webhook", strings.NewReader(body))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	rr := httptest.NewRecorder()
	h.Webhook(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"received":true`) {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
	if string(ingestor.payload) != body {
		t.Fatal("handler must pass the raw body bytes through unmodified")
	}
	if ingestor.sig != "t=1,v1=abc" {
		t.Fatalf("unexpected signature header: %s", ingestor.sig)
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	ingestor := &fakeIngestor{err: service.ErrSignatureInvalid}
	h := NewBillingHandler(ingestor, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/billing/webhook", strings.NewReader("{}"))
	rr := httptest.NewRecorder()
	h.Webhook(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 so the provider does not retry, got %d", rr.Code)
	}
}

func TestWebhookSignalsRetryOnProcessingError(t *testing.T) {
	ingestor := &fakeIngestor{err: errors.New("db down")}
	h := NewBillingHandler(ingestor, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/billing/webhook", strings.NewReader("{}"))
	rr := httptest.NewRecorder()
	h.Webhook(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 so the provider retries, got %d", rr.Code)
	}
}

func TestWebhookRejectsNonPost(t *testing.T) {
	h := NewBillingHandler(&fakeIngestor{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/billing/webhook", nil)
	rr := httptest.NewRecorder()
	h.Webhook(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}
