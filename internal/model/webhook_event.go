package model

import (
	"encoding/json"
	"time"
)

// Webhook event processing statuses. An event is inserted as received and
// only reaches processed once its dispatch has run; received and failed are
// non-terminal, so a replayed delivery of such an event dispatches again.
const (
	WebhookEventStatusReceived  = "received"
	WebhookEventStatusProcessed = "processed"
	WebhookEventStatusSkipped   = "skipped"
	WebhookEventStatusFailed    = "failed"
)

// WebhookEvent is the durable record of one externally delivered event.
// (source, external_id) is unique so a replayed delivery never creates a
// second row or triggers side effects twice.
type WebhookEvent struct {
	ID         int64           `db:"id" json:"id"`
	Source     string          `db:"source" json:"source"`
	ExternalID string          `db:"external_id" json:"external_id"`
	Type       string          `db:"type" json:"type"`
	Data       json.RawMessage `db:"data" json:"data"`
	Status     string          `db:"status" json:"status"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}
