package model

import (
	"encoding/json"
	"time"
)

// Job statuses. Transitions are one-directional:
// pending -> processing -> completed | failed.
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// Job types.
const (
	JobTypeTextGeneration = "text-generation"
)

// Job represents one unit of asynchronous AI work.
type Job struct {
	ID             string          `db:"id" json:"id"`
	Type           string          `db:"type" json:"type"`
	Status         string          `db:"status" json:"status"`
	Input          json.RawMessage `db:"input" json:"input"`
	Output         json.RawMessage `db:"output" json:"output,omitempty"`
	Cost           *float64        `db:"cost" json:"cost,omitempty"`
	UserID         string          `db:"user_id" json:"user_id"`
	OrganizationID *string         `db:"organization_id" json:"organization_id,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}
