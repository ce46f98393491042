package dto

import (
	"encoding/json"
	"time"
)

// JobSubmitRequest is the body of a generation job submission.
type JobSubmitRequest struct {
	Prompt         string  `json:"prompt" validate:"required"`
	Provider       string  `json:"provider" validate:"omitempty,oneof=openai google"`
	Model          string  `json:"model"`
	OrganizationID *string `json:"organization_id"`
}

// JobSubmitResponse acknowledges a submission before any processing happens.
type JobSubmitResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// JobResponse is the full job record returned by the status endpoint.
type JobResponse struct {
	ID             string          `json:"id"`
	Type           string          `json:"type"`
	Status         string          `json:"status"`
	Output         json.RawMessage `json:"output,omitempty"`
	Cost           *float64        `json:"cost,omitempty"`
	OrganizationID *string         `json:"organization_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// UsageRecordDTO is one ledger entry in a usage listing.
type UsageRecordDTO struct {
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	TotalTokens  int       `json:"total_tokens"`
	Cost         float64   `json:"cost"`
	JobID        string    `json:"job_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// UsageResponse lists recent usage with the running total cost.
type UsageResponse struct {
	Records   []UsageRecordDTO `json:"records"`
	TotalCost float64          `json:"total_cost"`
}
