package model

import "time"

// AIUsage is an append-only ledger entry recorded when a job completes.
// A failed job never produces a usage row.
type AIUsage struct {
	ID             int64     `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user_id"`
	OrganizationID *string   `db:"organization_id" json:"organization_id,omitempty"`
	Provider       string    `db:"provider" json:"provider"`
	Model          string    `db:"model" json:"model"`
	InputTokens    int       `db:"input_tokens" json:"input_tokens"`
	OutputTokens   int       `db:"output_tokens" json:"output_tokens"`
	TotalTokens    int       `db:"total_tokens" json:"total_tokens"`
	Cost           float64   `db:"cost" json:"cost"`
	JobID          string    `db:"job_id" json:"job_id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
