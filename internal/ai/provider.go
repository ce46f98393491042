package ai

import (
	"context"
	"errors"
)

// ErrProviderUnavailable is returned when a provider cannot be reached at
// all: connection failures, timeouts, 5xx responses. Other generation errors
// mean the provider answered and rejected the request.
var ErrProviderUnavailable = errors.New("provider unavailable")

// Usage carries token counts reported by the provider for one generation.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Generation is the result of a text generation request.
type Generation struct {
	Text  string `json:"text"`
	Usage Usage  `json:"usage"`
}

// Provider generates text for a prompt. Implementations must respect the
// caller's context deadline; a timed-out call is a failure, never left open.
type Provider interface {
	Name() string
	DefaultModel() string
	GenerateText(ctx context.Context, prompt, model string) (*Generation, error)
}
