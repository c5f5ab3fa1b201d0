package llm

import (
	"context"
	"errors"
)

// Client abstracts text-generation providers. Implementations must honor
// ctx deadlines and return ErrUnavailable-classifiable errors on
// transient provider failure.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompletionRequest captures one generation call.
type CompletionRequest struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float32
}

// ErrUnavailable indicates the provider could not be reached or returned
// a transient error. Callers retry once, then surface it.
var ErrUnavailable = errors.New("text generation unavailable")

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("llm client not configured")

// PlaceholderClient is a stub implementation until provider wiring is
// added; it keeps dev bootstrapping working without credentials.
type PlaceholderClient struct{}

// Complete returns ErrNotConfigured.
func (PlaceholderClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	_ = ctx
	_ = req
	return "", ErrNotConfigured
}
