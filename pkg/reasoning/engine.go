package reasoning

import (
	"context"
)

// Request describes one reasoning call. Model selects between the configured
// deep-think and quick-think identifiers; the engine does not interpret it
// beyond passing it to the backend.
type Request struct {
	Model  string
	System string
	Prompt string
}

// Usage reports token consumption for a single call, as far as the backend
// exposes it.
type Usage struct {
	InputTokens  int `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens int `json:"output_tokens" yaml:"output_tokens"`
}

// Response is the result of a completed reasoning call.
type Response struct {
	Text  string
	Usage Usage
}

// Engine is a reasoning backend. Implementations handle provider-specific
// wire logic; callers only see text in, text out. Errors must be classified
// with Transient or Fatal so retry policies can tell them apart.
type Engine interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}
