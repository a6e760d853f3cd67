// Package openaichat provides the reference OpenAI-compatible reasoning
// backend. Any endpoint speaking the chat completions protocol works by
// overriding the base URL.
package openaichat

import (
	"context"
	"errors"
	"net/http"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"

	"github.com/go-go-golems/gekko/pkg/reasoning"
)

// Engine implements reasoning.Engine on top of go-openai.
type Engine struct {
	client *go_openai.Client
}

// NewEngine creates an engine for the given API key. baseURL is optional;
// when empty the default OpenAI endpoint is used.
func NewEngine(apiKey, baseURL string) (*Engine, error) {
	if apiKey == "" {
		return nil, reasoning.Fatalf("openaichat: no API key configured")
	}
	config := go_openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Engine{client: go_openai.NewClientWithConfig(config)}, nil
}

func (e *Engine) Complete(ctx context.Context, req reasoning.Request) (*reasoning.Response, error) {
	messages := []go_openai.ChatCompletionMessage{}
	if req.System != "" {
		messages = append(messages, go_openai.ChatCompletionMessage{
			Role:    go_openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, go_openai.ChatCompletionMessage{
		Role:    go_openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	resp, err := e.client.CreateChatCompletion(ctx, go_openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
	})
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Choices) == 0 {
		return nil, reasoning.Transientf("openaichat: empty choice list")
	}

	log.Debug().
		Str("model", req.Model).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("openaichat: completion done")

	return &reasoning.Response{
		Text: resp.Choices[0].Message.Content,
		Usage: reasoning.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

// classify maps API failures onto the reasoning error taxonomy. Rate limits,
// server errors and timeouts are transient; auth and request shape problems
// are fatal.
func classify(err error) error {
	var apiErr *go_openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return reasoning.Transient(pkgerrors.Wrap(err, "rate limited"))
		case apiErr.HTTPStatusCode >= 500:
			return reasoning.Transient(pkgerrors.Wrap(err, "server error"))
		case apiErr.HTTPStatusCode == http.StatusUnauthorized,
			apiErr.HTTPStatusCode == http.StatusForbidden:
			return reasoning.Fatal(pkgerrors.Wrap(err, "invalid credentials"))
		case apiErr.HTTPStatusCode == http.StatusBadRequest,
			apiErr.HTTPStatusCode == http.StatusNotFound:
			return reasoning.Fatal(pkgerrors.Wrap(err, "invalid request"))
		}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	// network flakiness, unexpected EOF, deadline expiry
	return reasoning.Transient(err)
}
