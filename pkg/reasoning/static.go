package reasoning

import (
	"context"
	"sync"
)

// StaticEngine replays scripted responses in order. It backs the "static"
// llm_provider setting and is the deterministic stand-in used throughout the
// tests: identical inputs replayed against it produce identical outputs.
type StaticEngine struct {
	mu        sync.Mutex
	responses []string
	next      int
	calls     []Request
}

// NewStaticEngine creates an engine that returns the given responses in
// sequence. Once exhausted it keeps returning the last response.
func NewStaticEngine(responses ...string) *StaticEngine {
	return &StaticEngine{responses: responses}
}

func (e *StaticEngine) Complete(_ context.Context, req Request) (*Response, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.calls = append(e.calls, req)
	if len(e.responses) == 0 {
		return &Response{Text: ""}, nil
	}
	idx := e.next
	if idx >= len(e.responses) {
		idx = len(e.responses) - 1
	} else {
		e.next++
	}
	text := e.responses[idx]
	return &Response{
		Text: text,
		Usage: Usage{
			InputTokens:  len(req.Prompt) / 4,
			OutputTokens: len(text) / 4,
		},
	}, nil
}

// Calls returns a copy of every request seen so far.
func (e *StaticEngine) Calls() []Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Request, len(e.calls))
	copy(out, e.calls)
	return out
}
