// Package accounting accumulates per-session reasoning usage. It observes
// calls through a middleware hook and never influences control flow.
package accounting

import (
	"context"
	"sync"

	"github.com/go-go-golems/gekko/pkg/reasoning"
)

// Stats is the accumulated usage for one session.
type Stats struct {
	Calls        int `json:"calls"`
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Store keeps usage stats keyed by session id.
type Store struct {
	mu    sync.RWMutex
	stats map[string]*Stats
}

func NewStore() *Store {
	return &Store{stats: make(map[string]*Stats)}
}

// Record adds one call's usage to a session's totals.
func (s *Store) Record(sessionID string, usage reasoning.Usage) {
	if sessionID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stats[sessionID]
	if !ok {
		st = &Stats{}
		s.stats[sessionID] = st
	}
	st.Calls++
	st.InputTokens += usage.InputTokens
	st.OutputTokens += usage.OutputTokens
}

// SessionStats returns a copy of the stats for a session. Unknown sessions
// return zero stats.
func (s *Store) SessionStats(sessionID string) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.stats[sessionID]; ok {
		return *st
	}
	return Stats{}
}

// NewMiddleware returns a reasoning middleware that records usage for the
// session id attached to the context. Failed calls count towards Calls with
// whatever usage the backend reported before failing (usually none). The
// middleware never alters the result or the error.
func NewMiddleware(store *Store) reasoning.Middleware {
	return func(next reasoning.HandlerFunc) reasoning.HandlerFunc {
		return func(ctx context.Context, req reasoning.Request) (*reasoning.Response, error) {
			resp, err := next(ctx, req)
			sessionID := reasoning.SessionIDFromContext(ctx)
			if resp != nil {
				store.Record(sessionID, resp.Usage)
			} else {
				store.Record(sessionID, reasoning.Usage{})
			}
			return resp, err
		}
	}
}
