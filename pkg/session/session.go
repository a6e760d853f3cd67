package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/go-go-golems/gekko/pkg/config"
)

// Session identifies one deliberation run for a single instrument and as-of
// date. It owns its configuration snapshot and SharedState for its whole
// lifetime.
type Session struct {
	ID         string
	Instrument string
	Market     string
	AsOfDate   time.Time
	Settings   *config.Settings
	State      *SharedState

	mu         sync.Mutex
	status     Status
	failReason error
}

// New creates a running session with a cloned settings snapshot.
func New(instrument, market string, asOfDate time.Time, settings *config.Settings) *Session {
	return &Session{
		ID:         uuid.NewString(),
		Instrument: instrument,
		Market:     market,
		AsOfDate:   asOfDate,
		Settings:   settings.Clone(),
		State:      NewSharedState(),
		status:     StatusRunning,
	}
}

// Status returns the current lifecycle status.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// FailReason returns the error recorded when the session failed.
func (s *Session) FailReason() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failReason
}

// SetStatus records a terminal status. Once terminal, further transitions
// are ignored so a late cancellation cannot overwrite a completed run.
func (s *Session) SetStatus(status Status, reason error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusRunning {
		return
	}
	s.status = status
	s.failReason = reason
}

// Cancel requests cancellation. In-flight external calls may finish, but
// their results are discarded and the router transitions to cancelled on its
// next observation.
func (s *Session) Cancel() {
	s.State.Cancel()
}

// Registry maps session ids to live sessions. It replaces any ambient
// global lookup; embedders hold one registry and pass it where needed.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

func (r *Registry) Register(s *Session) {
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// List returns all registered sessions.
func (r *Registry) List() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}
