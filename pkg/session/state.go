package session

import (
	"sync"
	"time"
)

// SharedState is the single mutable record of one analysis session. All
// methods are safe for concurrent use; the analyst stage appends reports
// from parallel goroutines.
type SharedState struct {
	mu sync.Mutex

	reports     map[string]*Report
	reportOrder []string
	failedRoles []string

	debates map[string]*debateState

	decision  *Decision
	cancelled bool
}

type debateState struct {
	turns      []DebateTurn
	rounds     map[Side]int
	maxRounds  int
	conclusion *Conclusion
}

// NewSharedState creates an empty state. Debates must be registered before
// turns can be appended to them.
func NewSharedState() *SharedState {
	return &SharedState{
		reports: make(map[string]*Report),
		debates: make(map[string]*debateState),
	}
}

// RegisterDebate declares a debate instance and its per-side round maximum.
func (s *SharedState) RegisterDebate(debateID string, maxRounds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.debates[debateID]; ok {
		return
	}
	s.debates[debateID] = &debateState{
		rounds:    map[Side]int{},
		maxRounds: maxRounds,
	}
}

// AppendReport records the report for a role. At most one report per role
// per session.
func (s *SharedState) AppendReport(report *Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled {
		return ErrSessionCancelled
	}
	if _, ok := s.reports[report.Role]; ok {
		return ErrDuplicateRole
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now()
	}
	s.reports[report.Role] = report
	s.reportOrder = append(s.reportOrder, report.Role)
	return nil
}

// RecordAnalystFailure marks a role as terminally failed. The stage still
// completes; the router sees a partial-stage condition.
func (s *SharedState) RecordAnalystFailure(role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled {
		return ErrSessionCancelled
	}
	s.failedRoles = append(s.failedRoles, role)
	return nil
}

// AppendTurn appends one debate turn, assigning the next round index for the
// side. The round counter is monotonic and never exceeds the registered
// maximum.
func (s *SharedState) AppendTurn(debateID string, side Side, content string, failed bool) (*DebateTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled {
		return nil, ErrSessionCancelled
	}
	d, ok := s.debates[debateID]
	if !ok {
		return nil, ErrUnknownDebate
	}
	if d.rounds[side]+1 > d.maxRounds {
		return nil, ErrRoundLimitExceeded
	}
	d.rounds[side]++
	turn := DebateTurn{
		DebateID:  debateID,
		Side:      side,
		Round:     d.rounds[side],
		Content:   content,
		Failed:    failed,
		CreatedAt: time.Now(),
	}
	d.turns = append(d.turns, turn)
	return &turn, nil
}

// SetConclusion records the adjudicated conclusion for a debate. Exactly one
// conclusion per debate instance.
func (s *SharedState) SetConclusion(c *Conclusion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled {
		return ErrSessionCancelled
	}
	d, ok := s.debates[c.DebateID]
	if !ok {
		return ErrUnknownDebate
	}
	if d.conclusion != nil {
		return ErrAlreadyConcluded
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	d.conclusion = c
	return nil
}

// SetDecision records the final decision.
func (s *SharedState) SetDecision(d *Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled {
		return ErrSessionCancelled
	}
	s.decision = d
	return nil
}

// Cancel sets the cancellation flag. After this every mutator fails with
// ErrSessionCancelled; in-flight external calls finish but their results are
// discarded at the next append.
func (s *SharedState) Cancel() {
	s.mu.Lock()
	s.cancelled = true
	s.mu.Unlock()
}

// Cancelled reports whether the cancellation flag is set.
func (s *SharedState) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// Report returns the report for a role, if present.
func (s *SharedState) Report(role string) (*Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[role]
	return r, ok
}

// Reports returns all reports in append order.
func (s *SharedState) Reports() []*Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Report, 0, len(s.reportOrder))
	for _, role := range s.reportOrder {
		out = append(out, s.reports[role])
	}
	return out
}

// FailedRoles returns the roles recorded as terminally failed.
func (s *SharedState) FailedRoles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.failedRoles))
	copy(out, s.failedRoles)
	return out
}

// Turns returns a chronological copy of all turns in a debate.
func (s *SharedState) Turns(debateID string) []DebateTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.debates[debateID]
	if !ok {
		return nil
	}
	out := make([]DebateTurn, len(d.turns))
	copy(out, d.turns)
	return out
}

// Rounds returns the current round count for one side of a debate.
func (s *SharedState) Rounds(debateID string, side Side) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.debates[debateID]
	if !ok {
		return 0
	}
	return d.rounds[side]
}

// Conclusion returns the conclusion for a debate, if present.
func (s *SharedState) Conclusion(debateID string) (*Conclusion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.debates[debateID]
	if !ok || d.conclusion == nil {
		return nil, false
	}
	return d.conclusion, true
}

// Decision returns the final decision, or nil before synthesis.
func (s *SharedState) Decision() *Decision {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decision
}

// Snapshot is an immutable view of the state used by the router's pure
// transition function.
type Snapshot struct {
	ReportRoles []string
	FailedRoles []string
	// RoundsDone maps debate id to the minimum round count across both
	// sides, i.e. the number of completed full rounds.
	RoundsDone  map[string]int
	MaxRounds   map[string]int
	Concluded   map[string]bool
	HasDecision bool
	Cancelled   bool
}

// Snapshot captures the current state for routing decisions.
func (s *SharedState) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ReportRoles: append([]string(nil), s.reportOrder...),
		FailedRoles: append([]string(nil), s.failedRoles...),
		RoundsDone:  make(map[string]int, len(s.debates)),
		MaxRounds:   make(map[string]int, len(s.debates)),
		Concluded:   make(map[string]bool, len(s.debates)),
		HasDecision: s.decision != nil,
		Cancelled:   s.cancelled,
	}
	for id, d := range s.debates {
		done := d.rounds[SideProponent]
		if opp := d.rounds[SideOpponent]; opp < done {
			done = opp
		}
		snap.RoundsDone[id] = done
		snap.MaxRounds[id] = d.maxRounds
		snap.Concluded[id] = d.conclusion != nil
	}
	return snap
}
