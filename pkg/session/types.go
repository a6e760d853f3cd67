// Package session owns the mutable record of one deliberation run: the
// Session identity and lifecycle, and the SharedState every stage reads and
// appends to. Invariant violations here are programming errors; they surface
// as sentinel errors and are never silently handled.
package session

import (
	"errors"
	"time"
)

var (
	// ErrDuplicateRole is returned when a second report is appended for a
	// role that already has one.
	ErrDuplicateRole = errors.New("session: report already exists for role")
	// ErrRoundLimitExceeded is returned when a debate turn would push a
	// side past its configured round maximum.
	ErrRoundLimitExceeded = errors.New("session: debate round limit exceeded")
	// ErrAlreadyConcluded is returned on a second conclusion for a debate.
	ErrAlreadyConcluded = errors.New("session: debate already concluded")
	// ErrIncompleteState is returned when decision synthesis is invoked
	// before both debate conclusions exist.
	ErrIncompleteState = errors.New("session: conclusions missing for decision synthesis")
	// ErrSessionCancelled is returned by every mutator once the
	// cancellation flag is set. It marks an expected outcome, not a failure.
	ErrSessionCancelled = errors.New("session: cancelled")
	// ErrUnknownDebate is returned for a debate id that was never registered.
	ErrUnknownDebate = errors.New("session: unknown debate id")
)

// Status is the lifecycle state of a Session.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Side tags one of the two positions in a debate.
type Side string

const (
	SideProponent Side = "proponent"
	SideOpponent  Side = "opponent"
)

// Report is the output of one analyst role. Immutable once appended.
type Report struct {
	Role             string
	Content          string
	InsufficientData bool
	CreatedAt        time.Time
}

// DebateTurn is one statement in a debate. Failed turns carry empty content;
// they exist so the round count still advances after exhausted retries.
type DebateTurn struct {
	DebateID  string
	Side      Side
	Round     int // 1-based, strictly increasing per side
	Content   string
	Failed    bool
	CreatedAt time.Time
}

// Conclusion is the adjudicated summary closing one debate instance.
type Conclusion struct {
	DebateID  string
	Summary   string
	Stance    string
	CreatedAt time.Time
}

// Action is the final trading call.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// Decision is the terminal output of a completed session.
type Decision struct {
	Action                Action   `json:"action"`
	Rationale             string   `json:"rationale"`
	SupportingReports     []string `json:"supporting_reports"`
	SupportingConclusions []string `json:"supporting_conclusions"`
}
