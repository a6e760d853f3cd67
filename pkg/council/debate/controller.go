// Package debate implements the generic two-sided bounded debate engine.
// The same controller drives the investment debate and the risk debate; only
// the participants, the adjudicator and the round cap differ.
package debate

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/gekko/pkg/reasoning"
	"github.com/go-go-golems/gekko/pkg/session"
)

// Transcript is the ordered list of turns taken so far in one debate.
type Transcript []session.DebateTurn

// Participant takes turns for one side of a debate. Each turn sees the full
// prior transcript plus the upstream analyst reports.
type Participant interface {
	Side() session.Side
	TakeTurn(ctx context.Context, transcript Transcript, reports []*session.Report) (string, error)
}

// Adjudicator reads the full transcript once the rounds are done and
// produces the single conclusion closing the debate.
type Adjudicator interface {
	Adjudicate(ctx context.Context, transcript Transcript, reports []*session.Report) (*session.Conclusion, error)
}

// ConvergedFunc is an optional early-stop hook. When it returns true after a
// completed round, the controller skips the remaining rounds and moves to
// adjudication. The round cap stays authoritative either way.
type ConvergedFunc func(transcript Transcript) bool

// Controller runs one bounded debate instance.
type Controller struct {
	DebateID    string
	Proponent   Participant
	Opponent    Participant
	Adjudicator Adjudicator
	MaxRounds   int
	Retry       reasoning.RetryPolicy
	// FailFast aborts the debate on exhausted retries instead of recording
	// a degraded turn and advancing.
	FailFast  bool
	Converged ConvergedFunc
}

// RunRounds alternates proponent and opponent until the round cap (or the
// early-stop hook) is hit. Transient turn failures are retried; exhausted
// retries append a degraded turn and the round advances, unless FailFast.
func (c *Controller) RunRounds(ctx context.Context, st *session.SharedState) error {
	reports := st.Reports()

	for round := 1; round <= c.MaxRounds; round++ {
		for _, p := range []Participant{c.Proponent, c.Opponent} {
			if st.Cancelled() {
				return session.ErrSessionCancelled
			}
			if err := c.takeTurn(ctx, st, p, reports); err != nil {
				return err
			}
		}
		if c.Converged != nil && round < c.MaxRounds && c.Converged(st.Turns(c.DebateID)) {
			log.Debug().Str("debate_id", c.DebateID).Int("round", round).
				Msg("debate converged early")
			break
		}
	}
	return nil
}

func (c *Controller) takeTurn(ctx context.Context, st *session.SharedState, p Participant, reports []*session.Report) error {
	var content string
	err := c.Retry.Do(ctx, func(ctx context.Context) error {
		var turnErr error
		content, turnErr = p.TakeTurn(ctx, st.Turns(c.DebateID), reports)
		return turnErr
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || reasoning.IsFatal(err) || c.FailFast {
			return err
		}
		log.Warn().Err(err).Str("debate_id", c.DebateID).Str("side", string(p.Side())).
			Msg("turn failed after retries, recording degraded turn")
		_, appendErr := st.AppendTurn(c.DebateID, p.Side(), "", true)
		return appendErr
	}
	_, appendErr := st.AppendTurn(c.DebateID, p.Side(), content, false)
	return appendErr
}

// RunAdjudication produces the debate's single conclusion. A second call for
// the same debate fails with ErrAlreadyConcluded via the shared state guard.
func (c *Controller) RunAdjudication(ctx context.Context, st *session.SharedState) error {
	if st.Cancelled() {
		return session.ErrSessionCancelled
	}

	var conclusion *session.Conclusion
	err := c.Retry.Do(ctx, func(ctx context.Context) error {
		var adjErr error
		conclusion, adjErr = c.Adjudicator.Adjudicate(ctx, st.Turns(c.DebateID), st.Reports())
		return adjErr
	})
	if err != nil {
		return err
	}
	conclusion.DebateID = c.DebateID
	if conclusion.CreatedAt.IsZero() {
		conclusion.CreatedAt = time.Now()
	}
	return st.SetConclusion(conclusion)
}
