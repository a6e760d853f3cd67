package analysts

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/gekko/pkg/session"
)

// Stage fans the enabled analyst roles out concurrently and joins before
// completing. One role's terminal failure is recorded in the shared state
// and does not block the others.
type Stage struct {
	Analysts []Analyst
	Deps     *Deps
	// Depth gates optional roles; roles with MinDepth above it are skipped.
	Depth int
}

// Run executes every enabled role. It returns an error only when the
// context is cancelled, the session is cancelled, or every enabled role
// failed terminally; a partial failure leaves the stage complete with the
// failed roles recorded.
func (st *Stage) Run(ctx context.Context, state *session.SharedState) error {
	enabled := make([]Analyst, 0, len(st.Analysts))
	for _, a := range st.Analysts {
		if a.MinDepth() <= st.Depth {
			enabled = append(enabled, a)
		}
	}
	if len(enabled) == 0 {
		return errors.New("analysts: no roles enabled at this depth")
	}

	eg := errgroup.Group{}
	for _, a := range enabled {
		a := a
		eg.Go(func() error {
			report, err := a.ProduceReport(ctx, st.Deps)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Warn().Err(err).Str("role", a.Role()).
					Msg("analyst failed terminally, recording partial stage")
				return state.RecordAnalystFailure(a.Role())
			}
			return state.AppendReport(report)
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	if len(state.Reports()) == 0 {
		return errors.New("analysts: every enabled role failed")
	}
	return nil
}
