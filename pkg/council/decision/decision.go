// Package decision synthesizes the final trading decision from the analyst
// reports and both adjudicated debate conclusions.
package decision

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-go-golems/gekko/pkg/reasoning"
	"github.com/go-go-golems/gekko/pkg/session"
)

// Synthesizer produces the final decision. It must only run after both
// debates are concluded.
type Synthesizer struct {
	ResearchDebateID string
	RiskDebateID     string
	Engine           reasoning.Engine
	Model            string
	Retry            reasoning.RetryPolicy
}

// Synthesize reads all reports and both conclusions and emits the decision.
// Invoked before both conclusions exist it fails with ErrIncompleteState.
func (s *Synthesizer) Synthesize(ctx context.Context, st *session.SharedState) (*session.Decision, error) {
	if st.Cancelled() {
		return nil, session.ErrSessionCancelled
	}

	research, ok := st.Conclusion(s.ResearchDebateID)
	if !ok {
		return nil, session.ErrIncompleteState
	}
	risk, ok := st.Conclusion(s.RiskDebateID)
	if !ok {
		return nil, session.ErrIncompleteState
	}
	reports := st.Reports()
	if len(reports) == 0 {
		return nil, session.ErrIncompleteState
	}

	var b strings.Builder
	b.WriteString("Analyst reports:\n")
	for _, r := range reports {
		b.WriteString(fmt.Sprintf("## %s\n%s\n\n", r.Role, r.Content))
	}
	b.WriteString(fmt.Sprintf("Research conclusion (%s): %s\n\n", research.Stance, research.Summary))
	b.WriteString(fmt.Sprintf("Risk conclusion (%s): %s\n\n", risk.Stance, risk.Summary))
	b.WriteString("Issue the final trading decision. Start with exactly one of BUY, SELL or HOLD, then a rationale that cites the reports and both conclusions.")

	var resp *reasoning.Response
	err := s.Retry.Do(ctx, func(ctx context.Context) error {
		var callErr error
		resp, callErr = s.Engine.Complete(ctx, reasoning.Request{
			Model:  s.Model,
			System: "You are the trader with final authority over this position.",
			Prompt: b.String(),
		})
		return callErr
	})
	if err != nil {
		return nil, err
	}

	supporting := make([]string, 0, len(reports))
	for _, r := range reports {
		supporting = append(supporting, r.Role)
	}

	d := &session.Decision{
		Action:                ParseAction(resp.Text),
		Rationale:             resp.Text,
		SupportingReports:     supporting,
		SupportingConclusions: []string{s.ResearchDebateID, s.RiskDebateID},
	}
	if err := st.SetDecision(d); err != nil {
		return nil, err
	}
	return d, nil
}

var actionRe = regexp.MustCompile(`(?i)\b(buy|sell|hold)\b`)

// ParseAction extracts the action label from the synthesized text. An
// unparseable response defaults to hold.
func ParseAction(text string) session.Action {
	m := actionRe.FindString(text)
	switch strings.ToLower(m) {
	case "buy":
		return session.ActionBuy
	case "sell":
		return session.ActionSell
	default:
		return session.ActionHold
	}
}
