package debate

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-go-golems/gekko/pkg/reasoning"
	"github.com/go-go-golems/gekko/pkg/session"
)

// LLMParticipant takes turns by prompting a reasoning engine with the
// analyst reports and the debate transcript so far.
type LLMParticipant struct {
	Name    string
	SideTag session.Side
	// Stance is the position the participant argues for, e.g. "bullish
	// researcher" or "conservative risk officer".
	Stance string
	Engine reasoning.Engine
	Model  string
}

func (p *LLMParticipant) Side() session.Side { return p.SideTag }

func (p *LLMParticipant) TakeTurn(ctx context.Context, transcript Transcript, reports []*session.Report) (string, error) {
	prompt := buildTurnPrompt(transcript, reports)
	resp, err := p.Engine.Complete(ctx, reasoning.Request{
		Model:  p.Model,
		System: fmt.Sprintf("You are the %s (%s). Argue your position against the other side, grounded in the analyst reports. Be concise and concrete.", p.Name, p.Stance),
		Prompt: prompt,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// LLMAdjudicator closes a debate by summarizing the transcript into a single
// conclusion with a stance label.
type LLMAdjudicator struct {
	Name   string
	Engine reasoning.Engine
	Model  string
}

func (a *LLMAdjudicator) Adjudicate(ctx context.Context, transcript Transcript, reports []*session.Report) (*session.Conclusion, error) {
	prompt := buildTurnPrompt(transcript, reports) +
		"\n\nAs the adjudicator, weigh both sides and state your verdict. " +
		"Start your answer with one of BULLISH, BEARISH or NEUTRAL, then justify it."
	resp, err := a.Engine.Complete(ctx, reasoning.Request{
		Model:  a.Model,
		System: fmt.Sprintf("You are the %s. You have the final word on this debate.", a.Name),
		Prompt: prompt,
	})
	if err != nil {
		return nil, err
	}
	return &session.Conclusion{
		Summary: resp.Text,
		Stance:  stanceFromText(resp.Text),
	}, nil
}

func buildTurnPrompt(transcript Transcript, reports []*session.Report) string {
	var b strings.Builder
	b.WriteString("Analyst reports:\n")
	for _, r := range reports {
		b.WriteString(fmt.Sprintf("## %s\n", r.Role))
		if r.InsufficientData {
			b.WriteString("(insufficient data)\n")
		}
		b.WriteString(r.Content)
		b.WriteString("\n\n")
	}
	if len(transcript) > 0 {
		b.WriteString("Debate so far:\n")
		for _, t := range transcript {
			if t.Failed {
				b.WriteString(fmt.Sprintf("[%s round %d] (no statement)\n", t.Side, t.Round))
				continue
			}
			b.WriteString(fmt.Sprintf("[%s round %d] %s\n", t.Side, t.Round, t.Content))
		}
	}
	return b.String()
}

func stanceFromText(text string) string {
	head := strings.ToLower(text)
	if len(head) > 200 {
		head = head[:200]
	}
	switch {
	case strings.Contains(head, "bullish"):
		return "bullish"
	case strings.Contains(head, "bearish"):
		return "bearish"
	default:
		return "neutral"
	}
}
