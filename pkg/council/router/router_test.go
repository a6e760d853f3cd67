package router

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/go-go-golems/gekko/pkg/session"
)

func snapshotWith(mutate func(*session.Snapshot)) session.Snapshot {
	snap := session.Snapshot{
		RoundsDone: map[string]int{},
		MaxRounds:  map[string]int{ResearchDebateID: 2, RiskDebateID: 1},
		Concluded:  map[string]bool{},
	}
	mutate(&snap)
	return snap
}

func TestNext_HappyPath(t *testing.T) {
	assert.Equal(t, StageInvestmentDebate, Next(StageAnalysis, snapshotWith(func(s *session.Snapshot) {
		s.ReportRoles = []string{"market"}
	})))
	assert.Equal(t, StageResearchAdjudication, Next(StageInvestmentDebate, snapshotWith(func(s *session.Snapshot) {
		s.RoundsDone[ResearchDebateID] = 2
	})))
	assert.Equal(t, StageRiskDebate, Next(StageResearchAdjudication, snapshotWith(func(s *session.Snapshot) {
		s.Concluded[ResearchDebateID] = true
	})))
	assert.Equal(t, StageRiskAdjudication, Next(StageRiskDebate, snapshotWith(func(s *session.Snapshot) {
		s.RoundsDone[RiskDebateID] = 1
	})))
	assert.Equal(t, StageDecision, Next(StageRiskAdjudication, snapshotWith(func(s *session.Snapshot) {
		s.Concluded[RiskDebateID] = true
	})))
	assert.Equal(t, StageDone, Next(StageDecision, snapshotWith(func(s *session.Snapshot) {
		s.HasDecision = true
	})))
}

func TestNext_MissingOutputsMapToFailed(t *testing.T) {
	empty := snapshotWith(func(*session.Snapshot) {})
	assert.Equal(t, StageFailed, Next(StageAnalysis, empty))
	assert.Equal(t, StageFailed, Next(StageInvestmentDebate, empty))
	assert.Equal(t, StageFailed, Next(StageResearchAdjudication, empty))
	assert.Equal(t, StageFailed, Next(StageDecision, empty))
}

func TestNext_CancellationWinsFromAnyStage(t *testing.T) {
	cancelled := snapshotWith(func(s *session.Snapshot) {
		s.Cancelled = true
		s.ReportRoles = []string{"market"}
		s.HasDecision = true
	})
	for _, stage := range []Stage{
		StageAnalysis, StageInvestmentDebate, StageResearchAdjudication,
		StageRiskDebate, StageRiskAdjudication, StageDecision,
	} {
		assert.Equal(t, StageCancelled, Next(stage, cancelled), "from %s", stage)
	}
}

func TestNext_TerminalStagesAbsorb(t *testing.T) {
	any := snapshotWith(func(s *session.Snapshot) { s.HasDecision = true })
	assert.Equal(t, StageDone, Next(StageDone, any))
	assert.Equal(t, StageFailed, Next(StageFailed, any))
	assert.Equal(t, StageCancelled, Next(StageCancelled, snapshotWith(func(s *session.Snapshot) {
		s.Cancelled = true
	})))
}

func TestNext_EarlyConvergenceStillAdvances(t *testing.T) {
	// one completed round is enough when the debate converged before the cap
	assert.Equal(t, StageResearchAdjudication, Next(StageInvestmentDebate, snapshotWith(func(s *session.Snapshot) {
		s.RoundsDone[ResearchDebateID] = 1
	})))
}

func TestStage_Terminal(t *testing.T) {
	assert.True(t, StageDone.Terminal())
	assert.True(t, StageCancelled.Terminal())
	assert.True(t, StageFailed.Terminal())
	assert.False(t, StageAnalysis.Terminal())
	assert.False(t, StageDecision.Terminal())
}
