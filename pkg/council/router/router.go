// Package router drives the deliberation pipeline: an explicit finite-state
// machine over stage identifiers whose transition function is a pure mapping
// from (current stage, state snapshot) to the next stage.
package router

import (
	"github.com/go-go-golems/gekko/pkg/session"
)

// Stage identifies one pipeline stage.
type Stage string

const (
	StageAnalysis             Stage = "analysis"
	StageInvestmentDebate     Stage = "investment_debate"
	StageResearchAdjudication Stage = "research_adjudication"
	StageRiskDebate           Stage = "risk_debate"
	StageRiskAdjudication     Stage = "risk_adjudication"
	StageDecision             Stage = "decision"
	StageDone                 Stage = "done"
	StageCancelled            Stage = "cancelled"
	StageFailed               Stage = "failed"
)

// Terminal reports whether a stage is absorbing.
func (s Stage) Terminal() bool {
	switch s {
	case StageDone, StageCancelled, StageFailed:
		return true
	}
	return false
}

// Debate instance ids used throughout the pipeline.
const (
	ResearchDebateID = "research"
	RiskDebateID     = "risk"
)

// Next is the pure transition function. The cancellation flag wins from any
// stage. Otherwise a stage advances only when its required state entries are
// present; a stage that ran without producing them maps to StageFailed.
// Completed stages are never revisited.
func Next(current Stage, snap session.Snapshot) Stage {
	if snap.Cancelled {
		return StageCancelled
	}

	switch current {
	case StageAnalysis:
		if len(snap.ReportRoles) > 0 {
			return StageInvestmentDebate
		}
	case StageInvestmentDebate:
		// early convergence may stop before the cap, but at least one full
		// round must exist
		if snap.RoundsDone[ResearchDebateID] >= 1 {
			return StageResearchAdjudication
		}
	case StageResearchAdjudication:
		if snap.Concluded[ResearchDebateID] {
			return StageRiskDebate
		}
	case StageRiskDebate:
		if snap.RoundsDone[RiskDebateID] >= 1 {
			return StageRiskAdjudication
		}
	case StageRiskAdjudication:
		if snap.Concluded[RiskDebateID] {
			return StageDecision
		}
	case StageDecision:
		if snap.HasDecision {
			return StageDone
		}
	case StageDone, StageCancelled, StageFailed:
		return current
	}
	return StageFailed
}
