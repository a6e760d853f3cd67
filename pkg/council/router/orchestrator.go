package router

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/gekko/pkg/council/analysts"
	"github.com/go-go-golems/gekko/pkg/council/debate"
	"github.com/go-go-golems/gekko/pkg/council/decision"
	"github.com/go-go-golems/gekko/pkg/dataflows"
	"github.com/go-go-golems/gekko/pkg/events"
	"github.com/go-go-golems/gekko/pkg/reasoning"
	"github.com/go-go-golems/gekko/pkg/session"
)

// Orchestrator runs one session's pipeline as a single logical thread of
// control. Only the analyst stage parallelizes internally; every other stage
// is causally ordered.
type Orchestrator struct {
	sess      *session.Session
	publisher message.Publisher
	handlers  map[Stage]func(ctx context.Context) error
}

// Config assembles an orchestrator. Engine should already carry whatever
// middleware the embedder wants (logging, usage accounting); the orchestrator
// adds the configured call timeout on top.
type Config struct {
	Session   *session.Session
	Engine    reasoning.Engine
	Resolver  *dataflows.Resolver
	Publisher message.Publisher
	// Analysts overrides the default analyst roster; nil means defaults.
	Analysts []analysts.Analyst
	// Converged is the optional early-stop hook for both debates.
	Converged debate.ConvergedFunc
}

// NewOrchestrator wires the stages for a session from its settings snapshot.
func NewOrchestrator(cfg Config) (*Orchestrator, error) {
	if cfg.Session == nil {
		return nil, errors.New("router: session is nil")
	}
	if cfg.Engine == nil {
		return nil, errors.New("router: engine is nil")
	}
	if cfg.Resolver == nil {
		return nil, errors.New("router: resolver is nil")
	}

	sess := cfg.Session
	settings := sess.Settings

	sess.State.RegisterDebate(ResearchDebateID, settings.MaxDebateRounds)
	sess.State.RegisterDebate(RiskDebateID, settings.MaxRiskRounds)

	// every external call carries the configured timeout: reasoning calls
	// through the middleware, provider fetches through the resolver
	engine := cfg.Engine
	if settings.CallTimeout > 0 {
		engine = reasoning.NewEngineWithMiddleware(cfg.Engine,
			reasoning.NewTimeoutMiddleware(settings.CallTimeout))
		cfg.Resolver.SetFetchTimeout(settings.CallTimeout)
	}

	roster := cfg.Analysts
	if roster == nil {
		roster = analysts.DefaultAnalysts()
	}
	stage := &analysts.Stage{
		Analysts: roster,
		Depth:    settings.AnalysisDepth,
		Deps: &analysts.Deps{
			Resolver:   cfg.Resolver,
			Engine:     engine,
			Model:      settings.QuickThinkModel,
			Retry:      settings.Retry,
			Instrument: sess.Instrument,
			Market:     dataflows.Market(sess.Market),
			AsOfDate:   sess.AsOfDate,
		},
	}

	research := &debate.Controller{
		DebateID: ResearchDebateID,
		Proponent: &debate.LLMParticipant{
			Name: "bull researcher", SideTag: session.SideProponent,
			Stance: "bullish case", Engine: engine, Model: settings.DeepThinkModel,
		},
		Opponent: &debate.LLMParticipant{
			Name: "bear researcher", SideTag: session.SideOpponent,
			Stance: "bearish case", Engine: engine, Model: settings.DeepThinkModel,
		},
		Adjudicator: &debate.LLMAdjudicator{
			Name: "research manager", Engine: engine, Model: settings.DeepThinkModel,
		},
		MaxRounds: settings.MaxDebateRounds,
		Retry:     settings.Retry,
		Converged: cfg.Converged,
	}

	risk := &debate.Controller{
		DebateID: RiskDebateID,
		Proponent: &debate.LLMParticipant{
			Name: "aggressive risk analyst", SideTag: session.SideProponent,
			Stance: "risk-seeking position", Engine: engine, Model: settings.DeepThinkModel,
		},
		Opponent: &debate.LLMParticipant{
			Name: "conservative risk analyst", SideTag: session.SideOpponent,
			Stance: "capital-preservation position", Engine: engine, Model: settings.DeepThinkModel,
		},
		Adjudicator: &debate.LLMAdjudicator{
			Name: "portfolio manager", Engine: engine, Model: settings.DeepThinkModel,
		},
		MaxRounds: settings.MaxRiskRounds,
		Retry:     settings.Retry,
		Converged: cfg.Converged,
	}

	synth := &decision.Synthesizer{
		ResearchDebateID: ResearchDebateID,
		RiskDebateID:     RiskDebateID,
		Engine:           engine,
		Model:            settings.DeepThinkModel,
		Retry:            settings.Retry,
	}

	o := &Orchestrator{
		sess:      sess,
		publisher: cfg.Publisher,
	}
	o.handlers = map[Stage]func(ctx context.Context) error{
		StageAnalysis: func(ctx context.Context) error {
			return stage.Run(ctx, sess.State)
		},
		StageInvestmentDebate: func(ctx context.Context) error {
			return research.RunRounds(ctx, sess.State)
		},
		StageResearchAdjudication: func(ctx context.Context) error {
			return research.RunAdjudication(ctx, sess.State)
		},
		StageRiskDebate: func(ctx context.Context) error {
			return risk.RunRounds(ctx, sess.State)
		},
		StageRiskAdjudication: func(ctx context.Context) error {
			return risk.RunAdjudication(ctx, sess.State)
		},
		StageDecision: func(ctx context.Context) error {
			_, err := synth.Synthesize(ctx, sess.State)
			return err
		},
	}
	return o, nil
}

// Run drives the pipeline to a terminal stage and records the session's
// terminal status. A session always terminates in exactly one of
// completed-with-decision, cancelled, or failed-with-reason.
func (o *Orchestrator) Run(ctx context.Context) error {
	ctx = reasoning.WithSessionID(ctx, o.sess.ID)
	lg := log.With().Str("session_id", o.sess.ID).Str("instrument", o.sess.Instrument).Logger()

	stage := StageAnalysis
	prev := stage
	for !stage.Terminal() {
		if o.sess.State.Cancelled() {
			stage = StageCancelled
			break
		}

		o.publish(stage, events.StageStarted)
		lg.Info().Str("stage", string(stage)).Msg("entering stage")

		err := o.handlers[stage](ctx)
		snap := o.sess.State.Snapshot()

		switch {
		case errors.Is(err, session.ErrSessionCancelled) || snap.Cancelled:
			stage = StageCancelled
		case err != nil:
			lg.Error().Err(err).Str("stage", string(stage)).Msg("stage failed")
			o.publish(stage, events.StageFailed)
			o.sess.SetStatus(session.StatusFailed, err)
			o.publish(StageFailed, events.StageFailed)
			return err
		default:
			status := events.StageCompleted
			if stage == StageAnalysis && len(snap.FailedRoles) > 0 {
				status = events.StagePartial
			}
			o.publish(stage, status)
			prev = stage
			stage = Next(stage, snap)
		}
	}

	switch stage {
	case StageDone:
		o.sess.SetStatus(session.StatusCompleted, nil)
		o.publish(StageDone, events.StageCompleted)
		lg.Info().Str("action", string(o.sess.State.Decision().Action)).Msg("session completed")
		return nil
	case StageCancelled:
		o.sess.SetStatus(session.StatusCancelled, nil)
		o.publish(StageCancelled, events.StageCancelled)
		lg.Info().Msg("session cancelled")
		return session.ErrSessionCancelled
	default:
		// Next mapped a stage that ran without producing its outputs
		err := errors.Errorf("router: stage %s produced no outputs", prev)
		o.sess.SetStatus(session.StatusFailed, err)
		o.publish(StageFailed, events.StageFailed)
		return err
	}
}

func (o *Orchestrator) publish(stage Stage, status events.StageStatus) {
	if err := events.PublishStage(o.publisher, events.StageEvent{
		SessionID: o.sess.ID,
		Stage:     string(stage),
		Status:    status,
	}); err != nil {
		log.Warn().Err(err).Msg("failed to publish stage event")
	}
}
