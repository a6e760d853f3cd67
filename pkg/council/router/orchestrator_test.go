package router

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/gekko/pkg/config"
	"github.com/go-go-golems/gekko/pkg/council/analysts"
	"github.com/go-go-golems/gekko/pkg/dataflows"
	"github.com/go-go-golems/gekko/pkg/events"
	"github.com/go-go-golems/gekko/pkg/reasoning"
	"github.com/go-go-golems/gekko/pkg/session"
)

type fakeAnalyst struct {
	role    string
	produce func(ctx context.Context, deps *analysts.Deps) (*session.Report, error)
}

func (a *fakeAnalyst) Role() string  { return a.role }
func (a *fakeAnalyst) MinDepth() int { return 1 }
func (a *fakeAnalyst) ProduceReport(ctx context.Context, deps *analysts.Deps) (*session.Report, error) {
	return a.produce(ctx, deps)
}

func reportingAnalyst(role string) analysts.Analyst {
	return &fakeAnalyst{role: role, produce: func(context.Context, *analysts.Deps) (*session.Report, error) {
		return &session.Report{Role: role, Content: role + " looks fine"}, nil
	}}
}

type engineFunc func(ctx context.Context, req reasoning.Request) (*reasoning.Response, error)

func (f engineFunc) Complete(ctx context.Context, req reasoning.Request) (*reasoning.Response, error) {
	return f(ctx, req)
}

func testSettings() *config.Settings {
	s := config.Default()
	s.LLMProvider = "static"
	s.MaxDebateRounds = 2
	s.MaxRiskRounds = 1
	s.AnalysisDepth = 1
	s.Retry = reasoning.RetryPolicy{MaxRetries: 1, BackoffBase: time.Millisecond, BackoffFactor: 1}
	return s
}

// pipeline scripts: 4 research turns, research verdict, 2 risk turns, risk
// verdict, final decision.
func scriptedResponses() []string {
	return []string{
		"bull r1", "bear r1", "bull r2", "bear r2",
		"BULLISH. The bull case is stronger.",
		"risky r1", "safe r1",
		"NEUTRAL. Size the position modestly.",
		"BUY. Market and fundamentals support entry; research is bullish and risk is manageable.",
	}
}

func newTestOrchestrator(t *testing.T, engine reasoning.Engine, pub *gochannel.GoChannel) (*Orchestrator, *session.Session) {
	t.Helper()
	sess := session.New("AAPL", "us", time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), testSettings())
	resolver := dataflows.NewResolver([]dataflows.Tier{dataflows.NewMemoryTier("memory", 0)}, nil)

	var publisher *gochannel.GoChannel = pub
	cfg := Config{
		Session:  sess,
		Engine:   engine,
		Resolver: resolver,
		Analysts: []analysts.Analyst{reportingAnalyst("market"), reportingAnalyst("fundamentals")},
	}
	if publisher != nil {
		cfg.Publisher = publisher
	}
	o, err := NewOrchestrator(cfg)
	require.NoError(t, err)
	return o, sess
}

func TestOrchestrator_FullPipelineCompletesWithDecision(t *testing.T) {
	engine := reasoning.NewStaticEngine(scriptedResponses()...)
	o, sess := newTestOrchestrator(t, engine, nil)

	require.NoError(t, o.Run(context.Background()))
	require.Equal(t, session.StatusCompleted, sess.Status())

	// max_debate_rounds = 2: exactly 4 investment turns before one conclusion
	research := sess.State.Turns(ResearchDebateID)
	require.Len(t, research, 4)
	conclusion, ok := sess.State.Conclusion(ResearchDebateID)
	require.True(t, ok)
	assert.Equal(t, "bullish", conclusion.Stance)

	risk := sess.State.Turns(RiskDebateID)
	require.Len(t, risk, 2)
	_, ok = sess.State.Conclusion(RiskDebateID)
	require.True(t, ok)

	d := sess.State.Decision()
	require.NotNil(t, d)
	assert.Equal(t, session.ActionBuy, d.Action)
	assert.ElementsMatch(t, []string{"market", "fundamentals"}, d.SupportingReports)
	assert.ElementsMatch(t, []string{ResearchDebateID, RiskDebateID}, d.SupportingConclusions)
}

func TestOrchestrator_IdenticalInputsYieldIdenticalRuns(t *testing.T) {
	run := func() (*session.Decision, []session.DebateTurn) {
		engine := reasoning.NewStaticEngine(scriptedResponses()...)
		o, sess := newTestOrchestrator(t, engine, nil)
		require.NoError(t, o.Run(context.Background()))
		return sess.State.Decision(), sess.State.Turns(ResearchDebateID)
	}

	d1, turns1 := run()
	d2, turns2 := run()

	assert.Equal(t, d1.Action, d2.Action)
	assert.Equal(t, d1.Rationale, d2.Rationale)
	assert.Equal(t, d1.SupportingReports, d2.SupportingReports)
	require.Equal(t, len(turns1), len(turns2))
	for i := range turns1 {
		assert.Equal(t, turns1[i].Side, turns2[i].Side)
		assert.Equal(t, turns1[i].Round, turns2[i].Round)
		assert.Equal(t, turns1[i].Content, turns2[i].Content)
	}
}

func TestOrchestrator_CancellationMidDebate(t *testing.T) {
	inner := reasoning.NewStaticEngine(scriptedResponses()...)
	var sess *session.Session
	calls := 0
	var mu sync.Mutex
	engine := engineFunc(func(ctx context.Context, req reasoning.Request) (*reasoning.Response, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		resp, err := inner.Complete(ctx, req)
		if n == 2 {
			// cancellation lands while the second debate turn is in flight
			sess.Cancel()
		}
		return resp, err
	})

	o, s := newTestOrchestrator(t, engine, nil)
	sess = s

	err := o.Run(context.Background())
	require.ErrorIs(t, err, session.ErrSessionCancelled)
	assert.Equal(t, session.StatusCancelled, sess.Status())

	// the in-flight turn's result was discarded, nothing appended after the flag
	assert.Len(t, sess.State.Turns(ResearchDebateID), 1)
	// the decision synthesizer never ran
	assert.Nil(t, sess.State.Decision())
	_, concluded := sess.State.Conclusion(ResearchDebateID)
	assert.False(t, concluded)
}

func TestOrchestrator_EveryReasoningCallCarriesConfiguredDeadline(t *testing.T) {
	inner := reasoning.NewStaticEngine(scriptedResponses()...)
	var mu sync.Mutex
	total := 0
	withDeadline := 0
	engine := engineFunc(func(ctx context.Context, req reasoning.Request) (*reasoning.Response, error) {
		mu.Lock()
		total++
		if _, ok := ctx.Deadline(); ok {
			withDeadline++
		}
		mu.Unlock()
		return inner.Complete(ctx, req)
	})

	o, sess := newTestOrchestrator(t, engine, nil)
	require.Equal(t, 2*time.Minute, sess.Settings.CallTimeout)

	require.NoError(t, o.Run(context.Background()))
	require.Equal(t, session.StatusCompleted, sess.Status())

	mu.Lock()
	defer mu.Unlock()
	require.Positive(t, total)
	assert.Equal(t, total, withDeadline, "no reasoning call may go out unbounded")
}

func TestOrchestrator_StalledReasoningCallTimesOutAndRetries(t *testing.T) {
	inner := reasoning.NewStaticEngine(scriptedResponses()...)
	var mu sync.Mutex
	calls := 0
	engine := engineFunc(func(ctx context.Context, req reasoning.Request) (*reasoning.Response, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			// the first debate turn stalls until its deadline fires
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return inner.Complete(ctx, req)
	})

	settings := testSettings()
	settings.CallTimeout = 10 * time.Millisecond
	sess := session.New("AAPL", "us", time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), settings)
	resolver := dataflows.NewResolver([]dataflows.Tier{dataflows.NewMemoryTier("memory", 0)}, nil)
	o, err := NewOrchestrator(Config{
		Session:  sess,
		Engine:   engine,
		Resolver: resolver,
		Analysts: []analysts.Analyst{reportingAnalyst("market"), reportingAnalyst("fundamentals")},
	})
	require.NoError(t, err)

	require.NoError(t, o.Run(context.Background()))
	require.Equal(t, session.StatusCompleted, sess.Status())

	// the stalled call was retried, not hung: the pipeline still reached a
	// decision on the scripted responses
	d := sess.State.Decision()
	require.NotNil(t, d)
	assert.Equal(t, session.ActionBuy, d.Action)
}

func TestOrchestrator_PartialAnalystStageStillAdvances(t *testing.T) {
	engine := reasoning.NewStaticEngine(scriptedResponses()...)
	sess := session.New("AAPL", "us", time.Now(), testSettings())
	resolver := dataflows.NewResolver([]dataflows.Tier{dataflows.NewMemoryTier("memory", 0)}, nil)

	broken := &fakeAnalyst{role: "news", produce: func(context.Context, *analysts.Deps) (*session.Report, error) {
		return nil, reasoning.Fatalf("invalid credentials")
	}}
	o, err := NewOrchestrator(Config{
		Session:  sess,
		Engine:   engine,
		Resolver: resolver,
		Analysts: []analysts.Analyst{reportingAnalyst("market"), broken},
	})
	require.NoError(t, err)

	require.NoError(t, o.Run(context.Background()))
	require.Equal(t, session.StatusCompleted, sess.Status())
	assert.Equal(t, []string{"news"}, sess.State.FailedRoles())

	// the failed role's absence is visible in the decision's citations
	d := sess.State.Decision()
	require.NotNil(t, d)
	assert.Equal(t, []string{"market"}, d.SupportingReports)
	assert.NotContains(t, d.SupportingReports, "news")
}

func TestOrchestrator_FatalDebateErrorFailsSession(t *testing.T) {
	engine := engineFunc(func(ctx context.Context, req reasoning.Request) (*reasoning.Response, error) {
		return nil, reasoning.Fatalf("invalid credentials")
	})
	sess := session.New("AAPL", "us", time.Now(), testSettings())
	resolver := dataflows.NewResolver([]dataflows.Tier{dataflows.NewMemoryTier("memory", 0)}, nil)
	o, err := NewOrchestrator(Config{
		Session:  sess,
		Engine:   engine,
		Resolver: resolver,
		Analysts: []analysts.Analyst{reportingAnalyst("market")},
	})
	require.NoError(t, err)

	err = o.Run(context.Background())
	require.Error(t, err)
	assert.True(t, reasoning.IsFatal(err))
	assert.Equal(t, session.StatusFailed, sess.Status())
	assert.Error(t, sess.FailReason())
}

func TestOrchestrator_PublishesStageEvents(t *testing.T) {
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer func() { _ = pubsub.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	msgs, err := pubsub.Subscribe(ctx, events.StageTopic)
	require.NoError(t, err)

	var mu sync.Mutex
	var seen []events.StageEvent
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range msgs {
			ev, parseErr := events.ParseStageEvent(msg)
			msg.Ack()
			if parseErr != nil {
				continue
			}
			mu.Lock()
			seen = append(seen, *ev)
			mu.Unlock()
		}
	}()

	engine := reasoning.NewStaticEngine(scriptedResponses()...)
	o, sess := newTestOrchestrator(t, engine, pubsub)
	require.NoError(t, o.Run(context.Background()))

	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	for _, ev := range seen {
		assert.Equal(t, sess.ID, ev.SessionID)
	}
	first := seen[0]
	assert.Equal(t, string(StageAnalysis), first.Stage)
	assert.Equal(t, events.StageStarted, first.Status)
	last := seen[len(seen)-1]
	assert.Equal(t, string(StageDone), last.Stage)
	assert.Equal(t, events.StageCompleted, last.Status)
}
