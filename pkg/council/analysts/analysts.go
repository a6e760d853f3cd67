// Package analysts runs the independent analyst roles against the dataflows
// resolver. Roles never read each other's reports, so the stage fans them
// out concurrently and joins before completing.
package analysts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-go-golems/gekko/pkg/dataflows"
	"github.com/go-go-golems/gekko/pkg/reasoning"
	"github.com/go-go-golems/gekko/pkg/session"
)

// Role tags for the built-in analysts.
const (
	RoleMarket       = "market"
	RoleFundamentals = "fundamentals"
	RoleNews         = "news"
	RoleSentiment    = "sentiment"
)

// Deps is everything an analyst needs to produce a report.
type Deps struct {
	Resolver   *dataflows.Resolver
	Engine     reasoning.Engine
	Model      string
	Retry      reasoning.RetryPolicy
	Instrument string
	Market     dataflows.Market
	AsOfDate   time.Time
}

// Analyst is one reporting role. MinDepth gates optional roles behind the
// analysis_depth setting.
type Analyst interface {
	Role() string
	MinDepth() int
	ProduceReport(ctx context.Context, deps *Deps) (*session.Report, error)
}

// dataSpec names one request an analyst issues, with its lookback window.
type dataSpec struct {
	label    string
	kind     dataflows.Kind
	lookback time.Duration
}

// llmAnalyst is the shared implementation: resolve the role's data requests,
// then synthesize a report with a quick-think reasoning call. When every
// request comes back empty the report is flagged insufficient without
// spending a reasoning call.
type llmAnalyst struct {
	role     string
	minDepth int
	system   string
	specs    []dataSpec
}

func (a *llmAnalyst) Role() string  { return a.role }
func (a *llmAnalyst) MinDepth() int { return a.minDepth }

func (a *llmAnalyst) ProduceReport(ctx context.Context, deps *Deps) (*session.Report, error) {
	var sections []string
	anyData := false
	for _, spec := range a.specs {
		req := dataflows.Request{
			Instrument: deps.Instrument,
			Market:     deps.Market,
			Start:      deps.AsOfDate.Add(-spec.lookback),
			End:        deps.AsOfDate,
			Kind:       spec.kind,
		}
		res, err := deps.Resolver.Resolve(ctx, req)
		if err != nil {
			return nil, err
		}
		if res.NoData {
			sections = append(sections, fmt.Sprintf("### %s\n(no data available)", spec.label))
			continue
		}
		anyData = true
		sections = append(sections, fmt.Sprintf("### %s (source: %s)\n%s", spec.label, res.Source, string(res.Payload)))
	}

	if !anyData {
		return &session.Report{
			Role:             a.role,
			Content:          fmt.Sprintf("No usable %s data for %s as of %s.", a.role, deps.Instrument, deps.AsOfDate.Format("2006-01-02")),
			InsufficientData: true,
			CreatedAt:        time.Now(),
		}, nil
	}

	prompt := fmt.Sprintf("Instrument: %s (%s), as of %s.\n\n%s\n\nWrite your %s analyst report.",
		deps.Instrument, deps.Market, deps.AsOfDate.Format("2006-01-02"),
		strings.Join(sections, "\n\n"), a.role)

	var resp *reasoning.Response
	err := deps.Retry.Do(ctx, func(ctx context.Context) error {
		var callErr error
		resp, callErr = deps.Engine.Complete(ctx, reasoning.Request{
			Model:  deps.Model,
			System: a.system,
			Prompt: prompt,
		})
		return callErr
	})
	if err != nil {
		return nil, err
	}

	return &session.Report{
		Role:      a.role,
		Content:   resp.Text,
		CreatedAt: time.Now(),
	}, nil
}

// DefaultAnalysts returns the built-in roles. Market and fundamentals always
// run; news needs depth >= 2, sentiment depth >= 3.
func DefaultAnalysts() []Analyst {
	return []Analyst{
		&llmAnalyst{
			role:     RoleMarket,
			minDepth: 1,
			system:   "You are a market analyst. Assess price action and relative strength against the reference index.",
			specs: []dataSpec{
				{label: "Price history", kind: dataflows.KindPrice, lookback: 90 * 24 * time.Hour},
				{label: "Index history", kind: dataflows.KindIndex, lookback: 90 * 24 * time.Hour},
			},
		},
		&llmAnalyst{
			role:     RoleFundamentals,
			minDepth: 1,
			system:   "You are a fundamentals analyst. Assess valuation, earnings and balance sheet quality.",
			specs: []dataSpec{
				{label: "Fundamentals", kind: dataflows.KindFundamentals, lookback: 365 * 24 * time.Hour},
			},
		},
		&llmAnalyst{
			role:     RoleNews,
			minDepth: 2,
			system:   "You are a news analyst. Assess recent headlines and their likely market impact.",
			specs: []dataSpec{
				{label: "News", kind: dataflows.KindNews, lookback: 7 * 24 * time.Hour},
			},
		},
		&llmAnalyst{
			role:     RoleSentiment,
			minDepth: 3,
			system:   "You are a sentiment analyst. Assess social and retail sentiment signals.",
			specs: []dataSpec{
				{label: "Sentiment", kind: dataflows.KindSentiment, lookback: 7 * 24 * time.Hour},
			},
		},
	}
}
