/*
Package pipeline runs the stages from loaded events to composed suits.

Stages run strictly in order: scoring, graph building, community
detection, seeding, expansion, composition. Each stage reads only the
published outputs of earlier stages. Given identical input and options the
result is identical apart from the run id and any interpreter prose.
*/
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/khanglvm/history-suits/internal/community"
	"github.com/khanglvm/history-suits/internal/compose"
	"github.com/khanglvm/history-suits/internal/events"
	"github.com/khanglvm/history-suits/internal/expand"
	"github.com/khanglvm/history-suits/internal/graph"
	"github.com/khanglvm/history-suits/internal/interpret"
	"github.com/khanglvm/history-suits/internal/signal"
	"github.com/khanglvm/history-suits/internal/suits"
	"github.com/khanglvm/history-suits/internal/trails"
	"go.uber.org/zap"
)

// Run statuses.
const (
	StatusOK                   = "ok"
	StatusInsufficientEvidence = "insufficient_evidence"
)

// ErrNoEvents is returned when the input holds no usable event.
var ErrNoEvents = errors.New("no usable events in input")

// Stats describes the work done by a run.
type Stats struct {
	Events          int         `json:"events"`
	Dropped         int         `json:"dropped"`
	Sessions        int         `json:"sessions"`
	SkippedSessions int         `json:"skipped_sessions"`
	Queries         int         `json:"queries"`
	GatedQueries    int         `json:"gated_queries"`
	Graph           graph.Stats `json:"graph"`
	ProjectionNodes int         `json:"projection_nodes"`
	ProjectionEdges int         `json:"projection_edges"`
	Communities     int         `json:"communities"`
	Modularity      float64     `json:"modularity"`
	Suits           int         `json:"suits"`
	GatheredQueries int         `json:"gathered_queries"`
}

// Analysis holds the outputs of scoring, graph building and community
// detection.
type Analysis struct {
	Sessions    []events.Session
	QueryStats  map[string]signal.QueryStats
	Graph       *graph.Graph
	Communities *community.Result
	Stats       Stats
}

// Result is the read-only output handed to renderers.
type Result struct {
	RunID       string                `json:"run_id"`
	Status      string                `json:"status"`
	Degraded    bool                  `json:"degraded"`
	Suits       []*suits.Suit         `json:"suits"`
	Communities []community.Community `json:"communities"`
	Snapshot    *compose.Snapshot     `json:"snapshot,omitempty"`
	Stats       Stats                 `json:"stats"`
}

// Runner executes the pipeline with fixed options.
type Runner struct {
	opts   Options
	interp interpret.Interpreter
	logger *zap.Logger
}

// New creates a runner. A nil interpreter means interpret.Noop.
func New(opts Options, interp interpret.Interpreter) *Runner {
	if interp == nil {
		interp = interpret.Noop{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{opts: opts, interp: interp, logger: logger}
}

// Analyze runs the first three stages. Invalid options fail with a
// *config.ValidationError before any work starts.
func (r *Runner) Analyze(ctx context.Context, batch *events.Batch) (*Analysis, error) {
	if err := r.opts.Validate(); err != nil {
		return nil, err
	}
	if batch == nil || len(batch.Events) == 0 {
		return nil, ErrNoEvents
	}

	start := time.Now()
	sessions := batch.Sessions()
	stats := signal.Score(sessions, r.opts.Signal)

	g, report := graph.Build(sessions, stats, r.opts.Build)
	comms, err := community.Detect(ctx, g, stats, r.opts.Community)
	if err != nil {
		return nil, fmt.Errorf("community detection: %w", err)
	}

	a := &Analysis{
		Sessions:    sessions,
		QueryStats:  stats,
		Graph:       g,
		Communities: comms,
		Stats: Stats{
			Events:          len(batch.Events),
			Dropped:         batch.Dropped,
			Sessions:        report.Sessions,
			SkippedSessions: report.SkippedSessions,
			Queries:         len(stats),
			Graph:           g.Stats(),
			ProjectionNodes: comms.NodeCount,
			ProjectionEdges: comms.EdgeCount,
			Communities:     len(comms.Communities),
			Modularity:      comms.Modularity,
		},
	}
	for _, st := range stats {
		if st.PSignal == 0 {
			a.Stats.GatedQueries++
		}
	}

	r.logger.Info("analysis complete",
		zap.Int("events", a.Stats.Events),
		zap.Int("dropped", a.Stats.Dropped),
		zap.Int("sessions", a.Stats.Sessions),
		zap.Int("queries", a.Stats.Queries),
		zap.Int("communities", a.Stats.Communities),
		zap.Duration("elapsed", time.Since(start)))
	return a, nil
}

// Run executes every stage. Zero suits is a result with status
// StatusInsufficientEvidence, not an error.
func (r *Runner) Run(ctx context.Context, batch *events.Batch) (*Result, error) {
	a, err := r.Analyze(ctx, batch)
	if err != nil {
		return nil, err
	}

	res := &Result{
		RunID:       uuid.NewString(),
		Status:      StatusOK,
		Suits:       []*suits.Suit{},
		Communities: a.Communities.Communities,
		Stats:       a.Stats,
	}
	logger := r.logger.With(zap.String("run_id", res.RunID))

	cat, err := suits.NewCatalog(ctx, a.Graph, a.QueryStats, r.opts.Catalog)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	seedOpts := r.opts.Seed
	seedOpts.Logger = logger
	ss := suits.Discover(cat, a.Communities, seedOpts)
	if len(ss) == 0 {
		res.Status = StatusInsufficientEvidence
		logger.Info("no suits found", zap.Int("catalog_items", len(cat.Items)))
		return res, nil
	}

	expOpts := r.opts.Expand
	expOpts.Logger = logger
	x := expand.New(a.Graph, cat, expOpts)
	if err := x.ExpandAll(ctx, ss); err != nil {
		return nil, fmt.Errorf("expansion: %w", err)
	}

	compOpts := r.opts.Compose
	compOpts.Logger = logger
	composer := compose.New(compose.Inputs{
		Graph:       a.Graph,
		Refresher:   x,
		Trails:      trails.Build(a.Sessions, a.QueryStats, r.opts.Trails),
		Contexts:    trails.Contexts(a.Sessions),
		Interpreter: r.interp,
	}, compOpts)
	profile := composer.Compose(ctx, ss)

	res.Suits = profile.Suits
	res.Snapshot = &profile.Snapshot
	res.Degraded = profile.Degraded
	res.Stats.Suits = len(profile.Suits)
	res.Stats.GatheredQueries = profile.Gathered

	if res.Degraded {
		logger.Warn("run completed in degraded mode")
	}
	logger.Info("run complete", zap.Int("suits", len(res.Suits)), zap.String("status", res.Status))
	return res, nil
}
