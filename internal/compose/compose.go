/*
Package compose assembles the final theme cards and the profile snapshot.

The composer is the only stage that talks to the interpretation service.
Each suit is offered to the interpreter as a bounded bundle; the reply may
relabel the suit and prune its evidence, never extend it. Representative
sessions and top lists are then re-derived from the kept evidence. A failed
or slow interpreter degrades the run to the grounded output; it is never
fatal.
*/
package compose

import (
	"context"
	"time"

	"github.com/khanglvm/history-suits/internal/graph"
	"github.com/khanglvm/history-suits/internal/interpret"
	"github.com/khanglvm/history-suits/internal/suits"
	"github.com/khanglvm/history-suits/internal/trails"
	"go.uber.org/zap"
)

const (
	DefaultGatherPSignalMin = 0.45
	DefaultGatherTopQueries = 60
	DefaultGatherSessions   = 10
	DefaultGatherPerSession = 15
	DefaultGatherMaxTotal   = 800
	DefaultMaxLabels        = 6
	DefaultMaxPlaces        = 8
	DefaultMaxExamples      = 6
	DefaultProfileQueries   = 200
	DefaultTimeout          = 30 * time.Second
)

// Options configure composition.
type Options struct {
	GatherPSignalMin float64
	GatherTopQueries int
	GatherSessions   int
	GatherPerSession int
	GatherMaxTotal   int
	MaxLabels        int
	MaxPlaces        int
	MaxExamples      int
	// ProfileQueries bounds the candidates of the profile bundle.
	ProfileQueries int
	KeywordFacets  []KeywordFacet
	// Timeout applies to each interpreter call.
	Timeout time.Duration
	Logger  *zap.Logger
}

// DefaultOptions returns the stock configuration.
func DefaultOptions() Options {
	return Options{
		GatherPSignalMin: DefaultGatherPSignalMin,
		GatherTopQueries: DefaultGatherTopQueries,
		GatherSessions:   DefaultGatherSessions,
		GatherPerSession: DefaultGatherPerSession,
		GatherMaxTotal:   DefaultGatherMaxTotal,
		MaxLabels:        DefaultMaxLabels,
		MaxPlaces:        DefaultMaxPlaces,
		MaxExamples:      DefaultMaxExamples,
		ProfileQueries:   DefaultProfileQueries,
		KeywordFacets:    DefaultKeywordFacets(),
		Timeout:          DefaultTimeout,
	}
}

// Refresher re-derives a suit's evidence-dependent fields.
// *expand.Expander satisfies it.
type Refresher interface {
	Refresh(s *suits.Suit)
}

// Inputs are the published outputs of earlier stages.
type Inputs struct {
	Graph       *graph.Graph
	Refresher   Refresher
	Trails      map[string]trails.Trail
	Contexts    map[string]trails.QueryContext
	Interpreter interpret.Interpreter
}

// Profile is the composer output.
type Profile struct {
	Suits    []*suits.Suit `json:"suits"`
	Snapshot Snapshot      `json:"snapshot"`
	Gathered int           `json:"gathered_queries"`
	Degraded bool          `json:"degraded"`
}

// Composer builds profiles.
type Composer struct {
	in     Inputs
	opts   Options
	logger *zap.Logger
}

// New creates a composer. A nil interpreter behaves like interpret.Noop.
func New(in Inputs, opts Options) *Composer {
	if in.Interpreter == nil {
		in.Interpreter = interpret.Noop{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Composer{in: in, opts: opts, logger: logger}
}

// Compose interprets every suit, then builds the snapshot. The suits are
// modified in place.
func (c *Composer) Compose(ctx context.Context, ss []*suits.Suit) *Profile {
	p := &Profile{Suits: ss}

	for _, s := range ss {
		if err := c.interpretSuit(ctx, s); err != nil {
			c.logger.Warn("suit interpretation failed, keeping grounded evidence",
				zap.Int("suit", s.ID), zap.Error(err))
			p.Degraded = true
		}
	}

	gathered := Gather(c.in.Graph, ss, c.opts)
	p.Gathered = len(gathered)
	fallback := FallbackSnapshot(ss, gathered, c.opts)

	snap, err := c.interpretProfile(ctx, gathered, fallback)
	if err != nil {
		c.logger.Warn("profile interpretation failed, using grounded snapshot", zap.Error(err))
		p.Degraded = true
		snap = fallback
	}
	p.Snapshot = snap
	return p
}

func (c *Composer) call(ctx context.Context, b interpret.Bundle) (*interpret.Response, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	type result struct {
		resp *interpret.Response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := c.in.Interpreter.Interpret(ctx, b)
		done <- result{resp, err}
	}()

	// Interpreters that ignore ctx are abandoned once it expires.
	select {
	case r := <-done:
		return r.resp, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Composer) interpretSuit(ctx context.Context, s *suits.Suit) error {
	b := c.SuitBundle(s)
	resp, err := c.call(ctx, b)
	if err != nil {
		return err
	}
	c.apply(s, b, resp)
	return nil
}

// SuitBundle builds the interpreter bundle for a suit.
func (c *Composer) SuitBundle(s *suits.Suit) interpret.Bundle {
	b := interpret.Bundle{
		Kind:       interpret.KindSuit,
		SuitID:     s.ID,
		LabelHint:  s.Label,
		TopQueries: s.TopQueries,
		TopDomains: s.TopDomains,
	}
	for _, sid := range s.RepresentativeSessions {
		if t, ok := c.in.Trails[sid.Key()]; ok {
			b.Sessions = append(b.Sessions, t)
		}
	}
	for _, e := range s.Evidence() {
		cand := interpret.Candidate{ID: string(e.ID), Kind: string(e.Kind), Text: e.Text}
		if e.Kind == graph.KindQuery {
			qc := c.in.Contexts[e.Text]
			cand.Domains = qc.Domains
			cand.Titles = qc.Titles
		}
		b.Candidates = append(b.Candidates, cand)
	}
	return b
}

// apply prunes s to the kept ids that were offered in b. A reply that keeps
// nothing valid leaves the evidence untouched.
func (c *Composer) apply(s *suits.Suit, b interpret.Bundle, resp *interpret.Response) {
	offered := b.CandidateIDs()
	keep := make(map[graph.NodeID]bool, len(resp.KeptEvidenceIDs))
	rejected := 0
	for _, id := range resp.KeptEvidenceIDs {
		if offered[id] {
			keep[graph.NodeID(id)] = true
		} else {
			rejected++
		}
	}
	if rejected > 0 {
		c.logger.Warn("interpreter returned ids outside the bundle",
			zap.Int("suit", s.ID), zap.Int("rejected", rejected))
	}

	if len(keep) > 0 {
		before := len(s.Primary) + len(s.Secondary)
		s.Primary = filterEvidence(s.Primary, keep)
		s.Secondary = filterEvidence(s.Secondary, keep)
		if pruned := before - len(s.Primary) - len(s.Secondary); pruned > 0 {
			c.logger.Debug("suit evidence pruned", zap.Int("suit", s.ID), zap.Int("pruned", pruned))
		}
	}
	if resp.FinalLabel != "" {
		s.Label = resp.FinalLabel
	}
	s.Prose = resp.Prose

	if c.in.Refresher != nil {
		c.in.Refresher.Refresh(s)
	}
}

func filterEvidence(ev []suits.Evidence, keep map[graph.NodeID]bool) []suits.Evidence {
	out := ev[:0:0]
	for _, e := range ev {
		if keep[e.ID] {
			out = append(out, e)
		}
	}
	return out
}

func (c *Composer) interpretProfile(ctx context.Context, gathered []string, fallback Snapshot) (Snapshot, error) {
	b := interpret.Bundle{
		Kind:   interpret.KindProfile,
		Facets: fallback.Names(),
	}
	for i, q := range gathered {
		if c.opts.ProfileQueries > 0 && i >= c.opts.ProfileQueries {
			break
		}
		b.Candidates = append(b.Candidates, interpret.Candidate{
			ID:   string(graph.QueryID(q)),
			Kind: string(graph.KindQuery),
			Text: q,
		})
	}

	resp, err := c.call(ctx, b)
	if err != nil {
		return Snapshot{}, err
	}

	if len(resp.Facets) == 0 {
		snap := fallback
		snap.Facets = append([]Facet(nil), fallback.Facets...)
		snap.Prose = resp.Prose
		snap.Interpreted = resp.Prose != ""
		return snap, nil
	}

	snap := Snapshot{Prose: resp.Prose, Interpreted: true}
	for _, fb := range fallback.Facets {
		f := Facet{Name: fb.Name, Text: NotEnoughEvidence, Backfillable: fb.Backfillable}
		if text, ok := resp.Facets[fb.Name]; ok && text != "" {
			f.Text = text
		}
		snap.Facets = append(snap.Facets, f)
	}
	if n := backfill(&snap, fallback); n > 0 {
		c.logger.Debug("snapshot facets backfilled", zap.Int("facets", n))
	}
	return snap, nil
}
