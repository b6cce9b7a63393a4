package compose

import (
	"context"
	"testing"
	"time"

	"github.com/khanglvm/history-suits/internal/community"
	"github.com/khanglvm/history-suits/internal/events"
	"github.com/khanglvm/history-suits/internal/expand"
	"github.com/khanglvm/history-suits/internal/graph"
	"github.com/khanglvm/history-suits/internal/interpret"
	"github.com/khanglvm/history-suits/internal/signal"
	"github.com/khanglvm/history-suits/internal/suits"
	"github.com/khanglvm/history-suits/internal/trails"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkSession(id string, pairs ...string) events.Session {
	s := events.Session{ID: id}
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i+1 < len(pairs); i += 2 {
		s.Events = append(s.Events, events.Event{
			Time:      base.Add(time.Duration(i) * time.Minute),
			SessionID: id,
			Domain:    pairs[i],
			Query:     pairs[i+1],
			Title:     "page " + pairs[i],
		})
	}
	return s
}

type fixture struct {
	graph    *graph.Graph
	expander *expand.Expander
	suits    []*suits.Suit
	sessions []events.Session
	stats    map[string]signal.QueryStats
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	sessions := []events.Session{
		mkSession("A", "ikea.com", "kitchen island", "homedepot.com", ""),
		mkSession("B", "wayfair.com", "kitchen island"),
		mkSession("C", "irs.gov", "tax forms"),
	}
	stats := signal.Score(sessions, signal.DefaultOptions())
	g, _ := graph.Build(sessions, stats, graph.DefaultBuildOptions())
	cat, err := suits.NewCatalog(ctx, g, stats, suits.CatalogOptions{SiteTokenWeight: suits.DefaultSiteTokenWeight, Workers: 1})
	require.NoError(t, err)
	comms, err := community.Detect(ctx, g, stats, community.DefaultOptions())
	require.NoError(t, err)
	ss := suits.Discover(cat, comms, suits.DefaultOptions())
	require.NotEmpty(t, ss)

	x := expand.New(g, cat, expand.DefaultOptions())
	require.NoError(t, x.ExpandAll(ctx, ss))
	return fixture{graph: g, expander: x, suits: ss, sessions: sessions, stats: stats}
}

func (f fixture) composer(in interpret.Interpreter, opts Options) *Composer {
	return New(Inputs{
		Graph:       f.graph,
		Refresher:   f.expander,
		Trails:      trails.Build(f.sessions, f.stats, trails.DefaultOptions()),
		Contexts:    trails.Contexts(f.sessions),
		Interpreter: in,
	}, opts)
}

type suitState struct {
	label     string
	primary   []suits.Evidence
	secondary []suits.Evidence
	sessions  []graph.NodeID
}

func capture(ss []*suits.Suit) []suitState {
	out := make([]suitState, len(ss))
	for i, s := range ss {
		out[i] = suitState{
			label:     s.Label,
			primary:   append([]suits.Evidence(nil), s.Primary...),
			secondary: append([]suits.Evidence(nil), s.Secondary...),
			sessions:  append([]graph.NodeID(nil), s.RepresentativeSessions...),
		}
	}
	return out
}

func TestComposeTimeoutFallsBack(t *testing.T) {
	f := newFixture(t)
	before := capture(f.suits)

	slow := interpret.Func(func(ctx context.Context, _ interpret.Bundle) (*interpret.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	opts := DefaultOptions()
	opts.Timeout = 20 * time.Millisecond

	p := f.composer(slow, opts).Compose(context.Background(), f.suits)

	assert.True(t, p.Degraded)
	assert.Equal(t, before, capture(p.Suits))
	for _, s := range p.Suits {
		assert.Empty(t, s.Prose)
	}
	want := FallbackSnapshot(f.suits, Gather(f.graph, f.suits, opts), opts)
	assert.Equal(t, want, p.Snapshot)
	assert.Empty(t, p.Snapshot.Prose)
	assert.False(t, p.Snapshot.Interpreted)
}

func TestComposeTimeoutAbandonsStuckInterpreter(t *testing.T) {
	f := newFixture(t)
	before := capture(f.suits)

	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	stuck := interpret.Func(func(context.Context, interpret.Bundle) (*interpret.Response, error) {
		<-release
		return &interpret.Response{FinalLabel: "late"}, nil
	})
	opts := DefaultOptions()
	opts.Timeout = 20 * time.Millisecond

	done := make(chan *Profile, 1)
	go func() { done <- f.composer(stuck, opts).Compose(context.Background(), f.suits) }()

	select {
	case p := <-done:
		assert.True(t, p.Degraded)
		assert.Equal(t, before, capture(p.Suits))
		assert.False(t, p.Snapshot.Interpreted)
	case <-time.After(5 * time.Second):
		t.Fatal("Compose did not return after the interpreter timeout")
	}
}

func TestComposeNoopKeepsGroundedOutput(t *testing.T) {
	f := newFixture(t)
	before := capture(f.suits)
	opts := DefaultOptions()

	p := f.composer(interpret.Noop{}, opts).Compose(context.Background(), f.suits)

	assert.False(t, p.Degraded)
	assert.Equal(t, before, capture(p.Suits))
	assert.Equal(t, FallbackSnapshot(f.suits, Gather(f.graph, f.suits, opts), opts), p.Snapshot)
}

func TestComposeRejectsUnknownIDsAndRefreshes(t *testing.T) {
	f := newFixture(t)
	s := f.suits[0]
	require.NotEmpty(t, s.Primary)
	keepID := s.Primary[0].ID

	var offered map[string]bool
	in := interpret.Func(func(_ context.Context, b interpret.Bundle) (*interpret.Response, error) {
		if b.Kind == interpret.KindProfile {
			return &interpret.Response{Prose: "A home project.", Facets: map[string]string{FacetLocation: "Somewhere"}}, nil
		}
		if b.SuitID == s.ID {
			offered = b.CandidateIDs()
		}
		return &interpret.Response{
			FinalLabel:      "Kitchen Remodel",
			KeptEvidenceIDs: []string{string(keepID), "q:invented query"},
			Prose:           "Planning a kitchen.",
		}, nil
	})

	p := f.composer(in, DefaultOptions()).Compose(context.Background(), f.suits)
	require.False(t, p.Degraded)

	assert.True(t, offered[string(keepID)])
	assert.Equal(t, "Kitchen Remodel", s.Label)
	assert.Equal(t, "Planning a kitchen.", s.Prose)

	all := s.Evidence()
	require.Len(t, all, 1)
	assert.Equal(t, keepID, all[0].ID)
	assert.Equal(t, expand.RepresentativeSessions(f.graph, all, expand.DefaultOptions().RepresentativeSessions), s.RepresentativeSessions)

	assert.True(t, p.Snapshot.Interpreted)
	assert.Equal(t, "A home project.", p.Snapshot.Prose)
	assert.Equal(t, "Somewhere", p.Snapshot.Facet(FacetLocation).Text)
	assert.Equal(t, NotEnoughEvidence, p.Snapshot.Facet(FacetWork).Text)
}

func TestComposeEmptyKeepLeavesEvidence(t *testing.T) {
	f := newFixture(t)
	before := capture(f.suits)
	in := interpret.Func(func(_ context.Context, b interpret.Bundle) (*interpret.Response, error) {
		return &interpret.Response{FinalLabel: b.LabelHint, KeptEvidenceIDs: []string{"q:nothing real"}}, nil
	})

	f.composer(in, DefaultOptions()).Compose(context.Background(), f.suits)
	assert.Equal(t, before, capture(f.suits))
}

func TestSuitBundleCarriesTrailsAndContext(t *testing.T) {
	f := newFixture(t)
	c := f.composer(nil, DefaultOptions())
	b := c.SuitBundle(f.suits[0])

	assert.Equal(t, interpret.KindSuit, b.Kind)
	assert.Len(t, b.Candidates, len(f.suits[0].Evidence()))
	assert.Len(t, b.Sessions, len(f.suits[0].RepresentativeSessions))
	for _, cand := range b.Candidates {
		if cand.ID == string(graph.QueryID("kitchen island")) {
			assert.NotEmpty(t, cand.Domains)
		}
	}
}
