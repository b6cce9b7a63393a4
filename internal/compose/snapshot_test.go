package compose

import (
	"testing"

	"github.com/khanglvm/history-suits/internal/graph"
	"github.com/khanglvm/history-suits/internal/suits"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaces(t *testing.T) {
	queries := []string{
		"things to do in lisbon",
		"cafes near lisbon",
		"hotels around porto old town centre",
		"restaurants near me",
		"Things To Do In Lisbon",
	}
	assert.Equal(t, []string{"lisbon", "porto old town"}, Places(queries, 8))
	assert.Equal(t, []string{"lisbon"}, Places(queries, 1))
	assert.Empty(t, Places([]string{"kitchen island"}, 8))
}

func TestKeywordHits(t *testing.T) {
	queries := []string{"red dress", "cheap flight tickets", "red dress", "running shoes", "kitchen island"}
	assert.Equal(t, []string{"red dress", "running shoes"}, KeywordHits(queries, []string{"dress", "shoes"}, 6))
	assert.Equal(t, []string{"red dress"}, KeywordHits(queries, []string{"dress", "shoes"}, 1))
	assert.Empty(t, KeywordHits(queries, []string{"visa"}, 6))
}

func TestFallbackSnapshot(t *testing.T) {
	ss := []*suits.Suit{{ID: 1, Label: "Kitchen Island"}, {ID: 2, Label: "Lisbon Trip"}}
	gathered := []string{"things to do in lisbon", "lisbon flight", "kitchen island"}
	snap := FallbackSnapshot(ss, gathered, DefaultOptions())

	assert.Equal(t, []string{FacetLocation, FacetLifestyle, FacetPlaces, "fashion", "travel", FacetWork}, snap.Names())
	assert.Equal(t, NotEnoughEvidence, snap.Facet(FacetLocation).Text)
	assert.Equal(t, NotEnoughEvidence, snap.Facet(FacetWork).Text)
	assert.Equal(t, "Themes suggest: Kitchen Island, Lisbon Trip", snap.Facet(FacetLifestyle).Text)
	assert.Equal(t, []string{"lisbon"}, snap.Facet(FacetPlaces).Examples)
	assert.False(t, snap.Facet("fashion").Supported())
	assert.Equal(t, []string{"things to do in lisbon", "lisbon flight"}, snap.Facet("travel").Examples)
	assert.Empty(t, snap.Prose)

	for _, f := range snap.Facets {
		switch f.Name {
		case FacetPlaces, "fashion", "travel":
			assert.True(t, f.Backfillable, f.Name)
		default:
			assert.False(t, f.Backfillable, f.Name)
		}
	}
}

func TestBackfillNeverOverwrites(t *testing.T) {
	fallback := Snapshot{Facets: []Facet{
		{Name: FacetLifestyle, Text: "Themes suggest: Cooking"},
		{Name: FacetPlaces, Text: "Places searched: lisbon", Examples: []string{"lisbon"}, Backfillable: true},
		{Name: "travel", Text: "Evidence suggests some travel planning activity.", Examples: []string{"lisbon flight"}, Backfillable: true},
		{Name: "fashion", Text: NotEnoughEvidence, Backfillable: true},
	}}
	snap := Snapshot{Facets: []Facet{
		{Name: FacetLifestyle, Text: NotEnoughEvidence},
		{Name: FacetPlaces, Text: "not enough evidence", Backfillable: true},
		{Name: "travel", Text: "Frequent trips to Portugal.", Backfillable: true},
		{Name: "fashion", Text: "", Backfillable: true},
	}}

	filled := backfill(&snap, fallback)

	assert.Equal(t, 1, filled)
	assert.Equal(t, NotEnoughEvidence, snap.Facet(FacetLifestyle).Text)
	assert.Equal(t, "Places searched: lisbon", snap.Facet(FacetPlaces).Text)
	assert.Equal(t, "Frequent trips to Portugal.", snap.Facet("travel").Text)
	assert.Equal(t, []string{"lisbon flight"}, snap.Facet("travel").Examples)
	assert.Equal(t, "", snap.Facet("fashion").Text)
}

func TestGatherOrderAndCap(t *testing.T) {
	g := graph.New()
	s1 := g.AddNode(graph.KindSession, "s1")
	qa := g.AddNode(graph.KindQuery, "alpha beta")
	qb := g.AddNode(graph.KindQuery, "gamma delta")
	require.NoError(t, g.AddWeight(s1, qa, 0.2))
	require.NoError(t, g.AddWeight(s1, qb, 0.9))

	ss := []*suits.Suit{{
		ID:         1,
		TopQueries: []string{"kitchen island", "alpha beta"},
		Primary: []suits.Evidence{
			{ID: graph.QueryID("oak table"), Kind: graph.KindQuery, Text: "oak table", PSignal: 0.5},
			{ID: graph.QueryID("low table"), Kind: graph.KindQuery, Text: "low table", PSignal: 0.1},
		},
		RepresentativeSessions: []graph.NodeID{s1},
	}}

	opts := DefaultOptions()
	assert.Equal(t, []string{"kitchen island", "alpha beta", "oak table", "gamma delta"}, Gather(g, ss, opts))

	opts.GatherMaxTotal = 2
	assert.Equal(t, []string{"kitchen island", "alpha beta"}, Gather(g, ss, opts))
}
