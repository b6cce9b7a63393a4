package community

import (
	"context"
	"testing"

	"github.com/khanglvm/history-suits/internal/graph"
	"github.com/khanglvm/history-suits/internal/signal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture(t *testing.T) (*graph.Graph, map[string]signal.QueryStats) {
	t.Helper()
	g := graph.New()
	stats := make(map[string]signal.QueryStats)

	link := func(domain, query string, w float64) {
		d := g.AddNode(graph.KindDomain, domain)
		q := g.AddNode(graph.KindQuery, query)
		require.NoError(t, g.AddWeight(d, q, w))
		stats[query] = signal.QueryStats{Query: query, PSignal: 0.8, Quality: 0.85}
	}

	link("ikea.com", "kitchen island", 1)
	link("ikea.com", "oak table", 1)
	link("wayfair.com", "kitchen island", 1)
	link("wayfair.com", "oak table", 1)

	link("booking.com", "hotels rome", 1)
	link("booking.com", "flights rome", 1)
	link("kayak.com", "hotels rome", 1)
	link("kayak.com", "flights rome", 1)

	link("google.com", "kitchen island", 5)
	link("google.com", "hotels rome", 5)

	s := g.AddNode(graph.KindSession, "a")
	require.NoError(t, g.AddWeight(s, graph.DomainID("ikea.com"), 3))

	g.AddNode(graph.KindQuery, "weather")
	stats["weather"] = signal.QueryStats{Query: "weather", PSignal: 0.1}
	require.NoError(t, g.AddWeight(graph.DomainID("kayak.com"), graph.QueryID("weather"), 1))

	return g, stats
}

func TestProject(t *testing.T) {
	g, stats := fixture(t)
	p := Project(g, stats, graph.NewHubSet(graph.DefaultHubDomains...), DefaultMinQueryPSignal)

	assert.Len(t, p.Nodes, 8)
	assert.Equal(t, 8, p.Edges())
	for _, id := range p.Nodes {
		assert.NotEqual(t, graph.KindSession, id.Kind())
		assert.NotEqual(t, graph.DomainID("google.com"), id)
		assert.NotEqual(t, graph.QueryID("weather"), id)
	}
}

func TestDetect(t *testing.T) {
	g, stats := fixture(t)
	opts := DefaultOptions()
	opts.MinSize = 1

	result, err := Detect(context.Background(), g, stats, opts)
	require.NoError(t, err)
	require.Len(t, result.Communities, 2)
	assert.Greater(t, result.Modularity, 0.0)

	furniture := result.CommunityOf(graph.DomainID("ikea.com"))
	travel := result.CommunityOf(graph.DomainID("booking.com"))
	assert.NotEqual(t, Unassigned, furniture)
	assert.NotEqual(t, furniture, travel)
	assert.Equal(t, furniture, result.CommunityOf(graph.QueryID("oak table")))
	assert.Equal(t, travel, result.CommunityOf(graph.QueryID("flights rome")))
	assert.Equal(t, Unassigned, result.CommunityOf(graph.DomainID("google.com")))

	c := result.Communities[0]
	assert.Len(t, c.Members, 4)
	assert.Len(t, c.TopDomains, 2)
	assert.Len(t, c.TopQueries, 2)
}

func TestDetectDeterministic(t *testing.T) {
	g, stats := fixture(t)
	first, err := Detect(context.Background(), g, stats, DefaultOptions())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := Detect(context.Background(), g, stats, DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, first.Communities, again.Communities)
		assert.Equal(t, first.Modularity, again.Modularity)
	}
}

func TestDetectMinSize(t *testing.T) {
	g, stats := fixture(t)
	opts := DefaultOptions()
	opts.MinSize = 5

	result, err := Detect(context.Background(), g, stats, opts)
	require.NoError(t, err)
	assert.Empty(t, result.Communities)
	assert.Equal(t, Unassigned, result.CommunityOf(graph.DomainID("ikea.com")))
}

func TestDetectEmpty(t *testing.T) {
	result, err := Detect(context.Background(), graph.New(), nil, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, result.Communities)
	assert.Zero(t, result.NodeCount)
}

func TestDetectCancelled(t *testing.T) {
	g, stats := fixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Detect(ctx, g, stats, DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRenumber(t *testing.T) {
	labels, k := renumber([]int{7, 3, 7, 9, 3})
	assert.Equal(t, []int{0, 1, 0, 2, 1}, labels)
	assert.Equal(t, 3, k)
}
