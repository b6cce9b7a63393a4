/*
Package community finds coarse interest clusters in the evidence graph.

Sessions, hub domains and utility queries are projected away first; what
remains is the domain-query layer, which is partitioned by modularity
optimization with Louvain-style aggregation. The result is deterministic for
identical input: nodes are visited in sorted id order and ties between
candidate communities resolve to the smaller label.
*/
package community

import (
	"context"
	"sort"

	"github.com/khanglvm/history-suits/internal/graph"
	"github.com/khanglvm/history-suits/internal/signal"
	"go.uber.org/zap"
)

const (
	// DefaultResolution is the modularity resolution parameter.
	DefaultResolution = 1.0

	// DefaultMaxPasses bounds local-move passes per level.
	DefaultMaxPasses = 50

	// DefaultMaxLevels bounds aggregation levels.
	DefaultMaxLevels = 20

	// DefaultMinSize filters communities too small to report.
	DefaultMinSize = 3

	// DefaultMinQueryPSignal drops utility queries from the projection.
	DefaultMinQueryPSignal = 0.30

	// DefaultSummaryTopN is the number of domains and queries summarized.
	DefaultSummaryTopN = 8

	// Unassigned is the label for nodes outside any reported community.
	Unassigned = -1
)

// Options configure community detection.
type Options struct {
	Hubs            graph.HubSet
	Resolution      float64
	MaxPasses       int
	MaxLevels       int
	MinSize         int
	MinQueryPSignal float64
	SummaryTopN     int
	Logger          *zap.Logger
}

// DefaultOptions returns the stock configuration.
func DefaultOptions() Options {
	return Options{
		Hubs:            graph.NewHubSet(graph.DefaultHubDomains...),
		Resolution:      DefaultResolution,
		MaxPasses:       DefaultMaxPasses,
		MaxLevels:       DefaultMaxLevels,
		MinSize:         DefaultMinSize,
		MinQueryPSignal: DefaultMinQueryPSignal,
		SummaryTopN:     DefaultSummaryTopN,
	}
}

// normalize fills zero values with defaults.
func (o *Options) normalize() {
	if o.Resolution <= 0 {
		o.Resolution = DefaultResolution
	}
	if o.MaxPasses <= 0 {
		o.MaxPasses = DefaultMaxPasses
	}
	if o.MaxLevels <= 0 {
		o.MaxLevels = DefaultMaxLevels
	}
	if o.MinSize <= 0 {
		o.MinSize = 1
	}
	if o.SummaryTopN <= 0 {
		o.SummaryTopN = DefaultSummaryTopN
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// Projection is the domain-query subgraph used for partitioning.
type Projection struct {
	Nodes []graph.NodeID
	index map[graph.NodeID]int
	wg    *wgraph
}

// Edges returns the number of undirected edges in the projection.
func (p *Projection) Edges() int {
	n := 0
	for _, adj := range p.wg.adj {
		n += len(adj)
	}
	return n / 2
}

// Project reduces g to its domain-query layer, dropping hubs and queries
// whose psignal is below minQueryPSignal. Isolated nodes are dropped.
func Project(g *graph.Graph, stats map[string]signal.QueryStats, hubs graph.HubSet, minQueryPSignal float64) *Projection {
	keep := func(id graph.NodeID) bool {
		switch id.Kind() {
		case graph.KindDomain:
			return !hubs.IsHub(id.Key())
		case graph.KindQuery:
			ps := stats[id.Key()].PSignal
			return ps > 0 && ps >= minQueryPSignal
		}
		return false
	}

	var ids []graph.NodeID
	for _, id := range g.Nodes("") {
		if !keep(id) {
			continue
		}
		for _, e := range g.Neighbors(id) {
			if isProjectedEdge(id, e.To) && keep(e.To) {
				ids = append(ids, id)
				break
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	p := &Projection{
		Nodes: ids,
		index: make(map[graph.NodeID]int, len(ids)),
		wg:    &wgraph{adj: make([][]wedge, len(ids)), deg: make([]float64, len(ids))},
	}
	for i, id := range ids {
		p.index[id] = i
	}
	for i, id := range ids {
		for _, e := range g.Neighbors(id) {
			j, ok := p.index[e.To]
			if !ok || !isProjectedEdge(id, e.To) {
				continue
			}
			p.wg.adj[i] = append(p.wg.adj[i], wedge{to: j, w: e.Weight})
			p.wg.deg[i] += e.Weight
			p.wg.m2 += e.Weight
		}
	}
	return p
}

func isProjectedEdge(a, b graph.NodeID) bool {
	return graph.EdgeKindOf(a.Kind(), b.Kind()) == graph.EdgeDomainQuery
}

// Member is a community node with its weighted degree inside the community.
type Member struct {
	ID     graph.NodeID `json:"id"`
	Weight float64      `json:"weight"`
}

// Community is one reported cluster.
type Community struct {
	ID         int            `json:"id"`
	Members    []graph.NodeID `json:"members"`
	TopDomains []Member       `json:"top_domains"`
	TopQueries []Member       `json:"top_queries"`
}

// Result is the full partition.
type Result struct {
	Communities []Community `json:"communities"`
	Modularity  float64     `json:"modularity"`
	Levels      int         `json:"levels"`
	NodeCount   int         `json:"node_count"`
	EdgeCount   int         `json:"edge_count"`
	assignment  map[graph.NodeID]int
}

// CommunityOf returns the community id of a node, or Unassigned.
func (r *Result) CommunityOf(id graph.NodeID) int {
	if r == nil {
		return Unassigned
	}
	if c, ok := r.assignment[id]; ok {
		return c
	}
	return Unassigned
}

// Detect partitions the projection of g.
func Detect(ctx context.Context, g *graph.Graph, stats map[string]signal.QueryStats, opts Options) (*Result, error) {
	opts.normalize()

	p := Project(g, stats, opts.Hubs, opts.MinQueryPSignal)
	result := &Result{
		NodeCount:  len(p.Nodes),
		EdgeCount:  p.Edges(),
		assignment: make(map[graph.NodeID]int),
	}
	if len(p.Nodes) == 0 {
		return result, nil
	}

	labels, levels, err := louvain(ctx, p.wg, opts.Resolution, opts.MaxPasses, opts.MaxLevels)
	if err != nil {
		return nil, err
	}
	result.Levels = levels
	result.Modularity = modularity(p.wg, labels, opts.Resolution)

	groups := make(map[int][]int)
	for i, l := range labels {
		groups[l] = append(groups[l], i)
	}

	// Order by size desc, then smallest member id. Member lists are already
	// sorted because projection indices follow sorted ids.
	var kept [][]int
	for _, members := range groups {
		if len(members) >= opts.MinSize {
			kept = append(kept, members)
		}
	}
	sort.Slice(kept, func(a, b int) bool {
		if len(kept[a]) != len(kept[b]) {
			return len(kept[a]) > len(kept[b])
		}
		return kept[a][0] < kept[b][0]
	})

	for cid, members := range kept {
		c := summarize(p, cid, members, opts.SummaryTopN)
		for _, id := range c.Members {
			result.assignment[id] = cid
		}
		result.Communities = append(result.Communities, c)
	}

	opts.Logger.Debug("community detection completed",
		zap.Int("nodes", result.NodeCount),
		zap.Int("edges", result.EdgeCount),
		zap.Int("communities", len(result.Communities)),
		zap.Float64("modularity", result.Modularity),
		zap.Int("levels", levels))

	return result, nil
}

// summarize ranks members by weighted degree inside the community.
func summarize(p *Projection, cid int, members []int, topN int) Community {
	inside := make(map[int]bool, len(members))
	for _, i := range members {
		inside[i] = true
	}

	c := Community{ID: cid, Members: make([]graph.NodeID, 0, len(members))}
	var domains, queries []Member
	for _, i := range members {
		id := p.Nodes[i]
		c.Members = append(c.Members, id)
		w := 0.0
		for _, e := range p.wg.adj[i] {
			if inside[e.to] {
				w += e.w
			}
		}
		m := Member{ID: id, Weight: w}
		if id.Kind() == graph.KindDomain {
			domains = append(domains, m)
		} else {
			queries = append(queries, m)
		}
	}
	c.TopDomains = topMembers(domains, topN)
	c.TopQueries = topMembers(queries, topN)
	return c
}

func topMembers(ms []Member, n int) []Member {
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].Weight != ms[j].Weight {
			return ms[i].Weight > ms[j].Weight
		}
		return ms[i].ID < ms[j].ID
	})
	if len(ms) > n {
		ms = ms[:n]
	}
	return ms
}
