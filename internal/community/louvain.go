package community

import (
	"context"
	"sort"
)

// wedge is a weighted adjacency entry between dense node indices.
type wedge struct {
	to int
	w  float64
}

// wgraph is the dense working graph used during optimization. deg includes
// the weight of collapsed internal edges once nodes are aggregated.
type wgraph struct {
	adj [][]wedge
	deg []float64
	m2  float64
}

func (g *wgraph) n() int { return len(g.adj) }

// louvain partitions g and returns a community label per node plus the
// number of levels run. Labels are dense, numbered by first member index.
func louvain(ctx context.Context, g *wgraph, resolution float64, maxPasses, maxLevels int) ([]int, int, error) {
	membership := make([]int, g.n())
	for i := range membership {
		membership[i] = i
	}
	if g.m2 == 0 {
		return membership, 0, nil
	}

	levels := 0
	current := g
	for levels < maxLevels {
		if err := ctx.Err(); err != nil {
			return nil, levels, err
		}
		levels++

		comm, moved := localMoves(current, resolution, maxPasses)
		if !moved {
			break
		}

		comm, k := renumber(comm)
		for i := range membership {
			membership[i] = comm[membership[i]]
		}
		if k == current.n() {
			break
		}
		current = aggregate(current, comm, k)
	}

	membership, _ = renumber(membership)
	return membership, levels, nil
}

// localMoves runs move passes in index order until no node moves or
// maxPasses is reached. A move needs a strictly positive gain over staying;
// among equal gains the smaller community label wins.
func localMoves(g *wgraph, resolution float64, maxPasses int) ([]int, bool) {
	n := g.n()
	comm := make([]int, n)
	tot := make([]float64, n)
	for i := 0; i < n; i++ {
		comm[i] = i
		tot[i] = g.deg[i]
	}

	const eps = 1e-12
	weightTo := make(map[int]float64)
	candidates := make([]int, 0, 16)
	movedAny := false

	for pass := 0; pass < maxPasses; pass++ {
		moved := false
		for i := 0; i < n; i++ {
			ci := comm[i]
			ki := g.deg[i]

			for k := range weightTo {
				delete(weightTo, k)
			}
			candidates = candidates[:0]
			for _, e := range g.adj[i] {
				c := comm[e.to]
				if _, seen := weightTo[c]; !seen {
					candidates = append(candidates, c)
				}
				weightTo[c] += e.w
			}
			sort.Ints(candidates)

			tot[ci] -= ki
			best := ci
			bestGain := weightTo[ci] - resolution*tot[ci]*ki/g.m2
			for _, c := range candidates {
				if c == ci {
					continue
				}
				gain := weightTo[c] - resolution*tot[c]*ki/g.m2
				if gain > bestGain+eps {
					best, bestGain = c, gain
				}
			}
			tot[best] += ki

			if best != ci {
				comm[i] = best
				moved = true
				movedAny = true
			}
		}
		if !moved {
			break
		}
	}
	return comm, movedAny
}

// renumber maps labels to 0..k-1 in order of first appearance.
func renumber(labels []int) ([]int, int) {
	remap := make(map[int]int)
	out := make([]int, len(labels))
	for i, l := range labels {
		r, ok := remap[l]
		if !ok {
			r = len(remap)
			remap[l] = r
		}
		out[i] = r
	}
	return out, len(remap)
}

// aggregate collapses each community into a single node.
func aggregate(g *wgraph, comm []int, k int) *wgraph {
	weights := make([]map[int]float64, k)
	deg := make([]float64, k)
	for i := 0; i < g.n(); i++ {
		ci := comm[i]
		deg[ci] += g.deg[i]
		for _, e := range g.adj[i] {
			cj := comm[e.to]
			if ci == cj {
				continue
			}
			if weights[ci] == nil {
				weights[ci] = make(map[int]float64)
			}
			weights[ci][cj] += e.w
		}
	}

	out := &wgraph{adj: make([][]wedge, k), deg: deg, m2: g.m2}
	for c := 0; c < k; c++ {
		for to, w := range weights[c] {
			out.adj[c] = append(out.adj[c], wedge{to: to, w: w})
		}
		sort.Slice(out.adj[c], func(a, b int) bool { return out.adj[c][a].to < out.adj[c][b].to })
	}
	return out
}

// modularity computes Q for a partition of g.
func modularity(g *wgraph, comm []int, resolution float64) float64 {
	if g.m2 == 0 {
		return 0
	}
	in := make(map[int]float64)
	tot := make(map[int]float64)
	for i := 0; i < g.n(); i++ {
		tot[comm[i]] += g.deg[i]
		for _, e := range g.adj[i] {
			if comm[e.to] == comm[i] {
				in[comm[i]] += e.w
			}
		}
	}

	keys := make([]int, 0, len(tot))
	for c := range tot {
		keys = append(keys, c)
	}
	sort.Ints(keys)

	q := 0.0
	for _, c := range keys {
		share := tot[c] / g.m2
		q += in[c]/g.m2 - resolution*share*share
	}
	return q
}
