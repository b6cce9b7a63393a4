/*
Package expand attaches evidence to discovered suits.

Primary evidence is every item semantically close to the suit centroid.
Secondary evidence comes from the sessions where the suit's queries were
actually typed: their other queries and domains are admitted only through a
similarity gate, and domains present in too large a share of all sessions are
never admitted at all. Primary and secondary lists are disjoint.
*/
package expand

import (
	"context"
	"runtime"
	"sort"

	"github.com/khanglvm/history-suits/internal/graph"
	"github.com/khanglvm/history-suits/internal/suits"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Options configure evidence expansion.
type Options struct {
	ExpandSimThreshold     float64
	SessionGateSim         float64
	DomainMaxSessionFrac   float64
	OverlapPSignalMin      float64
	SeedPSignalMin         float64
	MinQuality             float64
	SignatureTokens        int
	TopSessions            int
	SessionExpandItems     int
	PrimaryCap             int
	SecondaryCap           int
	TopQueries             int
	TopDomains             int
	RepresentativeSessions int
	Workers                int
	Logger                 *zap.Logger
}

// DefaultOptions returns the stock expansion configuration.
func DefaultOptions() Options {
	return Options{
		ExpandSimThreshold:     0.18,
		SessionGateSim:         0.24,
		DomainMaxSessionFrac:   0.18,
		OverlapPSignalMin:      0.35,
		SeedPSignalMin:         suits.DefaultSeedPSignalMin,
		MinQuality:             0.25,
		SignatureTokens:        24,
		TopSessions:            10,
		SessionExpandItems:     20,
		PrimaryCap:             60,
		SecondaryCap:           80,
		TopQueries:             10,
		TopDomains:             8,
		RepresentativeSessions: 6,
	}
}

// Expander attaches evidence using a fixed graph and catalog.
type Expander struct {
	graph   *graph.Graph
	catalog *suits.Catalog
	opts    Options
	logger  *zap.Logger
}

// New creates an expander. The graph and catalog are only read.
func New(g *graph.Graph, cat *suits.Catalog, opts Options) *Expander {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Expander{graph: g, catalog: cat, opts: opts, logger: logger}
}

// ExpandAll expands every suit using up to Workers goroutines. Each suit is
// written only by its own worker so the result matches a sequential run.
func (x *Expander) ExpandAll(ctx context.Context, ss []*suits.Suit) error {
	workers := x.opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, s := range ss {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			x.Expand(s)
			return nil
		})
	}
	return g.Wait()
}

// Expand fills primary and secondary evidence, representative sessions, top
// lists and summary for one suit.
func (x *Expander) Expand(s *suits.Suit) {
	s.Primary = x.primary(s)

	inPrimary := make(map[graph.NodeID]bool, len(s.Primary))
	for _, e := range s.Primary {
		inPrimary[e.ID] = true
	}
	s.Secondary = x.secondary(s, inPrimary)

	x.Refresh(s)

	x.logger.Debug("suit expanded",
		zap.Int("suit", s.ID),
		zap.String("label", s.Label),
		zap.Int("primary", len(s.Primary)),
		zap.Int("secondary", len(s.Secondary)),
		zap.Int("sessions", len(s.RepresentativeSessions)))
}

// Refresh re-derives representative sessions, top lists and the summary
// from the evidence currently attached to s.
func (x *Expander) Refresh(s *suits.Suit) {
	s.RepresentativeSessions = RepresentativeSessions(x.graph, s.Evidence(), x.opts.RepresentativeSessions)
	s.TopQueries = x.topQueries(s)
	s.TopDomains = x.topDomains(s)
	s.Summary = Summary(s)
}

// eligible reports whether an item may become evidence at all.
func (x *Expander) eligible(it suits.Item) bool {
	if it.Kind == graph.KindQuery {
		return it.Quality >= x.opts.MinQuality && it.PSignal > 0
	}
	return it.Kind == graph.KindDomain
}

// generic reports whether a domain appears in too many sessions.
func (x *Expander) generic(it suits.Item) bool {
	if it.Kind != graph.KindDomain || x.catalog.Sessions == 0 {
		return false
	}
	return float64(it.SessionDF)/float64(x.catalog.Sessions) > x.opts.DomainMaxSessionFrac
}

func (x *Expander) evidence(i int, sim float64, reason string) suits.Evidence {
	it := x.catalog.Items[i]
	return suits.Evidence{
		ID:         it.ID,
		Kind:       it.Kind,
		Text:       it.Text,
		Similarity: sim,
		PSignal:    it.PSignal,
		Reason:     reason,
	}
}

// primary returns members plus every eligible item at or above
// ExpandSimThreshold, sorted by similarity and capped.
func (x *Expander) primary(s *suits.Suit) []suits.Evidence {
	members := make(map[graph.NodeID]bool, len(s.Members))
	for _, id := range s.Members {
		members[id] = true
	}

	var out []suits.Evidence
	for i, it := range x.catalog.Items {
		if !x.eligible(it) {
			continue
		}
		sim := x.catalog.Similarity(i, s.Centroid)
		if sim < x.opts.ExpandSimThreshold && !members[it.ID] {
			continue
		}
		out = append(out, x.evidence(i, sim, suits.ReasonSemantic))
	}
	sortEvidence(out)
	if x.opts.PrimaryCap > 0 && len(out) > x.opts.PrimaryCap {
		out = out[:x.opts.PrimaryCap]
	}
	return out
}

// sessionsFor ranks sessions by edge weight to the suit's strong members.
func (x *Expander) sessionsFor(s *suits.Suit) []graph.NodeID {
	scores := make(map[graph.NodeID]float64)
	for _, id := range s.Members {
		it, ok := x.catalog.Item(id)
		if !ok || it.Kind != graph.KindQuery || it.PSignal < x.opts.SeedPSignalMin {
			continue
		}
		for _, e := range x.graph.NeighborsOfKind(id, graph.KindSession) {
			scores[e.To] += e.Weight
		}
	}
	return rankSessions(scores, x.opts.TopSessions)
}

// secondary admits session-context neighbours through the leakage gate.
func (x *Expander) secondary(s *suits.Suit, inPrimary map[graph.NodeID]bool) []suits.Evidence {
	signature := s.Signature(x.opts.SignatureTokens)
	seen := make(map[graph.NodeID]bool)
	var out []suits.Evidence

	for _, sid := range x.sessionsFor(s) {
		type cand struct {
			idx int
			sim float64
			id  graph.NodeID
		}
		var cands []cand
		for _, e := range x.graph.Neighbors(sid) {
			i := x.catalog.Lookup(e.To)
			if i < 0 || !x.eligible(x.catalog.Items[i]) {
				continue
			}
			cands = append(cands, cand{idx: i, sim: x.catalog.Similarity(i, s.Centroid), id: e.To})
		}
		sort.Slice(cands, func(a, b int) bool {
			if cands[a].sim != cands[b].sim {
				return cands[a].sim > cands[b].sim
			}
			return cands[a].id < cands[b].id
		})
		if x.opts.SessionExpandItems > 0 && len(cands) > x.opts.SessionExpandItems {
			cands = cands[:x.opts.SessionExpandItems]
		}

		for _, c := range cands {
			if inPrimary[c.id] || seen[c.id] {
				continue
			}
			it := x.catalog.Items[c.idx]
			if x.generic(it) {
				continue
			}
			if !x.admit(it, c.sim, signature) {
				continue
			}
			ev := x.evidence(c.idx, c.sim, suits.ReasonSession)
			ev.Session = sid
			out = append(out, ev)
			seen[c.id] = true
			if x.opts.SecondaryCap > 0 && len(out) >= x.opts.SecondaryCap {
				return out
			}
		}
	}
	return out
}

// admit is the leakage gate: similarity at or above SessionGateSim, or a
// query sharing a signature token with enough psignal.
func (x *Expander) admit(it suits.Item, sim float64, signature map[string]struct{}) bool {
	if sim >= x.opts.SessionGateSim {
		return true
	}
	if it.Kind != graph.KindQuery || it.PSignal < x.opts.OverlapPSignalMin {
		return false
	}
	return overlaps(it.Text, signature)
}
