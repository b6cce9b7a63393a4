package graph

import (
	"math"

	"github.com/khanglvm/history-suits/internal/events"
	"github.com/khanglvm/history-suits/internal/signal"
	"go.uber.org/zap"
)

const (
	// DefaultHubDownweight scales session-domain edges of hub domains.
	DefaultHubDownweight = 0.15

	// DefaultDomainWeight scales session-domain edges of ordinary domains.
	DefaultDomainWeight = 0.90

	// DefaultDomainQueryWeight scales the domain-query layer.
	DefaultDomainQueryWeight = 0.65

	// DefaultTopPerSession bounds the domain x query pairs linked per session.
	DefaultTopPerSession = 10
)

// BuildOptions configure the graph builder.
type BuildOptions struct {
	Hubs                 HubSet
	HubDownweight        float64
	DomainWeight         float64
	DomainQueryWeight    float64
	TopDomainsPerSession int
	TopQueriesPerSession int
	Logger               *zap.Logger
}

// DefaultBuildOptions returns the stock builder configuration.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		Hubs:                 NewHubSet(DefaultHubDomains...),
		HubDownweight:        DefaultHubDownweight,
		DomainWeight:         DefaultDomainWeight,
		DomainQueryWeight:    DefaultDomainQueryWeight,
		TopDomainsPerSession: DefaultTopPerSession,
		TopQueriesPerSession: DefaultTopPerSession,
	}
}

// BuildReport describes what the builder did with its input.
type BuildReport struct {
	Sessions        int `json:"sessions"`
	SkippedSessions int `json:"skipped_sessions"`
}

// Build constructs the evidence graph. Malformed sessions (empty id or no
// events) are skipped and counted; Build never fails on bad input.
func Build(sessions []events.Session, stats map[string]signal.QueryStats, opts BuildOptions) (*Graph, BuildReport) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	g := New()
	var report BuildReport

	valid := make([]events.Session, 0, len(sessions))
	for _, s := range sessions {
		if s.ID == "" || len(s.Events) == 0 {
			report.SkippedSessions++
			continue
		}
		valid = append(valid, s)
	}
	report.Sessions = len(valid)

	domainIDF := domainIDF(valid)

	for _, s := range valid {
		sid := g.AddNode(KindSession, s.ID)
		dc := s.DomainCounts()
		qc := s.QueryCounts()

		for _, kc := range events.TopCounts(dc, 0) {
			did := g.AddNode(KindDomain, kc.Key)
			scale := opts.DomainWeight
			if opts.Hubs.IsHub(kc.Key) {
				scale = opts.HubDownweight
			}
			w := math.Log1p(float64(kc.Count)) * domainIDF[kc.Key] * scale
			mustLink(g, sid, did, w, logger)
		}

		for _, kc := range events.TopCounts(qc, 0) {
			qid := g.AddNode(KindQuery, kc.Key)
			w := math.Log1p(float64(kc.Count)) * stats[kc.Key].PSignal
			mustLink(g, sid, qid, w, logger)
		}

		// Domain-query co-occurrence, restricted to the session's busiest
		// non-hub domains and signal-bearing queries.
		var topDomains []events.Counted
		for _, kc := range events.TopCounts(dc, 0) {
			if opts.Hubs.IsHub(kc.Key) {
				continue
			}
			topDomains = append(topDomains, kc)
			if opts.TopDomainsPerSession > 0 && len(topDomains) >= opts.TopDomainsPerSession {
				break
			}
		}
		var topQueries []events.Counted
		for _, kc := range events.TopCounts(qc, 0) {
			if stats[kc.Key].PSignal <= 0 {
				continue
			}
			topQueries = append(topQueries, kc)
			if opts.TopQueriesPerSession > 0 && len(topQueries) >= opts.TopQueriesPerSession {
				break
			}
		}

		for _, d := range topDomains {
			for _, q := range topQueries {
				co := math.Min(float64(d.Count), float64(q.Count))
				w := co * domainIDF[d.Key] * stats[q.Key].PSignal * opts.DomainQueryWeight
				mustLink(g, DomainID(d.Key), QueryID(q.Key), w, logger)
			}
		}
	}

	if report.SkippedSessions > 0 {
		logger.Warn("skipped malformed sessions", zap.Int("skipped", report.SkippedSessions))
	}
	return g, report
}

// mustLink records an edge; failures indicate a builder bug and are logged.
func mustLink(g *Graph, a, b NodeID, w float64, logger *zap.Logger) {
	if err := g.AddWeight(a, b, w); err != nil {
		logger.Error("failed to add edge", zap.Error(err))
	}
}

// domainIDF returns ln((1+N)/(1+df)) + 1 for every domain.
func domainIDF(sessions []events.Session) map[string]float64 {
	df := make(map[string]int)
	for _, s := range sessions {
		for d := range s.DomainCounts() {
			df[d]++
		}
	}
	n := float64(len(sessions))
	idf := make(map[string]float64, len(df))
	for d, c := range df {
		idf[d] = math.Log((1.0+n)/(1.0+float64(c))) + 1.0
	}
	return idf
}

// SessionDF returns the number of sessions adjacent to id.
func (g *Graph) SessionDF(id NodeID) int {
	n := 0
	for to := range g.adj[id] {
		if to.Kind() == KindSession {
			n++
		}
	}
	return n
}
