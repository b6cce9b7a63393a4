package expand

import (
	"fmt"
	"sort"
	"strings"

	"github.com/khanglvm/history-suits/internal/graph"
	"github.com/khanglvm/history-suits/internal/suits"
	"github.com/khanglvm/history-suits/internal/text"
)

// sortEvidence orders by similarity desc, then id.
func sortEvidence(ev []suits.Evidence) {
	sort.SliceStable(ev, func(i, j int) bool {
		if ev[i].Similarity != ev[j].Similarity {
			return ev[i].Similarity > ev[j].Similarity
		}
		return ev[i].ID < ev[j].ID
	})
}

// rankSessions returns sessions with a positive score ordered by score desc,
// then id, capped at k (k <= 0 keeps all).
func rankSessions(scores map[graph.NodeID]float64, k int) []graph.NodeID {
	ids := make([]graph.NodeID, 0, len(scores))
	for id, sc := range scores {
		if sc > 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		if scores[ids[i]] != scores[ids[j]] {
			return scores[ids[i]] > scores[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if k > 0 && len(ids) > k {
		ids = ids[:k]
	}
	return ids
}

// RepresentativeSessions scores each session by the summed similarity of the
// query evidence it contains and returns the top k. It depends only on the
// evidence passed in, so pruning evidence and calling it again refines the
// result without re-running expansion.
func RepresentativeSessions(g *graph.Graph, evidence []suits.Evidence, k int) []graph.NodeID {
	scores := make(map[graph.NodeID]float64)
	for _, e := range evidence {
		if e.Kind != graph.KindQuery || e.Similarity <= 0 {
			continue
		}
		for _, s := range g.NeighborsOfKind(e.ID, graph.KindSession) {
			scores[s.To] += e.Similarity
		}
	}
	return rankSessions(scores, k)
}

// overlaps reports whether any word of query is in the signature.
func overlaps(query string, signature map[string]struct{}) bool {
	for _, w := range text.Words(query) {
		if _, ok := signature[w]; ok {
			return true
		}
	}
	return false
}

func (x *Expander) topQueries(s *suits.Suit) []string {
	var out []string
	for _, e := range s.Primary {
		if e.Kind != graph.KindQuery {
			continue
		}
		out = append(out, e.Text)
		if len(out) >= x.opts.TopQueries {
			break
		}
	}
	return out
}

// topDomains prefers primary domains seen in at least two sessions, falls
// back to any non-generic primary domain and tops up from secondary.
func (x *Expander) topDomains(s *suits.Suit) []string {
	limit := x.opts.TopDomains
	seen := make(map[string]bool)
	var out []string

	add := func(ev []suits.Evidence, minDF int) {
		for _, e := range ev {
			if len(out) >= limit {
				return
			}
			if e.Kind != graph.KindDomain || seen[e.Text] {
				continue
			}
			it, ok := x.catalog.Item(e.ID)
			if !ok || x.generic(it) || it.SessionDF < minDF {
				continue
			}
			seen[e.Text] = true
			out = append(out, e.Text)
		}
	}

	add(s.Primary, 2)
	if len(out) == 0 {
		add(s.Primary, 0)
	}
	add(s.Secondary, 0)
	return out
}

// Summary renders a one-sentence description built only from the suit's
// top lists and session count.
func Summary(s *suits.Suit) string {
	var b strings.Builder
	b.WriteString(s.Label)
	b.WriteString(":")

	if len(s.TopQueries) > 0 {
		fmt.Fprintf(&b, " searches such as %s", joinQuoted(head(s.TopQueries, 3)))
	}
	if len(s.TopDomains) > 0 {
		if len(s.TopQueries) > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, " visits to %s", strings.Join(head(s.TopDomains, 3), ", "))
	}
	if len(s.TopQueries) == 0 && len(s.TopDomains) == 0 {
		b.WriteString(" no supporting evidence")
	}
	fmt.Fprintf(&b, " across %d session", len(s.RepresentativeSessions))
	if len(s.RepresentativeSessions) != 1 {
		b.WriteString("s")
	}
	b.WriteString(".")
	return b.String()
}

func head(xs []string, n int) []string {
	if len(xs) > n {
		return xs[:n]
	}
	return xs
}

func joinQuoted(xs []string) string {
	quoted := make([]string, len(xs))
	for i, x := range xs {
		quoted[i] = fmt.Sprintf("%q", x)
	}
	return strings.Join(quoted, ", ")
}
