package compose

import (
	"regexp"
	"sort"
	"strings"

	"github.com/khanglvm/history-suits/internal/graph"
	"github.com/khanglvm/history-suits/internal/suits"
)

// Facet names.
const (
	FacetLocation  = "location"
	FacetLifestyle = "lifestyle"
	FacetPlaces    = "places"
	FacetWork      = "work"
)

// NotEnoughEvidence is the text of a facet nothing supports.
const NotEnoughEvidence = "Not enough evidence."

// KeywordFacet is a facet filled when gathered queries contain any of its
// keywords.
type KeywordFacet struct {
	Name     string
	Keywords []string
	Summary  string
}

// DefaultKeywordFacets returns the stock fashion and travel facets.
func DefaultKeywordFacets() []KeywordFacet {
	return []KeywordFacet{
		{
			Name:     "fashion",
			Keywords: []string{"dress", "gown", "heels", "shoes", "jewelry", "jewellery", "bags", "outfit"},
			Summary:  "Evidence suggests some fashion/shopping activity.",
		},
		{
			Name:     "travel",
			Keywords: []string{"flight", "hotel", "airport", "visa", "schengen", "things to do", "itinerary", "tickets"},
			Summary:  "Evidence suggests some travel planning activity.",
		},
	}
}

// Facet is one line of the profile snapshot.
type Facet struct {
	Name         string   `json:"name"`
	Text         string   `json:"text"`
	Examples     []string `json:"examples,omitempty"`
	Backfillable bool     `json:"backfillable"`
}

// Supported reports whether the facet carries real content.
func (f Facet) Supported() bool {
	t := strings.ToLower(strings.TrimSpace(f.Text))
	return t != "" && !strings.HasPrefix(t, "not enough evidence")
}

// Snapshot is the cross-theme profile.
type Snapshot struct {
	Facets      []Facet `json:"facets"`
	Prose       string  `json:"prose,omitempty"`
	Interpreted bool    `json:"interpreted"`
}

// Facet returns the named facet, or nil.
func (s *Snapshot) Facet(name string) *Facet {
	for i := range s.Facets {
		if s.Facets[i].Name == name {
			return &s.Facets[i]
		}
	}
	return nil
}

// Names lists facet names in order.
func (s *Snapshot) Names() []string {
	out := make([]string, len(s.Facets))
	for i, f := range s.Facets {
		out[i] = f.Name
	}
	return out
}

var placePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bthings\s+to\s+do\s+in\s+([a-z][a-z\s]{2,40})`),
	regexp.MustCompile(`\baround\s+([a-z][a-z\s]{2,40})\b`),
	regexp.MustCompile(`\bnear\s+([a-z][a-z\s]{2,40})\b`),
}

// Places extracts place mentions from queries, most frequent first, ties in
// first-seen order.
func Places(queries []string, limit int) []string {
	counts := make(map[string]int)
	var order []string
	for _, q := range queries {
		s := strings.ToLower(strings.TrimSpace(q))
		if s == "" {
			continue
		}
		for _, re := range placePatterns {
			m := re.FindStringSubmatch(s)
			if m == nil {
				continue
			}
			words := strings.Fields(m[1])
			if len(words) > 3 {
				words = words[:3]
			}
			place := strings.Join(words, " ")
			if len(place) < 3 {
				continue
			}
			if counts[place] == 0 {
				order = append(order, place)
			}
			counts[place]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if limit > 0 && len(order) > limit {
		order = order[:limit]
	}
	return order
}

// KeywordHits returns up to limit distinct queries containing any keyword.
func KeywordHits(queries []string, keywords []string, limit int) []string {
	var out []string
	seen := make(map[string]bool)
	for _, q := range queries {
		s := strings.ToLower(q)
		for _, k := range keywords {
			if k != "" && strings.Contains(s, strings.ToLower(k)) && !seen[q] {
				seen[q] = true
				out = append(out, q)
				break
			}
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// Gather collects a broad, grounded query list across suits: top queries,
// high-signal query evidence and the queries of representative sessions.
func Gather(g *graph.Graph, ss []*suits.Suit, opts Options) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(q string) {
		q = strings.TrimSpace(q)
		if q == "" || seen[q] {
			return
		}
		seen[q] = true
		out = append(out, q)
	}

	for _, s := range ss {
		for i, q := range s.TopQueries {
			if i >= opts.GatherTopQueries {
				break
			}
			add(q)
		}
		for _, e := range s.Evidence() {
			if e.Kind == graph.KindQuery && e.PSignal >= opts.GatherPSignalMin {
				add(e.Text)
			}
		}
		for i, sid := range s.RepresentativeSessions {
			if i >= opts.GatherSessions {
				break
			}
			for _, q := range strongestQueries(g, sid, opts.GatherPerSession) {
				add(q)
			}
		}
		if len(out) >= opts.GatherMaxTotal {
			break
		}
	}

	if len(out) > opts.GatherMaxTotal {
		out = out[:opts.GatherMaxTotal]
	}
	return out
}

func strongestQueries(g *graph.Graph, session graph.NodeID, n int) []string {
	edges := g.NeighborsOfKind(session, graph.KindQuery)
	sort.SliceStable(edges, func(i, j int) bool { return edges[i].Weight > edges[j].Weight })
	if n > 0 && len(edges) > n {
		edges = edges[:n]
	}
	out := make([]string, len(edges))
	for i, e := range edges {
		out[i] = e.To.Key()
	}
	return out
}

// FallbackSnapshot builds the snapshot by pattern matching over gathered
// queries only. It never states anything the queries do not show.
func FallbackSnapshot(ss []*suits.Suit, gathered []string, opts Options) Snapshot {
	snap := Snapshot{}
	snap.Facets = append(snap.Facets, Facet{Name: FacetLocation, Text: NotEnoughEvidence})

	var labels []string
	for _, s := range ss {
		if s.Label != "" && len(labels) < opts.MaxLabels {
			labels = append(labels, s.Label)
		}
	}
	lifestyle := Facet{Name: FacetLifestyle, Text: NotEnoughEvidence}
	if len(labels) > 0 {
		lifestyle.Text = "Themes suggest: " + strings.Join(labels, ", ")
		lifestyle.Examples = labels
	}
	snap.Facets = append(snap.Facets, lifestyle)

	snap.Facets = append(snap.Facets, placesFacet(gathered, opts))
	for _, kf := range opts.KeywordFacets {
		snap.Facets = append(snap.Facets, keywordFacet(kf, gathered, opts))
	}

	snap.Facets = append(snap.Facets, Facet{Name: FacetWork, Text: NotEnoughEvidence})
	return snap
}

func placesFacet(gathered []string, opts Options) Facet {
	f := Facet{Name: FacetPlaces, Text: NotEnoughEvidence, Backfillable: true}
	places := Places(gathered, opts.MaxPlaces)
	if len(places) > 0 {
		shown := places
		if len(shown) > opts.MaxExamples {
			shown = shown[:opts.MaxExamples]
		}
		f.Text = "Places searched: " + strings.Join(shown, ", ")
		f.Examples = places
	}
	return f
}

func keywordFacet(kf KeywordFacet, gathered []string, opts Options) Facet {
	f := Facet{Name: kf.Name, Text: NotEnoughEvidence, Backfillable: true}
	if hits := KeywordHits(gathered, kf.Keywords, opts.MaxExamples); len(hits) > 0 {
		f.Text = kf.Summary
		f.Examples = hits
	}
	return f
}

// backfill copies grounded facets from fallback into snap where snap has
// nothing and the facet is still backfillable. Populated facets are kept.
func backfill(snap *Snapshot, fallback Snapshot) int {
	filled := 0
	for _, fb := range fallback.Facets {
		if !fb.Backfillable || !fb.Supported() {
			continue
		}
		cur := snap.Facet(fb.Name)
		if cur == nil {
			snap.Facets = append(snap.Facets, fb)
			filled++
			continue
		}
		if cur.Supported() {
			if len(cur.Examples) == 0 {
				cur.Examples = fb.Examples
			}
			continue
		}
		cur.Text = fb.Text
		cur.Examples = fb.Examples
		filled++
	}
	return filled
}
