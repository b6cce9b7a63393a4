package suits

import (
	"context"
	"fmt"
	"sort"

	"github.com/khanglvm/history-suits/internal/graph"
	"github.com/khanglvm/history-suits/internal/signal"
	"github.com/khanglvm/history-suits/internal/text"
)

const (
	// DefaultSiteTokenWeight is the raw weight of a neighbouring domain's
	// site token inside a query document.
	DefaultSiteTokenWeight = 0.30

	// siteTokensPerQuery bounds how many neighbouring domains tag a query.
	siteTokensPerQuery = 3
)

// Item is a query or domain node prepared for similarity scoring.
// PSignal and Quality are only meaningful for queries.
type Item struct {
	ID        graph.NodeID `json:"id"`
	Kind      graph.Kind   `json:"kind"`
	Text      string       `json:"text"`
	PSignal   float64      `json:"psignal"`
	Quality   float64      `json:"quality"`
	SessionDF int          `json:"session_df"`
	Mass      float64      `json:"mass"`
}

// CatalogOptions configure item vectorization.
type CatalogOptions struct {
	SiteTokenWeight float64
	Workers         int
}

// Catalog holds every query and domain item with its TF-IDF vector.
type Catalog struct {
	Items    []Item
	Vectors  []text.Vector
	Sessions int
	index    map[graph.NodeID]int
}

// NewCatalog builds items for every query and domain node of g, sorted by id.
func NewCatalog(ctx context.Context, g *graph.Graph, stats map[string]signal.QueryStats, opts CatalogOptions) (*Catalog, error) {
	var ids []graph.NodeID
	ids = append(ids, g.Nodes(graph.KindQuery)...)
	ids = append(ids, g.Nodes(graph.KindDomain)...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	cat := &Catalog{
		Items:    make([]Item, len(ids)),
		Sessions: len(g.Nodes(graph.KindSession)),
		index:    make(map[graph.NodeID]int, len(ids)),
	}
	docs := make([]text.Document, len(ids))

	for i, id := range ids {
		item := Item{
			ID:        id,
			Kind:      id.Kind(),
			Text:      id.Key(),
			SessionDF: g.SessionDF(id),
			Mass:      g.Degree(id, graph.KindSession),
		}
		doc := text.Document{}

		if item.Kind == graph.KindQuery {
			st := stats[id.Key()]
			item.PSignal = st.PSignal
			item.Quality = st.Quality
			doc.Add(text.Tokenize(id.Key()), 1)

			domains := g.NeighborsOfKind(id, graph.KindDomain)
			sort.SliceStable(domains, func(a, b int) bool { return domains[a].Weight > domains[b].Weight })
			for k, e := range domains {
				if k >= siteTokensPerQuery {
					break
				}
				doc.Add([]string{text.SiteToken(e.To.Key())}, opts.SiteTokenWeight)
			}
		} else {
			item.Quality = 1.0
			doc.Add(text.DomainTokens(id.Key()), 1)
		}

		cat.Items[i] = item
		cat.index[id] = i
		docs[i] = doc
	}

	vecs, err := text.Vectorize(ctx, docs, opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("failed to vectorize items: %w", err)
	}
	cat.Vectors = vecs
	return cat, nil
}

// Lookup returns the index of id, or -1.
func (c *Catalog) Lookup(id graph.NodeID) int {
	if i, ok := c.index[id]; ok {
		return i
	}
	return -1
}

// Item returns the item for id.
func (c *Catalog) Item(id graph.NodeID) (Item, bool) {
	i := c.Lookup(id)
	if i < 0 {
		return Item{}, false
	}
	return c.Items[i], true
}

// Similarity returns the cosine between the item and a centroid.
func (c *Catalog) Similarity(i int, centroid text.Vector) float64 {
	return text.Cosine(c.Vectors[i], centroid)
}
