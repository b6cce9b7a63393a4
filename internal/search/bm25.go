package search

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

var hitFields = []string{"text", "label", "kind", "list", "node", "suit", "similarity", "psignal"}

// SearchBM25 performs BM25 keyword search using Bleve.
func (i *Indexer) SearchBM25(text string, limit int) ([]Hit, error) {
	return i.search(i.buildMatchQuery(text), limit)
}

// SearchKind performs BM25 search scoped to one evidence kind.
func (i *Indexer) SearchKind(text, kind string, limit int) ([]Hit, error) {
	kindQuery := bleve.NewTermQuery(kind)
	kindQuery.SetField("kind")
	return i.search(bleve.NewConjunctionQuery(i.buildMatchQuery(text), kindQuery), limit)
}

func (i *Indexer) search(q query.Query, limit int) ([]Hit, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.Fields = hitFields
	req.SortBy([]string{"-_score", "_id"})

	results, err := i.bleveIndex.Search(req)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}
	return convertBleveResults(results), nil
}

// convertBleveResults converts Bleve search results to hits.
func convertBleveResults(results *bleve.SearchResult) []Hit {
	hits := make([]Hit, 0, len(results.Hits))
	for _, h := range results.Hits {
		hit := Hit{Score: h.Score}
		hit.Text, _ = h.Fields["text"].(string)
		hit.SuitLabel, _ = h.Fields["label"].(string)
		hit.Kind, _ = h.Fields["kind"].(string)
		hit.List, _ = h.Fields["list"].(string)
		hit.Node, _ = h.Fields["node"].(string)
		if v, ok := h.Fields["suit"].(float64); ok {
			hit.Suit = int(v)
		}
		hit.Similarity, _ = h.Fields["similarity"].(float64)
		hit.PSignal, _ = h.Fields["psignal"].(float64)
		hits = append(hits, hit)
	}
	return hits
}
