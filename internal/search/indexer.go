package search

import (
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/khanglvm/history-suits/internal/suits"
	"github.com/khanglvm/history-suits/internal/text"
	"go.uber.org/zap"
)

// Indexer manages the search index for all evidence of a run.
type Indexer struct {
	bleveIndex bleve.Index
	mu         sync.RWMutex
	logger     *zap.Logger
}

// NewIndexer creates a new search indexer with in-memory Bleve index.
func NewIndexer(logger *zap.Logger) (*Indexer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}

	return &Indexer{bleveIndex: index, logger: logger}, nil
}

// buildIndexMapping creates the Bleve index mapping.
func buildIndexMapping() mapping.IndexMapping {
	evidenceMapping := bleve.NewDocumentMapping()

	// text and words: searchable text
	evidenceMapping.AddFieldMappingsAt("text", bleve.NewTextFieldMapping())
	evidenceMapping.AddFieldMappingsAt("words", bleve.NewTextFieldMapping())

	// label: stored, kept out of _all
	labelMapping := bleve.NewTextFieldMapping()
	labelMapping.IncludeInAll = false
	evidenceMapping.AddFieldMappingsAt("label", labelMapping)

	// kind and list: exact filters
	kindMapping := bleve.NewTextFieldMapping()
	kindMapping.Analyzer = keyword.Name
	kindMapping.IncludeInAll = false
	evidenceMapping.AddFieldMappingsAt("kind", kindMapping)

	listMapping := bleve.NewTextFieldMapping()
	listMapping.Analyzer = keyword.Name
	listMapping.IncludeInAll = false
	evidenceMapping.AddFieldMappingsAt("list", listMapping)

	// node: stored but not indexed (for retrieval)
	nodeMapping := bleve.NewTextFieldMapping()
	nodeMapping.Index = false
	nodeMapping.IncludeInAll = false
	evidenceMapping.AddFieldMappingsAt("node", nodeMapping)

	for _, f := range []string{"suit", "similarity", "psignal"} {
		num := bleve.NewNumericFieldMapping()
		num.IncludeInAll = false
		evidenceMapping.AddFieldMappingsAt(f, num)
	}

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", evidenceMapping)
	return indexMapping
}

// Documents flattens the evidence of ss into index documents.
func Documents(ss []*suits.Suit) []EvidenceDocument {
	var docs []EvidenceDocument
	for _, s := range ss {
		add := func(list string, ev []suits.Evidence) {
			for _, e := range ev {
				docs = append(docs, EvidenceDocument{
					ID:         fmt.Sprintf("%d/%s", s.ID, e.ID),
					Suit:       s.ID,
					SuitLabel:  s.Label,
					List:       list,
					Node:       string(e.ID),
					Kind:       string(e.Kind),
					Text:       e.Text,
					Words:      strings.Join(text.Words(strings.ReplaceAll(e.Text, ".", " ")), " "),
					Similarity: e.Similarity,
					PSignal:    e.PSignal,
				})
			}
		}
		add(ListPrimary, s.Primary)
		add(ListSecondary, s.Secondary)
	}
	return docs
}

// IndexSuits indexes all evidence of ss.
func (i *Indexer) IndexSuits(ss []*suits.Suit) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	batch := i.bleveIndex.NewBatch()
	for _, d := range Documents(ss) {
		doc := map[string]interface{}{
			"text":       d.Text,
			"words":      d.Words,
			"label":      d.SuitLabel,
			"kind":       d.Kind,
			"list":       d.List,
			"node":       d.Node,
			"suit":       float64(d.Suit),
			"similarity": d.Similarity,
			"psignal":    d.PSignal,
		}
		if err := batch.Index(d.ID, doc); err != nil {
			i.logger.Warn("failed to index evidence", zap.String("id", d.ID), zap.Error(err))
		}
	}

	if err := i.bleveIndex.Batch(batch); err != nil {
		return fmt.Errorf("failed to batch index evidence: %w", err)
	}
	return nil
}

// Count returns the total number of indexed evidence items.
func (i *Indexer) Count() (uint64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	docCount, err := i.bleveIndex.DocCount()
	if err != nil {
		return 0, fmt.Errorf("failed to get doc count: %w", err)
	}
	return docCount, nil
}

// Close closes the index and releases resources.
func (i *Indexer) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.bleveIndex != nil {
		return i.bleveIndex.Close()
	}
	return nil
}

func (i *Indexer) buildMatchQuery(searchText string) query.Query {
	return bleve.NewMatchQuery(searchText)
}
