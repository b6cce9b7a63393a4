package search

import (
	"sort"
)

// FusionConfig defines weights for hybrid score fusion.
type FusionConfig struct {
	KeywordWeight    float64
	SimilarityWeight float64
}

// DefaultFusionConfig favors keyword relevance (70% keyword, 30% similarity).
var DefaultFusionConfig = FusionConfig{
	KeywordWeight:    0.7,
	SimilarityWeight: 0.3,
}

// Lookup performs keyword search and re-ranks matches by fusing the
// normalized BM25 score with each item's similarity to its suit.
func (i *Indexer) Lookup(text string, limit int, config FusionConfig) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}

	hits, err := i.SearchBM25(text, limit*2)
	if err != nil {
		return nil, err
	}

	fused := fuseScores(normalizeScores(hits), config)
	sort.SliceStable(fused, func(a, b int) bool {
		if fused[a].Score != fused[b].Score {
			return fused[a].Score > fused[b].Score
		}
		if fused[a].Suit != fused[b].Suit {
			return fused[a].Suit < fused[b].Suit
		}
		return fused[a].Node < fused[b].Node
	})

	if len(fused) > limit {
		fused = fused[:limit]
	}
	return fused, nil
}

// fuseScores combines keyword and similarity scores using weighted fusion.
func fuseScores(hits []Hit, config FusionConfig) []Hit {
	out := make([]Hit, len(hits))
	for i, h := range hits {
		out[i] = h
		out[i].Score = config.KeywordWeight*h.Score + config.SimilarityWeight*h.Similarity
	}
	return out
}

// normalizeScores normalizes scores to [0, 1] range.
func normalizeScores(hits []Hit) []Hit {
	if len(hits) == 0 {
		return hits
	}

	minScore, maxScore := hits[0].Score, hits[0].Score
	for _, h := range hits {
		if h.Score < minScore {
			minScore = h.Score
		}
		if h.Score > maxScore {
			maxScore = h.Score
		}
	}

	normalized := make([]Hit, len(hits))
	for i, h := range hits {
		normalized[i] = h
		// Avoid division by zero - when all scores are equal, set all to 1.0
		if maxScore == minScore {
			normalized[i].Score = 1.0
		} else {
			normalized[i].Score = (h.Score - minScore) / (maxScore - minScore)
		}
	}
	return normalized
}
