/*
Package search implements keyword lookup across the evidence of a run.

Every evidence item of every suit is indexed in an in-memory Bleve index.
A lookup answers "which suit did this query or domain land in, and in which
evidence list", ranking keyword matches with a fusion of the BM25 score and
the item's similarity to its suit.
*/
package search

// List names.
const (
	ListPrimary   = "primary"
	ListSecondary = "secondary"
)

// Hit is one evidence item matching a lookup.
type Hit struct {
	Suit       int     `json:"suit"`
	SuitLabel  string  `json:"suit_label"`
	List       string  `json:"list"`
	Node       string  `json:"node"`
	Kind       string  `json:"kind"`
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
	PSignal    float64 `json:"psignal"`
	Score      float64 `json:"score"`
}

// EvidenceDocument is an evidence item as stored in the index.
type EvidenceDocument struct {
	ID         string
	Suit       int
	SuitLabel  string
	List       string
	Node       string
	Kind       string
	Text       string
	Words      string
	Similarity float64
	PSignal    float64
}
