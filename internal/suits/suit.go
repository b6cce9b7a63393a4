/*
Package suits discovers themes ("suits") from the evidence graph.

A suit starts from a high-signal query and absorbs further queries whose
TF-IDF vectors are close to its running centroid. Evidence attached later by
the expander must stay traceable to graph nodes.
*/
package suits

import (
	"strings"

	"github.com/khanglvm/history-suits/internal/graph"
	"github.com/khanglvm/history-suits/internal/text"
)

// Evidence reasons.
const (
	ReasonSemantic = "semantic-affinity"
	ReasonSession  = "session-context-gated"
)

// Evidence is one graph node attached to a suit.
type Evidence struct {
	ID         graph.NodeID `json:"id"`
	Kind       graph.Kind   `json:"kind"`
	Text       string       `json:"text"`
	Similarity float64      `json:"similarity"`
	PSignal    float64      `json:"psignal,omitempty"`
	Reason     string       `json:"reason"`
	Session    graph.NodeID `json:"session,omitempty"`
}

// Suit is an interpretable theme with its evidence.
type Suit struct {
	ID                     int            `json:"id"`
	Label                  string         `json:"label"`
	Centroid               text.Vector    `json:"-"`
	Members                []graph.NodeID `json:"members"`
	CommunityID            int            `json:"community_id"`
	Mass                   float64        `json:"mass"`
	Primary                []Evidence     `json:"primary_evidence"`
	Secondary              []Evidence     `json:"secondary_evidence"`
	RepresentativeSessions []graph.NodeID `json:"representative_sessions"`
	TopQueries             []string       `json:"top_queries"`
	TopDomains             []string       `json:"top_domains"`
	Summary                string         `json:"summary"`
	Prose                  string         `json:"prose,omitempty"`
}

// Evidence returns primary followed by secondary evidence.
func (s *Suit) Evidence() []Evidence {
	out := make([]Evidence, 0, len(s.Primary)+len(s.Secondary))
	out = append(out, s.Primary...)
	return append(out, s.Secondary...)
}

// Signature returns the n heaviest lexical centroid tokens. Bigrams are
// split into their words so overlap tests work on plain tokens.
func (s *Suit) Signature(n int) map[string]struct{} {
	sig := make(map[string]struct{}, n)
	for _, t := range s.Centroid.Top(n, isLexical) {
		for _, w := range strings.Split(t.Token, "_") {
			sig[w] = struct{}{}
		}
	}
	return sig
}

func isLexical(tok string) bool {
	return !text.IsSiteToken(tok)
}

func isUnigram(tok string) bool {
	return isLexical(tok) && !strings.Contains(tok, "_")
}

// labelFor builds a title-cased label from the top centroid unigrams.
func labelFor(centroid text.Vector, n int) string {
	terms := centroid.Top(n, isUnigram)
	if len(terms) == 0 {
		return "Misc"
	}
	words := make([]string, len(terms))
	for i, t := range terms {
		words[i] = strings.ToUpper(t.Token[:1]) + t.Token[1:]
	}
	return strings.Join(words, " ")
}
