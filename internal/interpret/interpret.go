/*
Package interpret defines the optional natural-language interpretation step.

An Interpreter receives an evidence bundle and returns a labeled, pruned view
of it. It may only choose among the candidates it was given; the composer
rejects anything else. Implementations call out to a text-generation service,
so every call takes a context and may fail or time out; callers must treat a
failure as "no interpretation" and fall back to the grounded output.
*/
package interpret

import (
	"context"
	"errors"

	"github.com/khanglvm/history-suits/internal/trails"
)

// Bundle kinds.
const (
	KindSuit    = "suit"
	KindProfile = "profile"
)

// ErrEmptyReply is returned when a backend answers without a JSON object.
var ErrEmptyReply = errors.New("no JSON object in reply")

// Candidate is one evidence item the interpreter may keep.
type Candidate struct {
	ID      string   `json:"id"`
	Kind    string   `json:"kind"`
	Text    string   `json:"text"`
	Domains []string `json:"domains,omitempty"`
	Titles  []string `json:"titles,omitempty"`
}

// Bundle is everything the interpreter sees for one request.
type Bundle struct {
	Kind       string         `json:"kind"`
	SuitID     int            `json:"suit_id,omitempty"`
	LabelHint  string         `json:"label_hint,omitempty"`
	TopQueries []string       `json:"top_queries,omitempty"`
	TopDomains []string       `json:"top_domains,omitempty"`
	Sessions   []trails.Trail `json:"sessions,omitempty"`
	Candidates []Candidate    `json:"candidates"`
	Facets     []string       `json:"facets,omitempty"`
}

// CandidateIDs returns the set of candidate ids.
func (b Bundle) CandidateIDs() map[string]bool {
	ids := make(map[string]bool, len(b.Candidates))
	for _, c := range b.Candidates {
		ids[c.ID] = true
	}
	return ids
}

// Response is the interpreter's answer.
type Response struct {
	FinalLabel      string            `json:"final_label"`
	KeptEvidenceIDs []string          `json:"kept_evidence_ids"`
	Prose           string            `json:"prose"`
	Facets          map[string]string `json:"facets,omitempty"`
}

// Interpreter turns an evidence bundle into a labeled, pruned response.
type Interpreter interface {
	Interpret(ctx context.Context, b Bundle) (*Response, error)
}

// Func adapts a function to the Interpreter interface.
type Func func(ctx context.Context, b Bundle) (*Response, error)

// Interpret calls f.
func (f Func) Interpret(ctx context.Context, b Bundle) (*Response, error) {
	return f(ctx, b)
}

// Noop keeps every candidate and the label hint and writes no prose. The
// composer output with Noop equals the grounded output.
type Noop struct{}

// Interpret implements Interpreter.
func (Noop) Interpret(ctx context.Context, b Bundle) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp := &Response{FinalLabel: b.LabelHint}
	for _, c := range b.Candidates {
		resp.KeptEvidenceIDs = append(resp.KeptEvidenceIDs, c.ID)
	}
	return resp, nil
}
