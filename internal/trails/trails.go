/*
Package trails summarizes what happened inside each session.

A trail is the compact, human-checkable view of a session handed to the
interpretation step: when it happened, where the user went, what they
searched for (split into interest and utility searches) and a handful of
page titles.
*/
package trails

import (
	"time"

	"github.com/khanglvm/history-suits/internal/events"
	"github.com/khanglvm/history-suits/internal/signal"
)

const (
	// DefaultInterestPSignal separates interest searches from utility ones.
	DefaultInterestPSignal = 0.30

	// DefaultTopN bounds domains and queries per trail.
	DefaultTopN = 5

	// DefaultMaxTitles bounds representative titles per trail.
	DefaultMaxTitles = 8

	// contextFollowers is the number of events after a query inspected for
	// its landing domains and titles.
	contextFollowers = 3

	// contextCap bounds domains and titles kept per query.
	contextCap = 5
)

// Options configure trail construction.
type Options struct {
	InterestPSignal float64
	TopN            int
	MaxTitles       int
}

// DefaultOptions returns the stock configuration.
func DefaultOptions() Options {
	return Options{
		InterestPSignal: DefaultInterestPSignal,
		TopN:            DefaultTopN,
		MaxTitles:       DefaultMaxTitles,
	}
}

// Trail is the summary of one session.
type Trail struct {
	Session         string    `json:"session"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	Events          int       `json:"events"`
	TopDomains      []string  `json:"top_domains"`
	InterestQueries []string  `json:"interest_queries"`
	UtilityQueries  []string  `json:"utility_queries,omitempty"`
	Titles          []string  `json:"titles,omitempty"`
}

// Duration returns the session span.
func (t Trail) Duration() time.Duration {
	return t.End.Sub(t.Start)
}

// Build returns one trail per session keyed by session id.
func Build(sessions []events.Session, stats map[string]signal.QueryStats, opts Options) map[string]Trail {
	out := make(map[string]Trail, len(sessions))
	for _, s := range sessions {
		if s.ID == "" || len(s.Events) == 0 {
			continue
		}
		out[s.ID] = build(s, stats, opts)
	}
	return out
}

func build(s events.Session, stats map[string]signal.QueryStats, opts Options) Trail {
	t := Trail{
		Session: s.ID,
		Start:   s.Start(),
		End:     s.End(),
		Events:  len(s.Events),
	}
	for _, kc := range events.TopCounts(s.DomainCounts(), opts.TopN) {
		t.TopDomains = append(t.TopDomains, kc.Key)
	}
	for _, kc := range events.TopCounts(s.QueryCounts(), 0) {
		if stats[kc.Key].PSignal >= opts.InterestPSignal {
			if len(t.InterestQueries) < opts.TopN {
				t.InterestQueries = append(t.InterestQueries, kc.Key)
			}
		} else if len(t.UtilityQueries) < opts.TopN {
			t.UtilityQueries = append(t.UtilityQueries, kc.Key)
		}
	}
	t.Titles = representativeTitles(s.Events, opts.MaxTitles)
	return t
}

// representativeTitles keeps the first and last titles plus evenly spaced
// ones in between, without repeats.
func representativeTitles(evts []events.Event, limit int) []string {
	var titles []string
	seen := make(map[string]bool)
	for _, e := range evts {
		if e.Title == "" || seen[e.Title] {
			continue
		}
		seen[e.Title] = true
		titles = append(titles, e.Title)
	}
	if limit <= 0 || len(titles) <= limit {
		return titles
	}
	if limit == 1 {
		return titles[:1]
	}

	out := make([]string, 0, limit)
	step := float64(len(titles)-1) / float64(limit-1)
	for i := 0; i < limit; i++ {
		out = append(out, titles[int(float64(i)*step+0.5)])
	}
	return out
}

// QueryContext lists where a query led.
type QueryContext struct {
	Domains []string `json:"domains"`
	Titles  []string `json:"titles"`
}

// Contexts collects, for every query, the domains and titles of the events
// that followed it in the same session.
func Contexts(sessions []events.Session) map[string]QueryContext {
	out := make(map[string]QueryContext)
	for _, s := range sessions {
		for i, e := range s.Events {
			if !e.HasQuery() {
				continue
			}
			qc := out[e.Query]
			for j := i + 1; j < len(s.Events) && j <= i+contextFollowers; j++ {
				next := s.Events[j]
				if next.HasQuery() {
					break
				}
				qc.Domains = appendUnique(qc.Domains, next.Domain)
				qc.Titles = appendUnique(qc.Titles, next.Title)
			}
			out[e.Query] = qc
		}
	}
	return out
}

func appendUnique(xs []string, v string) []string {
	if v == "" || len(xs) >= contextCap {
		return xs
	}
	for _, x := range xs {
		if x == v {
			return xs
		}
	}
	return append(xs, v)
}
