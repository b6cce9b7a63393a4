/*
Package events defines the normalized browsing-event stream consumed by the
suit pipeline.

Parsing raw activity exports, de-redirecting URLs and bucketing events into
sessions happen upstream. This package only reads the normalized form, one
Event per visit or search, and groups it into Sessions.
*/
package events

import (
	"sort"
	"time"
)

// Event is a single normalized browsing action.
type Event struct {
	Time      time.Time `json:"time"`
	SessionID string    `json:"session_id"`
	Domain    string    `json:"domain"`
	Query     string    `json:"query,omitempty"`
	Title     string    `json:"title,omitempty"`
	URL       string    `json:"url,omitempty"`
}

// HasQuery reports whether the event carries a search query.
func (e Event) HasQuery() bool {
	return e.Query != ""
}

// Session is a time-ordered run of events sharing a session id.
type Session struct {
	ID     string
	Events []Event
}

// Start returns the time of the first event, or the zero time.
func (s Session) Start() time.Time {
	if len(s.Events) == 0 {
		return time.Time{}
	}
	return s.Events[0].Time
}

// End returns the time of the last event, or the zero time.
func (s Session) End() time.Time {
	if len(s.Events) == 0 {
		return time.Time{}
	}
	return s.Events[len(s.Events)-1].Time
}

// DomainCounts counts events per domain.
func (s Session) DomainCounts() map[string]int {
	counts := make(map[string]int)
	for _, e := range s.Events {
		if e.Domain != "" {
			counts[e.Domain]++
		}
	}
	return counts
}

// QueryCounts counts events per query.
func (s Session) QueryCounts() map[string]int {
	counts := make(map[string]int)
	for _, e := range s.Events {
		if e.Query != "" {
			counts[e.Query]++
		}
	}
	return counts
}

// Batch is the result of loading an event source.
type Batch struct {
	Events  []Event
	Dropped int
}

// Sessions groups the batch into sessions in first-seen order.
// Events within a session are sorted by time, stable on input order.
func (b *Batch) Sessions() []Session {
	return Group(b.Events)
}

// Group buckets events by session id. Events with an empty session id are
// ignored.
func Group(evts []Event) []Session {
	index := make(map[string]int)
	var sessions []Session

	for _, e := range evts {
		if e.SessionID == "" {
			continue
		}
		i, ok := index[e.SessionID]
		if !ok {
			i = len(sessions)
			index[e.SessionID] = i
			sessions = append(sessions, Session{ID: e.SessionID})
		}
		sessions[i].Events = append(sessions[i].Events, e)
	}

	for i := range sessions {
		evs := sessions[i].Events
		sort.SliceStable(evs, func(a, b int) bool {
			return evs[a].Time.Before(evs[b].Time)
		})
	}

	return sessions
}

// Counted is a key with an occurrence count.
type Counted struct {
	Key   string
	Count int
}

// TopCounts returns the n most frequent keys, ties broken by key.
// n <= 0 returns all keys.
func TopCounts(counts map[string]int, n int) []Counted {
	out := make([]Counted, 0, len(counts))
	for k, c := range counts {
		out = append(out, Counted{Key: k, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
