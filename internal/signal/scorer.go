/*
Package signal estimates how much each query says about a durable interest.

A query seen across many sessions, next to many different domains, without
being hammered repeatedly inside one session, is a persistent interest. A
string typed once, or refreshed twenty times in a row, is mostly noise. The
resulting psignal value in [0, 1] scales every downstream weight; nothing is
deleted here.
*/
package signal

import (
	"math"

	"github.com/khanglvm/history-suits/internal/events"
)

const (
	// DefaultMinQuality is the quality gate below which psignal is forced to 0.
	DefaultMinQuality = 0.25

	// persistenceWeight is the weight of cross-session recurrence (45%).
	persistenceWeight = 0.45

	// spreadWeight is the weight of co-occurring domain variety (25%).
	spreadWeight = 0.25

	// burstWeight is the weight of the anti-burst term (30%).
	burstWeight = 0.30
)

// Weights are the tunable coefficients of the psignal formula.
type Weights struct {
	Persistence float64
	Spread      float64
	Burst       float64
}

// DefaultWeights returns the stock coefficients.
func DefaultWeights() Weights {
	return Weights{
		Persistence: persistenceWeight,
		Spread:      spreadWeight,
		Burst:       burstWeight,
	}
}

// Options configure the scorer.
type Options struct {
	MinQuality float64
	Weights    Weights
}

// DefaultOptions returns the stock scorer configuration.
func DefaultOptions() Options {
	return Options{MinQuality: DefaultMinQuality, Weights: DefaultWeights()}
}

// QueryStats are the per-query statistics computed once per build.
type QueryStats struct {
	Query       string  `json:"query"`
	SessionDF   int     `json:"session_df"`
	DomainDF    int     `json:"domain_df"`
	Occurrences int     `json:"occurrences"`
	Burstiness  float64 `json:"burstiness"`
	Quality     float64 `json:"quality"`
	PSignal     float64 `json:"psignal"`
}

// Passes reports whether the query cleared the quality gate.
func (s QueryStats) Passes(minQuality float64) bool {
	return s.Quality >= minQuality
}

// Score computes QueryStats for every query in the sessions.
func Score(sessions []events.Session, opts Options) map[string]QueryStats {
	sessionDF := make(map[string]int)
	occurrences := make(map[string]int)
	domains := make(map[string]map[string]struct{})

	for _, s := range sessions {
		qc := s.QueryCounts()
		if len(qc) == 0 {
			continue
		}
		dc := s.DomainCounts()
		for q, c := range qc {
			sessionDF[q]++
			occurrences[q] += c
			set, ok := domains[q]
			if !ok {
				set = make(map[string]struct{})
				domains[q] = set
			}
			for d := range dc {
				set[d] = struct{}{}
			}
		}
	}

	stats := make(map[string]QueryStats, len(sessionDF))
	for q, df := range sessionDF {
		st := QueryStats{
			Query:       q,
			SessionDF:   df,
			DomainDF:    len(domains[q]),
			Occurrences: occurrences[q],
			Burstiness:  float64(occurrences[q]) / float64(df),
			Quality:     Quality(q),
		}
		st.PSignal = PSignal(st, opts)
		stats[q] = st
	}
	return stats
}

// PSignal combines the statistics into the final [0, 1] score.
// Queries failing the quality gate always score 0.
func PSignal(st QueryStats, opts Options) float64 {
	if st.Quality < opts.MinQuality || st.SessionDF <= 0 {
		return 0.0
	}

	w := opts.Weights
	persist := 1.0 - 1.0/(1.0+math.Log(float64(st.SessionDF)))
	spread := 1.0 - 1.0/(1.0+math.Log1p(float64(st.DomainDF)))

	burst := st.Burstiness
	if burst < 1 {
		burst = 1
	}
	burstKeep := 1.0 / (1.0 + math.Log(burst))

	raw := (w.Persistence*persist + w.Spread*spread + w.Burst*burstKeep) * st.Quality
	return clamp01(raw)
}
