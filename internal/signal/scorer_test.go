package signal

import (
	"testing"
	"time"

	"github.com/khanglvm/history-suits/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestQuality(t *testing.T) {
	tests := []struct {
		query    string
		expected float64
	}{
		{"", 0.0},
		{"a", 0.0},
		{"ab", 0.10},
		{"123 4567", 0.25},
		{"ikea", 0.55},
		{"kitchen island", 0.85},
		{"best kitchen island ideas", 0.90},
		{"ab cd", 0.35},
		{"ok go to", 0.55},
		{"ab 12", 0.70},
		{"go kitchen", 0.85},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Quality(tt.query), 1e-9)
		})
	}
}

func session(id string, pairs ...string) events.Session {
	s := events.Session{ID: id}
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i+1 < len(pairs); i += 2 {
		s.Events = append(s.Events, events.Event{
			Time:      base.Add(time.Duration(i) * time.Minute),
			SessionID: id,
			Domain:    pairs[i],
			Query:     pairs[i+1],
		})
	}
	return s
}

func TestScore(t *testing.T) {
	sessions := []events.Session{
		session("a", "ikea.com", "kitchen island", "wayfair.com", ""),
		session("b", "ikea.com", "kitchen island", "ikea.com", "x"),
		session("c", "news.com", "weather", "news.com", "weather", "news.com", "weather"),
	}

	stats := Score(sessions, DefaultOptions())
	require.Len(t, stats, 3)

	ki := stats["kitchen island"]
	assert.Equal(t, 2, ki.SessionDF)
	assert.Equal(t, 2, ki.DomainDF)
	assert.Equal(t, 2, ki.Occurrences)
	assert.InDelta(t, 1.0, ki.Burstiness, 1e-9)
	assert.Greater(t, ki.PSignal, 0.0)

	weather := stats["weather"]
	assert.InDelta(t, 3.0, weather.Burstiness, 1e-9)
	assert.Less(t, weather.PSignal, ki.PSignal)

	assert.Zero(t, stats["x"].PSignal)
}

// TestPSignalGate verifies failing the quality gate always yields zero.
func TestPSignalGate(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		st := QueryStats{
			SessionDF:  rapid.IntRange(1, 500).Draw(rt, "sdf"),
			DomainDF:   rapid.IntRange(0, 500).Draw(rt, "ddf"),
			Burstiness: rapid.Float64Range(1, 50).Draw(rt, "burst"),
			Quality:    rapid.Float64Range(0, DefaultMinQuality-1e-6).Draw(rt, "quality"),
		}
		if got := PSignal(st, DefaultOptions()); got != 0 {
			rt.Fatalf("expected 0 for failing quality, got %f", got)
		}
	})
}

// TestPSignalMonotonic verifies the direction of each input.
func TestPSignalMonotonic(t *testing.T) {
	opts := DefaultOptions()
	rapid.Check(t, func(rt *rapid.T) {
		st := QueryStats{
			SessionDF:  rapid.IntRange(1, 200).Draw(rt, "sdf"),
			DomainDF:   rapid.IntRange(0, 200).Draw(rt, "ddf"),
			Burstiness: rapid.Float64Range(1, 20).Draw(rt, "burst"),
			Quality:    rapid.Float64Range(DefaultMinQuality, 1).Draw(rt, "quality"),
		}
		base := PSignal(st, opts)
		if base < 0 || base > 1 {
			rt.Fatalf("psignal out of range: %f", base)
		}

		more := st
		more.SessionDF++
		if PSignal(more, opts) < base {
			rt.Fatalf("psignal decreased with session_df")
		}

		spread := st
		spread.DomainDF++
		if PSignal(spread, opts) < base {
			rt.Fatalf("psignal decreased with domain_df")
		}

		bursty := st
		bursty.Burstiness += rapid.Float64Range(0.1, 10).Draw(rt, "extra")
		if PSignal(bursty, opts) > base {
			rt.Fatalf("psignal increased with burstiness")
		}
	})
}
