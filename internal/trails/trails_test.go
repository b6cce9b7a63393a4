package trails

import (
	"fmt"
	"testing"
	"time"

	"github.com/khanglvm/history-suits/internal/events"
	"github.com/khanglvm/history-suits/internal/signal"
)

func TestBuild(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	s := events.Session{ID: "a", Events: []events.Event{
		{Time: base, SessionID: "a", Domain: "google.com", Query: "kitchen island"},
		{Time: base.Add(time.Minute), SessionID: "a", Domain: "ikea.com", Title: "Kitchen islands - IKEA"},
		{Time: base.Add(2 * time.Minute), SessionID: "a", Domain: "google.com", Query: "weather"},
		{Time: base.Add(5 * time.Minute), SessionID: "a", Domain: "weather.com", Title: "Forecast"},
	}}
	stats := map[string]signal.QueryStats{
		"kitchen island": {PSignal: 0.6},
		"weather":        {PSignal: 0.1},
	}

	trails := Build([]events.Session{s, {ID: "empty"}}, stats, DefaultOptions())
	if len(trails) != 1 {
		t.Fatalf("Expected 1 trail, got %d", len(trails))
	}

	tr := trails["a"]
	if tr.Events != 4 {
		t.Errorf("Expected 4 events, got %d", tr.Events)
	}
	if tr.Duration() != 5*time.Minute {
		t.Errorf("Expected 5m duration, got %v", tr.Duration())
	}
	if tr.TopDomains[0] != "google.com" {
		t.Errorf("Expected google.com first, got %s", tr.TopDomains[0])
	}
	if len(tr.InterestQueries) != 1 || tr.InterestQueries[0] != "kitchen island" {
		t.Errorf("Expected kitchen island as interest query, got %v", tr.InterestQueries)
	}
	if len(tr.UtilityQueries) != 1 || tr.UtilityQueries[0] != "weather" {
		t.Errorf("Expected weather as utility query, got %v", tr.UtilityQueries)
	}
	if len(tr.Titles) != 2 {
		t.Errorf("Expected 2 titles, got %v", tr.Titles)
	}
}

func TestRepresentativeTitles(t *testing.T) {
	var evts []events.Event
	for i := 0; i < 20; i++ {
		evts = append(evts, events.Event{Title: fmt.Sprintf("t%02d", i)})
	}
	evts = append(evts, events.Event{Title: "t00"})

	got := representativeTitles(evts, 4)
	if len(got) != 4 {
		t.Fatalf("Expected 4 titles, got %d", len(got))
	}
	if got[0] != "t00" || got[3] != "t19" {
		t.Errorf("Expected first and last titles kept, got %v", got)
	}
}

func TestContexts(t *testing.T) {
	s := events.Session{ID: "a", Events: []events.Event{
		{Domain: "google.com", Query: "kitchen island"},
		{Domain: "ikea.com", Title: "IKEA"},
		{Domain: "wayfair.com", Title: "Wayfair"},
		{Domain: "google.com", Query: "oak table"},
		{Domain: "etsy.com", Title: "Etsy"},
	}}

	ctx := Contexts([]events.Session{s})
	ki := ctx["kitchen island"]
	if len(ki.Domains) != 2 || ki.Domains[0] != "ikea.com" {
		t.Errorf("Expected [ikea.com wayfair.com], got %v", ki.Domains)
	}
	if len(ctx["oak table"].Titles) != 1 {
		t.Errorf("Expected 1 title for oak table, got %v", ctx["oak table"].Titles)
	}
}
