package pipeline

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/khanglvm/history-suits/internal/community"
	"github.com/khanglvm/history-suits/internal/compose"
	"github.com/khanglvm/history-suits/internal/config"
	"github.com/khanglvm/history-suits/internal/expand"
	"github.com/khanglvm/history-suits/internal/graph"
	"github.com/khanglvm/history-suits/internal/signal"
	"github.com/khanglvm/history-suits/internal/storage"
	"github.com/khanglvm/history-suits/internal/suits"
	"github.com/khanglvm/history-suits/internal/trails"
	"go.uber.org/zap"
)

// Options holds the per-stage options of a run.
type Options struct {
	Signal    signal.Options
	Build     graph.BuildOptions
	Community community.Options
	Catalog   suits.CatalogOptions
	Seed      suits.Options
	Expand    expand.Options
	Compose   compose.Options
	Trails    trails.Options
	Logger    *zap.Logger
}

// DefaultOptions returns the stock options of every stage.
func DefaultOptions() Options {
	return Options{
		Signal:    signal.DefaultOptions(),
		Build:     graph.DefaultBuildOptions(),
		Community: community.DefaultOptions(),
		Catalog:   suits.CatalogOptions{SiteTokenWeight: suits.DefaultSiteTokenWeight},
		Seed:      suits.DefaultOptions(),
		Expand:    expand.DefaultOptions(),
		Compose:   compose.DefaultOptions(),
		Trails:    trails.DefaultOptions(),
	}
}

// FromConfig maps a validated configuration onto stage options. The hub set
// is built once and shared read-only by the builder and the detector.
func FromConfig(cfg *config.Config, logger *zap.Logger) Options {
	if logger == nil {
		logger = zap.NewNop()
	}
	hubs := graph.NewHubSet(cfg.Graph.HubDomains...)
	opts := DefaultOptions()
	opts.Logger = logger

	opts.Signal.MinQuality = cfg.Graph.MinQuality

	opts.Build = graph.BuildOptions{
		Hubs:                 hubs,
		HubDownweight:        cfg.Graph.HubDownweight,
		DomainWeight:         cfg.Graph.DomainWeight,
		DomainQueryWeight:    cfg.Graph.DomainQueryWeight,
		TopDomainsPerSession: cfg.Graph.TopDomainsPerSession,
		TopQueriesPerSession: cfg.Graph.TopQueriesPerSession,
		Logger:               logger,
	}

	opts.Community = community.Options{
		Hubs:            hubs,
		Resolution:      cfg.Community.Resolution,
		MaxPasses:       cfg.Community.MaxPasses,
		MaxLevels:       cfg.Community.MaxLevels,
		MinSize:         cfg.Community.MinSize,
		MinQueryPSignal: cfg.Community.MinQueryPSignal,
		SummaryTopN:     cfg.Community.SummaryTopN,
		Logger:          logger,
	}

	opts.Catalog = suits.CatalogOptions{
		SiteTokenWeight: cfg.Suits.SiteTokenWeight,
		Workers:         cfg.Workers,
	}

	opts.Seed = suits.Options{
		SeedPSignalMin: cfg.Suits.SeedPSignalMin,
		MinQuality:     cfg.Graph.MinQuality,
		SeedMaxItems:   cfg.Suits.SeedMaxItems,
		SimThreshold:   cfg.Suits.SimThreshold,
		MaxSuits:       cfg.Suits.MaxSuits,
		Logger:         logger,
	}

	e := cfg.Expand
	opts.Expand = expand.Options{
		ExpandSimThreshold:     e.ExpandSimThreshold,
		SessionGateSim:         e.SessionGateSim,
		DomainMaxSessionFrac:   e.DomainMaxSessionFrac,
		OverlapPSignalMin:      e.OverlapPSignalMin,
		SeedPSignalMin:         cfg.Suits.SeedPSignalMin,
		MinQuality:             cfg.Graph.MinQuality,
		SignatureTokens:        e.SignatureTokens,
		TopSessions:            e.TopSessions,
		SessionExpandItems:     e.SessionExpandItems,
		PrimaryCap:             e.PrimaryCap,
		SecondaryCap:           e.SecondaryCap,
		TopQueries:             e.TopQueries,
		TopDomains:             e.TopDomains,
		RepresentativeSessions: e.RepresentativeSessions,
		Workers:                cfg.Workers,
		Logger:                 logger,
	}

	opts.Compose.GatherPSignalMin = cfg.Compose.GatherPSignalMin
	opts.Compose.GatherPerSession = cfg.Compose.GatherPerSession
	opts.Compose.GatherMaxTotal = cfg.Compose.GatherMaxTotal
	opts.Compose.Timeout = time.Duration(cfg.Interpret.TimeoutSeconds) * time.Second
	opts.Compose.Logger = logger
	opts.Compose.KeywordFacets = nil
	for _, f := range cfg.Compose.KeywordFacets {
		opts.Compose.KeywordFacets = append(opts.Compose.KeywordFacets, compose.KeywordFacet{
			Name:     f.Name,
			Keywords: f.Keywords,
			Summary:  f.Summary,
		})
	}

	opts.Trails.TopN = cfg.Compose.TrailTopN
	opts.Trails.MaxTitles = cfg.Compose.TrailMaxTitles
	opts.Trails.InterestPSignal = cfg.Community.MinQueryPSignal

	return opts
}

var validate = validator.New()

// optionRule is one range constraint, named by the matching config key.
type optionRule struct {
	field string
	value interface{}
	tag   string
}

func (o Options) rules() []optionRule {
	return []optionRule{
		{"graph.min_quality", o.Signal.MinQuality, "gte=0,lte=1"},
		{"graph.hub_downweight", o.Build.HubDownweight, "gte=0,lt=1"},
		{"graph.domain_weight", o.Build.DomainWeight, "gt=0,lte=1"},
		{"graph.domain_query_weight", o.Build.DomainQueryWeight, "gt=0,lte=1"},
		{"graph.top_domains_per_session", o.Build.TopDomainsPerSession, "gt=0"},
		{"graph.top_queries_per_session", o.Build.TopQueriesPerSession, "gt=0"},
		{"suits.site_token_weight", o.Catalog.SiteTokenWeight, "gte=0"},
		{"suits.seed_psignal_min", o.Seed.SeedPSignalMin, "gte=0,lte=1"},
		{"suits.seed_max_items", o.Seed.SeedMaxItems, "gt=0"},
		{"suits.sim_threshold", o.Seed.SimThreshold, "gte=0,lte=1"},
		{"suits.max_suits", o.Seed.MaxSuits, "gt=0"},
		{"expand.expand_sim_threshold", o.Expand.ExpandSimThreshold, "gte=0,lte=1"},
		{"expand.session_gate_sim", o.Expand.SessionGateSim, "gte=0,lte=1"},
		{"expand.domain_max_session_frac", o.Expand.DomainMaxSessionFrac, "gt=0,lte=1"},
		{"expand.overlap_psignal_min", o.Expand.OverlapPSignalMin, "gte=0,lte=1"},
		{"expand.primary_cap", o.Expand.PrimaryCap, "gt=0"},
		{"expand.secondary_cap", o.Expand.SecondaryCap, "gte=0"},
		{"expand.top_sessions", o.Expand.TopSessions, "gt=0"},
		{"expand.representative_sessions", o.Expand.RepresentativeSessions, "gt=0"},
	}
}

// Validate checks the stage options a library caller assembled by hand.
// Every failing field is reported in one *config.ValidationError.
func (o Options) Validate() error {
	var problems []config.FieldProblem
	for _, r := range o.rules() {
		if err := validate.Var(r.value, r.tag); err != nil {
			problems = append(problems, config.FieldProblem{
				Field:   r.field,
				Message: fmt.Sprintf("must satisfy %s (got %v)", r.tag, r.value),
			})
		}
	}
	if o.Expand.SessionGateSim < o.Expand.ExpandSimThreshold {
		problems = append(problems, config.FieldProblem{
			Field:   "expand.session_gate_sim",
			Message: fmt.Sprintf("must be at least expand.expand_sim_threshold (%g)", o.Expand.ExpandSimThreshold),
		})
	}
	if len(problems) > 0 {
		return &config.ValidationError{Problems: problems}
	}
	return nil
}

// ConfigHash identifies the parts of cfg that affect results.
func ConfigHash(cfg *config.Config) string {
	data, err := json.Marshal(cfg)
	if err != nil {
		return ""
	}
	return storage.HashKey(data)
}
