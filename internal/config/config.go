/*
Package config handles loading, validating and writing history-suits
configuration.

Configuration is stored in ~/.history-suits.yaml. Every key can be
overridden from the environment with the HISTORY_SUITS_ prefix, dots
replaced by underscores (HISTORY_SUITS_SUITS_MAX_SUITS=4), and from CLI
flags bound to the same keys.

Schema:

	graph:
	  hub_domains: [google.com, youtube.com, ...]
	  hub_downweight: 0.15
	community:
	  min_size: 3
	suits:
	  sim_threshold: 0.27
	  max_suits: 8
	expand:
	  session_gate_sim: 0.24
	  domain_max_session_frac: 0.18
	compose:
	  keyword_facets:
	    - name: travel
	      keywords: [flight, hotel]
	      summary: Evidence suggests some travel planning activity.
	interpret:
	  provider: none
	storage:
	  enabled: true
	workers: 0
	log:
	  level: info
	  format: console
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/khanglvm/history-suits/internal/community"
	"github.com/khanglvm/history-suits/internal/compose"
	"github.com/khanglvm/history-suits/internal/expand"
	"github.com/khanglvm/history-suits/internal/graph"
	"github.com/khanglvm/history-suits/internal/signal"
	"github.com/khanglvm/history-suits/internal/suits"
	"github.com/khanglvm/history-suits/internal/trails"
)

// Config represents the root configuration structure.
type Config struct {
	Graph     GraphConfig     `mapstructure:"graph" yaml:"graph" json:"graph"`
	Community CommunityConfig `mapstructure:"community" yaml:"community" json:"community"`
	Suits     SuitsConfig     `mapstructure:"suits" yaml:"suits" json:"suits"`
	Expand    ExpandConfig    `mapstructure:"expand" yaml:"expand" json:"expand"`
	Compose   ComposeConfig   `mapstructure:"compose" yaml:"compose" json:"compose"`
	Interpret InterpretConfig `mapstructure:"interpret" yaml:"interpret" json:"interpret"`
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage" json:"storage"`

	// Workers bounds parallel vectorization and expansion. 0 means one per CPU.
	Workers int `mapstructure:"workers" yaml:"workers" json:"workers" validate:"gte=0"`

	Log LogConfig `mapstructure:"log" yaml:"log" json:"-"`
}

// GraphConfig covers query scoring and graph construction.
type GraphConfig struct {
	HubDomains           []string `mapstructure:"hub_domains" yaml:"hub_domains" json:"hub_domains" validate:"dive,required,hostname_rfc1123"`
	HubDownweight        float64  `mapstructure:"hub_downweight" yaml:"hub_downweight" json:"hub_downweight" validate:"gte=0,lt=1"`
	DomainWeight         float64  `mapstructure:"domain_weight" yaml:"domain_weight" json:"domain_weight" validate:"gt=0,lte=1"`
	DomainQueryWeight    float64  `mapstructure:"domain_query_weight" yaml:"domain_query_weight" json:"domain_query_weight" validate:"gt=0,lte=1"`
	TopDomainsPerSession int      `mapstructure:"top_domains_per_session" yaml:"top_domains_per_session" json:"top_domains_per_session" validate:"gt=0"`
	TopQueriesPerSession int      `mapstructure:"top_queries_per_session" yaml:"top_queries_per_session" json:"top_queries_per_session" validate:"gt=0"`
	MinQuality           float64  `mapstructure:"min_quality" yaml:"min_quality" json:"min_quality" validate:"gte=0,lte=1"`
}

// CommunityConfig covers projection partitioning.
type CommunityConfig struct {
	Resolution      float64 `mapstructure:"resolution" yaml:"resolution" json:"resolution" validate:"gt=0"`
	MaxPasses       int     `mapstructure:"max_passes" yaml:"max_passes" json:"max_passes" validate:"gt=0"`
	MaxLevels       int     `mapstructure:"max_levels" yaml:"max_levels" json:"max_levels" validate:"gt=0"`
	MinSize         int     `mapstructure:"min_size" yaml:"min_size" json:"min_size" validate:"gte=1"`
	MinQueryPSignal float64 `mapstructure:"min_query_psignal" yaml:"min_query_psignal" json:"min_query_psignal" validate:"gte=0,lte=1"`
	SummaryTopN     int     `mapstructure:"summary_top_n" yaml:"summary_top_n" json:"summary_top_n" validate:"gt=0"`
}

// SuitsConfig covers theme seeding.
type SuitsConfig struct {
	SeedPSignalMin  float64 `mapstructure:"seed_psignal_min" yaml:"seed_psignal_min" json:"seed_psignal_min" validate:"gte=0,lte=1"`
	SeedMaxItems    int     `mapstructure:"seed_max_items" yaml:"seed_max_items" json:"seed_max_items" validate:"gt=0"`
	SimThreshold    float64 `mapstructure:"sim_threshold" yaml:"sim_threshold" json:"sim_threshold" validate:"gte=0,lte=1"`
	MaxSuits        int     `mapstructure:"max_suits" yaml:"max_suits" json:"max_suits" validate:"gt=0"`
	SiteTokenWeight float64 `mapstructure:"site_token_weight" yaml:"site_token_weight" json:"site_token_weight" validate:"gte=0"`
}

// ExpandConfig covers evidence expansion.
type ExpandConfig struct {
	ExpandSimThreshold     float64 `mapstructure:"expand_sim_threshold" yaml:"expand_sim_threshold" json:"expand_sim_threshold" validate:"gte=0,lte=1"`
	SessionGateSim         float64 `mapstructure:"session_gate_sim" yaml:"session_gate_sim" json:"session_gate_sim" validate:"gte=0,lte=1"`
	DomainMaxSessionFrac   float64 `mapstructure:"domain_max_session_frac" yaml:"domain_max_session_frac" json:"domain_max_session_frac" validate:"gt=0,lte=1"`
	OverlapPSignalMin      float64 `mapstructure:"overlap_psignal_min" yaml:"overlap_psignal_min" json:"overlap_psignal_min" validate:"gte=0,lte=1"`
	SignatureTokens        int     `mapstructure:"signature_tokens" yaml:"signature_tokens" json:"signature_tokens" validate:"gt=0"`
	TopSessions            int     `mapstructure:"top_sessions" yaml:"top_sessions" json:"top_sessions" validate:"gt=0"`
	SessionExpandItems     int     `mapstructure:"session_expand_items" yaml:"session_expand_items" json:"session_expand_items" validate:"gt=0"`
	PrimaryCap             int     `mapstructure:"primary_cap" yaml:"primary_cap" json:"primary_cap" validate:"gt=0"`
	SecondaryCap           int     `mapstructure:"secondary_cap" yaml:"secondary_cap" json:"secondary_cap" validate:"gte=0"`
	TopQueries             int     `mapstructure:"top_queries" yaml:"top_queries" json:"top_queries" validate:"gt=0"`
	TopDomains             int     `mapstructure:"top_domains" yaml:"top_domains" json:"top_domains" validate:"gt=0"`
	RepresentativeSessions int     `mapstructure:"representative_sessions" yaml:"representative_sessions" json:"representative_sessions" validate:"gt=0"`
}

// FacetConfig is one keyword facet of the profile snapshot.
type FacetConfig struct {
	Name     string   `mapstructure:"name" yaml:"name" json:"name" validate:"required"`
	Keywords []string `mapstructure:"keywords" yaml:"keywords" json:"keywords" validate:"min=1,dive,required"`
	Summary  string   `mapstructure:"summary" yaml:"summary" json:"summary" validate:"required"`
}

// ComposeConfig covers the profile snapshot.
type ComposeConfig struct {
	GatherPSignalMin float64       `mapstructure:"gather_psignal_min" yaml:"gather_psignal_min" json:"gather_psignal_min" validate:"gte=0,lte=1"`
	GatherPerSession int           `mapstructure:"gather_per_session" yaml:"gather_per_session" json:"gather_per_session" validate:"gt=0"`
	GatherMaxTotal   int           `mapstructure:"gather_max_total" yaml:"gather_max_total" json:"gather_max_total" validate:"gt=0"`
	KeywordFacets    []FacetConfig `mapstructure:"keyword_facets" yaml:"keyword_facets" json:"keyword_facets" validate:"dive"`
	TrailTopN        int           `mapstructure:"trail_top_n" yaml:"trail_top_n" json:"trail_top_n" validate:"gt=0"`
	TrailMaxTitles   int           `mapstructure:"trail_max_titles" yaml:"trail_max_titles" json:"trail_max_titles" validate:"gte=0"`
}

// InterpretConfig selects the optional interpretation service.
type InterpretConfig struct {
	Provider       string `mapstructure:"provider" yaml:"provider" json:"provider" validate:"oneof=none anthropic openai"`
	Model          string `mapstructure:"model" yaml:"model" json:"model,omitempty"`
	BaseURL        string `mapstructure:"base_url" yaml:"base_url" json:"base_url,omitempty" validate:"omitempty,url"`
	APIKeyEnv      string `mapstructure:"api_key_env" yaml:"api_key_env" json:"-"`
	MaxTokens      int    `mapstructure:"max_tokens" yaml:"max_tokens" json:"max_tokens" validate:"gte=0"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds" json:"timeout_seconds" validate:"gt=0"`
	Cache          bool   `mapstructure:"cache" yaml:"cache" json:"cache"`
}

// StorageConfig controls the run history database.
type StorageConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled" json:"-"`
	Path    string `mapstructure:"path" yaml:"path" json:"-"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=console json"`
}

// Default returns the stock configuration.
func Default() *Config {
	build := graph.DefaultBuildOptions()
	comm := community.DefaultOptions()
	seed := suits.DefaultOptions()
	exp := expand.DefaultOptions()
	comp := compose.DefaultOptions()
	tr := trails.DefaultOptions()

	facets := make([]FacetConfig, 0, len(comp.KeywordFacets))
	for _, kf := range comp.KeywordFacets {
		facets = append(facets, FacetConfig{Name: kf.Name, Keywords: kf.Keywords, Summary: kf.Summary})
	}

	return &Config{
		Graph: GraphConfig{
			HubDomains:           append([]string(nil), graph.DefaultHubDomains...),
			HubDownweight:        build.HubDownweight,
			DomainWeight:         build.DomainWeight,
			DomainQueryWeight:    build.DomainQueryWeight,
			TopDomainsPerSession: build.TopDomainsPerSession,
			TopQueriesPerSession: build.TopQueriesPerSession,
			MinQuality:           signal.DefaultMinQuality,
		},
		Community: CommunityConfig{
			Resolution:      comm.Resolution,
			MaxPasses:       comm.MaxPasses,
			MaxLevels:       comm.MaxLevels,
			MinSize:         comm.MinSize,
			MinQueryPSignal: comm.MinQueryPSignal,
			SummaryTopN:     comm.SummaryTopN,
		},
		Suits: SuitsConfig{
			SeedPSignalMin:  seed.SeedPSignalMin,
			SeedMaxItems:    seed.SeedMaxItems,
			SimThreshold:    seed.SimThreshold,
			MaxSuits:        seed.MaxSuits,
			SiteTokenWeight: suits.DefaultSiteTokenWeight,
		},
		Expand: ExpandConfig{
			ExpandSimThreshold:     exp.ExpandSimThreshold,
			SessionGateSim:         exp.SessionGateSim,
			DomainMaxSessionFrac:   exp.DomainMaxSessionFrac,
			OverlapPSignalMin:      exp.OverlapPSignalMin,
			SignatureTokens:        exp.SignatureTokens,
			TopSessions:            exp.TopSessions,
			SessionExpandItems:     exp.SessionExpandItems,
			PrimaryCap:             exp.PrimaryCap,
			SecondaryCap:           exp.SecondaryCap,
			TopQueries:             exp.TopQueries,
			TopDomains:             exp.TopDomains,
			RepresentativeSessions: exp.RepresentativeSessions,
		},
		Compose: ComposeConfig{
			GatherPSignalMin: comp.GatherPSignalMin,
			GatherPerSession: comp.GatherPerSession,
			GatherMaxTotal:   comp.GatherMaxTotal,
			KeywordFacets:    facets,
			TrailTopN:        tr.TopN,
			TrailMaxTitles:   tr.MaxTitles,
		},
		Interpret: InterpretConfig{
			Provider:       "none",
			TimeoutSeconds: int(compose.DefaultTimeout.Seconds()),
			MaxTokens:      1024,
			Cache:          true,
		},
		Storage: StorageConfig{Enabled: true},
		Log:     LogConfig{Level: "info", Format: "console"},
	}
}

// DefaultPath returns the path to ~/.history-suits.yaml
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".history-suits.yaml"), nil
}
