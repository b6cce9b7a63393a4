package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Suits.MaxSuits != 8 || cfg.Suits.SimThreshold != 0.27 {
		t.Errorf("unexpected suit defaults: %+v", cfg.Suits)
	}
	if cfg.Interpret.Provider != "none" {
		t.Errorf("Provider = %q, want none", cfg.Interpret.Provider)
	}
}

func TestValidateListsEveryField(t *testing.T) {
	cfg := Default()
	cfg.Suits.SimThreshold = 1.5
	cfg.Suits.MaxSuits = 0
	cfg.Graph.HubDownweight = 1
	cfg.Interpret.Provider = "cohere"
	cfg.Log.Format = "xml"

	err := Validate(cfg)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected *ValidationError, got %v", err)

	for _, field := range []string{
		"suits.sim_threshold",
		"suits.max_suits",
		"graph.hub_downweight",
		"interpret.provider",
		"log.format",
	} {
		assert.True(t, verr.Has(field), "missing problem for %s in %v", field, verr.Problems)
	}
	assert.Len(t, verr.Problems, 5)
	assert.Contains(t, verr.Error(), "💡")
}

func TestValidateKeywordFacets(t *testing.T) {
	cfg := Default()
	cfg.Compose.KeywordFacets = append(cfg.Compose.KeywordFacets, FacetConfig{Name: "pets"})

	var verr *ValidationError
	require.ErrorAs(t, Validate(cfg), &verr)
	assert.True(t, verr.Has("compose.keyword_facets[2].keywords"), "%v", verr.Problems)
	assert.True(t, verr.Has("compose.keyword_facets[2].summary"), "%v", verr.Problems)
}

func TestValidateGateOrdering(t *testing.T) {
	cfg := Default()
	cfg.Expand.SessionGateSim = 0.1
	cfg.Expand.ExpandSimThreshold = 0.2

	var verr *ValidationError
	require.ErrorAs(t, Validate(cfg), &verr)
	assert.True(t, verr.Has("expand.session_gate_sim"))
}

func TestLoadMissingExplicitPath(t *testing.T) {
	_, err := Load(NewViper(), filepath.Join(t.TempDir(), "nope.yaml"))
	var nf *ConfigNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Contains(t, nf.Error(), "config init")
}

func TestLoadDefaultPathMissingUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	content := `
suits:
  max_suits: 3
graph:
  hub_domains: [bing.com]
compose:
  keyword_facets:
    - name: pets
      keywords: [dog, cat]
      summary: Evidence suggests some pet care.
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv("HISTORY_SUITS_EXPAND_SESSION_GATE_SIM", "0.3")

	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Suits.MaxSuits)
	assert.Equal(t, []string{"bing.com"}, cfg.Graph.HubDomains)
	assert.Equal(t, 0.3, cfg.Expand.SessionGateSim)
	assert.Equal(t, Default().Suits.SimThreshold, cfg.Suits.SimThreshold)
	require.Len(t, cfg.Compose.KeywordFacets, 1)
	assert.Equal(t, []string{"dog", "cat"}, cfg.Compose.KeywordFacets[0].Keywords)
	assert.NoError(t, Validate(cfg))
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("suits: [unclosed"), 0644))

	_, err := Load(NewViper(), path)
	var inv *InvalidConfigError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, path, inv.Path)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cfg.yaml")
	cfg := Default()
	cfg.Suits.MaxSuits = 5
	require.NoError(t, Save(cfg, path))

	// second save keeps a backup of the first
	cfg.Suits.MaxSuits = 6
	require.NoError(t, Save(cfg, path))
	bak, err := os.ReadFile(path + ".bak")
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(bak), "max_suits: 5"))

	loaded, err := Load(NewViper(), path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSaveRejectsInvalid(t *testing.T) {
	cfg := Default()
	cfg.Suits.MaxSuits = -1
	var inv *InvalidConfigError
	require.ErrorAs(t, Save(cfg, filepath.Join(t.TempDir(), "cfg.yaml")), &inv)
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want []string
	}{
		{"permission", &PermissionError{Path: "/x", Op: "read", Fix: "chmod", Details: "mode 0000"}, []string{"cannot read config", "mode 0000", "💡 Fix: chmod"}},
		{"not found", &ConfigNotFoundError{Path: "/x", Hint: "init it"}, []string{"not found: /x", "💡 init it"}},
		{"invalid", &InvalidConfigError{Path: "/x", Message: "bad", Hint: "fix"}, []string{"invalid config: /x", "bad", "💡 fix"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, w := range tt.want {
				if !strings.Contains(msg, w) {
					t.Errorf("%q missing %q", msg, w)
				}
			}
		})
	}
}
