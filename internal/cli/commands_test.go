package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/khanglvm/history-suits/internal/config"
	"github.com/khanglvm/history-suits/internal/pipeline"
	"github.com/khanglvm/history-suits/internal/search"
	"github.com/khanglvm/history-suits/internal/storage"
	"github.com/spf13/cobra"
)

var historyRows = [][3]string{
	{"s1", "ikea.com", "kitchen island"},
	{"s1", "wayfair.com", "oak kitchen table"},
	{"s2", "ikea.com", "kitchen island ideas"},
	{"s2", "ikea.com", "kitchen island"},
	{"s3", "booking.com", "hotels in rome"},
	{"s3", "kayak.com", "flights to rome"},
	{"s4", "booking.com", "hotels in rome"},
	{"s4", "kayak.com", "cheap flights rome"},
}

// isolate points HOME at a temp dir so no user config or run history leaks in.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func writeHistory(t *testing.T) string {
	t.Helper()
	var sb strings.Builder
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, r := range historyRows {
		fmt.Fprintf(&sb, `{"time":%q,"session_id":%q,"domain":%q,"query":%q,"title":"page %d"}`+"\n",
			base.Add(time.Duration(i)*time.Minute).Format(time.RFC3339), r[0], r[1], r[2], i)
	}
	path := filepath.Join(t.TempDir(), "history.jsonl")
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		t.Fatalf("Failed to write history: %v", err)
	}
	return path
}

func execute(cmd *cobra.Command, args ...string) (string, error) {
	cmd.SetArgs(args)
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	err := cmd.Execute()
	return buf.String(), err
}

func TestCommandsRegisterFlags(t *testing.T) {
	tests := []struct {
		name  string
		cmd   *cobra.Command
		flags []string
	}{
		{"run", NewRunCmd(), []string{"input", "out", "config", "log-level", "max-suits", "session-gate-sim", "provider", "no-store"}},
		{"communities", NewCommunitiesCmd(), []string{"input", "json", "config"}},
		{"stats", NewStatsCmd(), []string{"input", "config"}},
		{"lookup", NewLookupCmd(), []string{"input", "run", "kind", "limit", "json"}},
		{"runs", NewRunsCmd(), []string{"limit", "prune-days", "json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.cmd.Short == "" {
				t.Error("Command missing short description")
			}
			for _, f := range tt.flags {
				if tt.cmd.Flags().Lookup(f) == nil {
					t.Errorf("Flag %q not registered", f)
				}
			}
		})
	}
}

func TestSetupFlagAndEnvPrecedence(t *testing.T) {
	isolate(t)
	t.Setenv("HISTORY_SUITS_SUITS_MAX_SUITS", "5")
	t.Setenv("HISTORY_SUITS_EXPAND_PRIMARY_CAP", "9")

	cmd := NewRunCmd()
	if err := cmd.Flags().Set("max-suits", "3"); err != nil {
		t.Fatal(err)
	}

	e, err := setup(cmd, &commonFlags{})
	if err != nil {
		t.Fatalf("setup() error = %v", err)
	}
	if e.cfg.Suits.MaxSuits != 3 {
		t.Errorf("flag should win over env: max_suits = %d", e.cfg.Suits.MaxSuits)
	}
	if e.cfg.Expand.PrimaryCap != 9 {
		t.Errorf("env override not applied: primary_cap = %d", e.cfg.Expand.PrimaryCap)
	}
	if e.cfg.Expand.SessionGateSim != config.Default().Expand.SessionGateSim {
		t.Errorf("unset flag should not override default: session_gate_sim = %v", e.cfg.Expand.SessionGateSim)
	}
}

func TestSetupRejectsInvalidFlags(t *testing.T) {
	isolate(t)
	cmd := NewRunCmd()
	if err := cmd.Flags().Set("sim-threshold", "1.5"); err != nil {
		t.Fatal(err)
	}

	_, err := setup(cmd, &commonFlags{})
	var verr *config.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if !verr.Has("suits.sim_threshold") {
		t.Errorf("Expected suits.sim_threshold problem, got %v", verr.Problems)
	}
}

func TestRunRequiresInput(t *testing.T) {
	isolate(t)
	_, err := execute(NewRunCmd(), "--no-store")
	if err == nil || !strings.Contains(err.Error(), "--input") {
		t.Errorf("Expected --input error, got %v", err)
	}
}

func TestRunNoUsableEvents(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "bad.jsonl")
	if err := os.WriteFile(path, []byte("{bad}\n{\"session_id\":\"\"}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := execute(NewRunCmd(), "--input", path, "--no-store")
	if !errors.Is(err, pipeline.ErrNoEvents) {
		t.Fatalf("Expected ErrNoEvents, got %v", err)
	}
	if !strings.Contains(err.Error(), "2 malformed rows") {
		t.Errorf("Error should count skipped rows: %v", err)
	}
}

func TestRunWritesArtifactAndRecords(t *testing.T) {
	home := isolate(t)
	input := writeHistory(t)
	out := filepath.Join(t.TempDir(), "suits.json")

	if _, err := execute(NewRunCmd(), "--input", input, "--out", out); err != nil {
		t.Fatalf("run error = %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("Artifact not written: %v", err)
	}
	var res pipeline.Result
	if err := json.Unmarshal(data, &res); err != nil {
		t.Fatalf("Artifact is not a result: %v", err)
	}
	if res.Status != pipeline.StatusOK || len(res.Suits) == 0 {
		t.Fatalf("Unexpected result: status=%s suits=%d", res.Status, len(res.Suits))
	}
	if res.Degraded {
		t.Error("Run without an interpreter must not be degraded")
	}

	store := storage.NewStorage(filepath.Join(home, ".history-suits", "runs.db"), nil)
	if err := store.Init(); err != nil {
		t.Fatalf("Failed to open run history: %v", err)
	}
	defer store.Close()
	runs, err := store.ListRuns(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].RunID != res.RunID {
		t.Fatalf("Expected run %s recorded, got %v", res.RunID, runs)
	}
	if runs[0].Input != input {
		t.Errorf("Recorded input = %q", runs[0].Input)
	}
}

func TestRunStdoutNoStore(t *testing.T) {
	home := isolate(t)
	out, err := execute(NewRunCmd(), "--input", writeHistory(t), "--no-store")
	if err != nil {
		t.Fatalf("run error = %v", err)
	}
	if !strings.Contains(out, `"run_id"`) || !strings.Contains(out, `"suits"`) {
		t.Errorf("stdout is not a result: %s", out)
	}
	if _, err := os.Stat(filepath.Join(home, ".history-suits", "runs.db")); !os.IsNotExist(err) {
		t.Error("--no-store still created the run history")
	}
}

func TestRunsAndLookupFromHistory(t *testing.T) {
	isolate(t)
	input := writeHistory(t)

	out, err := execute(NewRunCmd(), "--input", input)
	if err != nil {
		t.Fatalf("run error = %v", err)
	}
	var res pipeline.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatal(err)
	}

	out, err = execute(NewRunsCmd(), "--json")
	if err != nil {
		t.Fatalf("runs error = %v", err)
	}
	var runs []storage.RunRecord
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("runs output: %v\n%s", err, out)
	}
	if len(runs) != 1 || runs[0].Suits != len(res.Suits) {
		t.Fatalf("Unexpected runs: %+v", runs)
	}

	want := res.Suits[0].Primary[0]
	out, err = execute(NewLookupCmd(), want.Text, "--json")
	if err != nil {
		t.Fatalf("lookup error = %v", err)
	}
	var hits []search.Hit
	if err := json.Unmarshal([]byte(out), &hits); err != nil {
		t.Fatalf("lookup output: %v\n%s", err, out)
	}
	found := false
	for _, h := range hits {
		if h.Text == want.Text && h.Suit == res.Suits[0].ID && h.List == search.ListPrimary {
			found = true
		}
	}
	if !found {
		t.Errorf("lookup %q did not report suit %d primary: %+v", want.Text, res.Suits[0].ID, hits)
	}
}

func TestLookupWithoutHistory(t *testing.T) {
	isolate(t)
	_, err := execute(NewLookupCmd(), "rome")
	if err == nil || !strings.Contains(err.Error(), "no recorded runs") {
		t.Errorf("Expected no recorded runs error, got %v", err)
	}
}

func TestLookupFromInput(t *testing.T) {
	isolate(t)
	out, err := execute(NewLookupCmd(), "rome", "--input", writeHistory(t))
	if err != nil {
		t.Fatalf("lookup error = %v", err)
	}
	if !strings.Contains(out, "rome") {
		t.Errorf("Unexpected lookup output: %s", out)
	}
}

func TestRunsEmpty(t *testing.T) {
	isolate(t)
	out, err := execute(NewRunsCmd())
	if err != nil {
		t.Fatalf("runs error = %v", err)
	}
	if !strings.Contains(out, "No runs recorded.") {
		t.Errorf("Unexpected output: %s", out)
	}
}

func TestCommunitiesAndStats(t *testing.T) {
	isolate(t)
	input := writeHistory(t)

	out, err := execute(NewCommunitiesCmd(), "--input", input, "--json")
	if err != nil {
		t.Fatalf("communities error = %v", err)
	}
	var report communityReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("communities output: %v\n%s", err, out)
	}
	if len(report.Communities) == 0 {
		t.Error("Expected at least one community")
	}

	out, err = execute(NewStatsCmd(), "--input", input)
	if err != nil {
		t.Fatalf("stats error = %v", err)
	}
	var stats pipeline.Stats
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Sessions != 4 || stats.Events != len(historyRows) {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestConfigInitValidateShow(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "cfg.yaml")

	if _, err := execute(NewConfigCmd(), "init", "--path", path); err != nil {
		t.Fatalf("config init error = %v", err)
	}
	if _, err := execute(NewConfigCmd(), "init", "--path", path); err == nil {
		t.Error("config init should refuse to overwrite without --force")
	}
	if _, err := execute(NewConfigCmd(), "init", "--path", path, "--force"); err != nil {
		t.Errorf("config init --force error = %v", err)
	}

	out, err := execute(NewConfigCmd(), "validate", "--config", path)
	if err != nil || !strings.Contains(out, "valid") {
		t.Errorf("config validate = %q, %v", out, err)
	}

	out, err = execute(NewConfigCmd(), "show", "--config", path)
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	if !strings.Contains(out, "session_gate_sim:") || !strings.Contains(out, "max_suits:") {
		t.Errorf("config show output missing keys:\n%s", out)
	}
}

func TestConfigValidateReportsProblems(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(path, []byte("suits:\n  max_suits: 0\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := execute(NewConfigCmd(), "validate", "--config", path)
	var verr *config.ValidationError
	if !errors.As(err, &verr) || !verr.Has("suits.max_suits") {
		t.Errorf("Expected suits.max_suits problem, got %v", err)
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(NewVersionCmd())
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	for _, want := range []string{"Version:", "Commit:", "Built:"} {
		if !strings.Contains(out, want) {
			t.Errorf("version output missing %q: %s", want, out)
		}
	}
}
