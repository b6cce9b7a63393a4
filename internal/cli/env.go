/*
Package cli implements the history-suits subcommands.

Every command resolves its configuration the same way: defaults, then the
YAML file (--config or ~/.history-suits.yaml), then HISTORY_SUITS_*
environment variables, then flags bound to viper keys. The merged result is
validated before any graph work starts.
*/
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/khanglvm/history-suits/internal/config"
	"github.com/khanglvm/history-suits/internal/events"
	"github.com/khanglvm/history-suits/internal/interpret"
	"github.com/khanglvm/history-suits/internal/logging"
	"github.com/khanglvm/history-suits/internal/pipeline"
	"github.com/khanglvm/history-suits/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// commonFlags are registered on every command that loads configuration.
type commonFlags struct {
	configPath string
}

func (f *commonFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "Config file (default: ~/.history-suits.yaml)")
	cmd.Flags().String("log-level", "info", "Log level: debug, info, warn, error")
	cmd.Flags().String("log-format", "console", "Log format: console or json")
}

// flagBindings maps flag names to viper keys.
var flagBindings = map[string]string{
	"log-level":        "log.level",
	"log-format":       "log.format",
	"workers":          "workers",
	"max-suits":        "suits.max_suits",
	"sim-threshold":    "suits.sim_threshold",
	"seed-psignal-min": "suits.seed_psignal_min",
	"session-gate-sim": "expand.session_gate_sim",
	"primary-cap":      "expand.primary_cap",
	"secondary-cap":    "expand.secondary_cap",
	"hub-downweight":   "graph.hub_downweight",
	"provider":         "interpret.provider",
	"model":            "interpret.model",
	"timeout":          "interpret.timeout_seconds",
}

// env is the resolved state a command works with.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
}

// setup loads, validates and applies configuration for cmd.
func setup(cmd *cobra.Command, flags *commonFlags) (*env, error) {
	v := config.NewViper()
	if err := bindFlags(cmd, v); err != nil {
		return nil, err
	}

	cfg, err := config.Load(v, flags.configPath)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return &env{cfg: cfg, logger: logger}, nil
}

func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	for name, key := range flagBindings {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// openStorage returns the configured run store. Failures disable storage
// instead of failing the command.
func (e *env) openStorage() *storage.SQLiteStorage {
	if !e.cfg.Storage.Enabled {
		return storage.Disabled()
	}
	store := storage.NewStorage(e.cfg.Storage.Path, e.logger)
	if err := store.Init(); err != nil {
		e.logger.Warn("run history unavailable", zap.Error(err))
	}
	return store
}

// interpreter builds the configured interpreter, wrapped with the response
// cache when enabled and storage is available.
func (e *env) interpreter(store *storage.SQLiteStorage) (interpret.Interpreter, error) {
	ic := e.cfg.Interpret
	interp, err := interpret.New(interpret.Options{
		Provider:  ic.Provider,
		Model:     ic.Model,
		BaseURL:   ic.BaseURL,
		APIKeyEnv: ic.APIKeyEnv,
		MaxTokens: ic.MaxTokens,
		Logger:    e.logger,
	})
	if err != nil {
		return nil, err
	}

	named, ok := interp.(interface{ Model() string })
	if !ok || !ic.Cache || !store.Enabled() {
		return interp, nil
	}
	return interpret.NewCached(interp, store, named.Model(), e.logger), nil
}

// loadBatch reads the event file at path.
func (e *env) loadBatch(ctx context.Context, path string) (*events.Batch, error) {
	if path == "" {
		return nil, fmt.Errorf("--input is required")
	}
	return events.NewFileSource(path, e.logger).Load(ctx)
}

// runner builds a pipeline runner from the resolved configuration.
func (e *env) runner(interp interpret.Interpreter) *pipeline.Runner {
	return pipeline.New(pipeline.FromConfig(e.cfg, e.logger), interp)
}

// analyze loads path and runs the first three stages.
func (e *env) analyze(ctx context.Context, path string) (*pipeline.Analysis, error) {
	batch, err := e.loadBatch(ctx, path)
	if err != nil {
		return nil, err
	}
	return e.runner(nil).Analyze(ctx, batch)
}

// record persists res, logging instead of failing when the store rejects it.
func (e *env) record(store *storage.SQLiteStorage, res *pipeline.Result, input string, startedAt time.Time) {
	if !store.Enabled() {
		return
	}
	if err := pipeline.Record(store, res, input, pipeline.ConfigHash(e.cfg), startedAt); err != nil {
		e.logger.Warn("failed to record run", zap.String("run_id", res.RunID), zap.Error(err))
	}
}
