package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/achillesduck/internal/cli/config"
	"github.com/leapstack-labs/achillesduck/internal/cli/output"
	"github.com/leapstack-labs/achillesduck/internal/lifecycle"
	"github.com/leapstack-labs/achillesduck/internal/metrics"
	"github.com/leapstack-labs/achillesduck/internal/pipeline"
	"github.com/leapstack-labs/achillesduck/internal/preprocess"
	"github.com/leapstack-labs/achillesduck/internal/scripts"
	"github.com/leapstack-labs/achillesduck/internal/state"
	"github.com/leapstack-labs/achillesduck/pkg/adapter"
	"github.com/leapstack-labs/achillesduck/pkg/transpile"

	// Import adapter packages to ensure adapters are registered via init()
	_ "github.com/leapstack-labs/achillesduck/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/achillesduck/pkg/adapters/postgres"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the loaded configuration.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// Pipeline is an orchestrator together with the connection opener for its
// target and the history store it records into.
type Pipeline struct {
	Orchestrator *pipeline.Orchestrator
	Open         pipeline.Opener
	// Store is nil when run history is disabled.
	Store *state.SQLiteStore
}

// PipelineOptions select the optional collaborators of a Pipeline.
type PipelineOptions struct {
	Events pipeline.EventSink
	// History opens the run history store when a state path is configured.
	History bool
}

// NewPipeline wires an orchestrator from the configuration.
// The returned cleanup function must be called (typically via defer).
func (c *CommandContext) NewPipeline(ctx context.Context, opts PipelineOptions) (*Pipeline, func(), error) {
	cfg, logger := c.Cfg, c.Logger

	if err := cfg.RequireDatabase(); err != nil {
		return nil, nil, err
	}

	src, err := scripts.New(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create script source: %w", err)
	}

	adapterCfg := cfg.Target.AdapterConfig()
	dialect, err := targetDialect(adapterCfg, logger)
	if err != nil {
		return nil, nil, err
	}
	pre := preprocess.New(transpile.New(transpile.Options{Pretty: true, Strict: cfg.StrictParse}), preprocess.Config{
		Tokens:     cfg.Tokens,
		HintMarker: cfg.HintMarker,
		Target:     dialect,
		Logger:     logger,
	})

	lc, err := lifecycle.New(lifecycle.Config{
		ScratchSchema: cfg.ScratchSchema,
		ResultTables:  cfg.ResultTables,
		MemoryLimit:   cfg.MemoryLimit,
		Logger:        logger,
	})
	if err != nil {
		return nil, nil, err
	}

	recorder, err := metrics.New(cfg.Metrics, map[string]string{"database": cfg.DatabaseName})
	if err != nil {
		return nil, nil, err
	}

	var (
		store   *state.SQLiteStore
		history pipeline.History
	)
	if opts.History && cfg.StatePath != "" {
		store = state.NewSQLiteStore(logger)
		if err := store.Open(cfg.StatePath); err != nil {
			return nil, nil, fmt.Errorf("failed to open state store: %w", err)
		}
		history = store
	}
	cleanup := func() {
		if store != nil {
			_ = store.Close()
		}
	}

	orch, err := pipeline.New(pipeline.Config{
		Database:         cfg.DatabaseName,
		CatalogPath:      cfg.CatalogPath,
		SQLDir:           cfg.SQLDir,
		MergeScript:      cfg.MergeScript,
		CleanupOnFailure: cfg.CleanupOnFailure,
		Logger:           logger,
	}, pipeline.Deps{
		Source:       src,
		Preprocessor: pre,
		Lifecycle:    lc,
		History:      history,
		Metrics:      recorder,
		Events:       opts.Events,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	open := func(ctx context.Context) (pipeline.Conn, error) {
		if adapterCfg.Type == "duckdb" && adapterCfg.Path != "" {
			if err := os.MkdirAll(filepath.Dir(adapterCfg.Path), 0o750); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
		a, err := adapter.Open(ctx, adapterCfg, logger)
		if err != nil {
			return nil, err
		}
		return a, nil
	}

	return &Pipeline{Orchestrator: orch, Open: open, Store: store}, cleanup, nil
}

// targetDialect asks the configured adapter which dialect it speaks
// without connecting.
func targetDialect(cfg adapter.Config, logger *slog.Logger) (string, error) {
	a, err := adapter.NewAdapter(cfg, logger)
	if err != nil {
		return "", err
	}
	if a == nil {
		return "", errors.New("adapter factory returned nil")
	}
	return a.DialectName(), nil
}

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise loads defaults
// from the environment.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	cfg, err := config.LoadConfig("", nil)
	if err != nil {
		return &config.Config{OutputFormat: config.DefaultOutput}
	}
	return cfg
}
