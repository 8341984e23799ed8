// Package pipeline runs the analysis catalog against a results database:
// initialize, convert and execute every eligible analysis in order, merge,
// and clean up. The first failure aborts the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/achillesduck/internal/catalog"
	"github.com/leapstack-labs/achillesduck/internal/lifecycle"
	"github.com/leapstack-labs/achillesduck/internal/metrics"
	"github.com/leapstack-labs/achillesduck/internal/preprocess"
	"github.com/leapstack-labs/achillesduck/internal/scripts"
	"github.com/leapstack-labs/achillesduck/pkg/core"
)

// Default locations inside the analysis container.
const (
	DefaultCatalogPath = "/app/inst/csv/achilles/achilles_analysis_details.csv"
	DefaultSQLDir      = "/app/inst/sql/sql_server"
	DefaultMergeScript = "/app/merge.sql"
)

// Conn is the exclusive database connection a run executes on.
// adapter.Adapter implements it.
type Conn interface {
	lifecycle.Conn
	Close() error
}

// Opener opens the run's connection.
type Opener func(ctx context.Context) (Conn, error)

// Preprocessor converts a raw script into an executable batch.
type Preprocessor interface {
	Preprocess(ctx context.Context, name, raw string) (*preprocess.Batch, error)
}

// Config holds orchestrator configuration.
type Config struct {
	// Database is the results database name, recorded with every run.
	Database string
	// CatalogPath is the analysis catalog CSV.
	CatalogPath string
	// SQLDir holds analyses/<id>.sql.
	SQLDir string
	// MergeScript is the path of the merge script.
	MergeScript string
	// CleanupOnFailure drops the scratch schema when a run aborts.
	CleanupOnFailure bool
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Deps are the collaborators of an Orchestrator. Source, Preprocessor and
// Lifecycle are required; the rest default to no-ops.
type Deps struct {
	Source       scripts.Source
	Preprocessor Preprocessor
	Lifecycle    *lifecycle.Manager
	History      History
	Metrics      metrics.Recorder
	Events       EventSink
}

// Orchestrator drives pipeline runs.
type Orchestrator struct {
	cfg       Config
	source    scripts.Source
	pre       Preprocessor
	lifecycle *lifecycle.Manager
	history   History
	metrics   metrics.Recorder
	events    EventSink
	logger    *slog.Logger
}

// New creates an Orchestrator.
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Database == "" {
		return nil, &ConfigError{Key: "database_name", Message: "DATABASE_NAME environment variable not set"}
	}
	if deps.Source == nil || deps.Preprocessor == nil || deps.Lifecycle == nil {
		return nil, errors.New("pipeline requires a script source, a preprocessor and a lifecycle manager")
	}
	if cfg.CatalogPath == "" {
		cfg.CatalogPath = DefaultCatalogPath
	}
	if cfg.SQLDir == "" {
		cfg.SQLDir = DefaultSQLDir
	}
	if cfg.MergeScript == "" {
		cfg.MergeScript = DefaultMergeScript
	}

	o := &Orchestrator{
		cfg:       cfg,
		source:    deps.Source,
		pre:       deps.Preprocessor,
		lifecycle: deps.Lifecycle,
		history:   deps.History,
		metrics:   deps.Metrics,
		events:    deps.Events,
		logger:    logger,
	}
	if o.history == nil {
		o.history = NopHistory{}
	}
	if o.metrics == nil {
		o.metrics = metrics.Nop{}
	}
	if o.events == nil {
		o.events = discardSink{}
	}
	return o, nil
}

// ErrInvalidAnalysisID reports a catalog id that cannot name a file
// directly under the analyses directory.
var ErrInvalidAnalysisID = errors.New("invalid analysis id")

// AnalysisPath returns the script location of a catalog analysis,
// <sql_dir>/analyses/<id>.sql. Every id, "merge" included, resolves there.
func (o *Orchestrator) AnalysisPath(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return "", fmt.Errorf("%w %q", ErrInvalidAnalysisID, id)
	}
	return path.Join(o.cfg.SQLDir, "analyses", core.Analysis{ID: id}.ScriptName()), nil
}

// ScriptPath resolves a unit named on the command line: "merge" is the
// configured merge script, anything else an analysis.
func (o *Orchestrator) ScriptPath(unitID string) (string, error) {
	if unitID == core.MergeUnitID {
		return o.cfg.MergeScript, nil
	}
	return o.AnalysisPath(unitID)
}

// planConcurrency bounds concurrent script lookups; each is a HEAD request
// on the s3 backend.
const planConcurrency = 8

// PlannedUnit is an eligible analysis and the state of its script.
type PlannedUnit struct {
	Analysis core.Analysis
	Path     string
	Exists   bool
}

// Plan loads the catalog and reports, in execution order, every analysis
// a run would execute and whether its script is present.
func (o *Orchestrator) Plan(ctx context.Context) ([]PlannedUnit, error) {
	analyses, err := catalog.LoadFile(ctx, o.source, o.cfg.CatalogPath, o.logger)
	if err != nil {
		return nil, err
	}
	plan := make([]PlannedUnit, len(analyses))
	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(planConcurrency)
	for i, a := range analyses {
		eg.Go(func() error {
			p, err := o.AnalysisPath(a.ID)
			if err != nil {
				plan[i] = PlannedUnit{Analysis: a}
				return nil
			}
			ok, err := o.source.Exists(egctx, p)
			if err != nil {
				return fmt.Errorf("failed to check script %s: %w", p, err)
			}
			plan[i] = PlannedUnit{Analysis: a, Path: p, Exists: ok}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return plan, nil
}

// Render reads and converts the script of one unit without executing it.
func (o *Orchestrator) Render(ctx context.Context, unitID string) (*preprocess.Batch, error) {
	p, err := o.ScriptPath(unitID)
	if err != nil {
		return nil, err
	}
	raw, err := o.readScript(ctx, unitID, p)
	if err != nil {
		return nil, err
	}
	return o.pre.Preprocess(ctx, path.Base(p), raw)
}

func (o *Orchestrator) readScript(ctx context.Context, unitID, p string) (string, error) {
	raw, err := scripts.ReadText(ctx, o.source, p)
	if errors.Is(err, scripts.ErrNotFound) {
		return "", &MissingScriptError{UnitID: unitID, Path: p}
	}
	if err != nil {
		return "", fmt.Errorf("failed to read script %s: %w", p, err)
	}
	return raw, nil
}
