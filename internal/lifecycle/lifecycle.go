// Package lifecycle prepares the results database before the analyses run
// and cleans it up after the merge.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/leapstack-labs/achillesduck/pkg/core"
)

// Defaults match the layout the merge script expects.
const (
	DefaultScratchSchema = "achilles_scratch"
	DefaultMemoryLimit   = "10GB"
)

// DefaultResultTables are dropped before every run.
var DefaultResultTables = []string{"results.achilles_results", "results.achilles_analysis"}

var qualifiedIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Conn is the database connection the manager drives.
type Conn interface {
	Exec(ctx context.Context, sql string) error
	DialectName() string
}

// Querier is implemented by connections that can read rows back.
type Querier interface {
	Query(ctx context.Context, sql string) (*core.Rows, error)
}

// StatementError reports the lifecycle statement that failed.
type StatementError struct {
	SQL string
	Err error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("%s: %v", e.SQL, e.Err)
}

func (e *StatementError) Unwrap() error { return e.Err }

// Config holds lifecycle settings.
type Config struct {
	// ScratchSchema holds intermediate tables for the duration of a run.
	ScratchSchema string
	// ResultTables are dropped by Initialize so the merge recreates them.
	ResultTables []string
	// MemoryLimit is applied with SET memory_limit on DuckDB. Empty skips it.
	MemoryLimit string
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Manager runs the initialize, merge and cleanup statements.
type Manager struct {
	scratch     string
	results     []string
	memoryLimit string
	logger      *slog.Logger
}

// New validates cfg and creates a Manager. An empty ScratchSchema selects
// DefaultScratchSchema; a nil ResultTables selects DefaultResultTables.
func New(cfg Config) (*Manager, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	scratch := cfg.ScratchSchema
	if scratch == "" {
		scratch = DefaultScratchSchema
	}
	if !qualifiedIdent.MatchString(scratch) || strings.Contains(scratch, ".") {
		return nil, fmt.Errorf("invalid scratch schema name %q", scratch)
	}
	results := cfg.ResultTables
	if results == nil {
		results = DefaultResultTables
	}
	for _, t := range results {
		if !qualifiedIdent.MatchString(t) {
			return nil, fmt.Errorf("invalid result table name %q", t)
		}
	}
	return &Manager{
		scratch:     scratch,
		results:     results,
		memoryLimit: cfg.MemoryLimit,
		logger:      logger,
	}, nil
}

// ScratchSchema returns the scratch schema name.
func (m *Manager) ScratchSchema() string { return m.scratch }

// InitializeStatements returns the statements Initialize runs on a
// connection speaking dialect, in order.
func (m *Manager) InitializeStatements(dialect string) []string {
	var stmts []string
	if m.memoryLimit != "" && dialect == "duckdb" {
		stmts = append(stmts, fmt.Sprintf("SET memory_limit='%s'", strings.ReplaceAll(m.memoryLimit, "'", "''")))
	}
	stmts = append(stmts, m.dropScratchSQL())
	for _, t := range m.results {
		stmts = append(stmts, "DROP TABLE IF EXISTS "+t)
	}
	return append(stmts, "CREATE SCHEMA "+m.scratch)
}

// Initialize sets the memory budget, removes leftovers from earlier runs
// and creates an empty scratch schema. Running it twice has the same
// effect as running it once.
func (m *Manager) Initialize(ctx context.Context, conn Conn) error {
	m.logger.Info("initializing database", "scratch_schema", m.scratch, "dialect", conn.DialectName())
	for _, stmt := range m.InitializeStatements(conn.DialectName()) {
		if err := m.exec(ctx, conn, stmt); err != nil {
			return err
		}
	}
	m.logger.Debug("database initialized")
	return nil
}

// FinalizeMerge executes the merge batch and then drops the scratch schema.
func (m *Manager) FinalizeMerge(ctx context.Context, conn Conn, batchSQL string) error {
	m.logger.Info("executing merge")
	if err := m.exec(ctx, conn, batchSQL); err != nil {
		return err
	}
	return m.DropScratch(ctx, conn)
}

// DropScratch drops the scratch schema and everything in it.
func (m *Manager) DropScratch(ctx context.Context, conn Conn) error {
	m.logger.Info("dropping scratch schema", "schema", m.scratch)
	return m.exec(ctx, conn, m.dropScratchSQL())
}

// ResultCounts returns the row count of every result table the merge
// created. Result tables that do not exist are left out.
func (m *Manager) ResultCounts(ctx context.Context, q Querier) (map[string]int64, error) {
	counts := make(map[string]int64, len(m.results))
	for _, t := range m.results {
		schema, name := "main", t
		if i := strings.IndexByte(t, '.'); i >= 0 {
			schema, name = t[:i], t[i+1:]
		}
		n, err := m.count(ctx, q, fmt.Sprintf(
			"SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = '%s' AND table_name = '%s'",
			schema, name))
		if err != nil {
			return nil, err
		}
		if n == 0 {
			continue
		}
		if counts[t], err = m.count(ctx, q, "SELECT COUNT(*) FROM "+t); err != nil {
			return nil, err
		}
	}
	return counts, nil
}

func (m *Manager) count(ctx context.Context, q Querier, sql string) (int64, error) {
	m.logger.Debug("lifecycle query", "sql", sql)
	rows, err := q.Query(ctx, sql)
	if err != nil {
		return 0, &StatementError{SQL: sql, Err: err}
	}
	defer func() { _ = rows.Close() }()

	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, &StatementError{SQL: sql, Err: err}
		}
	}
	if err := rows.Err(); err != nil {
		return 0, &StatementError{SQL: sql, Err: err}
	}
	return n, nil
}

func (m *Manager) dropScratchSQL() string {
	return "DROP SCHEMA IF EXISTS " + m.scratch + " CASCADE"
}

func (m *Manager) exec(ctx context.Context, conn Conn, sql string) error {
	m.logger.Debug("lifecycle statement", "sql", sql)
	if err := conn.Exec(ctx, sql); err != nil {
		return &StatementError{SQL: sql, Err: err}
	}
	return nil
}
