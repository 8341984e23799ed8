// Package adapter provides the database adapter contract used by the
// pipeline to reach its target engine.
//
// Concrete adapter implementations live in pkg/adapters/ subdirectories and
// register themselves with the registry from their init() functions.
package adapter

import (
	"context"

	"github.com/leapstack-labs/achillesduck/pkg/core"
)

// Type aliases so adapter implementations can use adapter.Config and adapter.Rows.
type (
	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig

	// Rows is an alias for core.Rows.
	Rows = core.Rows
)

// Adapter defines the interface that all database adapters must implement.
type Adapter interface {
	// Connect establishes a connection to the database using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the database connection and releases resources.
	Close() error

	// Exec executes SQL that doesn't return rows. The text may hold several
	// statements separated by semicolons.
	Exec(ctx context.Context, sql string) error

	// Query executes a SQL statement that returns rows.
	Query(ctx context.Context, sql string) (*Rows, error)

	// DialectName returns the name of the SQL dialect the engine speaks.
	// The translator uses it as the target dialect.
	DialectName() string
}
