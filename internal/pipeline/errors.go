package pipeline

import (
	"fmt"

	"github.com/leapstack-labs/achillesduck/internal/catalog"
	"github.com/leapstack-labs/achillesduck/internal/preprocess"
	"github.com/leapstack-labs/achillesduck/pkg/core"
	"github.com/leapstack-labs/achillesduck/pkg/transpile"
)

// Error types raised by other packages, re-exported so callers can match
// every pipeline failure from one place.
type (
	// CatalogLoadError is raised when the analysis catalog cannot be read.
	CatalogLoadError = catalog.LoadError
	// EmptyConversionError is raised when a script converts to nothing.
	EmptyConversionError = preprocess.EmptyConversionError
	// TranslationError is raised by the translator for unparseable input.
	TranslationError = transpile.TranslationError
)

// ConfigError reports missing or invalid configuration.
type ConfigError struct {
	Key     string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return "configuration error: " + e.Message
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Key, e.Message)
}

// MissingScriptError reports a unit whose script file does not exist.
type MissingScriptError struct {
	UnitID string
	Path   string
	// Merge is set when the missing script is the merge script.
	Merge bool
}

func (e *MissingScriptError) Error() string {
	if e.Merge {
		return fmt.Sprintf("merge script not found: %s", e.Path)
	}
	return fmt.Sprintf("SQL file not found for analysis %s: %s", e.UnitID, e.Path)
}

// ExecutionError is a failure reported by the database engine. Its message
// is the engine's message; SQL is the batch that was being executed.
type ExecutionError struct {
	SQL string
	Err error
}

func (e *ExecutionError) Error() string { return e.Err.Error() }

func (e *ExecutionError) Unwrap() error { return e.Err }

// InitializeError reports a failure while preparing the database.
type InitializeError struct {
	Err error
}

func (e *InitializeError) Error() string {
	return fmt.Sprintf("failed to initialize database: %v", e.Err)
}

func (e *InitializeError) Unwrap() error { return e.Err }

// MergeError reports a failure while reading, converting or executing the
// merge script, or while dropping the scratch schema afterwards.
type MergeError struct {
	Err error
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("merge script execution failed: %v", e.Err)
}

func (e *MergeError) Unwrap() error { return e.Err }

// UnitError carries the diagnostic context of a failed analysis.
type UnitError struct {
	Analysis core.Analysis
	// Index is the 1-based position of the analysis in the run.
	Index int
	// File is the script file name.
	File string
	// SQL is the last converted batch, empty when conversion failed.
	SQL string
	Err error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("execution failed for analysis %s: %s: %v", e.Analysis.ID, e.Analysis.Name, e.Err)
}

func (e *UnitError) Unwrap() error { return e.Err }

// FailedDuringConversion is shown in place of SQL when a unit failed
// before a batch was produced.
const FailedDuringConversion = "Failed during conversion"

// BatchText returns the SQL to show for the failed unit.
func (e *UnitError) BatchText() string {
	if e.SQL == "" {
		return FailedDuringConversion
	}
	return e.SQL
}
