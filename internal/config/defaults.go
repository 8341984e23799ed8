package config

import (
	"path/filepath"
	"strings"
)

// Default configuration values.
const (
	DefaultDataDir    = "/app/data"
	DefaultTargetType = "duckdb"
	DefaultStateFile  = "achillesduck_state.db"
)

// DatabasePath returns the results database file for a database name.
func DatabasePath(dataDir, databaseName string) string {
	if dataDir == "" {
		dataDir = DefaultDataDir
	}
	return filepath.Join(dataDir, databaseName)
}

// ApplyTargetDefaults applies default values to a TargetConfig based on the target type.
// A DuckDB target without a database file uses <dataDir>/<databaseName>.
func ApplyTargetDefaults(t *TargetConfig, dataDir, databaseName string) {
	if t == nil {
		return
	}
	if t.Type == "" {
		t.Type = DefaultTargetType
	}
	t.Type = strings.ToLower(t.Type)

	// Apply default schema based on type
	if t.Schema == "" {
		t.Schema = DefaultSchemaForType(t.Type)
	}

	// Apply type-specific defaults
	switch t.Type {
	case "duckdb":
		if t.Database == "" && databaseName != "" {
			t.Database = DatabasePath(dataDir, databaseName)
		}
	case "postgres":
		if t.Port == 0 {
			t.Port = 5432
		}
		if t.Database == "" {
			t.Database = databaseName
		}
	}
}
