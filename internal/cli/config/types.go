// Package config provides configuration management for the achillesduck CLI.
//
// Values come from, lowest to highest priority: built-in defaults, the
// achillesduck.yaml file, the DATABASE_NAME variable, ACHILLESDUCK_*
// environment variables, and command-line flags.
package config

import (
	sharedcfg "github.com/leapstack-labs/achillesduck/internal/config"
	"github.com/leapstack-labs/achillesduck/internal/metrics"
	"github.com/leapstack-labs/achillesduck/internal/scripts"
	"github.com/leapstack-labs/achillesduck/pkg/core"
)

// TargetConfig is an alias for the shared target configuration.
// This allows CLI code to use config.TargetConfig without importing pkg/core.
type TargetConfig = core.TargetConfig

// Config holds all CLI configuration options.
type Config struct {
	DatabaseName     string         `koanf:"database_name"`
	DataDir          string         `koanf:"data_dir"`
	CatalogPath      string         `koanf:"catalog_path"`
	SQLDir           string         `koanf:"sql_dir"`
	MergeScript      string         `koanf:"merge_script"`
	StatePath        string         `koanf:"state_path"` // empty disables run history
	MemoryLimit      string         `koanf:"memory_limit"`
	ScratchSchema    string         `koanf:"scratch_schema"`
	ResultTables     []string       `koanf:"result_tables"`
	HintMarker       string         `koanf:"hint_marker"`
	Tokens           []core.Token   `koanf:"tokens"`
	Target           *TargetConfig  `koanf:"target"`
	Storage          scripts.Config `koanf:"storage"`
	Metrics          metrics.Config `koanf:"metrics"`
	CleanupOnFailure bool           `koanf:"cleanup_on_failure"`
	StrictParse      bool           `koanf:"strict_parse"`
	Verbose          bool           `koanf:"verbose"`
	OutputFormat     string         `koanf:"output"`
}

// Default configuration values - uses shared defaults from internal/config
const (
	DefaultDataDir   = sharedcfg.DefaultDataDir
	DefaultStateFile = sharedcfg.DefaultStateFile
	DefaultOutput    = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)
