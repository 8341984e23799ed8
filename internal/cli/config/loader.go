package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	intconfig "github.com/leapstack-labs/achillesduck/internal/config"
	"github.com/leapstack-labs/achillesduck/internal/lifecycle"
	"github.com/leapstack-labs/achillesduck/internal/metrics"
	"github.com/leapstack-labs/achillesduck/internal/pipeline"
	"github.com/leapstack-labs/achillesduck/internal/preprocess"
	"github.com/leapstack-labs/achillesduck/internal/scripts"
)

// EnvPrefix prefixes environment variables that override config keys.
// A double underscore separates nested keys: ACHILLESDUCK_STORAGE__DRIVER.
const EnvPrefix = "ACHILLESDUCK_"

// DatabaseNameEnv names the results database.
const DatabaseNameEnv = "DATABASE_NAME"

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config // Stores the loaded config for access by commands
)

// flagKeys maps command-line flags to config keys. Flags not listed here
// do not feed the configuration.
var flagKeys = map[string]string{
	"database-name":      "database_name",
	"data-dir":           "data_dir",
	"catalog":            "catalog_path",
	"sql-dir":            "sql_dir",
	"merge-script":       "merge_script",
	"state":              "state_path",
	"memory-limit":       "memory_limit",
	"target-type":        "target.type",
	"database":           "target.database",
	"storage":            "storage.driver",
	"pushgateway-url":    "metrics.pushgateway_url",
	"cleanup-on-failure": "cleanup_on_failure",
	"strict-parse":       "strict_parse",
	"verbose":            "verbose",
	"output":             "output",
}

// findConfigFile finds the config file to use.
// Priority: explicit path > achillesduck.yaml > achillesduck.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"achillesduck.yaml", "achillesduck.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	// Reset koanf for fresh load
	k = koanf.New(".")

	// 1. Load defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"data_dir":           DefaultDataDir,
		"catalog_path":       pipeline.DefaultCatalogPath,
		"sql_dir":            pipeline.DefaultSQLDir,
		"merge_script":       pipeline.DefaultMergeScript,
		"memory_limit":       lifecycle.DefaultMemoryLimit,
		"scratch_schema":     lifecycle.DefaultScratchSchema,
		"hint_marker":        preprocess.DefaultHintMarker,
		"storage.driver":     string(scripts.DriverFS),
		"metrics.job":        metrics.DefaultJob,
		"cleanup_on_failure": false,
		"strict_parse":       false,
		"verbose":            false,
		"output":             DefaultOutput,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file
	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. The container contract names the database with a bare variable
	if name, ok := os.LookupEnv(DatabaseNameEnv); ok {
		if err := k.Load(confmap.Provider(map[string]interface{}{"database_name": name}, "."), nil); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", DatabaseNameEnv, err)
		}
	}

	// 4. Load environment variables (ACHILLESDUCK_ prefix)
	// Transform: ACHILLESDUCK_DATA_DIR -> data_dir, ACHILLESDUCK_TARGET__TYPE -> target.type
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 5. Load flags (highest priority - overrides env vars and config file)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 6. Unmarshal into Config struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Run history lives next to the databases unless configured; an
	// explicitly empty state_path disables it.
	if !k.Exists("state_path") {
		cfg.StatePath = filepath.Join(cfg.DataDir, DefaultStateFile)
	}

	if cfg.Target == nil {
		cfg.Target = &TargetConfig{}
	}
	intconfig.ApplyTargetDefaults(cfg.Target, cfg.DataDir, cfg.DatabaseName)

	// Expand environment variables in target
	expandTargetEnvVars(cfg.Target)

	// Validate target configuration
	if err := intconfig.ValidateTarget(cfg.Target); err != nil {
		return nil, fmt.Errorf("invalid target configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Store config for access by commands
	currentConfig = &cfg

	return &cfg, nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig is called.
func GetCurrentConfig() *Config {
	return currentConfig
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR}
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Return original if not found
	})
}

// expandTargetEnvVars expands environment variables in sensitive target fields.
func expandTargetEnvVars(t *TargetConfig) {
	if t == nil {
		return
	}
	t.Password = expandEnvVars(t.Password)
	t.User = expandEnvVars(t.User)
	t.Host = expandEnvVars(t.Host)
	t.Database = expandEnvVars(t.Database)
}
