// Package config holds configuration logic shared by the CLI and the
// pipeline wiring: target defaults and target validation.
package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/achillesduck/pkg/adapter"
	"github.com/leapstack-labs/achillesduck/pkg/core"
)

// TargetConfig is the database target configuration.
type TargetConfig = core.TargetConfig

// DefaultSchemaForType returns the default schema for a database type.
func DefaultSchemaForType(dbType string) string {
	switch strings.ToLower(dbType) {
	case "postgres":
		return "public"
	default:
		return "main"
	}
}

// ValidateTarget checks if the target configuration is valid.
// It uses the adapter registry to determine which adapter types are available.
func ValidateTarget(t *TargetConfig) error {
	if t == nil {
		return fmt.Errorf("target is required")
	}
	if t.Type == "" {
		return fmt.Errorf("target type is required")
	}

	// Use adapter registry as single source of truth
	if !adapter.IsRegistered(strings.ToLower(t.Type)) {
		return &adapter.UnknownAdapterError{
			Type:      t.Type,
			Available: adapter.ListAdapters(),
		}
	}

	if strings.EqualFold(t.Type, "postgres") && t.Host == "" {
		return fmt.Errorf("target host is required for postgres")
	}
	return nil
}
