// Package core defines the shared language of achillesduck.
//
// This package contains:
//   - Domain entities (Analysis, Run, UnitRun, RunEvent)
//   - Configuration types (AdapterConfig, TargetConfig, Token)
//
// The Golden Rule: pkg/core imports only the standard library.
// All other packages depend on core, not the reverse.
package core
