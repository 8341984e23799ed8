// Package catalog loads the analysis catalog: the CSV that lists every
// analysis and marks the ones that run by default.
package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/leapstack-labs/achillesduck/internal/scripts"
	"github.com/leapstack-labs/achillesduck/pkg/core"
)

// Catalog column names.
const (
	ColumnID        = "analysis_id"
	ColumnName      = "analysis_name"
	ColumnIsDefault = "is_default"
)

// LoadError reports a catalog that could not be read at all. Individual
// malformed rows never produce it; they are skipped.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("failed to load analysis catalog: %v", e.Err)
	}
	return fmt.Sprintf("failed to load analysis catalog %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Load reads catalog CSV from r and returns the default analyses in
// execution order. A byte-order mark at the start of r is honored.
func Load(r io.Reader) ([]core.Analysis, error) {
	reader := csv.NewReader(scripts.NewDecoder(r))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &LoadError{Err: errors.New("catalog is empty")}
		}
		return nil, &LoadError{Err: fmt.Errorf("failed to read header: %w", err)}
	}

	idCol, nameCol, defaultCol := -1, -1, -1
	for i, col := range header {
		switch col {
		case ColumnID:
			idCol = i
		case ColumnName:
			nameCol = i
		case ColumnIsDefault:
			defaultCol = i
		}
	}
	if idCol < 0 || defaultCol < 0 {
		return nil, &LoadError{Err: fmt.Errorf("header must contain %s and %s columns", ColumnID, ColumnIsDefault)}
	}

	var analyses []core.Analysis
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &LoadError{Err: fmt.Errorf("failed to read row: %w", err)}
		}

		if field(record, defaultCol) != "1" {
			continue
		}
		id := field(record, idCol)
		if id == "" {
			continue
		}
		analyses = append(analyses, core.Analysis{
			ID:        id,
			Name:      field(record, nameCol),
			IsDefault: true,
		})
	}

	sort.SliceStable(analyses, func(i, j int) bool {
		return lessKey(sortKey(analyses[i].ID), sortKey(analyses[j].ID))
	})
	return analyses, nil
}

// LoadFile reads the catalog at path from src.
func LoadFile(ctx context.Context, src scripts.Source, path string, logger *slog.Logger) ([]core.Analysis, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	rc, err := src.Open(ctx, path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer func() { _ = rc.Close() }()

	analyses, err := Load(rc)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Path = path
		}
		return nil, err
	}

	logger.Info(fmt.Sprintf("Loaded %d analyses with is_default=1", len(analyses)), "path", path)
	return analyses, nil
}

// field returns record[i], or "" when the row is too short or i < 0.
func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}

// sortKey returns the integer value of an all-ASCII-digit id as a decimal
// string without leading zeros; any other id sorts as 0.
func sortKey(id string) string {
	if id == "" {
		return "0"
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return "0"
		}
	}
	key := strings.TrimLeft(id, "0")
	if key == "" {
		return "0"
	}
	return key
}

// lessKey compares two keys from sortKey numerically, without overflow.
func lessKey(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
