// Package scripts reads analysis scripts, the merge script and the
// analysis catalog from local disk or an S3-compatible bucket.
package scripts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrNotFound is returned when a script does not exist in the source.
var ErrNotFound = errors.New("script not found")

// Driver names a storage backend.
type Driver string

// Storage drivers.
const (
	DriverFS Driver = "fs"
	DriverS3 Driver = "s3"
)

// Source provides read access to script files by path.
type Source interface {
	// Open returns the raw content at path. A missing path yields an
	// error wrapping ErrNotFound.
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	// Exists reports whether path is present.
	Exists(ctx context.Context, path string) (bool, error)
	// Driver names the backend.
	Driver() Driver
}

// Config selects and configures a backend.
type Config struct {
	Driver string   `koanf:"driver"`
	S3     S3Config `koanf:"s3"`
}

// New creates the Source named by cfg.Driver. An empty driver selects fs.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (Source, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	switch Driver(cfg.Driver) {
	case "", DriverFS:
		return NewFS(), nil
	case DriverS3:
		src, err := OpenS3(ctx, cfg.S3, logger)
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q (available: fs, s3)", cfg.Driver)
	}
}

// NewDecoder wraps r so that a UTF-8 or UTF-16 byte-order mark selects the
// encoding and is removed. Input without a BOM is read as UTF-8.
func NewDecoder(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

// ReadText reads the whole script at path as text.
func ReadText(ctx context.Context, src Source, path string) (string, error) {
	rc, err := src.Open(ctx, path)
	if err != nil {
		return "", err
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(NewDecoder(rc))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}
