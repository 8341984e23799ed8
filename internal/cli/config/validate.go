package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/achillesduck/internal/cli/output"
	"github.com/leapstack-labs/achillesduck/internal/pipeline"
	"github.com/leapstack-labs/achillesduck/internal/scripts"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !output.OutputMode(c.OutputFormat).IsValid() {
		return &pipeline.ConfigError{
			Key:     "output",
			Message: fmt.Sprintf("invalid output format %q (valid: %s)", c.OutputFormat, strings.Join(output.ValidModes, ", ")),
		}
	}

	switch scripts.Driver(c.Storage.Driver) {
	case "", scripts.DriverFS:
	case scripts.DriverS3:
		if c.Storage.S3.Bucket == "" {
			return &pipeline.ConfigError{Key: "storage.s3.bucket", Message: "bucket is required for the s3 storage driver"}
		}
	default:
		return &pipeline.ConfigError{Key: "storage.driver", Message: fmt.Sprintf("unknown storage driver %q (valid: fs, s3)", c.Storage.Driver)}
	}

	for i, tok := range c.Tokens {
		if tok.Token == "" {
			return &pipeline.ConfigError{Key: fmt.Sprintf("tokens[%d]", i), Message: "token must not be empty"}
		}
	}
	return nil
}

// RequireDatabase checks that a results database name is configured.
// Commands that execute against the database call it.
func (c *Config) RequireDatabase() error {
	if c.DatabaseName == "" {
		return &pipeline.ConfigError{Key: "database_name", Message: "DATABASE_NAME environment variable not set"}
	}
	return nil
}
