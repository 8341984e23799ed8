// Package preprocess turns a raw analysis script into an executable batch:
// placeholder substitution, hint removal and dialect translation.
package preprocess

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/achillesduck/pkg/core"
)

// SourceDialect is the dialect every analysis script is written in.
const SourceDialect = "tsql"

// Translator converts SQL text between dialects, one string per output
// statement. pkg/transpile provides the production implementation.
type Translator interface {
	Translate(sql, from, to string) ([]string, error)
}

// Batch is the executable form of one script.
type Batch struct {
	// Statements are the translated statements, without terminators.
	Statements []string
	// SQL is the statements joined with ";\n" plus a trailing ";".
	SQL string
}

// EmptyConversionError is returned when translation yields no statements.
type EmptyConversionError struct {
	Source string
}

func (e *EmptyConversionError) Error() string {
	if e.Source == "" {
		return "no SQL statements after conversion"
	}
	return fmt.Sprintf("no SQL statements after conversion of %s", e.Source)
}

// Config holds preprocessor configuration.
type Config struct {
	// Tokens is the ordered placeholder mapping (DefaultTokens when empty).
	Tokens []core.Token
	// HintMarker prefixes hint lines (DefaultHintMarker when empty).
	HintMarker string
	// Target is the dialect statements are translated to.
	Target string
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Preprocessor runs the substitute, strip, translate pipeline.
type Preprocessor struct {
	substitutor *TokenSubstitutor
	stripper    *HintStripper
	translator  Translator
	target      string
	logger      *slog.Logger
}

// New creates a Preprocessor that hands cleaned scripts to translator.
func New(translator Translator, cfg Config) *Preprocessor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	target := cfg.Target
	if target == "" {
		target = "duckdb"
	}
	return &Preprocessor{
		substitutor: NewTokenSubstitutor(cfg.Tokens),
		stripper:    NewHintStripper(cfg.HintMarker),
		translator:  translator,
		target:      target,
		logger:      logger,
	}
}

// Target returns the dialect batches are translated to.
func (p *Preprocessor) Target() string {
	return p.target
}

// Preprocess converts one raw script into a Batch. name identifies the
// script in errors and logs. Translation errors are returned unchanged.
func (p *Preprocessor) Preprocess(ctx context.Context, name, raw string) (*Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cleaned := p.stripper.Strip(p.substitutor.Substitute(raw))

	var statements []string
	if strings.TrimSpace(cleaned) != "" {
		var err error
		statements, err = p.translator.Translate(cleaned, SourceDialect, p.target)
		if err != nil {
			return nil, err
		}
	}
	if len(statements) == 0 {
		return nil, &EmptyConversionError{Source: name}
	}

	p.logger.Debug("script converted", "script", name, "statements", len(statements))

	return &Batch{
		Statements: statements,
		SQL:        strings.Join(statements, ";\n") + ";",
	}, nil
}
