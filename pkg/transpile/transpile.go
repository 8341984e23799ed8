// Package transpile converts SQL Server (T-SQL) scripts into statements
// for another SQL dialect.
//
// Translation is rule based. Source text is tokenized with the tsqlparser
// scanner, split into statements on semicolons and GO separators,
// optionally validated with the full tsqlparser parser, and then each
// statement is rewritten by the target dialect's rules and printed.
package transpile

import (
	"strings"
)

// Options control a translation.
type Options struct {
	// Pretty prints one clause per line with indented subqueries.
	Pretty bool

	// Strict validates each source statement with the T-SQL parser before
	// rewriting it; parse errors become *TranslationError.
	Strict bool
}

// Transpile converts sql from the source dialect to the target dialect.
// It returns one string per output statement, without terminators.
// Statements with no target equivalent (SET NOCOUNT ON, USE db) are
// dropped, so the result may be empty.
func Transpile(sql, from, to string, opts Options) ([]string, error) {
	if !strings.EqualFold(from, TSQL.Name) {
		return nil, ErrUnsupportedSource
	}
	target, ok := Get(to)
	if !ok {
		return nil, &UnknownDialectError{Name: to, Available: List()}
	}

	toks, err := Lex(sql)
	if err != nil {
		return nil, err
	}
	stmts, err := Split(toks)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(stmts))
	for _, stmt := range stmts {
		if opts.Strict {
			src := sql[stmt[0].Pos:stmt[len(stmt)-1].End]
			if err := validate(src, stmt[0].Line); err != nil {
				return nil, err
			}
		}

		rewritten := []Token(stmt)
		if target != TSQL {
			rewritten, err = target.rewrite(stmt)
			if err != nil {
				return nil, err
			}
		}
		if len(rewritten) == 0 {
			continue
		}
		out = append(out, Format(rewritten, opts.Pretty))
	}
	return out, nil
}

// Transpiler binds Options to the Transpile function so it can be handed
// to components that only know how to call Translate.
type Transpiler struct {
	opts Options
}

// New creates a Transpiler.
func New(opts Options) *Transpiler {
	return &Transpiler{opts: opts}
}

// Translate converts sql from the source dialect to the target dialect.
func (t *Transpiler) Translate(sql, from, to string) ([]string, error) {
	return Transpile(sql, from, to, t.opts)
}
