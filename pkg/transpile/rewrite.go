package transpile

import (
	"errors"
	"fmt"
	"strings"
)

// sessionSettings are SET options that only matter to SQL Server.
var sessionSettings = map[string]bool{
	"NOCOUNT":           true,
	"ANSI_NULLS":        true,
	"ANSI_WARNINGS":     true,
	"ANSI_PADDING":      true,
	"QUOTED_IDENTIFIER": true,
	"ARITHABORT":        true,
	"XACT_ABORT":        true,
	"DATEFIRST":         true,
}

// tableHints are the lock and isolation hints accepted inside WITH (...).
var tableHints = map[string]bool{
	"NOLOCK":          true,
	"READUNCOMMITTED": true,
	"READCOMMITTED":   true,
	"UPDLOCK":         true,
	"HOLDLOCK":        true,
	"ROWLOCK":         true,
	"PAGLOCK":         true,
	"TABLOCK":         true,
	"TABLOCKX":        true,
	"READPAST":        true,
	"XLOCK":           true,
	"NOWAIT":          true,
}

// rewrite applies every rewrite pass to one statement. A nil result
// means the statement has no equivalent in the target and is dropped.
func (d *Dialect) rewrite(stmt Statement) ([]Token, error) {
	toks := []Token(stmt)
	if isSessionNoise(toks) {
		return nil, nil
	}

	toks = rewriteDropIfExists(toks)
	toks, keep := stripIndexKind(toks)
	if !keep {
		return nil, nil
	}
	toks = stripTableHints(toks)

	toks, err := rewriteTop(toks)
	if err != nil {
		return nil, err
	}
	toks = d.rewriteSelectInto(toks)
	toks = d.rewriteCreateTable(toks)

	toks, err = d.rewriteCalls(toks)
	if err != nil {
		return nil, err
	}
	return rewriteConcat(toks), nil
}

// isSessionNoise reports statements that configure a SQL Server session
// or database context: SET NOCOUNT ON, USE db, PRINT 'x'.
func isSessionNoise(toks []Token) bool {
	if len(toks) == 0 {
		return true
	}
	if toks[0].Is("USE") || toks[0].Is("PRINT") {
		return true
	}
	return len(toks) > 1 && toks[0].Is("SET") && toks[1].Kind == Word &&
		sessionSettings[strings.ToUpper(toks[1].Text)]
}

// rewriteDropIfExists turns
//
//	IF OBJECT_ID('x', 'U') IS NOT NULL DROP TABLE x
//
// into DROP TABLE IF EXISTS x.
func rewriteDropIfExists(toks []Token) []Token {
	if len(toks) < 3 || !toks[0].Is("IF") || !toks[1].Is("OBJECT_ID") || !toks[2].IsOp("(") {
		return toks
	}
	closeIdx := matchParen(toks, 2)
	if closeIdx < 0 || len(toks) < closeIdx+6 {
		return toks
	}
	tail := toks[closeIdx+1:]
	if !tail[0].Is("IS") || !tail[1].Is("NOT") || !tail[2].Is("NULL") || !tail[3].Is("DROP") || !tail[4].Is("TABLE") {
		return toks
	}
	return seq(words("DROP TABLE IF EXISTS"), tail[5:])
}

// stripIndexKind removes CLUSTERED and NONCLUSTERED from CREATE INDEX.
// Columnstore indexes have no equivalent; keep is false for them.
func stripIndexKind(toks []Token) (out []Token, keep bool) {
	if len(toks) == 0 || !toks[0].Is("CREATE") {
		return toks, true
	}
	out = make([]Token, 0, len(toks))
	for i, t := range toks {
		if i < 4 && t.Is("COLUMNSTORE") {
			return nil, false
		}
		if i < 4 && (t.Is("CLUSTERED") || t.Is("NONCLUSTERED")) {
			continue
		}
		out = append(out, t)
	}
	return out, true
}

// stripTableHints removes WITH (NOLOCK)-style table hints.
func stripTableHints(toks []Token) []Token {
	out := make([]Token, 0, len(toks))
	for i := 0; i < len(toks); i++ {
		if toks[i].Is("WITH") && i+1 < len(toks) && toks[i+1].IsOp("(") {
			closeIdx := matchParen(toks, i+1)
			if closeIdx > 0 && onlyHints(toks[i+2:closeIdx]) {
				i = closeIdx
				continue
			}
		}
		out = append(out, toks[i])
	}
	return out
}

func onlyHints(toks []Token) bool {
	if len(toks) == 0 {
		return false
	}
	for _, t := range toks {
		if t.IsOp(",") {
			continue
		}
		if t.Kind != Word || !tableHints[strings.ToUpper(t.Text)] {
			return false
		}
	}
	return true
}

// rewriteTop moves SELECT TOP n to a LIMIT n at the end of the same query
// level.
func rewriteTop(toks []Token) ([]Token, error) {
	for {
		i := findTop(toks)
		if i < 0 {
			return toks, nil
		}

		var count []Token
		consumed := 2
		switch {
		case i+1 < len(toks) && toks[i+1].Kind == Number:
			count = toks[i+1 : i+2]
		case i+1 < len(toks) && toks[i+1].IsOp("("):
			closeIdx := matchParen(toks, i+1)
			if closeIdx < 0 {
				return nil, &TranslationError{Line: toks[i].Line, Message: "malformed TOP clause"}
			}
			count = toks[i+2 : closeIdx]
			consumed = closeIdx - i + 1
		default:
			return nil, &TranslationError{Line: toks[i].Line, Message: "malformed TOP clause"}
		}
		if i+consumed < len(toks) && (toks[i+consumed].Is("PERCENT") || toks[i+consumed].Is("WITH")) {
			return nil, &TranslationError{
				Line:    toks[i].Line,
				Message: fmt.Sprintf("TOP ... %s is not supported", strings.ToUpper(toks[i+consumed].Text)),
			}
		}

		end := scopeEnd(toks, i)
		out := make([]Token, 0, len(toks)+1)
		out = append(out, toks[:i]...)
		out = append(out, toks[i+consumed:end]...)
		out = append(out, word("LIMIT"))
		out = append(out, count...)
		out = append(out, toks[end:]...)
		toks = out
	}
}

// findTop returns the index of a TOP that directly follows SELECT,
// SELECT DISTINCT or SELECT ALL.
func findTop(toks []Token) int {
	for i, t := range toks {
		if !t.Is("TOP") || i == 0 {
			continue
		}
		prev := toks[i-1]
		if prev.Is("SELECT") {
			return i
		}
		if (prev.Is("DISTINCT") || prev.Is("ALL")) && i > 1 && toks[i-2].Is("SELECT") {
			return i
		}
	}
	return -1
}

// scopeEnd returns the index of the parenthesis closing the query level
// that contains toks[from], or len(toks).
func scopeEnd(toks []Token, from int) int {
	depth := 0
	for i := from; i < len(toks); i++ {
		switch {
		case toks[i].IsOp("("):
			depth++
		case toks[i].IsOp(")"):
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return len(toks)
}

// rewriteSelectInto turns SELECT ... INTO t FROM ... into
// CREATE TABLE t AS SELECT ... FROM ..., keeping a leading WITH clause.
func (d *Dialect) rewriteSelectInto(toks []Token) []Token {
	if len(toks) == 0 || !(toks[0].Is("SELECT") || toks[0].Is("WITH")) {
		return toks
	}
	sel := firstTopLevel(toks, "SELECT", 0)
	if sel < 0 {
		return toks
	}
	into := firstTopLevel(toks, "INTO", sel)
	if into < 0 {
		return toks
	}
	if from := firstTopLevel(toks, "FROM", sel); from >= 0 && from < into {
		return toks
	}

	nameEnd := qualifiedNameEnd(toks, into+1)
	if nameEnd == into+1 {
		return toks
	}
	target := toks[into+1 : nameEnd]

	head := words("CREATE TABLE")
	if d.TempTables && isTemp(target) {
		head = words("CREATE TEMPORARY TABLE")
	}

	out := make([]Token, 0, len(toks)+3)
	out = append(out, head...)
	out = append(out, target...)
	out = append(out, word("AS"))
	out = append(out, toks[:into]...)
	out = append(out, toks[nameEnd:]...)
	return out
}

// qualifiedNameEnd returns the index after a dotted name starting at from.
func qualifiedNameEnd(toks []Token, from int) int {
	i := from
	for i < len(toks) {
		if toks[i].Kind != Word && toks[i].Kind != Quoted {
			break
		}
		i++
		if i < len(toks) && toks[i].IsOp(".") {
			i++
			continue
		}
		break
	}
	return i
}

func isTemp(name []Token) bool {
	for _, t := range name {
		if t.Temp {
			return true
		}
	}
	return false
}

// rewriteCreateTable maps column types in CREATE TABLE t (...) and marks
// #temp tables as temporary.
func (d *Dialect) rewriteCreateTable(toks []Token) []Token {
	if len(toks) < 3 || !toks[0].Is("CREATE") || !toks[1].Is("TABLE") {
		return toks
	}
	nameEnd := qualifiedNameEnd(toks, 2)
	out := make([]Token, 0, len(toks)+1)
	out = append(out, toks[:2]...)
	if d.TempTables && isTemp(toks[2:nameEnd]) {
		out = []Token{toks[0], word("TEMPORARY"), toks[1]}
	}
	out = append(out, toks[2:nameEnd]...)

	if nameEnd >= len(toks) || !toks[nameEnd].IsOp("(") {
		return append(out, toks[nameEnd:]...)
	}
	closeIdx := matchParen(toks, nameEnd)
	if closeIdx < 0 {
		return append(out, toks[nameEnd:]...)
	}

	var cols [][]Token
	for _, col := range splitArgs(toks[nameEnd+1 : closeIdx]) {
		cols = append(cols, d.rewriteColumnDef(col))
	}
	out = append(out, parenList(cols...)...)
	return append(out, toks[closeIdx+1:]...)
}

// rewriteColumnDef maps the type of one column definition and drops
// IDENTITY(seed, increment).
func (d *Dialect) rewriteColumnDef(col []Token) []Token {
	if len(col) < 2 || col[0].Is("CONSTRAINT") || col[0].Is("PRIMARY") ||
		col[0].Is("UNIQUE") || col[0].Is("FOREIGN") || col[0].Is("CHECK") || col[0].Is("INDEX") {
		return col
	}
	typ, n := d.rewriteType(col[1:])
	out := seq(col[0], typ)
	rest := col[1+n:]
	for i := 0; i < len(rest); i++ {
		if rest[i].Is("IDENTITY") {
			if i+1 < len(rest) && rest[i+1].IsOp("(") {
				if closeIdx := matchParen(rest, i+1); closeIdx > 0 {
					i = closeIdx
				}
			}
			continue
		}
		out = append(out, rest[i])
	}
	return out
}

// rewriteType rewrites the type name at toks[0], with its optional
// (length) arguments, and reports how many tokens it consumed.
func (d *Dialect) rewriteType(toks []Token) ([]Token, int) {
	if len(toks) == 0 || toks[0].Kind != Word {
		return nil, 0
	}
	name, dropLength := d.mapType(toks[0].Text)
	if len(toks) < 2 || !toks[1].IsOp("(") {
		return []Token{word(name)}, 1
	}
	closeIdx := matchParen(toks, 1)
	if closeIdx < 0 {
		return []Token{word(name)}, 1
	}
	args := toks[2:closeIdx]
	if dropLength || (len(args) == 1 && args[0].Is("MAX")) {
		return []Token{word(name)}, closeIdx + 1
	}
	return seq(word(name), toks[1:closeIdx+1]), closeIdx + 1
}

// rewriteCalls rewrites function calls, innermost arguments first.
func (d *Dialect) rewriteCalls(toks []Token) ([]Token, error) {
	out := make([]Token, 0, len(toks))
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.Kind != Word || i+1 >= len(toks) || !toks[i+1].IsOp("(") || (i > 0 && toks[i-1].IsOp(".")) {
			out = append(out, t)
			continue
		}
		closeIdx := matchParen(toks, i+1)
		if closeIdx < 0 {
			out = append(out, t)
			continue
		}

		name := strings.ToUpper(t.Text)
		inner := toks[i+2 : closeIdx]

		if expr, ok := d.NoArgFunctions[name]; ok && len(inner) == 0 {
			repl, err := Lex(expr)
			if err != nil {
				return nil, err
			}
			out = append(out, repl...)
			i = closeIdx
			continue
		}

		rule, ok := d.Functions[name]
		if !ok {
			out = append(out, t)
			continue
		}

		args := splitArgs(inner)
		for j := range args {
			rewritten, err := d.rewriteCalls(args[j])
			if err != nil {
				return nil, err
			}
			args[j] = rewritten
		}
		repl, err := rule(d, args)
		if err != nil {
			var te *TranslationError
			if errors.As(err, &te) && te.Line == 0 {
				te.Line = t.Line
			}
			return nil, err
		}
		out = append(out, repl...)
		i = closeIdx
	}
	return out, nil
}

// rewriteConcat turns + next to a string literal into ||.
func rewriteConcat(toks []Token) []Token {
	for i, t := range toks {
		if !t.IsOp("+") || i == 0 || i+1 >= len(toks) {
			continue
		}
		if toks[i-1].Kind == String || toks[i+1].Kind == String {
			toks[i].Text = "||"
		}
	}
	return toks
}
