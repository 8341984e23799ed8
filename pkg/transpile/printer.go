package transpile

import (
	"bytes"
	"strings"
)

const indentSize = 2

// spacedBeforeParen are words that keep a space before "(".
var spacedBeforeParen = map[string]bool{
	"AS": true, "IN": true, "AND": true, "OR": true, "NOT": true, "ON": true,
	"FROM": true, "JOIN": true, "WHERE": true, "SELECT": true, "EXISTS": true,
	"VALUES": true, "OVER": true, "INTO": true, "TABLE": true, "WITH": true,
	"BY": true, "THEN": true, "ELSE": true, "WHEN": true, "CASE": true,
	"INTERVAL": true, "IS": true, "ALL": true, "ANY": true, "USING": true,
	"DISTINCT": true, "UNION": true, "EXCEPT": true, "INTERSECT": true,
	"HAVING": true, "LIMIT": true, "SET": true,
}

// printer renders tokens as SQL text. In pretty mode every top-level
// clause of a query starts its own line and subqueries are indented.
type printer struct {
	pretty      bool
	output      *bytes.Buffer
	prev        *Token
	prevPrev    *Token
	atLineStart bool
	frames      []*frame
}

// frame tracks one parenthesis level.
type frame struct {
	query   bool // parenthesized subquery
	indent  int  // indentation of clause keywords
	clause  string
	inList  bool // inside a SELECT list
	between bool // a BETWEEN is waiting for its AND
}

// Format renders a statement. The result carries no trailing semicolon.
func Format(toks []Token, pretty bool) string {
	p := &printer{
		pretty:      pretty,
		output:      &bytes.Buffer{},
		atLineStart: true,
		frames:      []*frame{{query: true}},
	}
	for i := 0; i < len(toks); i++ {
		i += p.token(toks, i) - 1
	}
	return strings.TrimSpace(p.output.String())
}

func (p *printer) top() *frame {
	return p.frames[len(p.frames)-1]
}

func (p *printer) newline(indent int) {
	if p.output.Len() == 0 {
		return
	}
	p.output.WriteByte('\n')
	for i := 0; i < indent*indentSize; i++ {
		p.output.WriteByte(' ')
	}
	p.atLineStart = true
}

func (p *printer) emit(t Token) {
	if !p.atLineStart && p.prev != nil && needsSpace(p.prevPrev, p.prev, &t) {
		p.output.WriteByte(' ')
	}
	p.output.WriteString(render(t))
	p.atLineStart = false
	p.prevPrev, p.prev = p.prev, &t
}

// token prints toks[i] and reports how many tokens it consumed.
func (p *printer) token(toks []Token, i int) int {
	t := toks[i]
	f := p.top()

	if !p.pretty {
		p.emit(t)
		return 1
	}

	if n, name := clauseAt(toks, i); n > 0 && f.query {
		p.newline(f.indent)
		for _, kw := range toks[i : i+n] {
			p.emit(kw)
		}
		f.clause = name
		f.between = false
		f.inList = name == "SELECT"
		if f.inList {
			p.newline(f.indent + 1)
		}
		return n
	}

	switch {
	case t.IsOp("("):
		sub := i+1 < len(toks) && (toks[i+1].Is("SELECT") || toks[i+1].Is("WITH"))
		p.emit(t)
		inner := &frame{query: sub, indent: f.indent}
		if sub {
			inner.indent = p.contentIndent(f) + 1
		}
		p.frames = append(p.frames, inner)
		return 1
	case t.IsOp(")"):
		if len(p.frames) > 1 {
			closed := p.top()
			p.frames = p.frames[:len(p.frames)-1]
			if closed.query {
				p.newline(p.contentIndent(p.top()))
			}
		}
		p.emit(t)
		return 1
	case t.IsOp(",") && f.query && f.inList:
		p.emit(t)
		p.newline(f.indent + 1)
		return 1
	case t.Is("BETWEEN"):
		f.between = true
	case (t.Is("AND") || t.Is("OR")) && f.query && breaksConditions(f.clause):
		if t.Is("AND") && f.between {
			f.between = false
			break
		}
		p.newline(f.indent + 1)
	}

	p.emit(t)
	return 1
}

// contentIndent is the indentation of the current line's content in f.
func (p *printer) contentIndent(f *frame) int {
	if f.inList || breaksConditions(f.clause) {
		return f.indent + 1
	}
	return f.indent
}

func breaksConditions(clause string) bool {
	return clause == "WHERE" || clause == "HAVING" || clause == "JOIN"
}

// clauseAt recognizes a clause keyword phrase starting at toks[i] and
// returns its length in tokens and its canonical name.
func clauseAt(toks []Token, i int) (int, string) {
	t := toks[i]
	next := func(k int) Token {
		if i+k < len(toks) {
			return toks[i+k]
		}
		return Token{}
	}

	switch {
	case t.Is("SELECT"):
		if next(1).Is("DISTINCT") {
			return 2, "SELECT"
		}
		return 1, "SELECT"
	case t.Is("FROM"), t.Is("WHERE"), t.Is("HAVING"), t.Is("LIMIT"), t.Is("QUALIFY"), t.Is("VALUES"):
		return 1, strings.ToUpper(t.Text)
	case (t.Is("GROUP") || t.Is("ORDER")) && next(1).Is("BY"):
		return 2, strings.ToUpper(t.Text) + " BY"
	case t.Is("UNION"):
		if next(1).Is("ALL") {
			return 2, "UNION"
		}
		return 1, "UNION"
	case t.Is("INTERSECT"), t.Is("EXCEPT"):
		return 1, strings.ToUpper(t.Text)
	case t.Is("JOIN"):
		return 1, "JOIN"
	case t.Is("INNER") || t.Is("CROSS"):
		if next(1).Is("JOIN") {
			return 2, "JOIN"
		}
	case t.Is("LEFT") || t.Is("RIGHT") || t.Is("FULL"):
		if next(1).Is("JOIN") {
			return 2, "JOIN"
		}
		if next(1).Is("OUTER") && next(2).Is("JOIN") {
			return 3, "JOIN"
		}
	}
	return 0, ""
}

// render returns the source text of a token in the target syntax.
func render(t Token) string {
	if t.Kind == Quoted {
		return `"` + strings.ReplaceAll(t.Text, `"`, `""`) + `"`
	}
	return t.Text
}

// needsSpace decides whether a space separates prev and cur.
func needsSpace(prevPrev, prev, cur *Token) bool {
	switch {
	case cur.IsOp(",") || cur.IsOp(")") || cur.IsOp(".") || cur.IsOp("::") || cur.IsOp(";"):
		return false
	case prev.IsOp("(") || prev.IsOp(".") || prev.IsOp("::"):
		return false
	case cur.IsOp("("):
		if prev.Kind != Word {
			return prev.Kind == Quoted || prev.IsOp(")") || prev.Kind == Op
		}
		if spacedBeforeParen[strings.ToUpper(prev.Text)] {
			return true
		}
		// table name followed by a column list
		return prevPrev != nil && (prevPrev.Is("INTO") || prevPrev.Is("TABLE") || prevPrev.Is("EXISTS"))
	}
	return true
}
