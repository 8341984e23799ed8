package transpile

import "strings"

func word(s string) Token { return Token{Kind: Word, Text: s} }

func op(s string) Token { return Token{Kind: Op, Text: s} }

func str(s string) Token {
	return Token{Kind: String, Text: "'" + strings.ReplaceAll(s, "'", "''") + "'"}
}

func num(s string) Token { return Token{Kind: Number, Text: s} }

// seq flattens tokens and token slices into one slice.
func seq(parts ...any) []Token {
	var out []Token
	for _, p := range parts {
		switch v := p.(type) {
		case Token:
			out = append(out, v)
		case []Token:
			out = append(out, v...)
		}
	}
	return out
}

// words turns a space-separated keyword phrase into word tokens.
func words(phrase string) []Token {
	fields := strings.Fields(phrase)
	out := make([]Token, len(fields))
	for i, f := range fields {
		out[i] = word(f)
	}
	return out
}

// call builds name(arg, arg, ...).
func call(name string, args ...[]Token) []Token {
	return append([]Token{word(name)}, parenList(args...)...)
}

// parenList builds (arg, arg, ...).
func parenList(args ...[]Token) []Token {
	out := []Token{op("(")}
	for i, a := range args {
		if i > 0 {
			out = append(out, op(","))
		}
		out = append(out, a...)
	}
	return append(out, op(")"))
}

// paren wraps tokens in parentheses.
func paren(toks ...Token) []Token {
	out := make([]Token, 0, len(toks)+2)
	out = append(out, op("("))
	out = append(out, toks...)
	return append(out, op(")"))
}

// matchParen returns the index of the parenthesis closing toks[open],
// or -1 when it is unbalanced.
func matchParen(toks []Token, open int) int {
	depth := 0
	for i := open; i < len(toks); i++ {
		switch {
		case toks[i].IsOp("("):
			depth++
		case toks[i].IsOp(")"):
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitArgs splits the inside of a call on top-level commas.
func splitArgs(inner []Token) [][]Token {
	if len(inner) == 0 {
		return nil
	}
	var (
		args  [][]Token
		start int
		depth int
	)
	for i, t := range inner {
		switch {
		case t.IsOp("("):
			depth++
		case t.IsOp(")"):
			depth--
		case t.IsOp(",") && depth == 0:
			args = append(args, inner[start:i])
			start = i + 1
		}
	}
	return append(args, inner[start:])
}

// lastTopLevel returns the index of the last top-level word w, or -1.
func lastTopLevel(toks []Token, w string) int {
	depth, found := 0, -1
	for i, t := range toks {
		switch {
		case t.IsOp("("):
			depth++
		case t.IsOp(")"):
			depth--
		case depth == 0 && t.Is(w):
			found = i
		}
	}
	return found
}

// firstTopLevel returns the index of the first top-level word w at or
// after from, or -1.
func firstTopLevel(toks []Token, w string, from int) int {
	depth := 0
	for i := from; i < len(toks); i++ {
		t := toks[i]
		switch {
		case t.IsOp("("):
			depth++
		case t.IsOp(")"):
			depth--
		case depth == 0 && t.Is(w):
			return i
		}
	}
	return -1
}
