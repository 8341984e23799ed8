package transpile

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ha1tch/tsqlparser/lexer"
	"github.com/ha1tch/tsqlparser/token"
)

// Kind classifies a lexical token.
type Kind int

// Token kinds.
const (
	EOF    Kind = iota
	Word        // identifier, keyword, @variable or #temp name
	Quoted      // "name" or [name]; Text holds the bare name
	String      // 'text'; Text holds the literal including its quotes
	Number      // 123, 4.5, 1e10, 0x1F
	Op          // operator or punctuation
)

func (k Kind) String() string {
	switch k {
	case EOF:
		return "EOF"
	case Word:
		return "WORD"
	case Quoted:
		return "QUOTED"
	case String:
		return "STRING"
	case Number:
		return "NUMBER"
	case Op:
		return "OP"
	}
	return "UNKNOWN"
}

// Token is one lexical unit of T-SQL source.
type Token struct {
	Kind Kind
	Text string
	Pos  int // byte offset of the first character in the source
	End  int // byte offset after the last character
	Line int // 1-based line number

	// Temp is set on words written as #name or ##name; the leading hashes
	// are removed from Text.
	Temp bool
}

// Is reports whether t is the word w, compared case-insensitively.
func (t Token) Is(w string) bool {
	return t.Kind == Word && strings.EqualFold(t.Text, w)
}

// IsOp reports whether t is the operator or punctuation s.
func (t Token) IsOp(s string) bool {
	return t.Kind == Op && t.Text == s
}

// Lex splits T-SQL source into tokens using the tsqlparser scanner.
// Comments are dropped. Unterminated strings, quoted identifiers and block
// comments are reported as *TranslationError.
func Lex(input string) ([]Token, error) {
	src := newSource(input)
	raw := lexer.Tokenize(input)

	starts := make([]int, len(raw))
	for i, t := range raw {
		starts[i] = src.start(t)
	}

	var toks []Token
	for i, t := range raw {
		if t.Type == token.EOF {
			break
		}
		pos := starts[i]
		end := len(input)
		if i+1 < len(raw) {
			end = starts[i+1]
		}
		text := strings.TrimRightFunc(input[pos:max(pos, end)], unicode.IsSpace)
		end = pos + len(text)

		switch {
		case t.Type == token.COMMENT:
			if strings.HasPrefix(text, "/*") && !closedBlockComment(text) {
				return nil, &TranslationError{Line: t.Line, Message: "unterminated block comment"}
			}

		case t.Type == token.STRING || t.Type == token.NSTRING:
			// The target dialects have no N'' form.
			text = strings.TrimLeft(text, "Nn")
			if len(text) < 2 || !strings.HasSuffix(text, "'") || strings.Count(text, "'")%2 != 0 {
				return nil, &TranslationError{Line: t.Line, Message: "unterminated string literal"}
			}
			toks = append(toks, Token{Kind: String, Text: text, Pos: pos, End: end, Line: t.Line})

		case t.Type == token.IDENT && (strings.HasPrefix(text, "[") || strings.HasPrefix(text, `"`)):
			closing := "]"
			if text[0] == '"' {
				closing = `"`
			}
			if len(text) < 2 || !strings.HasSuffix(text, closing) {
				return nil, &TranslationError{
					Line:    t.Line,
					Message: "unterminated quoted identifier starting with " + text[:1],
				}
			}
			toks = append(toks, Token{Kind: Quoted, Text: t.Literal, Pos: pos, End: end, Line: t.Line})

		case t.Type == token.IDENT && strings.HasPrefix(t.Literal, "#"):
			toks = append(toks, Token{
				Kind: Word, Text: strings.TrimLeft(t.Literal, "#"),
				Pos: pos, End: end, Line: t.Line, Temp: true,
			})

		case t.Type.IsKeyword() && strings.ContainsAny(t.Literal, " ("):
			// Compound keywords such as TRUNCATE TABLE come back as one token.
			toks = append(toks, splitCompound(text, pos, t.Line)...)

		case t.Type.IsKeyword(), t.Type == token.IDENT, t.Type == token.VARIABLE,
			t.Type == token.TEMPVAR, t.Type == token.SYSVAR:
			toks = append(toks, Token{Kind: Word, Text: t.Literal, Pos: pos, End: end, Line: t.Line})

		case t.Type == token.INT, t.Type == token.FLOAT, t.Type == token.MONEY_LIT, t.Type == token.BINARY:
			toks = append(toks, Token{Kind: Number, Text: t.Literal, Pos: pos, End: end, Line: t.Line})

		case t.Type == token.ILLEGAL:
			if r, _ := utf8.DecodeRuneInString(t.Literal); unicode.IsSpace(r) {
				continue
			}
			return nil, &TranslationError{Line: t.Line, Message: fmt.Sprintf("unexpected character %q", t.Literal)}

		default:
			toks = append(toks, Token{Kind: Op, Text: t.Literal, Pos: pos, End: end, Line: t.Line})
		}
	}
	return toks, nil
}

// isOperator reports whether the scanner positions t at its last
// character rather than its first.
func isOperator(t token.Token) bool {
	return (t.Type >= token.PLUS && t.Type <= token.COLON) || t.Type == token.ILLEGAL || t.Type == token.PLACEHOLDER
}

// source maps scanner line and column positions back to byte offsets.
type source struct {
	text  string
	lines []int // byte offset of the start of each line
}

func newSource(text string) *source {
	lines := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, i+1)
		}
	}
	return &source{text: text, lines: lines}
}

// start returns the byte offset of the first character of t.
func (s *source) start(t token.Token) int {
	if t.Type == token.EOF {
		return len(s.text)
	}
	col := t.Column
	if isOperator(t) {
		col -= utf8.RuneCountInString(t.Literal) - 1
	}
	return s.offset(t.Line, col)
}

// offset converts a 1-based line and rune column to a byte offset.
func (s *source) offset(line, col int) int {
	if line < 1 || line > len(s.lines) {
		return len(s.text)
	}
	off := s.lines[line-1]
	for c := 1; c < col && off < len(s.text); c++ {
		_, size := utf8.DecodeRuneInString(s.text[off:])
		off += size
	}
	return off
}

// closedBlockComment reports whether a /* comment closes every level it
// opens. T-SQL block comments nest.
func closedBlockComment(text string) bool {
	depth := 0
	for i := 0; i+1 < len(text); i++ {
		switch text[i : i+2] {
		case "/*":
			depth++
			i++
		case "*/":
			depth--
			i++
			if depth == 0 {
				return i == len(text)-1
			}
		}
	}
	return false
}

// splitCompound breaks the source of a compound keyword token back into
// its words and parentheses.
func splitCompound(text string, pos, line int) []Token {
	var out []Token
	for i := 0; i < len(text); {
		switch c := text[i]; {
		case c == '\n':
			line++
			i++
		case c == '(':
			out = append(out, Token{Kind: Op, Text: "(", Pos: pos + i, End: pos + i + 1, Line: line})
			i++
		case unicode.IsSpace(rune(c)):
			i++
		default:
			j := i
			for j < len(text) && text[j] != '(' && !unicode.IsSpace(rune(text[j])) {
				j++
			}
			out = append(out, Token{Kind: Word, Text: text[i:j], Pos: pos + i, End: pos + j, Line: line})
			i = j
		}
	}
	return out
}
