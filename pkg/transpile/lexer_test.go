package transpile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLex_Kinds(t *testing.T) {
	src := "SELECT [count value], N'it''s', #tmp, @v, 1.5e3 -- trailing\n/* outer /* nested */ */ <> || x"

	toks, err := Lex(src)
	require.NoError(t, err)

	type kt struct {
		kind Kind
		text string
	}
	var got []kt
	for _, tok := range toks {
		got = append(got, kt{tok.Kind, tok.Text})
	}

	assert.Equal(t, []kt{
		{Word, "SELECT"},
		{Quoted, "count value"},
		{Op, ","},
		{String, "'it''s'"},
		{Op, ","},
		{Word, "tmp"},
		{Op, ","},
		{Word, "@v"},
		{Op, ","},
		{Number, "1.5e3"},
		{Op, "<>"},
		{Op, "|"},
		{Op, "|"},
		{Word, "x"},
	}, got)

	assert.True(t, toks[5].Temp, "#tmp should be marked temp")
	assert.False(t, toks[7].Temp)
}

func TestLex_LinesAndOffsets(t *testing.T) {
	src := "SELECT 1\nFROM\n  t"
	toks, err := Lex(src)
	require.NoError(t, err)
	require.Len(t, toks, 4)

	assert.Equal(t, 1, toks[0].Line)
	assert.Equal(t, 2, toks[2].Line)
	assert.Equal(t, 3, toks[3].Line)
	assert.Equal(t, "FROM", src[toks[2].Pos:toks[2].End])
}

func TestLex_OffsetsAfterMultibyteText(t *testing.T) {
	src := "SELECT 'Zürich' <> x"
	toks, err := Lex(src)
	require.NoError(t, err)
	require.Len(t, toks, 4)

	assert.Equal(t, "'Zürich'", src[toks[1].Pos:toks[1].End])
	assert.Equal(t, "<>", src[toks[2].Pos:toks[2].End])
	assert.Equal(t, "x", src[toks[3].Pos:toks[3].End])
}

func TestLex_CompoundKeywordsAreSplit(t *testing.T) {
	toks, err := Lex("truncate  table results.achilles_results")
	require.NoError(t, err)
	require.Len(t, toks, 5)

	assert.True(t, toks[0].Is("TRUNCATE"))
	assert.Equal(t, "truncate", toks[0].Text)
	assert.True(t, toks[1].Is("TABLE"))
	assert.Equal(t, "results", toks[2].Text)
	assert.True(t, toks[3].IsOp("."), "qualified names keep their dot")
	assert.Equal(t, "achilles_results", toks[4].Text)
}

func TestLex_KeywordsAndLiterals(t *testing.T) {
	toks, err := Lex("SELECT 0x1F, $5.00, @@ROWCOUNT FROM t")
	require.NoError(t, err)

	kinds := make([]Kind, 0, len(toks))
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	assert.Equal(t, []Kind{Word, Number, Op, Number, Op, Word, Word, Word}, kinds)
	assert.Equal(t, "@@ROWCOUNT", toks[5].Text)
}

func TestLex_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
		msg  string
	}{
		{"unterminated string", "SELECT\n'abc", 2, "unterminated string literal"},
		{"unterminated bracket", "SELECT [abc", 1, "unterminated quoted identifier"},
		{"unterminated quoted", "SELECT \"abc", 1, "unterminated quoted identifier"},
		{"unterminated comment", "SELECT 1 /* a /* b */", 1, "unterminated block comment"},
		{"escaped quote at end", "SELECT 'it''", 1, "unterminated string literal"},
		{"illegal character", "SELECT 1 ! 2", 1, "unexpected character"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Lex(tt.src)
			var te *TranslationError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, tt.line, te.Line)
			assert.Contains(t, te.Message, tt.msg)
		})
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		count int
	}{
		{"semicolons", "SELECT 1; SELECT 2;", 2},
		{"go separator", "SELECT 1\nGO\nSELECT 2", 2},
		{"go inside a statement is a name", "SELECT go FROM t", 1},
		{"semicolon in string", "SELECT ';'", 1},
		{"semicolon in comment", "SELECT 1 -- ;\n", 1},
		{"empty statements skipped", ";;SELECT 1;;", 1},
		{"only comments", "-- nothing\n/* here */", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := Lex(tt.src)
			require.NoError(t, err)
			stmts, err := Split(toks)
			require.NoError(t, err)
			assert.Len(t, stmts, tt.count)
		})
	}
}

func TestSplit_UnbalancedParens(t *testing.T) {
	tests := []struct {
		src string
		msg string
	}{
		{"SELECT (1", "unclosed parenthesis"},
		{"SELECT 1)", "unexpected closing parenthesis"},
		{"SELECT 1; SELECT (2", "unclosed parenthesis"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			toks, err := Lex(tt.src)
			require.NoError(t, err)
			_, err = Split(toks)
			var te *TranslationError
			require.ErrorAs(t, err, &te)
			assert.Contains(t, te.Message, tt.msg)
		})
	}
}
