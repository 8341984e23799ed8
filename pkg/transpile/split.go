package transpile

// Statement is the token run of one SQL statement, without its terminator.
type Statement []Token

// Split groups tokens into statements. Statements end at a top-level
// semicolon or at a GO batch separator standing alone on its line.
// Unbalanced parentheses are reported as *TranslationError.
func Split(toks []Token) ([]Statement, error) {
	var (
		stmts []Statement
		cur   Statement
		depth int
		open  []int // lines of unclosed parentheses
	)

	flush := func() error {
		if depth > 0 {
			return &TranslationError{Line: open[len(open)-1], Message: "unclosed parenthesis"}
		}
		if len(cur) > 0 {
			stmts = append(stmts, cur)
		}
		cur = nil
		return nil
	}

	for i, t := range toks {
		switch {
		case t.IsOp("("):
			depth++
			open = append(open, t.Line)
		case t.IsOp(")"):
			if depth == 0 {
				return nil, &TranslationError{Line: t.Line, Message: "unexpected closing parenthesis"}
			}
			depth--
			open = open[:len(open)-1]
		case t.IsOp(";") && depth == 0:
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		case isBatchSeparator(toks, i):
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		cur = append(cur, t)
	}

	if err := flush(); err != nil {
		return nil, err
	}
	return stmts, nil
}

// isBatchSeparator reports whether toks[i] is a GO alone on its line.
func isBatchSeparator(toks []Token, i int) bool {
	if !toks[i].Is("GO") {
		return false
	}
	if i > 0 && toks[i-1].Line == toks[i].Line {
		return false
	}
	if i+1 < len(toks) && toks[i+1].Line == toks[i].Line {
		return false
	}
	return true
}
