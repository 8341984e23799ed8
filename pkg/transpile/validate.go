package transpile

import (
	"fmt"

	"github.com/ha1tch/tsqlparser/lexer"
	"github.com/ha1tch/tsqlparser/parser"
)

// validate parses one T-SQL statement and reports the first parse error.
func validate(sql string, line int) error {
	l := lexer.New(sql)
	p := parser.New(l)
	p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		return &TranslationError{Line: line, Message: fmt.Sprintf("parse error: %s", errs[0])}
	}
	return nil
}
