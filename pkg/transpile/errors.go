package transpile

import (
	"errors"
	"fmt"
)

// ErrUnsupportedSource is returned when the source dialect is not T-SQL.
var ErrUnsupportedSource = errors.New("only tsql is supported as a source dialect")

// TranslationError reports input the translator cannot handle: malformed
// T-SQL, a parse failure in strict mode, or a construct with no
// equivalent in the target dialect.
type TranslationError struct {
	Line    int
	Message string
}

func (e *TranslationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("translation error at line %d: %s", e.Line, e.Message)
	}
	return "translation error: " + e.Message
}

// UnknownDialectError is returned when a dialect name is not registered.
type UnknownDialectError struct {
	Name      string
	Available []string
}

func (e *UnknownDialectError) Error() string {
	return fmt.Sprintf("unknown dialect %q (available: %v)", e.Name, e.Available)
}
