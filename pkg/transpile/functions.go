package transpile

import (
	"fmt"
	"strings"
)

// dateParts maps T-SQL datepart abbreviations to unit names.
var dateParts = map[string]string{
	"year": "year", "yy": "year", "yyyy": "year",
	"quarter": "quarter", "qq": "quarter", "q": "quarter",
	"month": "month", "mm": "month", "m": "month",
	"dayofyear": "dayofyear", "dy": "dayofyear", "y": "dayofyear",
	"day": "day", "dd": "day", "d": "day",
	"week": "week", "wk": "week", "ww": "week",
	"weekday": "weekday", "dw": "weekday",
	"hour": "hour", "hh": "hour",
	"minute": "minute", "mi": "minute", "n": "minute",
	"second": "second", "ss": "second", "s": "second",
}

// datePart resolves a datepart argument written as a bare word or a string.
func datePart(arg []Token) (string, error) {
	if len(arg) != 1 {
		return "", &TranslationError{Message: "invalid datepart argument"}
	}
	raw := arg[0].Text
	if arg[0].Kind == String {
		raw = strings.Trim(raw, "'")
	}
	unit, ok := dateParts[strings.ToLower(raw)]
	if !ok {
		return "", &TranslationError{Message: fmt.Sprintf("unknown datepart %q", raw)}
	}
	return unit, nil
}

func arity(name string, args [][]Token, counts ...int) error {
	for _, n := range counts {
		if len(args) == n {
			return nil
		}
	}
	return &TranslationError{Message: fmt.Sprintf("%s expects %v arguments, got %d", name, counts, len(args))}
}

// rename keeps the arguments and changes the function name.
func rename(to string) FuncRule {
	return func(_ *Dialect, args [][]Token) ([]Token, error) {
		return call(to, args...), nil
	}
}

// castRule rewrites the type after the last top-level AS.
func castRule(name string) FuncRule {
	return func(d *Dialect, args [][]Token) ([]Token, error) {
		if err := arity(name, args, 1); err != nil {
			return nil, err
		}
		as := lastTopLevel(args[0], "AS")
		if as < 0 {
			return nil, &TranslationError{Message: name + " without AS"}
		}
		typ, n := d.rewriteType(args[0][as+1:])
		if n == 0 {
			return nil, &TranslationError{Message: name + " without a target type"}
		}
		inner := seq(args[0][:as+1], typ, args[0][as+1+n:])
		return call(name, inner), nil
	}
}

// convertRule turns CONVERT(type, expr[, style]) into CAST(expr AS type).
// The style argument has no equivalent and is dropped.
func convertRule(d *Dialect, args [][]Token) ([]Token, error) {
	if err := arity("CONVERT", args, 2, 3); err != nil {
		return nil, err
	}
	typ, n := d.rewriteType(args[0])
	if n == 0 || n != len(args[0]) {
		return nil, &TranslationError{Message: "CONVERT with an invalid type"}
	}
	return call("CAST", seq(args[1], word("AS"), typ)), nil
}

// charindexRule turns CHARINDEX(needle, haystack) into STRPOS(haystack, needle).
func charindexRule(_ *Dialect, args [][]Token) ([]Token, error) {
	if len(args) == 3 {
		return nil, &TranslationError{Message: "CHARINDEX with a start position is not supported"}
	}
	if err := arity("CHARINDEX", args, 2); err != nil {
		return nil, err
	}
	return call("STRPOS", args[1], args[0]), nil
}

// iifRule turns IIF(cond, a, b) into a CASE expression.
func iifRule(_ *Dialect, args [][]Token) ([]Token, error) {
	if err := arity("IIF", args, 3); err != nil {
		return nil, err
	}
	return seq(words("CASE WHEN"), args[0], word("THEN"), args[1], word("ELSE"), args[2], word("END")), nil
}

func squareRule(_ *Dialect, args [][]Token) ([]Token, error) {
	if err := arity("SQUARE", args, 1); err != nil {
		return nil, err
	}
	return call("POWER", args[0], []Token{num("2")}), nil
}

// logRule maps T-SQL LOG (natural log, optional base) to LN.
func logRule(_ *Dialect, args [][]Token) ([]Token, error) {
	if err := arity("LOG", args, 1, 2); err != nil {
		return nil, err
	}
	if len(args) == 1 {
		return call("LN", args[0]), nil
	}
	return paren(seq(call("LN", args[0]), op("/"), call("LN", args[1]))...), nil
}

// commonFunctions are shared by every target dialect.
func commonFunctions() map[string]FuncRule {
	return map[string]FuncRule{
		"ISNULL":        rename("COALESCE"),
		"LEN":           rename("LENGTH"),
		"COUNT_BIG":     rename("COUNT"),
		"STDEV":         rename("STDDEV_SAMP"),
		"STDEVP":        rename("STDDEV_POP"),
		"VAR":           rename("VAR_SAMP"),
		"VARP":          rename("VAR_POP"),
		"CEILING":       rename("CEIL"),
		"DATEFROMPARTS": rename("MAKE_DATE"),
		"CAST":          castRule("CAST"),
		"CONVERT":       convertRule,
		"CHARINDEX":     charindexRule,
		"IIF":           iifRule,
		"SQUARE":        squareRule,
		"LOG":           logRule,
	}
}

// --- DuckDB ---

func duckdbDateAdd(_ *Dialect, args [][]Token) ([]Token, error) {
	if err := arity("DATEADD", args, 3); err != nil {
		return nil, err
	}
	unit, err := datePart(args[0])
	if err != nil {
		return nil, err
	}
	if unit == "dayofyear" || unit == "weekday" {
		unit = "day"
	}
	return paren(seq(args[2], op("+"), word("INTERVAL"), paren(args[1]...), word(strings.ToUpper(unit)))...), nil
}

func duckdbDateDiff(_ *Dialect, args [][]Token) ([]Token, error) {
	if err := arity("DATEDIFF", args, 3); err != nil {
		return nil, err
	}
	unit, err := datePart(args[0])
	if err != nil {
		return nil, err
	}
	return call("DATE_DIFF", []Token{str(unit)}, args[1], args[2]), nil
}

func duckdbDatePart(_ *Dialect, args [][]Token) ([]Token, error) {
	if err := arity("DATEPART", args, 2); err != nil {
		return nil, err
	}
	unit, err := datePart(args[0])
	if err != nil {
		return nil, err
	}
	if unit == "weekday" {
		unit = "dayofweek"
	}
	return call("DATE_PART", []Token{str(unit)}, args[1]), nil
}

// DuckDB is the default target dialect.
var DuckDB = &Dialect{
	Name:       "duckdb",
	TempTables: true,
	Functions: merge(commonFunctions(), map[string]FuncRule{
		"TRY_CAST": castRule("TRY_CAST"),
		"DATEADD":  duckdbDateAdd,
		"DATEDIFF": duckdbDateDiff,
		"DATEPART": duckdbDatePart,
		"EOMONTH":  rename("LAST_DAY"),
	}),
	NoArgFunctions: map[string]string{
		"GETDATE":     "CURRENT_TIMESTAMP",
		"GETUTCDATE":  "CURRENT_TIMESTAMP",
		"SYSDATETIME": "CURRENT_TIMESTAMP",
		"NEWID":       "UUID()",
	},
	Types: map[string]string{
		"NVARCHAR":         "VARCHAR",
		"NCHAR":            "VARCHAR",
		"NTEXT":            "VARCHAR",
		"TEXT":             "VARCHAR",
		"DATETIME":         "TIMESTAMP",
		"DATETIME2":        "TIMESTAMP",
		"SMALLDATETIME":    "TIMESTAMP",
		"FLOAT":            "DOUBLE",
		"BIT":              "BOOLEAN",
		"TINYINT":          "SMALLINT",
		"UNIQUEIDENTIFIER": "UUID",
		"VARBINARY":        "BLOB",
		"IMAGE":            "BLOB",
	},
	DropLength: map[string]bool{
		"DOUBLE":    true,
		"TIMESTAMP": true,
		"BOOLEAN":   true,
		"UUID":      true,
		"BLOB":      true,
	},
}

// --- Postgres ---

func postgresDateAdd(_ *Dialect, args [][]Token) ([]Token, error) {
	if err := arity("DATEADD", args, 3); err != nil {
		return nil, err
	}
	unit, err := datePart(args[0])
	if err != nil {
		return nil, err
	}
	if unit == "dayofyear" || unit == "weekday" {
		unit = "day"
	}
	if unit == "quarter" {
		return paren(seq(args[2], op("+"), paren(args[1]...), op("*"), word("INTERVAL"), str("3 month"))...), nil
	}
	return paren(seq(args[2], op("+"), paren(args[1]...), op("*"), word("INTERVAL"), str("1 "+unit))...), nil
}

func extract(unit string, arg []Token) []Token {
	return call("CAST", seq(call("EXTRACT", seq(word(strings.ToUpper(unit)), word("FROM"), arg)), words("AS INTEGER")))
}

func postgresDateDiff(_ *Dialect, args [][]Token) ([]Token, error) {
	if err := arity("DATEDIFF", args, 3); err != nil {
		return nil, err
	}
	unit, err := datePart(args[0])
	if err != nil {
		return nil, err
	}
	start, end := args[1], args[2]
	asDate := func(a []Token) []Token { return call("CAST", seq(a, words("AS DATE"))) }

	switch unit {
	case "day", "dayofyear", "weekday":
		return paren(seq(asDate(end), op("-"), asDate(start))...), nil
	case "year":
		return paren(seq(extract("year", end), op("-"), extract("year", start))...), nil
	case "month":
		years := paren(seq(extract("year", end), op("-"), extract("year", start))...)
		return paren(seq(years, op("*"), num("12"), op("+"), extract("month", end), op("-"), extract("month", start))...), nil
	}
	return nil, &TranslationError{Message: fmt.Sprintf("DATEDIFF by %s is not supported for postgres", unit)}
}

func postgresDatePart(_ *Dialect, args [][]Token) ([]Token, error) {
	if err := arity("DATEPART", args, 2); err != nil {
		return nil, err
	}
	unit, err := datePart(args[0])
	if err != nil {
		return nil, err
	}
	switch unit {
	case "dayofyear":
		unit = "doy"
	case "weekday":
		unit = "dow"
	}
	return extract(unit, args[1]), nil
}

func postgresPart(unit string) FuncRule {
	return func(_ *Dialect, args [][]Token) ([]Token, error) {
		if err := arity(strings.ToUpper(unit), args, 1); err != nil {
			return nil, err
		}
		return extract(unit, args[0]), nil
	}
}

func postgresEOMonth(_ *Dialect, args [][]Token) ([]Token, error) {
	if err := arity("EOMONTH", args, 1); err != nil {
		return nil, err
	}
	monthStart := call("DATE_TRUNC", []Token{str("month")}, args[0])
	return call("CAST", seq(monthStart, op("+"), word("INTERVAL"), str("1 month"), op("-"), word("INTERVAL"), str("1 day"), words("AS DATE"))), nil
}

// Postgres is an alternate target dialect.
var Postgres = &Dialect{
	Name:       "postgres",
	TempTables: true,
	Functions: merge(commonFunctions(), map[string]FuncRule{
		"TRY_CAST": castRule("CAST"),
		"DATEADD":  postgresDateAdd,
		"DATEDIFF": postgresDateDiff,
		"DATEPART": postgresDatePart,
		"YEAR":     postgresPart("year"),
		"MONTH":    postgresPart("month"),
		"DAY":      postgresPart("day"),
		"EOMONTH":  postgresEOMonth,
	}),
	NoArgFunctions: map[string]string{
		"GETDATE":     "CURRENT_TIMESTAMP",
		"GETUTCDATE":  "CURRENT_TIMESTAMP",
		"SYSDATETIME": "CURRENT_TIMESTAMP",
		"NEWID":       "GEN_RANDOM_UUID()",
	},
	Types: map[string]string{
		"NVARCHAR":         "VARCHAR",
		"NCHAR":            "CHAR",
		"NTEXT":            "TEXT",
		"DATETIME":         "TIMESTAMP",
		"DATETIME2":        "TIMESTAMP",
		"SMALLDATETIME":    "TIMESTAMP",
		"FLOAT":            "DOUBLE PRECISION",
		"BIT":              "BOOLEAN",
		"TINYINT":          "SMALLINT",
		"UNIQUEIDENTIFIER": "UUID",
		"VARBINARY":        "BYTEA",
		"IMAGE":            "BYTEA",
	},
	DropLength: map[string]bool{
		"DOUBLE PRECISION": true,
		"TIMESTAMP":        true,
		"BOOLEAN":          true,
		"UUID":             true,
		"BYTEA":            true,
		"TEXT":             true,
	},
}

// TSQL is the identity dialect: statements are split and normalized but
// not rewritten. Useful for inspecting what the translator sees.
var TSQL = &Dialect{Name: "tsql"}

func merge(base, extra map[string]FuncRule) map[string]FuncRule {
	for k, v := range extra {
		base[k] = v
	}
	return base
}

func init() {
	Register(DuckDB)
	Register(Postgres)
	Register(TSQL)
}
