package transpile

import (
	"sort"
	"strings"
	"sync"
)

// FuncRule rewrites a call to a T-SQL function. args holds the already
// rewritten arguments; the result replaces the whole call.
type FuncRule func(d *Dialect, args [][]Token) ([]Token, error)

// Dialect describes how T-SQL is rewritten for one target engine.
type Dialect struct {
	Name string

	// Functions maps upper-case T-SQL function names to rewrite rules.
	Functions map[string]FuncRule

	// NoArgFunctions maps niladic T-SQL calls such as GETDATE() to an
	// expression written without parentheses.
	NoArgFunctions map[string]string

	// Types maps upper-case T-SQL type names to target type names.
	Types map[string]string

	// DropLength lists target types that take no length or precision,
	// so VARCHAR(MAX) and FLOAT(53) lose their arguments.
	DropLength map[string]bool

	// TempTables emits CREATE TEMPORARY TABLE for #name tables.
	TempTables bool
}

// Dialect registry
var (
	dialectsMu sync.RWMutex
	dialects   = make(map[string]*Dialect)
)

// Get returns a dialect by name.
func Get(name string) (*Dialect, bool) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	d, ok := dialects[strings.ToLower(name)]
	return d, ok
}

// Register registers a dialect in the global registry.
// Called by dialect definitions in their init() functions.
func Register(d *Dialect) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	dialects[strings.ToLower(d.Name)] = d
}

// List returns all registered dialect names (sorted).
func List() []string {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// mapType returns the target name of a T-SQL type and whether its
// length arguments must be dropped.
func (d *Dialect) mapType(name string) (string, bool) {
	upper := strings.ToUpper(name)
	mapped, ok := d.Types[upper]
	if !ok {
		mapped = name
	}
	return mapped, d.DropLength[strings.ToUpper(mapped)]
}
