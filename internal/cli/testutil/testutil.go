// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/achillesduck/internal/cli/output"
)

// Workspace is a temporary analysis layout: a catalog, a script
// directory, a merge script and the paths a run writes to.
type Workspace struct {
	Dir         string
	Catalog     string
	SQLDir      string
	MergeScript string
	Database    string
	State       string
}

// DefaultCatalog lists analyses 1 and 2 as default and 3 as not.
const DefaultCatalog = "analysis_id,analysis_name,is_default\n" +
	"1,Number of persons,1\n" +
	"2,Number of persons by gender,1\n" +
	"3,Number of persons by year of birth,0\n"

// DefaultMerge builds results.achilles_results from analyses 1 and 2.
const DefaultMerge = "CREATE SCHEMA IF NOT EXISTS results;\n" +
	"SELECT analysis_id, stratum_1, count_value INTO results.achilles_results\n" +
	"FROM @scratchDatabaseSchema@schemaDelim@tempAchillesPrefix_1\n" +
	"UNION ALL\n" +
	"SELECT analysis_id, stratum_1, count_value\n" +
	"FROM @scratchDatabaseSchema@schemaDelim@tempAchillesPrefix_2;\n"

// SetupTestWorkspace creates a workspace whose run succeeds: scripts for
// analyses 1 and 2 and the default merge script.
func SetupTestWorkspace(t *testing.T) *Workspace {
	t.Helper()

	tmpDir := t.TempDir()
	ws := &Workspace{
		Dir:         tmpDir,
		Catalog:     filepath.Join(tmpDir, "achilles_analysis_details.csv"),
		SQLDir:      filepath.Join(tmpDir, "sql_server"),
		MergeScript: filepath.Join(tmpDir, "merge.sql"),
		Database:    filepath.Join(tmpDir, "data", "synpuf"),
		State:       filepath.Join(tmpDir, "data", "state.db"),
	}

	if err := os.MkdirAll(filepath.Join(ws.SQLDir, "analyses"), 0o755); err != nil {
		t.Fatalf("failed to create script directory: %v", err)
	}
	ws.WriteFile(t, ws.Catalog, DefaultCatalog)
	ws.WriteAnalysis(t, "1",
		"--HINT DISTRIBUTE_ON_KEY(analysis_id)\n"+
			"SELECT 1 AS analysis_id, '@source_name' AS stratum_1, 10 AS count_value\n"+
			"INTO @scratchDatabaseSchema@schemaDelim@tempAchillesPrefix_1;\n")
	ws.WriteAnalysis(t, "2",
		"SELECT 2 AS analysis_id, 'F' AS stratum_1, 6 AS count_value\n"+
			"INTO @scratchDatabaseSchema@schemaDelim@tempAchillesPrefix_2;\n")
	ws.WriteFile(t, ws.MergeScript, DefaultMerge)

	return ws
}

// WriteAnalysis writes analyses/<id>.sql.
func (ws *Workspace) WriteAnalysis(t *testing.T, id, sql string) {
	t.Helper()
	ws.WriteFile(t, filepath.Join(ws.SQLDir, "analyses", id+".sql"), sql)
}

// RemoveAnalysis deletes analyses/<id>.sql.
func (ws *Workspace) RemoveAnalysis(t *testing.T, id string) {
	t.Helper()
	if err := os.Remove(filepath.Join(ws.SQLDir, "analyses", id+".sql")); err != nil {
		t.Fatalf("failed to remove analysis %s: %v", id, err)
	}
}

// WriteFile writes content to path.
func (ws *Workspace) WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// Args returns the global flags pointing a command at the workspace.
func (ws *Workspace) Args() []string {
	return []string{
		"--database-name", "synpuf",
		"--catalog", ws.Catalog,
		"--sql-dir", ws.SQLDir,
		"--merge-script", ws.MergeScript,
		"--database", ws.Database,
		"--state", ws.State,
		"--memory-limit", "1GB",
	}
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.OutputMode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// NewTestRendererText creates a new test renderer in text mode without a terminal.
func NewTestRendererText() *TestRenderer {
	return NewTestRenderer(output.ModeText, false)
}

// NewTestRendererMarkdown creates a new test renderer in markdown mode.
func NewTestRendererMarkdown() *TestRenderer {
	return NewTestRenderer(output.ModeMarkdown, false)
}

// NewTestRendererJSON creates a new test renderer in JSON mode.
func NewTestRendererJSON() *TestRenderer {
	return NewTestRenderer(output.ModeJSON, false)
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown performs basic markdown validation.
// It checks for unclosed code fences and empty headers.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	fenceCount := strings.Count(md, "```")
	if fenceCount%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", fenceCount)
	}

	for i, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
