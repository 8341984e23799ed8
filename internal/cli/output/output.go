// Package output renders command output for terminals, markdown consumers
// and JSON pipelines.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// OutputMode selects how output is rendered.
type OutputMode string

// Mode is shorthand for OutputMode.
type Mode = OutputMode

// Output modes.
const (
	ModeAuto     OutputMode = "auto"
	ModeText     OutputMode = "text"
	ModeMarkdown OutputMode = "markdown"
	ModeJSON     OutputMode = "json"
)

// ValidModes lists the accepted --output values.
var ValidModes = []string{string(ModeAuto), string(ModeText), string(ModeMarkdown), string(ModeJSON)}

// IsValid reports whether m is a known mode. The empty mode means auto.
func (m OutputMode) IsValid() bool {
	switch m {
	case "", ModeAuto, ModeText, ModeMarkdown, ModeJSON:
		return true
	}
	return false
}

// Renderer writes command output in the configured mode.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	mode   OutputMode
	isTTY  bool
	styles *Styles
}

// NewRenderer creates a renderer, detecting whether out is a terminal.
func NewRenderer(out, errOut io.Writer, mode OutputMode) *Renderer {
	return NewRendererWithTTY(out, errOut, isTerminal(out), mode)
}

// NewRendererWithTTY creates a renderer with an explicit terminal state.
func NewRendererWithTTY(out, errOut io.Writer, isTTY bool, mode OutputMode) *Renderer {
	if mode == "" {
		mode = ModeAuto
	}
	return &Renderer{
		out:    out,
		errOut: errOut,
		mode:   mode,
		isTTY:  isTTY,
		styles: NewStyles(out, isTTY),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // file descriptors fit in int
}

// EffectiveMode resolves auto to text on a terminal and markdown otherwise.
func (r *Renderer) EffectiveMode() OutputMode {
	switch r.mode {
	case ModeText, ModeMarkdown, ModeJSON:
		return r.mode
	}
	if r.isTTY {
		return ModeText
	}
	return ModeMarkdown
}

// IsTTY reports whether output goes to a terminal.
func (r *Renderer) IsTTY() bool { return r.isTTY }

// Writer returns the standard output writer.
func (r *Renderer) Writer() io.Writer { return r.out }

// ErrWriter returns the error output writer.
func (r *Renderer) ErrWriter() io.Writer { return r.errOut }

// Styles returns the styles bound to this renderer.
func (r *Renderer) Styles() *Styles { return r.styles }

// Println writes a line to standard output.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.out, a...)
}

// Printf writes formatted text to standard output.
func (r *Renderer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.out, format, a...)
}

// Header writes a section header.
func (r *Renderer) Header(level int, text string) {
	if r.EffectiveMode() == ModeMarkdown {
		r.Println(FormatHeader(level, text))
		return
	}
	r.Println(r.styles.Header.Render(text))
}

// Success writes a success line.
func (r *Renderer) Success(msg string) {
	r.StatusLine(StatusSuccess, msg)
}

// Error writes an error line to the error output.
func (r *Renderer) Error(msg string) {
	_, _ = fmt.Fprintln(r.errOut, r.styles.Error.Render(SymbolFailure+" "+msg))
}

// Muted renders text in the muted style.
func (r *Renderer) Muted(text string) string {
	return r.styles.Muted.Render(text)
}

// Status values for StatusLine.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
	StatusRunning = "running"
)

// Status symbols.
const (
	SymbolSuccess = "✓"
	SymbolFailure = "✗"
	SymbolSkipped = "○"
	SymbolRunning = "●"
)

// StatusLine writes msg prefixed with a symbol for status.
func (r *Renderer) StatusLine(status, msg string) {
	symbol, style := SymbolRunning, r.styles.Info
	switch status {
	case StatusSuccess, "completed":
		symbol, style = SymbolSuccess, r.styles.Success
	case StatusFailed:
		symbol, style = SymbolFailure, r.styles.Error
	case StatusSkipped, "cancelled":
		symbol, style = SymbolSkipped, r.styles.Warning
	}
	r.Println(style.Render(symbol + " " + msg))
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// JSONLine writes v as a single line of JSON.
func (r *Renderer) JSONLine(v any) error {
	return json.NewEncoder(r.out).Encode(v)
}

// SQL writes a SQL block: fenced in markdown, styled on a terminal.
func (r *Renderer) SQL(sql string) {
	if r.EffectiveMode() == ModeMarkdown {
		r.Println("```sql")
		r.Println(sql)
		r.Println("```")
		return
	}
	// Styled line by line; a multi-line Render pads every line to the widest.
	for _, line := range strings.Split(sql, "\n") {
		r.Println(r.styles.SQL.Render(line))
	}
}

// Banner is the separator around failure reports.
var Banner = strings.Repeat("=", 80)

// Failure writes a failure report: a bannered title, the error details and
// the SQL that was being executed.
func (r *Renderer) Failure(title, details, sql string) {
	if r.EffectiveMode() == ModeMarkdown {
		r.Println(FormatHeader(2, "ERROR: "+title))
		r.Println("")
		r.Println(FormatKeyValue("Error details", details))
		if sql != "" {
			r.Println("")
			r.Println("Converted SQL:")
			r.SQL(sql)
		}
		return
	}
	r.Println("")
	r.Println(r.styles.Error.Render(Banner))
	r.Println(r.styles.Error.Render("ERROR: " + title))
	r.Println(r.styles.Error.Render(Banner))
	r.Println("")
	r.Println("Error details: " + details)
	if sql != "" {
		r.Println("")
		r.Println("Converted SQL:")
		r.Println(sql)
	}
	r.Println("")
	r.Println(r.styles.Error.Render(Banner))
}

// FormatHeader returns a markdown header.
func FormatHeader(level int, text string) string {
	if level < 1 {
		level = 1
	}
	return strings.Repeat("#", level) + " " + text
}

// FormatKeyValue returns a markdown list item for a key and value.
func FormatKeyValue(key, value string) string {
	return fmt.Sprintf("- **%s:** %s", key, value)
}
