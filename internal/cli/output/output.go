// Package output renders command results for terminals and scripts.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"
)

// OutputMode selects how results are written.
type OutputMode string

// Output modes.
const (
	ModeAuto OutputMode = "auto" // text on a terminal, json otherwise
	ModeText OutputMode = "text"
	ModeJSON OutputMode = "json"
)

// Mode parses an output setting. Unknown or empty values mean auto.
func Mode(s string) OutputMode {
	switch OutputMode(s) {
	case ModeText, ModeJSON:
		return OutputMode(s)
	default:
		return ModeAuto
	}
}

// Renderer writes command output in the effective mode.
type Renderer struct {
	w     io.Writer
	errW  io.Writer
	isTTY bool
	mode  OutputMode
}

// NewRenderer creates a renderer, detecting whether w is a terminal.
func NewRenderer(w, errW io.Writer, mode OutputMode) *Renderer {
	return NewRendererWithTTY(w, errW, isTerminal(w), mode)
}

// NewRendererWithTTY creates a renderer with an explicit terminal state.
func NewRendererWithTTY(w, errW io.Writer, isTTY bool, mode OutputMode) *Renderer {
	return &Renderer{w: w, errW: errW, isTTY: isTTY, mode: mode}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // G115: fd fits in int
}

// EffectiveMode resolves auto against the terminal state.
func (r *Renderer) EffectiveMode() OutputMode {
	if r.mode != ModeAuto && r.mode != "" {
		return r.mode
	}
	if r.isTTY {
		return ModeText
	}
	return ModeJSON
}

// IsJSON reports whether output is machine readable.
func (r *Renderer) IsJSON() bool { return r.EffectiveMode() == ModeJSON }

// Writer returns the output writer.
func (r *Renderer) Writer() io.Writer { return r.w }

// ErrWriter returns the diagnostics writer.
func (r *Renderer) ErrWriter() io.Writer { return r.errW }

// Println writes a line to the output.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.w, a...)
}

// Printf writes formatted text to the output.
func (r *Renderer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.w, format, a...)
}

// Warnf writes a diagnostic line to the error writer.
func (r *Renderer) Warnf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.errW, format+"\n", a...)
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table writes rows under header as a light-style table.
func (r *Renderer) Table(header []string, rows [][]any) {
	t := table.NewWriter()
	t.SetOutputMirror(r.w)
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	t.AppendHeader(headerRow)

	for _, row := range rows {
		t.AppendRow(table.Row(row))
	}
	t.Render()
}

// FormatValue formats a database value for text output.
func FormatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}
