package cmd

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/itsmostafa/scriptbridge/internal/engine"
	"github.com/itsmostafa/scriptbridge/internal/session"
)

var (
	// titleStyle for bold headers
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("160"))

	// dimStyle for muted metadata text
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	// valueStyle for evaluation results
	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	// errorStyle for failures
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	// headerBoxStyle for the REPL banner
	headerBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("160")).
			Padding(0, 1)
)

// printBanner renders the REPL header.
func printBanner(w io.Writer, e *engine.Engine) {
	content := fmt.Sprintf("%s %s  %s %s\n%s",
		dimStyle.Render("Lang:"), titleStyle.Render(e.Language()),
		dimStyle.Render("Session:"), e.ID(),
		dimStyle.Render(":vars  :globals  :quit"),
	)
	fmt.Fprintln(w, headerBoxStyle.Render(content))
}

// printResult writes an evaluation result. Nil results print nothing.
func printResult(w io.Writer, v any) {
	if v == nil {
		return
	}
	fmt.Fprintln(w, valueStyle.Render(formatValue(v)))
}

// printBindings lists names and values in sorted order.
func printBindings(w io.Writer, values map[string]any) {
	if len(values) == 0 {
		fmt.Fprintln(w, dimStyle.Render("(none)"))
		return
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%s %s\n", titleStyle.Render(name), formatValue(values[name]))
	}
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", val)
	case error:
		return val.Error()
	}
	switch session.KindOf(v) {
	case session.KindFunc:
		return "<func>"
	case session.KindObject:
		return fmt.Sprintf("<%s>", session.DeclaredType(v))
	}
	return fmt.Sprintf("%v", v)
}

// formatError renders err with its script stack, if any.
func formatError(err error) string {
	var b strings.Builder
	b.WriteString(errorStyle.Render(err.Error()))

	var trace []session.StackFrame
	var se *engine.ScriptError
	var f *session.EvalFailure
	var ie *engine.InternalError
	switch {
	case errors.As(err, &se):
		trace = se.Stack
	case errors.As(err, &f):
		trace = f.Stack
	case errors.As(err, &ie):
		trace = ie.Stack
	}
	if len(trace) > 0 {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(strings.TrimRight(session.FormatStack(trace), "\n")))
	}
	return b.String()
}
