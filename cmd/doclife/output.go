package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
	stateStyles = map[string]lipgloss.Style{
		"draft":    lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		"active":   lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		"obsolete": lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		"archived": lipgloss.NewStyle().Faint(true),
	}
)

// FatalError prints an error and exits non-zero. JSON mode emits a
// machine-readable envelope instead.
func FatalError(format string, args ...interface{}) {
	if jsonOutput {
		outputJSON(map[string]string{"error": fmt.Sprintf(format, args...)})
	} else {
		fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	}
	closeApp()
	os.Exit(1)
}

func outputJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}

func isTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// shouldColor honors NO_COLOR and dumb terminals.
func shouldColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isTTY() && termenv.ColorProfile() != termenv.Ascii
}

// renderMarkdown pretty-prints markdown on a terminal and passes it
// through unchanged everywhere else.
func renderMarkdown(md string) string {
	if !isTTY() {
		return md
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

// styledState colors a state label; padding around the label survives.
func styledState(state string) string {
	if !shouldColor() {
		return state
	}
	if style, ok := stateStyles[strings.TrimSpace(state)]; ok {
		return style.Render(state)
	}
	return state
}

// confirm asks the user before a destructive operation. Non-interactive
// runs and --force skip the prompt and proceed.
func confirm(title string) bool {
	if forceFlag || !term.IsTerminal(int(os.Stdin.Fd())) {
		return true
	}
	ok := false
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Proceed").
		Negative("Cancel").
		Value(&ok).
		Run()
	if err != nil {
		return false
	}
	return ok
}
