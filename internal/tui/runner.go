package tui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// RunProgram runs a full-screen bubbletea model to completion and returns its final state.
func RunProgram(m tea.Model, opts ...tea.ProgramOption) (tea.Model, error) {
	if !IsInteractive() {
		return nil, fmt.Errorf("interactive terminal required (set CRMINGEST_NON_INTERACTIVE= and run in a TTY)")
	}
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	final, err := tea.NewProgram(m, opts...).Run()
	if err != nil {
		return nil, fmt.Errorf("run terminal UI: %w", err)
	}
	return final, nil
}

// PromptContinue asks a yes/no question on out and reads the answer from in.
// An empty answer means yes.
func PromptContinue(in io.Reader, out io.Writer, message string) bool {
	fmt.Fprintf(out, "%s [Y/n]: ", message)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "", "y", "yes":
		return true
	}
	return false
}
