package tui

import (
	"os"

	"golang.org/x/term"
)

// Mode represents the interaction mode for crmingest.
type Mode int

const (
	// ModeNonInteractive is used for cron jobs, CI and piped input.
	ModeNonInteractive Mode = iota
	// ModeInteractive is used when a human is at the terminal.
	ModeInteractive
)

// DetectMode determines whether crmingest should prompt and render styled output.
//
// Returns ModeNonInteractive if:
//   - CRMINGEST_NON_INTERACTIVE=1 is set
//   - CI or NO_COLOR is set
//   - stdin or stdout is not a terminal
func DetectMode() Mode {
	if os.Getenv("CRMINGEST_NON_INTERACTIVE") == "1" {
		return ModeNonInteractive
	}
	if os.Getenv("CI") != "" || os.Getenv("NO_COLOR") != "" {
		return ModeNonInteractive
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return ModeNonInteractive
	}
	return ModeInteractive
}

// IsInteractive reports whether DetectMode returns ModeInteractive.
func IsInteractive() bool {
	return DetectMode() == ModeInteractive
}

// StyledStderr reports whether summaries written to stderr may use colors and borders.
func StyledStderr() bool {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("CRMINGEST_NON_INTERACTIVE") == "1" {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}
