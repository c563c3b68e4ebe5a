package components

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vvka-141/crmingest/internal/tui"
)

// CheckDoneMsg ends a Spinner. Err is nil on success.
type CheckDoneMsg struct {
	Result string
	Err    error
}

// Spinner shows progress for one background check and then its outcome.
type Spinner struct {
	spinner spinner.Model
	message string
	done    bool
	result  string
	err     error
}

func NewSpinner(message string) Spinner {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = tui.SelectedStyle
	return Spinner{spinner: s, message: message}
}

// Start returns the tick command that animates the spinner.
func (s Spinner) Start() tea.Cmd {
	return s.spinner.Tick
}

func (s Spinner) Update(msg tea.Msg) (Spinner, tea.Cmd) {
	switch msg := msg.(type) {
	case CheckDoneMsg:
		s.done = true
		s.result = msg.Result
		s.err = msg.Err
		return s, nil
	case spinner.TickMsg:
		if s.done {
			return s, nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s Spinner) View() string {
	if !s.done {
		return s.spinner.View() + " " + s.message
	}
	if s.err != nil {
		return tui.ErrorStyle.Render(tui.SymbolCross + " " + s.err.Error())
	}
	return tui.SuccessStyle.Render(tui.SymbolCheck + " " + s.result)
}

func (s Spinner) Done() bool { return s.done }
func (s Spinner) Err() error { return s.err }
