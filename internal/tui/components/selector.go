package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vvka-141/crmingest/internal/tui"
)

// Option is one choice offered by a Selector.
type Option struct {
	Label       string
	Description string
	Value       string
}

// Selector picks one option from a list. It is meant to be embedded in a
// wizard: Update never quits the program, callers check Submitted instead.
type Selector struct {
	title     string
	options   []Option
	cursor    int
	submitted bool
	keys      tui.KeyMap
}

func NewSelector(title string, options []Option) Selector {
	return Selector{title: title, options: options, keys: tui.DefaultKeyMap()}
}

// WithValue moves the cursor to the option holding value, if any.
func (s Selector) WithValue(value string) Selector {
	for i, o := range s.options {
		if o.Value == value {
			s.cursor = i
		}
	}
	return s
}

func (s Selector) Update(msg tea.Msg) (Selector, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return s, nil
	}
	s.submitted = false
	switch {
	case key.Matches(km, s.keys.Up):
		if s.cursor > 0 {
			s.cursor--
		}
	case key.Matches(km, s.keys.Down):
		if s.cursor < len(s.options)-1 {
			s.cursor++
		}
	case key.Matches(km, s.keys.Select):
		s.submitted = len(s.options) > 0
	}
	return s, nil
}

func (s Selector) View() string {
	var b strings.Builder
	b.WriteString(tui.SubtitleStyle.Render(s.title))
	b.WriteString("\n")

	for i, opt := range s.options {
		style, symbol := tui.UnselectedStyle, tui.SymbolUnselected
		if i == s.cursor {
			style, symbol = tui.SelectedStyle, tui.SymbolSelected
		}
		b.WriteString("  ")
		b.WriteString(style.Render(symbol + " " + opt.Label))
		b.WriteString("\n")
		if opt.Description != "" {
			b.WriteString(tui.DescriptionStyle.Render(opt.Description))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Submitted reports whether the last key confirmed the current option.
func (s Selector) Submitted() bool { return s.submitted }

// Value returns the value under the cursor.
func (s Selector) Value() string {
	if len(s.options) == 0 {
		return ""
	}
	return s.options[s.cursor].Value
}
