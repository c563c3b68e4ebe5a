package wizards

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vvka-141/crmingest/internal/tui/components"
)

// fieldGroup is a vertical list of text fields with one focused at a time.
type fieldGroup struct {
	fields []components.TextField
	focus  int
}

func newFieldGroup(fields ...components.TextField) fieldGroup {
	return fieldGroup{fields: fields}
}

// focusAt moves focus, clamped to the field range.
func (g *fieldGroup) focusAt(i int) tea.Cmd {
	if i < 0 {
		i = 0
	}
	if i >= len(g.fields) {
		i = len(g.fields) - 1
	}
	g.fields[g.focus].Blur()
	g.focus = i
	return g.fields[i].Focus()
}

func (g *fieldGroup) blur() {
	g.fields[g.focus].Blur()
}

func (g *fieldGroup) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	g.fields[g.focus], cmd = g.fields[g.focus].Update(msg)
	return cmd
}

// validate checks every field and returns the index of the first invalid one, or -1.
func (g *fieldGroup) validate() int {
	bad := -1
	for i := range g.fields {
		if g.fields[i].Validate() != nil && bad < 0 {
			bad = i
		}
	}
	return bad
}

func (g *fieldGroup) value(key string) string {
	for _, f := range g.fields {
		if f.Key() == key {
			return f.Value()
		}
	}
	return ""
}

func (g *fieldGroup) view() string {
	var b strings.Builder
	for _, f := range g.fields {
		b.WriteString(f.View())
		b.WriteString("\n\n")
	}
	return b.String()
}
