package components

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vvka-141/crmingest/internal/tui"
)

// ErrFieldRequired is returned when a required field is empty.
var ErrFieldRequired = errors.New("this field is required")

// TextField is a labeled text input with optional validation.
type TextField struct {
	key       string
	label     string
	input     textinput.Model
	focused   bool
	required  bool
	validator func(string) error
	completer *PathCompleter
	err       error
}

// NewTextField creates a text field. key identifies the field to the owning form.
func NewTextField(key, label, placeholder string) TextField {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 256
	ti.Width = 40

	return TextField{key: key, label: label, input: ti}
}

func (t TextField) WithRequired() TextField {
	t.required = true
	return t
}

func (t TextField) WithValidator(fn func(string) error) TextField {
	t.validator = fn
	return t
}

func (t TextField) WithValue(value string) TextField {
	t.input.SetValue(value)
	return t
}

// WithPathCompletion lets Complete expand the value against the filesystem.
func (t TextField) WithPathCompletion(dirsOnly bool) TextField {
	t.completer = NewPathCompleter(dirsOnly)
	return t
}

// Complete replaces the value with the next path completion. It is a no-op
// for fields without path completion.
func (t *TextField) Complete() {
	if t.completer == nil {
		return
	}
	t.input.SetValue(t.completer.Next(t.input.Value()))
	t.input.CursorEnd()
}

// Key returns the identifier given at construction.
func (t TextField) Key() string { return t.key }

func (t *TextField) Focus() tea.Cmd {
	t.focused = true
	return t.input.Focus()
}

func (t *TextField) Blur() {
	t.focused = false
	t.input.Blur()
}

func (t TextField) Update(msg tea.Msg) (TextField, tea.Cmd) {
	if _, ok := msg.(tea.KeyMsg); ok && t.completer != nil {
		t.completer.Reset()
	}
	var cmd tea.Cmd
	t.input, cmd = t.input.Update(msg)
	if t.err != nil {
		t.err = t.check()
	}
	return t, cmd
}

func (t TextField) View() string {
	var b strings.Builder

	label := t.label
	if t.required {
		label += tui.ErrorStyle.Render(" *")
	}
	b.WriteString(tui.LabelStyle.Render(label))
	b.WriteString("\n")

	style := tui.UnselectedStyle
	if t.focused {
		style = tui.SelectedStyle
	}
	b.WriteString(style.Render(t.input.View()))

	if t.err != nil {
		b.WriteString("\n")
		b.WriteString(tui.ErrorStyle.Render(t.err.Error()))
	}
	return b.String()
}

// Value returns the trimmed input.
func (t TextField) Value() string {
	return strings.TrimSpace(t.input.Value())
}

func (t *TextField) SetValue(v string) {
	t.input.SetValue(v)
}

func (t TextField) Error() error {
	return t.err
}

// Validate runs the required check and the validator, remembering the result for View.
func (t *TextField) Validate() error {
	t.err = t.check()
	return t.err
}

func (t TextField) check() error {
	v := t.Value()
	if v == "" {
		if t.required {
			return ErrFieldRequired
		}
		return nil
	}
	if t.validator != nil {
		return t.validator(v)
	}
	return nil
}
