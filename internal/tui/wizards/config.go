// Package wizards holds the interactive terminal flows of crmingest.
package wizards

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vvka-141/crmingest/internal/config"
	"github.com/vvka-141/crmingest/internal/tui"
	"github.com/vvka-141/crmingest/internal/tui/components"
	"github.com/vvka-141/crmingest/pkg/crmingest"
)

// checkTimeout bounds the optional connection check.
const checkTimeout = 15 * time.Second

// ConnectionCheck tries the PostgreSQL settings collected so far.
type ConnectionCheck func(ctx context.Context, cfg *config.ProjectConfig) error

// ConfigResult holds the outcome of the config wizard.
type ConfigResult struct {
	Cancelled bool
	Config    config.ProjectConfig
}

type configStep int

const (
	stepBackend configStep = iota
	stepConnection
	stepCheck
	stepDirs
	stepReview
	stepDone
)

// ConfigWizard collects the settings of crmingest.yaml.
type ConfigWizard struct {
	step    configStep
	base    config.ProjectConfig
	backend components.Selector

	postgres fieldGroup
	sqlite   fieldGroup
	dirs     fieldGroup

	check   ConnectionCheck
	spinner components.Spinner

	result ConfigResult
	keys   tui.KeyMap
}

// ConfigOption customizes a ConfigWizard.
type ConfigOption func(*ConfigWizard)

// WithConnectionCheck adds a step that tries the PostgreSQL settings before saving.
func WithConnectionCheck(fn ConnectionCheck) ConfigOption {
	return func(w *ConfigWizard) { w.check = fn }
}

// NewConfigWizard creates a wizard whose fields start from base. A nil base starts from defaults.
func NewConfigWizard(base *config.ProjectConfig, opts ...ConfigOption) ConfigWizard {
	var b config.ProjectConfig
	if base != nil {
		b = *base
	}
	c := b.Connection

	port := ""
	if c.Port != 0 {
		port = strconv.Itoa(c.Port)
	}
	w := ConfigWizard{
		step: stepBackend,
		base: b,
		backend: components.NewSelector("Where should clients, estimates and invoices be stored?", []components.Option{
			{Label: "PostgreSQL", Description: "Shared server, supports cloud IAM authentication", Value: string(crmingest.BackendPostgres)},
			{Label: "SQLite", Description: "Single local file, no server needed", Value: string(crmingest.BackendSQLite)},
		}).WithValue(b.Backend),
		postgres: newFieldGroup(
			components.NewTextField("host", "Host", "localhost").WithValue(or(c.Host, "localhost")).WithRequired(),
			components.NewTextField("port", "Port", "5432").WithValue(or(port, "5432")).WithValidator(validatePort),
			components.NewTextField("username", "Username", "defaults to $PGUSER or $USER").WithValue(c.Username),
			components.NewTextField("database", "Database", "crm").WithValue(or(c.Database, "crm")).WithRequired(),
			components.NewTextField("sslmode", "SSL mode", "prefer").WithValue(or(c.SSLMode, "prefer")).WithValidator(validateSSLMode),
		),
		sqlite: newFieldGroup(
			components.NewTextField("path", "Database file", config.DefaultSQLitePath).
				WithValue(or(b.SQLite.Path, config.DefaultSQLitePath)).WithRequired().WithPathCompletion(false),
		),
		dirs: newFieldGroup(
			components.NewTextField("base_dir", "Data directory (holds data/clients, data/estimates, data/invoices)", ".").
				WithValue(or(b.BaseDir, ".")).WithRequired().WithPathCompletion(true),
			components.NewTextField("log_dir", "Log directory", config.DefaultLogDir).
				WithValue(or(b.LogDir, config.DefaultLogDir)).WithPathCompletion(true),
			components.NewTextField("timeout", "Run timeout", "10m").
				WithValue(or(b.Timeout, "10m")).WithValidator(validateTimeout),
		),
		keys: tui.DefaultKeyMap(),
	}
	for _, opt := range opts {
		opt(&w)
	}
	return w
}

func (w ConfigWizard) Init() tea.Cmd {
	return nil
}

func (w ConfigWizard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok && key.Matches(km, w.keys.Quit) {
		w.result.Cancelled = true
		return w, tea.Quit
	}

	switch w.step {
	case stepBackend:
		return w.updateBackend(msg)
	case stepConnection:
		return w.updateFields(msg, (*ConfigWizard).connectionFields, stepBackend, afterConnection)
	case stepCheck:
		return w.updateCheck(msg)
	case stepDirs:
		return w.updateFields(msg, dirFields, stepConnection, func(w ConfigWizard) (ConfigWizard, tea.Cmd) {
			w.step = stepReview
			return w, nil
		})
	case stepReview:
		return w.updateReview(msg)
	}
	return w, nil
}

func (w ConfigWizard) updateBackend(msg tea.Msg) (tea.Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok && key.Matches(km, w.keys.Back) {
		w.result.Cancelled = true
		return w, tea.Quit
	}
	w.backend, _ = w.backend.Update(msg)
	if !w.backend.Submitted() {
		return w, nil
	}
	w.step = stepConnection
	cmd := w.connectionFields().focusAt(0)
	return w, cmd
}

func (w ConfigWizard) updateFields(msg tea.Msg, group func(*ConfigWizard) *fieldGroup, back configStep, next func(ConfigWizard) (ConfigWizard, tea.Cmd)) (tea.Model, tea.Cmd) {
	g := group(&w)
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		cmd := g.update(msg)
		return w, cmd
	}

	switch {
	case key.Matches(km, w.keys.Back):
		g.blur()
		w.step = back
		if back == stepConnection {
			cmd := w.connectionFields().focusAt(0)
			return w, cmd
		}
		return w, nil
	case key.Matches(km, w.keys.Up):
		cmd := g.focusAt(g.focus - 1)
		return w, cmd
	case key.Matches(km, w.keys.Down):
		cmd := g.focusAt(g.focus + 1)
		return w, cmd
	case key.Matches(km, w.keys.Tab):
		g.fields[g.focus].Complete()
		return w, nil
	case key.Matches(km, w.keys.Select):
		if g.fields[g.focus].Validate() != nil {
			return w, nil
		}
		if g.focus < len(g.fields)-1 {
			cmd := g.focusAt(g.focus + 1)
			return w, cmd
		}
		if bad := g.validate(); bad >= 0 {
			cmd := g.focusAt(bad)
			return w, cmd
		}
		g.blur()
		return next(w)
	}
	cmd := g.update(msg)
	return w, cmd
}

func afterConnection(w ConfigWizard) (ConfigWizard, tea.Cmd) {
	if w.check == nil || w.selectedBackend() != crmingest.BackendPostgres {
		w.step = stepDirs
		cmd := w.dirs.focusAt(0)
		return w, cmd
	}
	w.step = stepCheck
	cmd := w.startCheck()
	return w, cmd
}

func (w *ConfigWizard) startCheck() tea.Cmd {
	w.spinner = components.NewSpinner("Connecting to PostgreSQL...")
	cfg := w.build()
	check := w.check
	return tea.Batch(w.spinner.Start(), func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
		defer cancel()
		if err := check(ctx, &cfg); err != nil {
			return components.CheckDoneMsg{Err: err}
		}
		return components.CheckDoneMsg{Result: "Connected to " + cfg.Connection.Host}
	})
}

func (w ConfigWizard) updateCheck(msg tea.Msg) (tea.Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		w.spinner, cmd = w.spinner.Update(msg)
		return w, cmd
	}
	if !w.spinner.Done() {
		return w, nil
	}
	switch {
	case key.Matches(km, w.keys.Select):
		w.step = stepDirs
		cmd := w.dirs.focusAt(0)
		return w, cmd
	case key.Matches(km, w.keys.Back):
		w.step = stepConnection
		cmd := w.postgres.focusAt(0)
		return w, cmd
	case km.String() == "r":
		cmd := w.startCheck()
		return w, cmd
	}
	return w, nil
}

func (w ConfigWizard) updateReview(msg tea.Msg) (tea.Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return w, nil
	}
	switch {
	case key.Matches(km, w.keys.Select):
		w.result.Config = w.build()
		w.step = stepDone
		return w, tea.Quit
	case key.Matches(km, w.keys.Back):
		w.step = stepDirs
		cmd := w.dirs.focusAt(0)
		return w, cmd
	}
	return w, nil
}

func dirFields(w *ConfigWizard) *fieldGroup { return &w.dirs }

func (w *ConfigWizard) connectionFields() *fieldGroup {
	if w.selectedBackend() == crmingest.BackendSQLite {
		return &w.sqlite
	}
	return &w.postgres
}

func (w ConfigWizard) selectedBackend() crmingest.Backend {
	b, err := crmingest.ParseBackend(w.backend.Value())
	if err != nil {
		return crmingest.BackendPostgres
	}
	return b
}

// build merges the collected fields into a copy of the starting config.
// Settings the wizard does not ask about (aliases, clean, ingest, auth) are kept.
func (w ConfigWizard) build() config.ProjectConfig {
	cfg := w.base
	cfg.Backend = string(w.selectedBackend())

	if cfg.Backend == string(crmingest.BackendSQLite) {
		cfg.SQLite.Path = w.sqlite.value("path")
	} else {
		cfg.SQLite = config.SQLiteConfig{}
		cfg.Connection.Host = w.postgres.value("host")
		cfg.Connection.Port, _ = strconv.Atoi(w.postgres.value("port"))
		cfg.Connection.Username = w.postgres.value("username")
		cfg.Connection.Database = w.postgres.value("database")
		cfg.Connection.SSLMode = w.postgres.value("sslmode")
	}

	cfg.BaseDir = w.dirs.value("base_dir")
	cfg.LogDir = w.dirs.value("log_dir")
	cfg.Timeout = w.dirs.value("timeout")
	return cfg
}

func (w ConfigWizard) View() string {
	var b strings.Builder
	b.WriteString(tui.TitleStyle.Render("crmingest - project configuration"))
	b.WriteString("\n")

	switch w.step {
	case stepBackend:
		b.WriteString(w.backend.View())
		b.WriteString(tui.HelpStyle.Render(w.keys.HelpText()))
	case stepConnection:
		b.WriteString(w.connectionFields().view())
		b.WriteString(tui.HelpStyle.Render(w.keys.InputHelpText()))
	case stepCheck:
		b.WriteString(w.spinner.View())
		b.WriteString("\n")
		if w.spinner.Done() {
			b.WriteString(tui.HelpStyle.Render("enter continue • r retry • esc edit connection"))
		}
	case stepDirs:
		b.WriteString(w.dirs.view())
		b.WriteString(tui.HelpStyle.Render(w.keys.InputHelpText()))
	case stepReview:
		b.WriteString(w.viewReview())
	}
	return b.String()
}

func (w ConfigWizard) viewReview() string {
	var b strings.Builder
	b.WriteString(tui.SubtitleStyle.Render("Review " + config.ConfigFileName))
	b.WriteString("\n")

	cfg := w.build()
	data, err := config.Marshal(&cfg)
	if err != nil {
		b.WriteString(tui.ErrorStyle.Render(err.Error()))
	} else {
		b.WriteString(tui.BoxStyle.Render(strings.TrimRight(string(data), "\n")))
	}
	b.WriteString("\n")
	b.WriteString(tui.HelpStyle.Render("enter save • esc back • ctrl+c quit"))
	return b.String()
}

// Result returns the wizard outcome once the program has exited.
func (w ConfigWizard) Result() ConfigResult {
	return w.result
}

// RunConfigWizard runs the wizard in the terminal.
func RunConfigWizard(base *config.ProjectConfig, opts ...ConfigOption) (ConfigResult, error) {
	final, err := tui.RunProgram(NewConfigWizard(base, opts...))
	if err != nil {
		return ConfigResult{Cancelled: true}, err
	}
	return final.(ConfigWizard).Result(), nil
}

func validatePort(v string) error {
	p, err := strconv.Atoi(v)
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("port must be a number between 1 and 65535")
	}
	return nil
}

var sslModes = []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}

func validateSSLMode(v string) error {
	for _, m := range sslModes {
		if v == m {
			return nil
		}
	}
	return fmt.Errorf("sslmode must be one of %s", strings.Join(sslModes, ", "))
}

func validateTimeout(v string) error {
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fmt.Errorf("timeout must be a positive duration such as 10m or 1h")
	}
	return nil
}

func or(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
