package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/vvka-141/crmingest/internal/config"
	"github.com/vvka-141/crmingest/internal/logging"
	"github.com/vvka-141/crmingest/pkg/crmingest"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func showConfig(t *testing.T, args ...string) config.ProjectConfig {
	t.Helper()
	stdout, stderr, err := executeCommand(t, append([]string{"config", "show"}, args...)...)
	require.NoError(t, err, stderr)
	var cfg config.ProjectConfig
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &cfg))
	return cfg
}

func TestConfigShow_Defaults(t *testing.T) {
	isolate(t)
	cfg := showConfig(t)

	assert.Equal(t, "postgres", cfg.Backend)
	assert.Equal(t, ".", cfg.BaseDir)
	assert.Equal(t, "logs", cfg.LogDir)
	assert.Equal(t, "10m0s", cfg.Timeout)
	assert.Equal(t, "localhost", cfg.Connection.Host)
	assert.Equal(t, 5432, cfg.Connection.Port)
	assert.Equal(t, "crm", cfg.Connection.Database)
	assert.Equal(t, "prefer", cfg.Connection.SSLMode)
}

func TestConfigShow_Precedence(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "project", config.ConfigFileName)
	writeConfig(t, path, `
backend: postgres
base_dir: data-root
timeout: 5m
connection:
  host: yaml-host
  port: 6000
  database: yaml_db
  sslcert: client.crt
sqlite:
  path: store/crm.db
`)

	t.Run("yaml over defaults, paths relative to the file", func(t *testing.T) {
		cfg := showConfig(t, "--config", path)
		assert.Equal(t, filepath.Join(dir, "project", "data-root"), cfg.BaseDir)
		assert.Equal(t, filepath.Join(dir, "project", "data-root", "logs"), cfg.LogDir)
		assert.Equal(t, "5m0s", cfg.Timeout)
		assert.Equal(t, "yaml-host", cfg.Connection.Host)
		assert.Equal(t, 6000, cfg.Connection.Port)
		assert.Equal(t, "client.crt", cfg.Connection.SSLCert)
	})

	t.Run("environment over yaml", func(t *testing.T) {
		t.Setenv("PGHOST", "env-host")
		t.Setenv(BackendEnv, "sqlite")
		cfg := showConfig(t, "--config", path)
		assert.Equal(t, "sqlite", cfg.Backend)
		assert.Equal(t, filepath.Join(dir, "project", "store", "crm.db"), cfg.SQLite.Path)

		cfg = showConfig(t, "--config", path, "--backend", "postgres")
		assert.Equal(t, "env-host", cfg.Connection.Host)
	})

	t.Run("flags over environment", func(t *testing.T) {
		t.Setenv("PGHOST", "env-host")
		cfg := showConfig(t, "--config", path, "-h", "flag-host", "-d", "flag_db", "--timeout", "30s", "--base-dir", "elsewhere")
		assert.Equal(t, "flag-host", cfg.Connection.Host)
		assert.Equal(t, "flag_db", cfg.Connection.Database)
		assert.Equal(t, "30s", cfg.Timeout)
		assert.Equal(t, "elsewhere", cfg.BaseDir)
	})

	t.Run("cloud flag selects auth method", func(t *testing.T) {
		cfg := showConfig(t, "--config", path, "--aws", "--aws-region", "eu-west-1")
		assert.Equal(t, "aws", cfg.Connection.AuthMethod)
		assert.Equal(t, "eu-west-1", cfg.Connection.AWSRegion)
	})
}

func TestConfigShow_Errors(t *testing.T) {
	dir := isolate(t)

	_, _, err := executeCommand(t, "config", "show", "--config", filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, crmingest.ErrInvalidConfig)

	bad := filepath.Join(dir, "bad.yaml")
	writeConfig(t, bad, "timeout: soon\n")
	_, _, err = executeCommand(t, "config", "show", "--config", bad)
	assert.ErrorIs(t, err, crmingest.ErrInvalidConfig)

	_, _, err = executeCommand(t, "config", "show", "--connection", "postgresql://a@b/c", "-h", "other")
	assert.ErrorIs(t, err, crmingest.ErrInvalidConfig)
}

func TestConfigInit_FromFlags(t *testing.T) {
	dir := isolate(t)
	// An unrelated config in the working directory must not shape the new file.
	writeConfig(t, filepath.Join(dir, config.ConfigFileName), "connection:\n  host: old-host\n")

	_, stderr, err := executeCommand(t, "config", "init", "new", "-h", "db.internal", "-U", "loader", "-d", "crm_prod")
	require.NoError(t, err, stderr)
	assert.Contains(t, stderr, "Configuration saved")

	cfg, err := config.Load(filepath.Join(dir, "new"))
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Backend)
	assert.Equal(t, ".", cfg.BaseDir)
	assert.Equal(t, "db.internal", cfg.Connection.Host)
	assert.Equal(t, "loader", cfg.Connection.Username)
	assert.Equal(t, "crm_prod", cfg.Connection.Database)

	_, _, err = executeCommand(t, "config", "init", "new")
	assert.ErrorIs(t, err, crmingest.ErrInvalidConfig)
}

func TestConfigInit_SQLite(t *testing.T) {
	dir := isolate(t)
	_, stderr, err := executeCommand(t, "config", "init", "--backend", "sqlite")
	require.NoError(t, err, stderr)

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Backend)
	assert.Equal(t, config.DefaultSQLitePath, cfg.SQLite.Path)
	assert.Empty(t, cfg.Connection.Host)
}

func TestBuildRunConfig(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 9, 26, 0, time.Local)
	base := func(project *config.ProjectConfig) *settings {
		return &settings{
			project: project,
			baseDir: "/crm",
			logDir:  "/crm/logs",
			timeout: time.Minute,
			logger:  logging.NewNullLogger(),
		}
	}

	t.Run("defaults", func(t *testing.T) {
		cfg, err := buildRunConfig(base(&config.ProjectConfig{}), ingestOptions{month: 2}, now)
		require.NoError(t, err)
		assert.Equal(t, 2026, cfg.Year)
		assert.Equal(t, 2, cfg.Month)
		assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), cfg.IngestionDate)
		assert.Equal(t, "/crm", cfg.BaseDir)
		assert.Equal(t, "/crm/logs", cfg.LogDir)
		assert.Equal(t, time.Minute, cfg.Timeout)
		assert.Empty(t, cfg.Entities)
	})

	t.Run("config file fills gaps", func(t *testing.T) {
		project := &config.ProjectConfig{Ingest: config.IngestConfig{Year: 2025, Month: 7, IngestionDate: "2025-08-26"}}
		cfg, err := buildRunConfig(base(project), ingestOptions{}, now)
		require.NoError(t, err)
		assert.Equal(t, 2025, cfg.Year)
		assert.Equal(t, 7, cfg.Month)
		assert.Equal(t, "2025-08-26", cfg.IngestionDate.Format(time.DateOnly))
	})

	t.Run("flags win", func(t *testing.T) {
		project := &config.ProjectConfig{Ingest: config.IngestConfig{Year: 2025, Month: 7, IngestionDate: "2025-08-26"}}
		opts := ingestOptions{month: 8, year: 2024, ingestionDate: "2024-09-01", only: []string{"invoices"}, dryRun: true, atomic: true}
		cfg, err := buildRunConfig(base(project), opts, now)
		require.NoError(t, err)
		assert.Equal(t, 2024, cfg.Year)
		assert.Equal(t, 8, cfg.Month)
		assert.Equal(t, "2024-09-01", cfg.IngestionDate.Format(time.DateOnly))
		assert.Equal(t, []crmingest.Entity{crmingest.EntityInvoices}, cfg.Entities)
		assert.True(t, cfg.DryRun)
		assert.True(t, cfg.Atomic)
	})

	t.Run("invalid", func(t *testing.T) {
		for _, opts := range []ingestOptions{
			{},
			{month: 13},
			{month: 1, year: 12},
			{month: 1, ingestionDate: "yesterday"},
		} {
			_, err := buildRunConfig(base(&config.ProjectConfig{}), opts, now)
			assert.ErrorIs(t, err, crmingest.ErrInvalidConfig, "%+v", opts)
		}
	})
}

func TestResolveAliases(t *testing.T) {
	s := &settings{project: &config.ProjectConfig{Aliases: map[string]map[string]string{
		"estimates": {"Sales tax": "tax", "Net": "subtotal"},
	}}}

	got, err := resolveAliases(s, []string{"estimates:Net=total", "invoices:Paid=payment_received_less_refunds"})
	require.NoError(t, err)
	assert.Equal(t, map[crmingest.Entity]map[string]string{
		crmingest.EntityEstimates: {"Sales tax": "tax", "Net": "total"},
		crmingest.EntityInvoices:  {"Paid": "payment_received_less_refunds"},
	}, got)

	s.project.Aliases = map[string]map[string]string{"payments": {"a": "b"}}
	_, err = resolveAliases(s, nil)
	assert.ErrorIs(t, err, crmingest.ErrInvalidConfig)
}
