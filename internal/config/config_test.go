package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/crmingest/pkg/crmingest"
)

func TestLoad_AllFields(t *testing.T) {
	dir := t.TempDir()
	content := `backend: sqlite
base_dir: /srv/crm
log_dir: /var/log/crm
timeout: 15m
connection:
  host: myhost
  port: 5433
  username: myuser
  database: mydb
  sslmode: require
  sslcert: /path/client.crt
  sslkey: /path/client.key
  sslrootcert: /path/ca.crt
  auth_method: aws
  aws_region: eu-west-1
sqlite:
  path: local.db
ingest:
  year: 2025
  month: 7
  ingestion_date: "2025-08-26"
clean:
  bad_chars: "%;"
aliases:
  estimates:
    "Sales tax": tax
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "sqlite", cfg.Backend)
	assert.Equal(t, "/srv/crm", cfg.BaseDir)
	assert.Equal(t, "/var/log/crm", cfg.LogDir)
	assert.Equal(t, "myhost", cfg.Connection.Host)
	assert.Equal(t, 5433, cfg.Connection.Port)
	assert.Equal(t, "myuser", cfg.Connection.Username)
	assert.Equal(t, "mydb", cfg.Connection.Database)
	assert.Equal(t, "require", cfg.Connection.SSLMode)
	assert.Equal(t, "/path/client.crt", cfg.Connection.SSLCert)
	assert.Equal(t, "/path/client.key", cfg.Connection.SSLKey)
	assert.Equal(t, "/path/ca.crt", cfg.Connection.SSLRootCert)
	assert.Equal(t, "aws", cfg.Connection.AuthMethod)
	assert.Equal(t, "eu-west-1", cfg.Connection.AWSRegion)
	assert.Equal(t, "local.db", cfg.SQLite.Path)
	assert.Equal(t, 2025, cfg.Ingest.Year)
	assert.Equal(t, 7, cfg.Ingest.Month)
	require.NotNil(t, cfg.Clean.BadChars)
	assert.Equal(t, "%;", *cfg.Clean.BadChars)

	d, err := cfg.TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, d)

	date, err := cfg.IngestionDate()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 8, 26, 0, 0, 0, 0, time.UTC), date)

	aliases, err := cfg.EntityAliases()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Sales tax": "tax"}, aliases[crmingest.EntityEstimates])
}

func TestLoad_MinimalYAML(t *testing.T) {
	dir := t.TempDir()
	content := `ingest:
  month: 3
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "", cfg.Connection.Host)
	assert.Equal(t, 0, cfg.Connection.Port)
	assert.Equal(t, 3, cfg.Ingest.Month)
	assert.Nil(t, cfg.Clean.BadChars)

	d, err := cfg.TimeoutDuration()
	require.NoError(t, err)
	assert.Zero(t, d)
	date, err := cfg.IngestionDate()
	require.NoError(t, err)
	assert.True(t, date.IsZero())
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := Load(t.TempDir())
	assert.True(t, errors.Is(err, ErrConfigNotFound), "expected ErrConfigNotFound, got: %v", err)
	assert.Nil(t, cfg)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("{{invalid"), 0644))

	cfg, err := Load(dir)
	assert.ErrorIs(t, err, crmingest.ErrInvalidConfig)
	assert.Nil(t, cfg)
}

func TestLoad_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(""), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, ProjectConfig{}, *cfg)
}

func TestProjectConfig_InvalidValues(t *testing.T) {
	cfg := &ProjectConfig{
		Timeout: "soon",
		Ingest:  IngestConfig{IngestionDate: "26/08/2025"},
		Aliases: map[string]map[string]string{"payments": {"a": "b"}},
	}

	_, err := cfg.TimeoutDuration()
	assert.ErrorIs(t, err, crmingest.ErrInvalidConfig)
	_, err = cfg.IngestionDate()
	assert.ErrorIs(t, err, crmingest.ErrInvalidConfig)
	_, err = cfg.EntityAliases()
	assert.ErrorIs(t, err, crmingest.ErrInvalidConfig)
}

func TestSave_RoundTripAndNoOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	want := &ProjectConfig{
		Backend:    "postgres",
		LogDir:     DefaultLogDir,
		Connection: ConnectionConfig{Host: "db", Port: 5432, Database: "crm"},
		Ingest:     IngestConfig{Year: 2025, Month: 7},
	}

	require.NoError(t, Save(path, want))

	got, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	err = Save(path, want)
	assert.ErrorIs(t, err, crmingest.ErrInvalidConfig)
}
