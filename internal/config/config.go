package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vvka-141/crmingest/pkg/crmingest"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

type ConnectionConfig struct {
	Host           string `yaml:"host,omitempty"`
	Port           int    `yaml:"port,omitempty"`
	Username       string `yaml:"username,omitempty"`
	Database       string `yaml:"database,omitempty"`
	SSLMode        string `yaml:"sslmode,omitempty"`
	SSLCert        string `yaml:"sslcert,omitempty"`
	SSLKey         string `yaml:"sslkey,omitempty"`
	SSLRootCert    string `yaml:"sslrootcert,omitempty"`
	AuthMethod     string `yaml:"auth_method,omitempty"`
	AzureTenantID  string `yaml:"azure_tenant_id,omitempty"`
	AzureClientID  string `yaml:"azure_client_id,omitempty"`
	AWSRegion      string `yaml:"aws_region,omitempty"`
	GoogleInstance string `yaml:"google_instance,omitempty"`
}

type SQLiteConfig struct {
	Path string `yaml:"path,omitempty"`
}

// IngestConfig holds the run parameters that change month to month.
type IngestConfig struct {
	Year          int    `yaml:"year,omitempty"`
	Month         int    `yaml:"month,omitempty"`
	IngestionDate string `yaml:"ingestion_date,omitempty"`
}

type CleanConfig struct {
	BadChars *string `yaml:"bad_chars,omitempty"`
}

type ProjectConfig struct {
	Backend    string           `yaml:"backend,omitempty"`
	BaseDir    string           `yaml:"base_dir,omitempty"`
	LogDir     string           `yaml:"log_dir,omitempty"`
	Timeout    string           `yaml:"timeout,omitempty"`
	Connection ConnectionConfig `yaml:"connection,omitempty"`
	SQLite     SQLiteConfig     `yaml:"sqlite,omitempty"`
	Ingest     IngestConfig     `yaml:"ingest,omitempty"`
	Clean      CleanConfig      `yaml:"clean,omitempty"`

	// Aliases maps entity name to extra source-header -> column renames.
	Aliases map[string]map[string]string `yaml:"aliases,omitempty"`
}

const ConfigFileName = "crmingest.yaml"

const (
	DefaultLogDir     = "logs"
	DefaultSQLitePath = "crm.db"
)

// Load reads crmingest.yaml from dir.
func Load(dir string) (*ProjectConfig, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads a config file from an explicit path.
func LoadFile(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %v: %w", path, err, crmingest.ErrInvalidConfig)
	}
	return &cfg, nil
}

// Marshal renders the config as YAML.
func Marshal(cfg *ProjectConfig) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// Save writes cfg to path. An existing file is never overwritten.
func Save(path string, cfg *ProjectConfig) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%s already exists: %w", path, crmingest.ErrInvalidConfig)
		}
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// TimeoutDuration parses the timeout field. Empty means zero.
func (c *ProjectConfig) TimeoutDuration() (time.Duration, error) {
	if c == nil || c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("timeout %q: %v: %w", c.Timeout, err, crmingest.ErrInvalidConfig)
	}
	return d, nil
}

// IngestionDate parses ingest.ingestion_date (YYYY-MM-DD). Empty yields the zero time.
func (c *ProjectConfig) IngestionDate() (time.Time, error) {
	if c == nil || c.Ingest.IngestionDate == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, c.Ingest.IngestionDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("ingestion_date %q: expected YYYY-MM-DD: %w", c.Ingest.IngestionDate, crmingest.ErrInvalidConfig)
	}
	return t, nil
}

// EntityAliases returns the aliases configured for one entity, validating entity names.
func (c *ProjectConfig) EntityAliases() (map[crmingest.Entity]map[string]string, error) {
	if c == nil || len(c.Aliases) == 0 {
		return nil, nil
	}
	out := make(map[crmingest.Entity]map[string]string, len(c.Aliases))
	for name, m := range c.Aliases {
		e, err := crmingest.ParseEntity(name)
		if err != nil {
			return nil, fmt.Errorf("aliases: %w", err)
		}
		if out[e] == nil {
			out[e] = make(map[string]string, len(m))
		}
		for from, to := range m {
			out[e][from] = to
		}
	}
	return out, nil
}
