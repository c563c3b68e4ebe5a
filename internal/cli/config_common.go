package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/vvka-141/crmingest/internal/clean"
	"github.com/vvka-141/crmingest/internal/config"
	"github.com/vvka-141/crmingest/internal/db"
	"github.com/vvka-141/crmingest/internal/logging"
	"github.com/vvka-141/crmingest/internal/params"
	"github.com/vvka-141/crmingest/internal/store"
	"github.com/vvka-141/crmingest/internal/store/postgres"
	"github.com/vvka-141/crmingest/internal/store/sqlite"
	"github.com/vvka-141/crmingest/pkg/crmingest"
)

// BackendEnv selects the storage backend when --backend is not given.
const BackendEnv = "CRMINGEST_BACKEND"

// settings is the configuration every command works from after flags,
// environment and crmingest.yaml are merged.
type settings struct {
	project    *config.ProjectConfig // never nil
	configPath string                // empty when no crmingest.yaml was found
	baseDir    string
	logDir     string
	backend    crmingest.Backend
	sqlitePath string
	timeout    time.Duration
	verbose    bool
	logger     crmingest.Logger
}

// loadProjectConfig loads .env files and crmingest.yaml.
// A missing ./crmingest.yaml is not an error; a missing --config file is.
func loadProjectConfig(configPath string, envFiles []string) (*config.ProjectConfig, string, error) {
	if _, err := params.LoadEnvFiles(envFiles...); err != nil {
		return nil, "", err
	}

	if configPath != "" {
		cfg, err := config.LoadFile(configPath)
		if err != nil {
			if errors.Is(err, config.ErrConfigNotFound) {
				return nil, "", fmt.Errorf("config file %s not found: %w", configPath, crmingest.ErrInvalidConfig)
			}
			return nil, "", fmt.Errorf("failed to load %s: %w", configPath, err)
		}
		return cfg, configPath, nil
	}

	cfg, err := config.Load(".")
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return &config.ProjectConfig{}, "", nil
		}
		return nil, "", fmt.Errorf("failed to load %s: %w", config.ConfigFileName, err)
	}
	return cfg, config.ConfigFileName, nil
}

// resolveSettings merges global flags, environment and crmingest.yaml.
// Relative paths in crmingest.yaml are relative to the file, not the working directory.
func resolveSettings(cmd *cobra.Command) (*settings, error) {
	project, configPath, err := loadProjectConfig(globals.configPath, globals.envFiles)
	if err != nil {
		return nil, err
	}
	return settingsFrom(cmd, project, configPath)
}

// settingsFrom applies global flags and environment on top of an already loaded project config.
func settingsFrom(cmd *cobra.Command, project *config.ProjectConfig, configPath string) (*settings, error) {
	var err error
	verbose := getVerboseFlag(cmd)

	s := &settings{
		project:    project,
		configPath: configPath,
		verbose:    verbose,
		logger:     logging.NewConsoleLoggerTo(cmd.ErrOrStderr(), verbose),
	}

	configDir := "."
	if configPath != "" {
		configDir = filepath.Dir(configPath)
	}

	switch {
	case globals.baseDir != "":
		s.baseDir = globals.baseDir
	case project.BaseDir != "":
		s.baseDir = relativeTo(configDir, project.BaseDir)
	default:
		s.baseDir = configDir
	}

	if project.LogDir != "" {
		s.logDir = relativeTo(s.baseDir, project.LogDir)
	} else {
		s.logDir = filepath.Join(s.baseDir, config.DefaultLogDir)
	}

	s.backend, err = crmingest.ParseBackend(firstNonEmpty(globals.backend, os.Getenv(BackendEnv), project.Backend))
	if err != nil {
		return nil, err
	}

	switch {
	case globals.sqlitePath != "":
		s.sqlitePath = globals.sqlitePath
	case project.SQLite.Path != "":
		s.sqlitePath = relativeTo(configDir, project.SQLite.Path)
	default:
		s.sqlitePath = filepath.Join(s.baseDir, config.DefaultSQLitePath)
	}

	s.timeout, err = resolveEffectiveTimeout(cmd, project, globals.timeout)
	if err != nil {
		return nil, err
	}

	if verbose && configPath != "" {
		s.logger.Verbose("Using %s (base dir %s, backend %s)", configPath, s.baseDir, s.backend)
	}
	return s, nil
}

// resolveEffectiveTimeout returns the effective timeout, preferring crmingest.yaml if the flag wasn't set.
func resolveEffectiveTimeout(cmd *cobra.Command, project *config.ProjectConfig, flagTimeout time.Duration) (time.Duration, error) {
	if project != nil && project.Timeout != "" && !cmd.Flags().Changed("timeout") {
		d, err := project.TimeoutDuration()
		if err != nil {
			return 0, err
		}
		return d, nil
	}
	if flagTimeout < 0 {
		return 0, fmt.Errorf("--timeout cannot be negative: %w", crmingest.ErrInvalidConfig)
	}
	return flagTimeout, nil
}

// withTimeout derives the command context bounded by the effective timeout.
func (s *settings) withTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := commandContext(cmd)
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// cleaner returns the column cleaner configured under clean.bad_chars.
func (s *settings) cleaner() *clean.Cleaner {
	if s.project.Clean.BadChars != nil {
		return clean.New(*s.project.Clean.BadChars)
	}
	return clean.Default()
}

// openStore opens the configured backend. target names the database for
// messages and approval prompts: the file path for SQLite, the database name
// for PostgreSQL.
func (s *settings) openStore(ctx context.Context, cmd *cobra.Command) (store.Store, string, error) {
	switch s.backend {
	case crmingest.BackendSQLite:
		if dir := filepath.Dir(s.sqlitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, "", fmt.Errorf("create %s: %w", dir, err)
			}
		}
		s.logger.Verbose("Opening SQLite database %s", s.sqlitePath)
		st, err := sqlite.New(s.sqlitePath)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %w", crmingest.ErrConnectionFailed, err)
		}
		return st, s.sqlitePath, nil

	case crmingest.BackendPostgres:
		connConfig, err := resolveConnection(globals.conn, s.project)
		if err != nil {
			return nil, "", err
		}
		if s.verbose {
			logConnectionVerbose(cmd.ErrOrStderr(), connConfig)
		}
		connector, err := db.NewConnector(connConfig, s.logger)
		if err != nil {
			return nil, "", err
		}
		pool, err := connector.Connect(ctx)
		if err != nil {
			return nil, "", err
		}
		return postgres.New(pool), connConfig.Database, nil
	}
	return nil, "", fmt.Errorf("%q: %w", s.backend, crmingest.ErrUnsupportedBackend)
}

// fileLogs returns the per-name file loggers under the log directory, tee'd to the console.
func (s *settings) fileLogs() *logging.Set {
	return logging.NewSet(s.logDir, s.logger, s.verbose)
}

func relativeTo(dir, path string) string {
	if filepath.IsAbs(path) || dir == "." || dir == "" {
		return path
	}
	return filepath.Join(dir, path)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
