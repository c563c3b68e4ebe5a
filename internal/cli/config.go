package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vvka-141/crmingest/internal/config"
	"github.com/vvka-141/crmingest/internal/params"
	"github.com/vvka-141/crmingest/internal/tui"
	"github.com/vvka-141/crmingest/internal/tui/wizards"
	"github.com/vvka-141/crmingest/pkg/crmingest"
)

var configNoWizard bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or create crmingest.yaml",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Prints crmingest.yaml as YAML with the global flags and environment
applied (backend, base_dir, sqlite.path, timeout and connection). Passwords
are never printed because they are never stored.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create crmingest.yaml, interactively when run in a terminal",
	Long: `Creates crmingest.yaml in dir (default: current directory).

In a terminal a wizard asks for the backend, the connection (checked
against the server for PostgreSQL) and the directories. Otherwise, or with
--no-wizard, the file is written from the global flags.

An existing crmingest.yaml is never overwritten.

Examples:
  crmingest config init
  crmingest config init ./crm --no-wizard --backend sqlite
  crmingest config init --no-wizard -h db.internal -U loader -d crm`,
	Args:              OptionalDirectory,
	RunE:              runConfigInit,
	ValidArgsFunction: completeDirectories,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configInitCmd)

	configInitCmd.Flags().BoolVar(&configNoWizard, "no-wizard", false, "Write the file from flags without prompting")
}

// effectiveConfig returns the project config with flag and environment overrides applied.
func effectiveConfig(s *settings) (*config.ProjectConfig, error) {
	out := *s.project
	out.Backend = string(s.backend)
	out.BaseDir = s.baseDir
	out.LogDir = s.logDir
	out.Timeout = s.timeout.String()

	if s.backend == crmingest.BackendSQLite {
		out.SQLite.Path = s.sqlitePath
		return &out, nil
	}

	conn, err := resolveConnection(globals.conn, s.project)
	if err != nil {
		return nil, err
	}
	out.Connection = projectConnection(conn, out.Connection)
	return &out, nil
}

// projectConnection copies resolved connection parameters into the YAML shape,
// keeping the settings of keep that have no flag (client certificates).
func projectConnection(conn *crmingest.ConnectionConfig, keep config.ConnectionConfig) config.ConnectionConfig {
	keep.Host = conn.Host
	keep.Port = conn.Port
	keep.Username = conn.Username
	keep.Database = conn.Database
	keep.SSLMode = conn.SSLMode
	keep.AuthMethod = ""
	switch conn.AuthMethod {
	case crmingest.AuthMethodAWSIAM:
		keep.AuthMethod = "aws"
		keep.AWSRegion = conn.AWSRegion
	case crmingest.AuthMethodGoogleIAM:
		keep.AuthMethod = "google"
		keep.GoogleInstance = conn.GoogleInstance
	case crmingest.AuthMethodAzureEntraID:
		keep.AuthMethod = "azure"
		keep.AzureTenantID = conn.AzureTenantID
		keep.AzureClientID = conn.AzureClientID
	}
	return keep
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	s, err := resolveSettings(cmd)
	if err != nil {
		return err
	}
	if s.configPath == "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "# no %s found; showing defaults\n", config.ConfigFileName)
	} else {
		fmt.Fprintf(cmd.ErrOrStderr(), "# %s\n", s.configPath)
	}

	cfg, err := effectiveConfig(s)
	if err != nil {
		return err
	}
	data, err := config.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

// draftConfig is the starting point of config init: flags over defaults.
// Paths stay relative so the file can move with the workspace.
func draftConfig(s *settings) (*config.ProjectConfig, error) {
	draft := &config.ProjectConfig{
		Backend: string(s.backend),
		BaseDir: ".",
		LogDir:  config.DefaultLogDir,
		Timeout: s.timeout.String(),
	}
	if globals.baseDir != "" {
		draft.BaseDir = globals.baseDir
	}

	if s.backend == crmingest.BackendSQLite {
		draft.SQLite.Path = firstNonEmpty(globals.sqlitePath, config.DefaultSQLitePath)
		return draft, nil
	}

	conn, err := resolveConnection(globals.conn, nil)
	if err != nil {
		return nil, err
	}
	draft.Connection = projectConnection(conn, config.ConnectionConfig{})
	return draft, nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}
	configPath := filepath.Join(targetDir, config.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("%s already exists; edit it or remove it first: %w", configPath, crmingest.ErrInvalidConfig)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("check %s: %w", configPath, err)
	}

	// An existing crmingest.yaml elsewhere must not leak into the new file.
	if _, err := params.LoadEnvFiles(globals.envFiles...); err != nil {
		return err
	}
	s, err := settingsFrom(cmd, &config.ProjectConfig{}, "")
	if err != nil {
		return err
	}
	draft, err := draftConfig(s)
	if err != nil {
		return err
	}

	cfg := draft
	if !configNoWizard && tui.IsInteractive() {
		result, err := wizards.RunConfigWizard(draft, wizards.WithConnectionCheck(checkConnection))
		if err != nil {
			return fmt.Errorf("config wizard failed: %w", err)
		}
		if result.Cancelled {
			fmt.Fprintln(cmd.ErrOrStderr(), "Cancelled.")
			return nil
		}
		cfg = &result.Config
	}

	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", targetDir, err)
	}
	if err := config.Save(configPath, cfg); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "✓ Configuration saved to %s\n", configPath)

	if crmingest.Backend(cfg.Backend) == crmingest.BackendPostgres {
		offerSavePgpass(cmd, cfg)
	}
	return nil
}
