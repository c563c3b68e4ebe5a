package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vvka-141/crmingest/internal/config"
	"github.com/vvka-141/crmingest/internal/params"
	"github.com/vvka-141/crmingest/internal/workspace"
	"github.com/vvka-141/crmingest/pkg/crmingest"
)

var initYear int

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create a crmingest workspace",
	Long: `Creates the directory convention crmingest reads from, plus a commented
crmingest.yaml, .env.example and .gitignore:

  crmingest.yaml
  data/clients/<year>/
  data/estimates/<year>/
  data/invoices/<year>/
  logs/old/

Existing data directories are kept. An existing crmingest.yaml is never
overwritten.

Examples:
  crmingest init                       # current directory
  crmingest init ./crm --backend sqlite
  crmingest init ./crm -d crm_prod --year 2024`,
	Args:              OptionalDirectory,
	RunE:              runInit,
	ValidArgsFunction: completeDirectories,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().IntVar(&initYear, "year", 0, "Year of the data directories to create (default: current year)")
}

func runInit(cmd *cobra.Command, args []string) error {
	targetPath := "."
	if len(args) > 0 {
		targetPath = args[0]
	}

	if _, err := params.LoadEnvFiles(globals.envFiles...); err != nil {
		return err
	}
	s, err := settingsFrom(cmd, &config.ProjectConfig{}, "")
	if err != nil {
		return err
	}
	if initYear != 0 && (initYear < 1900 || initYear > 9999) {
		return fmt.Errorf("--year %d out of range: %w", initYear, crmingest.ErrInvalidConfig)
	}

	opts := workspace.Options{
		Backend:  s.backend,
		Database: globals.conn.database,
		Year:     initYear,
		Today:    time.Now(),
	}
	if err := workspace.NewCreator(s.logger).Create(targetPath, opts); err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}

	out := cmd.ErrOrStderr()
	tree, err := workspace.FileTree(targetPath)
	if err != nil {
		fmt.Fprintf(out, "\n✓ Workspace initialized in '%s'\n", targetPath)
	} else {
		fmt.Fprintf(out, "\n✓ Workspace initialized\n\n")
		fmt.Fprintln(out, "Created structure:")
		fmt.Fprint(out, tree)
	}

	fmt.Fprintln(out, "\nNext steps:")
	if targetPath != "." {
		fmt.Fprintf(out, "  cd %s\n", targetPath)
	}
	fmt.Fprintf(out, "  # copy the year's exports into data/, then:\n")
	fmt.Fprintln(out, "  crmingest ingest --month <1-12>")
	fmt.Fprintln(out, "  crmingest export")
	return nil
}
