package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vvka-141/crmingest/pkg/crmingest"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	baseDir    string
	backend    string
	sqlitePath string
	envFiles   []string
	timeout    time.Duration
	conn       connectionFlags
}

var globals globalOptions

var rootCmd = &cobra.Command{
	Use:   "crmingest",
	Short: "Monthly CRM export loader",
	Long: asciiLogo + `

crmingest loads the monthly CRM exports (clients, estimates and invoices)
into PostgreSQL or SQLite in foreign-key order, cleaning names, emails and
addresses on the way, and writes mailing-list exports back out as CSV.

Data directory convention (relative to --base-dir):
  data/clients/<year>/Clients.csv
  data/estimates/<year>/<year>-<month>.csv
  data/invoices/<year>/<year>-<month>.csv     (tab-separated)

Settings resolve as flag > environment > crmingest.yaml > default.

Exit Codes:
  0  - Success
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration or parameters
  11 - Database connection failed
  12 - User denied schema reset
  13 - Writing to the database failed
  14 - Expected export file not found
  15 - Export file could not be parsed`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx as the parent of every command context.
func ExecuteContext(ctx context.Context) error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo(os.Stdout, os.Stderr)
		return nil
	}
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// -h is the host flag, as in psql.
	rootCmd.PersistentFlags().Bool("help", false, "Help for crmingest")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for all commands")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&globals.configPath, "config", "", "Path to crmingest.yaml (default: ./crmingest.yaml when present)")
	pf.StringVar(&globals.baseDir, "base-dir", "", "Root of the data/ directory convention (default: base_dir from crmingest.yaml, else the config directory)")
	pf.StringVar(&globals.backend, "backend", "", "Storage backend: postgres or sqlite (env: CRMINGEST_BACKEND)")
	pf.StringVar(&globals.sqlitePath, "sqlite-path", "", "SQLite database file for --backend sqlite (default: <base-dir>/crm.db)")
	pf.StringArrayVar(&globals.envFiles, "env-file", nil, "Load environment variables from a dotenv file (repeatable; ./.env is always loaded when present)")
	pf.DurationVar(&globals.timeout, "timeout", crmingest.DefaultTimeout, "Timeout for the whole command")

	registerConnectionFlags(rootCmd, &globals.conn)

	_ = rootCmd.RegisterFlagCompletionFunc("backend", completeBackends)
	_ = rootCmd.RegisterFlagCompletionFunc("base-dir", completeDirectories)
}

// getVerboseFlag safely retrieves the verbose flag value
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}

// commandContext returns the command's context, or Background when the
// command is invoked directly rather than through Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
