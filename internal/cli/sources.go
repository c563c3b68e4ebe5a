package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vvka-141/crmingest/internal/ingest"
	"github.com/vvka-141/crmingest/internal/source"
	"github.com/vvka-141/crmingest/internal/tui"
)

var sourcesYear int

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List monthly export files and whether they were ingested",
	Long: `Lists the monthly estimates and invoices files of a year with their
SHA-256 checksum. A file counts as ingested when a successful run loaded
a file with the same checksum.

Output is tab separated when stdout is not a terminal:
  entity  YYYY-MM  path  sha256  ingested

Examples:
  crmingest sources
  crmingest sources --year 2024 | grep false`,
	Args: cobra.NoArgs,
	RunE: runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
	sourcesCmd.Flags().IntVar(&sourcesYear, "year", 0, "Year to list (default: ingest.year from crmingest.yaml, else the current year)")
}

func runSources(cmd *cobra.Command, args []string) error {
	s, err := resolveSettings(cmd)
	if err != nil {
		return err
	}

	year := sourcesYear
	if year == 0 {
		year = s.project.Ingest.Year
	}
	if year == 0 {
		year = time.Now().Year()
	}

	ctx, cancel := s.withTimeout(cmd)
	defer cancel()

	st, _, err := s.openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	statuses, err := ingest.NewService(st, source.NewLayout(s.baseDir), s.logger).Sources(ctx, year)
	if err != nil {
		return err
	}
	return tui.RenderSources(cmd.OutOrStdout(), statuses, tui.IsInteractive())
}
