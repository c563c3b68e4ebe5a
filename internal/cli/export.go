package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vvka-141/crmingest/internal/export"
	"github.com/vvka-141/crmingest/internal/tui"
)

var exportOnly []string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write mailing lists and data-quality reports from the clients table",
	Long: `Writes CSV exports derived from the clients table into data/clients/:

  customers              clients with an invoice and a valid email
  leads                  clients with an estimate, no invoice, and a valid email
  all_clients            every client with a valid email
  clients_without_email  clients with no email address
  email_issues           clients whose email looks malformed
  multiple_emails        clients with more than one address in the email field
  clients_per_month      new clients per join month

Mailing lists are sorted by name and keep the first client per address.
Files are replaced atomically.

Examples:
  crmingest export
  crmingest export --only customers,leads`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringSliceVar(&exportOnly, "only", nil, "Write only these exports: "+strings.Join(export.Names(), ", "))
	_ = exportCmd.RegisterFlagCompletionFunc("only", completeExportNames)
}

func runExport(cmd *cobra.Command, args []string) error {
	s, err := resolveSettings(cmd)
	if err != nil {
		return err
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

	logs := s.fileLogs()
	defer logs.Close()

	results, err := export.New(st, export.Dir(s.baseDir), logs.For("export")).Run(ctx, splitList(exportOnly))
	if err != nil {
		return err
	}
	return tui.RenderExports(cmd.OutOrStdout(), results, tui.IsInteractive())
}
