package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vvka-141/crmingest/internal/tui"
	"github.com/vvka-141/crmingest/internal/ui"
	"github.com/vvka-141/crmingest/pkg/crmingest"
)

var schemaResetForce bool

// newApprover is replaced in tests.
var newApprover = func(force, verbose bool) crmingest.Approver {
	if force {
		return ui.NewForcedApprover(verbose)
	}
	return ui.NewInteractiveApprover(verbose)
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create or reset the CRM tables",
}

var schemaInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the CRM tables if they do not exist",
	Long: `Creates clients, dup_name_clients, estimates, invoices and ingest_runs
if they do not exist. ingest does this on its own; use this command to
prepare an empty database ahead of time.`,
	Args: cobra.NoArgs,
	RunE: runSchemaInit,
}

var schemaResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop and recreate every CRM table",
	Long: `Drops and recreates every CRM table. All clients, estimates, invoices
and run history are lost.

You are asked to type the database name (the file path for SQLite) to
confirm. With --force a short countdown is shown instead, which can be
interrupted with Ctrl+C. Non-interactive sessions must pass --force.

Examples:
  crmingest schema reset
  crmingest schema reset --backend sqlite --force`,
	Args: cobra.NoArgs,
	RunE: runSchemaReset,
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.AddCommand(schemaInitCmd, schemaResetCmd)

	schemaResetCmd.Flags().BoolVar(&schemaResetForce, "force", false, "Skip the typed confirmation (a countdown is shown instead)")
}

func runSchemaInit(cmd *cobra.Command, args []string) error {
	s, err := resolveSettings(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(cmd)
	defer cancel()

	st, target, err := s.openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("create tables in %s: %w", target, err)
	}
	s.logger.Info("✓ CRM tables ready in %s (%s)", target, st.Backend())
	return nil
}

func runSchemaReset(cmd *cobra.Command, args []string) error {
	s, err := resolveSettings(cmd)
	if err != nil {
		return err
	}
	if !schemaResetForce && !tui.IsInteractive() {
		return fmt.Errorf("schema reset needs a typed confirmation; pass --force in non-interactive sessions: %w", crmingest.ErrApprovalDenied)
	}

	ctx, cancel := s.withTimeout(cmd)
	defer cancel()

	st, target, err := s.openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	approved, err := newApprover(schemaResetForce, s.verbose).RequestApproval(ctx, target)
	if err != nil {
		return fmt.Errorf("approval for %s: %w", target, err)
	}
	if !approved {
		return fmt.Errorf("schema reset of %s: %w", target, crmingest.ErrApprovalDenied)
	}

	if err := st.DropSchema(ctx); err != nil {
		return fmt.Errorf("drop tables in %s: %w", target, err)
	}
	if err := st.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("recreate tables in %s: %w", target, err)
	}
	s.logger.Info("✓ CRM tables recreated in %s", target)
	return nil
}
