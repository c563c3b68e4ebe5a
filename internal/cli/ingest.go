package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vvka-141/crmingest/internal/ingest"
	"github.com/vvka-141/crmingest/internal/params"
	"github.com/vvka-141/crmingest/internal/source"
	"github.com/vvka-141/crmingest/internal/tui"
	"github.com/vvka-141/crmingest/pkg/crmingest"
)

type ingestOptions struct {
	month         int
	year          int
	ingestionDate string
	only          []string
	dryRun        bool
	atomic        bool
	aliases       []string
}

var ingestFlags ingestOptions

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load one month of clients, estimates and invoices",
	Long: `Loads the monthly CRM exports into the database in foreign-key order:

  1. clients    data/clients/<year>/Clients.csv
  2. estimates  data/estimates/<year>/<year>-<month>.csv
  3. invoices   data/invoices/<year>/<year>-<month>.csv (tab-separated)

Names, emails and addresses are cleaned before loading. Every row is stamped
with the ingestion date. Each step commits on its own; use --atomic to commit
all steps together. Re-running a month overwrites rows by document number
instead of duplicating them.

Per-entity logs go to <log_dir>/<entity>.log and a JSON run manifest to
<log_dir>/runs/.

Examples:
  crmingest ingest --month 7
  crmingest ingest --month 7 --year 2025 --ingestion-date 2025-08-26
  crmingest ingest --month 7 --only estimates,invoices --dry-run
  crmingest ingest --month 7 --backend sqlite --alias "estimates:Sales tax=tax"`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	f := ingestCmd.Flags()
	f.IntVar(&ingestFlags.month, "month", 0, "Month to ingest, 1-12 (default: ingest.month from crmingest.yaml)")
	f.IntVar(&ingestFlags.year, "year", 0, "Year of the monthly files (default: ingest.year from crmingest.yaml, else the current year)")
	f.StringVar(&ingestFlags.ingestionDate, "ingestion-date", "", "Date stamped on every row, YYYY-MM-DD (default: today)")
	f.StringSliceVar(&ingestFlags.only, "only", nil, "Run only these steps: clients, estimates, invoices (load order is kept)")
	f.BoolVar(&ingestFlags.dryRun, "dry-run", false, "Read, clean and validate everything, then roll back")
	f.BoolVar(&ingestFlags.atomic, "atomic", false, "Commit all steps in one transaction")
	f.StringArrayVar(&ingestFlags.aliases, "alias", nil, `Extra header mapping "entity:Header=column" (repeatable)`)

	_ = ingestCmd.RegisterFlagCompletionFunc("only", completeEntities)
}

// buildRunConfig merges ingest flags with crmingest.yaml.
func buildRunConfig(s *settings, opts ingestOptions, now time.Time) (crmingest.RunConfig, error) {
	cfg := crmingest.RunConfig{
		BaseDir: s.baseDir,
		LogDir:  s.logDir,
		DryRun:  opts.dryRun,
		Atomic:  opts.atomic,
		Timeout: s.timeout,
		Verbose: s.verbose,
	}

	cfg.Month = opts.month
	if cfg.Month == 0 {
		cfg.Month = s.project.Ingest.Month
	}
	if cfg.Month == 0 {
		return cfg, fmt.Errorf("month is required: pass --month or set ingest.month in crmingest.yaml: %w", crmingest.ErrInvalidConfig)
	}

	cfg.Year = opts.year
	if cfg.Year == 0 {
		cfg.Year = s.project.Ingest.Year
	}
	if cfg.Year == 0 {
		cfg.Year = now.Year()
	}

	var err error
	if opts.ingestionDate != "" {
		cfg.IngestionDate, err = parseDate("ingestion-date", opts.ingestionDate)
	} else {
		cfg.IngestionDate, err = s.project.IngestionDate()
	}
	if err != nil {
		return cfg, err
	}
	if cfg.IngestionDate.IsZero() {
		y, m, d := now.Date()
		cfg.IngestionDate = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	cfg.Entities, err = parseEntities(opts.only)
	if err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// resolveAliases merges aliases from crmingest.yaml with --alias flags; flags win.
func resolveAliases(s *settings, flags []string) (map[crmingest.Entity]map[string]string, error) {
	fromConfig, err := s.project.EntityAliases()
	if err != nil {
		return nil, err
	}
	fromFlags, err := params.ParseAliases(flags)
	if err != nil {
		return nil, fmt.Errorf("--alias: %w", err)
	}
	return params.MergeAliases(fromConfig, fromFlags), nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	s, err := resolveSettings(cmd)
	if err != nil {
		return err
	}
	runConfig, err := buildRunConfig(s, ingestFlags, time.Now())
	if err != nil {
		return err
	}
	aliases, err := resolveAliases(s, ingestFlags.aliases)
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
	s.logger.Verbose("Ingesting into %s (%s)", target, st.Backend())

	logs := s.fileLogs()
	defer logs.Close()

	svc := ingest.NewService(st, source.NewLayout(s.baseDir), s.logger,
		ingest.WithCleaner(s.cleaner()),
		ingest.WithAliases(aliases),
		ingest.WithEntityLoggers(logs.For),
	)

	report, runErr := svc.Run(ctx, runConfig)
	if report != nil {
		if err := tui.RenderReport(cmd.ErrOrStderr(), report, tui.StyledStderr()); err != nil {
			s.logger.Warn("failed to print run summary: %v", err)
		}
	}
	if runErr != nil {
		return fmt.Errorf("ingest %04d-%02d: %w", runConfig.Year, runConfig.Month, runErr)
	}
	return nil
}
