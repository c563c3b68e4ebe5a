package ingest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/vvka-141/crmingest/internal/clean"
	"github.com/vvka-141/crmingest/internal/logging"
	"github.com/vvka-141/crmingest/internal/model"
	"github.com/vvka-141/crmingest/internal/retry"
	"github.com/vvka-141/crmingest/internal/source"
	"github.com/vvka-141/crmingest/internal/store"
	"github.com/vvka-141/crmingest/pkg/crmingest"
)

// recordTimeout bounds writing the run record after the run context is done.
const recordTimeout = 30 * time.Second

// Service runs monthly ingests against a store.
// Not safe for concurrent Run calls on the same instance.
type Service struct {
	store     store.Store
	layout    source.Layout
	logger    crmingest.Logger
	entityLog func(name string) crmingest.Logger
	cleaner   *clean.Cleaner
	aliases   map[crmingest.Entity]map[string]string
	executor  *retry.Executor
	now       func() time.Time
	newID     func() uuid.UUID

	runID uuid.UUID
}

// Option customizes a Service.
type Option func(*Service)

// WithCleaner replaces the default column cleaner.
func WithCleaner(c *clean.Cleaner) Option {
	return func(s *Service) { s.cleaner = c }
}

// WithAliases adds header aliases per entity on top of the built-in mapping.
func WithAliases(aliases map[crmingest.Entity]map[string]string) Option {
	return func(s *Service) { s.aliases = aliases }
}

// WithEntityLoggers routes each entity's messages to its own logger
// (for example one log file per entity).
func WithEntityLoggers(fn func(name string) crmingest.Logger) Option {
	return func(s *Service) { s.entityLog = fn }
}

// WithExecutor replaces the retry policy used around each transaction.
func WithExecutor(e *retry.Executor) Option {
	return func(s *Service) { s.executor = e }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDs replaces the run id generator, for tests.
func WithIDs(next func() uuid.UUID) Option {
	return func(s *Service) { s.newID = next }
}

// NewService panics on nil dependencies.
func NewService(st store.Store, layout source.Layout, logger crmingest.Logger, opts ...Option) *Service {
	if st == nil {
		panic("store cannot be nil")
	}
	if layout.FS == nil {
		panic("layout filesystem cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	s := &Service{
		store:   st,
		layout:  layout,
		logger:  logger,
		cleaner: clean.Default(),
		now:     time.Now,
		newID:   uuid.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.executor == nil {
		s.executor = retry.NewDefaultExecutor()
	}
	s.executor = s.executor.WithOnRetry(func(attempt int, err error, delay time.Duration) {
		s.logger.Warn("transient database error (attempt %d), retrying in %v: %v", attempt, delay.Round(time.Millisecond), err)
	})
	return s
}

func (s *Service) logFor(e crmingest.Entity) crmingest.Logger {
	if s.entityLog == nil {
		return s.logger
	}
	l := s.entityLog(e.String())
	if s.runID == uuid.Nil {
		return l
	}
	return logging.WithContext(l, "run_id", s.runID.String())
}

func (s *Service) loader(e crmingest.Entity) Loader {
	switch e {
	case crmingest.EntityClients:
		return NewClientLoader(s.logFor(e))
	case crmingest.EntityEstimates:
		return NewEstimateLoader(s.logFor(e))
	default:
		return NewInvoiceLoader(s.logFor(e))
	}
}

// Run prepares, applies and records one monthly ingest.
// The returned Report is non-nil whenever cfg is valid, also on failure.
func (s *Service) Run(ctx context.Context, cfg crmingest.RunConfig) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	report := newReport(s.newID(), cfg, s.now())
	s.runID = report.RunID
	s.logger.Info("ingest %04d-%02d (ingestion date %s), steps: %v", cfg.Year, cfg.Month, report.IngestionDate, report.Steps)

	plan, err := s.Prepare(cfg)
	if err != nil {
		report.finish(s.now(), err)
		if !cfg.DryRun {
			s.finalize(ctx, cfg, report)
		}
		return report, err
	}
	report.addFiles(plan)

	if cfg.DryRun {
		mode, err := s.dryMode(ctx)
		if err == nil {
			err = s.apply(ctx, plan, report, mode)
		}
		report.finish(s.now(), err)
		return report, err
	}

	if err := s.store.EnsureSchema(ctx); err != nil {
		err = fmt.Errorf("%w: %w", crmingest.ErrLoadFailed, err)
		report.finish(s.now(), err)
		s.finalize(ctx, cfg, report)
		return report, err
	}

	applyErr := s.apply(ctx, plan, report, txWrite)
	report.finish(s.now(), applyErr)
	s.finalize(ctx, cfg, report)
	return report, applyErr
}

// finalize records the run and writes its manifest. Failures are logged only.
func (s *Service) finalize(ctx context.Context, cfg crmingest.RunConfig, report *Report) {
	if err := s.record(ctx, report); err != nil {
		s.logger.Error("failed to record run %s: %v", report.RunID, err)
	}
	if cfg.LogDir == "" {
		return
	}
	path, err := WriteManifest(cfg.LogDir, report)
	if err != nil {
		s.logger.Error("failed to write run manifest: %v", err)
		return
	}
	report.ManifestPath = path
	s.logger.Verbose("run manifest written to %s", path)
}

// dryMode picks the dry transaction for the current database. A database
// without the tables is treated as empty and is not created.
func (s *Service) dryMode(ctx context.Context) (txMode, error) {
	ok, err := s.store.HasSchema(ctx)
	if err != nil {
		return txDry, fmt.Errorf("%w: %w", crmingest.ErrLoadFailed, err)
	}
	if !ok {
		s.logger.Verbose("tables do not exist yet, dry run treats the database as empty")
		return txDryEmpty, nil
	}
	return txDry, nil
}

// apply runs the loaders. Each step commits on its own unless the run is
// atomic or a dry run, in which case all steps share one transaction.
func (s *Service) apply(ctx context.Context, p *Plan, report *Report, mode txMode) error {
	if p.Config.Atomic || mode != txWrite {
		var results []StepResult
		err := s.inTx(ctx, mode, func(ctx context.Context, tx store.Tx) error {
			results = results[:0]
			for _, e := range p.Steps {
				start := s.now()
				res, err := s.loader(e).Load(ctx, tx, p)
				res.Duration = s.now().Sub(start)
				results = append(results, res)
				if err != nil {
					return stepError(e, err)
				}
			}
			return nil
		})
		for i := range results {
			results[i].Committed = err == nil && mode == txWrite
		}
		report.Results = append(report.Results, results...)
		return err
	}

	for _, e := range p.Steps {
		var res StepResult
		err := s.inTx(ctx, txWrite, func(ctx context.Context, tx store.Tx) error {
			start := s.now()
			var err error
			res, err = s.loader(e).Load(ctx, tx, p)
			res.Duration = s.now().Sub(start)
			return err
		})
		res.Committed = err == nil
		report.Results = append(report.Results, res)
		if err != nil {
			return stepError(e, err)
		}
	}
	return nil
}

func stepError(e crmingest.Entity, err error) error {
	if errors.Is(err, crmingest.ErrLoadFailed) {
		return err
	}
	return fmt.Errorf("%s step: %w: %w", e, crmingest.ErrLoadFailed, err)
}

// txMode selects how inTx treats the transaction it opens.
type txMode int

const (
	txWrite    txMode = iota
	txDry             // reads hit the store, writes are only counted
	txDryEmpty        // like txDry on a database without tables
)

// inTx runs fn in a transaction with retry on transient errors.
// A dry transaction never writes and is always rolled back.
func (s *Service) inTx(ctx context.Context, mode txMode, fn func(ctx context.Context, tx store.Tx) error) error {
	return s.executor.Execute(ctx, func(ctx context.Context) error {
		tx, err := s.store.Begin(ctx)
		if err != nil {
			return err
		}
		if mode != txWrite {
			tx = newDryTx(tx, mode == txDryEmpty)
		}
		defer func() { _ = tx.Rollback(ctx) }()

		if err := fn(ctx, tx); err != nil {
			return err
		}
		if mode != txWrite {
			return nil
		}
		return tx.Commit(ctx)
	})
}

// record stores the run in ingest_runs. It outlives a cancelled run context.
// Checksums are kept only for files of the steps the run loaded.
func (s *Service) record(ctx context.Context, report *Report) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if err := s.store.EnsureSchema(ctx); err != nil {
		return err
	}

	date, _ := model.ParseDate(report.IngestionDate)
	run := store.Run{
		ID:            report.RunID,
		Year:          report.Year,
		Month:         report.Month,
		IngestionDate: date,
		StartedAt:     report.StartedAt,
		FinishedAt:    report.FinishedAt,
		Status:        report.Status,
		ClientRows:    report.Rows(crmingest.EntityClients),
		EstimateRows:  report.Rows(crmingest.EntityEstimates),
		InvoiceRows:   report.Rows(crmingest.EntityInvoices),
		Checksums:     make(map[string]string, len(report.Files)),
	}
	for _, f := range report.Files {
		if !slices.Contains(report.Steps, f.Entity) {
			continue
		}
		run.Checksums[f.Path] = f.Checksum
	}

	return s.inTx(ctx, txWrite, func(ctx context.Context, tx store.Tx) error {
		return tx.RecordRun(ctx, run)
	})
}
