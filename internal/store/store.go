// Package store defines the persistence contract for the CRM tables.
//
// Two implementations exist: store/postgres (pgx) for the production
// database and store/sqlite (modernc.org/sqlite) for local and offline runs.
// Both create the same five tables:
//
//	clients           one row per customer, keyed by full_name
//	dup_name_clients  export rows discarded by name de-duplication
//	estimates         keyed by estimate_number, FK full_name -> clients
//	invoices          keyed by invoice_number, FK full_name -> clients
//	ingest_runs       one row per ingest run
//
// All writes go through a Tx so an ingest step commits or rolls back as a unit.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vvka-141/crmingest/internal/model"
)

// Tables lists every table created by EnsureSchema.
var Tables = []string{"clients", "dup_name_clients", "estimates", "invoices", "ingest_runs"}

// Store opens transactions and serves the read-side queries used by exports.
type Store interface {
	// Backend returns the engine name ("postgres" or "sqlite").
	Backend() string

	// EnsureSchema creates the tables if they do not exist.
	EnsureSchema(ctx context.Context) error

	// HasSchema reports whether every table created by EnsureSchema exists.
	HasSchema(ctx context.Context) (bool, error)

	// DropSchema drops every table created by EnsureSchema.
	DropSchema(ctx context.Context) error

	// Begin starts a transaction.
	Begin(ctx context.Context) (Tx, error)

	// Clients returns every client with document counts, ordered by full_name.
	Clients(ctx context.Context) ([]ClientActivity, error)

	// Runs returns recorded ingest runs, newest first.
	Runs(ctx context.Context) ([]Run, error)

	Close() error
}

// Tx is a unit of work against the CRM tables. Counts returned by write
// methods are rows inserted or updated.
type Tx interface {
	// ClientNames returns every full_name currently in clients.
	ClientNames(ctx context.Context) ([]string, error)

	// UpsertClients inserts clients, overwriting every export column of existing rows.
	// join_date is left untouched.
	UpsertClients(ctx context.Context, clients []model.Client) (int, error)

	// EnsureClients inserts clients whose full_name is absent and leaves existing rows alone.
	EnsureClients(ctx context.Context, clients []model.Client) (int, error)

	// ReplaceDuplicateClients replaces the dup_name_clients rows for the given names.
	ReplaceDuplicateClients(ctx context.Context, dups []model.Client) (int, error)

	// UpsertEstimates inserts or overwrites estimates by estimate_number.
	UpsertEstimates(ctx context.Context, estimates []model.Estimate) (int, error)

	// UpsertInvoices inserts or overwrites invoices by invoice_number.
	UpsertInvoices(ctx context.Context, invoices []model.Invoice) (int, error)

	// RefreshJoinDates sets join_date of the named clients to their earliest
	// estimate creation date when that is earlier than the stored value.
	RefreshJoinDates(ctx context.Context, names []string) (int, error)

	// RecordRun stores an ingest run summary.
	RecordRun(ctx context.Context, run Run) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// ClientActivity is a client plus how many estimates and invoices reference it.
type ClientActivity struct {
	model.Client
	Estimates int
	Invoices  int
}

// Run statuses.
const (
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// Run is one row of ingest_runs.
type Run struct {
	ID            uuid.UUID
	Year          int
	Month         int
	IngestionDate model.Date
	StartedAt     time.Time
	FinishedAt    time.Time
	Status        string
	ClientRows    int
	EstimateRows  int
	InvoiceRows   int

	// Checksums maps source file path to its normalized checksum.
	Checksums map[string]string
}
