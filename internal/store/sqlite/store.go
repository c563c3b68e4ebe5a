/*
Package sqlite implements store.Store on a local SQLite file using the
pure-Go modernc.org/sqlite driver.

The schema mirrors the PostgreSQL one with SQLite types: amounts are stored
as decimal strings and dates as YYYY-MM-DD text, which keeps MIN() and
comparisons on dates correct. Foreign keys are enforced per connection via
the foreign_keys pragma in the DSN.

The schema is auto-migrated on New().

USAGE:

	s, err := sqlite.New("crm.db")
	if err != nil {
	    return err
	}
	defer s.Close()
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/vvka-141/crmingest/internal/model"
	"github.com/vvka-141/crmingest/internal/store"
)

// MemoryPath opens a private in-memory database. Used by tests.
const MemoryPath = ":memory:"

// Store is a store.Store on a SQLite database.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// New opens (creating if needed) the database at path and migrates the schema.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One connection: SQLite has a single writer and an in-memory database
	// exists only on the connection that created it.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.EnsureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func dsn(path string) string {
	const pragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if path == MemoryPath {
		return "file::memory:?" + pragmas
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return "file:" + path + sep + pragmas
}

func (s *Store) Backend() string { return "sqlite" }

func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

func (s *Store) HasSchema(ctx context.Context) (bool, error) {
	args := make([]any, len(store.Tables))
	for i, name := range store.Tables {
		args[i] = name
	}
	var n int
	if err := s.db.QueryRowContext(ctx, countTablesSQL, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("inspect schema: %w", err)
	}
	return n == len(store.Tables), nil
}

func (s *Store) DropSchema(ctx context.Context) error {
	for _, stmt := range dropStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("drop schema: %w", err)
		}
	}
	return nil
}

func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &Tx{tx: tx}, nil
}

func (s *Store) Clients(ctx context.Context) ([]store.ClientActivity, error) {
	rows, err := s.db.QueryContext(ctx, clientsActivitySQL)
	if err != nil {
		return nil, fmt.Errorf("query clients: %w", err)
	}
	defer rows.Close()

	var out []store.ClientActivity
	for rows.Next() {
		var a store.ClientActivity
		var email, mobile, other, addr, addr2, city, state, zip, notes, source sql.NullString
		var joinDate, ingested sql.NullString
		var joist sql.NullInt64
		if err := rows.Scan(&a.FullName, &email, &mobile, &other, &addr, &addr2, &city, &state,
			&zip, &notes, &joist, &joinDate, &source, &ingested, &a.Estimates, &a.Invoices); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		a.EmailAddress, a.PhoneMobile, a.PhoneOther = email.String, mobile.String, other.String
		a.Address, a.Address2, a.City, a.StateProvince = addr.String, addr2.String, city.String, state.String
		a.ZipPostalCode, a.PrivateNotes, a.Source = zip.String, notes.String, source.String
		if joist.Valid {
			v := joist.Int64
			a.JoistClientID = &v
		}
		if a.JoinDate, err = fromDate(joinDate); err != nil {
			return nil, err
		}
		if a.IngestedDate, err = fromDate(ingested); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) Runs(ctx context.Context) ([]store.Run, error) {
	rows, err := s.db.QueryContext(ctx, runsSQL)
	if err != nil {
		return nil, fmt.Errorf("query ingest runs: %w", err)
	}
	defer rows.Close()

	var out []store.Run
	for rows.Next() {
		var (
			r                  store.Run
			id, ingested       string
			started, checksums string
			finished           sql.NullString
		)
		if err := rows.Scan(&id, &r.Year, &r.Month, &ingested, &started, &finished, &r.Status,
			&r.ClientRows, &r.EstimateRows, &r.InvoiceRows, &checksums); err != nil {
			return nil, fmt.Errorf("scan ingest run: %w", err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("ingest run id %q: %w", id, err)
		}
		if r.IngestionDate, err = fromDate(sql.NullString{String: ingested, Valid: true}); err != nil {
			return nil, err
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("ingest run %s started_at: %w", id, err)
		}
		if finished.Valid && finished.String != "" {
			if r.FinishedAt, err = time.Parse(time.RFC3339Nano, finished.String); err != nil {
				return nil, fmt.Errorf("ingest run %s finished_at: %w", id, err)
			}
		}
		if err := json.Unmarshal([]byte(checksums), &r.Checksums); err != nil {
			return nil, fmt.Errorf("ingest run %s checksums: %w", id, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Tx is a store.Tx on a database/sql transaction.
type Tx struct {
	tx *sql.Tx
}

func (t *Tx) ClientNames(ctx context.Context) ([]string, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT full_name FROM clients`)
	if err != nil {
		return nil, fmt.Errorf("query client names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (t *Tx) UpsertClients(ctx context.Context, clients []model.Client) (int, error) {
	return t.clients(ctx, upsertClientSQL, clients)
}

func (t *Tx) EnsureClients(ctx context.Context, clients []model.Client) (int, error) {
	return t.clients(ctx, ensureClientSQL, clients)
}

func (t *Tx) clients(ctx context.Context, query string, clients []model.Client) (int, error) {
	items := make([]item, len(clients))
	for i, c := range clients {
		items[i] = item{key: c.FullName, args: append(clientArgs(c), c.Source, toDate(c.IngestedDate))}
	}
	return t.each(ctx, "client", query, items)
}

func (t *Tx) ReplaceDuplicateClients(ctx context.Context, dups []model.Client) (int, error) {
	if len(dups) == 0 {
		return 0, nil
	}
	cleared := make(map[string]bool, len(dups))
	for _, d := range dups {
		if cleared[d.FullName] {
			continue
		}
		if _, err := t.tx.ExecContext(ctx, deleteDupSQL, d.FullName); err != nil {
			return 0, fmt.Errorf("clear duplicate clients: %w", err)
		}
		cleared[d.FullName] = true
	}
	items := make([]item, len(dups))
	for i, d := range dups {
		items[i] = item{key: d.FullName, args: append(clientArgs(d), toDate(d.IngestedDate))}
	}
	return t.each(ctx, "duplicate client", insertDupSQL, items)
}

func (t *Tx) UpsertEstimates(ctx context.Context, estimates []model.Estimate) (int, error) {
	items := make([]item, len(estimates))
	for i, e := range estimates {
		items[i] = item{key: e.Number, args: []any{
			e.Number, e.FullName, toNumeric(e.Subtotal), toNumeric(e.Tax), toNumeric(e.Total),
			toDate(e.DateIssued), toDate(e.DateCreated), toDate(e.IngestedDate),
		}}
	}
	return t.each(ctx, "estimate", upsertEstimateSQL, items)
}

func (t *Tx) UpsertInvoices(ctx context.Context, invoices []model.Invoice) (int, error) {
	items := make([]item, len(invoices))
	for i, v := range invoices {
		items[i] = item{key: v.Number, args: []any{
			v.Number, v.FullName, toNumeric(v.Subtotal), toNumeric(v.Tax), toNumeric(v.Total),
			toDate(v.DateIssued), toDate(v.DateCreated), toNumeric(v.PaymentReceivedLessRefunds),
			toDate(v.IngestedDate),
		}}
	}
	return t.each(ctx, "invoice", upsertInvoiceSQL, items)
}

func (t *Tx) RefreshJoinDates(ctx context.Context, names []string) (int, error) {
	items := make([]item, len(names))
	for i, n := range names {
		items[i] = item{key: n, args: []any{n}}
	}
	n, err := t.each(ctx, "join date", refreshJoinDateSQL, items)
	if err != nil {
		return n, fmt.Errorf("refresh join dates: %w", err)
	}
	return n, nil
}

func (t *Tx) RecordRun(ctx context.Context, r store.Run) error {
	checksums := r.Checksums
	if checksums == nil {
		checksums = map[string]string{}
	}
	raw, err := json.Marshal(checksums)
	if err != nil {
		return fmt.Errorf("encode checksums: %w", err)
	}
	var finished sql.NullString
	if !r.FinishedAt.IsZero() {
		finished = sql.NullString{String: r.FinishedAt.UTC().Format(time.RFC3339Nano), Valid: true}
	}
	_, err = t.tx.ExecContext(ctx, recordRunSQL, r.ID.String(), r.Year, r.Month, toDate(r.IngestionDate),
		r.StartedAt.UTC().Format(time.RFC3339Nano), finished, r.Status,
		r.ClientRows, r.EstimateRows, r.InvoiceRows, string(raw))
	if err != nil {
		return fmt.Errorf("record ingest run: %w", err)
	}
	return nil
}

func (t *Tx) Commit(ctx context.Context) error {
	return t.tx.Commit()
}

// Rollback is a no-op after Commit.
func (t *Tx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

type item struct {
	key  string
	args []any
}

func (t *Tx) each(ctx context.Context, kind, query string, items []item) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	stmt, err := t.tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("prepare %s statement: %w", kind, err)
	}
	defer stmt.Close()

	n := 0
	for _, it := range items {
		res, err := stmt.ExecContext(ctx, it.args...)
		if err != nil {
			return n, fmt.Errorf("%s %q: %w", kind, it.key, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return n, err
		}
		n += int(affected)
	}
	return n, nil
}

func clientArgs(c model.Client) []any {
	var joist any
	if c.JoistClientID != nil {
		joist = *c.JoistClientID
	}
	return []any{
		c.FullName, toText(c.EmailAddress), toText(c.PhoneMobile), toText(c.PhoneOther),
		toText(c.Address), toText(c.Address2), toText(c.City), toText(c.StateProvince),
		toText(c.ZipPostalCode), toText(c.PrivateNotes), joist,
	}
}

func toText(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func toDate(d model.Date) sql.NullString {
	return sql.NullString{String: d.String(), Valid: d.Valid}
}

func fromDate(s sql.NullString) (model.Date, error) {
	if !s.Valid || s.String == "" {
		return model.Date{}, nil
	}
	t, err := time.Parse(time.DateOnly, s.String)
	if err != nil {
		return model.Date{}, fmt.Errorf("stored date %q: %w", s.String, err)
	}
	return model.DateOf(t), nil
}

func toNumeric(d decimal.NullDecimal) sql.NullString {
	if !d.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: d.Decimal.StringFixed(2), Valid: true}
}
