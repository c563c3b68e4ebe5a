// Package postgres implements store.Store on PostgreSQL through a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/vvka-141/crmingest/internal/model"
	"github.com/vvka-141/crmingest/internal/store"
)

// Store is a store.Store backed by a pgx pool. Closing the Store closes the pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// New wraps an open pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Backend() string { return "postgres" }

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *Store) HasSchema(ctx context.Context) (bool, error) {
	var n int
	if err := s.pool.QueryRow(ctx, countTablesSQL, store.Tables).Scan(&n); err != nil {
		return false, fmt.Errorf("inspect schema: %w", err)
	}
	return n == len(store.Tables), nil
}

func (s *Store) DropSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, dropSQL); err != nil {
		return fmt.Errorf("drop schema: %w", err)
	}
	return nil
}

func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &Tx{tx: tx}, nil
}

func (s *Store) Clients(ctx context.Context) ([]store.ClientActivity, error) {
	rows, err := s.pool.Query(ctx, clientsActivitySQL)
	if err != nil {
		return nil, fmt.Errorf("query clients: %w", err)
	}
	defer rows.Close()

	var out []store.ClientActivity
	for rows.Next() {
		var a store.ClientActivity
		var email, mobile, other, addr, addr2, city, state, zip, notes, source pgtype.Text
		var joinDate, ingested pgtype.Date
		if err := rows.Scan(&a.FullName, &email, &mobile, &other, &addr, &addr2, &city, &state,
			&zip, &notes, &a.JoistClientID, &joinDate, &source, &ingested, &a.Estimates, &a.Invoices); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		a.EmailAddress, a.PhoneMobile, a.PhoneOther = email.String, mobile.String, other.String
		a.Address, a.Address2, a.City, a.StateProvince = addr.String, addr2.String, city.String, state.String
		a.ZipPostalCode, a.PrivateNotes, a.Source = zip.String, notes.String, source.String
		a.JoinDate, a.IngestedDate = fromDate(joinDate), fromDate(ingested)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) Runs(ctx context.Context) ([]store.Run, error) {
	rows, err := s.pool.Query(ctx, runsSQL)
	if err != nil {
		return nil, fmt.Errorf("query ingest runs: %w", err)
	}
	defer rows.Close()

	var out []store.Run
	for rows.Next() {
		var (
			r        store.Run
			ingested pgtype.Date
			finished pgtype.Timestamptz
		)
		if err := rows.Scan(&r.ID, &r.Year, &r.Month, &ingested, &r.StartedAt, &finished, &r.Status,
			&r.ClientRows, &r.EstimateRows, &r.InvoiceRows, &r.Checksums); err != nil {
			return nil, fmt.Errorf("scan ingest run: %w", err)
		}
		r.IngestionDate = fromDate(ingested)
		if finished.Valid {
			r.FinishedAt = finished.Time
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Tx is a store.Tx on a pgx transaction. Writes are pipelined with pgx.Batch,
// one statement per record so duplicate keys inside a file resolve last-wins.
type Tx struct {
	tx pgx.Tx
}

func (t *Tx) ClientNames(ctx context.Context) ([]string, error) {
	rows, err := t.tx.Query(ctx, `SELECT full_name FROM clients`)
	if err != nil {
		return nil, fmt.Errorf("query client names: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (t *Tx) UpsertClients(ctx context.Context, clients []model.Client) (int, error) {
	return t.clients(ctx, upsertClientSQL, clients)
}

func (t *Tx) EnsureClients(ctx context.Context, clients []model.Client) (int, error) {
	return t.clients(ctx, ensureClientSQL, clients)
}

func (t *Tx) clients(ctx context.Context, sql string, clients []model.Client) (int, error) {
	items := make([]item, len(clients))
	for i, c := range clients {
		items[i] = item{key: c.FullName, args: append(clientArgs(c), c.Source, toDate(c.IngestedDate))}
	}
	return t.batch(ctx, "client", sql, items)
}

func (t *Tx) ReplaceDuplicateClients(ctx context.Context, dups []model.Client) (int, error) {
	if len(dups) == 0 {
		return 0, nil
	}
	names := make([]string, 0, len(dups))
	for _, d := range dups {
		names = append(names, d.FullName)
	}
	if _, err := t.tx.Exec(ctx, deleteDupsSQL, names); err != nil {
		return 0, fmt.Errorf("clear duplicate clients: %w", err)
	}
	items := make([]item, len(dups))
	for i, d := range dups {
		items[i] = item{key: d.FullName, args: append(clientArgs(d), toDate(d.IngestedDate))}
	}
	return t.batch(ctx, "duplicate client", insertDupSQL, items)
}

func (t *Tx) UpsertEstimates(ctx context.Context, estimates []model.Estimate) (int, error) {
	items := make([]item, len(estimates))
	for i, e := range estimates {
		items[i] = item{key: e.Number, args: []any{
			e.Number, e.FullName, toNumeric(e.Subtotal), toNumeric(e.Tax), toNumeric(e.Total),
			toDate(e.DateIssued), toDate(e.DateCreated), toDate(e.IngestedDate),
		}}
	}
	return t.batch(ctx, "estimate", upsertEstimateSQL, items)
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
	return t.batch(ctx, "invoice", upsertInvoiceSQL, items)
}

func (t *Tx) RefreshJoinDates(ctx context.Context, names []string) (int, error) {
	if len(names) == 0 {
		return 0, nil
	}
	tag, err := t.tx.Exec(ctx, refreshJoinDatesSQL, names)
	if err != nil {
		return 0, fmt.Errorf("refresh join dates: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (t *Tx) RecordRun(ctx context.Context, r store.Run) error {
	finished := pgtype.Timestamptz{Time: r.FinishedAt, Valid: !r.FinishedAt.IsZero()}
	checksums := r.Checksums
	if checksums == nil {
		checksums = map[string]string{}
	}
	_, err := t.tx.Exec(ctx, recordRunSQL, r.ID, r.Year, r.Month, toDate(r.IngestionDate), r.StartedAt,
		finished, r.Status, r.ClientRows, r.EstimateRows, r.InvoiceRows, checksums)
	if err != nil {
		return fmt.Errorf("record ingest run: %w", err)
	}
	return nil
}

func (t *Tx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

// Rollback is a no-op after Commit.
func (t *Tx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

type item struct {
	key  string
	args []any
}

func (t *Tx) batch(ctx context.Context, kind, sql string, items []item) (n int, err error) {
	if len(items) == 0 {
		return 0, nil
	}
	b := &pgx.Batch{}
	for _, it := range items {
		b.Queue(sql, it.args...)
	}
	br := t.tx.SendBatch(ctx, b)
	defer func() {
		if cerr := br.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	for _, it := range items {
		tag, err := br.Exec()
		if err != nil {
			return n, fmt.Errorf("%s %q: %w", kind, it.key, err)
		}
		n += int(tag.RowsAffected())
	}
	return n, nil
}

func clientArgs(c model.Client) []any {
	return []any{
		c.FullName, toText(c.EmailAddress), toText(c.PhoneMobile), toText(c.PhoneOther),
		toText(c.Address), toText(c.Address2), toText(c.City), toText(c.StateProvince),
		toText(c.ZipPostalCode), toText(c.PrivateNotes), c.JoistClientID,
	}
}

func toText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func toDate(d model.Date) pgtype.Date {
	return pgtype.Date{Time: d.Time, Valid: d.Valid}
}

func fromDate(d pgtype.Date) model.Date {
	if !d.Valid {
		return model.Date{}
	}
	return model.DateOf(d.Time)
}

func toNumeric(d decimal.NullDecimal) pgtype.Numeric {
	if !d.Valid {
		return pgtype.Numeric{}
	}
	return pgtype.Numeric{Int: d.Decimal.Coefficient(), Exp: d.Decimal.Exponent(), Valid: true}
}
