package ingest

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/crmingest/internal/logging"
	"github.com/vvka-141/crmingest/internal/model"
	"github.com/vvka-141/crmingest/internal/retry"
	"github.com/vvka-141/crmingest/internal/source"
	"github.com/vvka-141/crmingest/internal/store"
	"github.com/vvka-141/crmingest/internal/store/sqlite"
	"github.com/vvka-141/crmingest/pkg/crmingest"
)

const baseDir = "/crm"

const clientsCSV = `Name,Email Address,Phone (mobile),Phone (other),Address,Address 2,City,State / Province,Zip / Postal Code,Private Notes,**(Do not change this) Joist Client ID
Ann Lee,ann@example.com,555-0100,,1 Main St,,Springfield,IL,62701,,101
Ann Lee,ann.old@example.com,,,,,,,,,55
Bob Stone,bob@example.com,,,,,,,,,102
Cara Diaz,cara@example.com,,,,,,,,,103
,nobody@example.com,,,,,,,,,104
`

const estimatesCSV = `Estimate #,Client Name,Subtotal,Tax,Total,Date Issued,Date Created
E-1,Ann Lee,100.00,8.00,108.00,2025-07-02,2025-07-01
E-2,Bob Stone,50,4,54,2025-07-10,2025-07-09
E-3,Zed Orphan,10,0,10,2025-07-11,2025-07-11
,Bob Stone,1,0,1,2025-07-12,2025-07-12
`

const invoicesTSV = "Invoice #\tClient Name\tSubtotal\tTax\tTotal\tDate Issued\tDate Created\tPayment Received Less Refunds\n" +
	"I-1\tAnn Lee\t100.00\t8.00\t108.00\t2025-07-15\t2025-07-15\t108.00\n" +
	"I-2\tCara Diaz\t20\t0\t20\t2025-07-16\t2025-07-16\t0\n"

// workspace is an in-memory data directory with one month of exports.
type workspace struct {
	fs     *source.MemoryFileSystem
	layout source.Layout
}

func emptyWorkspace() *workspace {
	fs := source.NewMemoryFileSystem()
	return &workspace{fs: fs, layout: source.Layout{BaseDir: baseDir, FS: fs}}
}

func newWorkspace() *workspace {
	w := emptyWorkspace()
	w.put(crmingest.EntityClients, "Clients.csv", clientsCSV)
	w.put(crmingest.EntityEstimates, "2025-7.csv", estimatesCSV)
	w.put(crmingest.EntityInvoices, "2025-7.csv", invoicesTSV)
	return w
}

func (w *workspace) put(e crmingest.Entity, name, content string) {
	w.fs.AddFile(filepath.Join(w.layout.Dir(e, 2025), name), content)
}

func runConfig() crmingest.RunConfig {
	return crmingest.RunConfig{
		BaseDir:       baseDir,
		Year:          2025,
		Month:         7,
		IngestionDate: time.Date(2025, 8, 26, 0, 0, 0, 0, time.UTC),
	}
}

func newSQLite(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// captured collects log output for assertions.
type captured struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (c *captured) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

func (c *captured) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

func fastExecutor() *retry.Executor {
	return retry.NewExecutor(retry.NewStoreErrorClassifier(),
		retry.NewExponentialBackoff(3, retry.WithInitialDelay(time.Millisecond), retry.WithMaxDelay(time.Millisecond)))
}

func newTestService(t *testing.T, st store.Store, w *workspace, opts ...Option) (*Service, *captured) {
	t.Helper()
	out := &captured{}
	var n uint32
	ids := func() uuid.UUID {
		n++
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte{byte(n)})
	}
	base := []Option{WithExecutor(fastExecutor()), WithIDs(ids)}
	svc := NewService(st, w.layout, logging.NewConsoleLoggerTo(out, true), append(base, opts...)...)
	return svc, out
}

func clientsByName(t *testing.T, st store.Store) map[string]store.ClientActivity {
	t.Helper()
	all, err := st.Clients(context.Background())
	require.NoError(t, err)
	m := make(map[string]store.ClientActivity, len(all))
	for _, c := range all {
		m[c.FullName] = c
	}
	return m
}

// recordingStore wraps a store and records every Tx call in order.
// A call named in failOn returns its error instead of reaching the store.
type recordingStore struct {
	store.Store

	mu     sync.Mutex
	calls  []string
	failOn map[string]error

	// beginErrs are returned by successive Begin calls before delegating.
	beginErrs []error
	begins    int
}

func record(s store.Store) *recordingStore {
	return &recordingStore{Store: s, failOn: make(map[string]error)}
}

func (r *recordingStore) Begin(ctx context.Context) (store.Tx, error) {
	r.mu.Lock()
	r.begins++
	if len(r.beginErrs) > 0 {
		err := r.beginErrs[0]
		r.beginErrs = r.beginErrs[1:]
		r.mu.Unlock()
		return nil, err
	}
	r.mu.Unlock()
	tx, err := r.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &recordingTx{Tx: tx, s: r}, nil
}

func (r *recordingStore) note(call string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
	return r.failOn[call]
}

// writes returns the recorded write calls, dropping reads and transaction control.
func (r *recordingStore) writes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, c := range r.calls {
		switch c {
		case "ClientNames", "Commit", "Rollback":
			continue
		}
		out = append(out, c)
	}
	return out
}

type recordingTx struct {
	store.Tx
	s *recordingStore
}

func (t *recordingTx) ClientNames(ctx context.Context) ([]string, error) {
	if err := t.s.note("ClientNames"); err != nil {
		return nil, err
	}
	return t.Tx.ClientNames(ctx)
}

func (t *recordingTx) UpsertClients(ctx context.Context, c []model.Client) (int, error) {
	if err := t.s.note("UpsertClients"); err != nil {
		return 0, err
	}
	return t.Tx.UpsertClients(ctx, c)
}

func (t *recordingTx) EnsureClients(ctx context.Context, c []model.Client) (int, error) {
	if err := t.s.note("EnsureClients"); err != nil {
		return 0, err
	}
	return t.Tx.EnsureClients(ctx, c)
}

func (t *recordingTx) ReplaceDuplicateClients(ctx context.Context, c []model.Client) (int, error) {
	if err := t.s.note("ReplaceDuplicateClients"); err != nil {
		return 0, err
	}
	return t.Tx.ReplaceDuplicateClients(ctx, c)
}

func (t *recordingTx) UpsertEstimates(ctx context.Context, e []model.Estimate) (int, error) {
	if err := t.s.note("UpsertEstimates"); err != nil {
		return 0, err
	}
	return t.Tx.UpsertEstimates(ctx, e)
}

func (t *recordingTx) UpsertInvoices(ctx context.Context, i []model.Invoice) (int, error) {
	if err := t.s.note("UpsertInvoices"); err != nil {
		return 0, err
	}
	return t.Tx.UpsertInvoices(ctx, i)
}

func (t *recordingTx) RefreshJoinDates(ctx context.Context, names []string) (int, error) {
	if err := t.s.note("RefreshJoinDates"); err != nil {
		return 0, err
	}
	return t.Tx.RefreshJoinDates(ctx, names)
}

func (t *recordingTx) RecordRun(ctx context.Context, run store.Run) error {
	if err := t.s.note("RecordRun"); err != nil {
		return err
	}
	return t.Tx.RecordRun(ctx, run)
}

func (t *recordingTx) Commit(ctx context.Context) error {
	if err := t.s.note("Commit"); err != nil {
		return err
	}
	return t.Tx.Commit(ctx)
}

func (t *recordingTx) Rollback(ctx context.Context) error {
	_ = t.s.note("Rollback")
	return t.Tx.Rollback(ctx)
}

var errBoom = errors.New("boom")
