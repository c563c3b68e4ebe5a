package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/crmingest/internal/model"
	"github.com/vvka-141/crmingest/internal/store"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func date(s string) model.Date {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func amount(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func withTx(t *testing.T, s *Store, fn func(tx store.Tx)) {
	t.Helper()
	ctx := context.Background()
	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(ctx) }()
	fn(tx)
	require.NoError(t, tx.Commit(ctx))
}

func TestForeignKeyEnforced(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.UpsertEstimates(ctx, []model.Estimate{{Number: "E-1", FullName: "Nobody"}})
	assert.Error(t, err)
}

func TestUpsertClients_OverwritesExportColumns(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	id := int64(5)

	withTx(t, s, func(tx store.Tx) {
		n, err := tx.UpsertClients(ctx, []model.Client{
			{FullName: "Jane Doe", EmailAddress: "old@example.com", City: "Springfield", Source: model.SourceExport},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
	withTx(t, s, func(tx store.Tx) {
		_, err := tx.UpsertClients(ctx, []model.Client{
			{FullName: "Jane Doe", EmailAddress: "new@example.com", JoistClientID: &id, Source: model.SourceExport},
		})
		require.NoError(t, err)
	})

	clients, err := s.Clients(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, "new@example.com", clients[0].EmailAddress)
	assert.Empty(t, clients[0].City)
	require.NotNil(t, clients[0].JoistClientID)
	assert.Equal(t, int64(5), *clients[0].JoistClientID)
}

func TestEnsureClients_LeavesExistingRows(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	ingested := date("2025-08-26")

	withTx(t, s, func(tx store.Tx) {
		_, err := tx.UpsertClients(ctx, []model.Client{{FullName: "Acme", EmailAddress: "a@acme.test", Source: model.SourceExport}})
		require.NoError(t, err)

		n, err := tx.EnsureClients(ctx, []model.Client{
			model.Placeholder("Acme", ingested),
			model.Placeholder("Globex", ingested),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		names, err := tx.ClientNames(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"Acme", "Globex"}, names)
	})

	clients, err := s.Clients(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 2)
	assert.Equal(t, model.SourceExport, clients[0].Source)
	assert.Equal(t, "a@acme.test", clients[0].EmailAddress)
	assert.Equal(t, model.SourcePlaceholder, clients[1].Source)
	assert.Equal(t, ingested, clients[1].IngestedDate)
}

func TestUpsertDocuments_IdempotentAndCounted(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	estimates := []model.Estimate{
		{Number: "E-1", FullName: "Acme", Total: amount("108.00"), DateCreated: date("2025-07-02")},
		{Number: "E-2", FullName: "Acme", Total: amount("50"), DateCreated: date("2025-06-15")},
	}
	invoices := []model.Invoice{
		{Number: "I-1", FullName: "Acme", Total: amount("108"), PaymentReceivedLessRefunds: amount("100.5")},
	}

	for i := 0; i < 2; i++ {
		withTx(t, s, func(tx store.Tx) {
			_, err := tx.EnsureClients(ctx, []model.Client{model.Placeholder("Acme", model.Date{})})
			require.NoError(t, err)
			n, err := tx.UpsertEstimates(ctx, estimates)
			require.NoError(t, err)
			assert.Equal(t, 2, n)
			n, err = tx.UpsertInvoices(ctx, invoices)
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}

	clients, err := s.Clients(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, 2, clients[0].Estimates)
	assert.Equal(t, 1, clients[0].Invoices)

	var total string
	require.NoError(t, s.db.QueryRow(`SELECT total FROM estimates WHERE estimate_number = 'E-2'`).Scan(&total))
	assert.Equal(t, "50.00", total)
}

func TestRefreshJoinDates_KeepsEarliest(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	withTx(t, s, func(tx store.Tx) {
		_, err := tx.EnsureClients(ctx, []model.Client{model.Placeholder("Acme", model.Date{}), model.Placeholder("Initech", model.Date{})})
		require.NoError(t, err)
		_, err = tx.UpsertEstimates(ctx, []model.Estimate{
			{Number: "E-1", FullName: "Acme", DateCreated: date("2025-07-02")},
			{Number: "E-2", FullName: "Acme", DateIssued: date("2025-06-10")},
		})
		require.NoError(t, err)

		n, err := tx.RefreshJoinDates(ctx, []string{"Acme", "Initech"})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = tx.RefreshJoinDates(ctx, []string{"Acme"})
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	clients, err := s.Clients(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2025-06-10", clients[0].JoinDate.String())
	assert.False(t, clients[1].JoinDate.Valid)
}

func TestReplaceDuplicateClients(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	dups := []model.Client{{FullName: "Jane"}, {FullName: "Jane", City: "Ogdenville"}}

	for i := 0; i < 2; i++ {
		withTx(t, s, func(tx store.Tx) {
			n, err := tx.ReplaceDuplicateClients(ctx, dups)
			require.NoError(t, err)
			assert.Equal(t, 2, n)
		})
	}

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT count(*) FROM dup_name_clients`).Scan(&count))
	assert.Equal(t, 2, count)
}

func TestRecordRun_RoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	started := time.Date(2025, 8, 26, 9, 0, 0, 0, time.UTC)
	run := store.Run{
		ID:            uuid.New(),
		Year:          2025,
		Month:         7,
		IngestionDate: date("2025-08-26"),
		StartedAt:     started,
		Status:        store.RunFailed,
		Checksums:     map[string]string{"data/clients/2025/Clients.csv": "abc"},
	}

	withTx(t, s, func(tx store.Tx) { require.NoError(t, tx.RecordRun(ctx, run)) })
	run.Status = store.RunSucceeded
	run.FinishedAt = started.Add(time.Minute)
	run.EstimateRows = 12
	withTx(t, s, func(tx store.Tx) { require.NoError(t, tx.RecordRun(ctx, run)) })

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, store.RunSucceeded, runs[0].Status)
	assert.Equal(t, 12, runs[0].EstimateRows)
	assert.True(t, run.FinishedAt.Equal(runs[0].FinishedAt))
	assert.Equal(t, run.Checksums, runs[0].Checksums)
}

func TestDropSchema(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	ok, err := s.HasSchema(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.DropSchema(ctx))
	_, err = s.Clients(ctx)
	assert.Error(t, err)
	ok, err = s.HasSchema(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.EnsureSchema(ctx))
	clients, err := s.Clients(ctx)
	require.NoError(t, err)
	assert.Empty(t, clients)
}

func TestRollbackAfterCommitIsNoop(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))
	assert.NoError(t, tx.Rollback(ctx))
}
