package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/crmingest/pkg/crmingest"
)

func TestSources_MarksIngestedChecksums(t *testing.T) {
	st := newSQLite(t)
	w := newWorkspace()
	w.put(crmingest.EntityEstimates, "2025-08.csv", estimatesCSV+"E-9,Ann Lee,1,0,1,2025-08-01,2025-08-01\n")
	svc, _ := newTestService(t, st, w)

	before, err := svc.Sources(context.Background(), 2025)
	require.NoError(t, err)
	require.Len(t, before, 3)
	for _, s := range before {
		assert.False(t, s.Ingested, s.Path)
	}

	_, err = svc.Run(context.Background(), runConfig())
	require.NoError(t, err)

	after, err := svc.Sources(context.Background(), 2025)
	require.NoError(t, err)
	require.Len(t, after, 3)

	assert.Equal(t, 7, after[0].Month)
	assert.Equal(t, crmingest.EntityEstimates, after[0].Entity)
	assert.True(t, after[0].Ingested)
	assert.Equal(t, crmingest.EntityInvoices, after[1].Entity)
	assert.True(t, after[1].Ingested)
	assert.Equal(t, 8, after[2].Month)
	assert.False(t, after[2].Ingested)
}

func TestSources_IgnoresFailedRuns(t *testing.T) {
	st := record(newSQLite(t))
	st.failOn["UpsertEstimates"] = errBoom
	svc, _ := newTestService(t, st, newWorkspace())

	_, err := svc.Run(context.Background(), runConfig())
	require.Error(t, err)

	got, err := svc.Sources(context.Background(), 2025)
	require.NoError(t, err)
	for _, s := range got {
		assert.False(t, s.Ingested, s.Path)
	}
}

func TestSources_ClientsOnlyRunLeavesEstimatesPending(t *testing.T) {
	st := newSQLite(t)
	svc, _ := newTestService(t, st, newWorkspace())

	cfg := runConfig()
	cfg.Entities = []crmingest.Entity{crmingest.EntityClients}
	report, err := svc.Run(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, report.Files, 2, "the estimates export is still read to scope clients")

	got, err := svc.Sources(context.Background(), 2025)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	for _, s := range got {
		assert.False(t, s.Ingested, s.Path)
	}

	runs, err := st.Runs(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Len(t, runs[0].Checksums, 1)
}

func TestSources_EmptyYear(t *testing.T) {
	svc, _ := newTestService(t, newSQLite(t), newWorkspace())
	got, err := svc.Sources(context.Background(), 2019)
	require.NoError(t, err)
	assert.Empty(t, got)
}
