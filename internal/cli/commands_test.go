package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/crmingest/internal/config"
	"github.com/vvka-141/crmingest/internal/export"
	"github.com/vvka-141/crmingest/internal/store/sqlite"
	testhelpers "github.com/vvka-141/crmingest/internal/testing"
	"github.com/vvka-141/crmingest/internal/testing/fixtures"
	"github.com/vvka-141/crmingest/pkg/crmingest"
)

var sqliteJuly = []string{"--backend", "sqlite", "--month", "7", "--year", "2025", "--ingestion-date", "2025-08-26"}

func ingestArgs(extra ...string) []string {
	return append(append([]string{"ingest"}, sqliteJuly...), extra...)
}

func openSQLite(t *testing.T, path string) *sqlite.Store {
	t.Helper()
	st, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestIngest_SQLiteEndToEnd(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, fixtures.StandardMonth().WriteTo(dir))

	_, stderr, err := executeCommand(t, ingestArgs()...)
	require.NoError(t, err, stderr)
	assert.Contains(t, stderr, ": succeeded")
	assert.Contains(t, stderr, "month 2025-07, ingestion date 2025-08-26")
	assert.Contains(t, stderr, "estimates: 2 rows written")
	assert.Contains(t, stderr, "invoices: 1 rows written")

	for _, name := range []string{"clients.log", "estimates.log", "invoices.log"} {
		assert.FileExists(t, filepath.Join(dir, "logs", name))
	}
	manifests, err := filepath.Glob(filepath.Join(dir, "logs", "runs", "ingest_*.json"))
	require.NoError(t, err)
	assert.Len(t, manifests, 1)

	// A second run of the same month overwrites instead of duplicating.
	_, stderr, err = executeCommand(t, ingestArgs()...)
	require.NoError(t, err, stderr)

	st := openSQLite(t, filepath.Join(dir, config.DefaultSQLitePath))
	clients, err := st.Clients(context.Background())
	require.NoError(t, err)
	assert.Len(t, clients, 2)
	runs, err := st.Runs(context.Background())
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestIngest_DryRunWritesNothing(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, fixtures.StandardMonth().WriteTo(dir))

	_, stderr, err := executeCommand(t, ingestArgs("--dry-run")...)
	require.NoError(t, err, stderr)
	assert.Contains(t, stderr, "dry run")
	assert.Contains(t, stderr, "[not committed]")

	st := openSQLite(t, filepath.Join(dir, config.DefaultSQLitePath))
	clients, err := st.Clients(context.Background())
	require.NoError(t, err)
	assert.Empty(t, clients)
}

func TestIngest_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantExit int
	}{
		{"missing month", []string{"ingest", "--backend", "sqlite"}, crmingest.ExitConfigError},
		{"month out of range", []string{"ingest", "--backend", "sqlite", "--month", "13"}, crmingest.ExitConfigError},
		{"unknown step", ingestArgs("--only", "payments"), crmingest.ExitConfigError},
		{"bad ingestion date", []string{"ingest", "--backend", "sqlite", "--month", "7", "--ingestion-date", "26/08/2025"}, crmingest.ExitConfigError},
		{"bad alias", ingestArgs("--alias", "estimates:no-equals"), crmingest.ExitConfigError},
		{"unknown backend", []string{"ingest", "--backend", "oracle", "--month", "7"}, crmingest.ExitConfigError},
		{"missing exports", ingestArgs(), crmingest.ExitSourceMissing},
		{"positional argument", []string{"ingest", "extra"}, crmingest.ExitUsageError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			_, _, err := executeCommand(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, crmingest.ExitCodeForError(err), err.Error())
		})
	}
}

func TestIngest_ReadsMonthFromConfig(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, fixtures.StandardMonth().WriteTo(dir))
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ConfigFileName), []byte(
		"backend: sqlite\ningest:\n  year: 2025\n  month: 7\n  ingestion_date: \"2025-08-26\"\n"), 0o644))

	_, stderr, err := executeCommand(t, "ingest")
	require.NoError(t, err, stderr)
	assert.Contains(t, stderr, "month 2025-07, ingestion date 2025-08-26")
}

func TestSources_MarksIngestedFiles(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, fixtures.StandardMonth().
		Estimate(8, "E-3", "Ann Lee", "10.00", "2025-08-02").
		WriteTo(dir))

	_, stderr, err := executeCommand(t, ingestArgs()...)
	require.NoError(t, err, stderr)

	stdout, _, err := executeCommand(t, "sources", "--backend", "sqlite", "--year", "2025")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 3)
	ingested := map[string]string{}
	for _, line := range lines {
		cols := strings.Split(line, "\t")
		require.Len(t, cols, 5, line)
		ingested[cols[0]+" "+cols[1]] = cols[4]
	}
	assert.Equal(t, map[string]string{
		"estimates 2025-07": "true",
		"invoices 2025-07":  "true",
		"estimates 2025-08": "false",
	}, ingested)
}

func TestExport_WritesEveryReport(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, fixtures.StandardMonth().WriteTo(dir))
	_, stderr, err := executeCommand(t, ingestArgs()...)
	require.NoError(t, err, stderr)

	stdout, stderr, err := executeCommand(t, "export", "--backend", "sqlite")
	require.NoError(t, err, stderr)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	assert.Len(t, lines, len(export.Names()))
	for _, name := range export.Names() {
		assert.FileExists(t, filepath.Join(export.Dir(dir), name+".csv"))
	}
	assert.FileExists(t, filepath.Join(dir, "logs", "export.log"))

	stdout, _, err = executeCommand(t, "export", "--backend", "sqlite", "--only", "customers")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("data", "clients", "customers.csv")+"\t1\n", stdout)
}

func TestExport_UnknownName(t *testing.T) {
	isolate(t)
	_, _, err := executeCommand(t, "export", "--backend", "sqlite", "--only", "prospects")
	require.Error(t, err)
	assert.Equal(t, crmingest.ExitConfigError, crmingest.ExitCodeForError(err))
}

func TestSchemaReset(t *testing.T) {
	stubApprover := func(t *testing.T, approve bool) *testhelpers.Approver {
		a := &testhelpers.Approver{Approve: approve}
		orig := newApprover
		newApprover = func(force, verbose bool) crmingest.Approver { return a }
		t.Cleanup(func() { newApprover = orig })
		return a
	}

	t.Run("non-interactive without force", func(t *testing.T) {
		isolate(t)
		_, _, err := executeCommand(t, "schema", "reset", "--backend", "sqlite")
		require.Error(t, err)
		assert.Equal(t, crmingest.ExitApprovalDenied, crmingest.ExitCodeForError(err))
	})

	t.Run("denied", func(t *testing.T) {
		isolate(t)
		a := stubApprover(t, false)
		_, _, err := executeCommand(t, "schema", "reset", "--backend", "sqlite", "--force")
		require.ErrorIs(t, err, crmingest.ErrApprovalDenied)
		assert.Equal(t, []string{config.DefaultSQLitePath}, a.Targets())
	})

	t.Run("approved drops data", func(t *testing.T) {
		dir := isolate(t)
		require.NoError(t, fixtures.StandardMonth().WriteTo(dir))
		_, stderr, err := executeCommand(t, ingestArgs()...)
		require.NoError(t, err, stderr)

		stubApprover(t, true)
		_, stderr, err = executeCommand(t, "schema", "reset", "--backend", "sqlite", "--force")
		require.NoError(t, err, stderr)
		assert.Contains(t, stderr, "recreated")

		st := openSQLite(t, config.DefaultSQLitePath)
		runs, err := st.Runs(context.Background())
		require.NoError(t, err)
		assert.Empty(t, runs)
	})
}

func TestSchemaInit(t *testing.T) {
	isolate(t)
	_, stderr, err := executeCommand(t, "schema", "init", "--backend", "sqlite", "--sqlite-path", "db/crm.db")
	require.NoError(t, err, stderr)
	assert.FileExists(t, filepath.Join("db", "crm.db"))
	assert.Contains(t, stderr, "CRM tables ready")
}

func TestInit_CreatesWorkspace(t *testing.T) {
	dir := isolate(t)

	_, stderr, err := executeCommand(t, "init", "crm", "--backend", "sqlite", "--year", "2024")
	require.NoError(t, err, stderr)
	assert.Contains(t, stderr, "Workspace initialized")
	assert.Contains(t, stderr, "cd crm")

	for _, d := range []string{"data/clients/2024", "data/estimates/2024", "data/invoices/2024", "logs/old"} {
		assert.DirExists(t, filepath.Join(dir, "crm", filepath.FromSlash(d)))
	}
	cfg, err := config.Load(filepath.Join(dir, "crm"))
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Backend)
	assert.Equal(t, 2024, cfg.Ingest.Year)

	_, _, err = executeCommand(t, "init", "crm")
	require.Error(t, err)
	assert.Equal(t, crmingest.ExitConfigError, crmingest.ExitCodeForError(err))
}

func TestInit_TooManyArgs(t *testing.T) {
	isolate(t)
	_, _, err := executeCommand(t, "init", "a", "b")
	require.Error(t, err)
	assert.Equal(t, crmingest.ExitUsageError, crmingest.ExitCodeForError(err))
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "crmingest "), stdout)
}
