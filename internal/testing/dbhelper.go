// Package testing holds helpers shared by integration tests: a PostgreSQL
// server (from CRMINGEST_TEST_CONN or a throwaway container), per-test
// databases and ready-to-use stores.
package testing

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/crmingest/internal/db"
	"github.com/vvka-141/crmingest/internal/store/postgres"
	"github.com/vvka-141/crmingest/internal/store/sqlite"
	"github.com/vvka-141/crmingest/internal/testinfra"
)

// TestConnEnv names the variable holding a connection string to an existing server.
const TestConnEnv = "CRMINGEST_TEST_CONN"

var (
	containerOnce sync.Once
	containerConn string
	containerErr  error
)

func getOrStartTestContainer() (string, error) {
	containerOnce.Do(func() {
		ctr, err := testinfra.StartPostgres(context.Background())
		if err != nil {
			containerErr = err
			return
		}
		containerConn = ctr.ConnString
	})
	return containerConn, containerErr
}

// GetTestConnectionString returns a connection string to a maintenance database.
// Priority: CRMINGEST_TEST_CONN > auto-started container > skip.
func GetTestConnectionString(t *testing.T) string {
	t.Helper()

	if connString := os.Getenv(TestConnEnv); connString != "" {
		return connString
	}
	connString, err := getOrStartTestContainer()
	if err != nil {
		t.Skipf("%s not set and Docker unavailable: %v", TestConnEnv, err)
	}
	return connString
}

// SkipIfShort skips the test if running in short mode (-short flag).
func SkipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// RequireDatabase combines SkipIfShort and GetTestConnectionString.
func RequireDatabase(t *testing.T) string {
	t.Helper()
	SkipIfShort(t)
	return GetTestConnectionString(t)
}

// CreateTestDB creates a uniquely named database and drops it when the test ends.
// It returns the new database's name.
func CreateTestDB(t *testing.T, connString string) string {
	t.Helper()
	ctx := context.Background()

	name := "crmingest_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		t.Fatalf("connect for test database creation: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize()); err != nil {
		t.Fatalf("create test database %s: %v", name, err)
	}
	t.Cleanup(func() { CleanupTestDB(t, connString, name) })
	return name
}

// CleanupTestDB terminates connections to dbName and drops it. Failures are logged, not fatal.
func CleanupTestDB(t *testing.T, connString, dbName string) {
	t.Helper()
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		t.Logf("Warning: connect for cleanup: %v", err)
		return
	}
	defer pool.Close()

	const terminate = `
		SELECT pg_terminate_backend(pid)
		FROM pg_stat_activity
		WHERE datname = $1 AND pid <> pg_backend_pid()`
	if _, err := pool.Exec(ctx, terminate, dbName); err != nil {
		t.Logf("Warning: terminate connections to %s: %v", dbName, err)
	}
	if _, err := pool.Exec(ctx, "DROP DATABASE IF EXISTS "+pgx.Identifier{dbName}.Sanitize()); err != nil {
		t.Logf("Warning: drop database %s: %v", dbName, err)
	}
}

// ConnStringFor rewrites connString to point at dbName.
func ConnStringFor(t *testing.T, connString, dbName string) string {
	t.Helper()
	cfg, err := db.ParseConnectionString(connString)
	if err != nil {
		t.Fatalf("parse connection string: %v", err)
	}
	cfg.Database = dbName
	return db.BuildConnectionString(cfg)
}

// GetTestPool opens a pool on dbName and closes it when the test ends.
func GetTestPool(t *testing.T, connString, dbName string) *pgxpool.Pool {
	t.Helper()
	pool, err := pgxpool.New(context.Background(), ConnStringFor(t, connString, dbName))
	if err != nil {
		t.Fatalf("create connection pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// NewPostgresStore returns a store on a fresh database with the schema created.
func NewPostgresStore(t *testing.T) *postgres.Store {
	t.Helper()
	conn := RequireDatabase(t)
	pool := GetTestPool(t, conn, CreateTestDB(t, conn))

	st := postgres.New(pool)
	if err := st.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return st
}

// NewSQLiteStore returns an in-memory store closed when the test ends.
func NewSQLiteStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.New(sqlite.MemoryPath)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// Approver answers every approval request with a fixed decision.
type Approver struct {
	Approve bool

	mu      sync.Mutex
	targets []string
}

func (a *Approver) RequestApproval(_ context.Context, target string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.targets = append(a.targets, target)
	return a.Approve, nil
}

// Targets returns the targets approval was requested for.
func (a *Approver) Targets() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.targets...)
}
