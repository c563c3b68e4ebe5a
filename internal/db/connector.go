package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/crmingest/internal/retry"
	"github.com/vvka-141/crmingest/pkg/crmingest"
)

// Connection pool configuration constants
const (
	// DefaultMaxConns caps the pool. The load path holds one connection per transaction.
	DefaultMaxConns = 4

	// DefaultMinConns maintains at least one connection in the pool.
	DefaultMinConns = 1

	// DefaultMaxConnIdleTime keeps connections alive across the steps of a run.
	DefaultMaxConnIdleTime = 30 * time.Minute
)

func configurePool(poolConfig *pgxpool.Config, logger crmingest.Logger) {
	poolConfig.MaxConns = DefaultMaxConns
	poolConfig.MinConns = DefaultMinConns
	poolConfig.MaxConnIdleTime = DefaultMaxConnIdleTime
	poolConfig.ConnConfig.OnNotice = func(_ *pgconn.PgConn, notice *pgconn.Notice) {
		logger.Verbose("postgres %s: %s", strings.ToLower(notice.Severity), notice.Message)
	}
}

// openPool parses connStr, opens a pool and pings it.
func openPool(ctx context.Context, connStr string, cfg *crmingest.ConnectionConfig, logger crmingest.Logger, tune func(*pgxpool.Config)) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %v: %w", err, crmingest.ErrInvalidConfig)
	}
	configurePool(poolConfig, logger)
	if tune != nil {
		tune(poolConfig)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, wrapConnectionError(err, cfg)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, wrapConnectionError(err, cfg)
	}
	return pool, nil
}

// StandardConnector connects with username/password and retries transient failures.
type StandardConnector struct {
	config   *crmingest.ConnectionConfig
	executor *retry.Executor
	logger   crmingest.Logger
}

// NewStandardConnector uses the default retry policy
// (DefaultRetryMaxAttempts, exponential backoff from DefaultRetryInitialDelay).
func NewStandardConnector(config *crmingest.ConnectionConfig, logger crmingest.Logger) *StandardConnector {
	return &StandardConnector{
		config:   config,
		executor: retry.NewDefaultExecutor().WithOnRetry(logRetry(logger, "connect")),
		logger:   logger,
	}
}

func (c *StandardConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	connStr := BuildConnectionString(c.config)

	err := c.executor.Execute(ctx, func(ctx context.Context) error {
		var err error
		pool, err = openPool(ctx, connStr, c.config, c.logger, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// NewConnector picks the Connector for config.AuthMethod.
func NewConnector(config *crmingest.ConnectionConfig, logger crmingest.Logger) (crmingest.Connector, error) {
	switch config.AuthMethod {
	case crmingest.AuthMethodStandard:
		return NewStandardConnector(config, logger), nil
	case crmingest.AuthMethodAWSIAM:
		endpoint := fmt.Sprintf("%s:%d", config.Host, config.Port)
		provider, err := NewAWSIAMTokenProvider(endpoint, config.AWSRegion, config.Username)
		if err != nil {
			return nil, err
		}
		return NewTokenBasedConnector(config, provider, logger), nil
	case crmingest.AuthMethodGoogleIAM:
		return NewGoogleCloudSQLConnector(config, logger)
	case crmingest.AuthMethodAzureEntraID:
		provider, err := NewAzureTokenProvider(config.AzureTenantID, config.AzureClientID, config.AzureClientSecret)
		if err != nil {
			return nil, err
		}
		return NewTokenBasedConnector(config, provider, logger), nil
	default:
		return nil, fmt.Errorf("unsupported auth method %v: %w", config.AuthMethod, crmingest.ErrUnsupportedAuthMethod)
	}
}

func logRetry(logger crmingest.Logger, what string) func(int, error, time.Duration) {
	return func(attempt int, err error, delay time.Duration) {
		logger.Warn("%s failed (attempt %d), retrying in %v: %v", what, attempt, delay.Round(time.Millisecond), err)
	}
}

// wrapConnectionError rewrites raw pgx connection errors with actionable hints.
// The result matches both crmingest.ErrConnectionFailed and the original error.
func wrapConnectionError(err error, cfg *crmingest.ConnectionConfig) error {
	errStr := strings.ToLower(err.Error())
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	var hint string
	switch {
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "actively refused"):
		hint = fmt.Sprintf(`connection refused to %s

Possible causes:
  - PostgreSQL is not running (check: pg_isready -h %s -p %d)
  - Wrong host or port
  - For a local run without a server, use --backend sqlite`, addr, cfg.Host, cfg.Port)

	case strings.Contains(errStr, "no such host") || strings.Contains(errStr, "no host"):
		hint = fmt.Sprintf(`cannot resolve host "%s"

Possible causes:
  - Hostname is misspelled in crmingest.yaml or $PGHOST
  - DNS is not configured or reachable`, cfg.Host)

	case strings.Contains(errStr, "password authentication failed"):
		hint = fmt.Sprintf(`password authentication failed for user "%s"

Possible causes:
  - Wrong password (check $PGPASSWORD or ~/.pgpass)
  - Wrong username
  - User does not have access to database "%s"`, cfg.Username, cfg.Database)

	case strings.Contains(errStr, "does not exist"):
		hint = fmt.Sprintf(`database "%s" does not exist

To create it:
  createdb %s
then run:
  crmingest schema init`, cfg.Database, cfg.Database)

	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out"):
		hint = fmt.Sprintf(`connection timed out to %s

Possible causes:
  - Server is overloaded or unresponsive
  - Firewall silently dropping packets
  - Wrong host/port (server not listening)`, addr)

	case strings.Contains(errStr, "ssl") || strings.Contains(errStr, "tls"):
		hint = `SSL/TLS connection error

Possible causes:
  - Server requires SSL but --sslmode is wrong
  - Certificate verification failed (try --sslmode=require)
  - Client certificates missing (check connection.sslcert and connection.sslkey)`

	case strings.Contains(errStr, "too many connections"):
		hint = fmt.Sprintf(`too many connections to database "%s"

Possible causes:
  - max_connections limit reached in postgresql.conf
  - Another ingest run is still holding connections`, cfg.Database)

	default:
		return fmt.Errorf("failed to connect to %s: %w: %w", Describe(cfg), crmingest.ErrConnectionFailed, err)
	}

	return fmt.Errorf("%s\n\n%w\nOriginal error: %w", hint, crmingest.ErrConnectionFailed, err)
}
