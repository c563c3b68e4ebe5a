package retry

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes for transient conditions
// See: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgCodeSerializationFailure = "40001"
	pgCodeDeadlockDetected     = "40P01"
	pgCodeLockNotAvailable     = "55P03"
)

// transientClasses are SQLSTATE classes that are always retryable:
// 08 connection exception, 53 insufficient resources, 57 operator intervention.
var transientClasses = []string{"08", "53", "57"}

var transientMessages = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"server closed the connection",
	"unexpected eof",
	"too many connections",
	// SQLite
	"database is locked",
	"sqlite_busy",
	"database table is locked",
}

// StoreErrorClassifier recognizes transient PostgreSQL, SQLite and network errors.
type StoreErrorClassifier struct{}

// NewStoreErrorClassifier creates a new classifier.
func NewStoreErrorClassifier() *StoreErrorClassifier {
	return &StoreErrorClassifier{}
}

// IsTransient determines if an error is temporary and retryable.
// Context cancellation and deadline errors are never transient.
func (c *StoreErrorClassifier) IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return isTransientPgCode(pgErr.Code)
	}

	if isNetworkError(err) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range transientMessages {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

func isTransientPgCode(code string) bool {
	for _, class := range transientClasses {
		if strings.HasPrefix(code, class) {
			return true
		}
	}
	switch code {
	case pgCodeSerializationFailure, pgCodeDeadlockDetected, pgCodeLockNotAvailable:
		return true
	}
	return false
}

func isNetworkError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() {
			return true
		}
		return errors.Is(opErr.Err, syscall.ECONNREFUSED) ||
			errors.Is(opErr.Err, syscall.ECONNRESET) ||
			errors.Is(opErr.Err, syscall.ENETUNREACH) ||
			errors.Is(opErr.Err, syscall.EHOSTUNREACH)
	}
	return false
}
