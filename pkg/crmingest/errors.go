package crmingest

import (
	"errors"
	"strings"
)

// Sentinel errors for common failure scenarios.
// Callers distinguish them with errors.Is():
//
//	report, err := svc.Run(ctx, cfg)
//	if errors.Is(err, crmingest.ErrSourceNotFound) {
//	    // the monthly export has not been dropped in yet
//	}
var (
	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrSourceNotFound indicates an expected export file is missing from the data directory.
	ErrSourceNotFound = errors.New("source file not found")

	// ErrInvalidSource indicates an export file could not be parsed (bad header, bad row values).
	ErrInvalidSource = errors.New("invalid source file")

	// ErrApprovalDenied indicates the user denied approval for a destructive operation.
	ErrApprovalDenied = errors.New("approval denied")

	// ErrLoadFailed indicates writing an entity to the database failed.
	ErrLoadFailed = errors.New("load failed")

	// ErrUnsupportedAuthMethod indicates the requested authentication method is not supported.
	ErrUnsupportedAuthMethod = errors.New("unsupported authentication method")

	// ErrUnsupportedBackend indicates an unknown storage backend was requested.
	ErrUnsupportedBackend = errors.New("unsupported storage backend")

	// ErrConnectionFailed indicates database connection failed.
	ErrConnectionFailed = errors.New("connection failed")
)

var usageErrorPatterns = []string{
	"unknown flag",
	"unknown shorthand flag",
	"unknown command",
	"accepts ",
	"required flag",
	"invalid argument",
	"flag needs an argument",
}

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrInvalidConfig),
		errors.Is(err, ErrUnsupportedAuthMethod),
		errors.Is(err, ErrUnsupportedBackend):
		return ExitConfigError
	case errors.Is(err, ErrConnectionFailed):
		return ExitConnectionError
	case errors.Is(err, ErrApprovalDenied):
		return ExitApprovalDenied
	case errors.Is(err, ErrLoadFailed):
		return ExitLoadFailed
	case errors.Is(err, ErrSourceNotFound):
		return ExitSourceMissing
	case errors.Is(err, ErrInvalidSource):
		return ExitInvalidSource
	}

	errStr := err.Error()
	for _, p := range usageErrorPatterns {
		if strings.Contains(errStr, p) {
			return ExitUsageError
		}
	}

	if strings.Contains(errStr, "failed to connect") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return ExitConnectionError
	}

	return ExitGeneralError
}
