package crmingest

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess         = 0  // Run completed successfully
	ExitGeneralError    = 1  // Unknown or unclassified error
	ExitUsageError      = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic           = 3  // Internal panic (unexpected crash)
	ExitConfigError     = 10 // Invalid configuration or parameters
	ExitConnectionError = 11 // Failed to connect to database
	ExitApprovalDenied  = 12 // User denied a destructive operation
	ExitLoadFailed      = 13 // Writing to the database failed
	ExitSourceMissing   = 14 // Expected export file not found
	ExitInvalidSource   = 15 // Export file could not be parsed
)

const (
	// DefaultForceApprovalCountdown is the countdown duration before force approval proceeds.
	DefaultForceApprovalCountdown = 5 * time.Second

	// DefaultRetryInitialDelay is the default initial delay before the first retry attempt.
	DefaultRetryInitialDelay = 100 * time.Millisecond

	// DefaultRetryMaxDelay is the default maximum delay between retry attempts.
	DefaultRetryMaxDelay = 1 * time.Minute

	// DefaultRetryMaxAttempts is the default maximum number of retry attempts.
	DefaultRetryMaxAttempts = 3

	// DefaultTimeout bounds a whole ingest or export run.
	DefaultTimeout = 10 * time.Minute

	// MaxRowErrorsShown caps how many row errors are printed when a file fails to parse.
	MaxRowErrorsShown = 20

	// ClientsFileName is the fixed name of the clients export inside its year directory.
	ClientsFileName = "Clients.csv"
)
