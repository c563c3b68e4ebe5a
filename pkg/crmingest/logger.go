package crmingest

// Logger provides a pluggable logging interface for ingest operations.
// Implementations must be safe for concurrent use by multiple goroutines.
type Logger interface {
	// Verbose logs detailed diagnostic information.
	// Only logged when verbose mode is enabled.
	Verbose(format string, args ...interface{})

	// Info logs informational messages about normal operations.
	Info(format string, args ...interface{})

	// Warn logs data-quality findings that do not stop a run
	// (missing columns, orphan names, case mismatches).
	Warn(format string, args ...interface{})

	// Error logs error messages.
	Error(format string, args ...interface{})
}
