package logging

// NullLogger discards all log messages.
// Useful for testing and when logging is not desired.
type NullLogger struct{}

func NewNullLogger() *NullLogger {
	return &NullLogger{}
}

func (l *NullLogger) Verbose(format string, args ...interface{}) {}
func (l *NullLogger) Info(format string, args ...interface{})    {}
func (l *NullLogger) Warn(format string, args ...interface{})    {}
func (l *NullLogger) Error(format string, args ...interface{})   {}
