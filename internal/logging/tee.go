package logging

import "github.com/vvka-141/crmingest/pkg/crmingest"

type tee []crmingest.Logger

// Tee fans every call out to all loggers, in order. Nil loggers are skipped.
func Tee(loggers ...crmingest.Logger) crmingest.Logger {
	var t tee
	for _, l := range loggers {
		if l != nil {
			t = append(t, l)
		}
	}
	if len(t) == 1 {
		return t[0]
	}
	return t
}

// contextual is implemented by loggers that can carry key/value context.
type contextual interface {
	With(keysAndValues ...interface{}) crmingest.Logger
}

// WithContext attaches key/value context to l when l supports it and returns l unchanged otherwise.
func WithContext(l crmingest.Logger, keysAndValues ...interface{}) crmingest.Logger {
	if c, ok := l.(contextual); ok {
		return c.With(keysAndValues...)
	}
	return l
}

// With attaches the context to every member that supports it.
func (t tee) With(keysAndValues ...interface{}) crmingest.Logger {
	out := make(tee, len(t))
	for i, l := range t {
		out[i] = WithContext(l, keysAndValues...)
	}
	return out
}

func (t tee) Verbose(format string, args ...interface{}) {
	for _, l := range t {
		l.Verbose(format, args...)
	}
}

func (t tee) Info(format string, args ...interface{}) {
	for _, l := range t {
		l.Info(format, args...)
	}
}

func (t tee) Warn(format string, args ...interface{}) {
	for _, l := range t {
		l.Warn(format, args...)
	}
}

func (t tee) Error(format string, args ...interface{}) {
	for _, l := range t {
		l.Error(format, args...)
	}
}
