package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vvka-141/crmingest/pkg/crmingest"
)

// FileLogger appends JSON lines to <dir>/<name>.log through zap.
type FileLogger struct {
	name   string
	file   *os.File
	logger *zap.SugaredLogger
}

// OpenFileLogger opens (or creates) <dir>/<name>.log in append mode.
// Verbose messages are recorded at debug level and only kept when verbose is true.
func OpenFileLogger(dir, name string, verbose bool) (*FileLogger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, name+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}

	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), zap.NewAtomicLevelAt(level))

	return &FileLogger{
		name:   name,
		file:   f,
		logger: zap.New(core).Named(name).Sugar(),
	}, nil
}

// Name returns the log name (for entity logs, the entity).
func (l *FileLogger) Name() string { return l.name }

// Path returns the file being written.
func (l *FileLogger) Path() string { return l.file.Name() }

func (l *FileLogger) Verbose(format string, args ...interface{}) { l.logger.Debugf(format, args...) }
func (l *FileLogger) Info(format string, args ...interface{})    { l.logger.Infof(format, args...) }
func (l *FileLogger) Warn(format string, args ...interface{})    { l.logger.Warnf(format, args...) }
func (l *FileLogger) Error(format string, args ...interface{})   { l.logger.Errorf(format, args...) }

// With returns a logger that adds key/value context to every entry, e.g. the run id.
func (l *FileLogger) With(keysAndValues ...interface{}) crmingest.Logger {
	return &FileLogger{name: l.name, file: l.file, logger: l.logger.With(keysAndValues...)}
}

// Close flushes and closes the file.
func (l *FileLogger) Close() error {
	_ = l.logger.Sync()
	return l.file.Close()
}

// Set holds one FileLogger per name under a directory, opened lazily.
type Set struct {
	dir     string
	verbose bool
	console crmingest.Logger

	mu   sync.Mutex
	logs map[string]*FileLogger
}

// NewSet returns a Set writing under dir. Loggers returned by For also write to console.
func NewSet(dir string, console crmingest.Logger, verbose bool) *Set {
	return &Set{dir: dir, verbose: verbose, console: console, logs: make(map[string]*FileLogger)}
}

// For returns the logger for name (e.g. "clients", "export"), tee'd to the console.
// If the file cannot be opened, the console logger is returned and the failure reported on it.
func (s *Set) For(name string) crmingest.Logger {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fl, ok := s.logs[name]; ok {
		return Tee(s.console, fl)
	}
	fl, err := OpenFileLogger(s.dir, name, s.verbose)
	if err != nil {
		s.console.Warn("file logging disabled for %s: %v", name, err)
		return s.console
	}
	s.logs[name] = fl
	s.console.Verbose("%s log: %s", name, fl.Path())
	return Tee(s.console, fl)
}

// Close closes every opened file.
func (s *Set) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var first error
	for name, fl := range s.logs {
		if err := fl.Close(); err != nil && first == nil {
			first = err
		}
		delete(s.logs, name)
	}
	return first
}
