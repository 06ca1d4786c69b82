// Package logging is the diagnostic file log. The TUI owns the terminal, so
// everything goes to <data-dir>/logs/marketmon-YYYY-MM-DD.log.
//
// The package-level helpers are no-ops until Init is called.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu sync.RWMutex
	// Logger is the global logger instance
	Logger *zap.SugaredLogger

	logFile *os.File
)

// Options configures Init.
type Options struct {
	// Dir is the data directory; logs go to Dir/logs.
	Dir     string
	Verbose bool
	Version string
}

// FileName returns the log file name for day t.
func FileName(t time.Time) string {
	return fmt.Sprintf("marketmon-%s.log", t.Format("2006-01-02"))
}

// Init opens today's log file and installs the global logger.
func Init(opts Options) error {
	logDir := filepath.Join(opts.Dir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return errors.Wrap(err, "create log directory")
	}

	f, err := os.OpenFile(filepath.Join(logDir, FileName(time.Now())), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrap(err, "open log file")
	}

	level := zapcore.InfoLevel
	if opts.Verbose {
		level = zapcore.DebugLevel
	}

	install(New(f, level), f)
	Info("marketmon started", "version", opts.Version, "pid", os.Getpid())
	return nil
}

// New builds a logger writing JSON lines to w at level.
func New(w zapcore.WriteSyncer, level zapcore.Level) *zap.SugaredLogger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "t"
	encCfg.EncodeTime = zapcore.RFC3339TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), w, zap.NewAtomicLevelAt(level))
	return zap.New(core).Sugar()
}

// SetLogger replaces the global logger and closes any log file opened by
// Init. Passing nil disables logging.
func SetLogger(l *zap.SugaredLogger) {
	install(l, nil)
}

func install(l *zap.SugaredLogger, f *os.File) {
	mu.Lock()
	defer mu.Unlock()
	Logger = l
	if logFile != nil && logFile != f {
		_ = logFile.Close()
	}
	logFile = f
}

// Close flushes and closes the log file
func Close() {
	Info("marketmon shutting down")

	mu.Lock()
	defer mu.Unlock()
	if Logger != nil {
		_ = Logger.Sync()
	}
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
	Logger = nil
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return Logger
}

// Info logs an info message
func Info(msg string, keyvals ...any) {
	if l := current(); l != nil {
		l.Infow(msg, keyvals...)
	}
}

// Debug logs a debug message
func Debug(msg string, keyvals ...any) {
	if l := current(); l != nil {
		l.Debugw(msg, keyvals...)
	}
}

// Warn logs a warning message
func Warn(msg string, keyvals ...any) {
	if l := current(); l != nil {
		l.Warnw(msg, keyvals...)
	}
}

// Error logs an error message
func Error(msg string, keyvals ...any) {
	if l := current(); l != nil {
		l.Errorw(msg, keyvals...)
	}
}
