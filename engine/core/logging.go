package core

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

var once sync.Once

// logger is read lock-free by the helpers. Writers serialize on mu so a
// derived logger never misses a concurrent level change.
type logger struct {
	mu      sync.Mutex
	current atomic.Pointer[log.Logger]
}

func (l *logger) load() *log.Logger {
	return l.current.Load()
}

var singleton *logger

// LogOptions controls the process-wide logger.
type LogOptions struct {
	Level        log.Level
	ReportCaller bool
	Output       io.Writer
}

func getLogger() *logger {
	once.Do(func() {
		singleton = &logger{}
		singleton.current.Store(newLogger(LogOptions{
			Level:        log.InfoLevel,
			ReportCaller: true,
			Output:       os.Stderr,
		}))
	})
	return singleton
}

func newLogger(opts LogOptions) *log.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	l := log.NewWithOptions(out, log.Options{
		ReportCaller:    opts.ReportCaller,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          "Meshlet 🔺 ",
		// the helpers below add one frame on top of the caller
		CallerOffset: 1,
	})
	l.SetLevel(opts.Level)
	return l
}

// LogInitialize replaces the process-wide logger. Safe to call more than once.
func LogInitialize(opts LogOptions) {
	l := getLogger()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.current.Store(newLogger(opts))
}

// SetLevel changes the verbosity of the process-wide logger at runtime.
func SetLevel(level log.Level) {
	l := getLogger()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.load().SetLevel(level)
}

func GetLevel() log.Level {
	return getLogger().load().GetLevel()
}

// ParseLevel maps a configuration string onto a log level.
func ParseLevel(level string) (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel, nil
	case "", "info":
		return log.InfoLevel, nil
	case "warn", "warning":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	case "fatal":
		return log.FatalLevel, nil
	}
	return log.InfoLevel, fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, level)
}

// LogWith attaches a key/value pair to every subsequent log line.
func LogWith(key string, value interface{}) {
	l := getLogger()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.current.Store(l.load().With(key, value))
}

func LogDebug(msg string, args ...interface{}) {
	getLogger().load().Debugf(msg, args...)
}

func LogInfo(msg string, args ...interface{}) {
	getLogger().load().Infof(msg, args...)
}

func LogWarn(msg string, args ...interface{}) {
	getLogger().load().Warnf(msg, args...)
}

func LogError(msg string, args ...interface{}) {
	getLogger().load().Errorf(msg, args...)
}

func LogFatal(msg string, args ...interface{}) {
	getLogger().load().Fatalf(msg, args...)
}
