// Package log provides structured logging for relcomp. It wraps
// charmbracelet/log with a category field and is enabled via the --debug
// flag or the RELCOMP_DEBUG env var; when disabled only warnings and
// errors reach stderr.
package log

import (
	"os"
	"sync"

	charmlog "github.com/charmbracelet/log"
)

// Category groups related log messages.
type Category string

const (
	CatGit      Category = "git"      // git executor invocations
	CatSnapshot Category = "snapshot" // snapshot loading and caching
	CatStore    Category = "store"    // metadata store writes and commits
	CatResolve  Category = "resolve"  // constraint resolution
	CatVerify   Category = "verify"   // snapshot comparison and verification
	CatConfig   Category = "config"   // configuration loading
)

var (
	mu     sync.Mutex
	logger = newLogger(false)
)

func newLogger(debug bool) *charmlog.Logger {
	l := charmlog.New(os.Stderr)
	if debug {
		l.SetLevel(charmlog.DebugLevel)
		l.SetReportTimestamp(true)
	} else {
		l.SetLevel(charmlog.WarnLevel)
	}
	return l
}

// SetDebug toggles debug-level output.
func SetDebug(debug bool) {
	mu.Lock()
	defer mu.Unlock()
	logger = newLogger(debug)
}

// Debug logs at debug level.
func Debug(cat Category, msg string, fields ...any) {
	logger.Debug(msg, append([]any{"cat", cat}, fields...)...)
}

// Info logs at info level.
func Info(cat Category, msg string, fields ...any) {
	logger.Info(msg, append([]any{"cat", cat}, fields...)...)
}

// Warn logs at warning level.
func Warn(cat Category, msg string, fields ...any) {
	logger.Warn(msg, append([]any{"cat", cat}, fields...)...)
}

// Error logs at error level.
func Error(cat Category, msg string, fields ...any) {
	logger.Error(msg, append([]any{"cat", cat}, fields...)...)
}
