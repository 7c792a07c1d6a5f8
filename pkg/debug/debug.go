// Package debug provides conditional debug logging for ft.
//
// Debug logging is enabled by setting the FT_DEBUG environment variable:
//
//	FT_DEBUG=1 ft browse
//
// When enabled, debug messages are written to stderr (or the file named by
// FT_DEBUG_FILE, useful while the TUI owns the terminal) with timestamps.
// When disabled, all debug functions are no-ops.
package debug

import (
	"io"
	"log"
	"os"
	"sync"
	"time"
)

var (
	mu      sync.Mutex
	enabled bool
	logger  *log.Logger
)

func init() {
	if os.Getenv("FT_DEBUG") == "" {
		return
	}
	var w io.Writer = os.Stderr
	if path := os.Getenv("FT_DEBUG_FILE"); path != "" {
		if f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
			w = f
		}
	}
	SetOutput(w)
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// SetOutput enables debug logging to w; a nil writer disables it.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		enabled = false
		logger = nil
		return
	}
	enabled = true
	logger = log.New(w, "[FT_DEBUG] ", log.Ltime|log.Lmicroseconds)
}

func current() *log.Logger {
	mu.Lock()
	defer mu.Unlock()
	if !enabled {
		return nil
	}
	return logger
}

// Log writes a debug message if debug logging is enabled.
func Log(format string, args ...any) {
	if l := current(); l != nil {
		l.Printf(format, args...)
	}
}

// LogTiming writes a timing message if debug logging is enabled.
func LogTiming(name string, d time.Duration) {
	if l := current(); l != nil {
		l.Printf("%s took %v", name, d)
	}
}

// LogEnterExit logs function entry and exit with timing.
//
//	defer debug.LogEnterExit("replant")()
func LogEnterExit(name string) func() {
	l := current()
	if l == nil {
		return func() {}
	}
	l.Printf("-> %s", name)
	start := time.Now()
	return func() {
		l.Printf("<- %s (%v)", name, time.Since(start))
	}
}
