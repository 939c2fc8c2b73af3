// Package debug provides conditional debug logging for storymap.
//
// Debug logging is enabled by setting the STORYMAP_DEBUG environment variable
// or passing --debug:
//
//	STORYMAP_DEBUG=1 storymap serve story.json
//
// Messages go to stderr with timestamps unless redirected with SetOutput. The
// terminal UI redirects them to a file so they never draw over the alt
// screen. When disabled (default), all debug functions are no-ops.
//
// Usage:
//
//	debug.Log("navigating to slide %d", idx)
//	defer debug.LogEnterExit("buildLines")()
package debug

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

const prefix = "[STORYMAP_DEBUG] "

var (
	mu sync.Mutex
	// enabled is true when STORYMAP_DEBUG env var is set
	enabled bool
	out     io.Writer = os.Stderr
	logger  *log.Logger
)

func init() {
	if os.Getenv("STORYMAP_DEBUG") != "" {
		enabled = true
		logger = newLogger(out)
	}
}

func newLogger(w io.Writer) *log.Logger {
	return log.New(w, prefix, log.Ltime|log.Lmicroseconds)
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// SetEnabled allows programmatic control of debug logging.
func SetEnabled(e bool) {
	mu.Lock()
	defer mu.Unlock()
	enabled = e
	if e && logger == nil {
		logger = newLogger(out)
	}
}

// SetOutput redirects debug output. It returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	mu.Lock()
	defer mu.Unlock()
	prev := out
	out = w
	logger = newLogger(w)
	return prev
}

// current returns the logger when logging is on, nil otherwise.
func current() *log.Logger {
	mu.Lock()
	defer mu.Unlock()
	if !enabled {
		return nil
	}
	return logger
}

// Log writes a debug message if debug logging is enabled.
// Uses printf-style formatting.
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

// LogIf writes a debug message only if the condition is true.
func LogIf(cond bool, format string, args ...any) {
	if !cond {
		return
	}
	Log(format, args...)
}

// LogEnterExit logs function entry and exit with timing.
//
//	func buildLines() {
//	    defer debug.LogEnterExit("buildLines")()
//	}
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

// Dump logs a value with its type for debugging complex structures.
func Dump(name string, v any) {
	if l := current(); l != nil {
		l.Printf("%s: %T = %+v", name, v, v)
	}
}

// AssertNoError logs and panics if err is not nil.
// Only active when debug is enabled.
func AssertNoError(err error, context string) {
	l := current()
	if l == nil || err == nil {
		return
	}
	l.Printf("ASSERTION FAILED: %s: %v", context, err)
	panic(fmt.Sprintf("debug assertion failed: %s: %v", context, err))
}
