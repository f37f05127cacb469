// Package debug provides conditional debug logging for jscope.
//
// Debug logging is enabled by setting the JSCOPE_DEBUG environment variable:
//
//	JSCOPE_DEBUG=1 jscope --print graph.json
//
// When disabled (the default) every function returns immediately.
package debug

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const prefix = "[JSCOPE_DEBUG] "

var (
	enabled atomic.Bool

	mu     sync.Mutex
	logger = log.New(os.Stderr, prefix, log.Ltime|log.Lmicroseconds)

	checkpoints atomic.Int64
)

func init() {
	if os.Getenv("JSCOPE_DEBUG") != "" {
		enabled.Store(true)
	}
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	return enabled.Load()
}

// SetEnabled toggles debug logging at runtime.
func SetEnabled(e bool) {
	enabled.Store(e)
}

// SetOutput redirects debug output. Tests use it to capture logs.
func SetOutput(w io.Writer) {
	mu.Lock()
	logger = log.New(w, prefix, log.Ltime|log.Lmicroseconds)
	mu.Unlock()
}

func printf(format string, args ...any) {
	mu.Lock()
	l := logger
	mu.Unlock()
	l.Printf(format, args...)
}

// Log writes a printf-style debug message.
func Log(format string, args ...any) {
	if !enabled.Load() {
		return
	}
	printf(format, args...)
}

// LogTiming writes "name took d".
func LogTiming(name string, d time.Duration) {
	if !enabled.Load() {
		return
	}
	printf("%s took %v", name, d)
}

// LogEnterExit logs entry immediately and exit with elapsed time when the
// returned function runs:
//
//	defer debug.LogEnterExit("ApplyFilter")()
func LogEnterExit(name string) func() {
	if !enabled.Load() {
		return func() {}
	}
	printf("-> %s", name)
	start := time.Now()
	return func() {
		printf("<- %s (%v)", name, time.Since(start))
	}
}

// Dump logs a value with its type.
func Dump(name string, v any) {
	if !enabled.Load() {
		return
	}
	printf("%s: %T = %+v", name, v, v)
}

// Section logs a header line.
func Section(name string) {
	if !enabled.Load() {
		return
	}
	printf("=== %s ===", name)
}

// Checkpoint logs a numbered progress marker.
func Checkpoint(msg string) {
	if !enabled.Load() {
		return
	}
	printf("[%d] %s", checkpoints.Add(1), msg)
}

// ResetCheckpoints resets the checkpoint counter.
func ResetCheckpoints() {
	checkpoints.Store(0)
}

// Assert panics with msg when cond is false. Only active when enabled.
func Assert(cond bool, msg string) {
	if !enabled.Load() || cond {
		return
	}
	printf("ASSERTION FAILED: %s", msg)
	panic(fmt.Sprintf("debug assertion failed: %s", msg))
}
