package arbor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

var (
	hooksMu     sync.RWMutex
	loggerHooks []func(*slog.Logger)
)

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for arbor and all its sub-packages.
// By default arbor produces no log output.
//
// Pass nil to restore the default silent behavior.
//
// Log levels used by arbor:
//   - [slog.LevelDebug]: per-generation and per-pass diagnostics
//   - [slog.LevelInfo]: lifecycle events (device selected, run finished)
//   - [slog.LevelWarn]: degraded inputs and fallbacks (broken guards, CPU fallback)
//
// Example:
//
//	arbor.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	hooksMu.RLock()
	hs := append([]func(*slog.Logger){}, loggerHooks...)
	hooksMu.RUnlock()
	for _, h := range hs {
		h(l)
	}
}

// Logger returns the current logger used by arbor.
// Sub-packages call this to share one logger configuration.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// OnLoggerChange registers fn to be called with the new logger every time
// SetLogger runs. Packages that cannot import arbor (device backends living
// behind build tags) use it to receive the logger.
func OnLoggerChange(fn func(*slog.Logger)) {
	if fn == nil {
		return
	}
	hooksMu.Lock()
	loggerHooks = append(loggerHooks, fn)
	hooksMu.Unlock()
	fn(Logger())
}
