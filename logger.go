package renderq

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler drops every record. Enabled reports false, so disabled calls
// never build attributes.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from the render actor
// and any producer goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for renderq and its backends.
// By default, renderq produces no log output. Call SetLogger to enable logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by renderq:
//   - [slog.LevelDebug]: per-frame and per-command diagnostics
//   - [slog.LevelInfo]: lifecycle events (actor started, actor stopped)
//   - [slog.LevelWarn]: misuse that is not fatal (double destroy, leaks)
//   - [slog.LevelError]: fatal device and allocation failures, logged
//     before the fatal handler runs
//
// Example:
//
//	// Enable debug-level logging for full diagnostics:
//	renderq.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger used by renderq.
// Backends (backend/wgpuhal) call this to share the same logger
// configuration without introducing import cycles.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// rendererLogger tags every record with the label of one renderer. It
// rebuilds the tagged logger whenever SetLogger installs a new one. It is
// not safe for concurrent use; each actor owns one.
type rendererLogger struct {
	label string
	base  *slog.Logger
	log   *slog.Logger
}

func newRendererLogger(label string) *rendererLogger {
	return &rendererLogger{label: label}
}

// get returns the package logger with renderer=label attached.
func (r *rendererLogger) get() *slog.Logger {
	if base := Logger(); base != r.base {
		r.base = base
		r.log = base.With("renderer", r.label)
	}
	return r.log
}
