package flowline

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler drops every record and reports every level disabled.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var (
	silent = slog.New(nopHandler{})

	current atomic.Pointer[slog.Logger]
)

func init() {
	current.Store(silent)
}

// SetLogger routes flowline's logs, including those of the worker package,
// to l. Nothing is logged until it is called; nil silences logging again.
// The logger is looked up on every call, so running generators and servers
// switch over immediately.
//
// Debug records carry per-request sizes. Info marks generator start and
// stop and server listen. Warn marks dropped work: stale results, bad
// frames, oversized messages.
//
//	flowline.SetLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = silent
	}
	current.Store(l)
}

// Logger returns the logger set by SetLogger. It is never nil.
func Logger() *slog.Logger {
	return current.Load()
}
