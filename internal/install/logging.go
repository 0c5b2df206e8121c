// logging.go -- Request-scoped logging helpers.
//
// Every install-flow log line carries the request id, client, route and the
// store handle from the query, so handlers only pass what is specific to the event.
package install

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// reqAttrs returns request-scoped attributes for logging.
// The handle is logged as received, even when it fails validation.
func reqAttrs(r *http.Request) []any {
	attrs := []any{
		"ip", r.RemoteAddr,
		"user_agent", r.UserAgent(),
		"method", r.Method,
		"path", r.URL.Path,
	}
	if handle := r.URL.Query().Get("handle"); handle != "" {
		attrs = append(attrs, "handle", handle)
	}
	if id := middleware.GetReqID(r.Context()); id != "" {
		attrs = append(attrs, "request_id", id)
	}
	return attrs
}

// logAt logs msg at level with the request's attributes and context.
func logAt(r *http.Request, level slog.Level, msg string, args ...any) {
	ctx := r.Context()
	if !slog.Default().Enabled(ctx, level) {
		return
	}
	slog.Log(ctx, level, msg, append(reqAttrs(r), args...)...)
}

func logDebug(r *http.Request, msg string, args ...any) { logAt(r, slog.LevelDebug, msg, args...) }
func logInfo(r *http.Request, msg string, args ...any)  { logAt(r, slog.LevelInfo, msg, args...) }
func logWarn(r *http.Request, msg string, args ...any)  { logAt(r, slog.LevelWarn, msg, args...) }
func logError(r *http.Request, msg string, args ...any) { logAt(r, slog.LevelError, msg, args...) }

