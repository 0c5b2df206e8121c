// handler.go -- InstallHandler and the collaborators it depends on.
package install

import (
	"context"
	"net/http"

	"github.com/MGallo-Code/obol/internal/config"
	"github.com/MGallo-Code/obol/internal/shopline"
	"github.com/MGallo-Code/obol/internal/store"
	"github.com/gofrs/uuid/v5"
)

// Exchanger trades an authorization code for an access token.
// Satisfied by *shopline.Client.
type Exchanger interface {
	Exchange(ctx context.Context, handle, code string) (*shopline.TokenResult, error)
}

// EventRecorder persists install audit events.
// Satisfied by *store.PostgresStore, *store.QueuedRecorder and store.NopRecorder.
type EventRecorder interface {
	RecordEvent(ctx context.Context, ev store.InstallEvent) error
}

// TokenSink receives every freshly issued token. This service stores nothing itself;
// a sink is where a hosting process hooks in its own persistence.
type TokenSink interface {
	Accept(ctx context.Context, handle string, tok *shopline.TokenResult) error
}

// HealthChecker reports backend reachability for GET /health.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// InstallHandler holds dependencies for the install flow handlers and middleware.
// Cfg is built once at startup and never mutated.
type InstallHandler struct {
	Cfg *config.Config
	EX  Exchanger
	EV  EventRecorder
	TS  TokenSink
	M   *Metrics

	// Backends reported by CheckHealth. store.NopRecorder reports "disabled".
	DB    HealthChecker
	Queue HealthChecker
}

// recordEvent stamps request metadata onto an install event and records it.
// Failures are logged and never affect the response.
func (h *InstallHandler) recordEvent(r *http.Request, handle, action string, fill func(*store.InstallEvent)) {
	if h.EV == nil {
		return
	}
	id, err := uuid.NewV7()
	if err != nil {
		logWarn(r, "install event: failed to generate id", "error", err)
		return
	}
	ip := r.RemoteAddr
	ua := r.UserAgent()
	ev := store.InstallEvent{
		ID:        id,
		Handle:    handle,
		Action:    action,
		IPAddress: &ip,
		UserAgent: &ua,
	}
	if fill != nil {
		fill(&ev)
	}
	if err := h.EV.RecordEvent(r.Context(), ev); err != nil {
		logWarn(r, "install event: failed to record", "error", err, "action", action)
	}
}
