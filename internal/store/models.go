package store

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
)

// ErrRecorderDisabled is returned by NopRecorder.CheckHealth when no backend is configured.
// Callers use errors.Is to distinguish "not configured" from a real infrastructure failure.
var ErrRecorderDisabled = errors.New("recorder disabled")

// Install event actions. Constrained by a CHECK in the install_events table.
const (
	ActionInstallRedirected  = "install.redirected"
	ActionInstallRejected    = "install.rejected"
	ActionCallbackAuthorized = "callback.authorized"
	ActionCallbackFailed     = "callback.failed"
	ActionCallbackRejected   = "callback.rejected"
)

// InstallEvent represents a row in the install_events table.
// Nullable columns are pointers; nil means SQL NULL.
// Never carries an access token or authorization code.
type InstallEvent struct {
	ID         uuid.UUID `json:"id"`
	Handle     string    `json:"handle"`
	Action     string    `json:"action"`
	I18nCode   *string   `json:"i18n_code,omitempty"`
	Scope      *string   `json:"scope,omitempty"`
	ExpireTime *int64    `json:"expire_time,omitempty"`
	IPAddress  *string   `json:"ip_address,omitempty"`
	UserAgent  *string   `json:"user_agent,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// EventRecorder persists install events.
// Satisfied by *PostgresStore, *QueuedRecorder and NopRecorder.
type EventRecorder interface {
	RecordEvent(ctx context.Context, ev InstallEvent) error
}

// NopRecorder drops every event. Used when DATABASE_URL is not configured.
type NopRecorder struct{}

func (NopRecorder) RecordEvent(context.Context, InstallEvent) error { return nil }

// CheckHealth always reports ErrRecorderDisabled.
func (NopRecorder) CheckHealth(context.Context) error { return ErrRecorderDisabled }
