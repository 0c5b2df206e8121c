// sink.go -- Default TokenSink.
package install

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"

	"github.com/MGallo-Code/obol/internal/shopline"
)

// LogSink logs each issued token's metadata and a short fingerprint, never the token.
// The fingerprint lets an operator match a log line to a token held elsewhere.
type LogSink struct{}

// Accept implements TokenSink.
func (LogSink) Accept(_ context.Context, handle string, tok *shopline.TokenResult) error {
	ot := tok.Token()
	slog.Info("access token issued",
		"handle", handle,
		"scope", tok.Scope,
		"token_type", ot.Type(),
		"expire_time", tok.ExpireTime,
		"expires_at", ot.Expiry,
		"token_fingerprint", Fingerprint(tok.AccessToken),
	)
	return nil
}

// Fingerprint returns the first 12 hex chars of SHA-256(token).
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])[:12]
}
