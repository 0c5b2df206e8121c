// token.go -- Access token returned by a successful exchange.
package shopline

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// TokenResult is the data object of a successful token/create reply.
// It only lives for the duration of one callback request; nothing here persists it.
type TokenResult struct {
	AccessToken string `json:"accessToken"`
	ExpireTime  int64  `json:"expireTime"` // as sent by the platform, Unix milliseconds
	Scope       string `json:"scope"`
}

// Expiry converts ExpireTime to a time.Time. Zero ExpireTime gives the zero time.
func (t *TokenResult) Expiry() time.Time {
	if t.ExpireTime == 0 {
		return time.Time{}
	}
	return time.UnixMilli(t.ExpireTime)
}

// Token returns the result as a bearer *oauth2.Token with the scope attached as an extra.
func (t *TokenResult) Token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken: t.AccessToken,
		TokenType:   "Bearer",
		Expiry:      t.Expiry(),
	}
	return tok.WithExtra(map[string]any{"scope": t.Scope})
}

// HTTPClient returns a client that authorizes every request with this token.
// No refresh is attempted; once the token expires requests fail upstream.
func (t *TokenResult) HTTPClient(ctx context.Context) *http.Client {
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(t.Token()))
}
