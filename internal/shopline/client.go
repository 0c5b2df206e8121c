// client.go -- Signed server-to-server token exchange.
package shopline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// successCode is the top-level code the platform returns for a successful call.
const successCode = 200

// tokenCreatePath is the token endpoint on every store's admin host.
const tokenCreatePath = "/admin/oauth/token/create"

// DefaultExchangeTimeout bounds a single token exchange round trip.
const DefaultExchangeTimeout = 10 * time.Second

// maxResponseBytes caps how much of the token endpoint's reply is read.
const maxResponseBytes = 1 << 20

// Client exchanges authorization codes for access tokens.
// Safe for concurrent use; holds no per-request state.
type Client struct {
	AppKey    string
	AppSecret string

	// Domain is the platform store domain. Empty means DefaultDomain.
	Domain string

	// HTTPClient performs the POST. Nil means http.DefaultClient.
	HTTPClient *http.Client

	// Timeout bounds one exchange. Zero means DefaultExchangeTimeout.
	Timeout time.Duration

	// BaseURL maps a handle to the store origin. Nil means StoreBaseURL(Domain, handle).
	// Tests point this at an httptest server.
	BaseURL func(handle string) string

	// Now is the clock used for the request timestamp. Nil means time.Now.
	Now func() time.Time
}

// NewClient returns a Client for the given app credentials with default transport settings.
func NewClient(appKey, appSecret, domain string, timeout time.Duration) *Client {
	return &Client{
		AppKey:     appKey,
		AppSecret:  appSecret,
		Domain:     domain,
		Timeout:    timeout,
		HTTPClient: &http.Client{},
	}
}

// tokenResponse is the envelope of every token/create reply.
type tokenResponse struct {
	Code     *int         `json:"code"`
	I18nCode string       `json:"i18nCode"`
	Message  string       `json:"message"`
	Data     *TokenResult `json:"data"`
}

// Exchange trades an authorization code for an access token with one signed POST.
// Never retries. Errors are *TransportError or *BusinessError.
func (c *Client) Exchange(ctx context.Context, handle, code string) (*TokenResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	body, err := encodeCodeBody(code)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("encoding request body: %w", err)}
	}
	timestamp := strconv.FormatInt(c.now().UnixMilli(), 10)
	sign := SignBody(body, timestamp, c.AppSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL(handle)+tokenCreatePath, strings.NewReader(body))
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("building request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("appkey", c.AppKey)
	req.Header.Set("timestamp", timestamp)
	req.Header.Set("sign", sign)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &TransportError{Err: ErrExchangeTimeout}
		}
		return nil, &TransportError{Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &TransportError{StatusCode: resp.StatusCode, Err: ErrExchangeTimeout}
		}
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: %v", ErrMalformedResponse, err)}
	}
	if tr.Code == nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: missing code", ErrMalformedResponse)}
	}
	if *tr.Code != successCode {
		return nil, &BusinessError{Code: *tr.Code, I18nCode: tr.I18nCode, Message: tr.Message}
	}
	if tr.Data == nil || tr.Data.AccessToken == "" {
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: missing access token", ErrMalformedResponse)}
	}
	return tr.Data, nil
}

// encodeCodeBody serializes {"code": code} exactly like JSON.stringify:
// no HTML escaping and no trailing newline. The signature covers these bytes.
func encodeCodeBody(code string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(struct {
		Code string `json:"code"`
	}{code}); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func (c *Client) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultExchangeTimeout
}

func (c *Client) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) baseURL(handle string) string {
	if c.BaseURL != nil {
		return c.BaseURL(handle)
	}
	domain := c.Domain
	if domain == "" {
		domain = DefaultDomain
	}
	return StoreBaseURL(domain, handle)
}
