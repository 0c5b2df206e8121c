// signature.go -- HMAC-SHA256 signing for SHOPLINE requests.
//
// Two canonicalizations exist and must not be mixed up:
//   - inbound GET requests: sorted key=value pairs joined by '&' (SignQuery)
//   - outbound POST requests: raw body followed by the timestamp (SignBody)
package shopline

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// SignParam is the query parameter carrying the platform's signature.
const SignParam = "sign"

// CanonicalQuery builds the HMAC source string for a signed GET request.
// The sign parameter is skipped, keys are sorted byte-wise and values are used
// exactly as the transport decoded them. Repeated keys are joined with ','.
func CanonicalQuery(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == SignParam {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strings.Join(params[k], ","))
	}
	return b.String()
}

// SignQuery returns the lowercase hex HMAC-SHA256 of CanonicalQuery(params).
func SignQuery(params url.Values, secret string) string {
	return hmacHex(secret, CanonicalQuery(params))
}

// VerifyQuery reports whether params carries a sign value matching the rest of params.
// A missing or empty sign is a failed verification, never an error.
func VerifyQuery(params url.Values, secret string) bool {
	given := params.Get(SignParam)
	if given == "" {
		return false
	}
	expected := SignQuery(params, secret)
	return hmac.Equal([]byte(expected), []byte(given))
}

// CheckQuery is VerifyQuery with a reason: nil when params verify, otherwise
// an error wrapping ErrInvalidSignature.
func CheckQuery(params url.Values, secret string) error {
	if params.Get(SignParam) == "" {
		return fmt.Errorf("%w: missing sign", ErrInvalidSignature)
	}
	if !VerifyQuery(params, secret) {
		return fmt.Errorf("%w: mismatch", ErrInvalidSignature)
	}
	return nil
}

// SignBody signs an outbound POST: HMAC-SHA256 over body+timestamp, no delimiter.
func SignBody(body, timestamp, secret string) string {
	return hmacHex(secret, body+timestamp)
}

func hmacHex(secret, source string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(source))
	return hex.EncodeToString(mac.Sum(nil))
}
