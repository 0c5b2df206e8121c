// authorize.go -- Merchant-facing authorization page URL.
package shopline

import (
	"net/url"
	"regexp"
	"strings"
)

// DefaultDomain is the platform's store domain; stores live at {handle}.DefaultDomain.
const DefaultDomain = "myshopline.com"

// handlePattern accepts a single DNS label. Handles become part of a hostname.
var handlePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9-]{0,62}$`)

// ValidHandle reports whether handle is safe to use as a store subdomain.
func ValidHandle(handle string) bool {
	return handlePattern.MatchString(handle)
}

// StoreBaseURL returns https://{handle}.{domain}.
func StoreBaseURL(domain, handle string) string {
	return "https://" + handle + "." + domain
}

// AuthorizationURL builds the consent page URL the merchant is redirected to on install.
//
// Only redirectUri is percent-encoded. appKey and scope go in raw, which is what the
// platform has always received from us; a key or scope containing '&', '#' or '='
// would corrupt the query.
func AuthorizationURL(domain, handle, appKey string, scopes []string, callbackURL string) string {
	var b strings.Builder
	b.WriteString(StoreBaseURL(domain, handle))
	b.WriteString("/admin/oauth-web/#/oauth/authorize?")
	b.WriteString("appKey=" + appKey)
	b.WriteString("&responseType=code")
	b.WriteString("&scope=" + strings.Join(scopes, ","))
	b.WriteString("&redirectUri=" + url.QueryEscape(callbackURL))
	return b.String()
}
