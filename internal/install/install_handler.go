// install_handler.go -- GET / : entry point the platform sends the merchant to on install.
package install

import (
	"net/http"

	"github.com/MGallo-Code/obol/internal/shopline"
	"github.com/MGallo-Code/obol/internal/store"
)

// Install handles GET / after VerifySignature -- redirects the merchant to the store's
// authorization page with the configured scopes and callback URL.
// Returns 302 on success, 400 if the signed handle is missing or not a valid subdomain.
func (h *InstallHandler) Install(w http.ResponseWriter, r *http.Request) {
	handle := r.URL.Query().Get("handle")
	if !shopline.ValidHandle(handle) {
		logWarn(r, "install: invalid handle")
		BadRequest(w, "Invalid handle")
		return
	}

	authURL := shopline.AuthorizationURL(h.Cfg.PlatformDomain, handle, h.Cfg.AppKey, h.Cfg.Scopes, h.Cfg.CallbackURL)

	h.recordEvent(r, handle, store.ActionInstallRedirected, nil)
	logInfo(r, "install: redirecting to authorization page")
	http.Redirect(w, r, authURL, http.StatusFound)
}
