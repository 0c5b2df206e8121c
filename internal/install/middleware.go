// middleware.go

// Platform signature middleware.
package install

import (
	"net/http"

	"github.com/MGallo-Code/obol/internal/shopline"
)

// VerifySignature rejects requests whose query sign does not match the rest of the
// query under the app secret. Returns 403 and records a rejection event on failure.
// rejectAction is the event action recorded for this route.
func (h *InstallHandler) VerifySignature(rejectAction string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			query := r.URL.Query()
			if err := shopline.CheckQuery(query, h.Cfg.AppSecret); err != nil {
				logWarn(r, "signature verification failed", "error", err)
				h.M.signatureChecked(routeName(r), false)
				h.recordEvent(r, query.Get("handle"), rejectAction, nil)
				InvalidSignature(w)
				return
			}
			logDebug(r, "signature verified")
			h.M.signatureChecked(routeName(r), true)
			next.ServeHTTP(w, r)
		})
	}
}
