// responses.go -- Package-wide HTTP response helpers.
//
// Every install-flow response is plain text; the merchant's browser shows it as is.
package install

import (
	"net/http"
)

// plainText writes a text/plain response with the given status and body.
func plainText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

// InvalidSignature returns 403 for a request whose sign does not verify.
func InvalidSignature(w http.ResponseWriter) {
	plainText(w, http.StatusForbidden, "Invalid signature")
}

// BadRequest returns 400 with the given message.
// Use for signed requests that are missing or carry malformed parameters.
func BadRequest(w http.ResponseWriter, message string) {
	plainText(w, http.StatusBadRequest, message)
}

// ExchangeFailed returns 500 with "Error: {code}".
// code is the platform's i18nCode for business errors, or a local identifier otherwise.
func ExchangeFailed(w http.ResponseWriter, code string) {
	plainText(w, http.StatusInternalServerError, "Error: "+code)
}

// OK returns 200 with the given message.
func OK(w http.ResponseWriter, message string) {
	plainText(w, http.StatusOK, message)
}
