// callback_handler.go -- GET /callback : authorization code exchange.
package install

import (
	"errors"
	"net/http"
	"time"

	"github.com/MGallo-Code/obol/internal/shopline"
	"github.com/MGallo-Code/obol/internal/store"
)

// callbackSuccessBody is returned on a completed install. The token itself never
// leaves the server in the response.
const callbackSuccessBody = "Authorization successful! Check server logs for installation details."

// Callback handles GET /callback after VerifySignature -- exchanges the authorization code
// for an access token and hands the token to the TokenSink.
// Returns 200 on success, 400 for a missing code or bad handle, 500 "Error: ..." when the exchange fails.
func (h *InstallHandler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	handle := query.Get("handle")
	code := query.Get("code")

	if !shopline.ValidHandle(handle) {
		logWarn(r, "callback: invalid handle")
		BadRequest(w, "Invalid handle")
		return
	}
	if code == "" {
		logWarn(r, "callback: missing code")
		BadRequest(w, "Missing code")
		return
	}

	start := time.Now()
	tok, err := h.EX.Exchange(r.Context(), handle, code)
	if err != nil {
		errCode, result := classifyExchangeError(err)
		h.M.exchangeFinished(result, time.Since(start))
		if result == resultBusinessError {
			logWarn(r, "callback: platform rejected token exchange", "i18n_code", errCode, "error", err)
		} else {
			logError(r, "callback: token exchange failed", "result", result, "error", err)
		}
		h.recordEvent(r, handle, store.ActionCallbackFailed, func(ev *store.InstallEvent) {
			ev.I18nCode = &errCode
		})
		ExchangeFailed(w, errCode)
		return
	}
	h.M.exchangeFinished(resultSuccess, time.Since(start))

	if h.TS != nil {
		if err := h.TS.Accept(r.Context(), handle, tok); err != nil {
			logError(r, "callback: token sink failed", "error", err)
		}
	}

	h.recordEvent(r, handle, store.ActionCallbackAuthorized, func(ev *store.InstallEvent) {
		ev.Scope = &tok.Scope
		ev.ExpireTime = &tok.ExpireTime
	})
	logInfo(r, "callback: authorization successful", "scope", tok.Scope, "expire_time", tok.ExpireTime)
	OK(w, callbackSuccessBody)
}

// Exchange outcome labels, shared by logs and metrics.
const (
	resultSuccess        = "success"
	resultBusinessError  = "business_error"
	resultTransportError = "transport_error"
	resultTimeout        = "timeout"
)

// classifyExchangeError maps an exchange error to the code shown after "Error: " and a result label.
// Business errors show the platform's i18nCode; everything else a fixed local identifier.
func classifyExchangeError(err error) (code, result string) {
	var be *shopline.BusinessError
	if errors.As(err, &be) {
		if be.I18nCode == "" {
			return "unknown_error", resultBusinessError
		}
		return be.I18nCode, resultBusinessError
	}
	if errors.Is(err, shopline.ErrExchangeTimeout) {
		return "exchange_timeout", resultTimeout
	}
	return "exchange_failed", resultTransportError
}
