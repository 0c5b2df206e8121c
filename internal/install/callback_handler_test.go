package install

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/MGallo-Code/obol/internal/shopline"
	"github.com/MGallo-Code/obol/internal/store"
	"github.com/MGallo-Code/obol/internal/testutil"
)

// callbackTarget returns a signed /callback URL for handle and code.
func callbackTarget(handle, code string) string {
	return "/callback?" + signedQuery(url.Values{"handle": {handle}, "code": {code}, "timestamp": {"1700000000000"}})
}

func TestCallback_Success(t *testing.T) {
	ex := &testutil.MockExchanger{Result: &shopline.TokenResult{AccessToken: "tok-secret", ExpireTime: 123, Scope: "read_products"}}
	h, rec, sink := newTestHandler(ex)

	w := serve(http.HandlerFunc(h.Callback), callbackTarget("shop1", "auth-code"))

	assertPlain(t, w, http.StatusOK, callbackSuccessBody)
	if strings.Contains(w.Body.String(), "tok-secret") {
		t.Error("response body must not contain the access token")
	}

	if ex.CallCount() != 1 {
		t.Fatalf("Exchange calls: expected 1, got %d", ex.CallCount())
	}
	if c := ex.Calls[0]; c.Handle != "shop1" || c.Code != "auth-code" {
		t.Errorf("Exchange args: got handle=%q code=%q", c.Handle, c.Code)
	}

	if tok := sink.Token("shop1"); tok == nil || tok.AccessToken != "tok-secret" {
		t.Errorf("sink: expected token for shop1, got %+v", tok)
	}

	evs := rec.Events()
	if len(evs) != 1 || evs[0].Action != store.ActionCallbackAuthorized {
		t.Fatalf("events: expected [callback.authorized], got %v", rec.Actions())
	}
	if evs[0].Scope == nil || *evs[0].Scope != "read_products" {
		t.Errorf("event scope: got %v", evs[0].Scope)
	}
	if evs[0].ExpireTime == nil || *evs[0].ExpireTime != 123 {
		t.Errorf("event expire_time: got %v", evs[0].ExpireTime)
	}
}

func TestCallback_ExchangeFailures(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantBody string
	}{
		{"business error shows i18nCode", &shopline.BusinessError{Code: 400, I18nCode: "invalid_code"}, "Error: invalid_code"},
		{"business error without i18nCode", &shopline.BusinessError{Code: 500}, "Error: unknown_error"},
		{"transport error", &shopline.TransportError{StatusCode: 502, Err: errors.New("bad gateway")}, "Error: exchange_failed"},
		{"malformed response", &shopline.TransportError{StatusCode: 200, Err: fmt.Errorf("%w: eof", shopline.ErrMalformedResponse)}, "Error: exchange_failed"},
		{"timeout", &shopline.TransportError{Err: shopline.ErrExchangeTimeout}, "Error: exchange_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, rec, sink := newTestHandler(&testutil.MockExchanger{Err: tt.err})

			w := serve(http.HandlerFunc(h.Callback), callbackTarget("shop1", "auth-code"))

			assertPlain(t, w, http.StatusInternalServerError, tt.wantBody)
			if sink.Token("shop1") != nil {
				t.Error("sink must not receive a token on failure")
			}
			evs := rec.Events()
			if len(evs) != 1 || evs[0].Action != store.ActionCallbackFailed {
				t.Fatalf("events: expected [callback.failed], got %v", rec.Actions())
			}
			wantCode := strings.TrimPrefix(tt.wantBody, "Error: ")
			if evs[0].I18nCode == nil || *evs[0].I18nCode != wantCode {
				t.Errorf("event i18n_code: expected %q, got %v", wantCode, evs[0].I18nCode)
			}
		})
	}
}

func TestCallback_BadInput(t *testing.T) {
	tests := []struct {
		name     string
		params   url.Values
		wantBody string
	}{
		{"missing code", url.Values{"handle": {"shop1"}}, "Missing code"},
		{"empty code", url.Values{"handle": {"shop1"}, "code": {""}}, "Missing code"},
		{"missing handle", url.Values{"code": {"c"}}, "Invalid handle"},
		{"handle with host", url.Values{"handle": {"evil.com#"}, "code": {"c"}}, "Invalid handle"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := &testutil.MockExchanger{}
			h, _, _ := newTestHandler(ex)

			w := serve(http.HandlerFunc(h.Callback), "/callback?"+signedQuery(tt.params))

			assertPlain(t, w, http.StatusBadRequest, tt.wantBody)
			if ex.CallCount() != 0 {
				t.Error("Exchange must not be called")
			}
		})
	}
}

func TestCallback_SinkAndRecorderFailuresAreNonFatal(t *testing.T) {
	ex := &testutil.MockExchanger{Result: &shopline.TokenResult{AccessToken: "tok", Scope: "read_products"}}
	h, _, _ := newTestHandler(ex)
	h.TS = &testutil.MockSink{Err: errors.New("vault unavailable")}
	h.EV = &testutil.MockRecorder{Err: errors.New("queue down")}

	w := serve(http.HandlerFunc(h.Callback), callbackTarget("shop1", "auth-code"))

	assertPlain(t, w, http.StatusOK, callbackSuccessBody)
}

func TestCallback_NilSinkAndRecorder(t *testing.T) {
	ex := &testutil.MockExchanger{Result: &shopline.TokenResult{AccessToken: "tok"}}
	h := &InstallHandler{Cfg: testConfig(), EX: ex}

	w := serve(http.HandlerFunc(h.Callback), callbackTarget("shop1", "auth-code"))

	assertPlain(t, w, http.StatusOK, callbackSuccessBody)
}

func TestClassifyExchangeError(t *testing.T) {
	tests := []struct {
		err        error
		wantCode   string
		wantResult string
	}{
		{&shopline.BusinessError{I18nCode: "app_not_installed"}, "app_not_installed", resultBusinessError},
		{fmt.Errorf("wrapped: %w", &shopline.BusinessError{I18nCode: "x"}), "x", resultBusinessError},
		{&shopline.TransportError{Err: shopline.ErrExchangeTimeout}, "exchange_timeout", resultTimeout},
		{&shopline.TransportError{Err: errors.New("connection refused")}, "exchange_failed", resultTransportError},
		{errors.New("anything else"), "exchange_failed", resultTransportError},
	}
	for _, tt := range tests {
		code, result := classifyExchangeError(tt.err)
		if code != tt.wantCode || result != tt.wantResult {
			t.Errorf("classifyExchangeError(%v): expected (%q, %q), got (%q, %q)", tt.err, tt.wantCode, tt.wantResult, code, result)
		}
	}
}
