package install

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/MGallo-Code/obol/internal/config"
	"github.com/MGallo-Code/obol/internal/shopline"
	"github.com/MGallo-Code/obol/internal/testutil"
)

// --- Shared helpers ---

const testSecret = "test-app-secret"

// testConfig returns a complete config for handler tests.
func testConfig() *config.Config {
	return &config.Config{
		AppKey:          "key1",
		AppSecret:       testSecret,
		CallbackURL:     "https://app.example.com/callback",
		PlatformDomain:  shopline.DefaultDomain,
		Scopes:          []string{"read_products", "write_products"},
		ExchangeTimeout: 5 * time.Second,
		Port:            "3000",
	}
}

// newTestHandler returns an InstallHandler wired with in-memory fakes.
func newTestHandler(ex *testutil.MockExchanger) (*InstallHandler, *testutil.MockRecorder, *testutil.MockSink) {
	rec := &testutil.MockRecorder{}
	sink := &testutil.MockSink{}
	return &InstallHandler{
		Cfg: testConfig(),
		EX:  ex,
		EV:  rec,
		TS:  sink,
	}, rec, sink
}

// signedQuery encodes params with a valid sign for testSecret.
func signedQuery(params url.Values) string {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set(shopline.SignParam, shopline.SignQuery(params, testSecret))
	return q.Encode()
}

// assertPlain checks status and exact plain-text body.
func assertPlain(t *testing.T, w *httptest.ResponseRecorder, status int, body string) {
	t.Helper()
	if w.Code != status {
		t.Errorf("status: expected %d, got %d", status, w.Code)
	}
	if got := w.Body.String(); got != body {
		t.Errorf("body: expected %q, got %q", body, got)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type: expected text/plain, got %q", ct)
	}
}

// serve runs handler against a GET request for target.
func serve(handler http.Handler, target string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	return w
}
