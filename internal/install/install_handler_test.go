package install

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/MGallo-Code/obol/internal/store"
	"github.com/MGallo-Code/obol/internal/testutil"
)

func TestInstall(t *testing.T) {
	t.Run("redirects to the store's authorization page", func(t *testing.T) {
		h, rec, _ := newTestHandler(&testutil.MockExchanger{})

		w := serve(http.HandlerFunc(h.Install), "/?"+signedQuery(url.Values{"handle": {"shop1"}, "timestamp": {"1700000000000"}}))

		if w.Code != http.StatusFound {
			t.Fatalf("status: expected 302, got %d", w.Code)
		}
		want := "https://shop1.myshopline.com/admin/oauth-web/#/oauth/authorize?appKey=key1&responseType=code&scope=read_products,write_products&redirectUri=https%3A%2F%2Fapp.example.com%2Fcallback"
		if loc := w.Header().Get("Location"); loc != want {
			t.Errorf("Location:\n expected %q\n got      %q", want, loc)
		}

		evs := rec.Events()
		if len(evs) != 1 {
			t.Fatalf("events: expected 1, got %d", len(evs))
		}
		if evs[0].Action != store.ActionInstallRedirected || evs[0].Handle != "shop1" {
			t.Errorf("event: got action=%q handle=%q", evs[0].Action, evs[0].Handle)
		}
		if evs[0].IPAddress == nil || *evs[0].IPAddress == "" {
			t.Error("event: expected ip address to be set")
		}
	})

	t.Run("uses configured domain and scopes", func(t *testing.T) {
		h, _, _ := newTestHandler(&testutil.MockExchanger{})
		h.Cfg.PlatformDomain = "shoplineapp.test"
		h.Cfg.Scopes = []string{"read_orders"}

		w := serve(http.HandlerFunc(h.Install), "/?handle=my-store")

		loc := w.Header().Get("Location")
		if !strings.HasPrefix(loc, "https://my-store.shoplineapp.test/") {
			t.Errorf("Location: unexpected host in %q", loc)
		}
		if !strings.Contains(loc, "&scope=read_orders&") {
			t.Errorf("Location: expected scope=read_orders in %q", loc)
		}
	})

	for _, handle := range []string{"", "evil.com/x", "shop1.attacker.net", "a@b"} {
		t.Run("rejects handle "+handle, func(t *testing.T) {
			h, rec, _ := newTestHandler(&testutil.MockExchanger{})

			w := serve(http.HandlerFunc(h.Install), "/?"+url.Values{"handle": {handle}}.Encode())

			assertPlain(t, w, http.StatusBadRequest, "Invalid handle")
			if len(rec.Events()) != 0 {
				t.Error("no event expected for a bad handle")
			}
		})
	}

	t.Run("recorder failure does not block redirect", func(t *testing.T) {
		h, _, _ := newTestHandler(&testutil.MockExchanger{})
		h.EV = &testutil.MockRecorder{Err: store.ErrQueueFull}

		w := serve(http.HandlerFunc(h.Install), "/?handle=shop1")

		if w.Code != http.StatusFound {
			t.Errorf("status: expected 302, got %d", w.Code)
		}
	})
}
