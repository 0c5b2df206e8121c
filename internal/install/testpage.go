// testpage.go -- GET /test : setup check page for whoever is installing the app.
package install

import (
	"html/template"
	"net/http"
)

// testPage reports which settings are present. Never renders secret values.
var testPage = template.Must(template.New("test").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>SHOPLINE app setup check</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; display: flex; justify-content: center; align-items: center; min-height: 100vh; margin: 0; background: #f4f5fb; }
.container { background: #fff; padding: 2.5rem 2rem; border-radius: 16px; box-shadow: 0 16px 32px rgba(0, 0, 0, 0.08); max-width: 600px; }
.info { background: #f8f9fa; padding: 1rem; border-radius: 8px; margin: 1rem 0; }
</style>
</head>
<body>
<div class="container">
<h1>SHOPLINE app setup check</h1>
<div class="info">
<h3>Configuration</h3>
<p><strong>APP_KEY:</strong> {{if .AppKeySet}}set{{else}}missing{{end}}</p>
<p><strong>APP_SECRET:</strong> {{if .AppSecretSet}}set{{else}}missing{{end}}</p>
<p><strong>CALLBACK_URL:</strong> {{.CallbackURL}}</p>
<p><strong>Scopes:</strong> {{range $i, $s := .Scopes}}{{if $i}}, {{end}}{{$s}}{{end}}</p>
<p><strong>Platform domain:</strong> {{.PlatformDomain}}</p>
</div>
<p>Start an install from the SHOPLINE admin to test the flow; a direct visit to / is rejected because it carries no platform signature.</p>
</div>
</body>
</html>
`))

// TestPage handles GET /test.
func (h *InstallHandler) TestPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := testPage.Execute(w, struct {
		AppKeySet      bool
		AppSecretSet   bool
		CallbackURL    string
		Scopes         []string
		PlatformDomain string
	}{
		AppKeySet:      h.Cfg.AppKey != "",
		AppSecretSet:   h.Cfg.AppSecret != "",
		CallbackURL:    h.Cfg.CallbackURL,
		Scopes:         h.Cfg.Scopes,
		PlatformDomain: h.Cfg.PlatformDomain,
	})
	if err != nil {
		logError(r, "test page: render failed", "error", err)
	}
}
