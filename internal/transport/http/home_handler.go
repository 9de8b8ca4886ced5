package http

import (
	"html/template"
	"net/http"

	"github.com/IgorGrieder/linkquota/internal/infrastructure/logger"
	"go.uber.org/zap"
)

var homePage = template.Must(template.New("home").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8"/>
<meta name="viewport" content="width=device-width,initial-scale=1"/>
<title>{{.Name}}</title>
<style>
body{font-family:system-ui,-apple-system,Segoe UI,Roboto,sans-serif;margin:0;padding:2rem;background:#0b0b0c;color:#e8e8ea}
.container{max-width:720px;margin:0 auto}
.card{background:#151517;border:1px solid #2b2b2f;border-radius:12px;padding:1.25rem}
code{background:#0f0f11;border:1px solid #2b2b2f;border-radius:4px;padding:0 .25rem}
td{padding:.25rem .75rem .25rem 0;vertical-align:top}
</style>
</head>
<body>
<div class="container">
  <div class="card">
    <h1>{{.Name}}</h1>
    <p>Short links that stop working after a number of clicks or when their time runs out.</p>
    <p>Default quota: <b>{{.DefaultClickLimit}}</b> clicks. Default lifetime: <b>{{.DefaultTTL}}</b>.</p>
    <table>
      <tr><td><code>GET {{.BaseURL}}/&lt;code&gt;</code></td><td>follow a short link</td></tr>
      <tr><td><code>POST /api/identities</code></td><td>get a user id</td></tr>
      <tr><td><code>GET /api/identities/me</code></td><td>your id and links (header <code>X-User-Id</code>)</td></tr>
      <tr><td><code>POST /api/links</code></td><td>create <code>{"url":"...","clickLimit":5,"ttlHours":2}</code></td></tr>
      <tr><td><code>GET /api/links/&lt;code&gt;/stats</code></td><td>owner-only statistics</td></tr>
      <tr><td><code>DELETE /api/links/&lt;code&gt;</code></td><td>owner-only removal</td></tr>
    </table>
  </div>
</div>
</body>
</html>
`))

type homeView struct {
	Name              string
	BaseURL           string
	DefaultClickLimit int
	DefaultTTL        string
}

type HomeHandler struct {
	view homeView
}

func NewHomeHandler(name string, opts LinksHandlerOptions) *HomeHandler {
	return &HomeHandler{view: homeView{
		Name:              name,
		BaseURL:           opts.BaseURL,
		DefaultClickLimit: opts.DefaultClickLimit,
		DefaultTTL:        opts.DefaultTTL.String(),
	}}
}

func (h *HomeHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := homePage.Execute(w, h.view); err != nil {
		logger.Error("failed to render home page", zap.Error(err))
	}
}
