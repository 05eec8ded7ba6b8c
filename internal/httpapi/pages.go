package httpapi

import (
	"bytes"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"gxshared/internal/guard"
)

var pageT = template.Must(template.New("page").Parse(pageLayout))

type pageData struct {
	SiteName string
	Title    string
	// Refresh is a same-origin URL reloaded after one second.
	Refresh string
	Body    template.HTML
}

func (a *api) renderPage(w http.ResponseWriter, status int, title string, body template.HTML) {
	a.renderPageData(w, status, pageData{SiteName: a.siteName, Title: title, Body: body})
}

func (a *api) renderPageData(w http.ResponseWriter, status int, data pageData) {
	if data.SiteName == "" {
		data.SiteName = a.siteName
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := pageT.Execute(w, data); err != nil {
		a.logger.Error("render page", "title", data.Title, "err", err)
	}
}

func (a *api) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		a.renderPage(w, http.StatusNotFound, "Not found", notFoundBody)
		return
	}
	a.renderPage(w, http.StatusOK, a.siteName, homeBody)
}

var nothingFoundT = template.Must(template.New("nothing-found").Parse(`
<h1>Nothing Found!</h1>
<p>The content you are looking for is not available at this time.</p>
<p class="actions">
{{- if .HasGrant}}
  <a class="button" href="{{.DeveloperURL}}">Return to Developer View</a>
{{- end}}
  <a class="button outline" href="/">Go Back to Home</a>
</p>
`))

// handleNothingFound is the access gate's deny target. Clients holding a
// grant get a shortcut back through the bypass parameter.
func (a *api) handleNothingFound(w http.ResponseWriter, r *http.Request) {
	hasGrant := a.grants != nil && a.grants.HasGrant(r)
	body, err := execHTML(nothingFoundT, struct {
		HasGrant     bool
		DeveloperURL string
	}{hasGrant, "/?" + url.Values{guard.BypassParam: {guard.BypassValue}}.Encode()})
	if err != nil {
		a.logger.Error("render nothing found", "err", err)
	}
	a.renderPage(w, http.StatusOK, "Nothing Found", body)
}

var waitingT = template.Must(template.New("waiting").Parse(`
<h1>Checking admin permission...</h1>
{{- if .EscapeHatch}}
<p class="muted">This is taking longer than expected.</p>
<form method="post" action="{{.Action}}">
  <input type="hidden" name="continue" value="1">
  <input type="hidden" name="` + waitParam + `" value="{{.Elapsed}}">
  <button class="button outline" type="submit">Continue without authentication</button>
</form>
{{- else}}
<p class="muted">Please wait ({{.Elapsed}}s)...</p>
{{- end}}
`))

func (a *api) renderWaiting(w http.ResponseWriter, r *http.Request, d guard.AdminDecision) {
	body, err := execHTML(waitingT, struct {
		guard.AdminDecision
		Action string
	}{d, r.URL.Path})
	if err != nil {
		a.logger.Error("render waiting", "err", err)
	}
	var refresh string
	if !d.EscapeHatch {
		q := r.URL.Query()
		q.Set(waitParam, strconv.Itoa(d.Elapsed+1))
		refresh = r.URL.Path + "?" + q.Encode()
	}
	a.renderPageData(w, http.StatusOK, pageData{Title: "Checking admin permission", Refresh: refresh, Body: body})
}

func (a *api) renderMessage(w http.ResponseWriter, status int, title, message string) {
	body, err := execHTML(messageT, struct{ Title, Message string }{title, message})
	if err != nil {
		a.logger.Error("render message", "title", title, "err", err)
	}
	a.renderPage(w, status, title, body)
}

var messageT = template.Must(template.New("message").Parse(`
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
<p class="actions"><a class="button outline" href="/">Go Back to Home</a></p>
`))

func execHTML(t *template.Template, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

const homeBody template.HTML = `
<h1>Welcome</h1>
<p>The site is being prepared. Check back soon.</p>
`

const notFoundBody template.HTML = `
<h1>Not found</h1>
<p>The page you requested does not exist.</p>
<p class="actions"><a class="button outline" href="/">Go Back to Home</a></p>
`

const pageLayout = `<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width,initial-scale=1" />
    {{- if .Refresh}}
    <meta http-equiv="refresh" content="1;url={{.Refresh}}" />
    {{- end}}
    <title>{{.Title}} | {{.SiteName}}</title>
    <style>
      :root{--bg:#f5f5f5;--ink:#212529;--muted:#6c757d;--accent:#007bff;--card:#ffffff;--line:#e4e4e4}
      *{box-sizing:border-box}
      body{margin:0;min-height:100vh;display:flex;align-items:center;justify-content:center;
        font-family:"Helvetica Neue",Arial,sans-serif;color:var(--ink);background:var(--bg)}
      main{max-width:640px;width:100%;margin:24px;padding:32px;text-align:center;
        background:var(--card);border:1px solid var(--line);border-radius:8px}
      h1{margin:0 0 16px;font-size:28px}
      .muted{color:var(--muted)}
      .actions{margin-top:24px}
      .button{display:inline-block;margin:4px;padding:10px 18px;border-radius:4px;border:1px solid var(--accent);
        background:var(--accent);color:#fff;text-decoration:none;font:inherit;cursor:pointer}
      .button.outline{background:transparent;color:var(--accent)}
      footer{margin-top:32px;font-size:12px;color:var(--muted)}
    </style>
  </head>
  <body>
    <main>
      {{.Body}}
      <footer>{{.SiteName}}</footer>
    </main>
  </body>
</html>
`
