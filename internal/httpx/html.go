package httpx

import (
	"bytes"
	"html/template"
	"net/http"
)

type Page string

const (
	PageLogin    Page = "login"
	PageRegister Page = "register"
	PageIndex    Page = "index"
)

const (
	htmxSrc          = "https://unpkg.com/htmx.org@1.9.6"
	htmxSrcIntegrity = "sha384-FhXw7b6AlE/jyjlZH5iHa/tTe9EpJ1Y55RjcgPbjeWMskSxZt1v9qkxLJWNJaGni"
)

const layout = `{{define "layout"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<script src="{{.HtmxSrc}}" integrity="{{.HtmxIntegrity}}" crossorigin="anonymous"></script>
<title>TODOx</title>
</head>
<body>
{{template "content" .Data}}
</body>
</html>{{end}}`

var pages = map[Page]string{
	PageLogin: `{{define "content"}}
{{with .Error}}<p role="alert">{{.}}</p>{{end}}
<form hx-post="/auth/login" method="post" action="/auth/login">
<input type="text" name="username" value="{{.Username}}">
<input type="password" name="password">
<button type="submit">Login</button>
</form>
<a href="/auth/register">Register</a>
{{end}}`,
	PageRegister: `{{define "content"}}
{{with .Error}}<p role="alert">{{.}}</p>{{end}}
{{range .Fields}}<p role="alert">{{.Field}}: {{.Rule}}</p>{{end}}
<form hx-post="/auth/register" method="post" action="/auth/register">
<input type="email" name="email" value="{{.Email}}">
<input type="text" name="username" value="{{.Username}}">
<input type="password" name="password">
<button type="submit">Register</button>
</form>
<a href="/auth/login">Login</a>
{{end}}`,
	PageIndex: `{{define "content"}}
<p>Hello from TODOx!</p>
<p>Signed in as {{.UserID}}</p>
<form hx-post="/auth/logout" method="post" action="/auth/logout"><button type="submit">Logout</button></form>
{{end}}`,
}

var templates = func() map[Page]*template.Template {
	out := make(map[Page]*template.Template, len(pages))
	for name, content := range pages {
		t := template.Must(template.New(string(name)).Parse(layout))
		out[name] = template.Must(t.Parse(content))
	}
	return out
}()

// FormData backs the login and register pages.
type FormData struct {
	Error    string
	Email    string
	Username string
	Fields   []FieldError
}

type IndexData struct {
	UserID string
}

// WriteHTML renders page inside the shared layout. Rendering happens before
// the status is written so a template failure still yields a clean 500.
func WriteHTML(w http.ResponseWriter, status int, page Page, data any) {
	t, ok := templates[page]
	if !ok {
		http.Error(w, "unknown page", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	err := t.ExecuteTemplate(&buf, "layout", struct {
		HtmxSrc       string
		HtmxIntegrity string
		Data          any
	}{htmxSrc, htmxSrcIntegrity, data})
	if err != nil {
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// IsHTMX reports whether r was issued by htmx.
func IsHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// RedirectAfterPost sends the client to target, using HX-Redirect for htmx.
func RedirectAfterPost(w http.ResponseWriter, r *http.Request, target string) {
	if IsHTMX(r) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
