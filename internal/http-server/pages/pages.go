// Package pages renders the browser-facing HTML of the redemption flow.
package pages

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"rolelink/entity"

	"github.com/go-chi/render"
)

const (
	MessageInvalid   = "Invalid or expired link, please restart."
	MessageTemporary = "Temporary error, please retry later."
)

//go:embed templates/*.html
var files embed.FS

var tmpl = template.Must(template.ParseFS(files, "templates/*.html"))

func Landing(w http.ResponseWriter, r *http.Request) {
	page(w, r, http.StatusOK, "landing", nil)
}

func Confirm(w http.ResponseWriter, r *http.Request, inv *entity.Invitation) {
	page(w, r, http.StatusOK, "confirm", inv)
}

func Success(w http.ResponseWriter, r *http.Request, result *entity.Redemption) {
	page(w, r, http.StatusOK, "success", result)
}

func Error(w http.ResponseWriter, r *http.Request, status int, message string) {
	page(w, r, status, "error", message)
}

func page(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.PlainText(w, r, MessageTemporary)
		return
	}
	render.Status(r, status)
	render.HTML(w, r, buf.String())
}
