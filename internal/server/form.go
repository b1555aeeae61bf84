package server

import (
	"embed"
	"html/template"
	"net/http"
)

//go:embed web/form.html
var webFS embed.FS

// formTemplate is parsed at package init and panics if the embedded file
// is broken.
var formTemplate = template.Must(template.ParseFS(webFS, "web/form.html"))

type formData struct {
	UploadURL      string
	MaxUploadBytes int64
}

// handleForm serves the upload form. The form posts to /upload on the same
// origin and shows the size limit when one is configured.
func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := formTemplate.Execute(w, formData{
		UploadURL:      "/upload",
		MaxUploadBytes: s.cfg.MaxUploadBytes,
	})
	if err != nil {
		s.log.WithError(err).Error("failed to render upload form")
	}
}
