package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Greeting is the body of GET /.
const Greeting = "Hello co-creator! Let's start building something great"

// uploadResponse is the body of a successful POST /upload.
type uploadResponse struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// errorResponse is the body of a rejected upload.
type errorResponse struct {
	Error string `json:"error"`
}

// healthResponse is the body of GET /health. Database is "connected",
// "disconnected" or "disabled".
type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Storage  string `json:"storage"`
}

// writeJSON writes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleRoot serves GET / with the plain text greeting.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, Greeting)
}

// handleHealth reports the server, database and storage state. It always
// answers 200; a missing database does not make the server unhealthy.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Database: s.databaseStatus(r),
		Storage:  s.store.Kind().String(),
	})
}

// databaseStatus pings the database with the request context. Without a
// pool, "disabled" means no connection string was configured and
// "disconnected" means the startup connection failed.
func (s *Server) databaseStatus(r *http.Request) string {
	if s.db == nil {
		if s.cfg.ConnectionString == "" {
			return "disabled"
		}
		return "disconnected"
	}
	if err := s.db.Ping(r.Context()); err != nil {
		return "disconnected"
	}
	return "connected"
}

// storedName prefixes the client file name with the upload time in unix
// milliseconds. Only the base name is kept.
func (s *Server) storedName(original string) string {
	base := path.Base(strings.ReplaceAll(original, `\`, "/"))
	if base == "." || base == "/" || base == ".." {
		base = "file"
	}
	return fmt.Sprintf("%d-%s", s.now().UnixMilli(), base)
}

// fileURL is the download path of a stored upload, made absolute when
// PUBLIC_BASE_URL is set.
func (s *Server) fileURL(name string) string {
	return s.cfg.PublicBaseURL + "/uploads/" + url.PathEscape(name)
}

// handleUpload serves POST /upload. It accepts one multipart file in the
// "file" field and stores it under storedName.
//
// Responses:
//   - 200 with the stored name and its URL
//   - 400 when no file part was sent
//   - 413 when the body exceeds MAX_UPLOAD_BYTES
//   - 500 when the store fails
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	logger := s.log.WithField("rid", RequestIDFromContext(r.Context()))

	// Reject oversized bodies up front when the length is declared, and cap
	// the read for chunked ones.
	if limit := s.cfg.MaxUploadBytes; limit > 0 {
		if r.ContentLength > limit {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "file too large"})
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}

	// Parse the multipart form and pick the "file" part.
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "file too large"})
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "no file received"})
		default:
			logger.WithError(err).Warn("invalid multipart upload")
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "no file received"})
		}
		return
	}
	defer func() { _ = file.Close() }()

	// Store it. header.Size is exact once the form is parsed, which lets
	// object storage upload in one request.
	name := s.storedName(header.Filename)
	n, err := s.store.Save(r.Context(), name, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		logger.WithError(err).Error("failed to store upload")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	logger.WithFields(logrus.Fields{"filename": name, "bytes": n}).Info("file uploaded")
	writeJSON(w, http.StatusOK, uploadResponse{
		Message:  "file uploaded successfully",
		Filename: name,
		URL:      s.fileURL(name),
	})
}

// handleDownload serves GET/HEAD /uploads/{name}. Unknown and invalid names
// are both 404.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	rc, info, err := s.store.Open(r.Context(), name)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidName) {
			http.NotFound(w, r)
			return
		}
		s.log.WithField("rid", RequestIDFromContext(r.Context())).WithError(err).Error("failed to open upload")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	defer func() { _ = rc.Close() }()

	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}

	// Disk files and MinIO objects both seek, which gives range and
	// conditional request support. Anything else is streamed as is.
	if rs, ok := rc.(io.ReadSeeker); ok {
		http.ServeContent(w, r, info.Name, info.ModTime, rs)
		return
	}
	_, _ = io.Copy(w, rc)
}
