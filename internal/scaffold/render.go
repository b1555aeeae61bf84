package scaffold

import (
	"bytes"
	"embed"
	"fmt"
	"go/format"
	"os"
	"path"
	"strings"
	"text/template"

	"github.com/shinji-kodama/uploadkit/internal/model"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// DefaultCORSOrigin is the frontend dev server origin allowed by default.
const DefaultCORSOrigin = "http://localhost:5173"

// goVersion is the language version written to the generated go.mod.
const goVersion = "1.22"

// Data is the template input for one generated project.
type Data struct {
	Name             string
	ModulePath       string
	GoVersion        string
	Port             int
	ConnectionString string
	CORSOrigin       string
	WithDB           bool
	DBPort           int
}

// File is one rendered file, relative to the project directory.
type File struct {
	Path    string
	Content []byte
	Mode    os.FileMode
}

// layout maps templates to their location in the generated project.
// Order is the write order.
var layout = []struct {
	tmpl string
	path string
	mode os.FileMode
}{
	{"main.go.tmpl", "main.go", 0o644},
	{"connect.go.tmpl", "internal/db/connect.go", 0o644},
	{"go.mod.tmpl", "go.mod", 0o644},
	{"gitignore.tmpl", ".gitignore", 0o644},
	{"env.tmpl", ".env", 0o600},
	{"README.md.tmpl", "README.md", 0o644},
}

// NewData builds template input from a resolved project.
func NewData(p *model.Project, corsOrigin string) Data {
	if corsOrigin == "" {
		corsOrigin = DefaultCORSOrigin
	}
	d := Data{
		Name:             p.Name,
		ModulePath:       p.Name,
		GoVersion:        goVersion,
		Port:             p.Port,
		ConnectionString: p.ConnectionString,
		CORSOrigin:       corsOrigin,
		WithDB:           p.WithDB,
	}
	for _, s := range p.Services {
		if s.ServiceName == DatabaseService {
			d.DBPort = s.HostPort
		}
	}
	return d
}

// DefaultConnectionString is the suggested database URI for a project.
func DefaultConnectionString(projectName string) string {
	return fmt.Sprintf("postgres://localhost:5432/%s?sslmode=disable", projectName)
}

// Render executes every project template. Go sources are gofmt'ed so the
// generated project is formatted regardless of template whitespace.
func Render(data Data) ([]File, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	files := make([]File, 0, len(layout))
	for _, entry := range layout {
		var buf bytes.Buffer
		if err := tmpl.ExecuteTemplate(&buf, entry.tmpl, data); err != nil {
			return nil, fmt.Errorf("failed to render %s: %w", entry.path, err)
		}

		content := buf.Bytes()
		if strings.HasSuffix(entry.path, ".go") {
			formatted, err := format.Source(content)
			if err != nil {
				return nil, fmt.Errorf("generated %s is not valid Go: %w", entry.path, err)
			}
			content = formatted
		}

		files = append(files, File{Path: path.Clean(entry.path), Content: content, Mode: entry.mode})
	}

	return files, nil
}
