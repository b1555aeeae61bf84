package scaffold

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/uploadkit/internal/model"
)

// writeFile is a helper that writes content under a temporary directory and
// returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TestLoadDefaults_JSONC verifies that comments and trailing commas are
// accepted.
func TestLoadDefaults_JSONC(t *testing.T) {
	path := writeFile(t, t.TempDir(), DefaultsFileName, `{
	// shared team defaults
	"name": "photoApi",
	"port": 4000, /* avoid the frontend */
	"connectionString": "postgres://db.internal:5432/photos",
	"browser": "firefox",
	"withDB": true,
	"dbPort": 5433,
}`)

	d, err := LoadDefaults(path)
	require.NoError(t, err)

	assert.Equal(t, "photoApi", d.Name)
	assert.Equal(t, 4000, d.Port)
	assert.Equal(t, "postgres://db.internal:5432/photos", d.ConnectionString)
	assert.Equal(t, "firefox", d.Browser)
	assert.True(t, d.WithDB)
	assert.Equal(t, 5433, d.DBPort)
	assert.Empty(t, d.InstallCmd)
}

// TestLoadDefaults_NotFound verifies that an explicit path must exist.
func TestLoadDefaults_NotFound(t *testing.T) {
	_, err := LoadDefaults(filepath.Join(t.TempDir(), "missing.jsonc"))
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitInvalidInput, cliErr.Code)
	assert.Contains(t, cliErr.Message, "config file not found")
}

func TestLoadDefaults_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed", `{"port": }`},
		{"wrong type", `{"port": "3000"}`},
		{"port out of range", `{"port": 70000}`},
		{"name with space", `{"name": "my project"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "cfg.jsonc", tt.content)
			_, err := LoadDefaults(path)
			require.Error(t, err)

			var cliErr *model.CLIError
			require.True(t, errors.As(err, &cliErr))
			assert.Equal(t, model.ExitInvalidInput, cliErr.Code)
		})
	}
}

// TestFindDefaults_Missing verifies that the implicit file is optional.
func TestFindDefaults_Missing(t *testing.T) {
	d, err := FindDefaults(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, &Defaults{}, d)
}

func TestFindDefaults_Present(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, DefaultsFileName, `{"port": 8080}`)

	d, err := FindDefaults(dir)
	require.NoError(t, err)
	assert.Equal(t, 8080, d.Port)
}
