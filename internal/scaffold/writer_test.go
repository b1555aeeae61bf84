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

var sampleFiles = []File{
	{Path: "main.go", Content: []byte("package main\n"), Mode: 0o644},
	{Path: "internal/db/connect.go", Content: []byte("package db\n"), Mode: 0o644},
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "demo")

	created, err := EnsureDir(dir)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = EnsureDir(dir)
	require.NoError(t, err)
	assert.False(t, created, "an existing directory is reused")
}

// TestEnsureDir_File verifies that a regular file in the way is an error.
func TestEnsureDir_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := EnsureDir(path)
	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitScaffoldFailed, cliErr.Code)
}

// TestWriteFiles verifies nested files are created with their content.
func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()

	written, err := WriteFiles(dir, sampleFiles, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go", "internal/db/connect.go"}, written)

	got, err := os.ReadFile(filepath.Join(dir, "internal", "db", "connect.go"))
	require.NoError(t, err)
	assert.Equal(t, "package db\n", string(got))
}

// TestWriteFiles_RefusesOverwrite verifies that nothing is written when a
// target exists and force is off.
func TestWriteFiles_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("keep me"), 0o644))

	_, err := WriteFiles(dir, sampleFiles, false)
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitScaffoldFailed, cliErr.Code)
	assert.Contains(t, cliErr.Message, "main.go")
	assert.Contains(t, cliErr.Message, "--force")

	got, err := os.ReadFile(filepath.Join(dir, "main.go"))
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(got))

	_, err = os.Stat(filepath.Join(dir, "internal"))
	assert.True(t, os.IsNotExist(err), "no other file may be written")
}

func TestWriteFiles_Force(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("old"), 0o644))

	_, err := WriteFiles(dir, sampleFiles, true)
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dir, "main.go"))
	require.NoError(t, err)
	assert.Equal(t, "package main\n", string(got))
}

func TestConflicts(t *testing.T) {
	dir := t.TempDir()
	assert.Empty(t, Conflicts(dir, sampleFiles))

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "internal", "db"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "internal", "db", "connect.go"), nil, 0o644))
	assert.Equal(t, []string{"internal/db/connect.go"}, Conflicts(dir, sampleFiles))
}
