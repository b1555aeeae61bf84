package scaffold

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shinji-kodama/uploadkit/internal/model"
)

// EnsureDir creates the project directory if it does not exist.
// It reports whether the directory was created.
func EnsureDir(dir string) (bool, error) {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return false, model.NewCLIError(
				model.ExitScaffoldFailed,
				fmt.Sprintf("%s exists and is not a directory", dir),
			)
		}
		return false, nil
	}
	if !os.IsNotExist(err) {
		return false, model.WrapCLIError(model.ExitScaffoldFailed, "failed to inspect project directory", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, model.WrapCLIError(
			model.ExitScaffoldFailed,
			fmt.Sprintf("failed to create directory %s", dir),
			err,
		)
	}
	return true, nil
}

// Conflicts returns the files that already exist under dir.
func Conflicts(dir string, files []File) []string {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(f.Path))); err == nil {
			existing = append(existing, f.Path)
		}
	}
	return existing
}

// WriteFiles writes files under dir. Each file is read back and compared
// before the next one is written, so a partial write stops the generator
// instead of leaving a silently broken project.
//
// Existing files are only replaced when force is set; otherwise nothing is
// written and a CLIError with ExitScaffoldFailed lists the conflicts.
func WriteFiles(dir string, files []File, force bool) ([]string, error) {
	if !force {
		if existing := Conflicts(dir, files); len(existing) > 0 {
			return nil, model.NewCLIError(
				model.ExitScaffoldFailed,
				fmt.Sprintf("refusing to overwrite existing files in %s: %s (use --force)", dir, strings.Join(existing, ", ")),
			)
		}
	}

	written := make([]string, 0, len(files))
	for _, f := range files {
		if err := writeVerified(filepath.Join(dir, filepath.FromSlash(f.Path)), f.Content, f.Mode); err != nil {
			return written, model.WrapCLIError(
				model.ExitScaffoldFailed,
				fmt.Sprintf("failed to write %s", f.Path),
				err,
			)
		}
		written = append(written, f.Path)
	}

	return written, nil
}

// writeVerified writes data to path, creating parent directories, then
// re-reads it and compares.
func writeVerified(path string, data []byte, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(path), err)
	}

	if err := os.WriteFile(path, data, mode); err != nil {
		return err
	}

	got, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	if !bytes.Equal(got, data) {
		return fmt.Errorf("verify: %s has %d bytes on disk, expected %d", path, len(got), len(data))
	}
	return nil
}
