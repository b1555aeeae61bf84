package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shinji-kodama/uploadkit/internal/model"
)

var (
	// ErrNotFound is returned by Store.Open for unknown names.
	ErrNotFound = errors.New("object not found")

	// ErrInvalidName is returned for names that are not a single path element.
	ErrInvalidName = errors.New("invalid object name")
)

// ObjectInfo describes a stored upload.
type ObjectInfo struct {
	Name        string
	Size        int64
	ContentType string
	ModTime     time.Time
}

// Store persists uploaded files.
type Store interface {
	// Save writes r under name and returns the number of bytes stored.
	// size is the expected length of r, or -1 when it is unknown.
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (int64, error)

	// Open returns the content of name. The caller closes the reader.
	Open(ctx context.Context, name string) (io.ReadCloser, ObjectInfo, error)

	// Kind names the backend for health reporting.
	Kind() model.StorageBackend
}

// validateName rejects anything that could leave the storage root.
func validateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// DiskStore keeps uploads in a local directory.
type DiskStore struct {
	dir string
}

// NewDiskStore creates dir if it does not exist.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", dir, err)
	}
	return &DiskStore{dir: dir}, nil
}

// Dir returns the upload directory.
func (s *DiskStore) Dir() string { return s.dir }

func (s *DiskStore) Kind() model.StorageBackend { return model.StorageDisk }

// Save writes to a temporary file in the upload directory and renames it
// into place, so readers never observe a partial upload. A known size that
// does not match the bytes read fails the save.
func (s *DiskStore) Save(ctx context.Context, name string, r io.Reader, size int64, _ string) (int64, error) {
	if err := validateName(name); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	n, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", name, err)
	}
	if size >= 0 && n != size {
		return 0, fmt.Errorf("failed to write %s: got %d bytes, want %d", name, n, size)
	}

	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		return 0, fmt.Errorf("failed to store %s: %w", name, err)
	}
	return n, nil
}

// Open returns the file. Directories inside the upload directory are
// reported as not found.
func (s *DiskStore) Open(_ context.Context, name string) (io.ReadCloser, ObjectInfo, error) {
	if err := validateName(name); err != nil {
		return nil, ObjectInfo{}, err
	}

	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ObjectInfo{}, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, ObjectInfo{}, err
	}

	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, ObjectInfo{}, err
	}
	if st.IsDir() {
		_ = f.Close()
		return nil, ObjectInfo{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	return f, ObjectInfo{Name: name, Size: st.Size(), ModTime: st.ModTime()}, nil
}
