package upload

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Store persists accepted attachment bytes under a flat directory. The
// bytes are served back read-only by the HTTP layer; nothing else durable
// exists in the process.
type Store struct {
	dir string
}

// NewStore ensures the upload directory exists. Failure here is the one
// fatal startup error the process has.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory files are persisted under
func (s *Store) Dir() string { return s.dir }

// Save writes the file bytes under the given storage name
func (s *Store) Save(name string, r io.Reader) error {
	out, err := os.Create(filepath.Join(s.dir, filepath.Base(name)))
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, r); err != nil {
		return err
	}
	return nil
}

// Remove deletes a persisted file; used to roll back a partially written batch
func (s *Store) Remove(name string) error {
	return os.Remove(filepath.Join(s.dir, filepath.Base(name)))
}
