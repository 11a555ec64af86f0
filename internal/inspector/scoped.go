package inspector

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ScopedFile is a temporary file that holds uploaded content for engines
// that can only read from disk. The file lives in a private directory so
// side files an engine creates next to it (journals, WAL indexes) are
// removed with it. Callers must defer Release.
type ScopedFile struct {
	dir  string
	path string
	once sync.Once
	err  error
}

// NewScopedFile writes content to name inside a new private directory under
// dir (the system default when empty).
func NewScopedFile(dir, name string, content []byte) (*ScopedFile, error) {
	private, err := os.MkdirTemp(dir, "shield-upload-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	scoped := &ScopedFile{dir: private, path: filepath.Join(private, filepath.Base(name))}

	if err := os.WriteFile(scoped.path, content, 0o600); err != nil {
		_ = scoped.Release()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	return scoped, nil
}

// Path returns the location of the temporary file.
func (f *ScopedFile) Path() string {
	return f.path
}

// Release removes the file and anything created beside it. It is safe to
// call more than once.
func (f *ScopedFile) Release() error {
	f.once.Do(func() {
		if err := os.RemoveAll(f.dir); err != nil {
			f.err = fmt.Errorf("remove temp dir: %w", err)
		}
	})
	return f.err
}
