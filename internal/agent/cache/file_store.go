package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	logx "github.com/sagely-dev/sagely/pkg/logger"
)

// FileStore keeps one JSON file per entry at {dir}/{key}.json.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed. A directory that cannot be
// created still yields a usable store whose writes no-op.
func NewFileStore(dir string) *FileStore {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logx.Debug().Err(err).Str("dir", dir).Msg("cache dir not created")
	}
	return &FileStore{dir: dir}
}

// Dir returns the directory backing the store.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *FileStore) Read(key string) ([]byte, error) {
	b, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("read cache entry: %w", err)
	}
	return b, nil
}

func (s *FileStore) Write(key string, data []byte) error {
	if err := os.WriteFile(s.path(key), data, 0o644); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

func (s *FileStore) Delete(key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

func (s *FileStore) Clear() error {
	files, err := s.entries()
	if err != nil {
		return err
	}
	var errs []error
	for _, f := range files {
		if err := os.Remove(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *FileStore) Len() int {
	files, err := s.entries()
	if err != nil {
		return 0
	}
	return len(files)
}

func (s *FileStore) entries() ([]string, error) {
	return filepath.Glob(filepath.Join(s.dir, "*.json"))
}
