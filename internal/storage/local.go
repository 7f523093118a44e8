package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage implements BlobStore on a local directory tree. Intended for
// the local-debug backend; directory creation is lazy and idempotent.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage roots a blob store at the provided directory.
func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{baseDir: baseDir}
}

// Save writes the content under baseDir/key, creating parent directories as
// needed, and returns the absolute file path.
func (s *LocalStorage) Save(_ context.Context, key string, r io.Reader) (string, error) {
	path, err := s.resolve(key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("local storage mkdir for %s: %w", key, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("local storage create %s: %w", key, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("local storage write %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("local storage close %s: %w", key, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return path, nil
	}
	return abs, nil
}

// Delete removes a previously stored file. Missing files are not an error.
func (s *LocalStorage) Delete(_ context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("local storage delete %s: %w", key, err)
	}
	return nil
}

func (s *LocalStorage) resolve(key string) (string, error) {
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return "", fmt.Errorf("local storage: empty key")
	}

	path := filepath.Join(s.baseDir, filepath.FromSlash(key))
	base := filepath.Clean(s.baseDir)
	if !strings.HasPrefix(filepath.Clean(path), base+string(filepath.Separator)) {
		return "", fmt.Errorf("local storage: key %q escapes base directory", key)
	}
	return path, nil
}

var _ BlobStore = (*LocalStorage)(nil)
