package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStorage keeps report markdown under a root directory.
type FileStorage struct {
	root string
}

// NewFileStorage creates storage rooted at dir.
func NewFileStorage(dir string) *FileStorage {
	return &FileStorage{root: dir}
}

// Root returns the storage directory.
func (s *FileStorage) Root() string {
	return s.root
}

func (s *FileStorage) resolve(p string) (string, error) {
	rel := filepath.FromSlash(p)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("invalid storage path %q", p)
	}
	return filepath.Join(s.root, rel), nil
}

// Write stores content at p, replacing any previous file.
func (s *FileStorage) Write(p string, content []byte) (int64, error) {
	full, err := s.resolve(p)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, content, 0644); err != nil {
		return 0, fmt.Errorf("failed to write report: %w", err)
	}
	if err := os.Rename(tmp, full); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("failed to write report: %w", err)
	}
	return int64(len(content)), nil
}

// Read returns the content stored at p.
func (s *FileStorage) Read(p string) ([]byte, error) {
	full, err := s.resolve(p)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}
