package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore keeps objects on a (usually shared) filesystem as root/bucket/key
type FileStore struct {
	root string
}

// NewFileStore creates a store rooted at dir
func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

func (s *FileStore) objectPath(bucket, key string) (string, error) {
	if !filepath.IsLocal(bucket) || !filepath.IsLocal(key) {
		return "", fmt.Errorf("invalid object name %s/%s", bucket, key)
	}
	return filepath.Join(s.root, bucket, key), nil
}

// Exists reports whether bucket/key is present
func (s *FileStore) Exists(_ context.Context, bucket, key string) (bool, error) {
	path, err := s.objectPath(bucket, key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if info.IsDir() {
		return false, fmt.Errorf("object %s/%s is a directory", bucket, key)
	}
	return true, nil
}

// Download copies bucket/key to localPath
func (s *FileStore) Download(_ context.Context, bucket, key, localPath string) error {
	path, err := s.objectPath(bucket, key)
	if err != nil {
		return err
	}
	err = copyFile(path, localPath)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s/%s: %w", bucket, key, ErrNotFound)
	}
	return err
}

// Upload copies localPath to bucket/key, replacing any previous object
func (s *FileStore) Upload(_ context.Context, localPath, bucket, key string) error {
	path, err := s.objectPath(bucket, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create bucket directory: %w", err)
	}
	return copyFile(localPath, path)
}

// copyFile writes src to a temp file next to dst and renames it into place,
// so readers never observe a partial object.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
