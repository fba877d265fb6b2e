package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrTooLarge is returned when a stream exceeds the configured limit.
var ErrTooLarge = errors.New("file exceeds size limit")

// PublicPrefix is the URL path under which stored uploads are referenced.
const PublicPrefix = "/uploads/"

// LocalStorage persists uploaded files flat under a base directory.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// Save copies at most limit bytes from r into name. A stream longer than limit
// is discarded and ErrTooLarge returned. A limit of zero disables the check.
func (s *LocalStorage) Save(name string, r io.Reader, limit int64) (int64, error) {
	target, err := s.resolve(name)
	if err != nil {
		return 0, err
	}
	file, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create upload file: %w", err)
	}

	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	written, copyErr := io.Copy(file, src)
	closeErr := file.Close()
	switch {
	case copyErr != nil:
		_ = os.Remove(target)
		return 0, fmt.Errorf("write upload stream: %w", copyErr)
	case limit > 0 && written > limit:
		_ = os.Remove(target)
		return 0, ErrTooLarge
	case closeErr != nil:
		_ = os.Remove(target)
		return 0, fmt.Errorf("close upload file: %w", closeErr)
	}
	return written, nil
}

// Open returns a read-only handle for a stored file.
func (s *LocalStorage) Open(name string) (*os.File, error) {
	target, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(target)
	if err != nil {
		return nil, fmt.Errorf("open upload file: %w", err)
	}
	return file, nil
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(name string) error {
	target, err := s.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete upload file: %w", err)
	}
	return nil
}

// NameFromPublicPath extracts the stored name from a "/uploads/<name>" path.
// Paths that do not point into local storage report false.
func NameFromPublicPath(p string) (string, bool) {
	if !strings.HasPrefix(p, PublicPrefix) {
		return "", false
	}
	name := strings.TrimPrefix(path.Clean(p), PublicPrefix)
	if name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}

// PublicPath is the inverse of NameFromPublicPath.
func PublicPath(name string) string {
	return PublicPrefix + name
}

// Path exposes the absolute location of name, mainly for debugging.
func (s *LocalStorage) Path(name string) string {
	target, _ := s.resolve(name)
	return target
}

func (s *LocalStorage) resolve(name string) (string, error) {
	base := filepath.Base(filepath.Clean(name))
	if base != name || base == "." || base == ".." || base == string(filepath.Separator) {
		return "", fmt.Errorf("invalid upload name %q", name)
	}
	return filepath.Join(s.baseDir, base), nil
}
