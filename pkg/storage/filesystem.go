package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrEmptyFile is returned when an upload carries no bytes.
	ErrEmptyFile = errors.New("empty file")
	// ErrInvalidName is returned for names that would escape the upload root.
	ErrInvalidName = errors.New("invalid file name")
	// ErrNotFound is returned when a stored file does not exist.
	ErrNotFound = errors.New("file not found")
)

// LocalStorage keeps uploaded files flat under a single root directory.
type LocalStorage struct {
	baseDir string
	now     func() time.Time
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir, now: time.Now}, nil
}

// StoredName builds the on-disk name {epochMillis}_{kind}_{original}.
func StoredName(kind, original string, at time.Time) string {
	return fmt.Sprintf("%d_%s_%s", at.UnixMilli(), kind, SanitizeName(original))
}

// SanitizeName strips any directory components from a client supplied file name.
func SanitizeName(original string) string {
	name := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || name == "/" {
		return "file"
	}
	return name
}

// Store copies r into a new file named after kind and original and returns the stored name.
// Nothing is kept when r is empty.
func (s *LocalStorage) Store(kind, original string, r io.Reader) (string, error) {
	name := StoredName(kind, original, s.now())
	path, err := s.resolve(name)
	if err != nil {
		return "", err
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	written, copyErr := io.Copy(file, r)
	closeErr := file.Close()
	if copyErr == nil && written == 0 {
		copyErr = ErrEmptyFile
	}
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = os.Remove(path)
		if errors.Is(copyErr, ErrEmptyFile) {
			return "", ErrEmptyFile
		}
		return "", fmt.Errorf("write upload file: %w", copyErr)
	}
	return name, nil
}

// Open returns a read-only handle for the stored file.
func (s *LocalStorage) Open(name string) (*os.File, error) {
	path, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open upload file: %w", err)
	}
	return file, nil
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(name string) error {
	path, err := s.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete upload file: %w", err)
	}
	return nil
}

func (s *LocalStorage) resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", ErrInvalidName
	}
	return filepath.Join(s.baseDir, name), nil
}
