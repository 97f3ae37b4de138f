package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ds124wfegd/imagefilter/internal/entity"
	"github.com/sirupsen/logrus"
)

// ArtifactPrefix marks files owned by the filter pipeline. Sweep only touches
// files carrying it.
const ArtifactPrefix = "filtered."

type FileStorage interface {
	Create(name string) (*os.File, error)
	Get(name string) (io.ReadCloser, error)
	Delete(names ...string) error
	Exists(name string) bool
	Path(name string) string
	Sweep(maxAge time.Duration) (int, error)
}

type fileStorage struct {
	basePath string
}

func NewFileStorage(basePath string) (FileStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("create storage dir %s: %w", basePath, err)
	}
	return &fileStorage{basePath: basePath}, nil
}

func (s *fileStorage) resolve(name string) (string, error) {
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("%w: %s", entity.ErrOutsideStorage, name)
	}
	return filepath.Join(s.basePath, name), nil
}

// Create opens a new artifact file for writing. It fails if the name is taken.
func (s *fileStorage) Create(name string) (*os.File, error) {
	fullPath, err := s.resolve(name)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, err
	}

	return os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
}

func (s *fileStorage) Get(name string) (io.ReadCloser, error) {
	fullPath, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	return os.Open(fullPath)
}

// Delete removes every named file, best effort. Missing files are ignored;
// the remaining failures are logged and returned together.
func (s *fileStorage) Delete(names ...string) error {
	var errs []error
	for _, name := range names {
		fullPath, err := s.resolve(name)
		if err == nil {
			err = os.Remove(fullPath)
		}
		if err == nil || errors.Is(err, os.ErrNotExist) {
			continue
		}
		logrus.WithFields(logrus.Fields{
			"file": name,
		}).Errorf("Failed to delete local file: %v", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *fileStorage) Exists(name string) bool {
	fullPath, err := s.resolve(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(fullPath)
	return !os.IsNotExist(err)
}

func (s *fileStorage) Path(name string) string {
	return filepath.Join(s.basePath, name)
}

// Sweep removes artifacts whose modification time is older than maxAge and
// returns how many were removed.
func (s *fileStorage) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	var stale []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), ArtifactPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			stale = append(stale, entry.Name())
		}
	}

	if len(stale) == 0 {
		return 0, nil
	}
	err = s.Delete(stale...)
	removed := 0
	for _, name := range stale {
		if !s.Exists(name) {
			removed++
		}
	}
	return removed, err
}
