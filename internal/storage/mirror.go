package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsafePath is returned when a relative path would resolve outside the root.
var ErrUnsafePath = errors.New("path escapes output root")

const (
	dirPerm  = 0750
	filePerm = 0644
)

// Mirror is a directory tree that receives downloaded files.
// It is safe for concurrent use as long as callers write distinct paths.
type Mirror struct {
	root string
}

// NewMirror returns a Mirror rooted at dir. The directory is created lazily.
func NewMirror(dir string) *Mirror {
	return &Mirror{root: filepath.Clean(dir)}
}

// Root returns the output root.
func (m *Mirror) Root() string {
	return m.root
}

// Write stores data at relPath below the root, creating parent directories
// as needed. The file is written to a temporary name and renamed into place
// so a partially written file never appears under its final name.
func (m *Mirror) Write(relPath string, data []byte) error {
	dst, err := m.resolve(relPath)
	if err != nil {
		return err
	}

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".sitemirror-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck,gosec // write error takes precedence
		return fmt.Errorf("failed to write %s: %w", relPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", relPath, err)
	}
	if err := os.Chmod(tmpName, filePerm); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", relPath, err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", relPath, err)
	}
	return nil
}

// resolve joins relPath onto the root and checks that it stays inside.
func (m *Mirror) resolve(relPath string) (string, error) {
	if relPath == "" || filepath.IsAbs(relPath) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, relPath)
	}
	dst := filepath.Join(m.root, relPath)
	rel, err := filepath.Rel(m.root, dst)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, relPath)
	}
	return dst, nil
}
