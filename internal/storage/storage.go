// Package storage loads requested objects on the sender side and persists
// reassembled objects on the receiver side. Both ends hold whole objects in
// memory.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when a requested object cannot be opened.
var ErrNotFound = errors.New("object not found")

// errInvalidPath marks request paths that escape the source root.
var errInvalidPath = errors.New("invalid path")

// Source serves objects from the filesystem. With an empty root, request
// paths are opened as given; otherwise they are resolved under root and
// may not leave it.
type Source struct {
	root string
}

// NewSource creates a Source confined to root ("" for no confinement).
func NewSource(root string) (*Source, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return &Source{}, nil
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %q: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root %q: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %q is not a directory", root)
	}
	return &Source{root: abs}, nil
}

// Load reads the whole object named by name. Every failure to locate or
// open it is reported as ErrNotFound.
func (s *Source) Load(name string) ([]byte, error) {
	full, err := s.resolve(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrNotFound, name, err)
	}

	info, err := os.Stat(full)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrNotFound, name, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %q is a directory", ErrNotFound, name)
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrNotFound, name, err)
	}
	return data, nil
}

func (s *Source) resolve(name string) (string, error) {
	if name == "" || strings.ContainsRune(name, 0) {
		return "", errInvalidPath
	}
	if s.root == "" {
		return name, nil
	}

	// Request paths are slash-separated and relative to the root.
	clean := path.Clean("/" + filepath.ToSlash(name))
	full := filepath.Join(s.root, filepath.FromSlash(clean))
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errInvalidPath
	}
	return full, nil
}

// File persists a reassembled object to a path, overwriting it.
type File string

// Persist writes data to the file in one call.
func (f File) Persist(data []byte) error {
	if err := os.WriteFile(string(f), data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", string(f), err)
	}
	return nil
}
