// Package platform resolves the paths given on the command line.
package platform

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Abs validates path and returns it absolute and cleaned, without a
// trailing separator. Links are not resolved.
func Abs(path string) (string, error) {
	if err := ValidatePath(path); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	return abs, nil
}

// IsWithin reports whether path is dir itself or lies below it.
// Both paths are compared lexically.
func IsWithin(dir, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// ValidatePath rejects paths no filesystem call could accept
func ValidatePath(path string) error {
	switch {
	case path == "":
		return &PathError{Path: path, Message: "path is empty"}
	case strings.ContainsRune(path, 0):
		return &PathError{Path: path, Message: "path contains a NUL byte"}
	}
	return nil
}

// PathError represents a path validation error
type PathError struct {
	Path    string
	Message string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("invalid path %q: %s", e.Path, e.Message)
}
