// Package compare checks that a copied file matches its source.
package compare

import (
	"context"
	"errors"

	"github.com/sdejongh/bulkops/pkg/storage"
)

// ErrMismatch is recorded when a copy does not match its source
var ErrMismatch = errors.New("copy does not match source")

// Result represents the outcome of comparing two files
type Result string

const (
	// Same indicates files are identical
	Same Result = "same"
	// Different indicates files differ
	Different Result = "different"
)

// Comparison holds the result of comparing two files
type Comparison struct {
	SourcePath string
	DestPath   string
	Result     Result
	Reason     string
}

// Err returns nil for identical files and an error wrapping ErrMismatch otherwise
func (c *Comparison) Err() error {
	if c.Result == Same {
		return nil
	}
	return &MismatchError{Comparison: c}
}

// MismatchError describes why a copy differs from its source
type MismatchError struct {
	Comparison *Comparison
}

func (e *MismatchError) Error() string {
	return e.Comparison.DestPath + ": " + e.Comparison.Reason
}

func (e *MismatchError) Unwrap() error {
	return ErrMismatch
}

// Comparator defines the interface for file comparison algorithms
type Comparator interface {
	// Compare compares two files of the same backend
	Compare(ctx context.Context, backend storage.Backend, sourcePath, destPath string) (*Comparison, error)

	// Name returns the name of the comparison method
	Name() string
}
