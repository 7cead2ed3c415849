package models

import (
	"fmt"
	"strings"
)

// OperationKind identifies one of the bulk operations
type OperationKind string

const (
	// KindCount counts every node below the selected roots
	KindCount OperationKind = "count"
	// KindSize counts nodes and sums their sizes
	KindSize OperationKind = "size"
	// KindDelete removes the selected roots recursively
	KindDelete OperationKind = "delete"
	// KindCopy copies the selected roots into a destination directory
	KindCopy OperationKind = "copy"
	// KindMove renames the selected roots into a destination directory
	KindMove OperationKind = "move"
)

// OperationKinds lists every supported kind in display order
var OperationKinds = []OperationKind{KindCount, KindSize, KindDelete, KindCopy, KindMove}

// ParseOperationKind converts a user supplied name into an OperationKind
func ParseOperationKind(s string) (OperationKind, error) {
	k := OperationKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range OperationKinds {
		if k == known {
			return k, nil
		}
	}
	return "", &ValidationError{
		Field:   "kind",
		Message: fmt.Sprintf("unknown operation %q", s),
	}
}

func (k OperationKind) String() string {
	return string(k)
}

// IsPaste reports whether the kind writes into a destination directory
func (k OperationKind) IsPaste() bool {
	return k == KindCopy || k == KindMove
}

// Request describes a bulk operation to run over a set of roots
type Request struct {
	Kind        OperationKind
	Roots       []string
	Destination string
}

// Validate checks if the request is well formed
func (r Request) Validate() error {
	if _, err := ParseOperationKind(string(r.Kind)); err != nil {
		return err
	}
	if len(r.Roots) == 0 {
		return &ValidationError{Field: "roots", Message: "at least one path is required"}
	}
	for _, root := range r.Roots {
		if root == "" {
			return &ValidationError{Field: "roots", Message: "path cannot be empty"}
		}
	}
	if r.Kind.IsPaste() && r.Destination == "" {
		return &ValidationError{Field: "destination", Message: "destination directory is required for " + r.Kind.String()}
	}
	if !r.Kind.IsPaste() && r.Destination != "" {
		return &ValidationError{Field: "destination", Message: "destination is only valid for copy and move"}
	}
	return nil
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
