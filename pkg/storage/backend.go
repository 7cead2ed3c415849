package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"time"
)

var (
	// ErrNotDirectory is returned when a directory operation hits another node type
	ErrNotDirectory = errors.New("not a directory")

	// ErrCrossDevice is returned when a rename would cross filesystems
	ErrCrossDevice = errors.New("cross-device link")
)

// EntryType is the kind of a filesystem node, as seen without following links
type EntryType int

const (
	TypeOther EntryType = iota
	TypeFile
	TypeDirectory
	TypeSymlink
)

func (t EntryType) String() string {
	switch t {
	case TypeFile:
		return "file"
	case TypeDirectory:
		return "directory"
	case TypeSymlink:
		return "symlink"
	default:
		return "other"
	}
}

// TypeFromMode maps file mode bits to an EntryType
func TypeFromMode(mode fs.FileMode) EntryType {
	switch {
	case mode&fs.ModeSymlink != 0:
		return TypeSymlink
	case mode.IsDir():
		return TypeDirectory
	case mode.IsRegular():
		return TypeFile
	default:
		return TypeOther
	}
}

// Entry is one child of a directory listing
type Entry struct {
	Name string
	Type EntryType
}

// FileInfo represents metadata about a node
type FileInfo struct {
	Path    string
	Type    EntryType
	Size    int64
	ModTime time.Time
	Mode    fs.FileMode
}

// IsDir reports whether the node is a directory
func (fi *FileInfo) IsDir() bool {
	return fi.Type == TypeDirectory
}

// DirReader streams the entries of an open directory
type DirReader interface {
	// ReadEntries returns at most n entries, or all remaining entries when n <= 0.
	// It returns io.EOF once the listing is exhausted. Entries read before an
	// error are returned along with it.
	ReadEntries(n int) ([]Entry, error)

	// Close releases the directory handle
	Close() error
}

// Backend defines the filesystem primitives used by the bulk operations.
// Errors wrap fs.ErrNotExist, fs.ErrExist, fs.ErrPermission, ErrNotDirectory
// and ErrCrossDevice so callers can match them with errors.Is.
type Backend interface {
	// OpenDir opens a directory for streaming its entries
	OpenDir(ctx context.Context, path string) (DirReader, error)

	// Stat returns node metadata; symbolic links are only followed when followLinks is set
	Stat(ctx context.Context, path string, followLinks bool) (*FileInfo, error)

	// ReadLink returns the target of a symbolic link as stored
	ReadLink(ctx context.Context, path string) (string, error)

	// Mkdir creates a single directory
	Mkdir(ctx context.Context, path string) error

	// Symlink creates a symbolic link at path pointing to target
	Symlink(ctx context.Context, target, path string) error

	// Remove deletes a file, link or empty directory
	Remove(ctx context.Context, path string) error

	// Rename moves a node within the same filesystem
	Rename(ctx context.Context, from, to string) error

	// Open opens a file for reading
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Create creates a new file for writing, failing if the path exists
	Create(ctx context.Context, path string) (io.WriteCloser, error)

	// SetModTime sets the modification time without following links
	SetModTime(ctx context.Context, path string, t time.Time) error

	// Close releases any resources held by the backend
	Close() error
}

// taggedError keeps the original message while matching a sentinel as well
type taggedError struct {
	tag error
	err error
}

func (e *taggedError) Error() string {
	return e.err.Error()
}

func (e *taggedError) Unwrap() []error {
	return []error{e.tag, e.err}
}
