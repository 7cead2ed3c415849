package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// Local is a filesystem-based storage backend working on absolute paths
type Local struct{}

// NewLocal creates a new local filesystem backend
func NewLocal() *Local {
	return &Local{}
}

type localDir struct {
	file *os.File
}

func (d *localDir) ReadEntries(n int) ([]Entry, error) {
	dirents, err := d.file.ReadDir(n)
	if err == nil && n <= 0 && len(dirents) == 0 {
		err = io.EOF
	}
	if err != nil && err != io.EOF {
		err = fmt.Errorf("failed to read directory: %w", classify(err))
	}

	var entries []Entry
	for _, d := range dirents {
		entries = append(entries, Entry{Name: d.Name(), Type: TypeFromMode(d.Type())})
	}
	return entries, err
}

func (d *localDir) Close() error {
	return d.file.Close()
}

// OpenDir opens a directory for streaming its entries
func (l *Local) OpenDir(ctx context.Context, path string) (DirReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open directory: %w", classify(err))
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat directory: %w", classify(err))
	}
	if !info.IsDir() {
		file.Close()
		return nil, fmt.Errorf("failed to open directory %s: %w", path, ErrNotDirectory)
	}

	return &localDir{file: file}, nil
}

// Stat returns node metadata
func (l *Local) Stat(ctx context.Context, path string, followLinks bool) (*FileInfo, error) {
	var info os.FileInfo
	var err error
	if followLinks {
		info, err = os.Stat(path)
	} else {
		info, err = os.Lstat(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", classify(err))
	}

	return &FileInfo{
		Path:    path,
		Type:    TypeFromMode(info.Mode()),
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Mode:    info.Mode(),
	}, nil
}

// ReadLink returns the target of a symbolic link
func (l *Local) ReadLink(ctx context.Context, path string) (string, error) {
	target, err := os.Readlink(path)
	if err != nil {
		return "", fmt.Errorf("failed to read link: %w", classify(err))
	}
	return target, nil
}

// Mkdir creates a single directory
func (l *Local) Mkdir(ctx context.Context, path string) error {
	if err := os.Mkdir(path, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", classify(err))
	}
	return nil
}

// Symlink creates a symbolic link
func (l *Local) Symlink(ctx context.Context, target, path string) error {
	if err := os.Symlink(target, path); err != nil {
		return fmt.Errorf("failed to create link: %w", classify(err))
	}
	return nil
}

// Remove deletes a file, link or empty directory
func (l *Local) Remove(ctx context.Context, path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete: %w", classify(err))
	}
	return nil
}

// Rename moves a node. An existing file at the destination is replaced, so
// callers pick a free name first.
func (l *Local) Rename(ctx context.Context, from, to string) error {
	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("failed to rename: %w", classify(err))
	}
	return nil
}

// Open opens a file for reading
func (l *Local) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", classify(err))
	}
	return file, nil
}

// Create creates a new file, failing if it already exists
func (l *Local) Create(ctx context.Context, path string) (io.WriteCloser, error) {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", classify(err))
	}
	return file, nil
}

// SetModTime sets the modification time without following links
func (l *Local) SetModTime(ctx context.Context, path string, t time.Time) error {
	if err := setModTime(path, t); err != nil {
		return fmt.Errorf("failed to set modification time: %w", classify(err))
	}
	return nil
}

// Close releases resources (no-op for local filesystem)
func (l *Local) Close() error {
	return nil
}
