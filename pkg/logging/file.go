package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// RotatingFileConfig holds configuration for file output
type RotatingFileConfig struct {
	// Path is the log file path
	Path string
	// MaxSize is the maximum size in bytes before rotation (0 = no rotation)
	MaxSize int64
	// MaxBackups is the maximum number of backup files to keep
	MaxBackups int
}

// RotatingFile is an append-only writer that rotates the file once it grows
// past MaxSize, keeping MaxBackups numbered copies (path.1 is the newest).
type RotatingFile struct {
	config      RotatingFileConfig
	file        *os.File
	mu          sync.Mutex
	currentSize int64
}

// NewRotatingFile opens path for appending, creating parent directories
func NewRotatingFile(config RotatingFileConfig) (*RotatingFile, error) {
	dir := filepath.Dir(config.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(config.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}

	return &RotatingFile{
		config:      config,
		file:        file,
		currentSize: info.Size(),
	}, nil
}

// Write appends p, rotating first when the size limit has been reached
func (r *RotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return 0, os.ErrClosed
	}

	if r.config.MaxSize > 0 && r.currentSize >= r.config.MaxSize {
		if err := r.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := r.file.Write(p)
	r.currentSize += int64(n)
	return n, err
}

// Close closes the current file
func (r *RotatingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// rotate must be called with the lock held
func (r *RotatingFile) rotate() error {
	r.file.Close()

	for i := r.config.MaxBackups - 1; i >= 1; i-- {
		oldPath := fmt.Sprintf("%s.%d", r.config.Path, i)
		newPath := fmt.Sprintf("%s.%d", r.config.Path, i+1)
		os.Rename(oldPath, newPath)
	}

	if r.config.MaxBackups > 0 {
		os.Rename(r.config.Path, r.config.Path+".1")
		os.Remove(fmt.Sprintf("%s.%d", r.config.Path, r.config.MaxBackups+1))
	} else {
		os.Remove(r.config.Path)
	}

	file, err := os.OpenFile(r.config.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		r.file = nil
		return fmt.Errorf("failed to reopen log file: %w", err)
	}

	r.file = file
	r.currentSize = 0
	return nil
}
