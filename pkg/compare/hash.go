package compare

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"sync"

	"github.com/sdejongh/bulkops/pkg/storage"
)

// HashComparator compares files using SHA-256 hash
type HashComparator struct {
	bufferSize int
	bufferPool *sync.Pool
}

var _ Comparator = (*HashComparator)(nil)

// NewHashComparator creates a new hash-based comparator
func NewHashComparator(bufferSize int) *HashComparator {
	if bufferSize < 4096 {
		bufferSize = 4096
	}
	return &HashComparator{
		bufferSize: bufferSize,
		bufferPool: &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, bufferSize)
				return &buf
			},
		},
	}
}

// Compare compares two files using SHA-256 hash. Sizes are checked first;
// both hashes are then computed in parallel.
func (c *HashComparator) Compare(ctx context.Context, backend storage.Backend, sourcePath, destPath string) (*Comparison, error) {
	cmp := &Comparison{SourcePath: sourcePath, DestPath: destPath}

	sourceInfo, err := backend.Stat(ctx, sourcePath, false)
	if err != nil {
		return nil, fmt.Errorf("failed to stat source file: %w", err)
	}
	destInfo, err := backend.Stat(ctx, destPath, false)
	if err != nil {
		return nil, fmt.Errorf("failed to stat destination file: %w", err)
	}

	// If sizes differ, files are different
	if sourceInfo.Size != destInfo.Size {
		cmp.Result = Different
		cmp.Reason = fmt.Sprintf("file sizes differ (%d != %d)", sourceInfo.Size, destInfo.Size)
		return cmp, nil
	}

	var sourceHash, destHash string
	var sourceHashErr, destHashErr error
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		sourceHash, sourceHashErr = c.computeHash(ctx, backend, sourcePath)
	}()
	go func() {
		defer wg.Done()
		destHash, destHashErr = c.computeHash(ctx, backend, destPath)
	}()
	wg.Wait()

	if sourceHashErr != nil {
		return nil, fmt.Errorf("failed to compute source hash: %w", sourceHashErr)
	}
	if destHashErr != nil {
		return nil, fmt.Errorf("failed to compute destination hash: %w", destHashErr)
	}

	if sourceHash != destHash {
		cmp.Result = Different
		cmp.Reason = "file hashes differ"
		return cmp, nil
	}

	cmp.Result = Same
	cmp.Reason = "file hashes match"
	return cmp, nil
}

// computeHash computes SHA-256 hash of a file using streaming
func (c *HashComparator) computeHash(ctx context.Context, backend storage.Backend, path string) (string, error) {
	reader, err := backend.Open(ctx, path)
	if err != nil {
		return "", err
	}
	defer reader.Close()

	hasher := sha256.New()

	// Get buffer from pool
	bufPtr := c.bufferPool.Get().(*[]byte)
	buffer := *bufPtr
	defer c.bufferPool.Put(bufPtr)

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		n, err := reader.Read(buffer)
		if n > 0 {
			hasher.Write(buffer[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
	}

	return fmt.Sprintf("%x", hasher.Sum(nil)), nil
}

// Name returns the comparator name
func (c *HashComparator) Name() string {
	return "hash"
}
