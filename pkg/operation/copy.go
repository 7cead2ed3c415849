package operation

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/sdejongh/bulkops/pkg/logging"
	"github.com/sdejongh/bulkops/pkg/models"
	"github.com/sdejongh/bulkops/pkg/ratelimit"
	"github.com/sdejongh/bulkops/pkg/storage"
	"github.com/sdejongh/bulkops/pkg/traverse"
)

// copyRoot recreates the tree of root at dst in pre-order
func (o *Operation) copyRoot(ctx context.Context, root, dst string, _ *storage.FileInfo) error {
	rebase := func(path string) string {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			return dst
		}
		return filepath.Join(dst, rel)
	}

	return o.walk(ctx, root, func(ctx context.Context, e traverse.Event) error {
		to := rebase(e.Path)

		if e.Phase == traverse.Post {
			// Writing children bumped the directory's time
			if e.Type == storage.TypeDirectory && e.Err == nil {
				if info, err := o.cfg.Backend.Stat(ctx, e.Path, false); err == nil {
					o.copyModTime(ctx, info.ModTime, to)
				}
			}
			return nil
		}

		if e.Err != nil {
			o.recordFailure(ctx, e.Path, e.Err)
			return nil
		}
		return o.copyItem(ctx, e.Path, to)
	})
}

func (o *Operation) copyItem(ctx context.Context, from, to string) error {
	info, err := o.cfg.Backend.Stat(ctx, from, false)
	if err != nil {
		o.recordFailure(ctx, from, err)
		return nil
	}

	switch info.Type {
	case storage.TypeSymlink:
		target, err := o.cfg.Backend.ReadLink(ctx, from)
		if err == nil {
			err = o.cfg.Backend.Symlink(ctx, target, to)
		}
		if err != nil {
			o.recordFailure(ctx, from, err)
			return nil
		}
		o.items.Add(1)
		o.bytes.Add(info.Size)
		o.copyModTime(ctx, info.ModTime, to)

	case storage.TypeDirectory:
		if err := o.cfg.Backend.Mkdir(ctx, to); err != nil {
			o.recordFailure(ctx, from, err)
			return nil
		}
		o.items.Add(1)
		o.bytes.Add(info.Size)

	case storage.TypeFile:
		return o.copyFile(ctx, from, to, info)

	default:
		o.recordFailure(ctx, from, fmt.Errorf("%s is a %s: %w", from, info.Type, models.ErrNotFileOrDirectory))
	}
	return nil
}

// copyFile streams the content in BufferSize chunks. A failed or cancelled
// copy leaves no partial file behind; only failures are recorded.
func (o *Operation) copyFile(ctx context.Context, from, to string, info *storage.FileInfo) error {
	created, err := o.streamFile(ctx, from, to)
	if err == nil {
		err = o.verify(ctx, from, to)
	}
	if err == nil {
		o.items.Add(1)
		o.copyModTime(ctx, info.ModTime, to)
		return nil
	}

	if created {
		if rmErr := o.cfg.Backend.Remove(ctx, to); rmErr != nil {
			o.cfg.Logger.Warn(ctx, "failed to remove partial file", logging.Fields{"path": to, "error": rmErr.Error()})
		}
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	o.recordFailure(ctx, from, err)
	return nil
}

// verify compares a finished copy with its source when a Verifier is set
func (o *Operation) verify(ctx context.Context, from, to string) error {
	if o.cfg.Verifier == nil {
		return nil
	}
	cmp, err := o.cfg.Verifier.Compare(ctx, o.cfg.Backend, from, to)
	if err != nil {
		return err
	}
	return cmp.Err()
}

// streamFile reports whether it created the destination, so that a file
// that already existed is never removed on failure.
func (o *Operation) streamFile(ctx context.Context, from, to string) (bool, error) {
	in, err := o.cfg.Backend.Open(ctx, from)
	if err != nil {
		return false, err
	}
	defer in.Close()

	out, err := o.cfg.Backend.Create(ctx, to)
	if err != nil {
		return false, err
	}
	defer out.Close()

	reader := ratelimit.NewReader(ctx, in, o.cfg.Limiter)
	buf := make([]byte, o.cfg.BufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return true, err
		}

		n, readErr := reader.Read(buf)
		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				return true, err
			}
			o.bytes.Add(int64(n))
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return true, readErr
		}
	}

	return true, out.Close()
}

// copyModTime is best effort; failures are only logged
func (o *Operation) copyModTime(ctx context.Context, modTime time.Time, to string) {
	if !o.cfg.PreserveTimes {
		return
	}
	if err := o.cfg.Backend.SetModTime(ctx, to, modTime); err != nil {
		o.cfg.Logger.Debug(ctx, "failed to set modification time", logging.Fields{"path": to, "error": err.Error()})
	}
}
