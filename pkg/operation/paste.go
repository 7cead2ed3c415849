package operation

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sdejongh/bulkops/internal/platform"
	"github.com/sdejongh/bulkops/pkg/models"
	"github.com/sdejongh/bulkops/pkg/storage"
)

// pasteFunc writes root to dst, a free path inside the destination directory
type pasteFunc func(ctx context.Context, root, dst string, info *storage.FileInfo) error

// paste resolves where root lands in the destination directory and hands
// over to fn. Problems with the root itself are recorded as one failure.
func (o *Operation) paste(ctx context.Context, root string, fn pasteFunc) error {
	if platform.IsWithin(root, o.cfg.Destination) {
		o.recordFailure(ctx, root, fmt.Errorf("%s into %s: %w", root, o.cfg.Destination, models.ErrPasteIntoSelf))
		return nil
	}

	info, err := o.cfg.Backend.Stat(ctx, root, false)
	if err != nil {
		o.recordFailure(ctx, root, err)
		return nil
	}

	name, err := NonExistentName(ctx, o.cfg.Backend, o.cfg.Destination, filepath.Base(root), info.IsDir())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		o.recordFailure(ctx, root, err)
		return nil
	}

	return fn(ctx, root, filepath.Join(o.cfg.Destination, name), info)
}
