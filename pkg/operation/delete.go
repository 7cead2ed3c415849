package operation

import (
	"context"
	"errors"
	"io/fs"

	"github.com/sdejongh/bulkops/pkg/traverse"
)

// deleteRoot records a root that cannot be stated as a single failure and
// skips it. Below the root, vanished nodes are not failures.
func (o *Operation) deleteRoot(ctx context.Context, root string) error {
	if _, err := o.cfg.Backend.Stat(ctx, root, false); err != nil {
		o.recordFailure(ctx, root, err)
		return nil
	}
	return o.walk(ctx, root, o.visitDelete)
}

// visitDelete removes nodes on their Post event so directories are emptied
// first. Nodes that vanish in the meantime are skipped silently.
func (o *Operation) visitDelete(ctx context.Context, e traverse.Event) error {
	if e.Phase != traverse.Post {
		return nil
	}
	if e.Err != nil {
		if !errors.Is(e.Err, fs.ErrNotExist) {
			o.recordFailure(ctx, e.Path, e.Err)
		}
		return nil
	}

	var size int64
	info, err := o.cfg.Backend.Stat(ctx, e.Path, false)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err == nil:
		size = info.Size
	}

	if err := o.cfg.Backend.Remove(ctx, e.Path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			o.recordFailure(ctx, e.Path, err)
		}
		return nil
	}

	o.items.Add(1)
	o.bytes.Add(size)
	return nil
}
