package operation

import (
	"context"
	"errors"

	"github.com/sdejongh/bulkops/pkg/logging"
	"github.com/sdejongh/bulkops/pkg/storage"
)

// moveRoot renames root into place without traversing it. When the rename
// crosses filesystems the root is copied instead and the source deleted,
// but only if every node was copied.
func (o *Operation) moveRoot(ctx context.Context, root, dst string, info *storage.FileInfo) error {
	err := o.cfg.Backend.Rename(ctx, root, dst)
	if err == nil {
		o.items.Add(1)
		return nil
	}
	if !errors.Is(err, storage.ErrCrossDevice) {
		o.recordFailure(ctx, root, err)
		return nil
	}

	o.cfg.Logger.Info(ctx, "moving across filesystems, falling back to copy and delete", logging.Fields{
		"source":      root,
		"destination": dst,
	})
	return o.moveAcross(ctx, root, dst, info)
}

func (o *Operation) moveAcross(ctx context.Context, root, dst string, info *storage.FileInfo) error {
	copier := &Operation{cfg: o.cfg}
	err := copier.copyRoot(ctx, root, dst, info)
	o.bytes.Add(copier.ByteCount())
	o.absorbFailures(copier)
	if err != nil || copier.failureCount() > 0 {
		return err
	}

	remover := &Operation{cfg: o.cfg}
	err = remover.walk(ctx, root, remover.visitDelete)
	o.absorbFailures(remover)
	if err != nil {
		return err
	}
	if remover.failureCount() == 0 {
		o.items.Add(1)
	}
	return nil
}

// absorbFailures merges the failures of a fallback run. Its item count
// stays local since a moved root counts as one item.
func (o *Operation) absorbFailures(child *Operation) {
	failures := child.Failures()
	if len(failures) == 0 {
		return
	}
	o.mu.Lock()
	o.failures = append(o.failures, failures...)
	o.mu.Unlock()
}
