//go:build linux || darwin

package storage

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"
)

func setModTime(path string, t time.Time) error {
	ts := unix.NsecToTimespec(t.UnixNano())
	return unix.UtimesNanoAt(unix.AT_FDCWD, path, []unix.Timespec{ts, ts}, unix.AT_SYMLINK_NOFOLLOW)
}

// classify tags errno values that have no io/fs equivalent
func classify(err error) error {
	switch {
	case errors.Is(err, unix.ENOTDIR):
		return &taggedError{tag: ErrNotDirectory, err: err}
	case errors.Is(err, unix.EXDEV):
		return &taggedError{tag: ErrCrossDevice, err: err}
	default:
		return err
	}
}
