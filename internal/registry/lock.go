package registry

import (
	"context"
	"fmt"
	"os"
	"time"
)

// lockSuffix is appended to the registry path to name its lock file. The
// registry file itself is replaced on every write, so it cannot carry the
// lock.
const lockSuffix = ".lock"

// defaultLockPoll is how often a blocked writer retries the lock.
const defaultLockPoll = 25 * time.Millisecond

// fileLock is an exclusive advisory lock held on a sidecar file.
type fileLock struct {
	f *os.File
}

// acquireLock blocks until the exclusive lock on path's sidecar is held or
// ctx is done.
//
// Returns:
//   - ErrLocked (wrapping ctx.Err()) if ctx ends first
//   - ErrFileSystem if the lock file cannot be opened or locked
func acquireLock(ctx context.Context, path string, poll time.Duration) (*fileLock, error) {
	f, err := os.OpenFile(path+lockSuffix, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fsError("open lock file", err)
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		ok, err := tryLock(f)
		if err != nil {
			f.Close()
			return nil, fsError("lock", err)
		}
		if ok {
			return &fileLock{f: f}, nil
		}

		select {
		case <-ctx.Done():
			f.Close()
			return nil, fmt.Errorf("%w: %s: %w", ErrLocked, path, ctx.Err())
		case <-ticker.C:
		}
	}
}

// release drops the lock. The sidecar file is left in place; removing it
// would race with a writer that has opened but not yet locked it.
func (l *fileLock) release() error {
	uerr := unlock(l.f)
	cerr := l.f.Close()
	if uerr != nil {
		return fsError("unlock", uerr)
	}
	if cerr != nil {
		return fsError("close lock file", cerr)
	}
	return nil
}
