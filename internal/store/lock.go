package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockFile is the advisory lock file created inside a catalog directory.
const LockFile = ".vodcat.lock"

// ErrLocked is returned when another process holds the catalog lock.
var ErrLocked = errors.New("catalog directory locked by another process")

// Locker is an advisory, process-level lock on a catalog directory so two
// crawlers never write the same catalogs at once.
type Locker struct {
	lock *flock.Flock
}

// NewLocker creates a lock for dir without acquiring it.
func NewLocker(dir string) *Locker {
	return &Locker{lock: flock.New(filepath.Join(dir, LockFile))}
}

// Path returns the lock file path.
func (l *Locker) Path() string {
	return l.lock.Path()
}

// TryLock acquires the lock without blocking. It returns ErrLocked when the
// lock is held elsewhere.
func (l *Locker) TryLock() error {
	if err := os.MkdirAll(filepath.Dir(l.lock.Path()), 0o755); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}
	ok, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", l.lock.Path(), ErrLocked)
	}
	return nil
}

// Unlock releases the lock.
func (l *Locker) Unlock() error {
	return l.lock.Unlock()
}
