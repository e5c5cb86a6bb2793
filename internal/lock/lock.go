// Package lock serializes reconciliation runs over one derived directory.
package lock

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/agentstation/taxsync/pkg/constants"
	"github.com/agentstation/taxsync/pkg/errors"
)

// Lock is a held advisory lock.
type Lock struct {
	flock *flock.Flock
}

// Acquire takes the default lock file inside dir without blocking.
func Acquire(dir string) (*Lock, error) {
	return AcquireFile(dir, constants.LockFileName)
}

// AcquireFile takes dir/name without blocking.
// It returns an error wrapping ErrLocked when another process holds it.
func AcquireFile(dir, name string) (*Lock, error) {
	path := filepath.Join(dir, name)
	fl := flock.New(path)

	locked, err := fl.TryLock()
	if err != nil {
		return nil, errors.WrapIO("lock", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", errors.ErrLocked, path)
	}

	return &Lock{flock: fl}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.flock.Path()
}

// Release unlocks. The lock file is left in place.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return errors.WrapIO("unlock", l.flock.Path(), err)
	}
	return nil
}
