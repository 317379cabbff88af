package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockFile is the advisory lock taken inside the data directory.
const LockFile = ".kaldialign.lock"

// ErrDataDirBusy indicates another run holds the data directory lock.
var ErrDataDirBusy = errors.New("data directory is in use by another run")

// lockDataDir takes the data directory lock without waiting.
func lockDataDir(dataDir string) (*flock.Flock, error) {
	lock := flock.New(filepath.Join(dataDir, LockFile))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", lock.Path(), err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDataDirBusy, dataDir)
	}
	return lock, nil
}
