package extraction

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"

	"vidchunk/internal/services"
)

// LockName is the lock file taken in every output directory for a run.
const LockName = ".vidchunk.lock"

// lockOutputDir takes an exclusive, non-blocking lock on dir. The engine is
// the only writer of a run directory.
func lockOutputDir(dir string) (*flock.Flock, error) {
	lock := flock.New(filepath.Join(dir, LockName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, StageValidate, "lock output dir", dir, err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrValidation, StageValidate, "lock output dir", fmt.Sprintf("%s is in use by another run", dir), nil)
	}
	return lock, nil
}
