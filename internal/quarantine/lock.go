package quarantine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ZebulonRouseFrantzich/pgp-cp/internal/errors"
)

const (
	// StaleLockThreshold is the maximum age of a lock before it's considered stale.
	StaleLockThreshold = 10 * time.Minute
)

// ErrLockExists is returned when another run holds the lock for an output.
var ErrLockExists = errors.New("output lock exists: another pgp-cp run may be writing the same output")

// Lock is an exclusive claim on one output path.
type Lock struct {
	path string
	file *os.File
}

// lockName derives the lock file name from the absolute output path.
func lockName(output string) string {
	sum := sha256.Sum256([]byte(output))
	return hex.EncodeToString(sum[:])[:32] + ".lock"
}

// AcquireLock takes the lock for output inside dir.
// Uses O_CREATE|O_EXCL for atomic lock creation.
func AcquireLock(ctx context.Context, dir, output string) (*Lock, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.E(errors.IO, errors.Op("acquire lock"), err)
	}

	abs, err := filepath.Abs(output)
	if err != nil {
		return nil, errors.E(errors.IO, errors.Op("resolve output"), errors.Path(output), err)
	}
	lockPath := filepath.Join(dir, lockName(abs))

	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
	if err != nil {
		if !os.IsExist(err) {
			return nil, errors.E(errors.IO, errors.Op("create lock file"), errors.Path(lockPath), err)
		}
		// Lock exists - take it over only if it is stale
		stale, _ := isLockStale(lockPath)
		if !stale {
			return nil, errors.E(errors.IO, errors.Path(lockPath), ErrLockExists)
		}
		os.Remove(lockPath)
		file, err = os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
		if err != nil {
			return nil, errors.E(errors.IO, errors.Path(lockPath), ErrLockExists)
		}
	}

	// Write lock metadata (PID, timestamp, output)
	lockData := fmt.Sprintf("pid=%d\ntimestamp=%s\noutput=%s\n",
		os.Getpid(), time.Now().UTC().Format(time.RFC3339), abs)
	if _, err := file.WriteString(lockData); err != nil {
		file.Close()
		os.Remove(lockPath)
		return nil, errors.E(errors.IO, errors.Op("write lock data"), errors.Path(lockPath), err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(lockPath)
		return nil, errors.E(errors.IO, errors.Op("sync lock file"), errors.Path(lockPath), err)
	}

	return &Lock{
		path: lockPath,
		file: file,
	}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.path }

// Release releases the lock.
func (l *Lock) Release() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	if l.path != "" {
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove lock file: %w", err)
		}
		l.path = ""
	}

	return nil
}

// isLockStale checks if a lock file is older than the stale lock threshold.
func isLockStale(lockPath string) (bool, error) {
	info, err := os.Stat(lockPath)
	if err != nil {
		return false, err
	}

	age := time.Since(info.ModTime())
	return age > StaleLockThreshold, nil
}
