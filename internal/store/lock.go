package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Error variables for file locking operations
var (
	// ErrLockNotHeld is returned when releasing a lock that isn't held
	ErrLockNotHeld = errors.New("lock not held")
)

// DefaultLockTimeout is how long command handlers wait for a busy vault
const DefaultLockTimeout = 5 * time.Second

// staleLockAge is the age after which an abandoned lock file is reclaimed
const staleLockAge = 5 * time.Minute

const lockRetryInterval = 100 * time.Millisecond

// FileLock is an advisory lock on a vault, held as <vault>.lock. The store
// itself never takes it; processes that share a vault path acquire it around
// every load-mutate-save cycle.
type FileLock struct {
	path     string
	lockFile *os.File
	locked   bool
	log      *zap.Logger
}

// NewFileLock creates a lock for the vault at vaultPath
func NewFileLock(vaultPath string, log *zap.Logger) *FileLock {
	if log == nil {
		log = zap.NewNop()
	}
	return &FileLock{
		path: filepath.Clean(vaultPath) + ".lock",
		log:  log,
	}
}

// Path returns the lock file path
func (fl *FileLock) Path() string {
	return fl.path
}

// Lock acquires the lock, waiting up to timeout. It returns ErrLocked when
// another holder keeps the lock for the whole period.
func (fl *FileLock) Lock(timeout time.Duration) error {
	if fl.locked {
		return errors.New("lock already held")
	}

	if err := os.MkdirAll(filepath.Dir(fl.path), 0o700); err != nil {
		return fmt.Errorf("%w: create lock directory: %w", ErrIO, err)
	}

	start := time.Now()
	for {
		file, err := os.OpenFile(fl.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			fl.lockFile = file
			fl.locked = true

			if _, err := file.WriteString(strconv.Itoa(os.Getpid())); err != nil {
				_ = fl.Unlock()
				return fmt.Errorf("%w: write lock file: %w", ErrIO, err)
			}
			if err := platformLock(file); err != nil {
				_ = fl.Unlock()
				return fmt.Errorf("%w: %w", ErrLocked, err)
			}
			return nil
		}
		if !os.IsExist(err) {
			return fmt.Errorf("%w: create lock file: %w", ErrIO, err)
		}

		if fl.isLockStale() {
			fl.log.Warn("removing stale vault lock", zap.String("path", fl.path))
			_ = os.Remove(fl.path)
			continue
		}

		if time.Since(start) >= timeout {
			return fmt.Errorf("%w: %s (held by pid %s)", ErrLocked, fl.path, fl.holder())
		}

		time.Sleep(lockRetryInterval)
	}
}

// Unlock releases the lock and removes the lock file
func (fl *FileLock) Unlock() error {
	if !fl.locked {
		return ErrLockNotHeld
	}

	var err error
	if fl.lockFile != nil {
		if unlockErr := platformUnlock(fl.lockFile); unlockErr != nil {
			err = unlockErr
		}
		if closeErr := fl.lockFile.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		fl.lockFile = nil
	}

	if removeErr := os.Remove(fl.path); removeErr != nil && !os.IsNotExist(removeErr) && err == nil {
		err = removeErr
	}

	fl.locked = false
	return err
}

// IsLocked returns true if this instance holds the lock
func (fl *FileLock) IsLocked() bool {
	return fl.locked
}

// isLockStale treats lock files older than staleLockAge as abandoned
func (fl *FileLock) isLockStale() bool {
	info, err := os.Stat(fl.path)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) > staleLockAge
}

func (fl *FileLock) holder() string {
	raw, err := os.ReadFile(fl.path)
	if err != nil {
		return "unknown"
	}
	pid := strings.TrimSpace(string(raw))
	if pid == "" {
		return "unknown"
	}
	return pid
}
