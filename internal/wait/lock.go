package fwait

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

// LockDirName is the directory under the user's home that holds per-target
// lock files when no explicit lock directory is configured.
const LockDirName = "filewatcher"

// TargetLock is an exclusive advisory lock scoped to a single watch target.
// At most one process may hold the lock for a given sanitized target name;
// cooperating processes must go through AcquireLock for the guarantee to
// hold.
type TargetLock struct {
	target   string
	path     string
	fl       *flock.Flock
	logger   *zap.Logger
	released bool
}

// SanitizeTarget maps a watch target to its lock file name. Every byte
// outside [A-Za-z0-9] becomes an underscore, so the result is a single path
// component with the same length as the input. The mapping is deliberately
// coarse: distinct targets may collide, but the same target always maps to
// the same name.
func SanitizeTarget(target string) string {
	b := []byte(target)
	for i, c := range b {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		default:
			b[i] = '_'
		}
	}
	return string(b)
}

// DefaultLockDir returns the lock directory used when none is configured.
func DefaultLockDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, LockDirName), nil
}

// AcquireLock creates the lock directory if needed and takes a non-blocking
// exclusive lock on the target's lock file. An empty dir selects
// DefaultLockDir. If another process already holds the lock, the returned
// error wraps ErrCannotLock and the lock file is left untouched.
func AcquireLock(dir, target string, logger *zap.Logger) (*TargetLock, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir == "" {
		var err error
		dir, err = DefaultLockDir()
		if err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, SanitizeTarget(target))
	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("%w on %s: %v", ErrCannotLock, path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w on %s: held by another process", ErrCannotLock, path)
	}

	logger.Info("lock acquired",
		zap.String("target", target),
		zap.String("lock", path),
	)

	return &TargetLock{target: target, path: path, fl: fl, logger: logger}, nil
}

// Path returns the lock file path.
func (l *TargetLock) Path() string {
	return l.path
}

// Release unlocks and removes the lock file. It is safe to call more than
// once; only the first call does any work. Release runs on every exit path,
// fatal ones included, so a failed watch never leaks its lock.
func (l *TargetLock) Release() error {
	if l == nil || l.released {
		return nil
	}
	l.released = true

	// Remove while still holding the lock. Unlocking first leaves a window
	// where another watcher locks the old file just before it is deleted,
	// and a third then locks a fresh file at the same path.
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		l.fl.Unlock()
		return fmt.Errorf("removing lock file %s: %w", l.path, err)
	}
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("unlocking %s: %w", l.path, err)
	}

	l.logger.Debug("lock released", zap.String("lock", l.path))
	return nil
}
