package config

import (
	"fmt"
	"log/slog"

	"github.com/gofrs/flock"
)

// FileLock is an advisory lock held in a sidecar file next to the data it
// guards. Config saves wait for it; catalog scans give up if it is taken.
type FileLock struct {
	path  string
	flock *flock.Flock
}

// NewFileLock returns an unlocked lock on path. The file is created on the
// first lock attempt.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path, flock: flock.New(path)}
}

// Lock blocks until the lock is held.
func (l *FileLock) Lock() error {
	if err := l.flock.Lock(); err != nil {
		slog.Error("failed to acquire file lock", "path", l.path, "error", err)
		return fmt.Errorf("lock %s: %w", l.path, err)
	}
	slog.Debug("file lock acquired", "path", l.path)
	return nil
}

// TryLock takes the lock if it is free and reports whether it did.
func (l *FileLock) TryLock() (bool, error) {
	acquired, err := l.flock.TryLock()
	if err != nil {
		slog.Error("failed to try file lock", "path", l.path, "error", err)
		return false, fmt.Errorf("lock %s: %w", l.path, err)
	}
	if !acquired {
		slog.Debug("file lock busy", "path", l.path)
	}
	return acquired, nil
}

// Unlock releases the lock. Releasing a lock that is not held is a no-op.
func (l *FileLock) Unlock() error {
	if err := l.flock.Unlock(); err != nil {
		slog.Error("failed to release file lock", "path", l.path, "error", err)
		return fmt.Errorf("unlock %s: %w", l.path, err)
	}
	return nil
}
