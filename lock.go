package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

const lockFilePermissions = 0o600

const lockDirPermissions = 0o700

// lockAttempts bounds retries when the lock file is replaced under us.
const lockAttempts = 5

// errImportRunning means another import holds the journal lock.
var errImportRunning = errors.New("another import is already using this journal")

// acquireImportLock takes an exclusive flock on path and writes the current
// PID into it. The returned release function removes the file and drops the
// lock.
//
// Because release unlinks the file, a competitor may open the old inode just
// before it disappears and lock it afterwards. The lock therefore only counts
// when the locked file is still the one at path; otherwise it is retried.
func acquireImportLock(path string) (release func(), err error) {
	if path == "" {
		return nil, fmt.Errorf("lock file path is empty")
	}

	if err := os.MkdirAll(filepath.Dir(path), lockDirPermissions); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	for range lockAttempts {
		f, err := lockFile(path)
		if err != nil {
			return nil, err
		}

		current, err := isCurrentFile(f, path)
		if err != nil {
			f.Close()
			return nil, err
		}

		if !current {
			f.Close()
			continue
		}

		if err := writePID(f); err != nil {
			f.Close()
			return nil, err
		}

		return func() {
			os.Remove(path)
			f.Close()
		}, nil
	}

	return nil, fmt.Errorf("%w (lock file %s keeps changing)", errImportRunning, path)
}

// lockFile opens path and takes a non-blocking exclusive flock on it.
func lockFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, lockFilePermissions)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()

		return nil, fmt.Errorf("%w (could not lock %s)", errImportRunning, path)
	}

	return f, nil
}

// isCurrentFile reports whether the open file f is still linked at path.
func isCurrentFile(f *os.File, path string) (bool, error) {
	held, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("checking lock file: %w", err)
	}

	onDisk, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("checking lock file: %w", err)
	}

	return os.SameFile(held, onDisk), nil
}

func writePID(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("truncating lock file: %w", err)
	}

	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		return fmt.Errorf("writing lock file: %w", err)
	}

	return nil
}

// journalLockPath is the lock guarding the journal at journalPath.
func journalLockPath(journalPath string) string {
	return journalPath + ".lock"
}
