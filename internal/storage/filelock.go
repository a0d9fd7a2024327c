package storage

import (
	"errors"
	"os"
)

// ErrWouldBlock signals that a non-blocking lock attempt failed due to the
// resource being locked by another process.
var ErrWouldBlock = errors.New("file lock would block")

// AcquireLockHandle attempts to acquire an exclusive lock on path and returns
// the underlying file handle if successful. The second return value is false
// when the lock is currently held by another process.
func AcquireLockHandle(path string) (*os.File, bool, error) {
	f, err := acquireFileLock(path)
	if err != nil {
		if f != nil {
			_ = f.Close()
		}
		if errors.Is(err, ErrWouldBlock) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return f, true, nil
}

// ReleaseLockHandle releases the lock represented by the provided file handle
// and removes the lock artifact.
func ReleaseLockHandle(f *os.File) error { return releaseFileLock(f) }
