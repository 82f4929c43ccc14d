package kv

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

// locksDirName keeps lock files out of the key listing.
const locksDirName = ".locks"

// LockTimeout bounds how long Update waits for another process.
const LockTimeout = 2 * time.Second

const lockPollInterval = 5 * time.Millisecond

// Lock errors.
var (
	ErrLockTimeout  = errors.New("lock timeout")
	errLockFileOpen = errors.New("failed to open lock file")
)

// fileLock is an exclusive flock held on a file in the .locks directory.
type fileLock struct {
	file *os.File
}

func (l *fileLock) release() {
	if l.file == nil {
		return
	}

	_ = unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	_ = l.file.Close()
	l.file = nil
}

// acquireLock takes an exclusive lock on <dir>/.locks/<name>.lock, polling
// until timeout. The lock file is never removed, so the inode check only
// guards against someone replacing it by hand between open and flock.
func acquireLock(dir, name string, timeout time.Duration) (*fileLock, error) {
	locksDir := filepath.Join(dir, locksDirName)
	lockPath := filepath.Join(locksDir, name+".lock")

	deadline := time.Now().Add(timeout)

	for {
		err := os.MkdirAll(locksDir, 0o750)
		if err != nil {
			return nil, fmt.Errorf("creating locks dir: %w", err)
		}

		file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o600)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errLockFileOpen, err)
		}

		fd := int(file.Fd())

		err = unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB)

		switch {
		case err == nil:
			var openStat, pathStat unix.Stat_t

			if unix.Fstat(fd, &openStat) == nil && unix.Stat(lockPath, &pathStat) == nil &&
				openStat.Ino == pathStat.Ino && openStat.Dev == pathStat.Dev {
				return &fileLock{file: file}, nil
			}

			// Replaced while we were locking; retry on the new inode.
			_ = unix.Flock(fd, unix.LOCK_UN)
			_ = file.Close()
		case errors.Is(err, unix.EWOULDBLOCK), errors.Is(err, unix.EINTR):
			_ = file.Close()

			if time.Now().After(deadline) {
				return nil, fmt.Errorf("%w: %s", ErrLockTimeout, lockPath)
			}

			time.Sleep(lockPollInterval)
		default:
			_ = file.Close()

			return nil, fmt.Errorf("flock: %w", err)
		}
	}
}
