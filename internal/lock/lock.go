// Package lock guards against concurrent runs over the same configuration.
// The lock is an advisory flock on the configuration file itself, taken
// non-blocking at process start and held until exit: a second invocation
// fails immediately instead of queueing.
package lock

import (
	"os"

	"github.com/fgeck/blue-backup/internal/errs"
	"golang.org/x/sys/unix"
)

// RunLock holds an exclusive advisory lock for the lifetime of one run.
type RunLock struct {
	file *os.File
}

// Acquire locks the configuration file. A lock already held by another
// process surfaces as a LockError (EWOULDBLOCK underneath).
func Acquire(configPath string) (*RunLock, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		return nil, errs.Lock(configPath, err)
	}
	return &RunLock{file: file}, nil
}

// Release drops the lock. Closing the descriptor releases the flock, so
// this is safe on every exit path.
func (l *RunLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	_ = unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	err := l.file.Close()
	l.file = nil
	return err
}
