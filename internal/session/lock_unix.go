//go:build unix

package session

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

func (m *Manager) acquireLock() error {
	f, err := os.OpenFile(m.lockPath(), os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return err
	}

	// Try to acquire exclusive lock
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return ErrLocked
		}
		return err
	}

	m.lockFile = f
	return nil
}

func (m *Manager) releaseLock() {
	if m.lockFile != nil {
		unix.Flock(int(m.lockFile.Fd()), unix.LOCK_UN)
		m.lockFile.Close()
		m.lockFile = nil
	}
}
