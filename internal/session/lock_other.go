//go:build !unix

package session

import "os"

// Without flock the lock file only marks the store as in use; it does not
// exclude a concurrent scan.
func (m *Manager) acquireLock() error {
	f, err := os.OpenFile(m.lockPath(), os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return err
	}
	m.lockFile = f
	return nil
}

func (m *Manager) releaseLock() {
	if m.lockFile != nil {
		m.lockFile.Close()
		m.lockFile = nil
	}
}
