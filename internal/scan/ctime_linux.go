//go:build linux

package scan

import (
	"fmt"
	"os"
	"syscall"
)

// createdAt returns the inode change time. Linux stat does not expose a
// birth time, so ctime stands in for it.
func createdAt(info os.FileInfo) string {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return fmt.Sprintf("%d.%09d", int64(st.Ctim.Sec), int64(st.Ctim.Nsec))
	}
	return modTimeString(info)
}
