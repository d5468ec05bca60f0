//go:build darwin

package scan

import (
	"fmt"
	"os"
	"syscall"
)

// createdAt returns the file birth time.
func createdAt(info os.FileInfo) string {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return fmt.Sprintf("%d.%09d", int64(st.Birthtimespec.Sec), int64(st.Birthtimespec.Nsec))
	}
	return modTimeString(info)
}
