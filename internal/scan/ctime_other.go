//go:build !linux && !darwin

package scan

import "os"

func createdAt(info os.FileInfo) string {
	return modTimeString(info)
}
