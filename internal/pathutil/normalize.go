// Package pathutil canonicalizes user-supplied paths.
package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

// Normalize returns a canonical filesystem path string. A leading "~" is
// expanded to the home directory, then trailing slashes, "." and ".." are
// collapsed. Relative paths stay relative.
func Normalize(path string) string {
	if path == "" {
		return path
	}
	return filepath.Clean(expandHome(path))
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
