package pathutil

import (
	"path/filepath"
	"testing"
)

func TestNormalize(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"data/", "data"},
		{"./a/../b", "b"},
		{"/srv/share/./docs/", filepath.Clean("/srv/share/docs")},
		{"~", home},
		{"~/drive/db", filepath.Join(home, "drive", "db")},
		{"~other/x", filepath.Clean("~other/x")},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
