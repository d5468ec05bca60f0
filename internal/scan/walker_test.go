package scan

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func collect(t *testing.T, w *Walker) ([]string, []error) {
	t.Helper()
	var paths []string
	var errs []error
	for e, err := range w.Walk(context.Background()) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		paths = append(paths, e.Path)
	}
	sort.Strings(paths)
	return paths, errs
}

func TestWalkRecursiveAndFlat(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.txt":         "a",
		"sub/b.txt":     "b",
		"sub/deep/c.md": "c",
	})

	tests := []struct {
		name      string
		recursive bool
		want      []string
	}{
		{"recursive", true, []string{"a.txt", "sub/b.txt", "sub/deep/c.md"}},
		{"flat", false, []string{"a.txt"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewWalker(root, DefaultOptions().WithRecursive(tt.recursive), nil)
			require.NoError(t, err)
			got, errs := collect(t, w)
			assert.Empty(t, errs)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWalkExcludesNames(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"keep.txt":          "k",
		".DS_Store":         "junk",
		"sub/.DS_Store":     "junk",
		"sub/keep2.txt":     "k",
		"node_modules/x.js": "x",
	})

	opts := DefaultOptions().ExcludeName(".DS_Store", "node_modules")
	w, err := NewWalker(root, opts, nil)
	require.NoError(t, err)

	got, errs := collect(t, w)
	assert.Empty(t, errs)
	assert.Equal(t, []string{"keep.txt", "sub/keep2.txt"}, got)
	assert.Equal(t, int64(3), w.Skipped())
}

func TestWalkExcludePattern(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.log":     "1",
		"b.txt":     "2",
		"sub/c.log": "3",
	})

	opts := DefaultOptions()
	require.NoError(t, opts.AddExcludePattern(`\.log$`))
	w, err := NewWalker(root, opts, nil)
	require.NoError(t, err)

	got, _ := collect(t, w)
	assert.Equal(t, []string{"b.txt"}, got)
}

func TestWalkSkipsSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	root := t.TempDir()
	writeTree(t, root, map[string]string{"real.txt": "data"})
	require.NoError(t, os.Symlink(filepath.Join(root, "real.txt"), filepath.Join(root, "link.txt")))

	w, err := NewWalker(root, DefaultOptions(), nil)
	require.NoError(t, err)

	got, errs := collect(t, w)
	assert.Empty(t, errs)
	assert.Equal(t, []string{"real.txt"}, got)
	assert.Equal(t, int64(1), w.Skipped())
}

func TestWalkFillsMetadata(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"dir/file.bin": "12345"})

	w, err := NewWalker(root, DefaultOptions(), nil)
	require.NoError(t, err)

	var seen int
	for e, err := range w.Walk(context.Background()) {
		require.NoError(t, err)
		seen++
		assert.Equal(t, "dir/file.bin", e.Path)
		assert.Equal(t, "file.bin", e.Name)
		assert.Equal(t, int64(5), e.Size)
		assert.NotEmpty(t, e.CreatedAt)
		assert.Equal(t, filepath.Join(w.Root(), "dir", "file.bin"), e.AbsPath)
	}
	assert.Equal(t, 1, seen)
}

func TestWalkUnreadableDirContinues(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"ok.txt":         "ok",
		"locked/hid.txt": "h",
		"other/fine.txt": "f",
	})
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { os.Chmod(locked, 0o755) })

	w, err := NewWalker(root, DefaultOptions(), nil)
	require.NoError(t, err)

	got, errs := collect(t, w)
	assert.Equal(t, []string{"ok.txt", "other/fine.txt"}, got)
	assert.Len(t, errs, 1)
}

func TestWalkStopsWhenConsumerBreaks(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a": "1", "b": "2", "c": "3"})

	w, err := NewWalker(root, DefaultOptions(), nil)
	require.NoError(t, err)

	n := 0
	for range w.Walk(context.Background()) {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestNewWalkerRejectsBadRoot(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	for _, root := range []string{"", filepath.Join(dir, "missing"), file} {
		_, err := NewWalker(root, nil, nil)
		require.Error(t, err, "root %q", root)
		assert.ErrorIs(t, err, ErrInvalidRoot)
		assert.True(t, IsConfigError(err))
	}
}
