package scan

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync/atomic"

	"github.com/michaelscutari/dupscan/internal/entry"
	"github.com/michaelscutari/dupscan/internal/pathutil"
)

// ErrInvalidRoot is returned when the scan root is unset, missing, or not a
// directory.
var ErrInvalidRoot = errors.New("invalid scan root")

// Walker lazily enumerates the regular files under a root.
type Walker struct {
	root    string
	opts    *ScanOptions
	log     *slog.Logger
	skipped int64
}

type dirWork struct {
	abs string
	rel string
}

// NewWalker validates root and returns a walker over it.
func NewWalker(root string, opts *ScanOptions, log *slog.Logger) (*Walker, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: no target folder specified", ErrInvalidRoot)
	}
	root, err := filepath.Abs(pathutil.Normalize(root))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidRoot, root)
	}

	if opts == nil {
		opts = DefaultOptions()
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Walker{root: root, opts: opts, log: log}, nil
}

// Root returns the absolute, cleaned root.
func (w *Walker) Root() string { return w.root }

// Skipped returns the number of excluded and non-regular entries seen so far.
func (w *Walker) Skipped() int64 { return atomic.LoadInt64(&w.skipped) }

// Walk yields each regular file under the root. An entry that cannot be
// read is yielded with a non-nil error and the walk continues. Order is
// unspecified.
func (w *Walker) Walk(ctx context.Context) iter.Seq2[entry.Entry, error] {
	return func(yield func(entry.Entry, error) bool) {
		stack := []dirWork{{abs: w.root, rel: ""}}

		for len(stack) > 0 {
			if ctx.Err() != nil {
				return
			}
			work := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			dirEntries, err := os.ReadDir(work.abs)
			if err != nil {
				e := entry.Entry{Path: displayPath(work.rel), AbsPath: work.abs, Name: filepath.Base(work.abs), Kind: entry.KindDir}
				if !yield(e, fmt.Errorf("read directory %s: %w", e.Path, err)) {
					return
				}
				if len(dirEntries) == 0 {
					continue
				}
			}

			for i, de := range dirEntries {
				if i%100 == 0 && ctx.Err() != nil {
					return
				}

				name := de.Name()
				rel := path.Join(work.rel, name)
				abs := filepath.Join(work.abs, name)

				if w.opts.ShouldExclude(name, rel) {
					atomic.AddInt64(&w.skipped, 1)
					w.log.Debug("excluded", "path", rel)
					continue
				}

				// Lstat so symlinks are never followed
				info, err := os.Lstat(abs)
				if err != nil {
					if !yield(entry.Entry{Path: rel, AbsPath: abs, Name: name}, fmt.Errorf("stat %s: %w", rel, err)) {
						return
					}
					continue
				}

				kind := entry.KindFromMode(info.Mode())
				switch kind {
				case entry.KindFile:
				case entry.KindDir:
					if w.opts.Recursive {
						stack = append(stack, dirWork{abs: abs, rel: rel})
					}
					continue
				default:
					atomic.AddInt64(&w.skipped, 1)
					w.log.Debug("skipping non-regular file", "path", rel, "kind", kind)
					continue
				}

				e := entry.Entry{
					Path:      rel,
					AbsPath:   abs,
					Name:      name,
					Kind:      kind,
					Size:      info.Size(),
					ModTime:   info.ModTime(),
					CreatedAt: createdAt(info),
				}
				if !yield(e, nil) {
					return
				}
			}
		}
	}
}

func displayPath(rel string) string {
	if rel == "" {
		return "."
	}
	return rel
}

func modTimeString(info os.FileInfo) string {
	t := info.ModTime()
	return fmt.Sprintf("%d.%09d", t.Unix(), t.Nanosecond())
}
