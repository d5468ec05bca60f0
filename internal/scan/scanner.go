package scan

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/michaelscutari/dupscan/internal/db"
	"github.com/michaelscutari/dupscan/internal/entry"
	"github.com/michaelscutari/dupscan/internal/fingerprint"
)

// Progress is a point-in-time view of a running scan.
type Progress struct {
	Files      int64
	Skipped    int64
	Errors     int64
	TotalBytes int64
}

// Scanner coordinates walk, fingerprint and ingest for one scan pass.
type Scanner struct {
	opts   *ScanOptions
	engine *fingerprint.Engine
	log    *slog.Logger

	walker   atomic.Pointer[Walker]
	ingester atomic.Pointer[db.Ingester]
}

// NewScanner creates a new scanner.
func NewScanner(opts *ScanOptions, engine *fingerprint.Engine, log *slog.Logger) *Scanner {
	if opts == nil {
		opts = DefaultOptions()
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Scanner{opts: opts, engine: engine, log: log}
}

// Run scans root and upserts a record for every regular file into
// database. Per-file failures are logged, recorded under scanID and
// skipped. A store failure aborts the pass.
func (s *Scanner) Run(ctx context.Context, root string, database *sql.DB, scanID string) (Progress, error) {
	walker, err := NewWalker(root, s.opts, s.log)
	if err != nil {
		return Progress{}, err
	}
	s.walker.Store(walker)

	// Cancellable context for max-errors and store-error abort
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := s.opts.Workers
	if workers < 1 {
		workers = 1
	}

	workCh := make(chan entry.Entry, workers*64)
	recordCh := make(chan entry.FileRecord, s.opts.BatchSize)
	errorCh := make(chan entry.ScanError, 1000)

	ing := db.NewIngester(database, scanID, recordCh, errorCh, s.opts.BatchSize, s.opts.FlushInterval, s.opts.MaxErrors, cancel, s.log)
	s.ingester.Store(ing)

	ingesterDone := make(chan error, 1)
	go func() {
		err := ing.Run(runCtx)
		if err != nil {
			cancel()
		}
		ingesterDone <- err
	}()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		w := NewWorker(i, s.engine, workCh, recordCh, errorCh, s.log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(runCtx)
		}()
	}

	s.log.InfoContext(ctx, "scan started", "root", walker.Root(), "recursive", s.opts.Recursive, "workers", workers)

walk:
	for e, err := range walker.Walk(runCtx) {
		if err != nil {
			s.log.Warn("skipping entry", "path", e.Path, "err", err)
			select {
			case errorCh <- entry.ScanError{Path: e.Path, Message: err.Error()}:
			case <-runCtx.Done():
				break walk
			}
			continue
		}
		select {
		case workCh <- e:
		case <-runCtx.Done():
			break walk
		}
	}
	close(workCh)
	wg.Wait()

	close(recordCh)
	close(errorCh)

	if err := <-ingesterDone; err != nil {
		return s.Progress(), fmt.Errorf("ingester error: %w", err)
	}

	p := s.Progress()
	if err := ctx.Err(); err != nil {
		return p, err
	}
	if runCtx.Err() != nil {
		return p, fmt.Errorf("scan aborted after %d errors", p.Errors)
	}

	s.log.InfoContext(ctx, "scan finished", "files", p.Files, "skipped", p.Skipped, "errors", p.Errors)
	return p, nil
}

// Progress returns current scan progress (safe for concurrent access).
func (s *Scanner) Progress() Progress {
	var p Progress
	if w := s.walker.Load(); w != nil {
		p.Skipped = w.Skipped()
	}
	if ing := s.ingester.Load(); ing != nil {
		ip := ing.Progress()
		p.Files = ip.Files
		p.Errors = ip.Errors
		p.TotalBytes = ip.TotalBytes
	}
	return p
}

// IsConfigError reports whether err is a configuration error raised before
// any file was scanned.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidRoot)
}
