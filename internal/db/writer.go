package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/michaelscutari/dupscan/internal/entry"
)

const insertErrorSQL = `INSERT INTO scan_errors (scan_id, path, message) VALUES (?, ?, ?)`

const maxErrorsSampled = 1000

// Ingester is the single writer of a scan pass. It batches fingerprinted
// records into transactions and samples per-file errors.
type Ingester struct {
	db            *sql.DB
	scanID        string
	recordCh      <-chan entry.FileRecord
	errorCh       <-chan entry.ScanError
	batchSize     int
	flushInterval time.Duration
	maxErrors     int
	cancelFunc    context.CancelFunc
	log           *slog.Logger

	recordBatch  []entry.FileRecord
	errorBatch   []entry.ScanError
	errorsStored int

	// Progress tracking (atomic)
	fileCount  int64
	errorCount int64
	totalBytes int64

	upsertStmt *sql.Stmt
	errorStmt  *sql.Stmt
}

// Progress holds current scan progress.
type Progress struct {
	Files      int64
	Errors     int64
	TotalBytes int64
}

// NewIngester creates a new ingester. cancelFunc is invoked once maxErrors
// per-file errors have been seen; zero means unlimited.
func NewIngester(database *sql.DB, scanID string, recordCh <-chan entry.FileRecord, errorCh <-chan entry.ScanError, batchSize int, flushInterval time.Duration, maxErrors int, cancelFunc context.CancelFunc, log *slog.Logger) *Ingester {
	if batchSize <= 0 {
		batchSize = 1
	}
	if flushInterval <= 0 {
		flushInterval = time.Second
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Ingester{
		db:            database,
		scanID:        scanID,
		recordCh:      recordCh,
		errorCh:       errorCh,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		maxErrors:     maxErrors,
		cancelFunc:    cancelFunc,
		log:           log,
		recordBatch:   make([]entry.FileRecord, 0, batchSize),
		errorBatch:    make([]entry.ScanError, 0, 100),
	}
}

// Run consumes records and errors until both channels are closed.
// A store error aborts the run and is returned.
func (ing *Ingester) Run(ctx context.Context) error {
	var err error
	ing.upsertStmt, err = ing.db.Prepare(upsertFileSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert statement: %w", err)
	}
	defer ing.upsertStmt.Close()

	ing.errorStmt, err = ing.db.Prepare(insertErrorSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare error statement: %w", err)
	}
	defer ing.errorStmt.Close()

	ticker := time.NewTicker(ing.flushInterval)
	defer ticker.Stop()

	ing.log.Debug("ingester started", "batch_size", ing.batchSize, "flush_interval", ing.flushInterval)

	recordCh := ing.recordCh
	errorCh := ing.errorCh

	for recordCh != nil || errorCh != nil {
		select {
		case <-ctx.Done():
			ing.log.Debug("ingester cancelled", "pending", len(ing.recordBatch))
			return ing.flush()

		case rec, ok := <-recordCh:
			if !ok {
				recordCh = nil
				continue
			}
			atomic.AddInt64(&ing.fileCount, 1)
			atomic.AddInt64(&ing.totalBytes, rec.Size)
			ing.recordBatch = append(ing.recordBatch, rec)
			if len(ing.recordBatch) >= ing.batchSize {
				if err := ing.flushRecords(); err != nil {
					return err
				}
			}

		case e, ok := <-errorCh:
			if !ok {
				errorCh = nil
				continue
			}
			n := atomic.AddInt64(&ing.errorCount, 1)
			if ing.maxErrors > 0 && n >= int64(ing.maxErrors) && ing.cancelFunc != nil {
				ing.cancelFunc()
			}
			// Only sample the first errors to bound the table
			if ing.errorsStored+len(ing.errorBatch) < maxErrorsSampled {
				ing.errorBatch = append(ing.errorBatch, e)
			}

		case <-ticker.C:
			if err := ing.flush(); err != nil {
				return err
			}
		}
	}

	ing.log.Debug("ingester inputs closed", "files", atomic.LoadInt64(&ing.fileCount))
	return ing.flush()
}

func (ing *Ingester) flush() error {
	if err := ing.flushRecords(); err != nil {
		return err
	}
	return ing.flushErrors()
}

func (ing *Ingester) flushRecords() error {
	if len(ing.recordBatch) == 0 {
		return nil
	}

	flushStart := time.Now()
	tx, err := ing.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt := tx.Stmt(ing.upsertStmt)
	for _, rec := range ing.recordBatch {
		if _, err := stmt.Exec(upsertArgs(rec)...); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to upsert %q: %w", rec.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	ing.log.Debug("flushed records", "count", len(ing.recordBatch), "took", time.Since(flushStart))
	ing.recordBatch = ing.recordBatch[:0]
	return nil
}

func (ing *Ingester) flushErrors() error {
	if len(ing.errorBatch) == 0 {
		return nil
	}

	tx, err := ing.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin error transaction: %w", err)
	}

	stmt := tx.Stmt(ing.errorStmt)
	for _, e := range ing.errorBatch {
		if _, err := stmt.Exec(ing.scanID, e.Path, e.Message); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert error for %q: %w", e.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit error transaction: %w", err)
	}

	ing.errorsStored += len(ing.errorBatch)
	ing.errorBatch = ing.errorBatch[:0]
	return nil
}

// ErrorCount returns the total number of errors encountered.
func (ing *Ingester) ErrorCount() int64 {
	return atomic.LoadInt64(&ing.errorCount)
}

// Progress returns current scan progress (safe for concurrent access).
func (ing *Ingester) Progress() Progress {
	return Progress{
		Files:      atomic.LoadInt64(&ing.fileCount),
		Errors:     atomic.LoadInt64(&ing.errorCount),
		TotalBytes: atomic.LoadInt64(&ing.totalBytes),
	}
}
