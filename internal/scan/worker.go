package scan

import (
	"context"
	"log/slog"

	"github.com/michaelscutari/dupscan/internal/entry"
	"github.com/michaelscutari/dupscan/internal/fingerprint"
)

// Worker fingerprints walked files and forwards records to the ingester.
type Worker struct {
	id       int
	engine   *fingerprint.Engine
	workCh   <-chan entry.Entry
	recordCh chan<- entry.FileRecord
	errorCh  chan<- entry.ScanError
	log      *slog.Logger
}

// NewWorker creates a new worker.
func NewWorker(id int, engine *fingerprint.Engine, workCh <-chan entry.Entry, recordCh chan<- entry.FileRecord, errorCh chan<- entry.ScanError, log *slog.Logger) *Worker {
	return &Worker{
		id:       id,
		engine:   engine,
		workCh:   workCh,
		recordCh: recordCh,
		errorCh:  errorCh,
		log:      log,
	}
}

// Run processes entries until the work channel is closed or ctx is done.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-w.workCh:
			if !ok {
				return
			}
			if !w.process(ctx, e) {
				return
			}
		}
	}
}

// process returns false when ctx was cancelled mid-send.
func (w *Worker) process(ctx context.Context, e entry.Entry) bool {
	rec, err := w.engine.Record(e)
	if err != nil {
		w.log.Warn("skipping unreadable file", "worker", w.id, "path", e.Path, "err", err)
		select {
		case w.errorCh <- entry.ScanError{Path: e.Path, Message: err.Error()}:
			return true
		case <-ctx.Done():
			return false
		}
	}

	select {
	case w.recordCh <- rec:
		return true
	case <-ctx.Done():
		return false
	}
}
