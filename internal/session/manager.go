// Package session runs scan passes against a record store, one at a time.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/michaelscutari/dupscan/internal/db"
	"github.com/michaelscutari/dupscan/internal/entry"
	"github.com/michaelscutari/dupscan/internal/fingerprint"
	"github.com/michaelscutari/dupscan/internal/scan"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrLocked is returned when another process holds the store lock.
var ErrLocked = errors.New("another scan is in progress")

var tracer = otel.Tracer("github.com/michaelscutari/dupscan/internal/session")

// ProgressFunc is called periodically with current scan progress.
type ProgressFunc func(p scan.Progress)

// StageFunc is called when scan stage changes.
type StageFunc func(stage string)

// Manager handles the scan lifecycle including locking and scan records.
type Manager struct {
	dbPath       string
	engine       *fingerprint.Engine
	log          *slog.Logger
	runID        string
	lockFile     *os.File
	progressFunc ProgressFunc
	stageFunc    StageFunc
}

// NewManager creates a manager for the store at dbPath.
func NewManager(dbPath string, engine *fingerprint.Engine, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		dbPath: dbPath,
		engine: engine,
		log:    log,
	}
}

// SetRunID fixes the id recorded for the next scan. When unset a new
// UUID is generated per scan.
func (m *Manager) SetRunID(id string) {
	m.runID = id
}

// SetProgressFunc sets a callback for progress updates during scan.
func (m *Manager) SetProgressFunc(f ProgressFunc) {
	m.progressFunc = f
}

// SetStageFunc sets a callback for scan stage updates.
func (m *Manager) SetStageFunc(f StageFunc) {
	m.stageFunc = f
}

func (m *Manager) lockPath() string {
	return m.dbPath + ".lock"
}

func (m *Manager) lock() error {
	if err := os.MkdirAll(filepath.Dir(m.dbPath), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	if err := m.acquireLock(); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	return nil
}

func (m *Manager) stage(s string) {
	if m.stageFunc != nil {
		m.stageFunc(s)
	}
}

// RunScan executes one scan pass of root into the store and returns the
// recorded scan metadata. An invalid root fails before the store is touched.
func (m *Manager) RunScan(ctx context.Context, root string, opts *scan.ScanOptions) (*entry.ScanMeta, error) {
	if opts == nil {
		opts = scan.DefaultOptions()
	}
	walker, err := scan.NewWalker(root, opts, m.log)
	if err != nil {
		return nil, err
	}
	root = walker.Root()

	ctx, span := tracer.Start(ctx, "session.RunScan")
	defer span.End()
	span.SetAttributes(attribute.String("scan.root", root), attribute.Bool("scan.recursive", opts.Recursive))

	meta, err := m.runScan(ctx, root, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return meta, err
	}
	span.SetAttributes(
		attribute.Int64("scan.files", meta.FileCount),
		attribute.Int64("scan.skipped", meta.SkippedCount),
		attribute.Int64("scan.errors", meta.ErrorCount),
	)
	return meta, nil
}

func (m *Manager) runScan(ctx context.Context, root string, opts *scan.ScanOptions) (*entry.ScanMeta, error) {
	// Acquire lock
	if err := m.lock(); err != nil {
		return nil, err
	}
	defer m.releaseLock()

	m.stage("open")
	database, err := db.Open(m.dbPath)
	if err != nil {
		return nil, err
	}
	defer database.Close()

	store := db.NewStore(database)

	id := m.runID
	if id == "" {
		id = uuid.NewString()
	}
	meta := &entry.ScanMeta{
		ID:        id,
		RootPath:  root,
		Recursive: opts.Recursive,
		StartTime: time.Now(),
	}
	if err := store.BeginScan(ctx, *meta); err != nil {
		return nil, err
	}

	scanner := scan.NewScanner(opts, m.engine, m.log.With("scan_id", id))
	m.stage("scan")

	// Start progress reporter if callback is set
	progressDone := make(chan struct{})
	if m.progressFunc != nil {
		go func() {
			ticker := time.NewTicker(100 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-progressDone:
					return
				case <-ticker.C:
					m.progressFunc(scanner.Progress())
				}
			}
		}()
	}

	p, scanErr := scanner.Run(ctx, root, database, id)
	close(progressDone)

	meta.EndTime = time.Now()
	meta.FileCount = p.Files
	meta.SkippedCount = p.Skipped
	meta.ErrorCount = p.Errors

	// Record what was done even for an aborted pass; the store stays valid.
	if err := store.FinishScan(context.WithoutCancel(ctx), *meta); err != nil {
		if scanErr != nil {
			return meta, fmt.Errorf("scan failed: %w", scanErr)
		}
		return meta, err
	}
	if scanErr != nil {
		return meta, fmt.Errorf("scan failed: %w", scanErr)
	}

	m.stage("finalize")
	if err := db.Optimize(database); err != nil {
		m.log.WarnContext(ctx, "optimize failed", "err", err)
	}

	return meta, nil
}

// Reset clears every record and scan from the store.
func (m *Manager) Reset(ctx context.Context) error {
	if err := m.lock(); err != nil {
		return err
	}
	defer m.releaseLock()

	database, err := db.Open(m.dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.NewStore(database).Reset(ctx); err != nil {
		return err
	}
	m.log.InfoContext(ctx, "store reset", "db", m.dbPath)
	return nil
}
