// Package app wires configuration, logging, tracing and the scan pipeline
// together for the CLI.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/michaelscutari/dupscan/internal/config"
	"github.com/michaelscutari/dupscan/internal/db"
	"github.com/michaelscutari/dupscan/internal/entry"
	"github.com/michaelscutari/dupscan/internal/fingerprint"
	"github.com/michaelscutari/dupscan/internal/report"
	"github.com/michaelscutari/dupscan/internal/scan"
	"github.com/michaelscutari/dupscan/internal/session"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// App is the layer between the CLI and the scan pipeline. It builds every
// dependency from config and releases them on Close.
type App struct {
	cfg       *config.Config
	log       *slog.Logger
	runID     string
	runIDUsed bool
	logFile   *os.File
	tp        *sdktrace.TracerProvider
	traceFile *os.File
}

// New creates an App from cfg. Log lines go to stderr and, when configured,
// to the log directory. The caller must call Close when done.
func New(cfg *config.Config, stderr io.Writer, version string) (*App, error) {
	cfg.ExpandPaths()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	runID := uuid.NewString()
	logger, logFile, err := newLogger(stderr, cfg.LogDir, runID, cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	a := &App{cfg: cfg, log: logger, runID: runID, logFile: logFile}

	if cfg.Trace != "" {
		tp, f, err := initTracer(cfg.Trace, version)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.tp, a.traceFile = tp, f
	}

	return a, nil
}

// Config returns the effective configuration.
func (a *App) Config() *config.Config { return a.cfg }

// Logger returns the run logger.
func (a *App) Logger() *slog.Logger { return a.log }

// RunID identifies this invocation in logs and in the scans table.
func (a *App) RunID() string { return a.runID }

// ScanOptions builds scanner options from config.
func (a *App) ScanOptions() (*scan.ScanOptions, error) {
	sc := a.cfg.Scan
	opts := scan.DefaultOptions().
		WithRecursive(a.cfg.IncludeSubdirectories).
		WithMaxErrors(sc.MaxErrors).
		ExcludeName(a.cfg.ExcludeFiles...)
	if sc.Workers > 0 {
		opts.WithWorkers(sc.Workers)
	}
	if sc.BatchSize > 0 {
		opts.WithBatchSize(sc.BatchSize)
	}
	for _, pattern := range a.cfg.ExcludePatterns {
		if err := opts.AddExcludePattern(pattern); err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
	}
	return opts, nil
}

// Engine builds the fingerprint engine from config.
func (a *App) Engine() (*fingerprint.Engine, error) {
	return fingerprint.NewEngine(a.cfg.Scan.Hash, a.cfg.Scan.SampleSize)
}

// NewSession creates a scan session manager bound to the configured store.
func (a *App) NewSession() (*session.Manager, error) {
	eng, err := a.Engine()
	if err != nil {
		return nil, err
	}
	mgr := session.NewManager(a.cfg.Database, eng, a.log)
	// The first session records its scan under the run id so log lines and
	// the scans table correlate; later ones get their own ids.
	if !a.runIDUsed {
		mgr.SetRunID(a.runID)
		a.runIDUsed = true
	}
	return mgr, nil
}

// Scan runs one scan pass of the configured target folder.
func (a *App) Scan(ctx context.Context, mgr *session.Manager) (*entry.ScanMeta, error) {
	opts, err := a.ScanOptions()
	if err != nil {
		return nil, err
	}
	meta, err := mgr.RunScan(ctx, a.cfg.TargetFolder, opts)
	if err != nil {
		return meta, err
	}
	a.log.Info("scan recorded", "files", meta.FileCount, "skipped", meta.SkippedCount, "errors", meta.ErrorCount)
	return meta, nil
}

// OpenStore opens the configured store for queries.
func (a *App) OpenStore() (*db.Store, error) {
	database, err := db.OpenReadOnly(a.cfg.Database)
	if err != nil {
		return nil, err
	}
	return db.NewStore(database), nil
}

// Report builds the duplicate report from the store and writes it to the
// configured path.
func (a *App) Report(ctx context.Context) (report.Summary, error) {
	store, err := a.OpenStore()
	if err != nil {
		return report.Summary{}, err
	}
	defer store.Close()

	groups, err := report.NewBuilder(store).Load(ctx)
	if err != nil {
		return report.Summary{}, err
	}
	rows := report.Rows(groups)
	if err := report.WriteFile(a.cfg.ReportPath, a.cfg.ReportFormat, rows); err != nil {
		return report.Summary{}, err
	}

	summary := report.Summarize(groups)
	a.log.Info("report written", "path", a.cfg.ReportPath, "rows", len(rows),
		"exact_groups", summary.Exact.Groups, "potential_groups", summary.Potential.Groups)
	return summary, nil
}

// Close flushes traces and closes log and trace files.
func (a *App) Close() error {
	var firstErr error
	if a.tp != nil {
		if err := a.tp.Shutdown(context.Background()); err != nil {
			firstErr = fmt.Errorf("shutting down tracer provider: %w", err)
		}
	}
	if a.traceFile != nil {
		if err := a.traceFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
