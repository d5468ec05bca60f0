package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/michaelscutari/dupscan/internal/app"
	"github.com/michaelscutari/dupscan/internal/config"
	"github.com/michaelscutari/dupscan/internal/scan"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the target folder into the database",
	Long: `Walk the target folder, fingerprint every regular file and upsert the
records into the database. Records from earlier scans are kept.`,
	RunE: runScan,
}

var (
	scanRoot         string
	scanRecursive    bool
	scanExclude      []string
	scanExcludeNames []string
	scanWorkers      int
	scanMaxErrors    int
	scanProgress     time.Duration
	scanReport       bool
)

func init() {
	scanCmd.Flags().StringVarP(&scanRoot, "root", "r", "", "Directory to scan (overrides target_folder)")
	scanCmd.Flags().BoolVar(&scanRecursive, "recursive", true, "Descend into subdirectories (overrides include_subdirectories)")
	scanCmd.Flags().StringSliceVarP(&scanExclude, "exclude", "e", nil, "Regex patterns to exclude (can be repeated)")
	scanCmd.Flags().StringSliceVar(&scanExcludeNames, "exclude-name", nil, "Exact file names to exclude (added to exclude_files)")
	scanCmd.Flags().IntVarP(&scanWorkers, "workers", "w", 0, "Number of fingerprint workers (0 = config)")
	scanCmd.Flags().IntVar(&scanMaxErrors, "max-errors", 0, "Stop after N errors (0 = config)")
	scanCmd.Flags().DurationVar(&scanProgress, "progress-interval", 30*time.Second, "Emit progress lines to stderr at this interval when not a TTY (0 to disable)")
	scanCmd.Flags().BoolVar(&scanReport, "report", false, "Write the duplicate report after the scan")
}

func runScan(cmd *cobra.Command, args []string) error {
	a, err := newApp(func(cfg *config.Config) {
		if scanRoot != "" {
			cfg.TargetFolder = scanRoot
		}
		if cmd.Flags().Changed("recursive") {
			cfg.IncludeSubdirectories = scanRecursive
		}
		cfg.ExcludePatterns = append(cfg.ExcludePatterns, scanExclude...)
		cfg.ExcludeFiles = append(cfg.ExcludeFiles, scanExcludeNames...)
		if scanWorkers > 0 {
			cfg.Scan.Workers = scanWorkers
		}
		if scanMaxErrors > 0 {
			cfg.Scan.MaxErrors = scanMaxErrors
		}
	})
	if err != nil {
		return err
	}
	defer a.Close()

	mgr, err := a.NewSession()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nCanceling... (press Ctrl+C again to force)")
		cancel()
		<-sigCh
		os.Exit(130)
	}()

	fmt.Printf("Scanning %s...\n", a.Config().TargetFolder)
	startTime := time.Now()

	var progress atomic.Pointer[scan.Progress]
	progress.Store(&scan.Progress{})
	var stage atomic.Value
	stage.Store("scan")

	mgr.SetProgressFunc(func(p scan.Progress) {
		progress.Store(&p)
	})
	mgr.SetStageFunc(func(s string) {
		if s == "" {
			return
		}
		stage.Store(s)
	})

	isTTY := term.IsTerminal(int(os.Stderr.Fd()))
	progressDone := make(chan struct{})
	go reportProgress(progressDone, isTTY, startTime, &progress, &stage)

	meta, err := a.Scan(ctx, mgr)
	close(progressDone)

	if isTTY {
		fmt.Fprintf(os.Stderr, "\r\033[K")
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Scan canceled.")
			return nil
		}
		if scan.IsConfigError(err) {
			return fmt.Errorf("%w (set target_folder in the config file or pass --root)", err)
		}
		return err
	}

	fmt.Printf("Scan completed in %s\n", time.Since(startTime).Round(time.Millisecond))
	fmt.Printf("Database: %s\n", a.Config().Database)
	fmt.Printf("\nSummary:\n")
	fmt.Printf("  Files:   %s\n", humanize.Comma(meta.FileCount))
	fmt.Printf("  Skipped: %s\n", humanize.Comma(meta.SkippedCount))
	if meta.ErrorCount > 0 {
		fmt.Printf("  Errors:  %s\n", humanize.Comma(meta.ErrorCount))
	}

	if scanReport {
		return writeReport(ctx, a)
	}
	return nil
}

func reportProgress(done <-chan struct{}, isTTY bool, startTime time.Time, progress *atomic.Pointer[scan.Progress], stage *atomic.Value) {
	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()
	lastNonTTY := time.Now()
	var spinnerIdx int
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if !isTTY && (scanProgress <= 0 || time.Since(lastNonTTY) < scanProgress) {
				continue
			}
			stageStr, _ := stage.Load().(string)
			p := progress.Load()
			elapsed := time.Since(startTime).Round(time.Millisecond)
			rate := float64(0)
			if elapsed.Seconds() > 0 {
				rate = float64(p.Files) / elapsed.Seconds()
			}

			if isTTY {
				spinner := spinnerFrames[spinnerIdx%len(spinnerFrames)]
				spinnerIdx++
				if stageStr != "" && stageStr != "scan" {
					fmt.Fprintf(os.Stderr, "\r\033[K%s %s... | %s", spinner, stageStr, elapsed)
					continue
				}
				errStr := ""
				if p.Errors > 0 {
					errStr = fmt.Sprintf(" | %d errors", p.Errors)
				}
				fmt.Fprintf(os.Stderr, "\r\033[K%s Scanning... %s files | %s skipped | %s | %.0f/sec | %s%s",
					spinner, humanize.Comma(p.Files), humanize.Comma(p.Skipped), humanize.Bytes(uint64(p.TotalBytes)), rate, elapsed, errStr)
				continue
			}

			if stageStr != "" && stageStr != "scan" {
				fmt.Fprintf(os.Stderr, "PROGRESS stage=%s elapsed=%s\n", stageStr, elapsed)
			} else {
				fmt.Fprintf(os.Stderr, "PROGRESS files=%d skipped=%d bytes=%s rate=%.0f/sec elapsed=%s errors=%d\n",
					p.Files, p.Skipped, humanize.Bytes(uint64(p.TotalBytes)), rate, elapsed, p.Errors)
			}
			lastNonTTY = time.Now()
		}
	}
}

func writeReport(ctx context.Context, a *app.App) error {
	summary, err := a.Report(ctx)
	if err != nil {
		return fmt.Errorf("report failed: %w", err)
	}
	fmt.Printf("\nReport: %s\n", a.Config().ReportPath)
	fmt.Printf("  Exact:     %s groups, %s files, %s reclaimable\n",
		humanize.Comma(summary.Exact.Groups),
		humanize.Comma(summary.Exact.Files),
		humanize.Bytes(uint64(summary.Exact.ReclaimableBytes)))
	fmt.Printf("  Potential: %s groups, %s files\n",
		humanize.Comma(summary.Potential.Groups),
		humanize.Comma(summary.Potential.Files))
	fmt.Printf("  Rows:      %s\n", humanize.Comma(summary.Rows))
	return nil
}
