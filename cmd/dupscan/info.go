package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Display database and last scan metadata",
	Long:  `Print metadata about the database and its most recent scan.`,
	RunE:  runInfo,
}

var infoErrors int

func init() {
	infoCmd.Flags().IntVar(&infoErrors, "errors", 10, "Number of sampled scan errors to print")
}

func runInfo(cmd *cobra.Command, args []string) error {
	a, err := newApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := a.OpenStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	version, dirty, err := store.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	records, err := store.Count(ctx)
	if err != nil {
		return err
	}
	meta, err := store.LatestScan(ctx)
	if err != nil {
		return fmt.Errorf("failed to read scan metadata: %w", err)
	}

	fmt.Printf("Database Information\n")
	fmt.Printf("====================\n\n")
	fmt.Printf("Path:           %s\n", a.Config().Database)
	fmt.Printf("Schema Version: %d", version)
	if dirty {
		fmt.Printf(" (dirty)")
	}
	fmt.Printf("\nRecords:        %s\n", humanize.Comma(records))

	if meta == nil {
		fmt.Printf("\nNo scan recorded.\n")
		return nil
	}

	fmt.Printf("\nLast Scan\n")
	fmt.Printf("---------\n")
	fmt.Printf("ID:           %s\n", meta.ID)
	fmt.Printf("Root Path:    %s\n", meta.RootPath)
	fmt.Printf("Recursive:    %t\n", meta.Recursive)
	fmt.Printf("Start Time:   %s\n", meta.StartTime.Format(time.RFC3339))
	if !meta.EndTime.IsZero() {
		fmt.Printf("End Time:     %s\n", meta.EndTime.Format(time.RFC3339))
		fmt.Printf("Duration:     %s\n", meta.EndTime.Sub(meta.StartTime).Round(time.Millisecond))
	} else {
		fmt.Printf("End Time:     (incomplete)\n")
	}
	fmt.Printf("Files:        %s\n", humanize.Comma(meta.FileCount))
	fmt.Printf("Skipped:      %s\n", humanize.Comma(meta.SkippedCount))
	if meta.ErrorCount == 0 {
		return nil
	}
	fmt.Printf("Errors:       %s\n", humanize.Comma(meta.ErrorCount))

	if infoErrors > 0 {
		errs, err := store.ScanErrors(ctx, meta.ID, infoErrors)
		if err != nil {
			return err
		}
		fmt.Printf("\nSampled Errors\n")
		fmt.Printf("--------------\n")
		for _, e := range errs {
			fmt.Printf("%s: %s\n", e.Path, e.Message)
		}
	}
	return nil
}
