package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Header is the first line of every CSV report.
var Header = []string{"Relative Full Path", "Filename", "Duplicate Type", "Duplicate File Path", "Duplicate Filename"}

// FormatCSV is the only supported report format.
const FormatCSV = "csv"

// WriteCSV writes the header and one line per row.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.Path, r.Filename, string(r.Kind), r.OtherPath, r.OtherFilename}); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes rows to path in the given format, replacing any
// existing report atomically.
func WriteFile(path, format string, rows []Row) error {
	if format != "" && format != FormatCSV {
		return fmt.Errorf("unsupported report format %q (expected csv)", format)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".dupscan-report-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	tmpPath := tmp.Name()

	if err := WriteCSV(tmp, rows); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close report: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename report: %w", err)
	}
	return nil
}
