package main

import (
	"context"

	"github.com/michaelscutari/dupscan/internal/config"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write the duplicate report from the database",
	Long: `Group stored records by exact and potential fingerprint and write every
ordered pair of group members to the report file.`,
	RunE: runReport,
}

var reportOut string

func init() {
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "Report file path (overrides report_path)")
}

func runReport(cmd *cobra.Command, args []string) error {
	a, err := newApp(func(cfg *config.Config) {
		if reportOut != "" {
			cfg.ReportPath = reportOut
		}
	})
	if err != nil {
		return err
	}
	defer a.Close()

	return writeReport(context.Background(), a)
}
