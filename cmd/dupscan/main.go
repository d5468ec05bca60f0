package main

import (
	"fmt"
	"os"

	"github.com/michaelscutari/dupscan/internal/app"
	"github.com/michaelscutari/dupscan/internal/config"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dupscan",
	Short: "Find duplicate and likely-duplicate files in a directory tree",
	Long: `dupscan walks a directory tree, fingerprints every file from its name,
size, creation stamp and a short content prefix, and stores the result in
SQLite. Reports list exact duplicates and potential duplicates as pairs.`,
	SilenceUsage: true,
}

var (
	flagConfig string
	flagDB     string
	flagDebug  bool
)

func init() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Path to config file (default $"+config.EnvConfigPath+" or XDG config dir)")
	rootCmd.PersistentFlags().StringVarP(&flagDB, "db", "d", "", "Path to database file (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(groupsCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig reads the config file and applies persistent flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagDB != "" {
		cfg.Database = flagDB
	}
	if flagDebug {
		cfg.Debug = true
	}
	return cfg, nil
}

// newApp builds an App from the effective config.
func newApp(mutate func(*config.Config)) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if mutate != nil {
		mutate(cfg)
	}
	return app.New(cfg, os.Stderr, version)
}
