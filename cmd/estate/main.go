// Package main provides the estate command: an archive of person records,
// recordings and transcripts kept as plain files on a removable drive.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	configPath string
	logDir     string
)

var rootCmd = &cobra.Command{
	Use:   "estate",
	Short: "Family archive of people, recordings and transcripts",
	Long: `estate keeps person records as hand-editable YAML files in a sharded
directory tree under an archive root, usually a removable drive:

  <root>/people/<c0c1>/<c2c3>/<Surname,_Given>--<id>/bio.yaml

Every write is atomic, so an unplugged drive never holds half a record.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/digital-estate/config.json)")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "log directory (default from config, then ~/.config/digital-estate/logs)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "archive", Title: "Archive:"},
		&cobra.Group{ID: "records", Title: "Records:"},
	)
	rootCmd.AddCommand(initCmd, cleanupCmd, configCmd, serveCmd)
	rootCmd.AddCommand(personCmd, importCmd, transcribeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}
