package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/entrhq/estate/pkg/archive"
)

var initCmd = &cobra.Command{
	Use:     "init <path>",
	GroupID: "archive",
	Short:   "Select and prepare an archive root",
	Long: `Validate a directory as the archive root, create its people/ directory,
remove temp files left by interrupted writes, and save it in the config.

The root must exist, be a directory and be writable. A file named "people"
inside it is rejected.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.cfg.SetArchiveRoot(args[0], a.prepare); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Archive root set to %s\n", a.cfg.Get().ArchiveRoot)
		return nil
	},
}

var cleanupPattern string

var cleanupCmd = &cobra.Command{
	Use:     "cleanup",
	GroupID: "archive",
	Short:   "Remove temp files left by interrupted writes",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		root, err := a.root()
		if err != nil {
			return err
		}
		n, err := archive.NewCleaner(a.logger.Component("archive"), a.metrics).Cleanup(root, cleanupPattern)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d files matching %q under %s\n", n, cleanupPattern, root)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "archive",
	Short:   "Inspect the configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the configuration with secrets redacted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		out, err := json.MarshalIndent(a.cfg.Get().Redacted(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s\n", a.cfg.Path(), out)
		return nil
	},
}

func init() {
	cleanupCmd.Flags().StringVar(&cleanupPattern, "pattern", archive.DefaultPattern, "glob matched against file names")
	configCmd.AddCommand(configShowCmd)
}
