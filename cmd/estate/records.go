package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/entrhq/estate/pkg/people"
)

var importContentType string

var importCmd = &cobra.Command{
	Use:     "import <slug> <file>",
	GroupID: "records",
	Short:   "Copy an audio or video recording into a person's directory",
	Long: `Copy a recording into <person>/recordings/<audio|video>/ and write a
.yaml sidecar describing it. The kind is chosen from the content type,
which is guessed from the file extension unless --content-type is set.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		slug, path := args[0], args[1]
		ct := importContentType
		if ct == "" {
			ct = mime.TypeByExtension(filepath.Ext(path))
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		return withStore(func(a *app, store *people.Store) error {
			imp := a.openImporter(store, "")
			res, err := imp.Import(cmd.Context(), slug, filepath.Base(path), ct, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s (%d bytes) as %s\n", res.Recording.OriginalFilename, res.Size, res.RelPath)
			return nil
		})
	},
}

var transcribeAPIKey string

var transcribeCmd = &cobra.Command{
	Use:     "transcribe <slug> <recording>",
	GroupID: "records",
	Short:   "Transcribe an imported recording",
	Long: `Transcribe a recording with the configured provider and save the text
next to it. <recording> is the path printed by "estate import", relative
to the person's directory. A failed attempt is recorded in the sidecar.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(a *app, store *people.Store) error {
			imp := a.openImporter(store, transcribeAPIKey)
			rec, err := imp.Transcribe(cmd.Context(), args[0], filepath.ToSlash(args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Transcript saved to %s\n", rec.TranscriptPath)
			return nil
		})
	},
}

func init() {
	importCmd.Flags().StringVar(&importContentType, "content-type", "", "MIME type of the recording (default: from extension)")
	transcribeCmd.Flags().StringVar(&transcribeAPIKey, "api-key", os.Getenv("OPENAI_API_KEY"), "OpenAI API key, used when the config has none")
}
