package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/entrhq/estate/pkg/identity"
	"github.com/entrhq/estate/pkg/people"
	"github.com/entrhq/estate/pkg/types"
)

var personCmd = &cobra.Command{
	Use:     "person",
	GroupID: "records",
	Short:   "Create, list and edit person records",
}

var createFlags struct {
	family string
	given  string
	suffix string
	dob    string
	bio    string
}

var personCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a person record",
	Long: `Create a person record from a family name, given name, optional suffix
and date of birth. The record's id and directory are derived from those
four values, so creating the same person twice leaves the first record
untouched.`,
	Example: `  estate person create --family Doe --given Jane --dob 1950-01-01
  estate person create --family Lovelace --given Ada --suffix II --dob 1815-12-10 --bio "Mathematician"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(a *app, store *people.Store) error {
			p, err := store.Create(cmd.Context(), identity.Tuple{
				Family:      createFlags.family,
				Given:       createFlags.given,
				Suffix:      createFlags.suffix,
				DateOfBirth: createFlags.dob,
			}, createFlags.bio)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n  slug: %s\n  id:   %s\n", p.DisplayName, p.Slug, p.ID)
			return nil
		})
	},
}

var personListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every readable person record",
	Long: `List every person record under the archive root. Records that cannot be
read are skipped and reported on stderr.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var skipped atomic.Int64
		errOut := cmd.ErrOrStderr()
		return withStore(func(a *app, store *people.Store) error {
			all, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(all) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No people found.")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), peopleTable(all))
			}
			if n := skipped.Load(); n > 0 {
				fmt.Fprintf(errOut, "%d unreadable records skipped\n", n)
			}
			return nil
		}, people.WithSkipHandler(func(path string, err error) {
			skipped.Add(1)
			fmt.Fprintf(errOut, "skipped %s: %v\n", path, err)
		}))
	},
}

var personGetCmd = &cobra.Command{
	Use:   "get <slug>",
	Short: "Print a person record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(a *app, store *people.Store) error {
			_, ok, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("person %s: %w", args[0], types.ErrNotFound)
			}
			dir, err := store.Dir(args[0])
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(filepath.Join(dir, people.DocumentName))
			if err != nil {
				return err
			}
			return printYAML(cmd.OutOrStdout(), string(raw))
		})
	},
}

var setBioFile string

var personSetBioCmd = &cobra.Command{
	Use:   "set-bio <slug> [bio]",
	Short: "Replace a person's biography",
	Long: `Replace the biography of an existing record. The text comes from the
second argument, from --file, or from stdin when --file is "-". Comments
and other hand edits in the record are kept.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		bio, err := bioText(cmd.InOrStdin(), args[1:])
		if err != nil {
			return err
		}
		return withStore(func(a *app, store *people.Store) error {
			p, err := store.Update(cmd.Context(), args[0], func(p *people.Person) error {
				p.Bio = bio
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated biography of %s\n", p.DisplayName)
			return nil
		})
	},
}

func init() {
	f := personCreateCmd.Flags()
	f.StringVar(&createFlags.family, "family", "", "family name (required)")
	f.StringVar(&createFlags.given, "given", "", "given name (required)")
	f.StringVar(&createFlags.suffix, "suffix", "", "name suffix such as Jr or III")
	f.StringVar(&createFlags.dob, "dob", "", "date of birth (required)")
	f.StringVar(&createFlags.bio, "bio", "", "biography")
	_ = personCreateCmd.MarkFlagRequired("family")
	_ = personCreateCmd.MarkFlagRequired("given")
	_ = personCreateCmd.MarkFlagRequired("dob")

	personSetBioCmd.Flags().StringVarP(&setBioFile, "file", "f", "", `read the biography from a file ("-" for stdin)`)

	personCmd.AddCommand(personCreateCmd, personListCmd, personGetCmd, personSetBioCmd)
}

// withStore opens the configured archive and runs fn against it.
func withStore(fn func(*app, *people.Store) error, opts ...people.Option) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	root, err := a.root()
	if err != nil {
		return err
	}
	store, err := a.openStore(root, opts...)
	if err != nil {
		return err
	}
	return fn(a, store)
}

func bioText(stdin io.Reader, args []string) (string, error) {
	switch {
	case len(args) > 0 && setBioFile != "":
		return "", fmt.Errorf("give the biography as an argument or with --file, not both: %w", types.ErrInvalidInput)
	case len(args) > 0:
		return args[0], nil
	case setBioFile == "-":
		b, err := io.ReadAll(stdin)
		return string(b), err
	case setBioFile != "":
		b, err := os.ReadFile(setBioFile)
		return string(b), err
	default:
		return "", fmt.Errorf("no biography given: %w", types.ErrInvalidInput)
	}
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func peopleTable(all []*people.Person) string {
	rows := make([][]string, 0, len(all))
	for _, p := range all {
		rows = append(rows, []string{p.DisplayName, p.Vitals.Birth.Date, p.Slug})
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("NAME", "BORN", "SLUG").
		Rows(rows...).
		Render()
}

// printYAML writes src to w, highlighted when w is a terminal.
func printYAML(w io.Writer, src string) error {
	if !strings.HasSuffix(src, "\n") {
		src += "\n"
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if err := quick.Highlight(w, src, "yaml", "terminal256", "monokai"); err == nil {
			return nil
		}
	}
	_, err := io.WriteString(w, src)
	return err
}
