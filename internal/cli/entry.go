package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/casebundle/internal/bundle"
	"github.com/roach88/casebundle/internal/compose"
	"github.com/roach88/casebundle/internal/reorder"
	"github.com/roach88/casebundle/internal/store"
)

// NewEntryCommand creates the entry command group.
func NewEntryCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entry",
		Short: "Build and rearrange the entries of a case",
		Long: `Build and rearrange the ordered entries of a case. Indices are zero-based
positions in the list; a negative --at appends.`,
	}
	cmd.AddCommand(newEntryListCommand(opts))
	cmd.AddCommand(newEntryAddDocCommand(opts))
	cmd.AddCommand(newEntryAddSectionCommand(opts))
	cmd.AddCommand(newEntryAddGeneratedCommand(opts, "add-cover", "Insert a generated cover page"))
	cmd.AddCommand(newEntryAddGeneratedCommand(opts, "add-divider", "Insert a generated divider"))
	cmd.AddCommand(newEntryRemoveCommand(opts))
	cmd.AddCommand(newEntryEditCommand(opts))
	cmd.AddCommand(newEntryMoveCommand(opts))
	return cmd
}

// EntryView is the listing form of an entry.
type EntryView struct {
	Label       string            `json:"label"`
	ID          string            `json:"id"`
	Kind        string            `json:"kind"`
	Pages       compose.PageRange `json:"pages"`
	Description string            `json:"description"`
	Date        string            `json:"date,omitempty"`
	Exhibit     string            `json:"exhibit_label,omitempty"`
	Disputed    bool              `json:"disputed,omitempty"`
}

func entryViews(entries []compose.Entry) []EntryView {
	labels := compose.DisplayNumbers(entries)
	out := make([]EntryView, len(entries))
	for i, e := range entries {
		v := EntryView{
			Label:       labels[i],
			ID:          e.EntryID(),
			Kind:        e.Kind().String(),
			Pages:       e.Pages(),
			Description: compose.Describe(e),
		}
		if d, ok := e.(compose.Document); ok {
			v.Date, v.Exhibit, v.Disputed = d.Date, d.ExhibitLabel, d.Disputed
		}
		out[i] = v
	}
	return out
}

func printEntries(f *OutputFormatter, entries []compose.Entry) error {
	views := entryViews(entries)
	if f.JSON() {
		return f.Success(views)
	}
	if len(views) == 0 {
		fmt.Fprintln(f.Writer, "No entries.")
		return nil
	}
	rows := make([][]any, len(views))
	for i, v := range views {
		desc := v.Description
		if v.Exhibit != "" {
			desc = v.Exhibit + " " + desc
		}
		if v.Disputed {
			desc += " (disputed)"
		}
		rows[i] = []any{v.Label, v.Kind, v.Pages.String(), v.ID, desc}
	}
	f.Table([]any{"#", "KIND", "PAGES", "ID", "DESCRIPTION"}, rows)
	fmt.Fprintf(f.Writer, "%d pages\n", compose.TotalPages(entries))
	return nil
}

// withComposition opens the store, loads the composition of caseID and runs
// fn. The resulting list is printed on success.
func withComposition(opts *RootOptions, cmd *cobra.Command, caseID string, fn func(st *store.Store, c *bundle.Composition) error) error {
	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer opts.closeStore(st)

	comp, err := opts.loadComposition(cmd.Context(), st, caseID)
	if err != nil {
		return err
	}
	if err := fn(st, comp); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return err
		}
		return WrapExitError(ExitFailure, cmd.Name()+" failed", err)
	}
	return printEntries(opts.formatter(cmd), comp.Entries())
}

func newEntryListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <case-id>",
		Short: "List entries with labels and page ranges",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withComposition(opts, cmd, args[0], func(*store.Store, *bundle.Composition) error { return nil })
		},
	}
}

func newEntryAddDocCommand(opts *RootOptions) *cobra.Command {
	var (
		at     int
		fields bundle.DocumentFields
	)
	cmd := &cobra.Command{
		Use:   "add-doc <case-id> <file-id>",
		Short: "Insert a document for a registered file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withComposition(opts, cmd, args[0], func(st *store.Store, c *bundle.Composition) error {
				file, err := st.GetFile(cmd.Context(), args[1])
				if err != nil {
					return notFound("file", args[1], err)
				}
				if file.CaseID != c.CaseID() {
					return NewExitError(ExitCommandError, fmt.Sprintf("file %s belongs to another case", file.ID))
				}
				_, err = c.InsertDocument(cmd.Context(), at, *file, fields)
				return err
			})
		},
	}
	cmd.Flags().IntVar(&at, "at", -1, "insert position (negative appends)")
	cmd.Flags().StringVar(&fields.Description, "description", "", "description (defaults to the file name)")
	cmd.Flags().StringVar(&fields.Date, "date", "", "document date, YYYY-MM-DD")
	cmd.Flags().StringVar(&fields.ExhibitLabel, "exhibit", "", "exhibit label (affidavits only)")
	cmd.Flags().BoolVar(&fields.Disputed, "disputed", false, "mark the document as disputed")
	return cmd
}

func newEntryAddSectionCommand(opts *RootOptions) *cobra.Command {
	var (
		at    int
		label string
	)
	cmd := &cobra.Command{
		Use:   "add-section <case-id>",
		Short: "Insert a lettered section break",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withComposition(opts, cmd, args[0], func(_ *store.Store, c *bundle.Composition) error {
				_, err := c.InsertSectionBreak(cmd.Context(), at, label)
				return err
			})
		},
	}
	cmd.Flags().IntVar(&at, "at", -1, "insert position (negative appends)")
	cmd.Flags().StringVar(&label, "label", "", `section label (defaults to "TAB <letter>")`)
	return cmd
}

func newEntryAddGeneratedCommand(opts *RootOptions, use, short string) *cobra.Command {
	var (
		at          int
		pages       int
		description string
	)
	cmd := &cobra.Command{
		Use:   use + " <case-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withComposition(opts, cmd, args[0], func(_ *store.Store, c *bundle.Composition) error {
				var err error
				if use == "add-cover" {
					_, err = c.InsertCoverPage(cmd.Context(), at, description, pages)
				} else {
					_, err = c.InsertDivider(cmd.Context(), at, description, pages)
				}
				return err
			})
		},
	}
	cmd.Flags().IntVar(&at, "at", -1, "insert position (negative appends)")
	cmd.Flags().IntVar(&pages, "pages", 1, "number of generated pages")
	cmd.Flags().StringVar(&description, "description", "", "description")
	return cmd
}

func newEntryRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <case-id> <entry-id>",
		Short: "Remove an entry and repaginate",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withComposition(opts, cmd, args[0], func(_ *store.Store, c *bundle.Composition) error {
				return c.Delete(cmd.Context(), args[1])
			})
		},
	}
}

func newEntryEditCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <case-id> <entry-id> <field> <value>",
		Short: "Set one field of an entry",
		Long: `Set one field of an entry.

Fields: description, date, exhibit_label, disputed, section_label, page_count.
Changing the page count of a cover page or divider repaginates the bundle.`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			field, err := bundle.ParseField(args[2])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid field", err)
			}
			return withComposition(opts, cmd, args[0], func(_ *store.Store, c *bundle.Composition) error {
				_, err := c.EditField(cmd.Context(), args[1], field, args[3])
				return err
			})
		},
	}
}

func newEntryMoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mv <case-id> <from> <to>",
		Short: "Move the entry at one position to another",
		Long: `Move the entry at index <from> to index <to> and repaginate. The command
waits for the new order to be saved; if saving fails the previous order is
kept and the command exits with status 1.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := strconv.Atoi(args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid <from>", err)
			}
			to, err := strconv.Atoi(args[2])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid <to>", err)
			}
			return withComposition(opts, cmd, args[0], func(_ *store.Store, c *bundle.Composition) error {
				done, err := c.Reorder(cmd.Context(), from, to)
				if err != nil {
					return err
				}
				res := <-done
				if res.State == reorder.RolledBack {
					return res.Err
				}
				return nil
			})
		},
	}
}
