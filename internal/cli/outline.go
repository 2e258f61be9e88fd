package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/casebundle/internal/bundle"
	"github.com/roach88/casebundle/internal/compose"
)

// OutlineView is the JSON form of the outline command.
type OutlineView struct {
	TOCPages   int                  `json:"toc_pages"`
	TotalPages int                  `json:"total_pages"`
	Rows       []compose.OutlineRow `json:"rows"`
	Validation compose.Validation   `json:"validation"`
}

// lateInsert selects entries to sub-number in the outline.
type lateInsert struct {
	after int
	count int
}

// NewOutlineCommand creates the outline command.
func NewOutlineCommand(opts *RootOptions) *cobra.Command {
	var (
		tocPages int
		late     lateInsert
	)
	cmd := &cobra.Command{
		Use:   "outline <case-id>",
		Short: "Preview the table of contents and check pagination",
		Long: `Preview the table of contents of a case. Page numbers are shifted past the
pages reserved for the table of contents itself, which are estimated from the
number of entries unless --toc-pages or toc_pages is set.

With --insert-after and --insert-count, the entries following the given
zero-based position are numbered as late inserts (3A, 3B, ...) so that the
numbers of every other entry stay as they were.

Exits with status 1 when the outline has gaps, overlaps or ranges that
disagree with their page counts.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer opts.closeStore(st)

			comp, err := opts.loadComposition(cmd.Context(), st, args[0])
			if err != nil {
				return err
			}
			return printOutline(opts, cmd, comp, tocPages, late)
		},
	}
	cmd.Flags().IntVar(&tocPages, "toc-pages", 0, "pages reserved for the table of contents (0 uses the configured value or an estimate)")
	cmd.Flags().IntVar(&late.after, "insert-after", -1, "position of the entry the late inserts follow")
	cmd.Flags().IntVar(&late.count, "insert-count", 0, "number of late inserts to sub-number")
	return cmd
}

func printOutline(opts *RootOptions, cmd *cobra.Command, comp *bundle.Composition, tocPages int, late lateInsert) error {
	entries := comp.Entries()
	if tocPages <= 0 {
		tocPages = opts.Config.TOCPages
	}
	if tocPages <= 0 {
		tocPages = compose.EstimateTOCPages(len(entries))
	}

	rows, err := compose.OutlineWithSubnumbers(entries, tocPages, late.after, late.count)
	if err != nil {
		return NewExitError(ExitFailure, err.Error())
	}
	v := compose.ValidateOutline(rows, opts.Config.PageWarningThreshold)
	view := OutlineView{
		TOCPages:   tocPages,
		TotalPages: tocPages + compose.TotalPages(entries),
		Rows:       rows,
		Validation: v,
	}

	f := opts.formatter(cmd)
	if f.JSON() {
		if err := f.Success(view); err != nil {
			return err
		}
	} else {
		table := make([][]any, len(rows))
		for i, r := range rows {
			table[i] = []any{r.Label, r.Description, r.Pages.String(), r.PageCount}
		}
		fmt.Fprintf(f.Writer, "Contents (%d pages)\n", tocPages)
		f.Table([]any{"#", "DESCRIPTION", "PAGES", "COUNT"}, table)
		fmt.Fprintf(f.Writer, "%d pages in total\n", view.TotalPages)
		for _, w := range v.Warnings {
			f.Warn("%s", w)
		}
		for _, issue := range v.Errors {
			f.Mark(false, "%s", issue.Message)
		}
	}

	if !v.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("outline has %d pagination errors", len(v.Errors)))
	}
	return nil
}

