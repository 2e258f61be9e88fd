package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/casebundle/internal/pdfmeta"
	"github.com/roach88/casebundle/internal/record"
	"github.com/roach88/casebundle/internal/store"
)

// NewFileCommand creates the file command group.
func NewFileCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "file",
		Short: "Register the PDFs a case draws its documents from",
	}
	cmd.AddCommand(newFileAddCommand(opts))
	cmd.AddCommand(newFileListCommand(opts))
	cmd.AddCommand(newFileRefreshCommand(opts))
	cmd.AddCommand(newFileRemoveCommand(opts))
	return cmd
}

func newFileAddCommand(opts *RootOptions) *cobra.Command {
	var jobs int
	cmd := &cobra.Command{
		Use:   "add <case-id> <pdf>...",
		Short: "Register PDFs and record their page counts",
		Long: `Register one or more PDFs with a case. Page counts are read from the
files; nothing is registered if any file cannot be read.

Examples:
  casebundle file add 0191d3c2-... statement.pdf exhibits/*.pdf
  casebundle file add 0191d3c2-... big.pdf --jobs 8`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer opts.closeStore(st)

			caseID := args[0]
			if _, err := st.GetCase(ctx, caseID); err != nil {
				return notFound("case", caseID, err)
			}

			p := pdfmeta.Provider{Limit: jobs, Logger: opts.Logger}
			metas, err := p.InspectAll(ctx, args[1:])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read PDF", err)
			}

			files := make([]record.File, 0, len(metas))
			for _, m := range metas {
				nf, err := m.NewFile(caseID)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to encode metadata", err)
				}
				f, err := st.CreateFile(ctx, nf)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to register "+m.Name, err)
				}
				files = append(files, *f)
			}
			return printFiles(opts.formatter(cmd), files)
		},
	}
	cmd.Flags().IntVar(&jobs, "jobs", pdfmeta.DefaultLimit, "PDFs inspected concurrently")
	return cmd
}

func newFileListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <case-id>",
		Short: "List the files of a case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer opts.closeStore(st)

			files, err := st.ListFiles(cmd.Context(), args[0])
			if err != nil {
				return WrapExitError(ExitFailure, "failed to list files", err)
			}
			return printFiles(opts.formatter(cmd), files)
		},
	}
}

func newFileRefreshCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <file-id>",
		Short: "Re-read the page count of a registered PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer opts.closeStore(st)

			f, err := st.GetFile(ctx, args[0])
			if err != nil {
				return notFound("file", args[0], err)
			}
			m, err := pdfmeta.Provider{Logger: opts.Logger}.Inspect(ctx, f.Path)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read PDF", err)
			}
			meta, err := m.JSON()
			if err != nil {
				return WrapExitError(ExitFailure, "failed to encode metadata", err)
			}
			updated, err := st.UpdateFile(ctx, f.ID, store.FileUpdate{PageCount: &m.PageCount, MetadataJSON: &meta})
			if err != nil {
				return WrapExitError(ExitFailure, "failed to update file", err)
			}
			return printFiles(opts.formatter(cmd), []record.File{*updated})
		},
	}
}

func newFileRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <file-id>",
		Short: "Remove a file and every entry that uses it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer opts.closeStore(st)

			ok, err := st.DeleteFile(cmd.Context(), args[0])
			if err != nil {
				return WrapExitError(ExitFailure, "failed to remove file", err)
			}
			if !ok {
				return NewExitError(ExitCommandError, fmt.Sprintf("file not found: %s", args[0]))
			}
			f := opts.formatter(cmd)
			if f.JSON() {
				return f.Success(map[string]string{"deleted": args[0]})
			}
			f.Mark(true, "removed file %s", args[0])
			return nil
		},
	}
}

func printFiles(f *OutputFormatter, files []record.File) error {
	if f.JSON() {
		return f.Success(files)
	}
	if len(files) == 0 {
		fmt.Fprintln(f.Writer, "No files.")
		return nil
	}
	rows := make([][]any, len(files))
	for i, file := range files {
		rows[i] = []any{file.ID, file.OriginalName, file.PageCount, file.Path}
	}
	f.Table([]any{"ID", "NAME", "PAGES", "PATH"}, rows)
	return nil
}

// notFound maps a store lookup failure to a command error.
func notFound(kind, id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return NewExitError(ExitCommandError, fmt.Sprintf("%s not found: %s", kind, id))
	}
	return WrapExitError(ExitCommandError, "failed to read "+kind, err)
}
