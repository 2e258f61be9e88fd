package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/casebundle/internal/record"
)

// NewCaseCommand creates the case command group.
func NewCaseCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "case",
		Short: "Create, list and delete cases",
	}
	cmd.AddCommand(newCaseCreateCommand(opts))
	cmd.AddCommand(newCaseListCommand(opts))
	cmd.AddCommand(newCaseDeleteCommand(opts))
	return cmd
}

func newCaseCreateCommand(opts *RootOptions) *cobra.Command {
	var caseType string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a bundle or affidavit",
		Long: `Create a new case. A bundle collects documents behind lettered tabs; an
affidavit additionally labels each document as an exhibit.

Examples:
  casebundle case create "Smith v Jones trial bundle"
  casebundle case create "Affidavit of J Smith" --type affidavit`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ct, err := record.ParseCaseType(caseType)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --type", err)
			}
			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer opts.closeStore(st)

			c, err := st.CreateCase(cmd.Context(), args[0], ct)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to create case", err)
			}
			f := opts.formatter(cmd)
			if f.JSON() {
				return f.Success(c)
			}
			f.Mark(true, "created %s %s (%s)", c.CaseType, c.ID, c.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&caseType, "type", string(record.CaseBundle), "case type (bundle|affidavit)")
	return cmd
}

func newCaseListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cases, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer opts.closeStore(st)

			cases, err := st.ListCases(cmd.Context())
			if err != nil {
				return WrapExitError(ExitFailure, "failed to list cases", err)
			}
			f := opts.formatter(cmd)
			if f.JSON() {
				return f.Success(cases)
			}
			if len(cases) == 0 {
				fmt.Fprintln(f.Writer, "No cases.")
				return nil
			}
			rows := make([][]any, len(cases))
			for i, c := range cases {
				rows[i] = []any{c.ID, c.CaseType, c.Name, c.CreatedAt}
			}
			f.Table([]any{"ID", "TYPE", "NAME", "CREATED"}, rows)
			return nil
		},
	}
}

func newCaseDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <case-id>",
		Short: "Delete a case with its files and entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer opts.closeStore(st)

			ok, err := st.DeleteCase(cmd.Context(), args[0])
			if err != nil {
				return WrapExitError(ExitFailure, "failed to delete case", err)
			}
			if !ok {
				return NewExitError(ExitCommandError, fmt.Sprintf("case not found: %s", args[0]))
			}
			f := opts.formatter(cmd)
			if f.JSON() {
				return f.Success(map[string]string{"deleted": args[0]})
			}
			f.Mark(true, "deleted case %s", args[0])
			return nil
		},
	}
}
