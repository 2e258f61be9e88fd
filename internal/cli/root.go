package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/roach88/casebundle/internal/bundle"
	"github.com/roach88/casebundle/internal/config"
	"github.com/roach88/casebundle/internal/reorder"
	"github.com/roach88/casebundle/internal/store"
)

// RootOptions holds global flags and the resolved configuration shared by
// all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	DB      string

	// Config is resolved in the root pre-run hook.
	Config *config.Config
	Logger *slog.Logger

	v *viper.Viper
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the casebundle CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{v: config.New()})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "casebundle",
		Short: "casebundle - compose court bundles and affidavits",
		Long: `Compose paginated court bundles and affidavits from PDF documents,
section breaks, cover pages and dividers.

Every entry occupies a contiguous page range; moving, inserting or removing an
entry repaginates the whole bundle. Settings are read from .casebundle.yaml in
the working or home directory and from CASEBUNDLE_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	pf.StringVar(&opts.DB, "db", "", "path to SQLite database (default ~/.casebundle.db)")
	_ = opts.v.BindPFlag(config.KeyFormat, pf.Lookup("format"))
	_ = opts.v.BindPFlag(config.KeyDB, pf.Lookup("db"))

	cmd.AddCommand(NewCaseCommand(opts))
	cmd.AddCommand(NewFileCommand(opts))
	cmd.AddCommand(NewEntryCommand(opts))
	cmd.AddCommand(NewOutlineCommand(opts))
	cmd.AddCommand(NewScenarioCommand(opts))

	return cmd
}

// Execute runs the CLI with args and returns the process exit code. Errors
// are written to stderr, or to stdout as a JSON error response when the
// output format is json.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts := &RootOptions{v: config.New()}
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	if opts.Format == "json" {
		f := &OutputFormatter{Format: "json", Writer: stdout}
		_ = f.Error(ErrorCode(err), err.Error(), nil)
	} else {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return GetExitCode(err)
}

// resolve loads the configuration and installs the logger.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	if !isValidFormat(o.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}

	cfg, err := config.Load(o.v)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	o.Config = cfg
	o.Format = cfg.Format

	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	o.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(o.Logger)
	return nil
}

// formatter returns an OutputFormatter writing to the command's streams.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// openStore opens the configured database, creating it if needed.
func (o *RootOptions) openStore() (*store.Store, error) {
	o.Logger.Debug("opening database", "path", o.Config.DB)
	st, err := store.Open(o.Config.DB)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// closeStore closes st and logs a failure.
func (o *RootOptions) closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		o.Logger.Error("error closing database", "error", err)
	}
}

// loadComposition rebuilds the composition of caseID from st.
func (o *RootOptions) loadComposition(ctx context.Context, st *store.Store, caseID string) (*bundle.Composition, error) {
	c, err := st.GetCase(ctx, caseID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("case not found: %s", caseID))
		}
		return nil, WrapExitError(ExitCommandError, "failed to read case", err)
	}
	comp, err := bundle.Load(ctx, caseID, st, st, bundle.Options{
		CaseType:   c.CaseType,
		UndoWindow: o.Config.UndoWindow,
		Notifier:   reorder.LogNotifier{Logger: o.Logger},
		Logger:     o.Logger,
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load entries", err)
	}
	return comp, nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
