package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/Podjisin/saresari-pos/internal/ledger"
	"github.com/Podjisin/saresari-pos/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	Database   string
	ConfigPath string
	Metrics    bool

	// Now and OpIDs override the wall clock and operation id generator (for testing).
	Now   func() time.Time
	OpIDs ledger.OpIDGenerator
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the saresari CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "saresari",
		Short: "saresari - sari-sari store inventory ledger",
		Long: `Inventory ledger for a single-shop point of sale.

Every stock movement is recorded in an append-only history so that each
batch quantity always equals the sum of its recorded changes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to config file (default ./saresari.yaml)")
	cmd.PersistentFlags().BoolVar(&opts.Metrics, "metrics", false, "print collected metrics to stderr on exit")

	cmd.AddCommand(NewProductCommand(opts))
	cmd.AddCommand(NewBatchCommand(opts))
	cmd.AddCommand(NewSaleCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewSettingsCommand(opts))
	cmd.AddCommand(NewDBCommand(opts))

	return cmd
}

// Execute runs the CLI with args and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	return execute(ctx, &RootOptions{}, args, stdout, stderr)
}

func execute(ctx context.Context, opts *RootOptions, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	code, message := "COMMAND_ERROR", err.Error()
	exit := ExitCommandError
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		exit = exitErr.Code
	}
	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		code, message = string(storeErr.Code), store.UserMessage(err)
	} else if exit == ExitFailure {
		code = "FAILED"
	}

	out := &OutputFormatter{Format: opts.Format, Writer: stderr, Verbose: opts.Verbose}
	if opts.Format == "json" {
		out.Writer = stdout
	}
	var details any
	if exitErr != nil && exitErr.Err != nil && storeErr == nil {
		details = exitErr.Err.Error()
	}
	_ = out.Error(code, message, details)
	return exit
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
