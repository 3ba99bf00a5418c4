package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Podjisin/saresari-pos/internal/ledger"
	"github.com/Podjisin/saresari-pos/internal/report"
)

// historyView is the settings key remembering the history page size.
const historyView = "history"

// HistoryOptions holds the shared history filter flags.
type HistoryOptions struct {
	*RootOptions
	BatchID   int64
	ProductID int64
	Reason    string
	From      string
	To        string
	Limit     int
	Offset    int
	All       bool
	OrderBy   string
	Ascending bool
	Output    string
}

func (o *HistoryOptions) bindFilters(fs *pflag.FlagSet) {
	fs.Int64Var(&o.BatchID, "batch", 0, "only this batch")
	fs.Int64Var(&o.ProductID, "product", 0, "only batches of this product")
	fs.StringVar(&o.Reason, "reason", "", "only this change reason")
	fs.StringVar(&o.From, "from", "", "earliest date (YYYY-MM-DD or YYYY-MM-DD HH:MM:SS)")
	fs.StringVar(&o.To, "to", "", "latest date, a bare date includes the whole day")
}

func (o *HistoryOptions) query() ledger.HistoryQuery {
	q := ledger.HistoryQuery{
		BatchID:   o.BatchID,
		ProductID: o.ProductID,
		Reason:    ledger.Reason(o.Reason),
		DateFrom:  o.From,
		DateTo:    o.To,
		Offset:    o.Offset,
		OrderBy:   ledger.HistoryOrder(o.OrderBy),
	}
	if o.Ascending {
		desc := false
		q.Descending = &desc
	}
	return q
}

// NewHistoryCommand creates the history command group.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Query the inventory change history",
	}
	cmd.AddCommand(newHistoryListCommand(rootOpts))
	cmd.AddCommand(newHistoryStatsCommand(rootOpts))
	cmd.AddCommand(newHistoryExportCommand(rootOpts))
	cmd.AddCommand(newHistoryReasonsCommand(rootOpts))
	return cmd
}

func writeHistoryTable(w io.Writer, records []ledger.HistoryRecord) {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tDATE\tPRODUCT\tBATCH\tCHANGE\tREASON\tNOTE")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%+d\t%s\t%s\n",
			r.ID, r.CreatedAt, r.ProductName, orDash(r.BatchNumber), r.Change, r.Reason, orDash(r.Note))
	}
	_ = tw.Flush()
}

func newHistoryListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List inventory history, newest first",
		Long: `List inventory history, newest first.

The page size defaults to the remembered history page size setting.

Example:
  saresari history list --product 1 --reason sale --from 2025-01-01`,
		Args: cobra.NoArgs,
	}
	opts.bindFilters(cmd.Flags())
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "page size (default from settings)")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "rows to skip")
	cmd.Flags().BoolVar(&opts.All, "all", false, "return every matching row")
	cmd.Flags().StringVar(&opts.OrderBy, "order-by", string(ledger.OrderCreatedAt), "sort column: created_at or change")
	cmd.Flags().BoolVar(&opts.Ascending, "asc", false, "sort ascending")

	cmd.RunE = withApp(rootOpts, func(ctx context.Context, a *app, _ []string) error {
		q := opts.query()
		switch {
		case opts.All:
			q.Limit = 0
		case cmd.Flags().Changed("limit"):
			q.Limit = opts.Limit
		default:
			q.Limit = a.settings.PageSize(ctx, historyView)
		}

		page, err := a.ledger.ListHistory(ctx, q)
		if err != nil {
			return ledgerError(err)
		}
		return a.out.Success(page, func(w io.Writer) {
			if len(page.Records) == 0 {
				fmt.Fprintln(w, "No history.")
				return
			}
			writeHistoryTable(w, page.Records)
			fmt.Fprintf(w, "Showing %d of %d (offset %d)\n", len(page.Records), page.Total, page.Offset)
		})
	})
	return cmd
}

func newHistoryStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarise units added and removed",
		Args:  cobra.NoArgs,
	}
	opts.bindFilters(cmd.Flags())

	cmd.RunE = withApp(rootOpts, func(ctx context.Context, a *app, _ []string) error {
		stats, err := a.ledger.HistoryStats(ctx, opts.query())
		if err != nil {
			return ledgerError(err)
		}
		return a.out.Success(stats, func(w io.Writer) {
			fmt.Fprintf(w, "Added:   %d\n", stats.TotalAdded)
			fmt.Fprintf(w, "Removed: %d\n", stats.TotalRemoved)
			reason := string(stats.MostCommonReason)
			if reason == "" {
				reason = "-"
			}
			fmt.Fprintf(w, "Most common reason: %s\n", reason)
			if len(stats.RecentActivity) > 0 {
				fmt.Fprintln(w, "Recent activity:")
				writeHistoryTable(w, stats.RecentActivity)
			}
		})
	})
	return cmd
}

func newHistoryExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export matching history to an Excel workbook",
		Long: `Export matching history to an Excel workbook.

The workbook has a History sheet with every matching row and a Summary sheet
with the totals of the same filter.

Example:
  saresari history export --from 2025-01-01 --to 2025-01-31 -o january.xlsx`,
		Args: cobra.NoArgs,
	}
	opts.bindFilters(cmd.Flags())
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "history.xlsx", "output file")

	cmd.RunE = withApp(rootOpts, func(ctx context.Context, a *app, _ []string) error {
		q := opts.query()
		page, err := a.ledger.ListHistory(ctx, q)
		if err != nil {
			return ledgerError(err)
		}
		stats, err := a.ledger.HistoryStats(ctx, q)
		if err != nil {
			return ledgerError(err)
		}

		f, err := os.Create(opts.Output)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to create output file", err)
		}
		if err := report.WriteHistoryWorkbook(f, page.Records, &stats); err != nil {
			_ = f.Close()
			return WrapExitError(ExitFailure, "failed to write workbook", err)
		}
		if err := f.Close(); err != nil {
			return WrapExitError(ExitFailure, "failed to write workbook", err)
		}

		a.logger.Debug("history exported", "path", opts.Output, "rows", len(page.Records))
		return a.out.Success(map[string]any{"path": opts.Output, "rows": len(page.Records)}, func(w io.Writer) {
			fmt.Fprintf(w, "Exported %d rows to %s\n", len(page.Records), opts.Output)
		})
	})
	return cmd
}

func newHistoryReasonsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reasons",
		Short: "List the valid change reasons",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr()}
			reasons := ledger.ChangeReasons()
			return out.Success(reasons, func(w io.Writer) {
				for _, r := range reasons {
					fmt.Fprintln(w, r)
				}
			})
		},
	}
}
