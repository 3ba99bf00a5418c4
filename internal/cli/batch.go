package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Podjisin/saresari-pos/internal/ledger"
)

// BatchOptions holds flags for the batch commands.
type BatchOptions struct {
	*RootOptions
	ProductID int64
	Quantity  int
	Cost      string
	Expires   string
	Number    string
	Reason    string
	Note      string
}

// NewBatchCommand creates the batch command group.
func NewBatchCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Manage inventory batches",
	}
	cmd.AddCommand(newBatchAddCommand(rootOpts))
	cmd.AddCommand(newBatchShowCommand(rootOpts))
	cmd.AddCommand(newBatchListCommand(rootOpts))
	cmd.AddCommand(newBatchSetQtyCommand(rootOpts))
	cmd.AddCommand(newBatchEditCommand(rootOpts))
	cmd.AddCommand(newBatchDeleteCommand(rootOpts))
	cmd.AddCommand(newBatchTransferCommand(rootOpts))
	cmd.AddCommand(newBatchVerifyCommand(rootOpts))
	return cmd
}

type batchView struct {
	ledger.Batch
	Expiration *ledger.ExpirationStatus `json:"expiration,omitempty"`
}

func (a *app) batchViews(batches []ledger.Batch) []batchView {
	now := a.now()
	views := make([]batchView, len(batches))
	for i, b := range batches {
		views[i] = batchView{Batch: b}
		if st, ok := ledger.CheckExpiration(b.ExpirationDate, now); ok {
			views[i].Expiration = &st
		}
	}
	return views
}

func expirationLabel(st *ledger.ExpirationStatus) string {
	switch {
	case st == nil:
		return "-"
	case st.Expired:
		return "EXPIRED"
	case st.ExpiringSoon:
		return "expiring soon"
	default:
		return "ok"
	}
}

func writeBatchTable(w io.Writer, batches []batchView) {
	if len(batches) == 0 {
		fmt.Fprintln(w, "No active batches.")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNUMBER\tQTY\tCOST\tEXPIRES\tSTATUS")
	for _, b := range batches {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\n",
			b.ID, orDash(b.BatchNumber), b.Quantity, b.CostPrice, orDash(b.ExpirationDate), expirationLabel(b.Expiration))
	}
	_ = tw.Flush()
}

func newBatchAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a batch of stock for a product",
		Long: `Add a batch of stock for a product.

The opening quantity is recorded as an initial_stock change. Without --number
a batch number is derived from the product name and today's date.

Example:
  saresari batch add --product 1 --qty 24 --cost 12.50 --expires 2025-12-31`,
		Args: cobra.NoArgs,
	}
	cmd.Flags().Int64Var(&opts.ProductID, "product", 0, "product id (required)")
	cmd.Flags().IntVar(&opts.Quantity, "qty", 0, "opening quantity")
	cmd.Flags().StringVar(&opts.Cost, "cost", "0", "cost price per unit")
	cmd.Flags().StringVar(&opts.Expires, "expires", "", "expiration date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.Number, "number", "", "batch number (default BATCH-<initials>-<date>)")
	_ = cmd.MarkFlagRequired("product")

	cmd.RunE = withApp(rootOpts, func(ctx context.Context, a *app, _ []string) error {
		cost, err := parseMoney("cost", opts.Cost)
		if err != nil {
			return err
		}
		in := ledger.BatchInput{ProductID: opts.ProductID, Quantity: opts.Quantity, CostPrice: cost}
		if opts.Expires != "" {
			in.ExpirationDate = &opts.Expires
		}
		number := opts.Number
		if number == "" {
			p, err := a.ledger.GetProduct(ctx, opts.ProductID)
			if err != nil {
				return ledgerError(err)
			}
			number = ledger.DefaultBatchNumber(p.Name, a.now())
			a.out.VerboseLog("Generated batch number %s for %q", number, p.Name)
		}
		in.BatchNumber = &number

		id, err := a.ledger.AddBatch(ctx, in)
		if err != nil {
			return ledgerError(err)
		}
		return a.out.Success(map[string]any{"id": id, "batch_number": number}, func(w io.Writer) {
			fmt.Fprintf(w, "Added batch #%d (%s) with %d units\n", id, number, opts.Quantity)
		})
	})
	return cmd
}

type batchDetail struct {
	batchView
	Reconciliation ledger.Reconciliation `json:"reconciliation"`
}

func newBatchShowCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <batch-id>",
		Short: "Show a batch and whether it reconciles with its history",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = withApp(rootOpts, func(ctx context.Context, a *app, args []string) error {
		id, err := parseID("batch id", args[0])
		if err != nil {
			return err
		}
		b, err := a.ledger.GetBatch(ctx, id)
		if err != nil {
			return ledgerError(err)
		}
		rec, err := a.ledger.Reconcile(ctx, id)
		if err != nil {
			return ledgerError(err)
		}
		d := batchDetail{batchView: a.batchViews([]ledger.Batch{b})[0], Reconciliation: rec}
		return a.out.Success(d, func(w io.Writer) {
			fmt.Fprintf(w, "Batch #%d of product #%d\n", b.ID, b.ProductID)
			fmt.Fprintf(w, "  Number:   %s\n", orDash(b.BatchNumber))
			fmt.Fprintf(w, "  Quantity: %d\n", b.Quantity)
			fmt.Fprintf(w, "  Cost:     %s\n", b.CostPrice)
			fmt.Fprintf(w, "  Expires:  %s (%s)\n", orDash(b.ExpirationDate), expirationLabel(d.Expiration))
			fmt.Fprintf(w, "  Added:    %s\n", b.DateAdded)
			if b.IsDeleted {
				fmt.Fprintf(w, "  Deleted:  %s\n", orDash(b.DeletedAt))
			}
			fmt.Fprintf(w, "  History:  %d entries, sum %d (%s)\n", rec.Entries, rec.HistorySum, balanceLabel(rec))
		})
	})
	return cmd
}

func balanceLabel(r ledger.Reconciliation) string {
	if r.Balanced() {
		return "balanced"
	}
	return "OUT OF BALANCE"
}

// inventoryView is the settings key remembering the inventory page size.
const inventoryView = "inventory"

// BatchListOptions holds flags for batch list.
type BatchListOptions struct {
	*RootOptions
	ProductID int64
	Search    string
	Category  string
	Expiry    string
	Limit     int
	Offset    int
	All       bool
}

type inventoryItemView struct {
	ledger.InventoryItem
	Expiration *ledger.ExpirationStatus `json:"expiration,omitempty"`
}

type inventoryPageView struct {
	Items  []inventoryItemView `json:"items"`
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

func (a *app) inventoryPage(page ledger.InventoryPage) inventoryPageView {
	now := a.now()
	v := inventoryPageView{Items: make([]inventoryItemView, len(page.Items)), Total: page.Total, Limit: page.Limit, Offset: page.Offset}
	for i, it := range page.Items {
		v.Items[i] = inventoryItemView{InventoryItem: it}
		if st, ok := ledger.CheckExpiration(it.ExpirationDate, now); ok {
			v.Items[i].Expiration = &st
		}
	}
	return v
}

func writeInventoryTable(w io.Writer, page inventoryPageView) {
	if len(page.Items) == 0 {
		fmt.Fprintln(w, "No matching batches.")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tPRODUCT\tCATEGORY\tNUMBER\tQTY\tPRICE\tEXPIRES\tSTATUS")
	for _, it := range page.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			it.ID, it.ProductName, orDash(it.CategoryName), orDash(it.BatchNumber), it.Quantity,
			it.SellingPrice.StringFixed(2), orDash(it.ExpirationDate), expirationLabel(it.Expiration))
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "Showing %d of %d (offset %d)\n", len(page.Items), page.Total, page.Offset)
}

func newBatchListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BatchListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active batches, earliest expiry first",
		Long: `List active batches, earliest expiry first.

With --product only that product's batches are listed. Otherwise every
product's batches are searched and paged; the page size defaults to the
remembered inventory page size setting.

Example:
  saresari batch list --product 1
  saresari batch list --search piattos --category Snacks --expiry expiring`,
		Args: cobra.NoArgs,
	}
	cmd.Flags().Int64Var(&opts.ProductID, "product", 0, "only this product's batches")
	cmd.Flags().StringVar(&opts.Search, "search", "", "match product name, barcode or batch number")
	cmd.Flags().StringVar(&opts.Category, "category", "", "exact category name")
	cmd.Flags().StringVar(&opts.Expiry, "expiry", "", "expired, expiring (within 30 days) or valid")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "page size (default from settings)")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "rows to skip")
	cmd.Flags().BoolVar(&opts.All, "all", false, "return every matching batch")

	cmd.RunE = withApp(rootOpts, func(ctx context.Context, a *app, _ []string) error {
		if cmd.Flags().Changed("product") {
			batches, err := a.ledger.ListBatches(ctx, opts.ProductID)
			if err != nil {
				return ledgerError(err)
			}
			views := a.batchViews(batches)
			return a.out.Success(views, func(w io.Writer) { writeBatchTable(w, views) })
		}

		expiry, err := ledger.ParseExpiryFilter(opts.Expiry)
		if err != nil {
			return ledgerError(err)
		}
		q := ledger.InventoryQuery{Search: opts.Search, Category: opts.Category, Expiry: expiry, Offset: opts.Offset}
		switch {
		case opts.All:
			q.Limit = 0
		case cmd.Flags().Changed("limit"):
			q.Limit = opts.Limit
		default:
			q.Limit = a.settings.PageSize(ctx, inventoryView)
		}

		page, err := a.ledger.ListInventory(ctx, q)
		if err != nil {
			return ledgerError(err)
		}
		view := a.inventoryPage(page)
		return a.out.Success(view, func(w io.Writer) { writeInventoryTable(w, view) })
	})
	return cmd
}

func newBatchSetQtyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "set-qty <batch-id> <quantity>",
		Short: "Set a batch quantity and record the difference",
		Args:  cobra.ExactArgs(2),
	}
	cmd.Flags().StringVar(&opts.Reason, "reason", string(ledger.ReasonAdjustment), "change reason")
	cmd.Flags().StringVar(&opts.Note, "note", "", "note stored with the change")

	cmd.RunE = withApp(rootOpts, func(ctx context.Context, a *app, args []string) error {
		id, err := parseID("batch id", args[0])
		if err != nil {
			return err
		}
		qty, err := parseQuantity("quantity", args[1])
		if err != nil {
			return err
		}
		reason, err := ledger.ParseReason(opts.Reason)
		if err != nil {
			return ledgerError(err)
		}
		delta, err := a.ledger.SetBatchQuantity(ctx, id, qty, reason, opts.Note)
		if err != nil {
			return ledgerError(err)
		}
		return a.out.Success(map[string]any{"batch_id": id, "quantity": qty, "delta": delta}, func(w io.Writer) {
			if delta == 0 {
				fmt.Fprintf(w, "Batch #%d already at %d\n", id, qty)
				return
			}
			fmt.Fprintf(w, "Batch #%d set to %d (%+d, %s)\n", id, qty, delta, reason)
		})
	})
	return cmd
}

func newBatchEditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "edit <batch-id>",
		Short: "Edit cost, expiration date or batch number",
		Long: `Edit cost, expiration date or batch number of a batch.

Only flags given on the command line are compared. Pass an empty value to
--expires or --number to clear it. Quantity is changed with set-qty.`,
		Args: cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&opts.Cost, "cost", "", "new cost price")
	cmd.Flags().StringVar(&opts.Expires, "expires", "", "new expiration date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.Number, "number", "", "new batch number")
	cmd.Flags().StringVar(&opts.Note, "note", "", "note stored with the change")

	cmd.RunE = withApp(rootOpts, func(ctx context.Context, a *app, args []string) error {
		id, err := parseID("batch id", args[0])
		if err != nil {
			return err
		}
		var upd ledger.BatchUpdate
		if cmd.Flags().Changed("cost") {
			cost, err := parseMoney("cost", opts.Cost)
			if err != nil {
				return err
			}
			upd.CostPrice = ledger.Some(cost)
		}
		if cmd.Flags().Changed("expires") {
			upd.ExpirationDate = ledger.Some(&opts.Expires)
		}
		if cmd.Flags().Changed("number") {
			upd.BatchNumber = ledger.Some(&opts.Number)
		}

		changed, err := a.ledger.EditBatch(ctx, id, upd, opts.Note)
		if err != nil {
			return ledgerError(err)
		}
		return a.out.Success(map[string]any{"batch_id": id, "changed": changed}, func(w io.Writer) {
			if changed {
				fmt.Fprintf(w, "Batch #%d updated\n", id)
			} else {
				fmt.Fprintf(w, "Batch #%d unchanged\n", id)
			}
		})
	})
	return cmd
}

func newBatchDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "delete <batch-id>",
		Short: "Soft-delete a batch and write off its remaining stock",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&opts.Note, "note", "", "note stored with the write-off")

	cmd.RunE = withApp(rootOpts, func(ctx context.Context, a *app, args []string) error {
		id, err := parseID("batch id", args[0])
		if err != nil {
			return err
		}
		if err := a.ledger.DeleteBatch(ctx, id, opts.Note); err != nil {
			return ledgerError(err)
		}
		return a.out.Success(map[string]any{"batch_id": id, "deleted": true}, func(w io.Writer) {
			fmt.Fprintf(w, "Batch #%d deleted\n", id)
		})
	})
	return cmd
}

func newBatchTransferCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "transfer <from-batch> <to-batch> <quantity>",
		Short: "Move stock between two batches of the same product",
		Args:  cobra.ExactArgs(3),
	}
	cmd.Flags().StringVar(&opts.Note, "note", "", "note stored with both changes")

	cmd.RunE = withApp(rootOpts, func(ctx context.Context, a *app, args []string) error {
		from, err := parseID("source batch", args[0])
		if err != nil {
			return err
		}
		to, err := parseID("destination batch", args[1])
		if err != nil {
			return err
		}
		qty, err := parseQuantity("quantity", args[2])
		if err != nil {
			return err
		}
		if err := a.ledger.TransferBatch(ctx, from, to, qty, opts.Note); err != nil {
			return ledgerError(err)
		}
		return a.out.Success(map[string]any{"from": from, "to": to, "quantity": qty}, func(w io.Writer) {
			fmt.Fprintf(w, "Moved %d units from batch #%d to batch #%d\n", qty, from, to)
		})
	})
	return cmd
}

func newBatchVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify [batch-id]",
		Short: "Check that batch quantities equal the sum of their history",
		Long: `Check that batch quantities equal the sum of their history.

With a batch id only that batch is checked. Exits with code 1 when any batch
is out of balance.`,
		Args: cobra.MaximumNArgs(1),
	}
	cmd.RunE = withApp(rootOpts, func(ctx context.Context, a *app, args []string) error {
		var (
			off []ledger.Reconciliation
			err error
		)
		if len(args) == 1 {
			id, perr := parseID("batch id", args[0])
			if perr != nil {
				return perr
			}
			var rec ledger.Reconciliation
			if rec, err = a.ledger.Reconcile(ctx, id); err != nil {
				return ledgerError(err)
			}
			if !rec.Balanced() {
				off = append(off, rec)
			}
		} else if off, err = a.ledger.ReconcileAll(ctx); err != nil {
			return ledgerError(err)
		}

		if len(off) == 0 {
			return a.out.Success(map[string]any{"balanced": true}, func(w io.Writer) {
				fmt.Fprintln(w, "All batches balanced.")
			})
		}
		for _, r := range off {
			a.logger.Error("batch out of balance", "batch_id", r.BatchID, "quantity", r.Quantity, "history_sum", r.HistorySum)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d batch(es) out of balance", len(off)))
	})
	return cmd
}
