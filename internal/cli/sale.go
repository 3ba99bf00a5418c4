package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Podjisin/saresari-pos/internal/ledger"
)

// SaleOptions holds flags for the sale commands.
type SaleOptions struct {
	*RootOptions
	Items  []string
	Cash   string
	Total  string
	Change string
}

// NewSaleCommand creates the sale command group.
func NewSaleCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sale",
		Short: "Record and inspect sales",
	}
	cmd.AddCommand(newSaleCreateCommand(rootOpts))
	cmd.AddCommand(newSaleShowCommand(rootOpts))
	return cmd
}

// parseSaleItem parses "batch:qty:price".
func parseSaleItem(s string) (ledger.SaleItem, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return ledger.SaleItem{}, NewExitError(ExitCommandError, fmt.Sprintf("invalid item %q: expected batch:qty:price", s))
	}
	batchID, err := parseID("batch id", parts[0])
	if err != nil {
		return ledger.SaleItem{}, err
	}
	qty, err := parseQuantity("quantity", parts[1])
	if err != nil {
		return ledger.SaleItem{}, err
	}
	price, err := parseMoney("price", parts[2])
	if err != nil {
		return ledger.SaleItem{}, err
	}
	return ledger.SaleItem{BatchID: batchID, Quantity: qty, PriceAtSale: price}, nil
}

func saleTotal(items []ledger.SaleItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.PriceAtSale.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

func newSaleCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SaleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Record a sale and decrement stock",
		Long: `Record a sale and decrement stock.

Each --item is batch:qty:price. The total defaults to the sum of the items and
the change to cash minus total. Nothing is written if any batch is short.

Example:
  saresari sale create --item 3:2:25 --item 4:1:40 --cash 100`,
		Args: cobra.NoArgs,
	}
	cmd.Flags().StringArrayVar(&opts.Items, "item", nil, "line item as batch:qty:price (repeatable)")
	cmd.Flags().StringVar(&opts.Cash, "cash", "", "cash received (required)")
	cmd.Flags().StringVar(&opts.Total, "total", "", "sale total (default sum of items)")
	cmd.Flags().StringVar(&opts.Change, "change", "", "change given (default cash - total)")
	_ = cmd.MarkFlagRequired("cash")

	cmd.RunE = withApp(rootOpts, func(ctx context.Context, a *app, _ []string) error {
		items := make([]ledger.SaleItem, 0, len(opts.Items))
		for _, s := range opts.Items {
			it, err := parseSaleItem(s)
			if err != nil {
				return err
			}
			items = append(items, it)
		}
		cash, err := parseMoney("cash", opts.Cash)
		if err != nil {
			return err
		}
		total := saleTotal(items)
		if cmd.Flags().Changed("total") {
			if total, err = parseMoney("total", opts.Total); err != nil {
				return err
			}
		}
		change := cash.Sub(total)
		if cmd.Flags().Changed("change") {
			if change, err = parseMoney("change", opts.Change); err != nil {
				return err
			}
		}

		a.out.VerboseLog("Sale of %d item(s): total %s, cash %s, change %s",
			len(items), total.StringFixed(2), cash.StringFixed(2), change.StringFixed(2))

		id, err := a.ledger.CreateSale(ctx, items, cash, total, change)
		if err != nil {
			return ledgerError(err)
		}
		data := map[string]any{"id": id, "total": total, "cash_received": cash, "change": change}
		return a.out.Success(data, func(w io.Writer) {
			fmt.Fprintf(w, "Sale #%d recorded: total %s, cash %s, change %s\n",
				id, total.StringFixed(2), cash.StringFixed(2), change.StringFixed(2))
		})
	})
	return cmd
}

func newSaleShowCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <sale-id>",
		Short: "Show a sale with its items",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = withApp(rootOpts, func(ctx context.Context, a *app, args []string) error {
		id, err := parseID("sale id", args[0])
		if err != nil {
			return err
		}
		sale, err := a.ledger.GetSale(ctx, id)
		if err != nil {
			return ledgerError(err)
		}
		return a.out.Success(sale, func(w io.Writer) {
			fmt.Fprintf(w, "Sale #%d at %s\n", sale.ID, sale.CreatedAt)
			tw := newTable(w)
			fmt.Fprintln(tw, "BATCH\tQTY\tPRICE\tAMOUNT")
			for _, it := range sale.Items {
				amount := it.PriceAtSale.Mul(decimal.NewFromInt(int64(it.Quantity)))
				fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", it.BatchID, it.Quantity, it.PriceAtSale.StringFixed(2), amount.StringFixed(2))
			}
			_ = tw.Flush()
			fmt.Fprintf(w, "Total %s  Cash %s  Change %s\n",
				sale.Total.StringFixed(2), sale.CashReceived.StringFixed(2), sale.Change.StringFixed(2))
		})
	})
	return cmd
}
