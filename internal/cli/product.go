package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Podjisin/saresari-pos/internal/ledger"
)

// ProductOptions holds flags for the product commands.
type ProductOptions struct {
	*RootOptions
	Name       string
	Barcode    string
	Price      string
	UnitID     int64
	CategoryID int64
}

// NewProductCommand creates the product command group.
func NewProductCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "product",
		Short: "Manage product master data",
	}
	cmd.AddCommand(newProductUpsertCommand(rootOpts))
	cmd.AddCommand(newProductShowCommand(rootOpts))
	cmd.AddCommand(newProductHistoryCommand(rootOpts))
	return cmd
}

func newProductUpsertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProductOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "upsert",
		Short: "Create a product or update the one owning the barcode",
		Long: `Create a product, or update the product that already owns the barcode.

Without a barcode a new product is always created. Every changed field of an
existing product is recorded in its product history.

Example:
  saresari product upsert --name "Lucky Me Pancit Canton" --barcode 4807770270017 --price 15 --unit 2`,
		Args: cobra.NoArgs,
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "product name (required)")
	cmd.Flags().StringVar(&opts.Barcode, "barcode", "", "barcode used as the lookup key")
	cmd.Flags().StringVar(&opts.Price, "price", "", "selling price (required)")
	cmd.Flags().Int64Var(&opts.UnitID, "unit", 0, "unit id")
	cmd.Flags().Int64Var(&opts.CategoryID, "category", 0, "category id")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("price")

	cmd.RunE = withApp(rootOpts, func(ctx context.Context, a *app, _ []string) error {
		price, err := parseMoney("price", opts.Price)
		if err != nil {
			return err
		}
		in := ledger.ProductInput{Name: opts.Name, SellingPrice: price}
		if opts.Barcode != "" {
			in.Barcode = &opts.Barcode
		}
		if cmd.Flags().Changed("unit") {
			in.UnitID = &opts.UnitID
		}
		if cmd.Flags().Changed("category") {
			in.CategoryID = &opts.CategoryID
		}

		res, err := a.ledger.UpsertProduct(ctx, in)
		if err != nil {
			return ledgerError(err)
		}
		return a.out.Success(res, func(w io.Writer) {
			if res.Action == ledger.ActionCreated {
				fmt.Fprintf(w, "Created product #%d\n", res.ID)
				return
			}
			if res.Changes.Empty() {
				fmt.Fprintf(w, "Product #%d unchanged\n", res.ID)
				return
			}
			fmt.Fprintf(w, "Updated product #%d (%s)\n", res.ID, strings.Join(res.Changes.Fields(), ", "))
		})
	})
	return cmd
}

type productView struct {
	ledger.Product
	Batches []batchView `json:"batches"`
}

func newProductShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProductOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show [product-id]",
		Short: "Show a product with its active batches",
		Args:  cobra.MaximumNArgs(1),
	}
	cmd.Flags().StringVar(&opts.Barcode, "barcode", "", "look the product up by barcode")

	cmd.RunE = withApp(rootOpts, func(ctx context.Context, a *app, args []string) error {
		var (
			p   ledger.Product
			err error
		)
		switch {
		case len(args) == 1:
			id, perr := parseID("product id", args[0])
			if perr != nil {
				return perr
			}
			p, err = a.ledger.GetProduct(ctx, id)
		case opts.Barcode != "":
			p, err = a.ledger.FindProductByBarcode(ctx, opts.Barcode)
		default:
			return NewExitError(ExitCommandError, "either a product id or --barcode is required")
		}
		if err != nil {
			return ledgerError(err)
		}

		batches, err := a.ledger.ListBatches(ctx, p.ID)
		if err != nil {
			return ledgerError(err)
		}
		view := productView{Product: p, Batches: a.batchViews(batches)}
		return a.out.Success(view, func(w io.Writer) {
			fmt.Fprintf(w, "Product #%d: %s\n", p.ID, p.Name)
			fmt.Fprintf(w, "  Barcode:  %s\n", orDash(p.Barcode))
			fmt.Fprintf(w, "  Price:    %s\n", p.SellingPrice)
			fmt.Fprintf(w, "  Unit:     %s\n", idOrDash(p.UnitID))
			fmt.Fprintf(w, "  Category: %s\n", idOrDash(p.CategoryID))
			fmt.Fprintf(w, "  Updated:  %s\n", p.UpdatedAt)
			writeBatchTable(w, view.Batches)
		})
	})
	return cmd
}

func newProductHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <product-id>",
		Short: "Show recorded product field changes, newest first",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = withApp(rootOpts, func(ctx context.Context, a *app, args []string) error {
		id, err := parseID("product id", args[0])
		if err != nil {
			return err
		}
		rows, err := a.ledger.ProductHistory(ctx, id)
		if err != nil {
			return ledgerError(err)
		}
		return a.out.Success(rows, func(w io.Writer) {
			if len(rows) == 0 {
				fmt.Fprintln(w, "No product history.")
				return
			}
			tw := newTable(w)
			fmt.Fprintln(tw, "DATE\tFIELD\tOLD\tNEW\tNOTE")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.CreatedAt, r.Field, orDash(r.OldValue), orDash(r.NewValue), orDash(r.Note))
			}
			_ = tw.Flush()
		})
	})
	return cmd
}
