package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Podjisin/saresari-pos/internal/settings"
	"github.com/Podjisin/saresari-pos/internal/store"
)

// SettingsOptions holds flags for the settings commands.
type SettingsOptions struct {
	*RootOptions
	Type        string
	Description string
	Size        int
}

// NewSettingsCommand creates the settings command group.
func NewSettingsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and change application settings",
	}
	cmd.AddCommand(newSettingsGetCommand(rootOpts))
	cmd.AddCommand(newSettingsSetCommand(rootOpts))
	cmd.AddCommand(newSettingsListCommand(rootOpts))
	cmd.AddCommand(newSettingsResetCommand(rootOpts))
	cmd.AddCommand(newSettingsPageSizeCommand(rootOpts))
	return cmd
}

func formatSettingValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(raw)
	}
}

func newSettingsGetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print one setting",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = withApp(rootOpts, func(ctx context.Context, a *app, args []string) error {
		st, err := a.settings.Get(ctx, args[0])
		if err != nil {
			return ledgerError(err)
		}
		return a.out.Success(st, func(w io.Writer) {
			fmt.Fprintln(w, formatSettingValue(st.Value))
		})
	})
	return cmd
}

// parseSettingValue turns command line text into a value of kind. Without an
// explicit kind, JSON literals keep their JSON type and anything else is a string.
func parseSettingValue(raw string, kind settings.Kind) (any, error) {
	switch kind {
	case settings.KindString:
		return raw, nil
	case settings.KindNumber:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, store.Validation("%q is not a number", raw)
		}
		return f, nil
	case settings.KindBoolean:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, store.Validation("%q is not a boolean", raw)
		}
		return b, nil
	case settings.KindJSON:
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, store.Validation("value is not valid JSON: %v", err)
		}
		return v, nil
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil && v != nil {
		return v, nil
	}
	return raw, nil
}

func newSettingsSetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SettingsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a setting",
		Long: `Store a setting.

The value type is taken from --type, then from the existing setting, and
otherwise inferred from the value.

Example:
  saresari settings set store_name "Aling Nena's Store"
  saresari settings set page_size_options '[10,25,50]' --type json`,
		Args: cobra.ExactArgs(2),
	}
	cmd.Flags().StringVar(&opts.Type, "type", "", "value type: string, number, boolean or json")
	cmd.Flags().StringVar(&opts.Description, "description", "", "setting description")

	cmd.RunE = withApp(rootOpts, func(ctx context.Context, a *app, args []string) error {
		key := args[0]
		var kind settings.Kind
		if opts.Type != "" {
			k, err := settings.ParseKind(opts.Type)
			if err != nil {
				return ledgerError(err)
			}
			kind = k
		} else if existing, err := a.settings.Get(ctx, key); err == nil {
			kind = existing.Type
		} else if !store.IsNotFound(err) {
			return ledgerError(err)
		}

		value, err := parseSettingValue(args[1], kind)
		if err != nil {
			return ledgerError(err)
		}
		var setOpts []settings.SetOption
		if kind != "" {
			setOpts = append(setOpts, settings.WithType(kind))
		}
		if cmd.Flags().Changed("description") {
			setOpts = append(setOpts, settings.WithDescription(opts.Description))
		}
		if err := a.settings.Set(ctx, key, value, setOpts...); err != nil {
			return ledgerError(err)
		}
		return a.out.Success(map[string]any{"key": key, "value": value}, func(w io.Writer) {
			fmt.Fprintf(w, "%s = %s\n", key, formatSettingValue(value))
		})
	})
	return cmd
}

func newSettingsListCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every setting",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = withApp(rootOpts, func(ctx context.Context, a *app, _ []string) error {
		all, err := a.settings.All(ctx)
		if err != nil {
			return ledgerError(err)
		}
		return a.out.Success(all, func(w io.Writer) {
			tw := newTable(w)
			fmt.Fprintln(tw, "KEY\tTYPE\tVALUE")
			for _, st := range all {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", st.Key, st.Type, formatSettingValue(st.Value))
			}
			_ = tw.Flush()
		})
	})
	return cmd
}

func newSettingsResetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset [key...]",
		Short: "Restore shipped defaults",
		Long: `Restore shipped defaults.

With keys only those settings are restored. Without keys every shipped
setting is restored; settings without a shipped default are left alone.`,
	}
	cmd.RunE = withApp(rootOpts, func(ctx context.Context, a *app, args []string) error {
		if err := a.settings.Reset(ctx, args...); err != nil {
			return ledgerError(err)
		}
		return a.out.Success(map[string]any{"reset": args}, func(w io.Writer) {
			if len(args) == 0 {
				fmt.Fprintln(w, "All settings restored to defaults")
				return
			}
			fmt.Fprintf(w, "Restored %d setting(s)\n", len(args))
		})
	})
	return cmd
}

func newSettingsPageSizeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SettingsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "page-size [view]",
		Short: "Show or change the page size of a view",
		Args:  cobra.MaximumNArgs(1),
	}
	cmd.Flags().IntVar(&opts.Size, "set", 0, "store this page size")

	cmd.RunE = withApp(rootOpts, func(ctx context.Context, a *app, args []string) error {
		view := ""
		if len(args) == 1 {
			view = args[0]
		}
		if cmd.Flags().Changed("set") {
			if err := a.settings.SetPageSize(ctx, opts.Size, view); err != nil {
				return ledgerError(err)
			}
		}
		size := a.settings.PageSize(ctx, view)
		cfg := a.settings.PaginationConfig(ctx)
		return a.out.Success(map[string]any{"view": view, "page_size": size, "pagination": cfg}, func(w io.Writer) {
			fmt.Fprintf(w, "Page size: %d (options %v)\n", size, cfg.Options)
		})
	})
	return cmd
}
