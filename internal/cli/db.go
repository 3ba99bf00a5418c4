package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Podjisin/saresari-pos/internal/store"
)

// NewDBCommand creates the db command group.
func NewDBCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database maintenance",
	}
	cmd.AddCommand(newDBCheckCommand(rootOpts))
	cmd.AddCommand(newDBMigrateCommand(rootOpts))
	return cmd
}

type dbStatus struct {
	Path          string `json:"path"`
	Healthy       bool   `json:"healthy"`
	Reconnected   bool   `json:"reconnected,omitempty"`
	SchemaVersion int64  `json:"schema_version"`
}

func newDBCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check the database connection, reconnecting if needed",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = withApp(rootOpts, func(ctx context.Context, a *app, _ []string) error {
		st := dbStatus{Path: a.conns.Path(), Healthy: a.conns.CheckConnection(ctx)}
		if !st.Healthy {
			a.logger.Warn("connection check failed, reconnecting", "path", st.Path)
			if err := a.conns.Reconnect(ctx); err != nil {
				return ledgerError(err)
			}
			st.Healthy, st.Reconnected = true, true
		}
		db, err := a.conns.DB()
		if err != nil {
			return ledgerError(err)
		}
		if st.SchemaVersion, err = store.SchemaVersion(ctx, db); err != nil {
			return WrapExitError(ExitFailure, "failed to read schema version", err)
		}
		return a.out.Success(st, func(w io.Writer) {
			fmt.Fprintf(w, "Database: %s\n", st.Path)
			fmt.Fprintf(w, "Status:   ok\n")
			fmt.Fprintf(w, "Schema:   version %d\n", st.SchemaVersion)
		})
	})
	return cmd
}

func newDBMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Long: `Apply pending schema migrations.

Migrations also run whenever the database is opened; this command opens it
and reports the resulting schema version.`,
		Args: cobra.NoArgs,
	}
	cmd.RunE = withApp(rootOpts, func(ctx context.Context, a *app, _ []string) error {
		db, err := a.conns.DB()
		if err != nil {
			return ledgerError(err)
		}
		version, err := store.SchemaVersion(ctx, db)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to read schema version", err)
		}
		return a.out.Success(map[string]any{"path": a.conns.Path(), "schema_version": version}, func(w io.Writer) {
			fmt.Fprintf(w, "Schema at version %d\n", version)
		})
	})
	return cmd
}
