package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nerrad567/scale-registry/internal/infrastructure/database"
	"github.com/nerrad567/scale-registry/internal/ui"
	"github.com/nerrad567/scale-registry/migrations"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the mirror database schema",
		Long: `Inspects or changes the schema of the mirror database named by
database.path. serve applies pending migrations on startup; these commands
are for operators.`,
	}
	cmd.AddCommand(newMigrateStatusCmd(a), newMigrateUpCmd(a), newMigrateDownCmd(a))
	return cmd
}

func newMigrateStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openDatabase()
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck // read-only use

			status, err := db.Status(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "VERSION\tSTATE\tAPPLIED AT")
			for _, m := range status.Applied {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Version, ui.Success.Sprint("applied"), m.AppliedAt.Format("2006-01-02 15:04:05"))
			}
			for _, m := range status.Pending {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Version, ui.Warning.Sprint("pending"), ui.Muted.Sprint(m.Name))
			}
			return tw.Flush()
		},
	}
}

func newMigrateUpCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openDatabase()
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck // nothing left to flush

			before, err := db.Status(cmd.Context())
			if err != nil {
				return err
			}
			if err := db.Migrate(cmd.Context()); err != nil {
				return err
			}
			a.printf("%s Applied %d migration(s)\n", ui.Success.Sprint("✓"), len(before.Pending))
			return nil
		},
	}
}

func newMigrateDownCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Revert the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openDatabase()
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck // nothing left to flush

			m, err := db.Rollback(cmd.Context())
			if err != nil {
				return err
			}
			if m == nil {
				a.printf("%s No migrations applied\n", ui.Warning.Sprint("!"))
				return nil
			}
			a.printf("%s Reverted %s %s\n", ui.Success.Sprint("✓"), m.Version, ui.Muted.Sprint(m.Name))
			return nil
		},
	}
}

// openDatabase opens the mirror database with the embedded migrations.
func (a *app) openDatabase() (*database.DB, error) {
	db, err := database.Open(database.FromConfig(a.cfg.Database), database.WithMigrations(migrations.FS, "."))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}
