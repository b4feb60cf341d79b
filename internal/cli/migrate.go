package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/flockhq/flock/internal/platform/database"
	"github.com/flockhq/flock/internal/platform/migrations"
	"github.com/flockhq/flock/pkg/logger"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the Postgres schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return opts.withDB(cmd.Context(), func(db *sqlx.DB, log *logger.Logger) error {
					p := NewPrinter(cmd.OutOrStdout())
					spin := p.NewSpinner("applying migrations")
					spin.Start()
					if err := migrations.Apply(cmd.Context(), db.DB, log); err != nil {
						spin.Fail("migration failed")
						return err
					}
					spin.Success("schema is up to date")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "down N",
			Short: "Roll back N migrations",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				steps, err := strconv.Atoi(args[0])
				if err != nil || steps <= 0 {
					return fmt.Errorf("N must be a positive integer, got %q", args[0])
				}
				return opts.withDB(cmd.Context(), func(db *sqlx.DB, log *logger.Logger) error {
					if err := migrations.Down(cmd.Context(), db.DB, steps, log); err != nil {
						return err
					}
					NewPrinter(cmd.OutOrStdout()).Success("rolled back %d migration(s)", steps)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show the applied schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return opts.withDB(cmd.Context(), func(db *sqlx.DB, _ *logger.Logger) error {
					version, dirty, err := migrations.Version(db.DB)
					if err != nil {
						return err
					}
					p := NewPrinter(cmd.OutOrStdout())
					if dirty {
						p.Warning("schema version %d is dirty", version)
						return nil
					}
					p.Info("schema version %d", version)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "files",
			Short: "List the embedded migration files",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				files, err := migrations.Files()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(files, "\n"))
				return nil
			},
		},
	)
	return cmd
}

func (o *rootOptions) withDB(ctx context.Context, fn func(*sqlx.DB, *logger.Logger) error) error {
	cfg, log, err := o.load()
	if err != nil {
		return err
	}
	defer log.Close()

	if !strings.EqualFold(cfg.Database.Driver, database.DriverName) {
		return fmt.Errorf("migrations need the postgres driver, configured driver is %q", cfg.Database.Driver)
	}
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db, log)
}
