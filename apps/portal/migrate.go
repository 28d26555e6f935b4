package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/dig"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/storage/keystore/postgres"
)

var runMigrationFunc = runMigration // mockable

func newMigrateCmd(c *dig.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Migrate the postgres keystore (up, up-by-one, up-to, down, down-to, redo, reset, status, version)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Invoke(func(conf *core.Config) error {
				if conf.Storage.Driver != core.StoragePostgres {
					return errors.Errorf("migrate: the %q keystore has no migrations", conf.Storage.Driver)
				}
				return runMigrationFunc(cmd.Context(), conf.Storage.DatabaseURL, args[0], args[1:]...)
			})
		},
	}
}

func runMigration(ctx context.Context, databaseURL, command string, args ...string) error {
	db, err := pgstore.Open(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	return pgstore.Migrate(ctx, db, command, args...)
}
