package cmd

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Alturino/catalog/internal/config"
	"github.com/Alturino/catalog/internal/constants"
	"github.com/Alturino/catalog/internal/infra"
	"github.com/Alturino/catalog/internal/log"
)

func newMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or revert database migrations",
	}
	migrateCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply every pending migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigration(cmd, func(m *migrate.Migrate) error { return m.Up() })
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert every applied migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigration(cmd, func(m *migrate.Migrate) error { return m.Down() })
			},
		},
	)
	return migrateCmd
}

func runMigration(cmd *cobra.Command, step func(*migrate.Migrate) error) error {
	c := cmd.Context()
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyAppName, constants.AppMigration).
		Str(log.KeyTag, "main runMigration").
		Str(log.KeyProcess, "migrate "+cmd.Name()).
		Logger()
	c = logger.WithContext(c)

	cfg := config.Get(c, constants.AppProductService)

	db, err := infra.OpenMigrationDB(c, cfg.Database)
	if err != nil {
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	defer db.Close()

	migration, err := infra.NewMigration(c, cfg.Database, db)
	if err != nil {
		return err
	}

	logger.Info().Msgf("running migration %s", cmd.Name())
	if err = step(migration); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		err = fmt.Errorf("failed migration %s with error=%w", cmd.Name(), err)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msgf("finished migration %s", cmd.Name())
	return nil
}
