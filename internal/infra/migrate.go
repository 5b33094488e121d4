package infra

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/Alturino/catalog/internal/config"
	"github.com/Alturino/catalog/internal/log"
	"github.com/Alturino/catalog/internal/otel"
)

// NewMigration builds a migrator over db for the configured driver. The
// caller owns db; closing the migrator closes db as well.
func NewMigration(c context.Context, dbConfig config.Database, db *sql.DB) (*migrate.Migrate, error) {
	c, span := otel.Tracer.Start(c, "infra NewMigration")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "infra NewMigration").
		Str(log.KeyDbDriver, dbConfig.Driver).
		Str("migrationPath", dbConfig.MigrationPath).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "initializing db driver").Logger()
	logger.Info().Msg("initializing db driver")
	var (
		driver database.Driver
		err    error
	)
	switch dbConfig.Driver {
	case config.DriverSqlite:
		driver, err = sqlite.WithInstance(db, &sqlite.Config{})
	case config.DriverPostgres:
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	default:
		err = fmt.Errorf("unsupported db driver=%s", dbConfig.Driver)
	}
	if err != nil {
		err = fmt.Errorf("failed initializing db driver with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msg("initialized db driver")

	logger = logger.With().Str(log.KeyProcess, "initializing migration").Logger()
	logger.Info().Msg("initializing migration")
	migration, err := migrate.NewWithDatabaseInstance(dbConfig.MigrationPath, dbConfig.Driver, driver)
	if err != nil {
		err = fmt.Errorf("failed initializing migration with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msg("initialized migration")

	return migration, nil
}

// OpenMigrationDB opens a standalone database/sql handle for the migrate
// command, lib/pq for postgres and modernc for sqlite.
func OpenMigrationDB(c context.Context, dbConfig config.Database) (*sql.DB, error) {
	switch dbConfig.Driver {
	case config.DriverSqlite:
		db, err := NewSqliteClient(c, dbConfig.DSN)
		if err != nil {
			return nil, err
		}
		return db.DB, nil
	case config.DriverPostgres:
		db, err := sql.Open("postgres", dbConfig.URL())
		if err != nil {
			return nil, fmt.Errorf("failed opening postgres with error=%w", err)
		}
		if err = db.PingContext(c); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed ping postgres with error=%w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported db driver=%s", dbConfig.Driver)
	}
}

// MigrateUp applies every pending migration. The migrator is left open so a
// shared db handle stays usable.
func MigrateUp(c context.Context, dbConfig config.Database, db *sql.DB) error {
	c, span := otel.Tracer.Start(c, "infra MigrateUp")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "infra MigrateUp").
		Str(log.KeyProcess, "migration up").
		Logger()

	migration, err := NewMigration(logger.WithContext(c), dbConfig, db)
	if err != nil {
		otel.RecordError(err, span)
		return err
	}

	logger.Info().Msg("migration up")
	if err = migration.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		err = fmt.Errorf("failed migration up with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("successed migration up")
	return nil
}
