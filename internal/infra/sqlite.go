package infra

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/Alturino/catalog/internal/config"
	"github.com/Alturino/catalog/internal/log"
	"github.com/Alturino/catalog/internal/otel"
)

const sqlitePragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// NewSqliteClient opens the pure Go sqlite database at dsn. ":memory:" is
// pinned to a single connection so every query sees the same database.
func NewSqliteClient(c context.Context, dsn string) (*sqlx.DB, error) {
	c, span := otel.Tracer.Start(c, "infra NewSqliteClient")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "infra NewSqliteClient").
		Str(log.KeyDbDriver, config.DriverSqlite).
		Str(log.KeyDbURL, dsn).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "opening sqlite").Logger()
	logger.Info().Msg("opening sqlite")
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	db, err := sqlx.Open("sqlite", dsn+separator+sqlitePragmas)
	if err != nil {
		err = fmt.Errorf("failed opening sqlite with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	if strings.HasPrefix(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}
	logger.Info().Msg("opened sqlite")

	logger = logger.With().Str(log.KeyProcess, "ping db").Logger()
	logger.Info().Msg("ping db")
	if err = db.PingContext(c); err != nil {
		db.Close()
		err = fmt.Errorf("failed ping sqlite with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msg("successed ping db")

	return db, nil
}
