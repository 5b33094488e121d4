package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/Alturino/catalog/internal/config"
	"github.com/Alturino/catalog/internal/constants"
	"github.com/Alturino/catalog/internal/infra"
	"github.com/Alturino/catalog/internal/log"
	"github.com/Alturino/catalog/internal/middleware"
	inOtel "github.com/Alturino/catalog/internal/otel"
	"github.com/Alturino/catalog/internal/repository"
	pgRepository "github.com/Alturino/catalog/internal/repository/postgres"
	sqliteRepository "github.com/Alturino/catalog/internal/repository/sqlite"
	"github.com/Alturino/catalog/product/internal/cache"
	"github.com/Alturino/catalog/product/internal/controller"
	"github.com/Alturino/catalog/product/internal/otel"
	"github.com/Alturino/catalog/product/internal/service"
	"github.com/Alturino/catalog/product/internal/storage"
)

// openStore connects the configured database, migrating it first when
// migrate_on_start is set. The returned func closes the connection.
func openStore(c context.Context, cfg config.Database) (repository.Store, func(), error) {
	switch cfg.Driver {
	case config.DriverSqlite:
		db, err := infra.NewSqliteClient(c, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		if cfg.MigrateOnStart {
			if err = infra.MigrateUp(c, cfg, db.DB); err != nil {
				db.Close()
				return nil, nil, err
			}
		}
		return sqliteRepository.NewStore(db), func() { db.Close() }, nil
	case config.DriverPostgres:
		pool, err := infra.NewDatabaseClient(c, cfg)
		if err != nil {
			return nil, nil, err
		}
		if cfg.MigrateOnStart {
			sqlDB := stdlib.OpenDBFromPool(pool)
			err = infra.MigrateUp(c, cfg, sqlDB)
			sqlDB.Close()
			if err != nil {
				pool.Close()
				return nil, nil, err
			}
		}
		return pgRepository.NewStore(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported db driver=%s", cfg.Driver)
	}
}

func RunProductService(c context.Context) {
	c, span := otel.Tracer.Start(c, "RunProductService")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyAppName, constants.AppProductService).
		Str(log.KeyTag, "main RunProductService").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "initializing config").Logger()
	logger.Info().Msg("initializing config")
	c = logger.WithContext(c)
	cfg := config.Get(c, constants.AppProductService)
	logger.Info().Msg("initialized config")

	logger = log.New(cfg.Application.LogPath, cfg.Application.Env).
		With().
		Str(log.KeyAppName, constants.AppProductService).
		Str(log.KeyTag, "main RunProductService").
		Logger()
	c = logger.WithContext(c)

	logger = logger.With().Str(log.KeyProcess, "initializing otel sdk").Logger()
	logger.Info().Msg("initializing otel sdk")
	shutdownFuncs, err := inOtel.InitOtelSdk(c, constants.AppProductService, cfg.Otel)
	if err != nil {
		err = fmt.Errorf("failed initializing otel sdk with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	logger.Info().Msg("initialized otel sdk")
	defer func() {
		logger := logger.With().Str(log.KeyProcess, "shutting down otel").Logger()
		logger.Info().Msg("shutting down otel")
		if err := inOtel.ShutdownOtel(context.WithoutCancel(c), shutdownFuncs); err != nil {
			err = fmt.Errorf("failed shutting down otel with error=%w", err)
			inOtel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return
		}
		logger.Info().Msg("shutdown otel")
	}()

	logger = logger.With().
		Str(log.KeyProcess, "initializing database").
		Str(log.KeyDbDriver, cfg.Database.Driver).
		Logger()
	logger.Info().Msg("initializing database")
	store, closeStore, err := openStore(logger.WithContext(c), cfg.Database)
	if err != nil {
		err = fmt.Errorf("failed initializing database with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	logger.Info().Msg("initialized database")
	defer func() {
		logger := logger.With().Str(log.KeyProcess, "shutting down database connection").Logger()
		logger.Info().Msg("shutting down database connection")
		closeStore()
		logger.Info().Msg("shutdown database connection")
	}()

	logger = logger.With().Str(log.KeyProcess, "initializing cache").Logger()
	logger.Info().Msg("initializing cache")
	redisClient, err := infra.NewCacheClient(logger.WithContext(c), cfg.Cache)
	if err != nil {
		err = fmt.Errorf("failed initializing cache with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	logger.Info().Msg("initialized cache")
	defer func() {
		logger := logger.With().Str(log.KeyProcess, "shutting down cache connection").Logger()
		logger.Info().Msg("shutting down cache connection")
		if err := redisClient.Close(); err != nil {
			err = fmt.Errorf("failed closing cache with error=%w", err)
			inOtel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return
		}
		logger.Info().Msg("shutdown cache connection")
	}()

	logger = logger.With().
		Str(log.KeyProcess, "initializing media storage").
		Str(log.KeyMediaPath, cfg.Application.MediaRoot).
		Logger()
	logger.Info().Msg("initializing media storage")
	media, err := storage.NewOsMediaStorage(cfg.Application.MediaRoot)
	if err != nil {
		err = fmt.Errorf("failed initializing media storage with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	logger.Info().Msg("initialized media storage")

	logger = logger.With().Str(log.KeyProcess, "initializing productService").Logger()
	logger.Info().Msg("initializing productService")
	productService := service.NewProductService(
		store,
		cache.NewRedisCache(redisClient, cfg.Cache.TTL),
		media,
		cfg.Application.MediaURL,
	)
	logger.Info().Msg("initialized productService")

	logger = logger.With().Str(log.KeyProcess, "initializing metrics").Logger()
	logger.Info().Msg("initializing metrics")
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := middleware.NewMetrics(registry, strings.ReplaceAll(constants.AppProductService, "-", "_"))
	logger.Info().Msg("initialized metrics")

	logger = logger.With().Str(log.KeyProcess, "initializing router").Logger()
	logger.Info().Msg("initializing router")
	router := mux.NewRouter()
	router.Use(
		otelmux.Middleware(constants.AppProductService),
		middleware.Logging,
		middleware.RecoverPanic,
		metrics.Middleware,
	)
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	router.HandleFunc("/healthz", controller.Health).Methods(http.MethodGet)
	router.PathPrefix(cfg.Application.MediaURL).
		Handler(media.Handler(cfg.Application.MediaURL)).
		Methods(http.MethodGet, http.MethodHead)
	logger.Info().Msg("initialized router")

	logger = logger.With().Str(log.KeyProcess, "attaching product controller").Logger()
	logger.Info().Msg("attaching product controller")
	controller.AttachProductController(
		router,
		productService,
		cfg.Pagination,
		middleware.Auth(cfg.Application.SecretKey),
	)
	logger.Info().Msg("attached product controller")

	logger = logger.With().Str(log.KeyProcess, "initializing server").Logger()
	logger.Info().Msg("initializing server")
	server := http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Application.Host, cfg.Application.Port),
		BaseContext:  func(net.Listener) context.Context { return c },
		Handler:      middleware.Cors(cfg.Application.AllowedOrigins)(middleware.TrimTrailingSlash(router)),
		ReadTimeout:  cfg.Application.ReadTimeout,
		WriteTimeout: cfg.Application.WriteTimeout,
	}
	logger.Info().Msg("initialized server")

	serverErr := make(chan error, 1)
	go func() {
		logger := logger.With().Str(log.KeyProcess, "start server").Logger()
		logger.Info().Msgf("start listening request at %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("encounter error=%w while running server", err)
			return
		}
		close(serverErr)
	}()

	select {
	case <-c.Done():
		logger = logger.With().Str(log.KeyProcess, "shutdown server").Logger()
		logger.Info().Msg("received interuption signal shutting down")
	case err = <-serverErr:
		if err != nil {
			inOtel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(c), cfg.Application.WriteTimeout)
	defer cancel()
	if err = server.Shutdown(shutdownCtx); err != nil {
		err = fmt.Errorf("failed shutting down server with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
	}
	logger.Info().Msg("shutdown server")
}
