package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/Alturino/catalog/internal/log"
)

type Application struct {
	Env            string        `mapstructure:"env"             json:"env"`
	Host           string        `mapstructure:"host"            json:"host"`
	SecretKey      string        `mapstructure:"secret_key"      json:"-"`
	MediaRoot      string        `mapstructure:"media_root"      json:"media_root"`
	MediaURL       string        `mapstructure:"media_url"       json:"media_url"`
	LogPath        string        `mapstructure:"log_path"        json:"log_path"`
	AllowedOrigins []string      `mapstructure:"allowed_origins" json:"allowed_origins"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"    json:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"   json:"write_timeout"`
	Port           int           `mapstructure:"port"            json:"port"`
}

type Database struct {
	Driver         string `mapstructure:"driver"           json:"driver"`
	DSN            string `mapstructure:"dsn"              json:"dsn"`
	Name           string `mapstructure:"name"             json:"name"`
	Host           string `mapstructure:"host"             json:"host"`
	MigrationPath  string `mapstructure:"migration_path"   json:"migration_path"`
	Password       string `mapstructure:"password"         json:"-"`
	TimeZone       string `mapstructure:"timezone"         json:"timezone"`
	Username       string `mapstructure:"username"         json:"username"`
	MaxConnections int    `mapstructure:"max_connections"  json:"max_connections"`
	MinConnections int    `mapstructure:"min_connections"  json:"min_connections"`
	MigrateOnStart bool   `mapstructure:"migrate_on_start" json:"migrate_on_start"`
	Port           uint16 `mapstructure:"port"             json:"port"`
}

const (
	DriverPostgres = "postgres"
	DriverSqlite   = "sqlite"
)

// URL returns the connection string golang-migrate and the drivers understand.
func (d Database) URL() string {
	if d.Driver == DriverSqlite {
		return "sqlite://" + d.DSN
	}
	if d.DSN != "" {
		return d.DSN
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.Username,
		d.Password,
		d.Host,
		int(d.Port),
		d.Name,
	)
}

type Cache struct {
	Host     string        `mapstructure:"host"     json:"host"`
	Password string        `mapstructure:"password" json:"-"`
	Database int           `mapstructure:"database" json:"database"`
	TTL      time.Duration `mapstructure:"ttl"      json:"ttl"`
	Port     uint16        `mapstructure:"port"     json:"port"`
}

type Otel struct {
	Host    string `mapstructure:"host"    json:"host"`
	Port    int    `mapstructure:"port"    json:"port"`
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
}

func (o Otel) Endpoint() string {
	return fmt.Sprintf("%s:%d", o.Host, o.Port)
}

type Pagination struct {
	DefaultLimit int `mapstructure:"default_limit" json:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"     json:"max_limit"`
}

type Config struct {
	Database    `mapstructure:"db"          json:"db"`
	Cache       `mapstructure:"cache"       json:"cache"`
	Application `mapstructure:"application" json:"application"`
	Otel        `mapstructure:"otel"        json:"otel"`
	Pagination  `mapstructure:"pagination"  json:"pagination"`
}

var (
	once   sync.Once
	config *Config
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("application.env", "production")
	v.SetDefault("application.secret_key", "")
	v.SetDefault("application.log_path", "")
	v.SetDefault("application.host", "0.0.0.0")
	v.SetDefault("application.port", 8080)
	v.SetDefault("application.media_root", "./media")
	v.SetDefault("application.media_url", "/media/")
	v.SetDefault("application.allowed_origins", []string{"*"})
	v.SetDefault("application.read_timeout", 15*time.Second)
	v.SetDefault("application.write_timeout", 15*time.Second)
	v.SetDefault("db.driver", DriverPostgres)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "catalog")
	v.SetDefault("db.username", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.migrate_on_start", false)
	v.SetDefault("db.migration_path", "file://migrations/postgres")
	v.SetDefault("db.max_connections", 10)
	v.SetDefault("db.min_connections", 2)
	v.SetDefault("cache.host", "localhost")
	v.SetDefault("cache.port", 6379)
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.database", 0)
	v.SetDefault("cache.ttl", 0)
	v.SetDefault("otel.host", "otel-collector")
	v.SetDefault("otel.port", 4317)
	v.SetDefault("otel.enabled", false)
	v.SetDefault("pagination.default_limit", 10)
	v.SetDefault("pagination.max_limit", 100)
}

// Load reads env/<filename>.yaml, overridden by environment variables such as
// DB_HOST or APPLICATION_PORT. A .env file in the working directory is loaded
// into the environment first when present.
func Load(c context.Context, filename string, paths ...string) (*Config, error) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "config Load").
		Str(log.KeyFilename, filename).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "loading dotenv").Logger()
	logger.Trace().Msg("loading dotenv")
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		err = fmt.Errorf("failed loading dotenv with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Trace().Msg("loaded dotenv")

	v := viper.New()
	v.SetConfigName(filename)
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"./env"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	logger = logger.With().Str(log.KeyProcess, "reading config").Logger()
	logger.Info().Msg("reading config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			err = fmt.Errorf("failed reading config with error=%w", err)
			logger.Error().Err(err).Msg(err.Error())
			return nil, err
		}
		logger.Warn().Err(err).Msg("config file not found, using defaults and environment")
	}
	logger.Info().Msg("read config")

	logger = logger.With().Str(log.KeyProcess, "unmarshaling config").Logger()
	logger.Info().Msg("unmarshaling config")
	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		err = fmt.Errorf("failed unmarshaling config with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Any(log.KeyConfig, cfg).Msg("unmarshaled config")

	return &cfg, nil
}

// Get loads the config once per process and exits when it cannot be read.
func Get(c context.Context, filename string) *Config {
	once.Do(func() {
		cfg, err := Load(c, filename)
		if err != nil {
			zerolog.Ctx(c).Fatal().Err(err).Msg(err.Error())
		}
		config = cfg
	})
	return config
}
