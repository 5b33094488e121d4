package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Alturino/catalog/internal/log"
	inOtel "github.com/Alturino/catalog/internal/otel"
	"github.com/Alturino/catalog/product/internal/otel"
)

const keyProductData = "product_data_"

func KeyProductData(id uuid.UUID) string {
	return keyProductData + id.String()
}

// Snapshot is the cached view of a product written after an update.
type Snapshot struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache stores snapshots in client. A zero ttl keeps keys until they
// are deleted.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (r *RedisCache) Set(c context.Context, key string, snapshot Snapshot) error {
	c, span := otel.Tracer.Start(c, "RedisCache Set")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "RedisCache Set").
		Str(log.KeyCacheKey, key).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "marshaling snapshot").Logger()
	logger.Trace().Msg("marshaling snapshot")
	value, err := json.Marshal(snapshot)
	if err != nil {
		err = fmt.Errorf("failed marshaling snapshot with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("marshaled snapshot")

	logger = logger.With().Str(log.KeyProcess, "setting cache").Logger()
	logger.Trace().Msg("setting cache")
	if err = r.client.Set(c, key, value, r.ttl).Err(); err != nil {
		err = fmt.Errorf("failed setting cache with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("set cache")

	return nil
}

func (r *RedisCache) Delete(c context.Context, key string) error {
	c, span := otel.Tracer.Start(c, "RedisCache Delete")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "RedisCache Delete").
		Str(log.KeyCacheKey, key).
		Str(log.KeyProcess, "deleting cache").
		Logger()

	logger.Trace().Msg("deleting cache")
	if err := r.client.Del(c, key).Err(); err != nil {
		err = fmt.Errorf("failed deleting cache with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("deleted cache")

	return nil
}

// Get reads a snapshot back. The service never reads the cache, this is used
// by tooling and tests.
func (r *RedisCache) Get(c context.Context, key string) (Snapshot, error) {
	value, err := r.client.Get(c, key).Bytes()
	if err != nil {
		return Snapshot{}, err
	}
	snapshot := Snapshot{}
	if err = json.Unmarshal(value, &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("failed unmarshaling snapshot with error=%w", err)
	}
	return snapshot, nil
}
