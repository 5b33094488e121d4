package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	testRedis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func TestKeyProductData(t *testing.T) {
	id := uuid.MustParse("3f1b8f7e-2b9c-4c1e-9a57-0c7a6d9f2a10")
	assert.Equal(t, "product_data_3f1b8f7e-2b9c-4c1e-9a57-0c7a6d9f2a10", KeyProductData(id))
}

func TestRedisCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	c := context.Background()

	redisContainer, err := testRedis.Run(c, "redis:7.4.2-alpine3.21")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(redisContainer); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	})

	connStr, err := redisContainer.ConnectionString(c)
	require.NoError(t, err)
	opt, err := redis.ParseURL(connStr)
	require.NoError(t, err)
	client := redis.NewClient(opt)
	t.Cleanup(func() { client.Close() })

	key := KeyProductData(uuid.New())
	snapshot := Snapshot{Name: "New Product", Description: "Awesome product", Price: "123.45"}

	t.Run("given no ttl should keep key", func(t *testing.T) {
		cache := NewRedisCache(client, 0)
		require.NoError(t, cache.Set(c, key, snapshot))

		actual, err := cache.Get(c, key)
		require.NoError(t, err)
		assert.Equal(t, snapshot, actual)

		ttl, err := client.TTL(c, key).Result()
		require.NoError(t, err)
		assert.Equal(t, time.Duration(-1), ttl)
	})

	t.Run("given delete should remove key", func(t *testing.T) {
		cache := NewRedisCache(client, 0)
		require.NoError(t, cache.Delete(c, key))

		_, err := cache.Get(c, key)
		assert.ErrorIs(t, err, redis.Nil)
		assert.NoError(t, cache.Delete(c, key))
	})

	t.Run("given ttl should expire key", func(t *testing.T) {
		cache := NewRedisCache(client, time.Minute)
		require.NoError(t, cache.Set(c, key, snapshot))

		ttl, err := client.TTL(c, key).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
	})
}
