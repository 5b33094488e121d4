package service

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	testRedis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/Alturino/catalog/internal/config"
	"github.com/Alturino/catalog/internal/infra"
	pgRepository "github.com/Alturino/catalog/internal/repository/postgres"
	"github.com/Alturino/catalog/product/internal/cache"
	productErrors "github.com/Alturino/catalog/product/internal/errors"
	"github.com/Alturino/catalog/product/internal/storage"
	"github.com/Alturino/catalog/product/pkg/request"
)

func setupContainers(t *testing.T) (*ProductService, *cache.RedisCache) {
	t.Helper()
	c := context.Background()

	pgContainer, err := postgres.Run(
		c,
		"postgres:16.6-alpine3.21",
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.WithDatabase("catalog"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed running postgres container with error: %s", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	})

	pgConnStr, err := pgContainer.ConnectionString(c, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed getting postgres connection string with error: %s", err)
	}

	dbConfig := config.Database{
		Driver:        config.DriverPostgres,
		DSN:           pgConnStr,
		MigrationPath: "file://../../../migrations/postgres",
	}
	pool, err := infra.NewDatabaseClient(c, dbConfig)
	if err != nil {
		t.Fatalf("failed connecting postgres with error: %s", err)
	}
	t.Cleanup(pool.Close)

	sqlDB := stdlib.OpenDBFromPool(pool)
	t.Cleanup(func() { sqlDB.Close() })
	if err = infra.MigrateUp(c, dbConfig, sqlDB); err != nil {
		t.Fatalf("failed migrating postgres with error: %s", err)
	}

	redisContainer, err := testRedis.Run(c, "redis:7.4.2-alpine3.21")
	if err != nil {
		t.Fatalf("failed running redis container with error: %s", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(redisContainer); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	})

	redisConnStr, err := redisContainer.ConnectionString(c)
	if err != nil {
		t.Fatalf("failed getting redis connection string with error: %s", err)
	}
	redisOpt, err := redis.ParseURL(redisConnStr)
	if err != nil {
		t.Fatalf("failed parsing redis connection string with error: %s", err)
	}
	redisClient := redis.NewClient(redisOpt)
	t.Cleanup(func() { redisClient.Close() })

	redisCache := cache.NewRedisCache(redisClient, 0)
	svc := NewProductService(
		pgRepository.NewStore(pool),
		redisCache,
		storage.NewMediaStorage(afero.NewMemMapFs()),
		"/media/",
		WithClock(tickingClock(now)),
	)
	return svc, redisCache
}

func TestProductLifecycleOnPostgresAndRedis(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	c := context.Background()
	svc, redisCache := setupContainers(t)

	created, err := svc.InsertProduct(c, request.CreateProduct{
		Name:        "Mineral Water",
		Description: "Strawberry flavour",
		Price:       "10.5",
		SaleStart:   request.NewSaleTime(now.Add(-time.Hour)),
		SaleEnd:     request.NewSaleTime(now.Add(time.Hour)),
		CartItems:   []request.CartItem{{Quantity: 5}},
	}, request.Files{})
	require.NoError(t, err)
	assert.Equal(t, "10.50", created.Price)
	assert.Equal(t, 9.45, created.CurrentPrice)

	page, err := svc.FindProducts(c, request.FindProducts{OnSale: true, Search: []string{"water"}, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Count)
	require.Len(t, page.Results, 1)
	assert.Len(t, page.Results[0].CartItems, 1)

	updated, err := svc.UpdateProduct(c, created.ID, request.UpdateProduct{
		Name:        strPtr("New Product"),
		Description: strPtr("Awesome product"),
		Price:       pricePtr("123.45"),
	}, request.Files{})
	require.NoError(t, err)
	assert.Equal(t, "123.45", updated.Price)

	snapshot, err := redisCache.Get(c, cache.KeyProductData(created.ID))
	require.NoError(t, err)
	assert.Equal(t, cache.Snapshot{Name: "New Product", Description: "Awesome product", Price: "123.45"}, snapshot)

	stats, err := svc.GetProductStats(c, created.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string][]int32{"2024-11-20": {5}}, stats.Stats)

	require.NoError(t, svc.RemoveProduct(c, created.ID))
	_, err = redisCache.Get(c, cache.KeyProductData(created.ID))
	assert.ErrorIs(t, err, redis.Nil)

	_, err = svc.FindProductById(c, created.ID)
	assert.ErrorIs(t, err, productErrors.ErrProductNotFound)
}
