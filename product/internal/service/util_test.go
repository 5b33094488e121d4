package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/catalog/internal/config"
	"github.com/Alturino/catalog/internal/infra"
	"github.com/Alturino/catalog/internal/repository"
	"github.com/Alturino/catalog/internal/repository/sqlite"
	"github.com/Alturino/catalog/product/internal/cache"
	"github.com/Alturino/catalog/product/internal/storage"
	"github.com/Alturino/catalog/product/pkg/request"
)

type fakeCache struct {
	mu   sync.Mutex
	data map[string]cache.Snapshot
	err  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string]cache.Snapshot{}}
}

func (f *fakeCache) Set(c context.Context, key string, snapshot cache.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.data[key] = snapshot
	return nil
}

func (f *fakeCache) Delete(c context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	delete(f.data, key)
	return nil
}

func (f *fakeCache) get(key string) (cache.Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot, ok := f.data[key]
	return snapshot, ok
}

// tickingClock starts at now and moves one millisecond per call so rows keep
// their creation order.
func tickingClock(now time.Time) func() time.Time {
	var (
		mu   sync.Mutex
		tick time.Duration
	)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick += time.Millisecond
		return now.Add(tick)
	}
}

var errRollback = errors.New("rollback")

// rollbackStore runs every transaction to the end and then rolls it back.
type rollbackStore struct {
	repository.Store
}

func (s rollbackStore) ExecTx(c context.Context, fn func(repository.Querier) error) error {
	return s.Store.ExecTx(c, func(q repository.Querier) error {
		if err := fn(q); err != nil {
			return err
		}
		return errRollback
	})
}

type fixture struct {
	service *ProductService
	store   *sqlite.Store
	cache   *fakeCache
	media   *storage.MediaStorage
}

func setup(t *testing.T, now time.Time) fixture {
	t.Helper()
	c := context.Background()

	db, err := infra.NewSqliteClient(c, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	err = infra.MigrateUp(c, config.Database{
		Driver:        config.DriverSqlite,
		MigrationPath: "file://../../../migrations/sqlite",
	}, db.DB)
	require.NoError(t, err)

	store := sqlite.NewStore(db)
	productCache := newFakeCache()
	media := storage.NewMediaStorage(afero.NewMemMapFs())
	svc := NewProductService(store, productCache, media, "/media/", WithClock(tickingClock(now)))

	return fixture{service: svc, store: store, cache: productCache, media: media}
}

func pngFile(t *testing.T, filename string) *request.File {
	t.Helper()
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, image.NewGray(image.Rect(0, 0, 1, 1))))
	return &request.File{Filename: filename, Content: buf.Bytes()}
}

func createProduct(t *testing.T, svc *ProductService, req request.CreateProduct) uuid.UUID {
	t.Helper()
	product, err := svc.InsertProduct(context.Background(), req, request.Files{})
	require.NoError(t, err)
	return product.ID
}

func strPtr(s string) *string { return &s }

func pricePtr(s string) *request.Price {
	p := request.Price(s)
	return &p
}
