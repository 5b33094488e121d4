package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Alturino/catalog/internal/log"
	inOtel "github.com/Alturino/catalog/internal/otel"
	"github.com/Alturino/catalog/internal/repository"
	"github.com/Alturino/catalog/product/internal/cache"
	productErrors "github.com/Alturino/catalog/product/internal/errors"
	"github.com/Alturino/catalog/product/internal/otel"
	"github.com/Alturino/catalog/product/internal/storage"
	"github.com/Alturino/catalog/product/pkg/request"
	"github.com/Alturino/catalog/product/pkg/response"
)

const warrantyHeader = "\n\nWarranty Information:\n"

type ProductCache interface {
	Set(c context.Context, key string, snapshot cache.Snapshot) error
	Delete(c context.Context, key string) error
}

type MediaStore interface {
	Save(c context.Context, dir string, filename string, content []byte) (string, error)
	Remove(c context.Context, name string) error
}

type ProductService struct {
	store    repository.Store
	cache    ProductCache
	media    MediaStore
	mediaURL string
	now      func() time.Time
}

type Option func(*ProductService)

// WithClock replaces time.Now as the source of creation times and of the
// moment sale windows are checked against.
func WithClock(now func() time.Time) Option {
	return func(svc *ProductService) {
		svc.now = now
	}
}

func NewProductService(
	store repository.Store,
	cache ProductCache,
	media MediaStore,
	mediaURL string,
	opts ...Option,
) *ProductService {
	svc := &ProductService{
		store:    store,
		cache:    cache,
		media:    media,
		mediaURL: mediaURL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// clock is truncated to what every database driver stores.
func (svc *ProductService) clock() time.Time {
	return svc.now().UTC().Truncate(time.Microsecond)
}

func (svc *ProductService) photoURL(photo string) string {
	return strings.TrimSuffix(svc.mediaURL, "/") + "/" + strings.TrimPrefix(photo, "/")
}

func notFound(id uuid.UUID, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed finding product id=%s with error=%w", id.String(), productErrors.ErrProductNotFound)
	}
	return err
}

func (svc *ProductService) FindProducts(
	c context.Context,
	req request.FindProducts,
) (response.ProductPage, error) {
	c, span := otel.Tracer.Start(c, "ProductService FindProducts")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductService FindProducts").
		Any(log.KeyQuery, req).
		Logger()

	now := svc.clock()
	params := repository.FindProductsParams{
		ID:          req.ID,
		SearchTerms: req.Search,
		Limit:       int32(req.Limit),
		Offset:      int32(req.Offset),
	}
	if req.OnSale {
		params.OnSaleAt = &now
	}

	logger = logger.With().Str(log.KeyProcess, "counting products in database").Logger()
	logger.Trace().Msg("counting products in database")
	span.AddEvent("counting products in database")
	count, err := svc.store.CountProducts(c, params)
	if err != nil {
		err = fmt.Errorf("failed counting products with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.ProductPage{}, err
	}
	logger = logger.With().Int64(log.KeyCount, count).Logger()
	span.AddEvent("counted products in database")
	logger.Trace().Msg("counted products in database")

	logger = logger.With().Str(log.KeyProcess, "finding products in database").Logger()
	logger.Trace().Msg("finding products in database")
	span.AddEvent("finding products in database")
	products, err := svc.store.FindProducts(c, params)
	if err != nil {
		err = fmt.Errorf("failed finding products with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.ProductPage{}, err
	}
	span.AddEvent("found products in database")
	logger.Trace().Msg("found products in database")

	ids := make([]uuid.UUID, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}

	logger = logger.With().Str(log.KeyProcess, "finding cart items in database").Logger()
	logger.Trace().Msg("finding cart items in database")
	span.AddEvent("finding cart items in database")
	items, err := svc.store.FindCartItemsByProductIds(c, ids)
	if err != nil {
		err = fmt.Errorf("failed finding cart items with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.ProductPage{}, err
	}
	span.AddEvent("found cart items in database")
	logger.Trace().Msg("found cart items in database")

	itemsByProduct := make(map[uuid.UUID][]repository.CartItem, len(products))
	for _, item := range items {
		itemsByProduct[item.ProductID] = append(itemsByProduct[item.ProductID], item)
	}

	results := make([]response.Product, 0, len(products))
	for _, p := range products {
		results = append(results, response.NewProduct(p, itemsByProduct[p.ID], now, svc.photoURL))
	}

	logger.Info().Int(log.KeyProducts, len(results)).Msg("found products")
	return response.ProductPage{Count: count, Results: results}, nil
}

func (svc *ProductService) InsertProduct(
	c context.Context,
	req request.CreateProduct,
	files request.Files,
) (response.Product, error) {
	c, span := otel.Tracer.Start(c, "ProductService InsertProduct")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductService InsertProduct").
		Logger()

	price, err := req.Price.Decimal()
	if err != nil {
		err = fmt.Errorf("failed parsing price with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Product{}, err
	}

	if files.Warranty != nil {
		logger.Debug().Str(log.KeyFilename, files.Warranty.Filename).Msg("discarding warranty on create")
	}

	photo := ""
	if files.Photo != nil {
		photo, err = svc.savePhoto(logger.WithContext(c), files.Photo)
		if err != nil {
			inOtel.RecordError(err, span)
			return response.Product{}, err
		}
	}

	now := svc.clock()
	var (
		product repository.Product
		items   []repository.CartItem
	)

	logger = logger.With().Str(log.KeyProcess, "inserting product to database").Logger()
	logger.Trace().Msg("inserting product to database")
	span.AddEvent("inserting product to database")
	err = svc.store.ExecTx(c, func(q repository.Querier) error {
		product, err = q.InsertProduct(c, repository.InsertProductParams{
			ID:          uuid.New(),
			Name:        req.Name,
			Description: req.Description,
			Price:       price,
			SaleStart:   req.SaleStart.Time,
			SaleEnd:     req.SaleEnd.Time,
			Photo:       photo,
			CreatedAt:   now,
		})
		if err != nil {
			return fmt.Errorf("failed inserting product with error=%w", err)
		}

		items, err = insertCartItems(c, q, product.ID, req.CartItems, now)
		return err
	})
	if err != nil {
		err = fmt.Errorf("failed inserting product to database with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		svc.discardPhoto(logger.WithContext(c), photo)
		return response.Product{}, err
	}
	span.SetAttributes(attribute.String(log.KeyProductID, product.ID.String()))
	logger = logger.With().Str(log.KeyProductID, product.ID.String()).Logger()
	span.AddEvent("inserted product to database")
	logger.Info().Msg("inserted product to database")

	return response.NewProduct(product, items, now, svc.photoURL), nil
}

func (svc *ProductService) FindProductById(
	c context.Context,
	id uuid.UUID,
) (response.Product, error) {
	c, span := otel.Tracer.Start(c, "ProductService FindProductById")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductService FindProductById").
		Str(log.KeyProductID, id.String()).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "finding product in database").Logger()
	logger.Trace().Msg("finding product in database")
	span.AddEvent("finding product in database")
	product, err := svc.store.FindProductById(c, id)
	if err != nil {
		err = notFound(id, err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Product{}, err
	}
	span.AddEvent("found product in database")
	logger.Trace().Msg("found product in database")

	logger = logger.With().Str(log.KeyProcess, "finding cart items in database").Logger()
	logger.Trace().Msg("finding cart items in database")
	items, err := svc.store.FindCartItemsByProductId(c, id)
	if err != nil {
		err = fmt.Errorf("failed finding cart items with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Product{}, err
	}
	logger.Info().Msg("found product")

	return response.NewProduct(product, items, svc.clock(), svc.photoURL), nil
}

func (svc *ProductService) UpdateProduct(
	c context.Context,
	id uuid.UUID,
	req request.UpdateProduct,
	files request.Files,
) (response.Product, error) {
	c, span := otel.Tracer.Start(c, "ProductService UpdateProduct")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductService UpdateProduct").
		Str(log.KeyProductID, id.String()).
		Bool("partial", req.Partial).
		Logger()

	if files.Photo != nil {
		logger = logger.With().Str(log.KeyProcess, "validating photo").Logger()
		logger.Trace().Msg("validating photo")
		if err := storage.ValidateImage(files.Photo.Content); err != nil {
			inOtel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return response.Product{}, err
		}
		logger.Trace().Msg("validated photo")
	}

	now := svc.clock()
	var (
		product repository.Product
		photo   string
	)

	logger = logger.With().Str(log.KeyProcess, "updating product in database").Logger()
	logger.Trace().Msg("updating product in database")
	span.AddEvent("updating product in database")
	err := svc.store.ExecTx(c, func(q repository.Querier) error {
		current, err := q.FindProductById(c, id)
		if err != nil {
			return notFound(id, err)
		}

		params, err := updateParams(current, req, files.Warranty, now)
		if err != nil {
			return err
		}

		if files.Photo != nil {
			photo, err = svc.savePhoto(logger.WithContext(c), files.Photo)
			if err != nil {
				return err
			}
			params.Photo = photo
		}

		product, err = q.UpdateProduct(c, params)
		if err != nil {
			return fmt.Errorf("failed updating product with error=%w", notFound(id, err))
		}

		_, err = insertCartItems(c, q, id, req.CartItems, now)
		return err
	})
	if err != nil {
		err = fmt.Errorf("failed updating product in database with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		svc.discardPhoto(logger.WithContext(c), photo)
		return response.Product{}, err
	}
	span.AddEvent("updated product in database")
	logger.Info().Msg("updated product in database")

	logger = logger.With().Str(log.KeyProcess, "finding cart items in database").Logger()
	logger.Trace().Msg("finding cart items in database")
	items, err := svc.store.FindCartItemsByProductId(c, id)
	if err != nil {
		err = fmt.Errorf("failed finding cart items with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Product{}, err
	}
	logger.Trace().Msg("found cart items in database")

	cacheKey := cache.KeyProductData(id)
	logger = logger.With().
		Str(log.KeyProcess, "updating product in cache").
		Str(log.KeyCacheKey, cacheKey).
		Logger()
	logger.Trace().Msg("updating product in cache")
	span.AddEvent("updating product in cache")
	err = svc.cache.Set(logger.WithContext(c), cacheKey, cache.Snapshot{
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price.StringFixed(2),
	})
	if err != nil {
		err = fmt.Errorf("failed updating product in cache with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
	} else {
		span.AddEvent("updated product in cache")
		logger.Info().Msg("updated product in cache")
	}

	return response.NewProduct(product, items, now, svc.photoURL), nil
}

func (svc *ProductService) RemoveProduct(c context.Context, id uuid.UUID) error {
	c, span := otel.Tracer.Start(c, "ProductService RemoveProduct")
	defer span.End()

	cacheKey := cache.KeyProductData(id)
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductService RemoveProduct").
		Str(log.KeyProductID, id.String()).
		Str(log.KeyCacheKey, cacheKey).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "removing product in database").Logger()
	logger.Trace().Msg("removing product in database")
	span.AddEvent("removing product in database")
	if _, err := svc.store.DeleteProduct(c, id); err != nil {
		err = notFound(id, err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	span.AddEvent("removed product in database")
	logger.Info().Msg("removed product in database")

	logger = logger.With().Str(log.KeyProcess, "removing product in cache").Logger()
	logger.Trace().Msg("removing product in cache")
	span.AddEvent("removing product in cache")
	if err := svc.cache.Delete(logger.WithContext(c), cacheKey); err != nil {
		err = fmt.Errorf("failed removing product in cache with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil
	}
	span.AddEvent("removed product in cache")
	logger.Info().Msg("removed product in cache")

	return nil
}

func (svc *ProductService) GetProductStats(c context.Context, id uuid.UUID) (response.Stats, error) {
	c, span := otel.Tracer.Start(c, "ProductService GetProductStats")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductService GetProductStats").
		Str(log.KeyProductID, id.String()).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "finding product in database").Logger()
	logger.Trace().Msg("finding product in database")
	if _, err := svc.store.FindProductById(c, id); err != nil {
		err = notFound(id, err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Stats{}, err
	}
	logger.Trace().Msg("found product in database")

	logger = logger.With().Str(log.KeyProcess, "finding cart items in database").Logger()
	logger.Trace().Msg("finding cart items in database")
	items, err := svc.store.FindCartItemsByProductId(c, id)
	if err != nil {
		err = fmt.Errorf("failed finding cart items with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Stats{}, err
	}
	logger.Info().Int(log.KeyCartItems, len(items)).Msg("found cart items in database")

	return response.NewStats(items), nil
}

func (svc *ProductService) savePhoto(c context.Context, photo *request.File) (string, error) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductService savePhoto").
		Str(log.KeyFilename, photo.Filename).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "validating photo").Logger()
	logger.Trace().Msg("validating photo")
	if err := storage.ValidateImage(photo.Content); err != nil {
		logger.Error().Err(err).Msg(err.Error())
		return "", err
	}
	logger.Trace().Msg("validated photo")

	logger = logger.With().Str(log.KeyProcess, "saving photo").Logger()
	logger.Trace().Msg("saving photo")
	name, err := svc.media.Save(logger.WithContext(c), storage.DirProducts, photo.Filename, photo.Content)
	if err != nil {
		err = fmt.Errorf("failed saving photo with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return "", err
	}
	logger.Info().Str(log.KeyMediaPath, name).Msg("saved photo")

	return name, nil
}

// discardPhoto removes a photo saved for a write that did not commit.
func (svc *ProductService) discardPhoto(c context.Context, name string) {
	if name == "" {
		return
	}
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductService discardPhoto").
		Str(log.KeyMediaPath, name).
		Logger()
	if err := svc.media.Remove(logger.WithContext(c), name); err != nil {
		logger.Error().Err(err).Msg("failed discarding photo")
	}
}

func insertCartItems(
	c context.Context,
	q repository.Querier,
	productID uuid.UUID,
	reqItems []request.CartItem,
	now time.Time,
) ([]repository.CartItem, error) {
	items := make([]repository.CartItem, 0, len(reqItems))
	for i, reqItem := range reqItems {
		item, err := q.InsertCartItem(c, repository.InsertCartItemParams{
			ID:        uuid.New(),
			ProductID: productID,
			Quantity:  int32(reqItem.Quantity),
			// keeps insertion order when items share a timestamp
			CreatedAt: now.Add(time.Duration(i) * time.Microsecond),
		})
		if err != nil {
			return nil, fmt.Errorf("failed inserting cart item with error=%w", err)
		}
		items = append(items, item)
	}
	return items, nil
}

// updateParams applies req on top of current. Nil fields and unset sale times
// keep their stored values.
func updateParams(
	current repository.Product,
	req request.UpdateProduct,
	warranty *request.File,
	now time.Time,
) (repository.UpdateProductParams, error) {
	params := repository.UpdateProductParams{
		ID:          current.ID,
		Name:        current.Name,
		Description: current.Description,
		Price:       current.Price,
		SaleStart:   current.SaleStart,
		SaleEnd:     current.SaleEnd,
		Photo:       current.Photo,
		UpdatedAt:   now,
	}
	if req.Name != nil {
		params.Name = *req.Name
	}
	if req.Description != nil {
		params.Description = *req.Description
	}
	if req.Price != nil {
		price, err := req.Price.Decimal()
		if err != nil {
			return repository.UpdateProductParams{}, fmt.Errorf("failed parsing price with error=%w", err)
		}
		params.Price = price
	}
	if req.SaleStart.Set {
		params.SaleStart = req.SaleStart.Time
	}
	if req.SaleEnd.Set {
		params.SaleEnd = req.SaleEnd.Time
	}
	if warranty != nil {
		params.Description += warrantyHeader + strings.Join(warrantyLines(warranty.Content), "; ")
	}
	return params, nil
}

// warrantyLines splits content into lines that keep their line endings.
func warrantyLines(content []byte) []string {
	lines := strings.SplitAfter(string(content), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
