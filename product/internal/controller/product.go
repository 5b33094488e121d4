package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Alturino/catalog/internal/config"
	inHttp "github.com/Alturino/catalog/internal/http"
	"github.com/Alturino/catalog/internal/log"
	inOtel "github.com/Alturino/catalog/internal/otel"
	"github.com/Alturino/catalog/internal/validate"
	productErrors "github.com/Alturino/catalog/product/internal/errors"
	"github.com/Alturino/catalog/product/internal/otel"
	"github.com/Alturino/catalog/product/pkg/request"
	"github.com/Alturino/catalog/product/pkg/response"
)

const maxMultipartMemory = 32 << 20

type ProductService interface {
	FindProducts(c context.Context, req request.FindProducts) (response.ProductPage, error)
	InsertProduct(c context.Context, req request.CreateProduct, files request.Files) (response.Product, error)
	FindProductById(c context.Context, id uuid.UUID) (response.Product, error)
	UpdateProduct(c context.Context, id uuid.UUID, req request.UpdateProduct, files request.Files) (response.Product, error)
	RemoveProduct(c context.Context, id uuid.UUID) error
	GetProductStats(c context.Context, id uuid.UUID) (response.Stats, error)
}

type ProductController struct {
	service    ProductService
	pagination config.Pagination
}

// AttachProductController mounts the product routes under /api/v1. auth wraps
// every route that changes data.
func AttachProductController(
	router *mux.Router,
	service ProductService,
	pagination config.Pagination,
	auth func(http.Handler) http.Handler,
) {
	controller := ProductController{service: service, pagination: pagination}

	products := router.PathPrefix("/api/v1/products").Subrouter()
	products.HandleFunc("", controller.GetProducts).Methods(http.MethodGet)
	products.Handle("", auth(http.HandlerFunc(controller.InsertProduct))).Methods(http.MethodPost)
	products.Handle("/new", auth(http.HandlerFunc(controller.InsertProduct))).Methods(http.MethodPost)
	products.HandleFunc("/{productId}", controller.FindProductById).Methods(http.MethodGet)
	products.Handle("/{productId}", auth(http.HandlerFunc(controller.UpdateProduct))).
		Methods(http.MethodPut, http.MethodPatch)
	products.Handle("/{productId}", auth(http.HandlerFunc(controller.RemoveProduct))).
		Methods(http.MethodDelete)
	products.HandleFunc("/{productId}/stats", controller.GetProductStats).Methods(http.MethodGet)
}

func (ctrl ProductController) GetProducts(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "ProductController GetProducts")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductController GetProducts").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "parsing query").Logger()
	logger.Trace().Msg("parsing query")
	span.AddEvent("parsing query")
	req, err := request.ParseFindProducts(
		r.URL.Query(),
		ctrl.pagination.DefaultLimit,
		ctrl.pagination.MaxLimit,
	)
	if err != nil {
		err = fmt.Errorf("failed parsing query with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, err)
		return
	}
	span.AddEvent("parsed query")
	logger.Trace().Msg("parsed query")

	logger = logger.With().Str(log.KeyProcess, "finding products").Logger()
	logger.Trace().Msg("finding products")
	span.AddEvent("finding products")
	c = logger.WithContext(c)
	page, err := ctrl.service.FindProducts(c, req)
	if err != nil {
		err = fmt.Errorf("failed finding products with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, err)
		return
	}
	span.AddEvent("found products")
	logger.Info().Int64(log.KeyCount, page.Count).Msg("found products")

	page.Next, page.Previous = pageLinks(r, page.Count, req.Limit, req.Offset)
	for i := range page.Results {
		absolutePhoto(r, &page.Results[i])
	}

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     inHttp.StatusSuccess,
		"statusCode": http.StatusOK,
		"message":    "products found",
		"data":       page,
	})
}

func (ctrl ProductController) InsertProduct(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "ProductController InsertProduct")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductController InsertProduct").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "decoding request body").Logger()
	logger.Trace().Msg("decoding request body")
	span.AddEvent("decoding request body")
	var (
		req   request.CreateProduct
		files request.Files
		err   error
	)
	if isMultipart(r) {
		if err = r.ParseMultipartForm(maxMultipartMemory); err == nil {
			req, files, err = request.CreateProductFromForm(r.MultipartForm)
		}
	} else {
		err = json.NewDecoder(r.Body).Decode(&req)
	}
	if err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", errors.Join(productErrors.ErrMalformedRequest, err))
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, err)
		return
	}
	span.AddEvent("decoded request body")
	logger.Trace().Msg("decoded request body")

	logger = logger.With().Str(log.KeyProcess, "validating request body").Logger()
	logger.Trace().Msg("validating request body")
	span.AddEvent("validating request body")
	if err = req.Validate(c); err != nil {
		err = fmt.Errorf("failed validating request body with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, err)
		return
	}
	span.AddEvent("validated request body")
	logger.Trace().Msg("validated request body")

	logger = logger.With().Str(log.KeyProcess, "inserting product").Logger()
	logger.Trace().Msg("inserting product")
	span.AddEvent("inserting product")
	c = logger.WithContext(c)
	product, err := ctrl.service.InsertProduct(c, req, files)
	if err != nil {
		err = fmt.Errorf("failed inserting product with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, err)
		return
	}
	span.SetAttributes(attribute.String(log.KeyProductID, product.ID.String()))
	span.AddEvent("inserted product")
	logger.Info().Str(log.KeyProductID, product.ID.String()).Msg("inserted product")

	absolutePhoto(r, &product)
	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     inHttp.StatusSuccess,
		"statusCode": http.StatusCreated,
		"message":    "successfully inserted product",
		"data": map[string]interface{}{
			"product": product,
		},
	})
}

func (ctrl ProductController) FindProductById(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "ProductController FindProductById")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductController FindProductById").
		Logger()

	id, err := productId(r)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, err)
		return
	}
	span.SetAttributes(attribute.String(log.KeyProductID, id.String()))
	logger = logger.With().Str(log.KeyProductID, id.String()).Logger()

	logger = logger.With().Str(log.KeyProcess, "finding product").Logger()
	logger.Trace().Msg("finding product")
	span.AddEvent("finding product")
	c = logger.WithContext(c)
	product, err := ctrl.service.FindProductById(c, id)
	if err != nil {
		err = fmt.Errorf("failed finding product with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, err)
		return
	}
	span.AddEvent("found product")
	logger.Info().Msg("found product")

	absolutePhoto(r, &product)
	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     inHttp.StatusSuccess,
		"statusCode": http.StatusOK,
		"message":    fmt.Sprintf("product id=%s found", id.String()),
		"data": map[string]interface{}{
			"product": product,
		},
	})
}

func (ctrl ProductController) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "ProductController UpdateProduct")
	defer span.End()

	partial := r.Method == http.MethodPatch
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductController UpdateProduct").
		Bool("partial", partial).
		Logger()

	id, err := productId(r)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, err)
		return
	}
	span.SetAttributes(attribute.String(log.KeyProductID, id.String()))
	logger = logger.With().Str(log.KeyProductID, id.String()).Logger()

	logger = logger.With().Str(log.KeyProcess, "decoding request body").Logger()
	logger.Trace().Msg("decoding request body")
	span.AddEvent("decoding request body")
	var (
		req   request.UpdateProduct
		files request.Files
	)
	if isMultipart(r) {
		if err = r.ParseMultipartForm(maxMultipartMemory); err == nil {
			req, files, err = request.UpdateProductFromForm(r.MultipartForm, partial)
		}
	} else {
		err = json.NewDecoder(r.Body).Decode(&req)
		req.Partial = partial
	}
	if err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", errors.Join(productErrors.ErrMalformedRequest, err))
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, err)
		return
	}
	span.AddEvent("decoded request body")
	logger.Trace().Msg("decoded request body")

	logger = logger.With().Str(log.KeyProcess, "validating request body").Logger()
	logger.Trace().Msg("validating request body")
	span.AddEvent("validating request body")
	if err = req.Validate(c); err != nil {
		err = fmt.Errorf("failed validating request body with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, err)
		return
	}
	span.AddEvent("validated request body")
	logger.Trace().Msg("validated request body")

	logger = logger.With().Str(log.KeyProcess, "updating product").Logger()
	logger.Trace().Msg("updating product")
	span.AddEvent("updating product")
	c = logger.WithContext(c)
	product, err := ctrl.service.UpdateProduct(c, id, req, files)
	if err != nil {
		err = fmt.Errorf("failed updating product with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, err)
		return
	}
	span.AddEvent("updated product")
	logger.Info().Msg("updated product")

	absolutePhoto(r, &product)
	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     inHttp.StatusSuccess,
		"statusCode": http.StatusOK,
		"message":    "successfully updated product",
		"data": map[string]interface{}{
			"product": product,
		},
	})
}

func (ctrl ProductController) RemoveProduct(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "ProductController RemoveProduct")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductController RemoveProduct").
		Logger()

	id, err := productId(r)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, err)
		return
	}
	span.SetAttributes(attribute.String(log.KeyProductID, id.String()))
	logger = logger.With().Str(log.KeyProductID, id.String()).Logger()

	logger = logger.With().Str(log.KeyProcess, "removing product").Logger()
	logger.Trace().Msg("removing product")
	span.AddEvent("removing product")
	c = logger.WithContext(c)
	if err = ctrl.service.RemoveProduct(c, id); err != nil {
		err = fmt.Errorf("failed removing product with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, err)
		return
	}
	span.AddEvent("removed product")
	logger.Info().Msg("removed product")

	inHttp.WriteNoContent(c, w)
}

func (ctrl ProductController) GetProductStats(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "ProductController GetProductStats")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductController GetProductStats").
		Logger()

	id, err := productId(r)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, err)
		return
	}
	logger = logger.With().Str(log.KeyProductID, id.String()).Logger()

	logger = logger.With().Str(log.KeyProcess, "getting product stats").Logger()
	logger.Trace().Msg("getting product stats")
	span.AddEvent("getting product stats")
	c = logger.WithContext(c)
	stats, err := ctrl.service.GetProductStats(c, id)
	if err != nil {
		err = fmt.Errorf("failed getting product stats with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, err)
		return
	}
	span.AddEvent("got product stats")
	logger.Info().Msg("got product stats")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     inHttp.StatusSuccess,
		"statusCode": http.StatusOK,
		"message":    fmt.Sprintf("stats of product id=%s", id.String()),
		"data":       stats,
	})
}

func productId(r *http.Request) (uuid.UUID, error) {
	raw := mux.Vars(r)["productId"]
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf(
			"failed parsing productId=%s with error=%w",
			raw,
			errors.Join(productErrors.ErrInvalidProductId, err),
		)
	}
	return id, nil
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get(inHttp.KeyHeaderContentType))
	return err == nil && mediaType == inHttp.ValueHeaderMultipartForm
}

func writeError(c context.Context, w http.ResponseWriter, err error) {
	var fieldErrors validate.FieldErrors
	switch {
	case errors.As(err, &fieldErrors):
		inHttp.WriteFailed(c, w, http.StatusBadRequest, "invalid request", fieldErrors)
	case errors.Is(err, productErrors.ErrProductNotFound):
		inHttp.WriteFailed(c, w, http.StatusNotFound, productErrors.ErrProductNotFound.Error(), nil)
	case errors.Is(err, productErrors.ErrInvalidProductId), errors.Is(err, productErrors.ErrMalformedRequest):
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err.Error(), nil)
	default:
		inHttp.WriteFailed(c, w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), nil)
	}
}
