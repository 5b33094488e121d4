package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/catalog/internal/config"
	"github.com/Alturino/catalog/internal/infra"
	"github.com/Alturino/catalog/internal/middleware"
	"github.com/Alturino/catalog/internal/repository/sqlite"
	"github.com/Alturino/catalog/product/internal/cache"
	"github.com/Alturino/catalog/product/internal/service"
	"github.com/Alturino/catalog/product/internal/storage"
	"github.com/Alturino/catalog/product/pkg/response"
)

type envelope struct {
	Status     string              `json:"status"`
	StatusCode int                 `json:"statusCode"`
	Message    string              `json:"message"`
	Data       json.RawMessage     `json:"data"`
	Errors     map[string][]string `json:"errors"`
}

type productData struct {
	Product response.Product `json:"product"`
}

type nopCache struct{}

func (nopCache) Set(context.Context, string, cache.Snapshot) error { return nil }
func (nopCache) Delete(context.Context, string) error { return nil }

type fixture struct {
	handler http.Handler
	store   *sqlite.Store
}

func newHandler(svc ProductService, secret string) http.Handler {
	router := mux.NewRouter()
	AttachProductController(
		router,
		svc,
		config.Pagination{DefaultLimit: 10, MaxLimit: 100},
		middleware.Auth(secret),
	)
	return middleware.TrimTrailingSlash(router)
}

func setup(t *testing.T, secret string) fixture {
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

	var tick time.Duration
	clock := func() time.Time {
		tick += time.Millisecond
		return time.Date(2024, 11, 20, 12, 0, 0, 0, time.UTC).Add(tick)
	}

	store := sqlite.NewStore(db)
	svc := service.NewProductService(
		store,
		nopCache{},
		storage.NewMediaStorage(afero.NewMemMapFs()),
		"/media/",
		service.WithClock(clock),
	)
	return fixture{handler: newHandler(svc, secret), store: store}
}

func (f fixture) do(t *testing.T, method string, target string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	return serve(t, f.handler, req)
}

func serve(t *testing.T, handler http.Handler, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	body := envelope{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	}
	return rec, body
}

func decodeProduct(t *testing.T, body envelope) response.Product {
	t.Helper()
	data := productData{}
	require.NoError(t, json.Unmarshal(body.Data, &data))
	return data.Product
}

func decodePage(t *testing.T, body envelope) response.ProductPage {
	t.Helper()
	page := response.ProductPage{}
	require.NoError(t, json.Unmarshal(body.Data, &page))
	return page
}

func multipartRequest(t *testing.T, method string, target string, fields map[string]string, filename string, content []byte) *http.Request {
	t.Helper()
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if filename != "" {
		part, err := writer.CreateFormFile("photo", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(method, target, buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, image.NewGray(image.Rect(0, 0, 1, 1))))
	return buf.Bytes()
}
