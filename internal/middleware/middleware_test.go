package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inHttp "github.com/Alturino/catalog/internal/http"
	"github.com/Alturino/catalog/internal/log"
	"github.com/Alturino/catalog/internal/token"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestAuth(t *testing.T) {
	secret := "secret"
	valid, err := token.GenerateToken(secret, "admin", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name          string
		secret        string
		authorization string
		expected      int
	}{
		{name: "given empty secret should skip auth", secret: "", expected: http.StatusOK},
		{name: "given missing header should return unauthorized", secret: secret, expected: http.StatusUnauthorized},
		{name: "given non bearer scheme should return unauthorized", secret: secret, authorization: "Basic abc", expected: http.StatusUnauthorized},
		{name: "given invalid token should return unauthorized", secret: secret, authorization: "Bearer abc", expected: http.StatusUnauthorized},
		{name: "given valid token should pass", secret: secret, authorization: "Bearer " + valid, expected: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/products", nil)
			if tt.authorization != "" {
				req.Header.Set(inHttp.KeyHeaderAuthorization, tt.authorization)
			}
			rec := httptest.NewRecorder()

			Auth(tt.secret)(http.HandlerFunc(okHandler)).ServeHTTP(rec, req)

			assert.Equal(t, tt.expected, rec.Code)
		})
	}
}

func TestRecoverPanic(t *testing.T) {
	for _, recovered := range []interface{}{"boom", assert.AnError} {
		handler := RecoverPanic(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic(recovered)
		}))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		body := map[string]interface{}{}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, inHttp.StatusFailed, body["status"])
	}
}

func TestLoggingAttachesRequestIdAndKeepsBody(t *testing.T) {
	var (
		actualRequestID string
		actualBody      map[string]string
	)
	handler := Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actualRequestID = log.RequestIDFromContext(r.Context())
		require.NoError(t, json.NewDecoder(r.Body).Decode(&actualBody))
		assert.NotNil(t, zerolog.Ctx(r.Context()))
	}))

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/products/1", strings.NewReader(`{"name":"New Product"}`))
	req.Header.Set(inHttp.KeyHeaderContentType, inHttp.ValueHeaderApplicationJson)
	req.Header.Set(inHttp.KeyHeaderRequestID, "request-1")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, "request-1", actualRequestID)
	assert.Equal(t, "request-1", rec.Header().Get(inHttp.KeyHeaderRequestID))
	assert.Equal(t, map[string]string{"name": "New Product"}, actualBody)
}

func TestLoggingGeneratesRequestId(t *testing.T) {
	var actual string
	handler := Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actual = log.RequestIDFromContext(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotEmpty(t, actual)
}

func TestTrimTrailingSlash(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/api/v1/products/{productId}", okHandler).Methods(http.MethodDelete)
	handler := TrimTrailingSlash(router)

	for _, path := range []string{"/api/v1/products/1", "/api/v1/products/1/"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestMetricsCountsByRouteTemplate(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry, "test")

	router := mux.NewRouter()
	router.Use(metrics.Middleware)
	router.HandleFunc("/api/v1/products/{productId}", okHandler).Methods(http.MethodGet)

	for _, id := range []string{"1", "2"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/products/"+id, nil))
	}

	assert.Equal(
		t,
		float64(2),
		testutil.ToFloat64(metrics.requests.WithLabelValues(http.MethodGet, "/api/v1/products/{productId}", "200")),
	)
}

func TestCorsAllowsConfiguredOrigin(t *testing.T) {
	handler := Cors([]string{"http://example.com"})(http.HandlerFunc(okHandler))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, "http://example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
