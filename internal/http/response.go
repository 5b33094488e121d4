package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Alturino/catalog/internal/log"
	"github.com/Alturino/catalog/internal/otel"
)

// WriteJsonResponse writes body as JSON. The status code is taken from
// body["statusCode"] and defaults to 200.
func WriteJsonResponse(
	c context.Context,
	w http.ResponseWriter,
	header map[string]string,
	body map[string]interface{},
) {
	c, span := otel.Tracer.Start(c, "WriteJsonResponse")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "WriteJsonResponse").Logger()

	w.Header().Set(KeyHeaderContentType, ValueHeaderApplicationJson)
	for k, v := range header {
		w.Header().Add(k, v)
	}

	statusCode := http.StatusOK
	if v, ok := body["statusCode"].(int); ok {
		statusCode = v
	}
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
}

// WriteNoContent answers 204 without a body.
func WriteNoContent(c context.Context, w http.ResponseWriter) {
	_, span := otel.Tracer.Start(c, "WriteNoContent")
	defer span.End()
	w.WriteHeader(http.StatusNoContent)
}

// WriteFailed writes the failed envelope with an optional field-scoped error map.
func WriteFailed(
	c context.Context,
	w http.ResponseWriter,
	statusCode int,
	message string,
	fieldErrors map[string][]string,
) {
	body := map[string]interface{}{
		"status":     StatusFailed,
		"statusCode": statusCode,
		"message":    message,
	}
	if len(fieldErrors) > 0 {
		body["errors"] = fieldErrors
	}
	WriteJsonResponse(c, w, map[string]string{}, body)
}
