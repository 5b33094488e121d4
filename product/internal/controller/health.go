package controller

import (
	"net/http"

	inHttp "github.com/Alturino/catalog/internal/http"
)

func Health(w http.ResponseWriter, r *http.Request) {
	inHttp.WriteJsonResponse(r.Context(), w, map[string]string{}, map[string]interface{}{
		"status":     inHttp.StatusSuccess,
		"statusCode": http.StatusOK,
		"message":    "ok",
	})
}
