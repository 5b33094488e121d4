package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	inHttp "github.com/Alturino/catalog/internal/http"
	"github.com/Alturino/catalog/internal/log"
	"github.com/Alturino/catalog/internal/token"
)

// Auth requires a bearer token signed with secretKey. An empty secretKey
// disables the check.
func Auth(secretKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secretKey == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := zerolog.Ctx(r.Context()).With().Str(log.KeyTag, "middleware Auth").Logger()
			c := logger.WithContext(r.Context())

			authorization := r.Header.Get(inHttp.KeyHeaderAuthorization)
			scheme, bearer, found := strings.Cut(authorization, " ")
			if authorization == "" || !found || !strings.EqualFold(scheme, "bearer") {
				logger.Error().Err(token.ErrEmptyAuth).Msg(token.ErrEmptyAuth.Error())
				inHttp.WriteFailed(c, w, http.StatusUnauthorized, token.ErrEmptyAuth.Error(), nil)
				return
			}

			jwtToken, err := token.VerifyToken(c, secretKey, strings.TrimSpace(bearer))
			if err != nil {
				logger.Error().Err(err).Msg(err.Error())
				inHttp.WriteFailed(c, w, http.StatusUnauthorized, token.ErrTokenInvalid.Error(), nil)
				return
			}

			c = token.AttachJwtToken(c, jwtToken)
			next.ServeHTTP(w, r.WithContext(c))
		})
	}
}
