package middleware

import (
	"net/http"
	"strings"

	"taskgraph/pkg/auth"
	"taskgraph/pkg/common"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Authenticate validates the bearer token on every request and stores the
// authenticated user ID in the request context. A nil validator disables
// authentication, for local development only.
func Authenticate(validator *auth.JWTValidator, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validator == nil {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				common.RespondError(w, http.StatusUnauthorized,
					common.StandardErrorCodes.Unauthorized, "missing bearer token")
				return
			}

			userID, err := validator.Validate(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				logger.Debug("Token validation failed", zap.Error(err))
				common.RespondError(w, http.StatusUnauthorized,
					common.StandardErrorCodes.Unauthorized, "invalid token")
				return
			}

			ctx := common.EnrichContext(r.Context(), userID, chimiddleware.GetReqID(r.Context()))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
