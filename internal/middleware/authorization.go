package middleware

import (
	"net/http"

	"go.uber.org/zap"
)

// RequireAdmin must run after AuthMiddleware
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				logger.Warn("Principal not found in context", zap.String("path", r.URL.Path))
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			if !principal.IsAdmin() {
				logger.Warn("Non-admin user attempted to access admin endpoint",
					zap.String("user_id", principal.UserID.String()),
					zap.String("role", principal.Role),
					zap.String("path", r.URL.Path),
				)
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
