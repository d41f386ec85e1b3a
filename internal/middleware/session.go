package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// CartSessionMiddleware assigns every visitor an opaque cart session id kept in an
// HttpOnly cookie. Unknown or malformed cookie values are replaced. The cookie is
// re-sent on every request so its lifetime slides with the stored cart's TTL.
func CartSessionMiddleware(cookieName string, ttl time.Duration, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := ""
			if c, err := r.Cookie(cookieName); err == nil {
				if _, perr := uuid.Parse(c.Value); perr == nil {
					sessionID = c.Value
				}
			}
			if sessionID == "" {
				sessionID = uuid.NewString()
			}

			http.SetCookie(w, &http.Cookie{
				Name:     cookieName,
				Value:    sessionID,
				Path:     "/",
				MaxAge:   int(ttl.Seconds()),
				HttpOnly: true,
				Secure:   secure,
				SameSite: http.SameSiteLaxMode,
			})

			ctx := context.WithValue(r.Context(), cartSessionKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CartSessionFromContext returns the session id set by CartSessionMiddleware
func CartSessionFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(cartSessionKey).(string)
	return id, ok && id != ""
}
