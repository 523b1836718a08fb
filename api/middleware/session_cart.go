package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/prostorehq/prostore-backend/pkg/config"
	"github.com/prostorehq/prostore-backend/pkg/logger"
)

// SessionCart guarantees every request carries an anonymous cart token. A
// missing or empty cookie is replaced with a fresh uuid; the token is exposed
// to handlers through the context so cart routes work before login.
func SessionCart(cfg config.CartConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if cookie, err := r.Cookie(cfg.SessionCookieName); err == nil {
				token = cookie.Value
			}
			if token == "" {
				token = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.SessionCookieName,
					Value:    token,
					Path:     "/",
					MaxAge:   int((time.Duration(cfg.SessionCookieDays) * 24 * time.Hour).Seconds()),
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := WithSessionCartID(r.Context(), token)
			if logg != nil {
				ctx = logg.WithSessionCartID(ctx, token)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
