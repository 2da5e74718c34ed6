package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/dealership/internal/auth"
)

// SessionVerifier checks a session token.
type SessionVerifier interface {
	Verify(ctx context.Context, token string) (*auth.Session, error)
}

// ErrorHandler writes an error response.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// SessionAuth rejects requests without a valid admin session. The token is
// read from the cookie named cookieName, or from an "Authorization: Bearer"
// header. A verified session is stored in the request context.
func SessionAuth(v SessionVerifier, cookieName string, onError ErrorHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r, cookieName)
			if token == "" {
				onError(w, r, auth.ErrInvalidToken)
				return
			}

			sess, err := v.Verify(r.Context(), token)
			if err != nil {
				slog.Warn("auth: session rejected",
					"path", r.URL.Path,
					"method", r.Method,
					"ip", r.RemoteAddr,
					"error", err,
				)
				onError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), sess)))
		})
	}
}

// TokenFromRequest returns the session token carried by r, cookie first.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
