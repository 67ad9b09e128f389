package middleware

import (
	"context"
	"net/http"

	"github.com/mehmetcc/todox/internal/httpx"
	"github.com/mehmetcc/todox/internal/session"
	"github.com/mehmetcc/todox/internal/token"
	"go.uber.org/zap"
)

// Verifier validates a session token and returns its claims.
type Verifier interface {
	Verify(tokenString string) (*token.Claims, error)
}

type claimsContextKeyType struct{}

var claimsKey = claimsContextKeyType{}

// ClaimsFromContext returns the claims attached by RequireSession.
func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*token.Claims)
	return c, ok && c != nil
}

// RequireSession lets a request through only when it carries a valid session
// token. Every failure, whether no cookie, a malformed token, a bad signature
// or an expired token, ends in the same 307 to loginPath and the next handler
// never runs.
func RequireSession(v Verifier, loginPath string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := session.Extract(r)
			if !ok {
				logger.Debug("no session credential", zap.String("path", r.URL.Path))
				deny(w, r, loginPath)
				return
			}

			claims, err := v.Verify(raw)
			if err != nil {
				logger.Debug("session token rejected", zap.String("path", r.URL.Path), zap.Error(err))
				deny(w, r, loginPath)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func deny(w http.ResponseWriter, r *http.Request, loginPath string) {
	// htmx follows redirects inside XHR and would swap the login page into
	// the target element
	if httpx.IsHTMX(r) {
		w.Header().Set("HX-Redirect", loginPath)
	}
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, loginPath, http.StatusTemporaryRedirect)
}
