package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/mehmetcc/todox/internal/auth"
	"github.com/mehmetcc/todox/internal/httpx"
	"github.com/mehmetcc/todox/internal/middleware"
	"go.uber.org/zap"
	"moul.io/chizap"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Deps struct {
	Logger   *zap.Logger
	Verifier middleware.Verifier
	Auth     *auth.Handler

	// DB may be nil, health then only reports the process.
	DB             Pinger
	AllowedOrigins []string

	// TrustProxy rewrites RemoteAddr from forwarding headers, which the
	// per-IP auth rate limit keys on.
	TrustProxy bool
}

// NewRouter mounts /auth and /healthz in the open and everything else behind
// the session gate.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if d.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(chizap.New(d.Logger, &chizap.Opts{
		WithReferer:   true,
		WithUserAgent: true,
	}))
	r.Use(chimw.Recoverer)
	if len(d.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost},
			AllowedHeaders:   []string{"Content-Type", "HX-Request", "HX-Current-URL", "HX-Target", "HX-Trigger"},
			ExposedHeaders:   []string{"HX-Redirect"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", health(d.DB))
	r.Mount("/auth", d.Auth.Routes())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(d.Verifier, auth.LoginPath, d.Logger))
		r.Get(auth.HomePath, index)
	})
	return r
}

func index(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		// unreachable behind RequireSession
		http.Redirect(w, r, auth.LoginPath, http.StatusTemporaryRedirect)
		return
	}
	httpx.WriteHTML(w, http.StatusOK, httpx.PageIndex, httpx.IndexData{UserID: claims.UserID})
}

func health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				httpx.WriteError(w, http.StatusServiceUnavailable, httpx.ErrorResponse[any]{
					Code:    httpx.ErrUnavailable,
					Message: "database unreachable",
				})
				return
			}
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
