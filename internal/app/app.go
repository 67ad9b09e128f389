package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/mehmetcc/todox/internal/auth"
	"github.com/mehmetcc/todox/internal/config"
	"github.com/mehmetcc/todox/internal/database"
	"github.com/mehmetcc/todox/internal/person"
	"github.com/mehmetcc/todox/internal/session"
	"github.com/mehmetcc/todox/internal/token"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type App struct {
	httpServer *http.Server
	db         *sql.DB
	logger     *zap.Logger
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	db, err := database.Init(ctx, cfg.DbConfig)
	if err != nil {
		return nil, err
	}

	if err := database.Migrate(ctx, db, logger); err != nil {
		return nil, multierr.Append(err, db.Close())
	}
	logger.Info("database ready")

	codec, err := token.NewCodec(cfg.JWTConfig)
	if err != nil {
		return nil, multierr.Append(err, db.Close())
	}

	authService, err := auth.NewService(person.NewRepo(db, logger), logger)
	if err != nil {
		return nil, multierr.Append(err, db.Close())
	}
	authHandler := auth.NewHandler(authService, codec, auth.HandlerOptions{
		Cookies:   session.OptionsFromConfig(cfg.CookieConfig),
		RateLimit: cfg.AppConfig.AuthRateLimit,
	}, logger)

	router := NewRouter(Deps{
		Logger:         logger,
		Verifier:       codec,
		Auth:           authHandler,
		DB:             db,
		AllowedOrigins: cfg.CORSConfig.AllowedOrigins,
		TrustProxy:     cfg.AppConfig.TrustProxy,
	})

	server := &http.Server{
		Addr:         ":" + cfg.AppConfig.Port,
		Handler:      router,
		ReadTimeout:  cfg.AppConfig.ReadTimeout,
		WriteTimeout: cfg.AppConfig.WriteTimeout,
		IdleTimeout:  cfg.AppConfig.IdleTimeout,
	}

	return &App{
		httpServer: server,
		db:         db,
		logger:     logger,
	}, nil
}

// Run blocks until the server stops. A graceful shutdown is not an error.
func (a *App) Run() error {
	a.logger.Info("http server listening", zap.String("addr", a.httpServer.Addr))
	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.httpServer.Shutdown(ctx)
	return multierr.Append(err, a.db.Close())
}
