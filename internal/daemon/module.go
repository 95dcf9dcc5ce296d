package daemon

import (
	"context"

	"github.com/guildhub/guildhub/internal/auth"
	"github.com/guildhub/guildhub/internal/bus"
	"github.com/guildhub/guildhub/internal/config"
	"github.com/guildhub/guildhub/internal/dispatch"
	"github.com/guildhub/guildhub/internal/logging"
	"github.com/guildhub/guildhub/internal/presence"
	"github.com/guildhub/guildhub/internal/store"
	"github.com/guildhub/guildhub/internal/ws"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved startup options passed to the fx module.
type Params struct {
	ConfigPath string
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideStore,
			provideRegistry,
			provideAuthenticator,
			provideRouter,
			provideWSHandler,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	return config.Load(p.ConfigPath)
}

func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.LogPath)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStore(cfg *config.Config, logger *zap.Logger) (*store.DB, error) {
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", cfg.DBPath))
	return db, nil
}

func provideRegistry() *presence.Registry {
	return presence.NewRegistry()
}

func provideAuthenticator(cfg *config.Config, db *store.DB) *auth.Authenticator {
	return auth.New(cfg.JWTSecret, db)
}

func provideRouter(registry *presence.Registry, db *store.DB, b *bus.Bus, logger *zap.Logger) *dispatch.Router {
	return dispatch.NewRouter(registry, db, b, logger)
}

func provideWSHandler(cfg *config.Config, a *auth.Authenticator, router *dispatch.Router, logger *zap.Logger) *ws.Handler {
	return ws.NewHandler(cfg.AllowedOrigins, a, router, logger)
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, router *dispatch.Router, db *store.DB, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// The registry is empty after a restart; durable rows must agree.
			n, err := db.ResetOnlineStatuses()
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("reset stale online statuses", zap.Int64("users", n))
			}

			// Consume enchantment events published by the HTTP layer.
			router.Start(context.Background())

			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("http server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			srv.Stop(ctx)
			router.Stop()
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
