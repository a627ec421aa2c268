package di

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"gorm.io/gorm"

	"github.com/anivault/anivault/internal/app"
	"github.com/anivault/anivault/internal/config"
	"github.com/anivault/anivault/internal/database"
	"github.com/anivault/anivault/internal/health"
	"github.com/anivault/anivault/internal/http/handler"
	"github.com/anivault/anivault/internal/http/router"
	"github.com/anivault/anivault/internal/identity"
	"github.com/anivault/anivault/internal/netutil"
	"github.com/anivault/anivault/internal/notify"
	"github.com/anivault/anivault/internal/observability"
	"github.com/anivault/anivault/internal/repository"
	"github.com/anivault/anivault/internal/security"
	"github.com/anivault/anivault/internal/service"
	"github.com/anivault/anivault/internal/session"
)

// Container exposes the wired application and the services the CLI drives
// directly.
type Container struct {
	App     *app.App
	Manager *session.Manager
	Store   *session.Store
	Feed    *notify.Feed
	Auth    *service.AuthService
	Profile *service.ProfileLoader
	Catalog *service.CatalogService
	Admin   *service.AdminService
}

func provideRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger, lp *sdklog.LoggerProvider) (*observability.Runtime, error) {
	return observability.InitRuntime(ctx, cfg, logger, lp)
}

func provideDB(cfg *config.Config) (*gorm.DB, func(), error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = database.Close(db)
		return nil, nil, err
	}
	return db, func() { _ = database.Close(db) }, nil
}

// provideRedis returns a nil client when Redis is disabled.
func provideRedis(cfg *config.Config) (redis.UniversalClient, func(), error) {
	if !cfg.RedisEnabled {
		return nil, func() {}, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	return client, func() { _ = client.Close() }, nil
}

func provideIPCache(cfg *config.Config, client redis.UniversalClient) netutil.IPCache {
	if client == nil {
		return netutil.NewInMemoryIPCache()
	}
	return netutil.NewRedisIPCache(client, cfg.RedisPrefix)
}

func provideIPResolver(cfg *config.Config, cache netutil.IPCache, logger *slog.Logger) netutil.PublicIPResolver {
	return netutil.NewLookupResolver(cfg.IPLookupURL, cfg.IPLookupTimeout, cache, cfg.IPCacheTTL, logger)
}

func provideEntryMissCache(cfg *config.Config, client redis.UniversalClient) service.EntryMissCache {
	if client == nil {
		return service.NewInMemoryEntryMissCache()
	}
	return service.NewRedisEntryMissCache(client, cfg.RedisPrefix)
}

func provideTokenStore(cfg *config.Config) (identity.TokenStore, error) {
	store, err := session.NewFileTokenStore(cfg.SessionFile, cfg.SessionFileKey)
	if err != nil {
		return nil, fmt.Errorf("open session file: %w", err)
	}
	return store, nil
}

func provideTokenVerifier(cfg *config.Config) *security.TokenVerifier {
	return security.NewTokenVerifier(cfg.AuthJWTSecret, "authenticated")
}

func provideIdentityClient(cfg *config.Config, tokens identity.TokenStore, verifier *security.TokenVerifier, logger *slog.Logger) *identity.GoTrueClient {
	return identity.NewGoTrueClient(identity.GoTrueOptions{
		BaseURL:  cfg.AuthURL,
		APIKey:   cfg.AuthAPIKey,
		Timeout:  cfg.AuthTimeout,
		Tokens:   tokens,
		Verifier: verifier,
		Logger:   logger,
	})
}

func provideFeed() *notify.Feed { return notify.NewFeed(100) }

func provideNotifier(feed *notify.Feed, logger *slog.Logger) notify.Notifier {
	return notify.Fanout{feed, notify.NewLogNotifier(logger)}
}

func provideIPSessionTracker(cfg *config.Config, repo repository.IPSessionRepository, resolver netutil.PublicIPResolver, logger *slog.Logger) *service.IPSessionTracker {
	return service.NewIPSessionTracker(repo, resolver, cfg.IPSessionWindow, logger)
}

func provideManagerOptions(cfg *config.Config) session.Options {
	return session.Options{
		InitTimeout: cfg.SessionInitLimit,
		Attempts:    cfg.SessionRetries,
		RetryDelay:  cfg.SessionRetryWait,
	}
}

func provideReadiness(db *gorm.DB, client redis.UniversalClient, provider identity.Provider) *health.ProbeRunner {
	checkers := []health.Checker{
		health.CheckFunc{CheckName: "db", Fn: func(ctx context.Context) error { return database.Ping(ctx, db) }},
		health.CheckFunc{CheckName: "identity", Fn: provider.Health},
	}
	if client != nil {
		checkers = append(checkers, health.CheckFunc{CheckName: "redis", Fn: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}})
	}
	return health.NewProbeRunner(2*time.Second, 5*time.Second, checkers...)
}

func provideRouter(
	cfg *config.Config,
	sessionHandler *handler.SessionHandler,
	authHandler *handler.AuthHandler,
	profileHandler *handler.ProfileHandler,
	catalogHandler *handler.CatalogHandler,
	adminHandler *handler.AdminHandler,
	store *session.Store,
	readiness *health.ProbeRunner,
	metrics *observability.HTTPMetrics,
) http.Handler {
	return router.NewRouter(router.Dependencies{
		SessionHandler: sessionHandler,
		AuthHandler:    authHandler,
		ProfileHandler: profileHandler,
		CatalogHandler: catalogHandler,
		AdminHandler:   adminHandler,
		Store:          store,
		Readiness:      readiness,
		Metrics:        metrics,
		AllowedOrigins: cfg.AllowedOrigins,
		EnableOTelHTTP: cfg.OTELTracingEnabled,
	})
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
