//go:build wireinject
// +build wireinject

package di

import (
	"context"
	"log/slog"

	"github.com/google/wire"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/anivault/anivault/internal/app"
	"github.com/anivault/anivault/internal/config"
	"github.com/anivault/anivault/internal/http/handler"
	"github.com/anivault/anivault/internal/identity"
	"github.com/anivault/anivault/internal/observability"
	"github.com/anivault/anivault/internal/repository"
	"github.com/anivault/anivault/internal/service"
	"github.com/anivault/anivault/internal/session"
)

var infraSet = wire.NewSet(
	provideRuntime,
	provideDB,
	provideRedis,
	provideIPCache,
	provideIPResolver,
	provideEntryMissCache,
	provideTokenStore,
	provideTokenVerifier,
	provideIdentityClient,
	wire.Bind(new(identity.Provider), new(*identity.GoTrueClient)),
	repository.NewProfileRepository,
	repository.NewIPSessionRepository,
	repository.NewAnimeRepository,
)

var serviceSet = wire.NewSet(
	session.NewStore,
	provideFeed,
	provideNotifier,
	provideIPSessionTracker,
	service.NewProfileLoader,
	service.NewAuthService,
	service.NewCatalogService,
	service.NewAdminService,
	provideManagerOptions,
	session.NewManager,
	wire.Bind(new(session.IPValidator), new(*service.IPSessionTracker)),
	wire.Bind(new(session.ProfileFetcher), new(*service.ProfileLoader)),
)

var httpSet = wire.NewSet(
	handler.NewSessionHandler,
	handler.NewAuthHandler,
	handler.NewProfileHandler,
	handler.NewCatalogHandler,
	handler.NewAdminHandler,
	wire.Bind(new(handler.PhaseSource), new(*session.Manager)),
	wire.Bind(new(service.AuthServiceInterface), new(*service.AuthService)),
	wire.Bind(new(service.ProfileServiceInterface), new(*service.ProfileLoader)),
	wire.Bind(new(service.CatalogServiceInterface), new(*service.CatalogService)),
	wire.Bind(new(service.AdminServiceInterface), new(*service.AdminService)),
	observability.NewHTTPMetrics,
	provideReadiness,
	provideRouter,
	provideHTTPServer,
)

var appSet = wire.NewSet(
	app.New,
	wire.Bind(new(app.Bootstrapper), new(*session.Manager)),
	wire.Bind(new(app.IPSessionPruner), new(*service.IPSessionTracker)),
	wire.Struct(new(Container), "*"),
)

func InitializeContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger, lp *sdklog.LoggerProvider) (*Container, func(), error) {
	wire.Build(infraSet, serviceSet, httpSet, appSet)
	return nil, nil, nil
}
