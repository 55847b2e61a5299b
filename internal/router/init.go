package router

import (
	"context"
	"net/http"

	"github.com/oksasatya/go-odata-api/internal/application"
	"github.com/oksasatya/go-odata-api/internal/container"
	pginfra "github.com/oksasatya/go-odata-api/internal/infrastructure/postgres"
	handlers "github.com/oksasatya/go-odata-api/internal/interface/http"
	"github.com/oksasatya/go-odata-api/internal/interface/middleware"
	"github.com/oksasatya/go-odata-api/internal/odata"
	"github.com/oksasatya/go-odata-api/internal/router/modules"
)

// ServiceRoot is one mount point of the OData API.
type ServiceRoot struct {
	Prefix  string
	Version *odata.Version
	// Documented roots get a swagger document.
	Documented bool
}

// ServiceRoots lists /odata/v1, /odata/v2 and /odata, which serves the default version.
var ServiceRoots = []ServiceRoot{
	{Prefix: "/odata/v1", Version: odata.V1, Documented: true},
	{Prefix: "/odata/v2", Version: odata.V2, Documented: true},
	{Prefix: "/odata", Version: odata.Default},
}

type ODataDeps struct {
	Tx        *pginfra.TxManager
	Users     *application.UserService
	Addresses *application.AddressService
	Security  *application.SecurityService
	Search    *application.SearchService
	Limiter   *middleware.RateLimiter
}

func buildODataDeps() ODataDeps {
	cfg := container.GetConfig()
	pool := container.GetPGPool()
	tx := pginfra.NewTxManager(pool)

	store := &application.Store{
		Users:     pginfra.NewUserRepository(pool),
		Addresses: pginfra.NewAddressRepository(pool),
		Links:     pginfra.NewAssociationRepository(pool),
		Notes:     pginfra.NewNoteRepository(pool),
		Tx:        tx,
		Logger:    container.GetLogger(),
	}
	if t := container.GetTracker(); t != nil {
		store.Events = t
	}

	deps := ODataDeps{
		Tx:        tx,
		Users:     application.NewUserService(store),
		Addresses: application.NewAddressService(store),
		Security: application.NewSecurityService(
			pginfra.NewClaimRolesRepository(pool),
			container.GetRedis(),
			cfg.RolesCacheTTL,
			container.GetLogger(),
		),
		Search: application.NewSearchService(container.GetES(), cfg.ESUsersIndex, cfg.ESAddressesIndex, container.GetLogger()),
	}
	if cfg.RateLimitEnabled {
		deps.Limiter = middleware.NewRateLimiter(container.GetRedis(), container.GetRateLimits(), container.GetLogger())
	}
	return deps
}

func beginChangeset(tx *pginfra.TxManager) handlers.BeginFunc {
	return func(ctx context.Context) (context.Context, handlers.UnitOfWork, error) {
		txCtx, unit, err := tx.Begin(ctx)
		if err != nil {
			return ctx, nil, err
		}
		return txCtx, unit, nil
	}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	deps := buildODataDeps()
	root := func() http.Handler { return container.GetRootHandler() }
	auth := middleware.Authenticator{APIKeys: cfg.APIKeys(), JWT: container.GetJWT()}
	swagger := handlers.NewSwaggerHandler(cfg.AppName)

	for _, sr := range ServiceRoots {
		base := &handlers.ODataHandler{
			Version: sr.Version,
			Prefix:  sr.Prefix,
			Limits:  odata.Options{MaxTop: cfg.ODataMaxTop, MaxNodeCount: cfg.ODataMaxNodeCount},
			Tracker: container.GetTracker(),
			Logger:  container.GetLogger(),
		}
		routes := handlers.ODataRoutes(
			handlers.NewUserHandler(base, deps.Users),
			handlers.NewAddressHandler(base, deps.Addresses),
			handlers.RouteOptions{
				AuthRequiredForWrites:     cfg.AuthRequiredForWrites,
				AuthenticatedAddressReads: sr.Version == odata.V1,
			},
		)
		if sr.Documented {
			if err := swagger.Add(sr.Version, sr.Prefix, routes); err != nil {
				container.GetLogger().WithError(err).WithField("version", sr.Version.Name).Error("swagger document failed")
			}
		}
		r.Mount(&modules.ODataModule{
			Base:    base,
			Routes:  routes,
			Batch:   handlers.NewBatchHandler(base, beginChangeset(deps.Tx), root, cfg.BatchMaxOperationsPerChangeset),
			Auth:    auth,
			Roles:   deps.Security,
			Admin:   cfg.AdminRole,
			Limiter: deps.Limiter,
			Tracker: container.GetTracker(),
			Capture: cfg.CaptureBodies(),
		})
	}

	checks := map[string]Checker{}
	if pool := container.GetPGPool(); pool != nil {
		checks["postgres"] = pool.Ping
	}
	if rdb := container.GetRedis(); rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	r.Add(HealthModule(checks))
	r.Mount(modules.NewSwaggerModule(swagger))
	r.Add(modules.NewSearchModule(handlers.NewSearchHandler(deps.Search, container.GetLogger()), deps.Limiter))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(deps.Limiter))
	}
}
