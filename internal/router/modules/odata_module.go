package modules

import (
	"net/http"

	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-odata-api/internal/interface/http"
	"github.com/oksasatya/go-odata-api/internal/interface/middleware"
	"github.com/oksasatya/go-odata-api/pkg/telemetry"
)

// ODataModule serves the entity sets and $batch of one service root.
// Public: reads (address reads need authentication on v1)
// Authenticated: writes when AUTH_REQUIRED_FOR_WRITES is set
// Admin: entity deletes and $ref removal
type ODataModule struct {
	Base    *handlers.ODataHandler
	Routes  []handlers.Route
	Batch   *handlers.BatchHandler
	Auth    middleware.Authenticator
	Roles   middleware.RoleChecker
	Admin   string
	Limiter *middleware.RateLimiter // nil disables rate limiting
	Tracker *telemetry.Tracker
	Capture bool
}

func (m *ODataModule) Register(rg *gin.RouterGroup) {
	g := rg.Group(m.Base.Prefix)
	g.Use(middleware.APIVersion(m.Base.Version), middleware.Authenticate(m.Auth))
	if m.Limiter != nil {
		g.Use(m.Limiter.Handler(middleware.AllowBatchSubRequests(), middleware.AllowPreflight()))
	}

	for _, r := range m.Routes {
		chain := make([]gin.HandlerFunc, 0, 2)
		switch r.Access {
		case handlers.Authenticated:
			chain = append(chain, middleware.RequireAuth())
		case handlers.Admin:
			chain = append(chain, middleware.RequireRole(m.Roles, m.Admin))
		}
		g.Handle(r.Method, r.Path, append(chain, r.Handler)...)
	}

	g.POST("/$batch", middleware.TrackRequest(m.Tracker, http.MethodPost+" /$batch", m.Capture), m.Batch.Handle)
}
