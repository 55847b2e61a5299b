package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-odata-api/internal/interface/http"
	"github.com/oksasatya/go-odata-api/internal/interface/middleware"
)

// SearchModule exposes full-text lookups: GET /api/search/users?q=, /api/search/addresses?q=
type SearchModule struct {
	Handler *handlers.SearchHandler
	Limiter *middleware.RateLimiter
}

func NewSearchModule(h *handlers.SearchHandler, limiter *middleware.RateLimiter) *SearchModule {
	return &SearchModule{Handler: h, Limiter: limiter}
}

func (m *SearchModule) Register(rg *gin.RouterGroup) {
	chain := []gin.HandlerFunc{}
	if m.Limiter != nil {
		chain = append(chain, m.Limiter.Handler(middleware.AllowPreflight()))
	}
	rg.GET("/search/:set", append(chain, m.Handler.Search)...)
}
