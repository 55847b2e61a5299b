package modules

import (
	"expvar"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oksasatya/go-odata-api/internal/interface/middleware"
)

type DebugModule struct {
	Limiter *middleware.RateLimiter
}

func NewDebugModule(limiter *middleware.RateLimiter) *DebugModule { return &DebugModule{Limiter: limiter} }

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	g := rg.Group("/debug")
	if m.Limiter != nil {
		g.Use(m.Limiter.Handler())
	}
	g.GET("/vars", gin.WrapH(expvar.Handler()))
	g.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
