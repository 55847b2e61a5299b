package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-odata-api/pkg/response"
)

// Checker probes one dependency.
type Checker func(ctx context.Context) error

// HealthModule serves GET /health. It answers 503 when any checker fails.
func HealthModule(checks map[string]Checker) Module {
	return ModuleFunc(func(rg *gin.RouterGroup) {
		rg.GET("/health", func(c *gin.Context) {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			status := http.StatusOK
			results := make(map[string]string, len(checks))
			for name, check := range checks {
				if err := check(ctx); err != nil {
					results[name] = "down: " + err.Error()
					status = http.StatusServiceUnavailable
					continue
				}
				results[name] = "up"
			}
			if status != http.StatusOK {
				c.JSON(status, response.Error[map[string]string](c, status, "unhealthy", results))
				return
			}
			c.JSON(status, response.Success(c, status, results, "healthy", nil))
		})
	})
}
