package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-odata-api/internal/interface/http"
)

type SwaggerModule struct {
	Handler *handlers.SwaggerHandler
}

func NewSwaggerModule(h *handlers.SwaggerHandler) *SwaggerModule {
	return &SwaggerModule{Handler: h}
}

func (m *SwaggerModule) Register(rg *gin.RouterGroup) {
	rg.GET("/swagger/:version/swagger.json", m.Handler.Serve)
}
