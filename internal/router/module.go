package router

import "github.com/gin-gonic/gin"

// Module registers its routes on the group the registry hands it:
// /api for modules added with Add, the engine root for Mount.
type Module interface {
	Register(rg *gin.RouterGroup)
}

// ModuleFunc adapts a plain function to Module.
type ModuleFunc func(rg *gin.RouterGroup)

func (f ModuleFunc) Register(rg *gin.RouterGroup) { f(rg) }
