package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() { gin.SetMode(gin.TestMode) }

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestRegistry_AddAndMount(t *testing.T) {
	engine := gin.New()
	reg := NewRegistry(engine)
	var order []string
	reg.Use(func(c *gin.Context) { order = append(order, "mw"); c.Next() })
	reg.Add(ModuleFunc(func(rg *gin.RouterGroup) {
		rg.GET("/ping", func(c *gin.Context) { order = append(order, "api"); c.Status(http.StatusNoContent) })
	}))
	reg.Mount(ModuleFunc(func(rg *gin.RouterGroup) {
		rg.GET("/odata/ping", func(c *gin.Context) { order = append(order, "root"); c.Status(http.StatusNoContent) })
	}))
	reg.RegisterAll()

	assert.Equal(t, http.StatusNoContent, get(engine, "/api/ping").Code)
	assert.Equal(t, http.StatusNoContent, get(engine, "/odata/ping").Code)
	assert.Equal(t, http.StatusNotFound, get(engine, "/ping").Code)
	// /api middleware does not run for mounted modules
	assert.Equal(t, []string{"mw", "api", "root"}, order)
}

func TestHealthModule(t *testing.T) {
	engine := gin.New()
	reg := NewRegistry(engine)
	healthy := true
	reg.Add(HealthModule(map[string]Checker{
		"postgres": func(context.Context) error { return nil },
		"redis": func(context.Context) error {
			if healthy {
				return nil
			}
			return errors.New("connection refused")
		},
	}))
	reg.RegisterAll()

	w := get(engine, "/api/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":"up"`)

	healthy = false
	w = get(engine, "/api/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "down: connection refused")
}
