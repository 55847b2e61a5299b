package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AllowFunc returns true to bypass the limiter.
type AllowFunc func(c *gin.Context) bool

// AllowBatchSubRequests exempts requests dispatched from inside a $batch.
func AllowBatchSubRequests() AllowFunc {
	return func(c *gin.Context) bool {
		return IsBatchSubRequest(c.Request.Context())
	}
}

// AllowPreflight exempts OPTIONS requests.
func AllowPreflight() AllowFunc {
	return func(c *gin.Context) bool {
		return strings.EqualFold(c.Request.Method, http.MethodOptions)
	}
}
