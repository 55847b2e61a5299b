package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-odata-api/internal/odata"
)

// Gin context key holding the *odata.Version a route serves.
const KeyAPIVersion = "api_version"

// APIVersion reports the supported versions and, on deprecated routes, the
// deprecated ones.
func APIVersion(v *odata.Version) gin.HandlerFunc {
	supported := odata.SupportedVersions()
	deprecated := odata.DeprecatedVersions()
	return func(c *gin.Context) {
		c.Set(KeyAPIVersion, v)
		c.Header("api-supported-versions", supported)
		if v.Deprecated {
			c.Header("api-deprecated-versions", deprecated)
		}
		c.Next()
	}
}
