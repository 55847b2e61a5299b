package middleware

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-odata-api/pkg/helpers"
	"github.com/oksasatya/go-odata-api/pkg/response"
)

// Gin context keys set by Authenticate.
const (
	KeyPrincipalName   = "principal_name"
	KeyPrincipalScheme = "principal_scheme"
	KeyPrincipalRoles  = "principal_roles"
	KeyAuthError       = "auth_error"
)

// Authenticator validates Basic API keys and HS256 bearer tokens.
type Authenticator struct {
	APIKeys []string
	JWT     *helpers.JWTManager
}

// Authenticate resolves the principal from the Authorization header. A
// missing or invalid header leaves the request anonymous; RequireAuth
// rejects it where authentication matters.
func Authenticate(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			c.Next()
			return
		}
		scheme, token, _ := strings.Cut(header, " ")
		token = strings.TrimSpace(token)
		switch strings.ToLower(scheme) {
		case "basic":
			name, ok := a.basic(token)
			if !ok {
				c.Set(KeyAuthError, "invalid api key")
				break
			}
			c.Set(KeyPrincipalName, name)
			c.Set(KeyPrincipalScheme, "basic")
		case "bearer":
			if a.JWT == nil {
				c.Set(KeyAuthError, "bearer tokens are not accepted")
				break
			}
			claims, err := a.JWT.Parse(token)
			if err != nil {
				c.Set(KeyAuthError, "invalid access token")
				break
			}
			c.Set(KeyPrincipalName, claims.PrincipalName())
			c.Set(KeyPrincipalScheme, "bearer")
			c.Set(KeyPrincipalRoles, claims.Roles)
		default:
			c.Set(KeyAuthError, "unsupported authorization scheme")
		}
		c.Next()
	}
}

func (a Authenticator) basic(token string) (string, bool) {
	if token == "" || !helpers.MatchAPIKey(a.APIKeys, token) {
		return "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", false
	}
	name, _, _ := strings.Cut(string(decoded), ":")
	if name == "" {
		return "", false
	}
	return name, true
}

// Principal returns the authenticated principal name, or "".
func Principal(c *gin.Context) string {
	return c.GetString(KeyPrincipalName)
}

// Roles returns the roles carried by the bearer token.
func Roles(c *gin.Context) []string {
	return c.GetStringSlice(KeyPrincipalRoles)
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if Principal(c) == "" {
			msg := c.GetString(KeyAuthError)
			if msg == "" {
				msg = "authentication required"
			}
			c.Header("WWW-Authenticate", `Basic realm="api", Bearer`)
			response.Abort(c, http.StatusUnauthorized, msg, nil)
			return
		}
		c.Next()
	}
}

// RoleChecker is implemented by application.SecurityService.
type RoleChecker interface {
	HasRole(ctx context.Context, name string, claimed []string, role string) (bool, error)
}

// RequireRole rejects requests whose principal does not hold role.
func RequireRole(checker RoleChecker, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := Principal(c)
		if name == "" {
			c.Header("WWW-Authenticate", `Basic realm="api", Bearer`)
			response.Abort(c, http.StatusUnauthorized, "authentication required", nil)
			return
		}
		ok, err := checker.HasRole(c.Request.Context(), name, Roles(c), role)
		if err != nil {
			response.Abort(c, http.StatusInternalServerError, "role lookup failed", nil)
			return
		}
		if !ok {
			response.Abort(c, http.StatusForbidden, "the "+role+" role is required", nil)
			return
		}
		c.Next()
	}
}
