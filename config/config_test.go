package config

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 100000, cfg.ODataMaxNodeCount)
	assert.Equal(t, 5000, cfg.BatchMaxOperationsPerChangeset)
	assert.Equal(t, "Admin", cfg.AdminRole)
	assert.True(t, cfg.AuthRequiredForWrites)
	assert.Equal(t, 4*time.Hour, cfg.RolesCacheTTL)
	assert.False(t, cfg.CaptureBodies())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("SECURITY_ALLOWED_API_KEYS", " a2V5MTpw , ,a2V5Mjpw")
	t.Setenv("JWT_AUDIENCES", "api://one,api://two")
	t.Setenv("HTTP_REQUEST_LOGGING_LEVEL", "high")
	t.Setenv("ODATA_MAX_TOP", "not-a-number")
	t.Setenv("ROLES_CACHE_TTL", "30m")

	cfg := Load()

	assert.Equal(t, []string{"a2V5MTpw", "a2V5Mjpw"}, cfg.APIKeys())
	assert.Equal(t, []string{"api://one", "api://two"}, cfg.Audiences())
	assert.True(t, cfg.CaptureBodies())
	assert.Equal(t, 0, cfg.ODataMaxTop)
	assert.Equal(t, 30*time.Minute, cfg.RolesCacheTTL)
}

func TestPostgresDSN(t *testing.T) {
	cfg := &Config{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: "5432", DBName: "d", DBSSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5432/d?sslmode=disable", cfg.PostgresDSN())
}

func TestLoadRateLimitOptions_DefaultsWithoutFile(t *testing.T) {
	opts, err := LoadRateLimitOptions("")
	require.NoError(t, err)

	p, ok := opts.PolicyFor("bearer")
	require.True(t, ok)
	assert.Equal(t, 200, p.Rules[0].Limit)
	assert.Equal(t, http.StatusTooManyRequests, opts.HTTPStatusCode)
}

func TestParseRateLimitOptions(t *testing.T) {
	doc := []byte(`
generalRules:
  - endpoint: "*"
    period: 1s
    limit: 5
policies:
  - clientId: "Basic c2VjcmV0OmtleQ=="
    rules:
      - endpoint: "get:/odata/*"
        period: 1m
        limit: 10
clientWhitelist: ["internal"]
`)
	opts, err := ParseRateLimitOptions(doc)
	require.NoError(t, err)

	assert.Equal(t, time.Second, opts.GeneralRules[0].Period)
	p, ok := opts.PolicyFor("Basic c2VjcmV0OmtleQ==")
	require.True(t, ok)
	assert.Equal(t, time.Minute, p.Rules[0].Period)
	assert.True(t, opts.Whitelisted("internal"))
	assert.False(t, opts.Whitelisted("basic"))
	assert.Equal(t, http.StatusTooManyRequests, opts.HTTPStatusCode)
	assert.NotEmpty(t, opts.QuotaExceededMessage)
}

func TestParseRateLimitOptions_InvalidRule(t *testing.T) {
	_, err := ParseRateLimitOptions([]byte(`
policies:
  - clientId: anon
    rules:
      - endpoint: "*"
        limit: 0
`))
	assert.Error(t, err)

	_, err = ParseRateLimitOptions([]byte(`
generalRules:
  - endpoint: "*"
    period: 1m
    limit: 0
`))
	assert.ErrorContains(t, err, "invalid general rule")

	_, err = ParseRateLimitOptions([]byte(`
generalRules:
  - endpoint: "GET:/odata/*"
    limit: 10
`))
	assert.Error(t, err)
}
