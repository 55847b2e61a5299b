package config

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// RateLimitRule limits requests matching Endpoint to Limit per Period.
// Endpoint is "*" or "METHOD:/path" where either part may end in "*".
type RateLimitRule struct {
	Endpoint string        `yaml:"endpoint"`
	Period   time.Duration `yaml:"period"`
	Limit    int           `yaml:"limit"`
}

// RateLimitPolicy holds the rules for one resolved client id.
type RateLimitPolicy struct {
	ClientID string          `yaml:"clientId"`
	Rules    []RateLimitRule `yaml:"rules"`
}

// RateLimitOptions is the client rate limiting configuration.
type RateLimitOptions struct {
	GeneralRules         []RateLimitRule   `yaml:"generalRules"`
	Policies             []RateLimitPolicy `yaml:"policies"`
	ClientWhitelist      []string          `yaml:"clientWhitelist"`
	HTTPStatusCode       int               `yaml:"httpStatusCode"`
	QuotaExceededMessage string            `yaml:"quotaExceededMessage"`
}

// DefaultRateLimitOptions pools anonymous callers, applications (basic) and
// individual users (bearer) into separate buckets.
func DefaultRateLimitOptions() *RateLimitOptions {
	return &RateLimitOptions{
		GeneralRules: []RateLimitRule{{Endpoint: "*", Period: time.Minute, Limit: 100}},
		Policies: []RateLimitPolicy{
			{ClientID: "anon", Rules: []RateLimitRule{{Endpoint: "*", Period: time.Minute, Limit: 60}}},
			{ClientID: "basic", Rules: []RateLimitRule{{Endpoint: "*", Period: time.Minute, Limit: 1000}}},
			{ClientID: "bearer", Rules: []RateLimitRule{{Endpoint: "*", Period: time.Minute, Limit: 200}}},
		},
		HTTPStatusCode:       http.StatusTooManyRequests,
		QuotaExceededMessage: "API calls quota exceeded! maximum admitted %d per %s.",
	}
}

// LoadRateLimitOptions reads the YAML policy file at path. An empty path
// yields the defaults.
func LoadRateLimitOptions(path string) (*RateLimitOptions, error) {
	if path == "" {
		return DefaultRateLimitOptions(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rate limit policies: %w", err)
	}
	return ParseRateLimitOptions(b)
}

// ParseRateLimitOptions decodes YAML policies and fills unset fields from the defaults.
func ParseRateLimitOptions(b []byte) (*RateLimitOptions, error) {
	var opts RateLimitOptions
	if err := yaml.Unmarshal(b, &opts); err != nil {
		return nil, fmt.Errorf("parse rate limit policies: %w", err)
	}
	def := DefaultRateLimitOptions()
	if len(opts.GeneralRules) == 0 {
		opts.GeneralRules = def.GeneralRules
	}
	if opts.HTTPStatusCode == 0 {
		opts.HTTPStatusCode = def.HTTPStatusCode
	}
	if opts.QuotaExceededMessage == "" {
		opts.QuotaExceededMessage = def.QuotaExceededMessage
	}
	for _, r := range opts.GeneralRules {
		if r.Period <= 0 || r.Limit <= 0 {
			return nil, fmt.Errorf("invalid general rule %q", r.Endpoint)
		}
	}
	for _, p := range opts.Policies {
		if p.ClientID == "" {
			return nil, fmt.Errorf("rate limit policy without clientId")
		}
		for _, r := range p.Rules {
			if r.Period <= 0 || r.Limit <= 0 {
				return nil, fmt.Errorf("invalid rule %q for client %q", r.Endpoint, p.ClientID)
			}
		}
	}
	return &opts, nil
}

// PolicyFor returns the policy registered for clientID.
func (o *RateLimitOptions) PolicyFor(clientID string) (RateLimitPolicy, bool) {
	for _, p := range o.Policies {
		if p.ClientID == clientID {
			return p, true
		}
	}
	return RateLimitPolicy{}, false
}

// Whitelisted reports whether clientID bypasses rate limiting.
func (o *RateLimitOptions) Whitelisted(clientID string) bool {
	for _, c := range o.ClientWhitelist {
		if c == clientID {
			return true
		}
	}
	return false
}
