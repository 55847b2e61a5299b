package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/oksasatya/go-odata-api/config"
	"github.com/oksasatya/go-odata-api/pkg/helpers"
	"github.com/oksasatya/go-odata-api/pkg/response"
)

// ClientID resolves the rate limiting identity of an Authorization header.
// Absent headers pool as "anon"; a header with its own policy keeps its
// literal value; otherwise Basic and Bearer callers pool by scheme.
func ClientID(authorization string, opts *config.RateLimitOptions) string {
	if authorization == "" {
		return "anon"
	}
	if _, ok := opts.PolicyFor(authorization); ok {
		return authorization
	}
	lower := strings.ToLower(authorization)
	switch {
	case strings.HasPrefix(lower, "basic"):
		return "basic"
	case strings.HasPrefix(lower, "bearer"):
		return "bearer"
	}
	return authorization
}

// RulesFor returns the rules of clientID's policy, or the general rules.
func RulesFor(clientID string, opts *config.RateLimitOptions) []config.RateLimitRule {
	if p, ok := opts.PolicyFor(clientID); ok {
		return p.Rules
	}
	return opts.GeneralRules
}

// matchEndpoint reports whether rule endpoint ("*" or "METHOD:/path",
// either part optionally ending in "*") covers method and path.
func matchEndpoint(endpoint, method, path string) bool {
	if endpoint == "*" {
		return true
	}
	m, p, ok := strings.Cut(endpoint, ":")
	if !ok {
		return false
	}
	return matchPart(m, method) && matchPart(p, path)
}

func matchPart(pattern, s string) bool {
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(strings.ToLower(s), strings.ToLower(strings.TrimSuffix(pattern, "*")))
	}
	return strings.EqualFold(pattern, s)
}

// RateLimiter counts requests per resolved client id and rule in Redis. When
// Redis is absent or failing it falls back to in-process token buckets.
type RateLimiter struct {
	Redis  *redis.Client
	Opts   *config.RateLimitOptions
	Logger *logrus.Logger

	mu    sync.Mutex
	local map[string]*rate.Limiter
}

func NewRateLimiter(rdb *redis.Client, opts *config.RateLimitOptions, logger *logrus.Logger) *RateLimiter {
	return &RateLimiter{Redis: rdb, Opts: opts, Logger: logger, local: map[string]*rate.Limiter{}}
}

func (l *RateLimiter) localLimiter(key string, rule config.RateLimitRule) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.local[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(rule.Period/time.Duration(rule.Limit)), rule.Limit)
		l.local[key] = lim
	}
	return lim
}

type verdict struct {
	rule      config.RateLimitRule
	remaining int
	reset     time.Duration
	exceeded  bool
}

func (l *RateLimiter) check(c *gin.Context, clientID string, rule config.RateLimitRule) verdict {
	key := "rl:" + clientID + ":" + rule.Endpoint + ":" + rule.Period.String()
	if l.Redis != nil {
		count, ttl, err := helpers.IncrWindow(c.Request.Context(), l.Redis, key, rule.Period)
		if err == nil {
			return verdict{rule: rule, remaining: max(rule.Limit-count, 0), reset: ttl, exceeded: count > rule.Limit}
		}
		if l.Logger != nil {
			l.Logger.WithError(err).Warn("rate limit counter unavailable, using local limiter")
		}
	}
	lim := l.localLimiter(key, rule)
	if !lim.Allow() {
		return verdict{rule: rule, reset: rule.Period / time.Duration(rule.Limit), exceeded: true}
	}
	return verdict{rule: rule, remaining: int(lim.Tokens()), reset: rule.Period}
}

// Handler enforces the rules of the caller's client id. allow funcs bypass it.
func (l *RateLimiter) Handler(allow ...AllowFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, fn := range allow {
			if fn(c) {
				c.Next()
				return
			}
		}
		clientID := ClientID(c.GetHeader("Authorization"), l.Opts)
		if l.Opts.Whitelisted(clientID) {
			c.Next()
			return
		}

		var last *verdict
		for _, rule := range RulesFor(clientID, l.Opts) {
			if rule.Limit <= 0 || rule.Period <= 0 || !matchEndpoint(rule.Endpoint, c.Request.Method, c.Request.URL.Path) {
				continue
			}
			v := l.check(c, clientID, rule)
			last = &v
			if v.exceeded {
				break
			}
		}
		if last == nil {
			c.Next()
			return
		}

		resetSec := int(last.reset.Round(time.Second) / time.Second)
		c.Header("X-RateLimit-Limit", strconv.Itoa(last.rule.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(last.remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(resetSec))
		if last.exceeded {
			c.Header("Retry-After", strconv.Itoa(max(resetSec, 1)))
			status := l.Opts.HTTPStatusCode
			if status == 0 {
				status = http.StatusTooManyRequests
			}
			msg := fmt.Sprintf(l.Opts.QuotaExceededMessage, last.rule.Limit, formatPeriod(last.rule.Period))
			response.Abort(c, status, msg, nil)
			return
		}
		c.Next()
	}
}

func formatPeriod(d time.Duration) string {
	switch {
	case d%(24*time.Hour) == 0:
		return strconv.Itoa(int(d/(24*time.Hour))) + "d"
	case d%time.Hour == 0:
		return strconv.Itoa(int(d/time.Hour)) + "h"
	case d%time.Minute == 0:
		return strconv.Itoa(int(d/time.Minute)) + "m"
	case d%time.Second == 0:
		return strconv.Itoa(int(d/time.Second)) + "s"
	}
	return d.String()
}
