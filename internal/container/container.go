package container

import (
	"net/http"

	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-odata-api/config"
	"github.com/oksasatya/go-odata-api/pkg/helpers"
	"github.com/oksasatya/go-odata-api/pkg/telemetry"
)

// app-level container to share constructed components across packages
// Router can auto-wire modules from these singletons.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	redisClient *redis.Client
	gcsClient   *storage.Client

	jwtManager *helpers.JWTManager
	rateLimits *config.RateLimitOptions

	rabbitPub *helpers.RabbitPublisher
	esClient  *elasticsearch.Client
	tracker   *telemetry.Tracker

	// root is the outermost HTTP handler; $batch dispatches sub-requests through it.
	root http.Handler
)

func SetConfig(c *config.Config)   { cfg = c }
func GetConfig() *config.Config    { return cfg }
func SetLogger(l *logrus.Logger)   { logger = l }
func GetLogger() *logrus.Logger    { return logger }
func SetPGPool(p *pgxpool.Pool)    { pgPool = p }
func GetPGPool() *pgxpool.Pool     { return pgPool }
func SetRedis(r *redis.Client)     { redisClient = r }
func GetRedis() *redis.Client      { return redisClient }
func SetGCS(s *storage.Client)     { gcsClient = s }
func GetGCS() *storage.Client      { return gcsClient }
func SetJWT(m *helpers.JWTManager) { jwtManager = m }
func GetJWT() *helpers.JWTManager  { return jwtManager }

func SetRateLimits(o *config.RateLimitOptions) { rateLimits = o }
func GetRateLimits() *config.RateLimitOptions  { return rateLimits }
func SetRabbitPub(p *helpers.RabbitPublisher)  { rabbitPub = p }
func GetRabbitPub() *helpers.RabbitPublisher   { return rabbitPub }
func SetES(c *elasticsearch.Client)            { esClient = c }
func GetES() *elasticsearch.Client             { return esClient }
func SetTracker(t *telemetry.Tracker)          { tracker = t }
func GetTracker() *telemetry.Tracker           { return tracker }
func SetRootHandler(h http.Handler)            { root = h }
func GetRootHandler() http.Handler             { return root }
