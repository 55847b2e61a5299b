package application

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-odata-api/internal/domain/entity"
	repo "github.com/oksasatya/go-odata-api/internal/domain/repository"
)

// SecurityService resolves stored roles for principals. Lookups, including
// misses, are cached in Redis for TTL.
type SecurityService struct {
	Repo   repo.ClaimRolesRepository
	Redis  *redis.Client
	TTL    time.Duration
	Logger *logrus.Logger
}

func NewSecurityService(r repo.ClaimRolesRepository, rdb *redis.Client, ttl time.Duration, logger *logrus.Logger) *SecurityService {
	return &SecurityService{Repo: r, Redis: rdb, TTL: ttl, Logger: logger}
}

func rolesKey(name string) string {
	return "roles:" + name
}

// Roles returns the stored roles of name.
func (s *SecurityService) Roles(ctx context.Context, name string) ([]string, error) {
	if name == "" {
		return nil, nil
	}
	if s.Redis != nil {
		v, err := s.Redis.Get(ctx, rolesKey(name)).Result()
		switch {
		case err == nil:
			return entity.ClaimRoles{Name: name, Roles: v}.RoleList(), nil
		case !errors.Is(err, redis.Nil) && s.Logger != nil:
			s.Logger.WithError(err).WithField("name", name).Warn("roles cache read failed")
		}
	}

	var raw string
	c, err := s.Repo.Get(ctx, name)
	switch {
	case err == nil:
		raw = c.Roles
	case errors.Is(err, repo.ErrNotFound):
	default:
		return nil, err
	}

	if s.Redis != nil {
		if err := s.Redis.Set(ctx, rolesKey(name), raw, s.TTL).Err(); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("name", name).Warn("roles cache write failed")
		}
	}
	return entity.ClaimRoles{Name: name, Roles: raw}.RoleList(), nil
}

// HasRole reports whether name holds role, either from claims or from the store.
func (s *SecurityService) HasRole(ctx context.Context, name string, claimed []string, role string) (bool, error) {
	for _, r := range claimed {
		if r == role {
			return true, nil
		}
	}
	stored, err := s.Roles(ctx, name)
	if err != nil {
		return false, err
	}
	for _, r := range stored {
		if r == role {
			return true, nil
		}
	}
	return false, nil
}

// Grant stores roles for name and drops the cached entry.
func (s *SecurityService) Grant(ctx context.Context, c *entity.ClaimRoles) error {
	if err := s.Repo.Upsert(ctx, c); err != nil {
		return err
	}
	if s.Redis != nil {
		_ = s.Redis.Del(ctx, rolesKey(c.Name)).Err()
	}
	return nil
}
