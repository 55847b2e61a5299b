package application

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-odata-api/internal/domain/entity"
	repo "github.com/oksasatya/go-odata-api/internal/domain/repository"
)

func newSecurityFixture(t *testing.T) (*SecurityService, *mockClaimRoles, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	claims := &mockClaimRoles{}
	return NewSecurityService(claims, rdb, time.Minute, nil), claims, mr
}

func TestSecurityService_Roles_CachesHits(t *testing.T) {
	svc, claims, mr := newSecurityFixture(t)
	claims.On("Get", mock.Anything, "alice").
		Return(&entity.ClaimRoles{Name: "alice", Roles: "Admin, Reader ,"}, nil).Once()

	for i := 0; i < 2; i++ {
		roles, err := svc.Roles(context.Background(), "alice")
		require.NoError(t, err)
		assert.Equal(t, []string{"Admin", "Reader"}, roles)
	}
	claims.AssertExpectations(t)

	v, err := mr.Get("roles:alice")
	require.NoError(t, err)
	assert.Equal(t, "Admin, Reader ,", v)
	assert.Equal(t, time.Minute, mr.TTL("roles:alice"))
}

func TestSecurityService_Roles_CachesMisses(t *testing.T) {
	svc, claims, mr := newSecurityFixture(t)
	claims.On("Get", mock.Anything, "bob").Return(nil, repo.ErrNotFound).Once()

	for i := 0; i < 2; i++ {
		roles, err := svc.Roles(context.Background(), "bob")
		require.NoError(t, err)
		assert.Empty(t, roles)
	}
	claims.AssertExpectations(t)
	assert.True(t, mr.Exists("roles:bob"))
}

func TestSecurityService_HasRole(t *testing.T) {
	svc, claims, _ := newSecurityFixture(t)
	claims.On("Get", mock.Anything, "carol").Return(&entity.ClaimRoles{Name: "carol", Roles: "Admin"}, nil)

	ok, err := svc.HasRole(context.Background(), "dave", []string{"Admin"}, "Admin")
	require.NoError(t, err)
	assert.True(t, ok)
	claims.AssertNotCalled(t, "Get", mock.Anything, "dave")

	ok, err = svc.HasRole(context.Background(), "carol", nil, "Admin")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.HasRole(context.Background(), "", nil, "Admin")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSecurityService_Grant_DropsCache(t *testing.T) {
	svc, claims, mr := newSecurityFixture(t)
	require.NoError(t, mr.Set("roles:erin", ""))
	c := &entity.ClaimRoles{Name: "erin", Roles: "Admin"}
	claims.On("Upsert", mock.Anything, c).Return(nil)

	require.NoError(t, svc.Grant(context.Background(), c))
	assert.False(t, mr.Exists("roles:erin"))
}

func TestSecurityService_WithoutRedis(t *testing.T) {
	claims := &mockClaimRoles{}
	claims.On("Get", mock.Anything, "frank").Return(&entity.ClaimRoles{Name: "frank", Roles: "Reader"}, nil).Twice()
	svc := NewSecurityService(claims, nil, time.Minute, nil)

	for i := 0; i < 2; i++ {
		roles, err := svc.Roles(context.Background(), "frank")
		require.NoError(t, err)
		assert.Equal(t, []string{"Reader"}, roles)
	}
	claims.AssertExpectations(t)
}
