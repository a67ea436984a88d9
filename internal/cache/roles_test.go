package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bugtracker/bugtracker/internal/db/models"
	"github.com/bugtracker/bugtracker/internal/telemetry"
)

type countingSource struct {
	mu    sync.Mutex
	roles map[string]*models.Role
	calls map[string]int
	err   error
}

func (s *countingSource) FindRoleByName(_ context.Context, name string) (*models.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = map[string]int{}
	}
	s.calls[name]++
	if s.err != nil {
		return nil, s.err
	}
	return s.roles[name], nil
}

func setupRoleCache(t *testing.T, source RoleSource) (*RoleCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return NewRoleCache(client, source, time.Minute), mr
}

func developer() *models.Role {
	return &models.Role{Name: "Developer", Permissions: models.PermissionSet{"viewBug": true}}
}

func lookups(result string) float64 {
	return telemetry.CounterValue(telemetry.RoleCacheLookupsTotal, prometheus.Labels{"result": result})
}

func TestNewRedisClient_InvalidURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "not a url")
	assert.Error(t, err)
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisClient(context.Background(), "redis://"+addr)
	assert.Error(t, err)
}

func TestRoleCache_ReadThrough(t *testing.T) {
	source := &countingSource{roles: map[string]*models.Role{"Developer": developer()}}
	cache, mr := setupRoleCache(t, source)
	ctx := context.Background()

	missesBefore, hitsBefore := lookups("miss"), lookups("hit")

	first, err := cache.FindRoleByName(ctx, "Developer")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.True(t, mr.Exists("role:Developer"))
	assert.Equal(t, time.Minute, mr.TTL("role:Developer"))

	second, err := cache.FindRoleByName(ctx, "Developer")
	require.NoError(t, err)
	assert.Equal(t, first.Permissions, second.Permissions)

	assert.Equal(t, 1, source.calls["Developer"], "second lookup should be served from redis")
	assert.Equal(t, missesBefore+1, lookups("miss"))
	assert.Equal(t, hitsBefore+1, lookups("hit"))
}

func TestRoleCache_MissingRoleNotCached(t *testing.T) {
	source := &countingSource{roles: map[string]*models.Role{}}
	cache, mr := setupRoleCache(t, source)

	role, err := cache.FindRoleByName(context.Background(), "Tester")
	require.NoError(t, err)
	assert.Nil(t, role)
	assert.False(t, mr.Exists("role:Tester"))
}

func TestRoleCache_SourceErrorPropagates(t *testing.T) {
	source := &countingSource{err: errors.New("store unavailable")}
	cache, _ := setupRoleCache(t, source)

	_, err := cache.FindRoleByName(context.Background(), "Developer")
	assert.Error(t, err)
}

func TestRoleCache_CorruptEntryReloaded(t *testing.T) {
	source := &countingSource{roles: map[string]*models.Role{"Developer": developer()}}
	cache, mr := setupRoleCache(t, source)
	require.NoError(t, mr.Set("role:Developer", "{not json"))

	role, err := cache.FindRoleByName(context.Background(), "Developer")
	require.NoError(t, err)
	require.NotNil(t, role)
	assert.True(t, role.Permissions["viewBug"])
	assert.Equal(t, 1, source.calls["Developer"])
}

func TestRoleCache_RedisDownFallsBackToSource(t *testing.T) {
	source := &countingSource{roles: map[string]*models.Role{"Developer": developer()}}
	cache, mr := setupRoleCache(t, source)
	mr.Close()

	errorsBefore := lookups("error")
	role, err := cache.FindRoleByName(context.Background(), "Developer")
	require.NoError(t, err)
	require.NotNil(t, role)
	assert.Equal(t, errorsBefore+1, lookups("error"))
}

func TestRoleCache_Invalidate(t *testing.T) {
	source := &countingSource{roles: map[string]*models.Role{"Developer": developer()}}
	cache, mr := setupRoleCache(t, source)
	ctx := context.Background()

	_, err := cache.FindRoleByName(ctx, "Developer")
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx, "Developer"))
	assert.False(t, mr.Exists("role:Developer"))

	source.roles["Developer"] = &models.Role{Name: "Developer", Permissions: models.PermissionSet{"deleteBug": true}}
	role, err := cache.FindRoleByName(ctx, "Developer")
	require.NoError(t, err)
	assert.True(t, role.Permissions["deleteBug"])
	assert.Equal(t, 2, source.calls["Developer"])
}

func TestNewRoleCache_DefaultTTL(t *testing.T) {
	c := NewRoleCache(nil, &countingSource{}, 0)
	assert.Equal(t, DefaultRoleTTL, c.ttl)
}
